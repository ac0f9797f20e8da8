package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type Media struct {
	bun.BaseModel `bun:"table:media,alias:m"`

	ID                 string     `bun:",pk"`
	OwnerID            string     `bun:",notnull"`
	CharacterID        string     `bun:",notnull"`
	Character          *Character `bun:"rel:belongs-to,join:character_id=id"`
	JobID              string     `bun:",nullzero,unique"`
	MediaType          MediaType  `bun:",notnull"`
	FilePath           string     `bun:",notnull"`
	GenerationMode     string     `bun:",nullzero"`
	Prompt             string     `bun:",nullzero"`
	VideoPrompt        string     `bun:",nullzero"`
	FirstFramePath     string     `bun:",nullzero"`
	ReferenceImagePath string     `bun:",nullzero"`
	IsPortfolio        bool       `bun:",notnull"`
	CreatedAt          time.Time  `bun:",nullzero,notnull,default:current_timestamp"`
}
