package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Character struct {
	bun.BaseModel `bun:"table:characters,alias:c"`

	ID                string    `bun:",pk"`
	OwnerID           string    `bun:",notnull"`
	Name              string    `bun:",notnull"`
	VisualDescription string    `bun:",nullzero"`
	PersonalityTraits []string  `bun:",type:jsonb"`
	ToneOfVoice       string    `bun:",nullzero"`
	ContentStyle      string    `bun:",nullzero"`
	TargetAudience    string    `bun:",nullzero"`
	ContentThemes     []string  `bun:",type:jsonb"`
	ImagePath         string    `bun:",nullzero"`
	CreatedAt         time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
