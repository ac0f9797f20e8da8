package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ContentPlan is an LLM-written outline for one short-form video of a character.
type ContentPlan struct {
	bun.BaseModel `bun:"table:content_plans,alias:cp"`

	ID          string         `bun:",pk"`
	OwnerID     string         `bun:",notnull"`
	CharacterID string         `bun:",notnull"`
	Theme       string         `bun:",notnull"`
	PlanData    map[string]any `bun:",type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
}
