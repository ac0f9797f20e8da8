package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"
)

type JobEventType string

const (
	JobEventCreated   JobEventType = "created"
	JobEventSubmitted JobEventType = "submitted"
	JobEventCompleted JobEventType = "completed"
	JobEventFailed    JobEventType = "failed"
	JobEventRaceLost  JobEventType = "race_lost"
)

// JobEvent is an append-only record of a job transition. Data is msgpack encoded.
type JobEvent struct {
	bun.BaseModel `bun:"table:job_events,alias:e"`

	ID        string       `bun:",pk"`
	JobID     string       `bun:",notnull"`
	Type      JobEventType `bun:",notnull"`
	Data      []byte       `bun:",notnull"`
	CreatedAt time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
}

func NewJobEvent(jobID string, eventType JobEventType, data map[string]any) (*JobEvent, error) {
	if data == nil {
		data = map[string]any{}
	}

	encoded, err := msgpack.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &JobEvent{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Type:      eventType,
		Data:      encoded,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (e *JobEvent) Decode() (map[string]any, error) {
	var data map[string]any
	if err := msgpack.Unmarshal(e.Data, &data); err != nil {
		return nil, err
	}
	return data, nil
}
