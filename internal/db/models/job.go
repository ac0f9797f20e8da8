package models

import (
	"time"

	"github.com/uptrace/bun"
)

type JobKind string

const (
	JobKindImage       JobKind = "image"
	JobKindVideoFinal  JobKind = "video_final"
	JobKindVideoMotion JobKind = "video_motion"
	JobKindShots       JobKind = "shots"
)

func (k JobKind) Valid() bool {
	switch k {
	case JobKindImage, JobKindVideoFinal, JobKindVideoMotion, JobKindShots:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ActiveStatuses are the states a job may still leave.
var ActiveStatuses = []JobStatus{JobStatusPending, JobStatusProcessing}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID                    string         `bun:",pk"`
	OwnerID               string         `bun:",notnull"`
	SubjectID             string         `bun:",notnull"`
	Subject               *Character     `bun:"rel:belongs-to,join:subject_id=id"`
	Kind                  JobKind        `bun:",notnull"`
	Status                JobStatus      `bun:",notnull"`
	ProviderCorrelationID string         `bun:",nullzero"`
	Input                 map[string]any `bun:",type:jsonb,notnull"`
	Result                map[string]any `bun:",type:jsonb,nullzero"`
	ErrorMessage          string         `bun:",nullzero"`
	CreatedAt             time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt             time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
}

func NewJob(id, ownerID, subjectID string, kind JobKind, input map[string]any) *Job {
	now := time.Now().UTC()
	if input == nil {
		input = map[string]any{}
	}

	return &Job{
		ID:        id,
		OwnerID:   ownerID,
		SubjectID: subjectID,
		Kind:      kind,
		Status:    JobStatusPending,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InputString reads a string field back out of the input snapshot.
func (j *Job) InputString(key string) string {
	if j.Input == nil {
		return ""
	}
	v, _ := j.Input[key].(string)
	return v
}

func (j *Job) InputBool(key string) bool {
	if j.Input == nil {
		return false
	}
	v, _ := j.Input[key].(bool)
	return v
}
