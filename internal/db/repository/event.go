package repository

import (
	"context"
	"fmt"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/uptrace/bun"
)

type IJobEventRepository interface {
	WithTx(tx *bun.Tx) IJobEventRepository
	WithDB(db *bun.DB) IJobEventRepository
	Create(ctx context.Context, event *models.JobEvent) (*models.JobEvent, error)
	ListByJob(ctx context.Context, jobID string) ([]models.JobEvent, error)
	DeleteBySubject(ctx context.Context, subjectID, ownerID string) error
}

type JobEventRepository struct {
	db bun.IDB
}

func NewJobEventRepository(db *bun.DB) IJobEventRepository {
	return &JobEventRepository{db: db}
}

func (r *JobEventRepository) Create(ctx context.Context, event *models.JobEvent) (*models.JobEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("event model is nil")
	}

	if _, err := r.db.NewInsert().Model(event).Exec(ctx); err != nil {
		return nil, err
	}

	return event, nil
}

func (r *JobEventRepository) ListByJob(ctx context.Context, jobID string) ([]models.JobEvent, error) {
	events := make([]models.JobEvent, 0)
	err := r.db.NewSelect().
		Model(&events).
		Where("e.job_id = ?", jobID).
		Order("e.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *JobEventRepository) DeleteBySubject(ctx context.Context, subjectID, ownerID string) error {
	subq := r.db.NewSelect().
		Model((*models.Job)(nil)).
		Column("id").
		Where("subject_id = ?", subjectID).
		Where("owner_id = ?", ownerID)

	_, err := r.db.NewDelete().
		Model((*models.JobEvent)(nil)).
		Where("job_id IN (?)", subq).
		Exec(ctx)
	return err
}

func (r *JobEventRepository) WithTx(tx *bun.Tx) IJobEventRepository {
	return &JobEventRepository{db: tx}
}

func (r *JobEventRepository) WithDB(db *bun.DB) IJobEventRepository {
	return &JobEventRepository{db: db}
}
