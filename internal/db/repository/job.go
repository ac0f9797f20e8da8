package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/uptrace/bun"
)

const (
	StaleProcessingMessage     = "Job timed out (stale)"
	StaleNeverSubmittedMessage = "Job timed out (never submitted)"
)

// StatusUpdate carries the fields written together with a status change.
// Empty fields are left untouched.
type StatusUpdate struct {
	Status        models.JobStatus
	CorrelationID string
	Result        map[string]any
	ErrorMessage  string
}

type SweepResult struct {
	Stale          int
	NeverSubmitted int
}

func (r SweepResult) Total() int {
	return r.Stale + r.NeverSubmitted
}

type IJobRepository interface {
	Repository[models.Job]
	WithTx(tx *bun.Tx) IJobRepository
	WithDB(db *bun.DB) IJobRepository
	Find(ctx context.Context, id string) (*models.Job, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*models.Job, error)
	ListActive(ctx context.Context, ownerID string) ([]models.Job, error)
	Transition(ctx context.Context, id, ownerID string, from []models.JobStatus, update StatusUpdate) (bool, error)
	SweepStale(ctx context.Context, ownerID string, olderThan time.Time) (SweepResult, error)
	DeleteBySubject(ctx context.Context, subjectID, ownerID string) error
}

type JobRepository struct {
	db bun.IDB
}

func NewJobRepository(db *bun.DB) IJobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	if job == nil {
		return nil, fmt.Errorf("job model is nil")
	}

	if _, err := r.db.NewInsert().Model(job).Exec(ctx); err != nil {
		return nil, err
	}

	return job, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Job, error) {
	var job models.Job
	err := r.db.NewSelect().
		Model(&job).
		Where("j.id = ?", id).
		Where("j.owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "job")
	}

	return &job, nil
}

// Find loads a job without owner scoping. Only the webhook path, which has
// no end-user identity, uses it.
func (r *JobRepository) Find(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := r.db.NewSelect().
		Model(&job).
		Where("j.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "job")
	}

	return &job, nil
}

func (r *JobRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*models.Job, error) {
	if correlationID == "" {
		return nil, types.NotFound("job")
	}

	var job models.Job
	err := r.db.NewSelect().
		Model(&job).
		Where("j.provider_correlation_id = ?", correlationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "job")
	}

	return &job, nil
}

func (r *JobRepository) ListActive(ctx context.Context, ownerID string) ([]models.Job, error) {
	jobs := make([]models.Job, 0)
	err := r.db.NewSelect().
		Model(&jobs).
		Relation("Subject").
		Where("j.owner_id = ?", ownerID).
		Where("j.status IN (?)", bun.In(models.ActiveStatuses)).
		Order("j.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

// Transition is the compare-and-swap on job status. The update applies only
// while the row is owned by ownerID and its status is one of from; the
// returned bool reports whether this caller won.
func (r *JobRepository) Transition(ctx context.Context, id, ownerID string, from []models.JobStatus, update StatusUpdate) (bool, error) {
	q := r.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", update.Status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID)

	if update.CorrelationID != "" {
		q = q.Set("provider_correlation_id = ?", update.CorrelationID)
	}
	if update.Result != nil {
		q = q.Set("result = ?", update.Result)
	}
	if update.ErrorMessage != "" {
		q = q.Set("error_message = ?", update.ErrorMessage)
	}
	if len(from) > 0 {
		q = q.Where("status IN (?)", bun.In(from))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := affected(res)
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// SweepStale fails in-flight jobs whose updated_at is before olderThan. An
// empty ownerID sweeps every owner.
func (r *JobRepository) SweepStale(ctx context.Context, ownerID string, olderThan time.Time) (SweepResult, error) {
	var result SweepResult
	now := time.Now().UTC()
	cutoff := olderThan.UTC()

	stale := r.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusFailed).
		Set("error_message = ?", StaleProcessingMessage).
		Set("updated_at = ?", now).
		Where("status = ?", models.JobStatusProcessing).
		Where("updated_at < ?", cutoff)
	if ownerID != "" {
		stale = stale.Where("owner_id = ?", ownerID)
	}

	res, err := stale.Exec(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to sweep stale jobs: %w", err)
	}
	if result.Stale, err = affected(res); err != nil {
		return result, err
	}

	unsent := r.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusFailed).
		Set("error_message = ?", StaleNeverSubmittedMessage).
		Set("updated_at = ?", now).
		Where("status = ?", models.JobStatusPending).
		Where("provider_correlation_id IS NULL").
		Where("updated_at < ?", cutoff)
	if ownerID != "" {
		unsent = unsent.Where("owner_id = ?", ownerID)
	}

	res, err = unsent.Exec(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to sweep unsubmitted jobs: %w", err)
	}
	if result.NeverSubmitted, err = affected(res); err != nil {
		return result, err
	}

	return result, nil
}

func (r *JobRepository) DeleteByID(ctx context.Context, id, ownerID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Job)(nil)).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	return err
}

func (r *JobRepository) DeleteBySubject(ctx context.Context, subjectID, ownerID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Job)(nil)).
		Where("subject_id = ?", subjectID).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	return err
}

func (r *JobRepository) WithTx(tx *bun.Tx) IJobRepository {
	return &JobRepository{db: tx}
}

func (r *JobRepository) WithDB(db *bun.DB) IJobRepository {
	return &JobRepository{db: db}
}
