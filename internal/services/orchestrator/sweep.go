package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
)

// SweepStale fails the owner's in-flight jobs untouched for longer than the
// stale timeout. An empty ownerID sweeps every owner.
func (o *Orchestrator) SweepStale(ctx context.Context, ownerID string) (repository.SweepResult, error) {
	return o.SweepOlderThan(ctx, ownerID, o.jobs.StaleTimeout)
}

func (o *Orchestrator) SweepOlderThan(ctx context.Context, ownerID string, age time.Duration) (repository.SweepResult, error) {
	result, err := o.store.Jobs.SweepStale(ctx, ownerID, o.now().Add(-age))
	if err != nil {
		return result, err
	}

	o.metrics.JobsSwept.WithLabelValues("stale").Add(float64(result.Stale))
	o.metrics.JobsSwept.WithLabelValues("never_submitted").Add(float64(result.NeverSubmitted))

	if result.Total() > 0 {
		o.logger.Info("swept stale jobs",
			zap.String("owner_id", ownerID),
			zap.Int("stale", result.Stale),
			zap.Int("never_submitted", result.NeverSubmitted))
	}

	return result, nil
}

// List sweeps the owner's stale jobs, then returns what is still in flight.
func (o *Orchestrator) List(ctx context.Context, ownerID string) ([]models.Job, error) {
	if _, err := o.SweepStale(ctx, ownerID); err != nil {
		return nil, err
	}

	return o.store.Jobs.ListActive(ctx, ownerID)
}

// Events returns the audit trail of a job the owner can see.
func (o *Orchestrator) Events(ctx context.Context, ownerID, id string) ([]models.JobEvent, error) {
	if _, err := o.store.Jobs.GetByID(ctx, id, ownerID); err != nil {
		return nil, err
	}

	return o.store.Events.ListByJob(ctx, id)
}
