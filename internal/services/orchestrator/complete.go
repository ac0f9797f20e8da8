package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
)

const (
	PathPoll    = "poll"
	PathWebhook = "webhook"
	PathShots   = "shots"
)

const MissingArtifactMessage = "No video URL in provider response"

var errRaceLost = errors.New("job already terminal")

// Get returns the job, polling its provider once when it is still
// processing. Poll trouble is logged and the stored state returned.
func (o *Orchestrator) Get(ctx context.Context, ownerID, id string) (*models.Job, error) {
	job, err := o.store.Jobs.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if job.Status != models.JobStatusProcessing || job.ProviderCorrelationID == "" || job.Kind == models.JobKindShots {
		return job, nil
	}

	submitter, err := o.providers.For(job.Kind)
	if err != nil {
		o.jobLogger(job).Warn("no provider to poll", zap.Error(err))
		return job, nil
	}

	pollCtx, cancel := withTimeout(ctx, o.jobs.PollTimeout)
	defer cancel()

	result, err := submitter.Poll(pollCtx, job.ProviderCorrelationID)
	if err != nil {
		o.jobLogger(job).Warn("provider poll failed", zap.String("correlation_id", job.ProviderCorrelationID), zap.Error(err))
		return job, nil
	}

	updated, err := o.apply(ctx, job, result, PathPoll)
	if err != nil {
		o.jobLogger(job).Warn("failed to apply poll result", zap.Error(err))
		return job, nil
	}
	return updated, nil
}

func (o *Orchestrator) apply(ctx context.Context, job *models.Job, result *providers.PollResult, path string) (*models.Job, error) {
	// Materialization outlives the request that observed the result.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.jobs.GenerationTimeout)
	defer cancel()

	switch result.State {
	case providers.PollDone:
		if result.ArtifactURL == "" {
			return o.fail(ctx, job, MissingArtifactMessage, path)
		}
		return o.complete(ctx, job, result.ArtifactURL, path)
	case providers.PollFailed:
		return o.fail(ctx, job, failureReason(result.Reason), path)
	default:
		return job, nil
	}
}

func failureReason(reason string) string {
	reason = strings.TrimSpace(reason)
	switch {
	case providers.IsModerationText(reason):
		return (&providers.Error{Moderation: true}).Error()
	case reason == "":
		return "Generation failed at provider"
	default:
		return reason
	}
}

// complete materializes artifactURL into a Media row and marks the job
// completed. The media insert and the guarded status write share one
// transaction: a caller that loses the guard rolls its media row back.
func (o *Orchestrator) complete(ctx context.Context, job *models.Job, artifactURL, path string) (*models.Job, error) {
	log := o.jobLogger(job).With(zap.String("path", path))

	current, err := o.store.Jobs.GetByID(ctx, job.ID, job.OwnerID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		o.raceLost(ctx, current, path)
		return current, nil
	}

	spec, err := specFor(current.Kind)
	if err != nil {
		return nil, err
	}

	ext := fileuploader.ExtensionFromURL(artifactURL)
	if ext == "" {
		ext = spec.ext
	}

	filePath, err := o.rehoster.UploadFromURL(ctx, artifactURL, spec.category, ext)
	if err != nil {
		log.Warn("failed to re-host artifact", zap.String("artifact_url", artifactURL), zap.Error(err))
		return o.fail(ctx, current, "Failed to store generated media: "+err.Error(), "rehost")
	}

	media := &models.Media{
		ID:             uuid.NewString(),
		OwnerID:        current.OwnerID,
		CharacterID:    current.SubjectID,
		JobID:          current.ID,
		MediaType:      spec.mediaType,
		FilePath:       filePath,
		GenerationMode: spec.mode,
		CreatedAt:      o.now().UTC(),
	}
	spec.mediaFrom(current, media)

	result := map[string]any{
		"media_id":     media.ID,
		spec.resultKey: filePath,
	}

	err = o.store.RunInTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if _, err := tx.Media.Create(ctx, media); err != nil {
			return err
		}

		applied, err := tx.Jobs.Transition(ctx, current.ID, current.OwnerID, models.ActiveStatuses, repository.StatusUpdate{
			Status: models.JobStatusCompleted,
			Result: result,
		})
		if err != nil {
			return err
		}
		if !applied {
			return errRaceLost
		}
		return nil
	})

	if err != nil {
		latest, gerr := o.store.Jobs.GetByID(ctx, current.ID, current.OwnerID)
		if gerr != nil {
			return nil, gerr
		}
		// Also covers the unique job_id index rejecting a second media row.
		if latest.Status.IsTerminal() {
			o.raceLost(ctx, latest, path)
			return latest, nil
		}
		log.Error("failed to record completion", zap.Error(err))
		return o.fail(ctx, latest, "Failed to record generated media", "materialize")
	}

	o.metrics.JobsCompleted.WithLabelValues(string(current.Kind), path).Inc()
	o.recordEvent(ctx, o.store.Events, current, models.JobEventCompleted, map[string]any{"path": path, "media_id": media.ID})
	log.Info("job completed", zap.String("media_id", media.ID))

	return o.store.Jobs.GetByID(ctx, current.ID, current.OwnerID)
}

// fail moves an active job to failed. A job that is already terminal is
// returned unchanged.
func (o *Orchestrator) fail(ctx context.Context, job *models.Job, reason, stage string) (*models.Job, error) {
	applied, err := o.store.Jobs.Transition(ctx, job.ID, job.OwnerID, models.ActiveStatuses, repository.StatusUpdate{
		Status:       models.JobStatusFailed,
		ErrorMessage: reason,
	})
	if err != nil {
		return nil, wrapStore(err, "fail job")
	}

	if applied {
		o.metrics.JobsFailed.WithLabelValues(string(job.Kind), stage).Inc()
		o.jobLogger(job).Info("job failed", zap.String("stage", stage), zap.String("reason", reason))
		o.recordEvent(ctx, o.store.Events, job, models.JobEventFailed, map[string]any{"stage": stage, "reason": reason})
	}

	return o.store.Jobs.GetByID(ctx, job.ID, job.OwnerID)
}

func (o *Orchestrator) raceLost(ctx context.Context, job *models.Job, path string) {
	o.metrics.RaceLost.WithLabelValues(string(job.Kind), path).Inc()
	o.jobLogger(job).Debug("completion skipped, job already terminal", zap.String("path", path), zap.String("status", string(job.Status)))
	o.recordEvent(ctx, o.store.Events, job, models.JobEventRaceLost, map[string]any{"path": path})
}
