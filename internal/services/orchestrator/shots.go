package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gammazero/workerpool"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/mq"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

type ShotsRequest struct {
	CharacterID     string `json:"character_id"`
	SourceImagePath string `json:"source_image_path"`
	Spicy           bool   `json:"spicy"`
}

type ShotsResult struct {
	JobIDs  []string
	Prompts []string
}

// ShotTask asks a processor to run one pending shots job.
type ShotTask struct {
	OwnerID string `msgpack:"owner_id"`
	JobID   string `msgpack:"job_id"`
}

// Dispatcher fires a shot run without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, task ShotTask) error
}

type DispatcherFunc func(ctx context.Context, task ShotTask) error

func (f DispatcherFunc) Dispatch(ctx context.Context, task ShotTask) error {
	return f(ctx, task)
}

// SubmitShots describes the source image, asks for prompt variations and
// creates one pending job per variation. Each job is dispatched on its own;
// a variation that fails leaves the others alone.
func (o *Orchestrator) SubmitShots(ctx context.Context, ownerID string, req ShotsRequest) (*ShotsResult, error) {
	if req.CharacterID == "" || req.SourceImagePath == "" {
		return nil, types.InvalidInput("character_id and source_image_path are required")
	}
	if o.prompts == nil {
		return nil, fmt.Errorf("%w: no prompt writer configured", types.ErrProvider)
	}

	character, err := o.store.Characters.GetByID(ctx, req.CharacterID, ownerID)
	if err != nil {
		return nil, err
	}

	promptCtx, cancel := withTimeout(ctx, o.jobs.PromptTimeout)
	defer cancel()

	description, err := o.prompts.DescribeImage(promptCtx, req.SourceImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to describe source image: %w", err)
	}

	prompts, err := o.prompts.GenerateShotPrompts(promptCtx, description, o.jobs.ShotsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate shot prompts: %w", err)
	}

	jobs := make([]*models.Job, 0, len(prompts))
	for _, prompt := range prompts {
		job, err := o.store.Jobs.Create(ctx, models.NewJob(newJobID(), ownerID, character.ID, models.JobKindShots, map[string]any{
			"prompt":            prompt,
			"source_image_path": req.SourceImagePath,
			"spicy":             req.Spicy,
		}))
		if err != nil {
			return nil, wrapStore(err, "create shots job")
		}
		o.recordEvent(ctx, o.store.Events, job, models.JobEventCreated, nil)
		jobs = append(jobs, job)
	}

	result := &ShotsResult{Prompts: prompts, JobIDs: make([]string, 0, len(jobs))}
	for _, job := range jobs {
		result.JobIDs = append(result.JobIDs, job.ID)

		if o.dispatcher == nil {
			continue
		}
		if err := o.dispatcher.Dispatch(ctx, ShotTask{OwnerID: ownerID, JobID: job.ID}); err != nil {
			o.jobLogger(job).Warn("failed to dispatch shot", zap.Error(err))
			if _, ferr := o.fail(ctx, job, "Failed to dispatch shot: "+err.Error(), "dispatch"); ferr != nil {
				return nil, ferr
			}
		}
	}

	o.metrics.JobsSubmitted.WithLabelValues(string(models.JobKindShots)).Add(float64(len(jobs)))
	return result, nil
}

// RunShot claims a pending shots job, generates its image and materializes
// it. A job that is no longer pending is returned untouched, so repeated
// deliveries are harmless.
func (o *Orchestrator) RunShot(ctx context.Context, ownerID, jobID string) (*models.Job, error) {
	job, err := o.store.Jobs.GetByID(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Kind != models.JobKindShots {
		return nil, types.InvalidInput("job %s is not a shots job", jobID)
	}

	claimed, err := o.store.Jobs.Transition(ctx, job.ID, ownerID, []models.JobStatus{models.JobStatusPending}, repository.StatusUpdate{
		Status: models.JobStatusProcessing,
	})
	if err != nil {
		return nil, wrapStore(err, "claim shots job")
	}
	if !claimed {
		return o.store.Jobs.GetByID(ctx, job.ID, ownerID)
	}
	o.recordEvent(ctx, o.store.Events, job, models.JobEventSubmitted, nil)

	generator, err := o.images.For(job.InputBool("spicy"))
	if err != nil {
		return o.fail(ctx, job, errorMessage(err), "generate")
	}

	genCtx, cancel := withTimeout(ctx, o.jobs.GenerationTimeout)
	defer cancel()

	artifactURL, err := generator.GenerateImage(genCtx, providers.ImageRequest{
		Prompt:      job.InputString("prompt"),
		ImageURLs:   []string{job.InputString("source_image_path")},
		AspectRatio: "9:16",
	})
	if err != nil {
		o.jobLogger(job).Warn("shot generation failed", zap.Error(err))
		return o.fail(ctx, job, errorMessage(err), "generate")
	}

	return o.complete(ctx, job, artifactURL, PathShots)
}

// MQDispatcher publishes shot tasks to a queue topic consumed by
// RunShotProcessor.
type MQDispatcher struct {
	queue mq.MQ
	topic string
}

func NewMQDispatcher(queue mq.MQ, topic string) *MQDispatcher {
	return &MQDispatcher{queue: queue, topic: topic}
}

func (d *MQDispatcher) Dispatch(ctx context.Context, task ShotTask) error {
	payload, err := msgpack.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode shot task: %w", err)
	}
	return d.queue.Publish(ctx, d.topic, payload)
}

// newReceiveBackOff paces retries after Receive errors. It never gives up.
func newReceiveBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// RunShotProcessor consumes shot tasks until ctx is done or the queue
// closes, running up to workers shots at once.
func (o *Orchestrator) RunShotProcessor(ctx context.Context, queue mq.MQ, topic string, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	wp := workerpool.New(workers)
	defer wp.StopWait()

	log := o.logger.With(zap.String("topic", topic))
	log.Info("shots processor started", zap.Int("workers", workers))

	retry := newReceiveBackOff()
	for {
		msg, err := queue.Receive(ctx, topic)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mq.ErrQueueClosed) || errors.Is(err, mq.ErrTopicClosed) {
				log.Info("shots processor stopped")
				return nil
			}
			wait := retry.NextBackOff()
			log.Warn("failed to receive shot task", zap.Duration("retry_in", wait), zap.Error(err))
			select {
			case <-ctx.Done():
				log.Info("shots processor stopped")
				return nil
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		var task ShotTask
		if err := msgpack.Unmarshal(msg.Payload, &task); err != nil {
			log.Warn("dropping undecodable shot task", zap.Error(err))
			_ = queue.Ack(msg)
			continue
		}

		wp.Submit(func() {
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.jobs.GenerationTimeout+o.jobs.PollTimeout)
			defer cancel()

			if _, err := o.RunShot(runCtx, task.OwnerID, task.JobID); err != nil {
				log.Warn("shot run failed", zap.String("job_id", task.JobID), zap.Error(err))
			}
			if err := queue.Ack(msg); err != nil {
				log.Warn("failed to ack shot task", zap.String("job_id", task.JobID), zap.Error(err))
			}
		})
	}
}
