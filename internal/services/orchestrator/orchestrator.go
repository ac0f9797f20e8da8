// Package orchestrator drives generation jobs through submit, poll, webhook
// and sweep. Every decision is re-derived from the job store, so any number
// of server instances can serve the same jobs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/metrics"
	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/pkg/logger"
)

// Rehoster copies provider artifacts into storage we control.
type Rehoster interface {
	UploadFromURL(ctx context.Context, sourceURL string, category fileuploader.Category, ext string) (string, error)
	Bridge(ctx context.Context, target fileuploader.BridgeTarget, urls ...string) ([]string, error)
}

// PromptWriter is the LLM surface job submission needs.
type PromptWriter interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
	GenerateShotPrompts(ctx context.Context, description string, n int) ([]string, error)
	DetermineVideoDuration(ctx context.Context, videoPrompt string, maxSeconds int) (int, error)
}

type SubmitterRegistry interface {
	For(kind models.JobKind) (providers.Submitter, error)
}

type Options struct {
	Store      *repository.Store
	Providers  SubmitterRegistry
	Images     providers.ImageGenerators
	Rehoster   Rehoster
	BridgeTo   fileuploader.BridgeTarget
	Prompts    PromptWriter
	Dispatcher Dispatcher
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Jobs       config.JobsConfig
	WebhookURL string
	WebhookKey string
	Now        func() time.Time
}

type Orchestrator struct {
	store      *repository.Store
	providers  SubmitterRegistry
	images     providers.ImageGenerators
	rehoster   Rehoster
	bridgeTo   fileuploader.BridgeTarget
	prompts    PromptWriter
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	jobs       config.JobsConfig
	webhookURL string
	webhookKey string
	now        func() time.Time
}

func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("orchestrator: store is required")
	case opts.Providers == nil:
		return nil, errors.New("orchestrator: provider registry is required")
	case opts.Rehoster == nil:
		return nil, errors.New("orchestrator: rehoster is required")
	}

	o := &Orchestrator{
		store:      opts.Store,
		providers:  opts.Providers,
		images:     opts.Images,
		rehoster:   opts.Rehoster,
		bridgeTo:   opts.BridgeTo,
		prompts:    opts.Prompts,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		jobs:       opts.Jobs,
		webhookURL: opts.WebhookURL,
		webhookKey: opts.WebhookKey,
		now:        opts.Now,
	}

	if o.metrics == nil {
		o.metrics = metrics.New()
	}
	if o.logger == nil {
		o.logger = logger.GetLogger().Named("orchestrator")
	}
	if o.now == nil {
		o.now = time.Now
	}

	defaults := config.Default().Jobs
	if o.jobs.StaleTimeout <= 0 {
		o.jobs.StaleTimeout = defaults.StaleTimeout
	}
	if o.jobs.PollTimeout <= 0 {
		o.jobs.PollTimeout = defaults.PollTimeout
	}
	if o.jobs.GenerationTimeout <= 0 {
		o.jobs.GenerationTimeout = defaults.GenerationTimeout
	}
	if o.jobs.PromptTimeout <= 0 {
		o.jobs.PromptTimeout = defaults.PromptTimeout
	}
	if o.jobs.ShotsCount <= 0 {
		o.jobs.ShotsCount = defaults.ShotsCount
	}
	if o.jobs.DefaultVideoDuration <= 0 {
		o.jobs.DefaultVideoDuration = defaults.DefaultVideoDuration
	}
	if o.jobs.MaxVideoDuration <= 0 {
		o.jobs.MaxVideoDuration = defaults.MaxVideoDuration
	}

	return o, nil
}

// SetDispatcher replaces the shots dispatcher. The app wires the queue
// backed dispatcher after both sides exist.
func (o *Orchestrator) SetDispatcher(d Dispatcher) {
	o.dispatcher = d
}

func newJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (o *Orchestrator) jobLogger(job *models.Job) *zap.Logger {
	return o.logger.With(
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("owner_id", job.OwnerID),
	)
}

// recordEvent appends to the job's audit trail. Failures are logged and
// never fail the caller.
func (o *Orchestrator) recordEvent(ctx context.Context, events repository.IJobEventRepository, job *models.Job, eventType models.JobEventType, data map[string]any) {
	event, err := models.NewJobEvent(job.ID, eventType, data)
	if err == nil {
		_, err = events.Create(ctx, event)
	}
	if err != nil {
		o.jobLogger(job).Warn("failed to record job event", zap.String("event", string(eventType)), zap.Error(err))
	}
}

// errorMessage is the human readable reason stored on a failed job.
func errorMessage(err error) string {
	var perr *providers.Error
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return err.Error()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func wrapStore(err error, action string) error {
	return fmt.Errorf("failed to %s: %w", action, err)
}
