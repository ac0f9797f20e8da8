package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/cozy-creator/influencer-studio/internal/utils/webhookutil"
)

// WebhookEvent is a provider completion callback. JobID and Token come from
// the callback URL we handed the provider; CorrelationID from the body.
type WebhookEvent struct {
	JobID         string
	Token         string
	CorrelationID string
	Status        string
	Payload       map[string]any
	Error         string
}

func (e WebhookEvent) succeeded() bool {
	switch strings.ToUpper(strings.TrimSpace(e.Status)) {
	case "OK", "COMPLETED", "SUCCESS", "SUCCEEDED", "DONE":
		return true
	}
	return false
}

// HandleWebhook applies a provider callback. Unknown jobs are NotFound;
// callbacks for a job that is already terminal are a no-op.
func (o *Orchestrator) HandleWebhook(ctx context.Context, event WebhookEvent) (*models.Job, error) {
	job, err := o.webhookJob(ctx, event)
	if err != nil {
		outcome := "unknown"
		if !errors.Is(err, types.ErrNotFound) {
			outcome = "rejected"
		}
		o.metrics.WebhooksTotal.WithLabelValues(outcome).Inc()
		o.logger.Warn("webhook for unresolvable job",
			zap.String("job_id", event.JobID),
			zap.String("correlation_id", event.CorrelationID),
			zap.Error(err))
		return nil, err
	}

	if job.Status.IsTerminal() {
		o.metrics.WebhooksTotal.WithLabelValues("noop").Inc()
		return job, nil
	}
	o.metrics.WebhooksTotal.WithLabelValues("applied").Inc()

	result := &providers.PollResult{State: providers.PollFailed, Reason: event.Error}
	if event.succeeded() {
		result = &providers.PollResult{State: providers.PollDone, ArtifactURL: providers.ExtractArtifactURL(event.Payload)}
	} else if result.Reason == "" {
		result.Reason = fmt.Sprintf("Provider reported status %s", event.Status)
	}

	return o.apply(ctx, job, result, PathWebhook)
}

func (o *Orchestrator) webhookJob(ctx context.Context, event WebhookEvent) (*models.Job, error) {
	if event.JobID != "" {
		if !webhookutil.VerifyCallback(o.webhookKey, event.JobID, event.Token) {
			return nil, fmt.Errorf("%w: invalid webhook token", types.ErrUnauthorized)
		}
		job, err := o.store.Jobs.Find(ctx, event.JobID)
		if err != nil {
			return nil, err
		}
		if event.CorrelationID != "" && job.ProviderCorrelationID != "" && job.ProviderCorrelationID != event.CorrelationID {
			return nil, types.NotFound("job for correlation id")
		}
		return job, nil
	}

	if o.webhookKey != "" {
		return nil, fmt.Errorf("%w: webhook is missing job id and token", types.ErrUnauthorized)
	}
	return o.store.Jobs.GetByCorrelationID(ctx, event.CorrelationID)
}
