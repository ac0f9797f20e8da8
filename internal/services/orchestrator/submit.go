package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/cozy-creator/influencer-studio/internal/utils/webhookutil"
)

type SubmitResult struct {
	JobID        string
	Status       models.JobStatus
	ErrorMessage string
}

// Submit records a job and hands it to the kind's provider. Once the row
// exists the result is returned with a nil error even when the provider
// refused the work; the refusal is carried on the job as failed.
func (o *Orchestrator) Submit(ctx context.Context, ownerID string, req SubmitRequest) (*SubmitResult, error) {
	if req.Kind == models.JobKindShots {
		return nil, types.InvalidInput("shots jobs are created through the shots route")
	}

	spec, err := specFor(req.Kind)
	if err != nil {
		return nil, err
	}
	if req.characterID() == "" {
		return nil, types.InvalidInput("character_id is required")
	}
	if err := spec.validate(&req); err != nil {
		return nil, err
	}

	character, err := o.store.Characters.GetByID(ctx, req.characterID(), ownerID)
	if err != nil {
		return nil, err
	}

	input, err := o.inputSnapshot(ctx, character, &req)
	if err != nil {
		return nil, err
	}

	job, err := o.store.Jobs.Create(ctx, models.NewJob(newJobID(), ownerID, character.ID, req.Kind, input))
	if err != nil {
		return nil, wrapStore(err, "create job")
	}
	o.recordEvent(ctx, o.store.Events, job, models.JobEventCreated, nil)

	log := o.jobLogger(job)

	// Once the provider has been called its answer must be recorded even if
	// the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)

	submitCtx, cancel := withTimeout(ctx, o.jobs.GenerationTimeout)
	defer cancel()

	correlationID, err := o.submitToProvider(submitCtx, job)
	if err != nil {
		log.Warn("provider submission failed", zap.Error(err))
		failed, ferr := o.fail(persistCtx, job, errorMessage(err), "submit")
		if ferr != nil {
			return nil, ferr
		}
		return &SubmitResult{JobID: job.ID, Status: failed.Status, ErrorMessage: failed.ErrorMessage}, nil
	}

	applied, err := o.store.Jobs.Transition(persistCtx, job.ID, ownerID, []models.JobStatus{models.JobStatusPending}, repository.StatusUpdate{
		Status:        models.JobStatusProcessing,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, wrapStore(err, "record provider submission")
	}

	o.metrics.JobsSubmitted.WithLabelValues(string(job.Kind)).Inc()
	log.Info("job submitted", zap.String("correlation_id", correlationID), zap.Bool("applied", applied))

	if !applied {
		// A webhook keyed by job id can finish the job before this write lands.
		current, err := o.store.Jobs.GetByID(persistCtx, job.ID, ownerID)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{JobID: current.ID, Status: current.Status, ErrorMessage: current.ErrorMessage}, nil
	}

	o.recordEvent(persistCtx, o.store.Events, job, models.JobEventSubmitted, map[string]any{"correlation_id": correlationID})
	return &SubmitResult{JobID: job.ID, Status: models.JobStatusProcessing}, nil
}

// inputSnapshot is the immutable record of what was asked for. Completion
// reads it back to build the media row.
func (o *Orchestrator) inputSnapshot(ctx context.Context, character *models.Character, req *SubmitRequest) (map[string]any, error) {
	switch req.Kind {
	case models.JobKindVideoFinal:
		return map[string]any{
			"first_frame_path": req.FirstFramePath,
			"video_prompt":     req.VideoPrompt,
			"concept":          req.Concept,
			"duration":         o.videoDuration(ctx, req),
		}, nil

	case models.JobKindVideoMotion:
		imagePath := req.ImagePath
		if imagePath == "" {
			imagePath = character.ImagePath
		}
		if imagePath == "" {
			return nil, types.InvalidInput("character has no reference image")
		}
		return map[string]any{
			"prompt":            req.Prompt,
			"driving_video_url": req.DrivingVideoURL,
			"image_path":        imagePath,
			"spicy":             req.Spicy,
		}, nil

	case models.JobKindImage:
		input := map[string]any{
			"prompt": req.Prompt,
			"spicy":  req.Spicy,
		}
		if character.ImagePath != "" {
			input["character_image_path"] = character.ImagePath
		}
		if req.ReferenceImagePath != "" {
			input["reference_image_path"] = req.ReferenceImagePath
		}
		return input, nil
	}

	return nil, types.InvalidInput("unsupported job kind %q", req.Kind)
}

// videoDuration honours an explicit duration, otherwise asks the LLM. LLM
// trouble falls back to the configured default.
func (o *Orchestrator) videoDuration(ctx context.Context, req *SubmitRequest) int {
	if req.Duration > 0 {
		return min(req.Duration, o.jobs.MaxVideoDuration)
	}
	if o.prompts == nil {
		return o.jobs.DefaultVideoDuration
	}

	promptCtx, cancel := withTimeout(ctx, o.jobs.PromptTimeout)
	defer cancel()

	duration, err := o.prompts.DetermineVideoDuration(promptCtx, req.VideoPrompt, o.jobs.MaxVideoDuration)
	if err != nil {
		o.logger.Warn("falling back to default video duration", zap.Error(err))
		return o.jobs.DefaultVideoDuration
	}
	return min(duration, o.jobs.MaxVideoDuration)
}

func (o *Orchestrator) submitToProvider(ctx context.Context, job *models.Job) (string, error) {
	submitter, err := o.providers.For(job.Kind)
	if err != nil {
		return "", err
	}

	params, err := o.providerInput(ctx, job)
	if err != nil {
		return "", err
	}

	callbackURL := ""
	if o.webhookURL != "" {
		if callbackURL, err = webhookutil.SignedCallbackURL(o.webhookURL, o.webhookKey, job.ID); err != nil {
			return "", err
		}
	}

	return submitter.Submit(ctx, params, callbackURL)
}

// providerInput resolves the snapshot into the provider's payload. Motion
// jobs bridge their media first because the provider cannot read our URLs.
func (o *Orchestrator) providerInput(ctx context.Context, job *models.Job) (map[string]any, error) {
	switch job.Kind {
	case models.JobKindVideoFinal:
		params := map[string]any{
			"prompt":       job.InputString("video_prompt"),
			"duration":     min(inputInt(job, "duration", o.jobs.DefaultVideoDuration), o.jobs.MaxVideoDuration),
			"aspect_ratio": "9:16",
			"resolution":   "720p",
		}
		if frame := job.InputString("first_frame_path"); frame != "" {
			params["image"] = map[string]any{"url": frame}
		}
		return params, nil

	case models.JobKindVideoMotion:
		urls := []string{job.InputString("image_path"), job.InputString("driving_video_url")}
		if o.bridgeTo != nil {
			bridged, err := o.rehoster.Bridge(ctx, o.bridgeTo, urls...)
			if err != nil {
				return nil, err
			}
			urls = bridged
		}
		return map[string]any{
			"image_url":             urls[0],
			"video_url":             urls[1],
			"prompt":                job.InputString("prompt"),
			"character_orientation": "video",
		}, nil

	case models.JobKindImage:
		imageURLs := make([]string, 0, 2)
		for _, key := range []string{"character_image_path", "reference_image_path"} {
			if v := job.InputString(key); v != "" {
				imageURLs = append(imageURLs, v)
			}
		}
		return map[string]any{
			"prompt":       job.InputString("prompt"),
			"image_urls":   imageURLs,
			"aspect_ratio": "9:16",
			"resolution":   "2K",
			"num_images":   1,
		}, nil
	}

	return nil, types.InvalidInput("unsupported job kind %q", job.Kind)
}

// inputInt reads a number from the snapshot. JSON round trips turn ints into float64.
func inputInt(job *models.Job, key string, fallback int) int {
	switch v := job.Input[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
