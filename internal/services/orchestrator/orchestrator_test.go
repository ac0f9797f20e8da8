package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

func motionRequest() SubmitRequest {
	return SubmitRequest{
		Kind:            models.JobKindVideoMotion,
		CharacterID:     "char-alice",
		Prompt:          "dance like nobody is watching",
		DrivingVideoURL: "https://cdn.test/drive.mp4",
	}
}

func TestSubmitMotionThenPollCompletes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, res.Status)
	assert.True(t, strings.HasPrefix(res.JobID, "job_"))
	assert.Len(t, res.JobID, len("job_")+16)

	job, err := h.store.Jobs.GetByID(ctx, res.JobID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "req-1", job.ProviderCorrelationID)

	require.Len(t, h.motion.inputs, 1)
	assert.Equal(t, "https://bridge.test/https://storage.test/images/alice.png", h.motion.inputs[0]["image_url"])
	assert.Equal(t, "https://bridge.test/https://cdn.test/drive.mp4", h.motion.inputs[0]["video_url"])
	assert.Equal(t, "video", h.motion.inputs[0]["character_orientation"])
	assert.Contains(t, h.motion.callbacks[0], "job_id="+res.JobID)

	h.motion.poll = &providers.PollResult{State: providers.PollDone, ArtifactURL: "https://provider.test/out.mp4"}

	job, err = h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.NotEmpty(t, job.Result["media_id"])
	assert.Equal(t, "https://storage.test/videos/1.mp4", job.Result["video_path"])
	assert.Equal(t, 1, h.mediaCount(t, res.JobID))

	media, err := h.store.Media.GetByJobID(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, "motion_control", media.GenerationMode)
	assert.Equal(t, models.MediaTypeVideo, media.MediaType)
	assert.Equal(t, job.Result["media_id"], media.ID)
}

func TestWebhookThenPollCreatesOneMedia(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)

	job, err := h.orch.HandleWebhook(ctx, WebhookEvent{
		JobID:         res.JobID,
		CorrelationID: "req-1",
		Status:        "OK",
		Payload:       map[string]any{"video": map[string]any{"url": "https://provider.test/out.mp4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	h.motion.poll = &providers.PollResult{State: providers.PollDone, ArtifactURL: "https://provider.test/out.mp4"}
	polled, err := h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.Result, polled.Result)
	assert.Zero(t, h.motion.polls)

	again, err := h.orch.HandleWebhook(ctx, WebhookEvent{CorrelationID: "req-1", Status: "OK", Payload: map[string]any{"video": map[string]any{"url": "https://provider.test/other.mp4"}}})
	require.NoError(t, err)
	assert.Equal(t, job.Result, again.Result)

	assert.Equal(t, 1, h.mediaCount(t, res.JobID))
	assert.Len(t, h.rehoster.uploads, 1)
}

func TestCompletionRaceKeepsOneMedia(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)

	job, err := h.store.Jobs.GetByID(ctx, res.JobID, "alice")
	require.NoError(t, err)

	// The webhook path finishes while the poll path is still re-hosting.
	h.rehoster.onUpload = func() {
		_, err := h.orch.complete(ctx, job, "https://provider.test/webhook.mp4", PathWebhook)
		require.NoError(t, err)
	}

	final, err := h.orch.complete(ctx, job, "https://provider.test/poll.mp4", PathPoll)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, final.Status)
	assert.Equal(t, 1, h.mediaCount(t, res.JobID))

	media, err := h.store.Media.GetByJobID(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, final.Result["media_id"], media.ID)
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)

	failed, err := h.orch.HandleWebhook(ctx, WebhookEvent{JobID: res.JobID, Status: "ERROR", Error: "upstream exploded"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, failed.Status)
	assert.Equal(t, "upstream exploded", failed.ErrorMessage)

	late, err := h.orch.HandleWebhook(ctx, WebhookEvent{JobID: res.JobID, Status: "OK", Payload: map[string]any{"video": map[string]any{"url": "https://provider.test/late.mp4"}}})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, late.Status)

	h.motion.poll = &providers.PollResult{State: providers.PollDone, ArtifactURL: "https://provider.test/late.mp4"}
	polled, err := h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, polled.Status)

	assert.Zero(t, h.mediaCount(t, res.JobID))
	assert.Empty(t, h.rehoster.uploads)
}

func TestListSweepsStaleJobs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	stale, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)
	fresh, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)
	h.backdate(t, stale.JobID, 2*h.orch.jobs.StaleTimeout)

	unsent, err := h.store.Jobs.Create(ctx, models.NewJob("job_unsent", "alice", "char-alice", models.JobKindImage, nil))
	require.NoError(t, err)
	h.backdate(t, unsent.ID, 2*h.orch.jobs.StaleTimeout)

	active, err := h.orch.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fresh.JobID, active[0].ID)
	require.NotNil(t, active[0].Subject)
	assert.Equal(t, "Mika", active[0].Subject.Name)

	job, err := h.store.Jobs.GetByID(ctx, stale.JobID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, repository.StaleProcessingMessage, job.ErrorMessage)

	job, err = h.store.Jobs.GetByID(ctx, unsent.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, repository.StaleNeverSubmittedMessage, job.ErrorMessage)
}

func TestGetIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)

	_, err = h.orch.Get(ctx, "bob", res.JobID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Zero(t, h.motion.polls)

	_, err = h.orch.Events(ctx, "bob", res.JobID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSubmitRejectsForeignCharacter(t *testing.T) {
	h := newHarness(t)

	req := motionRequest()
	req.CharacterID = "char-bob"
	_, err := h.orch.Submit(context.Background(), "alice", req)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Empty(t, h.motion.inputs)
}

func TestSubmitValidatesPerKind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []SubmitRequest{
		{Kind: "podcast", CharacterID: "char-alice"},
		{Kind: models.JobKindShots, CharacterID: "char-alice"},
		{Kind: models.JobKindImage},
		{Kind: models.JobKindImage, CharacterID: "char-alice"},
		{Kind: models.JobKindVideoFinal, CharacterID: "char-alice", VideoPrompt: "v"},
		{Kind: models.JobKindVideoMotion, CharacterID: "char-alice", Prompt: "p"},
	}
	for _, req := range cases {
		_, err := h.orch.Submit(ctx, "alice", req)
		assert.ErrorIs(t, err, types.ErrInvalidInput, "%+v", req)
	}
}

func TestVideoFinalInputRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", SubmitRequest{
		Kind:           models.JobKindVideoFinal,
		CharacterID:    "char-alice",
		FirstFramePath: "p",
		VideoPrompt:    "v",
		Concept:        "c",
	})
	require.NoError(t, err)

	require.Len(t, h.final.inputs, 1)
	assert.Equal(t, 8, h.final.inputs[0]["duration"])
	assert.Equal(t, map[string]any{"url": "p"}, h.final.inputs[0]["image"])
	assert.Equal(t, "v", h.final.inputs[0]["prompt"])

	h.final.poll = &providers.PollResult{State: providers.PollDone, ArtifactURL: "https://provider.test/final.mp4"}
	job, err := h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, job.Status)

	media, err := h.store.Media.GetByJobID(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, "p", media.FirstFramePath)
	assert.Equal(t, "v", media.VideoPrompt)
	assert.Equal(t, "c", media.Prompt)
	assert.Equal(t, "video", media.GenerationMode)
}

func TestVideoDurationFallsBackWhenLLMFails(t *testing.T) {
	h := newHarness(t)
	h.prompts.err = errors.New("llm down")

	_, err := h.orch.Submit(context.Background(), "alice", SubmitRequest{
		Kind: models.JobKindVideoFinal, CharacterID: "char-alice", FirstFramePath: "p", VideoPrompt: "v",
	})
	require.NoError(t, err)
	assert.Equal(t, h.orch.jobs.DefaultVideoDuration, h.final.inputs[0]["duration"])
}

func TestSubmitRecordedAfterCallerCancels(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.final.onSubmit = cancel

	res, err := h.orch.Submit(ctx, "alice", SubmitRequest{
		Kind: models.JobKindVideoFinal, CharacterID: "char-alice", FirstFramePath: "p", VideoPrompt: "v",
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, res.Status)

	job, err := h.store.Jobs.GetByID(context.Background(), res.JobID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
	assert.Equal(t, "req-1", job.ProviderCorrelationID)

	h.final.poll = &providers.PollResult{State: providers.PollDone, ArtifactURL: "https://provider.test/final.mp4"}
	job, err = h.orch.Get(context.Background(), "alice", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, h.mediaCount(t, res.JobID))
}

func TestModerationRejectionFailsJob(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.image.submitErr = &providers.Error{Provider: "fal", StatusCode: 422, Detail: "content_policy_violation", Moderation: true}

	res, err := h.orch.Submit(ctx, "alice", SubmitRequest{Kind: models.JobKindImage, CharacterID: "char-alice", Prompt: "beach"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "moderation")

	job, err := h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "moderation")
	assert.Zero(t, h.mediaCount(t, res.JobID))
}

func TestPollErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)

	h.motion.pollErr = &providers.Error{Provider: "fal", StatusCode: 502, Detail: "bad gateway"}
	job, err := h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
}

func TestPollFailureAndMissingArtifact(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)
	h.motion.poll = &providers.PollResult{State: providers.PollDone}
	job, err := h.orch.Get(ctx, "alice", first.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, MissingArtifactMessage, job.ErrorMessage)

	second, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)
	h.motion.poll = &providers.PollResult{State: providers.PollFailed, Reason: "Video rejected by content moderation"}
	job, err = h.orch.Get(ctx, "alice", second.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "moderation")
}

func TestRehostFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.rehoster.err = types.ErrStorage

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)

	h.motion.poll = &providers.PollResult{State: providers.PollDone, ArtifactURL: "https://provider.test/out.mp4"}
	job, err := h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "Failed to store generated media")
	assert.Zero(t, h.mediaCount(t, res.JobID))
}

func TestWebhookUnknownJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.HandleWebhook(context.Background(), WebhookEvent{CorrelationID: "nobody", Status: "OK"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = h.orch.HandleWebhook(context.Background(), WebhookEvent{JobID: "job_missing", Status: "OK"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestWebhookTokenRequiredWithSecret(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.orch.webhookKey = "hook-secret"

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)
	assert.Contains(t, h.motion.callbacks[0], "token=")

	_, err = h.orch.HandleWebhook(ctx, WebhookEvent{JobID: res.JobID, Token: "forged", Status: "OK"})
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = h.orch.HandleWebhook(ctx, WebhookEvent{CorrelationID: "req-1", Status: "OK"})
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestEventsRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.orch.Submit(ctx, "alice", motionRequest())
	require.NoError(t, err)
	h.motion.poll = &providers.PollResult{State: providers.PollDone, ArtifactURL: "https://provider.test/out.mp4"}
	_, err = h.orch.Get(ctx, "alice", res.JobID)
	require.NoError(t, err)

	events, err := h.orch.Events(ctx, "alice", res.JobID)
	require.NoError(t, err)

	var kinds []models.JobEventType
	for _, e := range events {
		kinds = append(kinds, e.Type)
	}
	assert.Equal(t, []models.JobEventType{models.JobEventCreated, models.JobEventSubmitted, models.JobEventCompleted}, kinds)
}
