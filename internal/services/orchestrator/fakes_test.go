package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/db/dbtest"
	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	nextID    int
	submitErr error
	poll      *providers.PollResult
	pollErr   error
	inputs    []map[string]any
	callbacks []string
	polls     int
	onSubmit  func()
}

func (f *fakeSubmitter) Name() string { return "fake" }

func (f *fakeSubmitter) Submit(_ context.Context, input map[string]any, callbackURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.nextID++
	f.inputs = append(f.inputs, input)
	f.callbacks = append(f.callbacks, callbackURL)
	return fmt.Sprintf("req-%d", f.nextID), nil
}

func (f *fakeSubmitter) Poll(context.Context, string) (*providers.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if f.poll == nil {
		return &providers.PollResult{State: providers.PollProcessing}, nil
	}
	return f.poll, nil
}

type fakeRehoster struct {
	mu       sync.Mutex
	uploads  []string
	err      error
	onUpload func()
}

func (f *fakeRehoster) UploadFromURL(_ context.Context, sourceURL string, category fileuploader.Category, ext string) (string, error) {
	f.mu.Lock()
	hook := f.onUpload
	f.onUpload = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, sourceURL)
	return fmt.Sprintf("https://storage.test/%s/%d.%s", category, len(f.uploads), ext), nil
}

func (f *fakeRehoster) Bridge(_ context.Context, _ fileuploader.BridgeTarget, urls ...string) ([]string, error) {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = "https://bridge.test/" + u
	}
	return out, nil
}

type fakeBridge struct{}

func (fakeBridge) UploadBytes(context.Context, []byte, string, string) (string, error) {
	return "https://bridge.test/blob", nil
}

type fakePrompts struct {
	description string
	prompts     []string
	duration    int
	err         error
}

func (f *fakePrompts) DescribeImage(context.Context, string) (string, error) {
	return f.description, f.err
}

func (f *fakePrompts) GenerateShotPrompts(_ context.Context, _ string, n int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.prompts) > n {
		return f.prompts[:n], nil
	}
	return f.prompts, nil
}

func (f *fakePrompts) DetermineVideoDuration(context.Context, string, int) (int, error) {
	return f.duration, f.err
}

// fakeImages fails for any prompt listed in failFor.
type fakeImages struct {
	mu       sync.Mutex
	failFor  map[string]error
	requests []providers.ImageRequest
}

func (f *fakeImages) GenerateImage(_ context.Context, req providers.ImageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err, ok := f.failFor[req.Prompt]; ok {
		return "", err
	}
	return "https://provider.test/" + fmt.Sprint(len(f.requests)) + ".png", nil
}

type harness struct {
	orch     *Orchestrator
	store    *repository.Store
	final    *fakeSubmitter
	motion   *fakeSubmitter
	image    *fakeSubmitter
	rehoster *fakeRehoster
	prompts  *fakePrompts
	images   *fakeImages
	tasks    []ShotTask
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:    dbtest.NewStore(t),
		final:    &fakeSubmitter{},
		motion:   &fakeSubmitter{},
		image:    &fakeSubmitter{},
		rehoster: &fakeRehoster{},
		prompts:  &fakePrompts{description: "a woman at a cafe", duration: 8, prompts: []string{"p1", "p2", "p3", "p4", "p5"}},
		images:   &fakeImages{failFor: map[string]error{}},
	}

	registry := providers.NewRegistry().
		Register(models.JobKindVideoFinal, h.final).
		Register(models.JobKindVideoMotion, h.motion).
		Register(models.JobKindImage, h.image)

	orch, err := New(Options{
		Store:      h.store,
		Providers:  registry,
		Images:     providers.ImageGenerators{Standard: h.images},
		Rehoster:   h.rehoster,
		BridgeTo:   fakeBridge{},
		Prompts:    h.prompts,
		Jobs:       config.Default().Jobs,
		WebhookURL: "https://studio.test/webhooks/provider",
		Dispatcher: DispatcherFunc(func(_ context.Context, task ShotTask) error {
			h.tasks = append(h.tasks, task)
			return nil
		}),
	})
	require.NoError(t, err)
	h.orch = orch

	for _, owner := range []string{"alice", "bob"} {
		_, err := h.store.Characters.Create(context.Background(), &models.Character{
			ID:        "char-" + owner,
			OwnerID:   owner,
			Name:      "Mika",
			ImagePath: "https://storage.test/images/" + owner + ".png",
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	return h
}

func (h *harness) mediaCount(t *testing.T, jobID string) int {
	t.Helper()
	n, err := h.store.Media.CountByJob(context.Background(), jobID)
	require.NoError(t, err)
	return n
}

func (h *harness) backdate(t *testing.T, jobID string, age time.Duration) {
	t.Helper()
	_, err := h.store.DB().NewUpdate().
		Model((*models.Job)(nil)).
		Set("updated_at = ?", time.Now().UTC().Add(-age)).
		Where("id = ?", jobID).
		Exec(context.Background())
	require.NoError(t, err)
}
