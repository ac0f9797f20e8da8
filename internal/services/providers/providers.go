// Package providers wraps the external generation back-ends behind one
// submit/poll contract. Queue style back-ends (fal) call a webhook on
// completion; direct back-ends (xAI) are only polled.
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/cozy-creator/influencer-studio/internal/utils/jsonutil"
)

type PollState string

const (
	PollProcessing PollState = "processing"
	PollDone       PollState = "done"
	PollFailed     PollState = "failed"
)

type PollResult struct {
	State       PollState
	ArtifactURL string
	Reason      string
}

// Submitter starts long running work and reports on it. Poll has no side
// effects and is safe to call concurrently.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, input map[string]any, callbackURL string) (string, error)
	Poll(ctx context.Context, correlationID string) (*PollResult, error)
}

type ImageRequest struct {
	Prompt      string
	ImageURLs   []string
	AspectRatio string
}

// ImageGenerator produces a single still image within one request.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// ImageGenerators routes still-image work. Spicy requests go to the
// permissive back-end when one is configured.
type ImageGenerators struct {
	Standard ImageGenerator
	Spicy    ImageGenerator
}

func (g ImageGenerators) For(spicy bool) (ImageGenerator, error) {
	if spicy && g.Spicy != nil {
		return g.Spicy, nil
	}
	if g.Standard == nil {
		return nil, fmt.Errorf("%w: no image generator configured", types.ErrProvider)
	}
	return g.Standard, nil
}

var ErrMalformedResponse = fmt.Errorf("%w: malformed response", types.ErrProvider)

// Error is an upstream failure with the status and body detail the provider returned.
type Error struct {
	Provider   string
	StatusCode int
	Detail     string
	Moderation bool
	Malformed  bool
}

func (e *Error) Error() string {
	switch {
	case e.Moderation:
		return "Generated content rejected by content moderation."
	case e.Malformed:
		return fmt.Sprintf("%s returned a malformed response: %s", e.Provider, e.Detail)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("%s error: %s", e.Provider, e.Detail)
	}
}

func (e *Error) Unwrap() error {
	switch {
	case e.Moderation:
		return types.ErrContentModeration
	case e.Malformed:
		return ErrMalformedResponse
	default:
		return types.ErrProvider
	}
}

var moderationMarkers = []string{
	"content moderation",
	"content_policy_violation",
	"content policy",
}

func IsModerationText(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range moderationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func newError(provider string, status int, detail string) *Error {
	return &Error{
		Provider:   provider,
		StatusCode: status,
		Detail:     detail,
		Moderation: IsModerationText(detail),
	}
}

func malformed(provider, detail string) *Error {
	return &Error{Provider: provider, Detail: detail, Malformed: true}
}

// ExtractArtifactURL finds the output media URL in a provider result payload.
func ExtractArtifactURL(payload map[string]any) string {
	if url := jsonutil.LookupString(payload, "video", "url"); url != "" {
		return url
	}
	if url := jsonutil.LookupString(payload, "images", 0, "url"); url != "" {
		return url
	}
	if url := jsonutil.LookupString(payload, "image", "url"); url != "" {
		return url
	}
	return ""
}

// Registry selects the back-end for each asynchronous job kind.
type Registry struct {
	submitters map[models.JobKind]Submitter
}

func NewRegistry() *Registry {
	return &Registry{submitters: make(map[models.JobKind]Submitter)}
}

func (r *Registry) Register(kind models.JobKind, s Submitter) *Registry {
	r.submitters[kind] = s
	return r
}

func (r *Registry) For(kind models.JobKind) (Submitter, error) {
	s, ok := r.submitters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no provider registered for %s jobs", types.ErrProvider, kind)
	}
	return s, nil
}

// DefaultRegistry wires video_final to xAI and the motion and image kinds to the fal queue.
func DefaultRegistry(fal *FalClient, xai *XAIClient) *Registry {
	return NewRegistry().
		Register(models.JobKindVideoFinal, xai.Video()).
		Register(models.JobKindVideoMotion, fal.Queue(KlingMotionControlModel)).
		Register(models.JobKindImage, fal.Queue(NanoBananaEditModel))
}
