// Package characters manages personas: creation with an LLM-written
// personality, reference image selection, and cascading deletes.
package characters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/cozy-creator/influencer-studio/pkg/logger"
)

const DefaultAudience = "General audience"

var errNoWriter = fmt.Errorf("%w: no personality writer configured", types.ErrProvider)

const (
	ImageModeDirect   = "direct"
	ImageModeGenerate = "generate"
	ImageModeText     = "text"
)

type Writer interface {
	GeneratePersonality(ctx context.Context, concept, audience string) (*providers.Personality, error)
	GenerateVideoPrompt(ctx context.Context, name, concept string, spicy bool) (string, error)
	GenerateContentPlan(ctx context.Context, subject providers.PlanSubject, theme string) (*providers.ContentPlan, error)
}

type Rehoster interface {
	UploadFromURL(ctx context.Context, sourceURL string, category fileuploader.Category, ext string) (string, error)
}

type CreateRequest struct {
	Name           string `json:"name"`
	Concept        string `json:"concept"`
	TargetAudience string `json:"target_audience"`
	ImageURL       string `json:"image_url"`
	ImageMode      string `json:"image_mode"`
	Spicy          bool   `json:"spicy"`
}

type Service struct {
	store    *repository.Store
	writer   Writer
	images   providers.ImageGenerators
	rehoster Rehoster
	timeout  time.Duration
	logger   *zap.Logger
}

type Options struct {
	Store    *repository.Store
	Writer   Writer
	Images   providers.ImageGenerators
	Rehoster Rehoster
	Timeout  time.Duration
	Logger   *zap.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("characters: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger().Named("characters")
	}

	return &Service{
		store:    opts.Store,
		writer:   opts.Writer,
		images:   opts.Images,
		rehoster: opts.Rehoster,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}, nil
}

// Create writes the personality, picks the reference image and stores the
// character. Image trouble does not block creation; the character is kept
// without an image.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (*models.Character, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Concept = strings.TrimSpace(req.Concept)
	if req.Name == "" || req.Concept == "" {
		return nil, types.InvalidInput("name and concept are required")
	}
	if req.TargetAudience == "" {
		req.TargetAudience = DefaultAudience
	}
	if req.ImageMode == ImageModeDirect && req.ImageURL == "" {
		return nil, types.InvalidInput("image_url is required for direct image mode")
	}
	if s.writer == nil {
		return nil, errNoWriter
	}

	personality, err := s.personality(ctx, req)
	if err != nil {
		return nil, err
	}

	character := &models.Character{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Name:              req.Name,
		VisualDescription: personality.VisualDescription,
		PersonalityTraits: personality.PersonalityTraits,
		ToneOfVoice:       personality.ToneOfVoice,
		ContentStyle:      personality.ContentStyle,
		TargetAudience:    req.TargetAudience,
		ContentThemes:     personality.ContentThemes,
		CreatedAt:         time.Now().UTC(),
	}

	imagePath, err := s.image(ctx, req, personality)
	if err != nil {
		s.logger.Warn("character image failed", zap.String("owner_id", ownerID), zap.String("mode", req.ImageMode), zap.Error(err))
	}
	character.ImagePath = imagePath

	if _, err := s.store.Characters.Create(ctx, character); err != nil {
		return nil, err
	}

	return character, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

func (s *Service) personality(ctx context.Context, req CreateRequest) (*providers.Personality, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.writer.GeneratePersonality(ctx, req.Concept, req.TargetAudience)
}

func (s *Service) image(ctx context.Context, req CreateRequest, personality *providers.Personality) (string, error) {
	if req.ImageMode == ImageModeDirect {
		return req.ImageURL, nil
	}

	generator, err := s.images.For(req.Spicy)
	if err != nil {
		return "", err
	}
	if s.rehoster == nil {
		return "", types.ErrStorage
	}

	imageReq := providers.ImageRequest{
		Prompt:      characterPrompt(req, personality),
		AspectRatio: "9:16",
	}
	if req.ImageMode == ImageModeGenerate && req.ImageURL != "" {
		imageReq.ImageURLs = []string{req.ImageURL}
	}

	return s.generateAndStore(ctx, generator, imageReq)
}

func (s *Service) generateAndStore(ctx context.Context, generator providers.ImageGenerator, req providers.ImageRequest) (string, error) {
	artifactURL, err := generator.GenerateImage(ctx, req)
	if err != nil {
		return "", err
	}

	ext := fileuploader.ExtensionFromURL(artifactURL)
	if ext == "" {
		ext = "png"
	}
	return s.rehoster.UploadFromURL(ctx, artifactURL, fileuploader.CategoryImages, ext)
}

func characterPrompt(req CreateRequest, personality *providers.Personality) string {
	desc := personality.VisualDescription
	if desc == "" {
		desc = req.Concept
	}
	return "Portrait photo of " + req.Name + ", " + desc + ". Natural light, sharp focus, social media style."
}

func (s *Service) List(ctx context.Context, ownerID string) ([]models.Character, error) {
	return s.store.Characters.List(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.Character, error) {
	return s.store.Characters.GetByID(ctx, id, ownerID)
}

// Delete removes the character with its media, job history and content plans.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteCharacter(ctx, id, ownerID)
}

func (s *Service) SetImagePath(ctx context.Context, ownerID, id, imagePath string) (*models.Character, error) {
	if strings.TrimSpace(imagePath) == "" {
		return nil, types.InvalidInput("image_path is required")
	}
	if err := s.store.Characters.UpdateImagePath(ctx, id, ownerID, imagePath); err != nil {
		return nil, err
	}
	return s.store.Characters.GetByID(ctx, id, ownerID)
}

// VideoPrompt drafts a video prompt from the character's concept.
func (s *Service) VideoPrompt(ctx context.Context, ownerID, id, concept string, spicy bool) (string, error) {
	character, err := s.store.Characters.GetByID(ctx, id, ownerID)
	if err != nil {
		return "", err
	}
	if s.writer == nil {
		return "", errNoWriter
	}
	if concept == "" {
		concept = character.VisualDescription
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.writer.GenerateVideoPrompt(ctx, character.Name, concept, spicy)
}
