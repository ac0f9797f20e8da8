package characters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/cozy-creator/influencer-studio/internal/utils/jsonutil"
)

const OptionRefImage = "ref_image"

const realisticStyle = ", raw unedited photo, candid smartphone photography, natural ambient lighting, visible skin texture, no retouching, no filters"

// CreateContentPlan asks the LLM for a single-video plan on theme and stores it.
func (s *Service) CreateContentPlan(ctx context.Context, ownerID, characterID, theme string) (*models.ContentPlan, error) {
	theme = strings.TrimSpace(theme)
	if characterID == "" || theme == "" {
		return nil, types.InvalidInput("character_id and theme are required")
	}

	character, err := s.store.Characters.GetByID(ctx, characterID, ownerID)
	if err != nil {
		return nil, err
	}
	if s.writer == nil {
		return nil, errNoWriter
	}

	writeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	plan, err := s.writer.GenerateContentPlan(writeCtx, providers.PlanSubject{
		Name:              character.Name,
		PersonalityTraits: character.PersonalityTraits,
		ToneOfVoice:       character.ToneOfVoice,
		ContentStyle:      character.ContentStyle,
	}, theme)
	if err != nil {
		return nil, err
	}

	data, err := jsonutil.StructToMap(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content plan: %w", err)
	}

	record := &models.ContentPlan{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		CharacterID: character.ID,
		Theme:       theme,
		PlanData:    data,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.store.Plans.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("content plan created", zap.String("owner_id", ownerID), zap.String("character_id", character.ID), zap.String("plan_id", record.ID))
	return record, nil
}

func (s *Service) ListContentPlans(ctx context.Context, ownerID, characterID string) ([]models.ContentPlan, error) {
	return s.store.Plans.List(ctx, ownerID, characterID)
}

type PrepareVideoRequest struct {
	CharacterID        string `json:"character_id"`
	Concept            string `json:"concept"`
	Option             string `json:"option"`
	ReferenceImagePath string `json:"reference_image_path"`
	Spicy              bool   `json:"spicy"`
}

// PreparedVideo is the input a video_final job is submitted with.
type PreparedVideo struct {
	PrepareID      string `json:"prepare_id"`
	FirstFramePath string `json:"first_frame_path"`
	VideoPrompt    string `json:"video_prompt"`
}

// PrepareVideo renders the first frame from the character's image and drafts
// the matching video prompt. Nothing is persisted besides the stored frame.
func (s *Service) PrepareVideo(ctx context.Context, ownerID string, req PrepareVideoRequest) (*PreparedVideo, error) {
	req.Concept = strings.TrimSpace(req.Concept)
	if req.CharacterID == "" || req.Concept == "" {
		return nil, types.InvalidInput("character_id and concept are required")
	}

	character, err := s.store.Characters.GetByID(ctx, req.CharacterID, ownerID)
	if err != nil {
		return nil, err
	}
	if character.ImagePath == "" {
		return nil, types.InvalidInput("character has no reference image")
	}
	if s.writer == nil {
		return nil, errNoWriter
	}
	if s.rehoster == nil {
		return nil, types.ErrStorage
	}

	generator, err := s.images.For(req.Spicy)
	if err != nil {
		return nil, err
	}

	imageURLs := []string{character.ImagePath}
	if req.Option == OptionRefImage && req.ReferenceImagePath != "" {
		imageURLs = append(imageURLs, req.ReferenceImagePath)
	}

	firstFrame, err := s.generateAndStore(ctx, generator, providers.ImageRequest{
		Prompt:      req.Concept + realisticStyle,
		ImageURLs:   imageURLs,
		AspectRatio: "9:16",
	})
	if err != nil {
		return nil, err
	}

	promptCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	videoPrompt, err := s.writer.GenerateVideoPrompt(promptCtx, character.Name, req.Concept, req.Spicy)
	if err != nil {
		return nil, err
	}

	return &PreparedVideo{
		PrepareID:      uuid.NewString(),
		FirstFramePath: firstFrame,
		VideoPrompt:    videoPrompt,
	}, nil
}
