package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

const OptionRefImage = "ref_image"

type ImageRequest struct {
	CharacterID        string `json:"character_id"`
	Prompt             string `json:"prompt"`
	Option             string `json:"option"`
	ReferenceImagePath string `json:"reference_image_path"`
	Spicy              bool   `json:"spicy"`
}

// GenerateImage produces one still image within the request and stores it
// as media directly. No job is tracked.
func (o *Orchestrator) GenerateImage(ctx context.Context, ownerID string, req ImageRequest) (*models.Media, error) {
	if req.CharacterID == "" || req.Prompt == "" {
		return nil, types.InvalidInput("character_id and prompt are required")
	}
	if req.Option == OptionRefImage && req.ReferenceImagePath == "" {
		return nil, types.InvalidInput("reference_image_path is required for the ref_image option")
	}

	character, err := o.store.Characters.GetByID(ctx, req.CharacterID, ownerID)
	if err != nil {
		return nil, err
	}

	imageURLs := make([]string, 0, 2)
	if character.ImagePath != "" {
		imageURLs = append(imageURLs, character.ImagePath)
	}
	if req.Option == OptionRefImage {
		imageURLs = append(imageURLs, req.ReferenceImagePath)
	}

	generator, err := o.images.For(req.Spicy)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := withTimeout(ctx, o.jobs.GenerationTimeout)
	defer cancel()

	artifactURL, err := generator.GenerateImage(genCtx, providers.ImageRequest{
		Prompt:      req.Prompt,
		ImageURLs:   imageURLs,
		AspectRatio: "9:16",
	})
	if err != nil {
		return nil, err
	}

	ext := fileuploader.ExtensionFromURL(artifactURL)
	if ext == "" {
		ext = "png"
	}
	filePath, err := o.rehoster.UploadFromURL(ctx, artifactURL, fileuploader.CategoryImages, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to store generated image: %w", err)
	}

	mode := req.Option
	if mode == "" {
		mode = "scene"
	}

	media := &models.Media{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		CharacterID:    character.ID,
		MediaType:      models.MediaTypeImage,
		FilePath:       filePath,
		GenerationMode: mode,
		Prompt:         req.Prompt,
		CreatedAt:      o.now().UTC(),
	}
	if req.Option == OptionRefImage {
		media.ReferenceImagePath = req.ReferenceImagePath
	}

	if _, err := o.store.Media.Create(ctx, media); err != nil {
		return nil, wrapStore(err, "create media")
	}

	return media, nil
}
