package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/app"
	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/services/auth"
	"github.com/cozy-creator/influencer-studio/internal/services/orchestrator"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

func getApp(c *gin.Context) *app.App {
	return c.MustGet("app").(*app.App)
}

func identity(c *gin.Context) *auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}

func ownerID(c *gin.Context) string {
	if id := identity(c); id != nil {
		return id.UserID
	}
	return ""
}

// abortWithError writes {"error": ...} with the status for err's kind.
// Upstream detail is passed through when a provider failed.
func abortWithError(c *gin.Context, err error) {
	status := types.HTTPStatus(err)
	body := gin.H{"error": err.Error()}

	var perr *providers.Error
	if errors.As(err, &perr) && perr.Detail != "" {
		body["detail"] = perr.Detail
	}
	if status >= http.StatusInternalServerError {
		getApp(c).Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		if status == http.StatusInternalServerError {
			body["error"] = "internal server error"
		}
	}

	c.AbortWithStatusJSON(status, body)
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		abortWithError(c, types.InvalidInput("failed to parse json request body: %s", err))
		return false
	}
	return true
}

func toJobResponse(job *models.Job) types.JobResponse {
	return types.JobResponse{
		ID:           job.ID,
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		CharacterID:  job.SubjectID,
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

func toActiveJobResponse(job *models.Job) types.ActiveJobResponse {
	resp := types.ActiveJobResponse{
		ID:          job.ID,
		Kind:        string(job.Kind),
		Status:      string(job.Status),
		CharacterID: job.SubjectID,
		Prompt:      orchestrator.DisplayPrompt(job),
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.Subject != nil {
		resp.CharacterName = job.Subject.Name
		resp.CharacterImagePath = job.Subject.ImagePath
	}
	return resp
}

func toMediaResponse(media *models.Media) types.MediaResponse {
	resp := types.MediaResponse{
		ID:                 media.ID,
		CharacterID:        media.CharacterID,
		JobID:              media.JobID,
		MediaType:          string(media.MediaType),
		FilePath:           media.FilePath,
		GenerationMode:     media.GenerationMode,
		Prompt:             media.Prompt,
		VideoPrompt:        media.VideoPrompt,
		FirstFramePath:     media.FirstFramePath,
		ReferenceImagePath: media.ReferenceImagePath,
		IsPortfolio:        media.IsPortfolio,
		CreatedAt:          media.CreatedAt,
	}
	if media.Character != nil {
		resp.CharacterName = media.Character.Name
	}
	return resp
}

func toCharacterResponse(character *models.Character) types.CharacterResponse {
	traits := character.PersonalityTraits
	if traits == nil {
		traits = []string{}
	}
	themes := character.ContentThemes
	if themes == nil {
		themes = []string{}
	}

	return types.CharacterResponse{
		ID:                character.ID,
		Name:              character.Name,
		VisualDescription: character.VisualDescription,
		PersonalityTraits: traits,
		ToneOfVoice:       character.ToneOfVoice,
		ContentStyle:      character.ContentStyle,
		TargetAudience:    character.TargetAudience,
		ContentThemes:     themes,
		ImagePath:         character.ImagePath,
		CreatedAt:         character.CreatedAt,
	}
}
