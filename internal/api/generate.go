package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/services/characters"
	"github.com/cozy-creator/influencer-studio/internal/services/orchestrator"
)

// GenerateImage is synchronous: the media row exists when it returns.
func GenerateImage(c *gin.Context) {
	var req orchestrator.ImageRequest
	if !bindJSON(c, &req) {
		return
	}

	media, err := getApp(c).Orchestrator.GenerateImage(c.Request.Context(), ownerID(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMediaResponse(media))
}

type videoPromptRequest struct {
	Concept string `json:"concept"`
	Spicy   bool   `json:"spicy"`
}

func GenerateVideoPrompt(c *gin.Context) {
	var req videoPromptRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	prompt, err := getApp(c).Characters.VideoPrompt(c.Request.Context(), ownerID(c), c.Param("id"), req.Concept, req.Spicy)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"video_prompt": prompt})
}

// PrepareVideo returns a stored first frame and a video prompt, the inputs of
// a video_final submission.
func PrepareVideo(c *gin.Context) {
	var req characters.PrepareVideoRequest
	if !bindJSON(c, &req) {
		return
	}

	prepared, err := getApp(c).Characters.PrepareVideo(c.Request.Context(), ownerID(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, prepared)
}
