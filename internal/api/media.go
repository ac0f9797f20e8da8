package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

const defaultHistoryLimit = 100

// MediaHistory lists the caller's media, newest first. Query filters:
// character_id, media_type, portfolio and limit.
func MediaHistory(c *gin.Context) {
	filter := repository.MediaFilter{
		CharacterID: c.Query("character_id"),
		MediaType:   models.MediaType(c.Query("media_type")),
		Limit:       defaultHistoryLimit,
	}

	if raw := c.Query("portfolio"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(c, types.InvalidInput("portfolio must be a boolean"))
			return
		}
		filter.IsPortfolio = &v
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, types.InvalidInput("limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}
	switch filter.MediaType {
	case "", models.MediaTypeImage, models.MediaTypeVideo:
	default:
		abortWithError(c, types.InvalidInput("unknown media_type %q", filter.MediaType))
		return
	}

	media, err := getApp(c).Store().Media.List(c.Request.Context(), ownerID(c), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]types.MediaResponse, 0, len(media))
	for i := range media {
		resp = append(resp, toMediaResponse(&media[i]))
	}

	c.JSON(http.StatusOK, gin.H{"media": resp})
}

type updateMediaRequest struct {
	IsPortfolio *bool `json:"is_portfolio"`
}

func UpdateMedia(c *gin.Context) {
	var req updateMediaRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IsPortfolio == nil {
		abortWithError(c, types.InvalidInput("is_portfolio is required"))
		return
	}

	store := getApp(c).Store()
	ctx := c.Request.Context()
	if err := store.Media.SetPortfolio(ctx, c.Param("id"), ownerID(c), *req.IsPortfolio); err != nil {
		abortWithError(c, err)
		return
	}

	media, err := store.Media.GetByID(ctx, c.Param("id"), ownerID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMediaResponse(media))
}

func DeleteMedia(c *gin.Context) {
	if err := getApp(c).Store().Media.DeleteByID(c.Request.Context(), c.Param("id"), ownerID(c)); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
