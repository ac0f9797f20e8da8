package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

type contentPlanRequest struct {
	CharacterID string `json:"character_id"`
	Theme       string `json:"theme"`
}

func CreateContentPlan(c *gin.Context) {
	var req contentPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	plan, err := getApp(c).Characters.CreateContentPlan(c.Request.Context(), ownerID(c), req.CharacterID, req.Theme)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toContentPlanResponse(plan))
}

// ListContentPlans takes an optional character_id filter.
func ListContentPlans(c *gin.Context) {
	plans, err := getApp(c).Characters.ListContentPlans(c.Request.Context(), ownerID(c), c.Query("character_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]types.ContentPlanResponse, 0, len(plans))
	for i := range plans {
		resp = append(resp, toContentPlanResponse(&plans[i]))
	}

	c.JSON(http.StatusOK, gin.H{"content_plans": resp})
}

func toContentPlanResponse(plan *models.ContentPlan) types.ContentPlanResponse {
	return types.ContentPlanResponse{
		ID:          plan.ID,
		CharacterID: plan.CharacterID,
		Theme:       plan.Theme,
		PlanData:    plan.PlanData,
		CreatedAt:   plan.CreatedAt,
	}
}
