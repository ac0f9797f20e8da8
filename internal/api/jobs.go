package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/services/orchestrator"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

// SubmitJob accepts any asynchronous kind named in the body.
func SubmitJob(c *gin.Context) {
	var req orchestrator.SubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	submit(c, req)
}

func SubmitVideoFinal(c *gin.Context) {
	var req orchestrator.SubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Kind = models.JobKindVideoFinal
	submit(c, req)
}

func SubmitVideoMotion(c *gin.Context) {
	var req orchestrator.SubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Kind = models.JobKindVideoMotion
	submit(c, req)
}

func submit(c *gin.Context, req orchestrator.SubmitRequest) {
	result, err := getApp(c).Orchestrator.Submit(c.Request.Context(), ownerID(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, types.SubmitResponse{
		JobID:        result.JobID,
		Status:       string(result.Status),
		ErrorMessage: result.ErrorMessage,
	})
}

func SubmitShots(c *gin.Context) {
	var req orchestrator.ShotsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := getApp(c).Orchestrator.SubmitShots(c.Request.Context(), ownerID(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, types.ShotsResponse{JobIDs: result.JobIDs, Prompts: result.Prompts})
}

type runShotRequest struct {
	JobID string `json:"job_id"`
}

// RunShot drives one shots job inline. The queue consumer does the same
// for dispatched jobs; this route lets a caller retry a pending one.
func RunShot(c *gin.Context) {
	var req runShotRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.JobID == "" {
		abortWithError(c, types.InvalidInput("job_id is required"))
		return
	}

	job, err := getApp(c).Orchestrator.RunShot(c.Request.Context(), ownerID(c), req.JobID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

func ListJobs(c *gin.Context) {
	jobs, err := getApp(c).Orchestrator.List(c.Request.Context(), ownerID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]types.ActiveJobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toActiveJobResponse(&jobs[i]))
	}

	c.JSON(http.StatusOK, gin.H{"jobs": resp})
}

func GetJob(c *gin.Context) {
	job, err := getApp(c).Orchestrator.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

func ListJobEvents(c *gin.Context) {
	events, err := getApp(c).Orchestrator.Events(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]types.JobEventResponse, 0, len(events))
	for _, event := range events {
		data, err := event.Decode()
		if err != nil {
			data = map[string]any{}
		}
		resp = append(resp, types.JobEventResponse{Type: string(event.Type), Data: data, CreatedAt: event.CreatedAt})
	}

	c.JSON(http.StatusOK, gin.H{"events": resp})
}

type sweepRequest struct {
	OlderThan string `json:"older_than"`
}

// SweepJobs fails stale jobs for every owner. Admin only.
func SweepJobs(c *gin.Context) {
	var req sweepRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	app := getApp(c)
	age := app.Config().Jobs.StaleTimeout
	if req.OlderThan != "" {
		d, err := time.ParseDuration(req.OlderThan)
		if err != nil || d <= 0 {
			abortWithError(c, types.InvalidInput("older_than must be a positive duration"))
			return
		}
		age = d
	}

	result, err := app.Orchestrator.SweepOlderThan(c.Request.Context(), "", age)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SweepResponse{Stale: result.Stale, NeverSubmitted: result.NeverSubmitted})
}
