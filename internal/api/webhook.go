package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/services/orchestrator"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/cozy-creator/influencer-studio/internal/utils/webhookutil"
)

// webhookBody keeps payload and error raw: providers send error either as a
// string or as an object, and payload may be null or absent.
type webhookBody struct {
	RequestID     string          `json:"request_id"`
	CorrelationID string          `json:"correlation_id"`
	Status        string          `json:"status"`
	Payload       json.RawMessage `json:"payload"`
	Error         json.RawMessage `json:"error"`
}

func (b *webhookBody) payload() map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(b.Payload, &payload); err != nil {
		return nil
	}
	return payload
}

func (b *webhookBody) errorMessage() string {
	raw := bytes.TrimSpace(b.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

// ProviderWebhook receives completion callbacks. It is unauthenticated; the
// job id and token in the query string were minted at submission.
func ProviderWebhook(c *gin.Context) {
	var body webhookBody
	if !bindJSON(c, &body) {
		return
	}

	correlationID := body.RequestID
	if correlationID == "" {
		correlationID = body.CorrelationID
	}
	jobID := c.Query(webhookutil.JobIDParam)
	if jobID == "" && correlationID == "" {
		abortWithError(c, types.InvalidInput("request_id is required"))
		return
	}

	job, err := getApp(c).Orchestrator.HandleWebhook(c.Request.Context(), orchestrator.WebhookEvent{
		JobID:         jobID,
		Token:         c.Query(webhookutil.TokenParam),
		CorrelationID: correlationID,
		Status:        body.Status,
		Payload:       body.payload(),
		Error:         body.errorMessage(),
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "job_status": job.Status})
}
