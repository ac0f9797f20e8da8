package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	XAIImageModel = "grok-imagine-image-pro"
	XAIVideoModel = "grok-imagine-video"
)

type XAIOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

type XAIClient struct {
	http *httpClient
}

func NewXAIClient(opts XAIOptions) *XAIClient {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}

	return &XAIClient{
		http: &httpClient{
			provider:   "xai",
			baseURL:    trimOr(opts.BaseURL, "https://api.x.ai/v1"),
			authHeader: "Authorization",
			authValue:  "Bearer " + strings.TrimSpace(opts.APIKey),
			client:     client,
		},
	}
}

type xaiImageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (c *XAIClient) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	var (
		endpoint string
		payload  map[string]any
	)

	if len(req.ImageURLs) > 0 {
		endpoint = "/images/edits"
		payload = map[string]any{
			"model":  XAIImageModel,
			"prompt": req.Prompt,
			"image":  map[string]string{"url": req.ImageURLs[0], "type": "image_url"},
			"n":      1,
		}
	} else {
		aspect := req.AspectRatio
		if aspect == "" {
			aspect = "1:1"
		}
		endpoint = "/images/generations"
		payload = map[string]any{
			"model":        XAIImageModel,
			"prompt":       req.Prompt,
			"n":            1,
			"aspect_ratio": aspect,
		}
	}

	body, err := c.http.doRequest(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}

	var resp xaiImageResponse
	if err := c.http.decode(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", malformed("xai", "no image url in response")
	}

	return resp.Data[0].URL, nil
}

// Video returns the direct-call video Submitter. xAI has no webhook; its
// jobs complete through polling only.
func (c *XAIClient) Video() *XAIVideo {
	return &XAIVideo{client: c}
}

type XAIVideo struct {
	client *XAIClient
}

type xaiVideoSubmitResponse struct {
	RequestID string `json:"request_id"`
}

type xaiVideoStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Video  *struct {
		URL string `json:"url"`
	} `json:"video"`
}

func (v *XAIVideo) Name() string {
	return "xai:" + XAIVideoModel
}

func (v *XAIVideo) Submit(ctx context.Context, input map[string]any, _ string) (string, error) {
	payload := make(map[string]any, len(input)+1)
	payload["model"] = XAIVideoModel
	for k, val := range input {
		payload[k] = val
	}

	body, err := v.client.http.doRequest(ctx, http.MethodPost, "/videos/generations", payload)
	if err != nil {
		return "", err
	}

	var resp xaiVideoSubmitResponse
	if err := v.client.http.decode(body, &resp); err != nil {
		return "", err
	}
	if resp.RequestID == "" {
		return "", malformed("xai", "submit returned no request_id")
	}

	return resp.RequestID, nil
}

func (v *XAIVideo) Poll(ctx context.Context, requestID string) (*PollResult, error) {
	body, err := v.client.http.doRequest(ctx, http.MethodGet, "/videos/"+requestID, nil)
	if err != nil {
		if perr, ok := isClientError(err); ok {
			return &PollResult{State: PollFailed, Reason: perr.Error()}, nil
		}
		return nil, err
	}

	var resp xaiVideoStatusResponse
	if err := v.client.http.decode(body, &resp); err != nil {
		return nil, err
	}

	if resp.Video != nil && resp.Video.URL != "" {
		return &PollResult{State: PollDone, ArtifactURL: resp.Video.URL}, nil
	}

	switch strings.ToLower(resp.Status) {
	case "failed", "error", "expired":
		reason := resp.Error
		if reason == "" {
			reason = "xai video generation " + strings.ToLower(resp.Status)
		}
		return &PollResult{State: PollFailed, Reason: reason}, nil
	}

	return &PollResult{State: PollProcessing}, nil
}

var (
	_ Submitter      = (*XAIVideo)(nil)
	_ ImageGenerator = (*XAIClient)(nil)
)
