package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	KlingMotionControlModel = "fal-ai/kling-video/v2.6/standard/motion-control"
	NanoBananaModel         = "fal-ai/nano-banana-pro"
	NanoBananaEditModel     = "fal-ai/nano-banana-pro/edit"
)

type FalOptions struct {
	APIKey         string
	QueueURL       string
	RunURL         string
	StorageURL     string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// FalClient talks to fal's queue, synchronous run and storage endpoints.
type FalClient struct {
	http       *httpClient
	queueURL   string
	runURL     string
	storageURL string
}

func NewFalClient(opts FalOptions) *FalClient {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}

	return &FalClient{
		http: &httpClient{
			provider:   "fal",
			authHeader: "Authorization",
			authValue:  "Key " + strings.TrimSpace(opts.APIKey),
			client:     client,
		},
		queueURL:   trimOr(opts.QueueURL, "https://queue.fal.run"),
		runURL:     trimOr(opts.RunURL, "https://fal.run"),
		storageURL: trimOr(opts.StorageURL, "https://rest.alpha.fal.ai"),
	}
}

func trimOr(value, fallback string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value
}

// Queue returns a Submitter bound to one fal model.
func (c *FalClient) Queue(model string) *FalQueue {
	return &FalQueue{client: c, model: model}
}

// Run calls a model synchronously and returns its output payload.
func (c *FalClient) Run(ctx context.Context, model string, input map[string]any) (map[string]any, error) {
	body, err := c.http.doRequest(ctx, http.MethodPost, c.runURL+"/"+model, input)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := c.http.decode(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *FalClient) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	model := NanoBananaModel
	input := map[string]any{
		"prompt":     req.Prompt,
		"num_images": 1,
	}

	if len(req.ImageURLs) > 0 {
		model = NanoBananaEditModel
		aspect := req.AspectRatio
		if aspect == "" {
			aspect = "9:16"
		}
		input["image_urls"] = req.ImageURLs
		input["aspect_ratio"] = aspect
		input["resolution"] = "2K"
	} else {
		input["image_size"] = "square_hd"
	}

	payload, err := c.Run(ctx, model, input)
	if err != nil {
		return "", err
	}

	url := ExtractArtifactURL(payload)
	if url == "" {
		return "", malformed("fal", "no image url in response")
	}
	return url, nil
}

type falUploadInitiate struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// UploadBytes stores content in fal's CDN so fal models can read it.
func (c *FalClient) UploadBytes(ctx context.Context, content []byte, filename, contentType string) (string, error) {
	body, err := c.http.doRequest(ctx, http.MethodPost, c.storageURL+"/storage/upload/initiate?storage_type=fal-cdn-v3", map[string]string{
		"content_type": contentType,
		"file_name":    filename,
	})
	if err != nil {
		return "", err
	}

	var initiate falUploadInitiate
	if err := c.http.decode(body, &initiate); err != nil {
		return "", err
	}
	if initiate.UploadURL == "" || initiate.FileURL == "" {
		return "", malformed("fal", "upload initiate returned no urls")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, initiate.UploadURL, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("error creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error uploading to fal storage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(resp.Body)
		return "", newError("fal", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return initiate.FileURL, nil
}

type FalQueue struct {
	client *FalClient
	model  string
}

type falSubmitResponse struct {
	RequestID string `json:"request_id"`
}

type falStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (q *FalQueue) Name() string {
	return "fal:" + q.model
}

func (q *FalQueue) Submit(ctx context.Context, input map[string]any, callbackURL string) (string, error) {
	endpoint := q.client.queueURL + "/" + q.model
	if callbackURL != "" {
		endpoint += "?fal_webhook=" + url.QueryEscape(callbackURL)
	}

	body, err := q.client.http.doRequest(ctx, http.MethodPost, endpoint, input)
	if err != nil {
		return "", err
	}

	var resp falSubmitResponse
	if err := q.client.http.decode(body, &resp); err != nil {
		return "", err
	}
	if resp.RequestID == "" {
		return "", malformed("fal", "submit returned no request_id")
	}

	return resp.RequestID, nil
}

func (q *FalQueue) Poll(ctx context.Context, requestID string) (*PollResult, error) {
	base := fmt.Sprintf("%s/%s/requests/%s", q.client.queueURL, appID(q.model), requestID)

	body, err := q.client.http.doRequest(ctx, http.MethodGet, base+"/status", nil)
	if err != nil {
		if perr, ok := isClientError(err); ok {
			return &PollResult{State: PollFailed, Reason: perr.Error()}, nil
		}
		return nil, err
	}

	var status falStatusResponse
	if err := q.client.http.decode(body, &status); err != nil {
		return nil, err
	}

	switch status.Status {
	case "COMPLETED":
	case "FAILED", "ERROR":
		return &PollResult{State: PollFailed, Reason: status.Error}, nil
	default:
		return &PollResult{State: PollProcessing}, nil
	}

	body, err = q.client.http.doRequest(ctx, http.MethodGet, base, nil)
	if err != nil {
		if perr, ok := isClientError(err); ok {
			return &PollResult{State: PollFailed, Reason: perr.Error()}, nil
		}
		return nil, err
	}

	var payload map[string]any
	if err := q.client.http.decode(body, &payload); err != nil {
		return nil, err
	}

	return &PollResult{State: PollDone, ArtifactURL: ExtractArtifactURL(payload)}, nil
}

// appID is the owner/app prefix fal uses for queue status routes: the
// first two path segments of the model id.
func appID(model string) string {
	parts := strings.Split(model, "/")
	if len(parts) <= 2 {
		return model
	}
	return strings.Join(parts[:2], "/")
}

var (
	_ Submitter      = (*FalQueue)(nil)
	_ ImageGenerator = (*FalClient)(nil)
)
