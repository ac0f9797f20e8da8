package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type httpClient struct {
	provider   string
	baseURL    string
	authHeader string
	authValue  string
	client     *http.Client
}

// doRequest sends data as JSON to endpoint, which is either absolute or
// relative to baseURL. Non-2xx responses come back as *Error.
func (c *httpClient) doRequest(ctx context.Context, method, endpoint string, data any) ([]byte, error) {
	url := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		url = c.baseURL + endpoint
	}

	var requestBody io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		requestBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, requestBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set(c.authHeader, c.authValue)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making %s request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s response body: %w", c.provider, err)
	}

	if resp.StatusCode >= 400 {
		return nil, newError(c.provider, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func (c *httpClient) decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return malformed(c.provider, err.Error())
	}
	return nil
}

// isClientError reports a 4xx *Error that is a final answer about the
// request. Auth, timeout and rate-limit statuses say nothing about the job
// and stay transient, like 5xx.
func isClientError(err error) (*Error, bool) {
	var perr *Error
	if !errors.As(err, &perr) {
		return nil, false
	}
	switch perr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return perr, false
	}
	return perr, perr.StatusCode >= 400 && perr.StatusCode < 500
}
