// Package analyzer provides the HTTP client for the external model-based
// risk analyzer sidecar.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// ErrUnavailable indicates the analyzer service is unreachable.
var ErrUnavailable = errors.New("risk analyzer service unavailable")

// Result is the response body from POST /analyze. Fields may be absent or
// out of range; callers are expected to sanitize before use.
type Result struct {
	Score           float64  `json:"score"`
	Category        string   `json:"category"`
	Severity        string   `json:"severity"`
	Indicators      []string `json:"indicators"`
	Recommendations []string `json:"recommendations"`
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type healthResponse struct {
	ModelVersion string `json:"model_version"`
}

// Client is an HTTP client for the analyzer sidecar.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an analyzer client. A non-positive timeout falls back
// to the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze sends the text for model-based risk analysis. The call is
// bounded by the client timeout and the caller's context, whichever ends
// first; a late result is simply discarded with the abandoned request.
func (c *Client) Analyze(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned %d", resp.StatusCode)
	}

	var result Result
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("decode analyze response: %w", decodeErr)
	}

	return &result, nil
}

// Health checks whether the analyzer sidecar is reachable and healthy.
func (c *Client) Health(ctx context.Context) (modelVersion string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}

	var health healthResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&health); decodeErr == nil {
		modelVersion = health.ModelVersion
	}
	return modelVersion, nil
}
