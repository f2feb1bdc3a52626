// Package coordinator is the HTTP client for the external coordination
// service that performs content generation.
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vasilisp/postgen/internal/api"
	"github.com/vasilisp/postgen/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is where the coordinator listens in local development.
const DefaultBaseURL = "http://127.0.0.1:8000"

// StatusError is returned for any non-2xx coordinator response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("coordinator responded %s", e.Status)
	}
	return fmt.Sprintf("coordinator responded %s: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the coordinator at baseURL. No timeout is
// set; callers bound requests through their context.
func NewClient(baseURL string) *Client {
	util.Assert(baseURL != "", "NewClient empty baseURL")

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Start asks the coordinator to run a generation.
func (c *Client) Start(ctx context.Context, req api.StartRequest) (*api.StartResponse, error) {
	return c.post(ctx, api.StartPath, req)
}

// Continue forwards a user response to a conversation that is waiting for
// approval.
func (c *Client) Continue(ctx context.Context, req api.ContinueRequest) (*api.StartResponse, error) {
	return c.post(ctx, api.ContinuePath, req)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*api.StartResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(detail)),
		}
	}

	var result api.StartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
