package compiler

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/storyreel/storyreel-agent/internal/studio"
)

// Compiler is the remote media compiler surface the orchestrator polls.
type Compiler interface {
	Submit(ctx context.Context, spec RenderSpec) (JobState, error)
	Poll(ctx context.Context, remoteID string) (JobState, error)
	Cancel(ctx context.Context, remoteID string) error
}

// CompileError is a non-2xx response from the compiler service.
type CompileError struct {
	StatusCode int
	Body       string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiler request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and false for client
// errors (4xx), which are permanent.
func (e *CompileError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient talks to a real compiler service over JSON/HTTP.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) Submit(ctx context.Context, spec RenderSpec) (JobState, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return JobState{}, fmt.Errorf("marshal render spec: %w", err)
	}

	c.logger.Info("submitting render",
		"scene_count", len(spec.Scenes),
		"total_duration_sec", spec.TotalDurationSec,
		"format", spec.Settings.Format,
		"quality", spec.Settings.Quality,
		"body_bytes", len(body),
	)

	var state JobState
	if err := c.do(ctx, http.MethodPost, "/api/render", bytes.NewReader(body), &state); err != nil {
		return JobState{}, err
	}
	if state.Status == "" {
		state.Status = studio.RenderStatusQueued
	}
	return state, nil
}

func (c *HTTPClient) Poll(ctx context.Context, remoteID string) (JobState, error) {
	var state JobState
	err := c.do(ctx, http.MethodGet, "/api/render/"+remoteID, nil, &state)
	return state, err
}

func (c *HTTPClient) Cancel(ctx context.Context, remoteID string) error {
	return c.do(ctx, http.MethodPost, "/api/render/"+remoteID+"/cancel", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", generateRequestID())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &CompileError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode compiler response: %w", err)
	}
	return nil
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
