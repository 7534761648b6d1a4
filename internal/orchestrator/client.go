// package orchestrator is the client-side boundary to the external workflow
// engine. The engine owns the authoritative lifecycle of a proposal once a
// signal is delivered; this package only reports whether delivery happened.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrWorkflowNotFound is returned when the orchestrator reports that the
// target workflow instance does not exist.
var ErrWorkflowNotFound = errors.New("workflow not found")

// SignalRequest is one named message for a long-running workflow instance.
type SignalRequest struct {
	WorkflowID string                 `json:"workflowId"`
	SignalName string                 `json:"signalName"`
	SignalArgs map[string]interface{} `json:"signalArgs,omitempty"`
}

// Client delivers signals to the orchestrator. Acknowledgement means the
// signal was received, not that the workflow has processed it.
type Client interface {
	Signal(ctx context.Context, req SignalRequest) error
}

type HTTPClientConfig struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPClient talks to the orchestrator's signal endpoint over HTTP. Signals
// are never retried here: redelivery is not idempotent on the orchestrator
// side, so retry stays a deliberate user action.
type HTTPClient struct {
	baseURL string
	path    string
	client  *http.Client
	timeout time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("orchestrator base url required")
	}
	path := cfg.Path
	if path == "" {
		path = "/api/workflows/signal"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		path:    path,
		client:  client,
		timeout: timeout,
	}, nil
}

// Signal posts the request and maps the response to a delivery outcome.
// Error messages prefer the orchestrator's structured body, then the HTTP
// status text, then a generic fallback; a malformed error body is never
// allowed to fail the mapping itself.
func (c *HTTPClient) Signal(ctx context.Context, req SignalRequest) error {
	if req.WorkflowID == "" {
		return fmt.Errorf("orchestrator signal: workflow id required")
	}
	if req.SignalName == "" {
		return fmt.Errorf("orchestrator signal: signal name required")
	}
	if req.SignalArgs == nil {
		req.SignalArgs = map[string]interface{}{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("orchestrator marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("orchestrator build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("orchestrator unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := errorMessage(resp)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, msg)
	}
	return fmt.Errorf("orchestrator signal failed: %s", msg)
}

// errorMessage extracts the most specific human-readable message available
// from a non-success response.
func errorMessage(resp *http.Response) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Details != "" {
			return body.Details
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if resp.Status != "" {
		return resp.Status
	}
	return "failed to send signal"
}
