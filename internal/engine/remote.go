package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cpplab-engine/internal/config"
	"cpplab-engine/internal/request"
	"cpplab-engine/internal/sandbox"
)

// ErrEngineUnavailable indicates neither the remote engine nor the local
// fallback could serve the execution.
var ErrEngineUnavailable = errors.New("execution engine unavailable")

// errRemote marks any remote failure that should trigger the local fallback.
var errRemote = errors.New("remote engine error")

// RemoteClient forwards executions to a dedicated engine service. Any
// failure, transport, status, or decode, is reported as errRemote so the
// gateway falls back to the local backend.
type RemoteClient struct {
	url     string
	padding time.Duration
	client  *http.Client
}

// NewRemoteClient returns nil when no engine URL is configured.
func NewRemoteClient(cfg config.EngineConfig) *RemoteClient {
	if cfg.URL == "" {
		return nil
	}
	return &RemoteClient{
		url:     cfg.URL,
		padding: cfg.TimeoutPadding,
		client:  &http.Client{},
	}
}

type remoteRequest struct {
	Source         string   `json:"source"`
	Language       string   `json:"language"`
	Stdin          string   `json:"stdin,omitempty"`
	Flags          []string `json:"flags,omitempty"`
	TimeoutSeconds float64  `json:"timeout_seconds"`
}

type remoteResponse struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Success    bool     `json:"success"`
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	ExitCode   int      `json:"exit_code"`
	DurationMS int64    `json:"duration_ms"`
	MemoryKB   int64    `json:"memory_kb"`
	Warnings   []string `json:"warnings,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// Execute forwards the request. The HTTP deadline is the program timeout
// plus a padding allowance for compile and transport time.
func (c *RemoteClient) Execute(ctx context.Context, execID string, req *request.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	body, err := json.Marshal(remoteRequest{
		Source:         req.Source,
		Language:       string(req.Language),
		Stdin:          req.Stdin,
		Flags:          req.Flags,
		TimeoutSeconds: req.Timeout.Seconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", errRemote, err)
	}

	rctx, cancel := context.WithTimeout(ctx, req.Timeout+c.padding)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(rctx, http.MethodPost, c.url+"/api/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRemote, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Exec-ID", execID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", errRemote, resp.StatusCode)
	}

	var wire remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errRemote, err)
	}

	state, ok := sandbox.StateFromName(wire.Status)
	if !ok || !state.Terminal() {
		return nil, fmt.Errorf("%w: unrecognized status %q", errRemote, wire.Status)
	}

	return &sandbox.ExecutionResult{
		ID:       execID,
		State:    state,
		Success:  wire.Success,
		Stdout:   wire.Stdout,
		Stderr:   wire.Stderr,
		ExitCode: wire.ExitCode,
		WallTime: time.Duration(wire.DurationMS) * time.Millisecond,
		MemoryKB: wire.MemoryKB,
		Warnings: wire.Warnings,
		Errors:   wire.Errors,
	}, nil
}
