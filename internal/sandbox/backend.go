package sandbox

import (
	"context"
	"fmt"

	"cpplab-engine/internal/config"
	"cpplab-engine/internal/monitor"
	"cpplab-engine/internal/request"
)

// Backend compiles and runs a program inside some isolation boundary.
type Backend interface {
	// Execute runs the full compile-and-run cycle. Program-level outcomes
	// are carried in the result; the error is for infrastructure failures.
	Execute(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error)

	// Compile stops after the compile phase, returning diagnostics
	// without running the artifact.
	Compile(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// NewBackend selects a backend from configuration.
func NewBackend(cfg config.SandboxConfig, metrics *monitor.Metrics) (Backend, error) {
	switch cfg.Backend {
	case "process":
		return &processBackend{runner: NewRunner(cfg, metrics)}, nil
	case "docker":
		return NewDockerBackend(cfg, metrics)
	default:
		return nil, fmt.Errorf("unknown sandbox backend %q", cfg.Backend)
	}
}

type processBackend struct {
	runner *Runner
}

func (b *processBackend) Execute(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error) {
	return b.runner.Execute(ctx, execID, req)
}

func (b *processBackend) Compile(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error) {
	return b.runner.CompileOnly(ctx, execID, req)
}

func (b *processBackend) Name() string { return "process" }
