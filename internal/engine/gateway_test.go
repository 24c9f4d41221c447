package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cpplab-engine/internal/cache"
	"cpplab-engine/internal/config"
	"cpplab-engine/internal/request"
	"cpplab-engine/internal/sandbox"
)

type fakeBackend struct {
	calls  atomic.Int64
	result *sandbox.ExecutionResult
	err    error
}

func (b *fakeBackend) Execute(ctx context.Context, execID string, req *request.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	res := *b.result
	res.ID = execID
	return &res, nil
}

func (b *fakeBackend) Compile(ctx context.Context, execID string, req *request.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return &sandbox.ExecutionResult{ID: execID, State: sandbox.StateCompiled, Success: true}, nil
}

func (b *fakeBackend) Name() string { return "fake" }

func newTestGateway(backend sandbox.Backend, slots int, remote *RemoteClient) *Gateway {
	cfg := config.DefaultConfig()
	validator := request.NewValidator(cfg.Limits, nil)
	resultCache := cache.New(cfg.Cache, nil)
	queue := sandbox.NewAdmissionQueue(slots, nil)
	return New(validator, resultCache, queue, backend, Options{Remote: remote})
}

func okBackend() *fakeBackend {
	return &fakeBackend{result: &sandbox.ExecutionResult{
		State:    sandbox.StateCompleted,
		Success:  true,
		Stdout:   "hello\n",
		WallTime: 5 * time.Millisecond,
	}}
}

var helloParams = ExecuteParams{
	Source:   "#include <stdio.h>\nint main(void){printf(\"hello\\n\");return 0;}",
	Language: "c11",
}

func TestExecute(t *testing.T) {
	backend := okBackend()
	g := newTestGateway(backend, 2, nil)

	out, err := g.Execute(context.Background(), helloParams)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Result.Success || out.Result.Stdout != "hello\n" {
		t.Errorf("result = %+v", out.Result)
	}
	if out.Result.Cached {
		t.Error("fresh result marked cached")
	}
	if out.Fingerprint == "" {
		t.Error("fingerprint missing")
	}
}

func TestExecute_CacheHit(t *testing.T) {
	backend := okBackend()
	g := newTestGateway(backend, 2, nil)

	if _, err := g.Execute(context.Background(), helloParams); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	out, err := g.Execute(context.Background(), helloParams)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if !out.Result.Cached {
		t.Error("second identical request not served from cache")
	}
	if backend.calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls.Load())
	}
}

func TestExecute_ValidationError(t *testing.T) {
	g := newTestGateway(okBackend(), 2, nil)

	_, err := g.Execute(context.Background(), ExecuteParams{Source: "x", Language: "fortran"})
	if !errors.Is(err, request.ErrUnsupportedLanguage) {
		t.Errorf("error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestExecute_QueueSaturated(t *testing.T) {
	g := newTestGateway(okBackend(), 1, nil)

	// Occupy the single slot directly.
	permit, err := gQueue(g).Enter("holder")
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	defer permit.Release()

	_, err = g.Execute(context.Background(), helloParams)
	if !errors.Is(err, sandbox.ErrQueueSaturated) {
		t.Errorf("error = %v, want ErrQueueSaturated", err)
	}
}

func gQueue(g *Gateway) *sandbox.AdmissionQueue { return g.queue }

func TestExecute_BackendFailure(t *testing.T) {
	g := newTestGateway(&fakeBackend{err: sandbox.ErrToolchain}, 2, nil)

	_, err := g.Execute(context.Background(), helloParams)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("error = %v, want ErrEngineUnavailable", err)
	}
}

func TestExecute_RemoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"r1","status":"completed","success":true,"stdout":"remote\n","exit_code":0,"duration_ms":3}`))
	}))
	defer srv.Close()

	backend := okBackend()
	remote := NewRemoteClient(config.EngineConfig{URL: srv.URL, TimeoutPadding: 2 * time.Second})
	g := newTestGateway(backend, 2, remote)

	out, err := g.Execute(context.Background(), helloParams)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Result.Stdout != "remote\n" {
		t.Errorf("stdout = %q, want remote result", out.Result.Stdout)
	}
	if backend.calls.Load() != 0 {
		t.Error("local backend called despite remote success")
	}
}

func TestExecute_RemoteFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"unknown status", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"sideways"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			backend := okBackend()
			remote := NewRemoteClient(config.EngineConfig{URL: srv.URL, TimeoutPadding: 2 * time.Second})
			g := newTestGateway(backend, 2, remote)

			out, err := g.Execute(context.Background(), helloParams)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if out.Result.Stdout != "hello\n" {
				t.Errorf("stdout = %q, want local fallback result", out.Result.Stdout)
			}
			if backend.calls.Load() != 1 {
				t.Errorf("backend calls = %d, want 1", backend.calls.Load())
			}
		})
	}
}

func TestNewRemoteClient_EmptyURL(t *testing.T) {
	if NewRemoteClient(config.EngineConfig{}) != nil {
		t.Error("empty URL must produce a nil client")
	}
}

func TestCompile(t *testing.T) {
	g := newTestGateway(okBackend(), 2, nil)

	out, err := g.Compile(context.Background(), helloParams)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if out.Result.State != sandbox.StateCompiled {
		t.Errorf("state = %s, want compiled", out.Result.State)
	}
}

func TestAnalyze_Cached(t *testing.T) {
	g := newTestGateway(okBackend(), 2, nil)

	src := `int main() { return 0; }`
	_, cached, err := g.Analyze(context.Background(), src, "c11", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if cached {
		t.Error("first analysis marked cached")
	}
	_, cached, err = g.Analyze(context.Background(), src, "c11", nil)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if !cached {
		t.Error("repeat analysis not served from cache")
	}
}

func TestVisualize(t *testing.T) {
	g := newTestGateway(okBackend(), 2, nil)

	res, cached, err := g.Visualize(context.Background(), "int x = 1;", "c11", "memory")
	if err != nil {
		t.Fatalf("Visualize: %v", err)
	}
	if cached {
		t.Error("first visualization marked cached")
	}
	if res.Kind != "memory" || res.Memory == nil {
		t.Errorf("result = %+v", res)
	}
}
