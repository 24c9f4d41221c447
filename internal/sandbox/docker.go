package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"cpplab-engine/internal/config"
	"cpplab-engine/internal/monitor"
	"cpplab-engine/internal/request"
)

// DockerBackend runs each phase in a throwaway container driven through the
// docker CLI. The run phase gets no network and a hard memory cap from the
// container runtime instead of the ulimit shim.
type DockerBackend struct {
	cfg     config.SandboxConfig
	metrics *monitor.Metrics
	docker  string
}

// NewDockerBackend verifies the docker binary is reachable and returns the backend.
func NewDockerBackend(cfg config.SandboxConfig, metrics *monitor.Metrics) (*DockerBackend, error) {
	path, err := exec.LookPath("docker")
	if err != nil {
		return nil, fmt.Errorf("%w: docker binary not found", ErrToolchain)
	}
	return &DockerBackend{cfg: cfg, metrics: metrics, docker: path}, nil
}

func (b *DockerBackend) Name() string { return "docker" }

// Execute compiles in one container and runs in a second, both mounting the
// same scratch dir. Classification of terminal states matches the process
// backend so callers never see which backend served them.
func (b *DockerBackend) Execute(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error) {
	ws, err := NewWorkspace(b.cfg.WorkDir, execID)
	if err != nil {
		return nil, err
	}
	defer ws.Remove()

	result := &ExecutionResult{ID: execID, State: StateReceived}

	srcName := req.Language.SourceFileName()
	if _, err := ws.WriteSource(srcName, req.Source); err != nil {
		return nil, err
	}

	result.State = StateCompiling
	compileOut, compileErr := b.compileInContainer(ctx, execID, req, ws, srcName)
	result.Warnings, result.Errors = splitDiagnostics(compileOut)
	if compileErr != nil {
		if errors.Is(compileErr, ErrToolchain) {
			return nil, compileErr
		}
		result.State = StateCompileFailed
		result.Stderr = compileOut
		result.ExitCode = exitCodeOf(compileErr)
		return result, nil
	}
	result.State = StateCompiled

	result.State = StateRunning
	b.runInContainer(ctx, execID, req, ws, result)
	return result, nil
}

// Compile stops after the container compile phase.
func (b *DockerBackend) Compile(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error) {
	ws, err := NewWorkspace(b.cfg.WorkDir, execID)
	if err != nil {
		return nil, err
	}
	defer ws.Remove()

	srcName := req.Language.SourceFileName()
	if _, err := ws.WriteSource(srcName, req.Source); err != nil {
		return nil, err
	}

	result := &ExecutionResult{ID: execID, State: StateCompiling}
	out, compileErr := b.compileInContainer(ctx, execID, req, ws, srcName)
	result.Warnings, result.Errors = splitDiagnostics(out)
	if compileErr != nil {
		if errors.Is(compileErr, ErrToolchain) {
			return nil, compileErr
		}
		result.State = StateCompileFailed
		result.Stderr = out
		result.ExitCode = exitCodeOf(compileErr)
		return result, nil
	}
	result.State = StateCompiled
	result.Success = true
	return result, nil
}

func (b *DockerBackend) compileInContainer(ctx context.Context, execID string, req *request.ExecutionRequest, ws *Workspace, srcName string) (string, error) {
	compiler := "g++"
	if req.Language.IsC() {
		compiler = "gcc"
	}

	compileCmd := []string{compiler, req.Language.StdFlag()}
	compileCmd = append(compileCmd, baselineFlags...)
	compileCmd = append(compileCmd, req.Flags...)
	compileCmd = append(compileCmd, "-o", "/work/program", "/work/"+srcName)

	args := []string{
		"run", "--rm",
		"--network=none",
		"-v", ws.Dir + ":/work",
		b.cfg.DockerImage,
	}
	args = append(args, compileCmd...)

	cctx, cancel := context.WithTimeout(ctx, b.cfg.CompileTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, b.docker, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Exit 125 means the docker invocation itself failed, for
			// example a missing image.
			if exitErr.ExitCode() == 125 {
				log.Error().
					Str("exec_id", execID).
					Str("image", b.cfg.DockerImage).
					Msg("container launch failed")
				return "", wrapErr(execID, "compile", fmt.Errorf("%w: %s", ErrToolchain, strings.TrimSpace(string(out))))
			}
			return string(out), err
		}
		return "", wrapErr(execID, "compile", fmt.Errorf("%w: %v", ErrToolchain, err))
	}
	return string(out), nil
}

// containerName gives the run container a deterministic handle so a timed-out
// execution can be force-removed by name.
func containerName(execID string) string {
	return "exec-" + execID
}

// removeContainer force-removes a container left behind after the CLI client
// was killed. Best effort, a failure is logged and the run is still reported
// as timed out.
func (b *DockerBackend) removeContainer(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, b.docker, "rm", "-f", name).CombinedOutput()
	if err != nil {
		log.Warn().
			Str("container", name).
			Str("output", strings.TrimSpace(string(out))).
			Err(err).
			Msg("orphaned container cleanup failed")
	}
}

func (b *DockerBackend) runInContainer(ctx context.Context, execID string, req *request.ExecutionRequest, ws *Workspace, result *ExecutionResult) {
	outLimit := b.cfg.OutputLimitKB * 1024
	stdout := newCappedBuffer(int(outLimit))
	stderr := newCappedBuffer(int(outLimit))

	name := containerName(execID)
	args := []string{
		"run", "--rm", "-i",
		"--name", name,
		"--network=none",
		"--memory", fmt.Sprintf("%dm", b.cfg.MemoryLimitMB),
		"--memory-swap", fmt.Sprintf("%dm", b.cfg.MemoryLimitMB),
		"--pids-limit", "64",
		"-v", ws.Dir + ":/work:ro",
		b.cfg.DockerImage,
		"/work/program",
	}

	rctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	cmd := exec.CommandContext(rctx, b.docker, args...)
	cmd.Stdin = strings.NewReader(req.Stdin)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	result.WallTime = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if rctx.Err() == context.DeadlineExceeded {
		// The deadline only kills the CLI client. The container itself keeps
		// running until the daemon is told to remove it.
		b.removeContainer(name)
		result.State = StateTimedOut
		result.ExitCode = -1
		return
	}

	result.ExitCode = exitCodeOf(err)
	switch {
	case err == nil:
		result.State = StateCompleted
		result.Success = true
	// 137 is the runtime's OOM kill; bad_alloc covers allocations the
	// allocator refused before the cgroup limit hit.
	case result.ExitCode == 137 || strings.Contains(result.Stderr, "bad_alloc"):
		result.State = StateMemoryExceeded
	default:
		result.State = StateRuntimeError
	}
}
