package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"cpplab-engine/internal/config"
	"cpplab-engine/internal/monitor"
	"cpplab-engine/internal/request"
)

// baselineFlags are always passed to the compiler, before any user flags.
var baselineFlags = []string{"-Wall", "-Wextra", "-pedantic", "-O2"}

// Runner compiles and runs programs as local host processes. Memory is
// bounded with an address-space rlimit applied through a shell shim, output
// with a capped buffer, and wall time with a context deadline that kills the
// whole process group.
type Runner struct {
	cfg     config.SandboxConfig
	metrics *monitor.Metrics
}

// NewRunner builds a process-backed Runner. metrics may be nil.
func NewRunner(cfg config.SandboxConfig, metrics *monitor.Metrics) *Runner {
	return &Runner{cfg: cfg, metrics: metrics}
}

// Execute runs the full compile-and-run cycle. Program-level failures
// (compile errors, timeouts, crashes) come back inside the result; the error
// return is reserved for infrastructure problems such as a missing toolchain
// or an unusable scratch dir.
func (r *Runner) Execute(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error) {
	ws, err := NewWorkspace(r.cfg.WorkDir, execID)
	if err != nil {
		return nil, err
	}
	defer ws.Remove()

	result := &ExecutionResult{ID: execID, State: StateReceived}

	srcPath, err := ws.WriteSource(req.Language.SourceFileName(), req.Source)
	if err != nil {
		return nil, err
	}

	result.State = StateCompiling
	compileOut, compileErr := r.compile(ctx, execID, req, srcPath, ws.BinaryPath())
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
	r.run(ctx, execID, req, ws.BinaryPath(), result)
	return result, nil
}

// CompileOnly stops after compilation, returning split diagnostics without
// running the artifact.
func (r *Runner) CompileOnly(ctx context.Context, execID string, req *request.ExecutionRequest) (*ExecutionResult, error) {
	ws, err := NewWorkspace(r.cfg.WorkDir, execID)
	if err != nil {
		return nil, err
	}
	defer ws.Remove()

	srcPath, err := ws.WriteSource(req.Language.SourceFileName(), req.Source)
	if err != nil {
		return nil, err
	}

	result := &ExecutionResult{ID: execID, State: StateCompiling}
	out, compileErr := r.compile(ctx, execID, req, srcPath, ws.BinaryPath())
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

func (r *Runner) compile(ctx context.Context, execID string, req *request.ExecutionRequest, srcPath, binPath string) (string, error) {
	compiler := r.cfg.GXXPath
	if req.Language.IsC() {
		compiler = r.cfg.GCCPath
	}

	args := []string{req.Language.StdFlag()}
	args = append(args, baselineFlags...)
	args = append(args, req.Flags...)
	args = append(args, "-o", binPath, srcPath)

	cctx, cancel := context.WithTimeout(ctx, r.cfg.CompileTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, compiler, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", wrapErr(execID, "compile", fmt.Errorf("%w: %s not found", ErrToolchain, compiler))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Debug().
				Str("exec_id", execID).
				Int("exit_code", exitErr.ExitCode()).
				Msg("compilation failed")
			return string(out), err
		}
		if cctx.Err() != nil {
			return string(out), fmt.Errorf("compile timeout: %w", cctx.Err())
		}
		return "", wrapErr(execID, "compile", fmt.Errorf("%w: %v", ErrToolchain, err))
	}
	return string(out), nil
}

// run executes the compiled artifact and fills in the terminal state of the
// result. The binary is launched in its own process group under a shell that
// applies the address-space ulimit, so a kill reaches any children it spawned.
func (r *Runner) run(ctx context.Context, execID string, req *request.ExecutionRequest, binPath string, result *ExecutionResult) {
	memKB := r.cfg.MemoryLimitMB * 1024
	shim := fmt.Sprintf("ulimit -v %d; exec %q", memKB, binPath)

	outLimit := r.cfg.OutputLimitKB * 1024
	stdout := newCappedBuffer(int(outLimit))
	stderr := newCappedBuffer(int(outLimit))

	rctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	cmd := exec.Command("/bin/sh", "-c", shim)
	cmd.Stdin = strings.NewReader(req.Stdin)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		result.State = StateRuntimeError
		result.Stderr = err.Error()
		result.ExitCode = -1
		return
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case <-rctx.Done():
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		result.State = StateTimedOut
	case waitErr = <-done:
	}

	result.WallTime = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.MemoryKB = peakRSSKB(cmd)

	if result.State == StateTimedOut {
		result.ExitCode = -1
		log.Info().
			Str("exec_id", execID).
			Dur("wall_time", result.WallTime).
			Msg("execution timed out")
		return
	}

	result.ExitCode = exitCodeOf(waitErr)
	switch {
	case waitErr == nil:
		result.State = StateCompleted
		result.Success = true
	case killedByMemory(waitErr, result.Stderr):
		result.State = StateMemoryExceeded
	default:
		result.State = StateRuntimeError
	}
}

// peakRSSKB reads the child's maximum resident set size after Wait has
// reaped it. The shell shim execs into the program, so the rusage belongs
// to the program itself. Linux reports ru_maxrss in kilobytes.
func peakRSSKB(cmd *exec.Cmd) int64 {
	ps := cmd.ProcessState
	if ps == nil {
		return 0
	}
	ru, ok := ps.SysUsage().(*syscall.Rusage)
	if !ok {
		return 0
	}
	return ru.Maxrss
}

// killedByMemory classifies a run failure as a memory-ceiling hit. Under the
// address-space rlimit an allocation failure shows up either as a SIGKILL'd
// process or as a std::bad_alloc reaching the default terminate handler.
func killedByMemory(err error, stderr string) bool {
	if strings.Contains(stderr, "bad_alloc") {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return status.Signaled() && status.Signal() == syscall.SIGKILL
		}
	}
	return false
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// splitDiagnostics buckets compiler output lines by their severity marker.
func splitDiagnostics(out string) (warnings, errs []string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.Contains(line, "error:"):
			errs = append(errs, line)
		case strings.Contains(line, "warning:"):
			warnings = append(warnings, line)
		}
	}
	return warnings, errs
}
