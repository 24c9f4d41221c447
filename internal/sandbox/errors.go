package sandbox

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates the program exceeded its wall-clock limit.
	ErrTimeout = errors.New("execution timed out")

	// ErrMemoryExceeded indicates the program exceeded its memory ceiling.
	ErrMemoryExceeded = errors.New("memory limit exceeded")

	// ErrOutputLimit indicates combined stdout/stderr exceeded the output cap.
	ErrOutputLimit = errors.New("output limit exceeded")

	// ErrToolchain indicates the compiler itself could not be invoked.
	ErrToolchain = errors.New("toolchain unavailable")

	// ErrQueueSaturated indicates the admission queue rejected the request.
	ErrQueueSaturated = errors.New("execution queue saturated")

	// ErrWorkspace indicates scratch directory setup or teardown failed.
	ErrWorkspace = errors.New("workspace setup failed")
)

// ExecutionError wraps a failure with the execution it belongs to and the
// operation that produced it.
type ExecutionError struct {
	ExecID string
	Op     string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution %s: %s: %v", e.ExecID, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func wrapErr(execID, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionError{ExecID: execID, Op: op, Err: err}
}
