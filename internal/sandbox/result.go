package sandbox

import "time"

// ExecutionResult is the outcome of a compile-and-run cycle. Every terminal
// state produces a result; the error return of Execute is reserved for
// infrastructure failures.
type ExecutionResult struct {
	ID       string        `json:"id"`
	State    State         `json:"-"`
	Success  bool          `json:"success"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	WallTime time.Duration `json:"wall_time"`

	// MemoryKB is the program's peak resident set size in kilobytes, zero
	// when the backend cannot observe it.
	MemoryKB int64 `json:"memory_kb"`

	// Compiler diagnostics, split by severity marker.
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`

	// Cached marks a result served from the result cache rather than a
	// fresh execution.
	Cached bool `json:"cached"`
}

// StateName returns the lifecycle state as its wire string.
func (r *ExecutionResult) StateName() string {
	return r.State.String()
}
