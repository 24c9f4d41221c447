package api

import (
	"cpplab-engine/internal/analyzer"
	"cpplab-engine/internal/monitor"
	"cpplab-engine/internal/sandbox"
	"cpplab-engine/internal/visualizer"
)

// ExecuteRequest is the wire form of an execution request.
type ExecuteRequest struct {
	Source         string   `json:"source"`
	Language       string   `json:"language"`
	Stdin          string   `json:"stdin,omitempty"`
	Flags          []string `json:"flags,omitempty"`
	TimeoutSeconds float64  `json:"timeout_seconds,omitempty"`
	UserID         string   `json:"user_id,omitempty"`
}

// Advisory is a dangerous-pattern detection surfaced to the caller. It never
// blocks the execution.
type Advisory struct {
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
	Line     int    `json:"line"`
}

// ExecuteResponse is the wire form of an execution outcome. Compile errors,
// timeouts, and crashes are carried here with a 200 status; transport-level
// errors use ErrorResponse instead.
type ExecuteResponse struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Success    bool       `json:"success"`
	Stdout     string     `json:"stdout"`
	Stderr     string     `json:"stderr"`
	ExitCode   int        `json:"exit_code"`
	DurationMS int64      `json:"duration_ms"`
	MemoryKB   int64      `json:"memory_kb"`
	Cached     bool       `json:"cached"`
	Warnings   []string   `json:"warnings,omitempty"`
	Errors     []string   `json:"errors,omitempty"`
	Advisories []Advisory `json:"advisories,omitempty"`
}

func executeResponseFrom(result *sandbox.ExecutionResult, advisories []monitor.Detection) *ExecuteResponse {
	resp := &ExecuteResponse{
		ID:         result.ID,
		Status:     result.State.String(),
		Success:    result.Success,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ExitCode,
		DurationMS: result.WallTime.Milliseconds(),
		MemoryKB:   result.MemoryKB,
		Cached:     result.Cached,
		Warnings:   result.Warnings,
		Errors:     result.Errors,
	}
	for _, d := range advisories {
		resp.Advisories = append(resp.Advisories, Advisory{
			Pattern:  d.Pattern,
			Severity: d.Severity,
			Detail:   d.Detail,
			Line:     d.Line,
		})
	}
	return resp
}

// AnalyzeRequest is the wire form of a static analysis request.
type AnalyzeRequest struct {
	Source     string   `json:"source"`
	Language   string   `json:"language"`
	Categories []string `json:"categories,omitempty"`
}

// AnalyzeResponse wraps the analysis with its cache disposition.
type AnalyzeResponse struct {
	Cached bool `json:"cached"`
	*analyzer.Result
}

// VisualizeRequest is the wire form of a visualization request.
type VisualizeRequest struct {
	Source   string `json:"source"`
	Language string `json:"language"`
	Kind     string `json:"kind,omitempty"`
}

// VisualizeResponse wraps the visualization with its cache disposition.
type VisualizeResponse struct {
	Cached bool `json:"cached"`
	*visualizer.Result
}

// ErrorResponse is the wire form of a transport-level failure.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable code and human message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned in ErrorBody.Code.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeQueueSaturated    = "QUEUE_SATURATED"
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeExecutionFailed   = "EXECUTION_FAILED"
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimited       = "RATE_LIMITED"
)

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status        string   `json:"status"`
	Backend       string   `json:"backend"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	QueueInUse    int      `json:"queue_in_use"`
	QueueCapacity int      `json:"queue_capacity"`
	Languages     []string `json:"languages"`
}
