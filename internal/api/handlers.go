package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"cpplab-engine/internal/engine"
	"cpplab-engine/internal/request"
	"cpplab-engine/internal/sandbox"
)

// Handlers serves the HTTP API on top of the gateway.
type Handlers struct {
	gateway     *engine.Gateway
	queue       *sandbox.AdmissionQueue
	backendName string
	started     time.Time
}

// NewHandlers wires the handler set.
func NewHandlers(gateway *engine.Gateway, queue *sandbox.AdmissionQueue, backendName string) *Handlers {
	return &Handlers{
		gateway:     gateway,
		queue:       queue,
		backendName: backendName,
		started:     time.Now(),
	}
}

// Execute handles POST /api/execute.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	out, err := h.gateway.Execute(r.Context(), engine.ExecuteParams{
		Source:   req.Source,
		Language: req.Language,
		Stdin:    req.Stdin,
		Flags:    req.Flags,
		Timeout:  time.Duration(req.TimeoutSeconds * float64(time.Second)),
		UserID:   req.UserID,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, executeResponseFrom(out.Result, out.Advisories))
}

// Compile handles POST /api/compile, returning diagnostics without running.
func (h *Handlers) Compile(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	out, err := h.gateway.Compile(r.Context(), engine.ExecuteParams{
		Source:   req.Source,
		Language: req.Language,
		Flags:    req.Flags,
		UserID:   req.UserID,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, executeResponseFrom(out.Result, out.Advisories))
}

// Analyze handles POST /api/analyze.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, cached, err := h.gateway.Analyze(r.Context(), req.Source, req.Language, req.Categories)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &AnalyzeResponse{Cached: cached, Result: result})
}

// Visualize handles POST /api/visualize.
func (h *Handlers) Visualize(w http.ResponseWriter, r *http.Request) {
	var req VisualizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, cached, err := h.gateway.Visualize(r.Context(), req.Source, req.Language, req.Kind)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &VisualizeResponse{Cached: cached, Result: result})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &HealthResponse{
		Status:        "ok",
		Backend:       h.backendName,
		UptimeSeconds: time.Since(h.started).Seconds(),
		QueueInUse:    h.queue.InUse(),
		QueueCapacity: h.queue.Capacity(),
		Languages:     request.SupportedLanguages(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

// writeMappedError translates gateway errors into the HTTP taxonomy.
func writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, request.ErrValidation), errors.Is(err, request.ErrUnsupportedLanguage):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, sandbox.ErrQueueSaturated):
		writeError(w, http.StatusServiceUnavailable, CodeQueueSaturated, "execution queue is full, retry shortly")
	case errors.Is(err, engine.ErrEngineUnavailable):
		writeError(w, http.StatusServiceUnavailable, CodeEngineUnavailable, "execution engine unavailable")
	default:
		log.Error().Err(err).Msg("unclassified handler error")
		writeError(w, http.StatusInternalServerError, CodeExecutionFailed, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}
