package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cpplab-engine/internal/analyzer"
	"cpplab-engine/internal/cache"
	"cpplab-engine/internal/monitor"
	"cpplab-engine/internal/request"
	"cpplab-engine/internal/sandbox"
	"cpplab-engine/internal/storage"
	"cpplab-engine/internal/visualizer"
)

// ExecuteParams are the raw, unvalidated inputs of an execution request.
type ExecuteParams struct {
	Source   string
	Language string
	Stdin    string
	Flags    []string
	Timeout  time.Duration
	UserID   string
}

// ExecutionOutcome bundles the result with its advisories and fingerprint.
type ExecutionOutcome struct {
	Result      *sandbox.ExecutionResult
	Advisories  []monitor.Detection
	Fingerprint string
}

// Gateway is the single entry point for executions, analyses, and
// visualizations. It owns the order of concerns: validation, result cache,
// admission, remote engine with local fallback, then caching and statistics.
type Gateway struct {
	validator  *request.Validator
	cache      *cache.Cache
	queue      *sandbox.AdmissionQueue
	backend    sandbox.Backend
	remote     *RemoteClient
	analyzer   *analyzer.Analyzer
	visualizer *visualizer.Visualizer
	metrics    *monitor.Metrics
	tracer     *monitor.Tracer
	stats      *storage.StatsWriter
}

// Options carries the optional collaborators. Remote and Stats may be nil.
type Options struct {
	Remote  *RemoteClient
	Metrics *monitor.Metrics
	Tracer  *monitor.Tracer
	Stats   *storage.StatsWriter
}

// New wires a Gateway.
func New(validator *request.Validator, resultCache *cache.Cache, queue *sandbox.AdmissionQueue, backend sandbox.Backend, opts Options) *Gateway {
	return &Gateway{
		validator:  validator,
		cache:      resultCache,
		queue:      queue,
		backend:    backend,
		remote:     opts.Remote,
		analyzer:   analyzer.New(),
		visualizer: visualizer.New(),
		metrics:    opts.Metrics,
		tracer:     opts.Tracer,
		stats:      opts.Stats,
	}
}

// Execute runs the full pipeline for one request. Program-level failures
// come back inside the result; the error return carries validation errors,
// queue saturation, and engine unavailability.
func (g *Gateway) Execute(ctx context.Context, p ExecuteParams) (*ExecutionOutcome, error) {
	req, err := g.validator.ValidateExecution(p.Source, p.Language, p.Stdin, p.Flags, p.Timeout, p.UserID)
	if err != nil {
		return nil, err
	}

	fp := cache.ExecutionFingerprint(req)
	if cached, ok := g.cache.GetExecution(fp); ok {
		log.Debug().Str("fingerprint", fp[:12]).Msg("execution served from cache")
		g.notifyStats(cached, req, fp)
		return &ExecutionOutcome{Result: cached, Advisories: req.Advisories, Fingerprint: fp}, nil
	}

	execID := uuid.New().String()
	logger := log.With().
		Str("exec_id", execID).
		Str("language", string(req.Language)).
		Logger()

	ctx, span := g.startSpan(ctx, "execute", execID, string(req.Language))
	defer span.End()

	permit, err := g.queue.Enter(execID)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	if g.metrics != nil {
		g.metrics.CodeSizeBytes.Observe(float64(len(req.Source)))
	}
	logger.Info().
		Int("source_bytes", len(req.Source)).
		Dur("timeout", req.Timeout).
		Msg("execution:started")

	result, err := g.dispatch(ctx, execID, req, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("state", result.State.String()).
		Int("exit_code", result.ExitCode).
		Dur("wall_time", result.WallTime).
		Msg("execution:completed")

	span.SetAttributes(
		monitor.AttrFingerprint.String(fp),
		monitor.AttrState.String(result.State.String()),
		monitor.AttrCached.Bool(result.Cached),
		monitor.AttrDurationMS.Int64(result.WallTime.Milliseconds()),
	)

	if g.metrics != nil {
		g.metrics.RecordExecution(string(req.Language), result.State.String(), result.WallTime.Seconds())
		g.metrics.OutputSizeBytes.Observe(float64(len(result.Stdout) + len(result.Stderr)))
	}

	g.cache.PutExecution(fp, result)
	g.notifyStats(result, req, fp)
	return &ExecutionOutcome{Result: result, Advisories: req.Advisories, Fingerprint: fp}, nil
}

// dispatch tries the remote engine first and falls back to the local
// backend on any remote failure. ErrEngineUnavailable surfaces only when
// the local backend cannot serve either.
func (g *Gateway) dispatch(ctx context.Context, execID string, req *request.ExecutionRequest, logger zerolog.Logger) (*sandbox.ExecutionResult, error) {
	if g.remote != nil {
		result, err := g.remote.Execute(ctx, execID, req)
		if err == nil {
			return result, nil
		}
		logger.Warn().Err(err).Msg("remote engine failed, falling back to local backend")
		if g.metrics != nil {
			g.metrics.EngineFallbacks.Inc()
		}
	}

	result, err := g.backend.Execute(ctx, execID, req)
	if err != nil {
		logger.Error().Err(err).Msg("local backend failed")
		return nil, wrapUnavailable(execID, err)
	}
	return result, nil
}

// Compile runs only the compile phase, returning diagnostics.
func (g *Gateway) Compile(ctx context.Context, p ExecuteParams) (*ExecutionOutcome, error) {
	req, err := g.validator.ValidateExecution(p.Source, p.Language, "", p.Flags, p.Timeout, p.UserID)
	if err != nil {
		return nil, err
	}

	execID := uuid.New().String()
	permit, err := g.queue.Enter(execID)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	result, err := g.backend.Compile(ctx, execID, req)
	if err != nil {
		return nil, wrapUnavailable(execID, err)
	}
	return &ExecutionOutcome{Result: result, Advisories: req.Advisories}, nil
}

// Analyze serves a static analysis, cached by source content.
func (g *Gateway) Analyze(ctx context.Context, source, language string, categories []string) (*analyzer.Result, bool, error) {
	req, err := g.validator.ValidateAnalysis(source, language, categories)
	if err != nil {
		return nil, false, err
	}

	fp := cache.AnalysisFingerprint(req)
	if cached, ok := g.cache.GetAnalysis(fp); ok {
		return cached, true, nil
	}

	_, span := g.startSpan(ctx, "analyze", "", string(req.Language))
	defer span.End()

	result := g.analyzer.Analyze(req)
	if g.metrics != nil {
		g.metrics.AnalysesTotal.WithLabelValues(string(req.Language)).Inc()
	}
	g.cache.PutAnalysis(fp, result)
	return result, false, nil
}

// Visualize serves a memory or flow view, cached by source content.
func (g *Gateway) Visualize(ctx context.Context, source, language, kind string) (*visualizer.Result, bool, error) {
	req, err := g.validator.ValidateVisualization(source, language, kind)
	if err != nil {
		return nil, false, err
	}

	fp := cache.VisualizationFingerprint(req)
	if cached, ok := g.cache.GetVisualization(fp); ok {
		return cached, true, nil
	}

	result := g.visualizer.Visualize(req)
	if g.metrics != nil {
		g.metrics.VisualizationsTotal.WithLabelValues(req.Kind).Inc()
	}
	g.cache.PutVisualization(fp, result)
	return result, false, nil
}

// startSpan opens a tracing span when a tracer is configured; without one it
// returns the context's existing (usually noop) span.
func (g *Gateway) startSpan(ctx context.Context, name, execID, language string) (context.Context, trace.Span) {
	if g.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	attrs := []attribute.KeyValue{monitor.AttrLanguage.String(language)}
	if execID != "" {
		attrs = append(attrs, monitor.AttrExecID.String(execID))
	}
	return g.tracer.StartSpan(ctx, name, attrs...)
}

func wrapUnavailable(execID string, err error) error {
	return fmt.Errorf("%w: execution %s: %v", ErrEngineUnavailable, execID, err)
}

// notifyStats pushes the outcome to the statistics writer. Best effort, the
// writer drops on overload and never errors back.
func (g *Gateway) notifyStats(result *sandbox.ExecutionResult, req *request.ExecutionRequest, fp string) {
	if g.stats == nil {
		return
	}
	g.stats.Record(&storage.ExecutionStat{
		ID:         result.ID,
		UserID:     req.UserID,
		Language:   string(req.Language),
		Status:     result.State.String(),
		Success:    result.Success,
		DurationMS: result.WallTime.Milliseconds(),
		MemoryKB:   result.MemoryKB,
		CodeHash:   fp,
		Cached:     result.Cached,
		CreatedAt:  time.Now().UTC(),
	})
}
