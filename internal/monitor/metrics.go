package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	Registry *prometheus.Registry

	ExecutionsTotal     *prometheus.CounterVec
	ExecutionDuration   *prometheus.HistogramVec
	AnalysesTotal       *prometheus.CounterVec
	VisualizationsTotal *prometheus.CounterVec
	CacheHits           *prometheus.CounterVec
	CacheMisses         *prometheus.CounterVec
	AdmissionRejections prometheus.Counter
	EngineFallbacks     prometheus.Counter
	ActiveExecutions    prometheus.Gauge
	AdvisoryFlags       *prometheus.CounterVec
	RequestsInFlight    prometheus.Gauge
	CodeSizeBytes       prometheus.Histogram
	OutputSizeBytes     prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "executions_total",
				Help:      "Total number of code executions by language and terminal state.",
			},
			[]string{"language", "state"},
		),

		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "engine",
				Name:      "execution_duration_seconds",
				Help:      "Wall time of code executions in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"language"},
		),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "analyses_total",
				Help:      "Total number of static analyses served.",
			},
			[]string{"language"},
		),

		VisualizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "visualizations_total",
				Help:      "Total number of memory visualizations served.",
			},
			[]string{"kind"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "cache_hits_total",
				Help:      "Result cache hits by request kind.",
			},
			[]string{"kind"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "cache_misses_total",
				Help:      "Result cache misses by request kind.",
			},
			[]string{"kind"},
		),

		AdmissionRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "admission_rejections_total",
				Help:      "Execution requests rejected because the sandbox queue was saturated.",
			},
		),

		EngineFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "remote_fallbacks_total",
				Help:      "Executions served locally after the remote engine was unreachable.",
			},
		),

		ActiveExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "engine",
				Name:      "active_executions",
				Help:      "Number of currently running sandboxed executions.",
			},
		),

		AdvisoryFlags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "engine",
				Name:      "advisory_flags_total",
				Help:      "Advisory dangerous-pattern detections by pattern name.",
			},
			[]string{"pattern"},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "engine",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		CodeSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "engine",
				Name:      "code_size_bytes",
				Help:      "Size of submitted source in bytes.",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "engine",
				Name:      "output_size_bytes",
				Help:      "Size of execution output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
	}

	reg.MustRegister(
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.AnalysesTotal,
		m.VisualizationsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.AdmissionRejections,
		m.EngineFallbacks,
		m.ActiveExecutions,
		m.AdvisoryFlags,
		m.RequestsInFlight,
		m.CodeSizeBytes,
		m.OutputSizeBytes,
	)

	return m
}

// RecordExecution records metrics for a completed execution.
func (m *Metrics) RecordExecution(language, state string, durationSec float64) {
	m.ExecutionsTotal.WithLabelValues(language, state).Inc()
	m.ExecutionDuration.WithLabelValues(language).Observe(durationSec)
}

// RecordCacheHit records a cache hit for a request kind.
func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss for a request kind.
func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMisses.WithLabelValues(kind).Inc()
}

// RecordAdvisoryFlag records an advisory dangerous-pattern detection.
func (m *Metrics) RecordAdvisoryFlag(pattern string) {
	m.AdvisoryFlags.WithLabelValues(pattern).Inc()
}
