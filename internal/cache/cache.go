package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"cpplab-engine/internal/analyzer"
	"cpplab-engine/internal/config"
	"cpplab-engine/internal/monitor"
	"cpplab-engine/internal/request"
	"cpplab-engine/internal/sandbox"
	"cpplab-engine/internal/visualizer"
)

// Cache is the content-addressed result store. Identical requests map to the
// same fingerprint, so a hit skips the sandbox entirely. Expiry is per kind:
// execution results age out fast, analysis and visualization results are
// pure functions of the source and live longer.
type Cache struct {
	executions     *gocache.Cache
	analyses       *gocache.Cache
	visualizations *gocache.Cache
	metrics        *monitor.Metrics
}

// New builds a Cache with TTLs from config. metrics may be nil.
func New(cfg config.CacheConfig, metrics *monitor.Metrics) *Cache {
	return &Cache{
		executions:     gocache.New(cfg.ExecutionTTL, cfg.CleanupInterval),
		analyses:       gocache.New(cfg.AnalysisTTL, cfg.CleanupInterval),
		visualizations: gocache.New(cfg.VisualizationTTL, cfg.CleanupInterval),
		metrics:        metrics,
	}
}

// ExecutionFingerprint hashes every field that affects an execution outcome.
// Flag order does not matter; user identity and timeout do not participate.
func ExecutionFingerprint(req *request.ExecutionRequest) string {
	sorted := append([]string(nil), req.Flags...)
	sort.Strings(sorted)
	return fingerprint("exec", string(req.Language), req.Source, req.Stdin, strings.Join(sorted, "\x00"))
}

// AnalysisFingerprint hashes the fields that affect an analysis result.
func AnalysisFingerprint(req *request.AnalysisRequest) string {
	sorted := append([]string(nil), req.Categories...)
	sort.Strings(sorted)
	return fingerprint("analysis", string(req.Language), req.Source, strings.Join(sorted, "\x00"))
}

// VisualizationFingerprint hashes the fields that affect a visualization.
func VisualizationFingerprint(req *request.VisualizationRequest) string {
	return fingerprint("viz", req.Kind, req.Source)
}

func fingerprint(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetExecution returns a cached execution result marked Cached.
func (c *Cache) GetExecution(fp string) (*sandbox.ExecutionResult, bool) {
	v, ok := c.executions.Get(fp)
	c.record("execution", ok)
	if !ok {
		return nil, false
	}
	cached := *(v.(*sandbox.ExecutionResult))
	cached.Cached = true
	return &cached, true
}

// PutExecution stores a result. Overwriting an existing entry is fine.
func (c *Cache) PutExecution(fp string, res *sandbox.ExecutionResult) {
	c.executions.SetDefault(fp, res)
}

func (c *Cache) GetAnalysis(fp string) (*analyzer.Result, bool) {
	v, ok := c.analyses.Get(fp)
	c.record("analysis", ok)
	if !ok {
		return nil, false
	}
	return v.(*analyzer.Result), true
}

func (c *Cache) PutAnalysis(fp string, res *analyzer.Result) {
	c.analyses.SetDefault(fp, res)
}

func (c *Cache) GetVisualization(fp string) (*visualizer.Result, bool) {
	v, ok := c.visualizations.Get(fp)
	c.record("visualization", ok)
	if !ok {
		return nil, false
	}
	return v.(*visualizer.Result), true
}

func (c *Cache) PutVisualization(fp string, res *visualizer.Result) {
	c.visualizations.SetDefault(fp, res)
}

func (c *Cache) record(kind string, hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.RecordCacheHit(kind)
	} else {
		c.metrics.RecordCacheMiss(kind)
	}
}
