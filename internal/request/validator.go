package request

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cpplab-engine/internal/config"
	"cpplab-engine/internal/monitor"
)

var (
	// ErrValidation indicates a request that violates a structural limit.
	ErrValidation = errors.New("invalid request")

	// ErrUnsupportedLanguage indicates a language tag outside the supported set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// ExecutionRequest is a validated, normalized request to compile and run code.
type ExecutionRequest struct {
	Source   string
	Language Language
	Stdin    string
	Flags    []string
	Timeout  time.Duration
	UserID   string

	// Advisories are dangerous-pattern detections surfaced to the caller.
	// They never block execution.
	Advisories []monitor.Detection
}

// AnalysisRequest is a validated request for static analysis.
type AnalysisRequest struct {
	Source     string
	Language   Language
	Categories []string
}

// VisualizationRequest is a validated request for a memory or flow view.
type VisualizationRequest struct {
	Source   string
	Language Language
	Kind     string
}

// exactFlags are compiler flags accepted verbatim.
var exactFlags = map[string]bool{
	"-O0": true, "-O1": true, "-O2": true, "-O3": true, "-Os": true,
	"-Wall": true, "-Wextra": true, "-Werror": true,
	"-Wpedantic": true, "-pedantic": true,
	"-g": true,
}

// Validator normalizes and bounds-checks incoming requests.
type Validator struct {
	limits   config.RequestLimits
	detector *monitor.Detector
	metrics  *monitor.Metrics
}

// NewValidator builds a Validator with the given limits. metrics may be nil.
func NewValidator(limits config.RequestLimits, metrics *monitor.Metrics) *Validator {
	return &Validator{
		limits:   limits,
		detector: monitor.NewDetector(),
		metrics:  metrics,
	}
}

// ValidateExecution checks structural limits, filters compiler flags, clamps
// the timeout, and attaches advisory detections. The returned request is safe
// to hand to the sandbox.
func (v *Validator) ValidateExecution(source, language, stdin string, flags []string, timeout time.Duration, userID string) (*ExecutionRequest, error) {
	lang, err := v.checkCommon(source, language)
	if err != nil {
		return nil, err
	}
	if len(stdin) > v.limits.MaxStdinChars {
		return nil, fmt.Errorf("%w: stdin exceeds %d characters", ErrValidation, v.limits.MaxStdinChars)
	}

	filtered, err := v.filterFlags(flags)
	if err != nil {
		return nil, err
	}

	req := &ExecutionRequest{
		Source:   source,
		Language: lang,
		Stdin:    stdin,
		Flags:    filtered,
		Timeout:  v.clampTimeout(timeout),
		UserID:   userID,
	}
	req.Advisories = v.detector.ScanSource(source)
	if v.metrics != nil {
		for _, d := range req.Advisories {
			v.metrics.RecordAdvisoryFlag(d.Pattern)
		}
	}
	return req, nil
}

// ValidateAnalysis checks limits for a static analysis request. Unknown
// category names are dropped.
func (v *Validator) ValidateAnalysis(source, language string, categories []string) (*AnalysisRequest, error) {
	lang, err := v.checkCommon(source, language)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{
		"syntax": true, "style": true, "performance": true,
		"security": true, "complexity": true, "memory": true,
		"modernization": true, "best-practice": true,
	}
	var kept []string
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "full" {
			return &AnalysisRequest{Source: source, Language: lang}, nil
		}
		if known[c] {
			kept = append(kept, c)
		}
	}
	return &AnalysisRequest{Source: source, Language: lang, Categories: kept}, nil
}

// ValidateVisualization checks limits for a visualization request.
func (v *Validator) ValidateVisualization(source, language, kind string) (*VisualizationRequest, error) {
	lang, err := v.checkCommon(source, language)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "", "memory":
		kind = "memory"
	case "execution-flow":
		kind = "flow"
	case "data-structures":
		kind = "structures"
	case "stack", "heap", "flow", "structures", "full":
	default:
		return nil, fmt.Errorf("%w: unknown visualization kind %q", ErrValidation, kind)
	}
	return &VisualizationRequest{Source: source, Language: lang, Kind: kind}, nil
}

func (v *Validator) checkCommon(source, language string) (Language, error) {
	if strings.TrimSpace(source) == "" {
		return "", fmt.Errorf("%w: source is empty", ErrValidation)
	}
	if len(source) > v.limits.MaxSourceChars {
		return "", fmt.Errorf("%w: source exceeds %d characters", ErrValidation, v.limits.MaxSourceChars)
	}
	lang := Language(strings.ToLower(strings.TrimSpace(language)))
	if !lang.Supported() {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedLanguage, language, strings.Join(SupportedLanguages(), ", "))
	}
	return lang, nil
}

// filterFlags applies the flag allowlist. Standard-version flags are rejected
// outright since the language tag controls the standard. Anything else not on
// the allowlist is silently dropped.
func (v *Validator) filterFlags(flags []string) ([]string, error) {
	var kept []string
	for _, f := range flags {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.HasPrefix(f, "-std=") {
			return nil, fmt.Errorf("%w: standard version is set by the language field, not -std=", ErrValidation)
		}
		if exactFlags[f] || strings.HasPrefix(f, "-D") || strings.HasPrefix(f, "-I") {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func (v *Validator) clampTimeout(t time.Duration) time.Duration {
	if t == 0 {
		return v.limits.DefaultTimeout
	}
	if t < v.limits.MinTimeout {
		return v.limits.MinTimeout
	}
	if t > v.limits.MaxTimeout {
		return v.limits.MaxTimeout
	}
	return t
}
