package monitor

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Detector scans submitted source for patterns that usually indicate an
// attempt to break out of the execution environment. Detection is advisory:
// findings are logged and counted, but the request is never rejected. The
// sandbox resource limits are the actual enforcement layer.
type Detector struct {
	patterns []DetectionPattern
	maxGotos int
}

// DetectionPattern defines a suspicious source pattern to match.
type DetectionPattern struct {
	Name        string
	Description string
	Regex       *regexp.Regexp
	Severity    Severity
}

// Severity levels for detected patterns.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Detection represents a matched advisory pattern.
type Detection struct {
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
	Line     int    `json:"line,omitempty"`
}

// NewDetector creates a detector with the default pattern set.
func NewDetector() *Detector {
	return &Detector{
		patterns: defaultPatterns(),
		maxGotos: 5,
	}
}

// ScanSource checks submitted source line by line for advisory patterns.
func (d *Detector) ScanSource(source string) []Detection {
	var detections []Detection

	lines := strings.Split(source, "\n")
	gotoCount := 0

	for i, line := range lines {
		for _, p := range d.patterns {
			if p.Regex.MatchString(line) {
				det := Detection{
					Pattern:  p.Name,
					Severity: p.Severity.String(),
					Detail:   p.Description,
					Line:     i + 1,
				}
				detections = append(detections, det)

				log.Warn().
					Str("pattern", p.Name).
					Str("severity", p.Severity.String()).
					Int("line", i+1).
					Msg("advisory pattern detected in source")
			}
		}
		if gotoPattern.MatchString(line) {
			gotoCount++
		}
	}

	if gotoCount > d.maxGotos {
		detections = append(detections, Detection{
			Pattern:  "excessive_goto",
			Severity: SeverityLow.String(),
			Detail:   "unusually high goto count, control flow may be obfuscated",
		})
		log.Warn().Int("count", gotoCount).Msg("excessive goto usage in source")
	}

	return detections
}

var gotoPattern = regexp.MustCompile(`\bgoto\s+\w+`)

func defaultPatterns() []DetectionPattern {
	return []DetectionPattern{
		{
			Name:        "process_spawn",
			Description: "Spawning child processes from submitted code",
			Regex:       regexp.MustCompile(`\b(system|popen|exec[lv][ep]?|execve|fork|vfork|posix_spawn)\s*\(`),
			Severity:    SeverityHigh,
		},
		{
			Name:        "inline_assembly",
			Description: "Inline assembly bypasses source-level analysis",
			Regex:       regexp.MustCompile(`\b(__asm__|asm)\s*(volatile)?\s*[({]`),
			Severity:    SeverityHigh,
		},
		{
			Name:        "raw_syscall",
			Description: "Direct syscall invocation",
			Regex:       regexp.MustCompile(`\bsyscall\s*\(`),
			Severity:    SeverityCritical,
		},
		{
			Name:        "filesystem_escape",
			Description: "Accessing paths outside the workspace",
			Regex:       regexp.MustCompile(`"(/etc/|/proc/|/sys/|/dev/|/var/run/)`),
			Severity:    SeverityMedium,
		},
		{
			Name:        "network_socket",
			Description: "Opening network sockets from submitted code",
			Regex:       regexp.MustCompile(`\b(socket|connect|bind|listen|accept)\s*\(`),
			Severity:    SeverityMedium,
		},
		{
			Name:        "signal_tamper",
			Description: "Installing signal handlers to dodge termination",
			Regex:       regexp.MustCompile(`\b(signal|sigaction)\s*\(\s*(SIGKILL|SIGTERM|SIGXCPU)`),
			Severity:    SeverityMedium,
		},
	}
}
