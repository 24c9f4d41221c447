package analyzer

import (
	"sort"

	"github.com/rs/zerolog/log"

	"cpplab-engine/internal/request"
)

// Analyzer runs the heuristic rule engine over source text. It is purely
// lexical: it works on source that does not compile and it never hard-fails.
type Analyzer struct {
	rules []Rule
}

// New returns an Analyzer with the default rule set.
func New() *Analyzer {
	return &Analyzer{rules: defaultRules}
}

// Analyze scans the source and assembles findings, metrics, complexity,
// aggregated suggestions and the overall score. An empty category list
// selects every rule.
func (a *Analyzer) Analyze(req *request.AnalysisRequest) *Result {
	src := newSourceContext(req.Source, req.Language)

	wanted := map[string]bool{}
	for _, c := range req.Categories {
		wanted[c] = true
	}

	result := &Result{Findings: []Finding{}}
	for _, rule := range a.rules {
		if len(wanted) > 0 && !wanted[rule.Category] {
			continue
		}
		for _, f := range a.runRule(rule, src) {
			f.RuleID = rule.ID
			f.Kind = rule.Kind
			f.Category = rule.Category
			f.Severity = rule.Severity
			if f.Column == 0 {
				f.Column = 1
			}
			result.Findings = append(result.Findings, f)
		}
	}
	sort.SliceStable(result.Findings, func(i, j int) bool {
		return result.Findings[i].Line < result.Findings[j].Line
	})

	result.Metrics = computeMetrics(src.lines)
	result.Complexity = Complexity{
		Cyclomatic:      src.cyclomatic,
		Cognitive:       cognitiveComplexity(src.lines),
		MaxNesting:      maxNestingDepth(req.Source),
		Maintainability: maintainabilityIndex(halsteadVolume(req.Source), src.cyclomatic, result.Metrics.CodeLines),
	}
	result.Suggestions = buildSuggestions(result.Findings)
	result.Score = overallScore(result.Findings, result.Complexity)
	return result
}

// runRule isolates a single rule. A panicking rule is logged and contributes
// no findings; the rest of the analysis proceeds.
func (a *Analyzer) runRule(rule Rule, src *sourceContext) (findings []Finding) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Str("rule", rule.ID).
				Interface("panic", r).
				Msg("analysis rule panicked, skipping")
			findings = nil
		}
	}()
	return rule.Scan(src)
}

// suggestionCatalog maps a category to the aggregated hint emitted when the
// category accumulates three or more findings.
var suggestionCatalog = map[string]Suggestion{
	"security": {
		Category: "security",
		Title:    "Replace unsafe calls with bounded alternatives",
		Impact:   "Eliminates buffer overflow and predictability risks",
		Before:   `char buf[64]; strcpy(buf, input);`,
		After:    `std::string buf = input;`,
	},
	"performance": {
		Category: "performance",
		Title:    "Hoist repeated work out of loops",
		Impact:   "Avoids per-iteration allocations and flushes",
		Before:   `for (size_t i = 0; i < v.size(); i++) out += v[i];`,
		After:    `const size_t n = v.size(); out.reserve(n); for (size_t i = 0; i < n; i++) out += v[i];`,
	},
	"memory": {
		Category: "memory",
		Title:    "Prefer owning containers over raw allocation",
		Impact:   "Removes leak and double-free classes of bugs",
		Before:   `int* data = new int[n];`,
		After:    `std::vector<int> data(n);`,
	},
	"style": {
		Category: "style",
		Title:    "Tighten naming and namespace hygiene",
		Impact:   "Keeps intent readable as the codebase grows",
		Before:   `using namespace std; class parser {};`,
		After:    `class Parser {}; // qualify std:: explicitly`,
	},
	"complexity": {
		Category: "complexity",
		Title:    "Break up deeply branched code",
		Impact:   "Smaller functions are easier to test and reason about",
	},
	"modernization": {
		Category: "modernization",
		Title:    "Adopt auto and range-based loops",
		Impact:   "Shorter declarations with identical semantics",
		Before:   `std::vector<int>::iterator it = v.begin();`,
		After:    `auto it = v.begin();`,
	},
	"best-practice": {
		Category: "best-practice",
		Title:    "Handle failure paths explicitly",
		Impact:   "Bad input and unexpected exceptions surface early",
	},
}

func buildSuggestions(findings []Finding) []Suggestion {
	counts := map[string]int{}
	for _, f := range findings {
		counts[f.Category]++
	}
	var cats []string
	for c, n := range counts {
		if n >= 3 {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)

	var out []Suggestion
	for _, c := range cats {
		if s, ok := suggestionCatalog[c]; ok {
			out = append(out, s)
		}
	}
	return out
}

// overallScore starts at 100 and deducts severity weights per finding plus
// penalties for structural complexity.
func overallScore(findings []Finding, cx Complexity) float64 {
	score := 100.0
	for _, f := range findings {
		score -= float64(f.Severity.Weight())
	}
	if cx.Cyclomatic > 10 {
		score -= float64(cx.Cyclomatic-10) * 2
	}
	if cx.MaxNesting > 4 {
		score -= float64(cx.MaxNesting-4) * 3
	}
	return clamp(score, 0, 100)
}
