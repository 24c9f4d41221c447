package analyzer

// Severity grades a finding. Weights feed the overall score.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Weight returns the score deduction for one finding of this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 10
	case SeverityMedium:
		return 5
	default:
		return 1
	}
}

// Finding is a single rule hit at a source location. Kind is the diagnostic
// class (error, warning, info, style); Column is 1 when the rule cannot
// locate the hit more precisely.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	Kind     string   `json:"kind"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Snippet  string   `json:"snippet,omitempty"`
}

// Suggestion is an aggregated improvement hint for a category that
// accumulated several findings.
type Suggestion struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Impact   string `json:"impact"`
	Before   string `json:"before,omitempty"`
	After    string `json:"after,omitempty"`
}

// Metrics are whole-source lexical counts.
type Metrics struct {
	TotalLines   int     `json:"total_lines"`
	CodeLines    int     `json:"code_lines"`
	CommentLines int     `json:"comment_lines"`
	BlankLines   int     `json:"blank_lines"`
	CommentRatio float64 `json:"comment_ratio"`
	Functions    int     `json:"functions"`
	Classes      int     `json:"classes"`
	Includes     int     `json:"includes"`
}

// Complexity carries the structural complexity measures.
type Complexity struct {
	Cyclomatic      int     `json:"cyclomatic"`
	Cognitive       int     `json:"cognitive"`
	MaxNesting      int     `json:"max_nesting"`
	Maintainability float64 `json:"maintainability"`
}

// Result is the full static analysis output.
type Result struct {
	Findings    []Finding    `json:"findings"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Metrics     Metrics      `json:"metrics"`
	Complexity  Complexity   `json:"complexity"`
	Score       float64      `json:"score"`
}
