package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cpplab-engine/internal/request"
)

// Rule scans source for one class of issue. Rules are independent: a rule
// that panics is skipped and contributes no findings.
type Rule struct {
	ID       string
	Kind     string
	Category string
	Severity Severity
	Scan     func(src *sourceContext) []Finding
}

// sourceContext is the precomputed view of the source shared by all rules.
type sourceContext struct {
	raw        string
	stripped   string
	lines      []string
	language   request.Language
	cyclomatic int
}

func newSourceContext(source string, lang request.Language) *sourceContext {
	stripped := stripComments(source)
	return &sourceContext{
		raw:        source,
		stripped:   stripped,
		lines:      strings.Split(source, "\n"),
		language:   lang,
		cyclomatic: cyclomaticComplexity(source),
	}
}

// strippedLines returns the comment-free source line by line, preserving
// line numbering.
func (s *sourceContext) strippedLines() []string {
	return strings.Split(s.stripped, "\n")
}

func snippetOf(line string) string {
	line = strings.TrimSpace(line)
	if len(line) > 60 {
		return line[:60] + "..."
	}
	return line
}

// lineScan builds a Scan func that reports every line matching re. The
// column comes from the match offset within the line.
func lineScan(re *regexp.Regexp, message string) func(src *sourceContext) []Finding {
	return func(src *sourceContext) []Finding {
		var out []Finding
		for i, line := range src.strippedLines() {
			if loc := re.FindStringIndex(line); loc != nil {
				out = append(out, Finding{
					Message: message,
					Line:    i + 1,
					Column:  loc[0] + 1,
					Snippet: snippetOf(src.lines[i]),
				})
			}
		}
		return out
	}
}

var (
	unsafeFuncRe    = regexp.MustCompile(`\b(strcpy|strcat|sprintf|gets)\s*\(|\bscanf\s*\(\s*"[^"]*%s`)
	newRe           = regexp.MustCompile(`\bnew\b`)
	deleteRe        = regexp.MustCompile(`\bdelete\b`)
	usingNamespace  = regexp.MustCompile(`\busing\s+namespace\s+std\b`)
	catchAllRe      = regexp.MustCompile(`\bcatch\s*\(\s*\.\.\.\s*\)`)
	mallocRe        = regexp.MustCompile(`\b(malloc|calloc|realloc)\s*\(`)
	classNameRe     = regexp.MustCompile(`\b(?:class|struct)\s+([a-z]\w*)`)
	cinRe           = regexp.MustCompile(`\bcin\s*>>`)
	cinFailRe       = regexp.MustCompile(`\bcin\.(fail|good|clear)\s*\(`)
	randRe          = regexp.MustCompile(`\brand\s*\(\s*\)`)
	staticArrayRe   = regexp.MustCompile(`\b\w+\s+\w+\s*\[\s*(\d+)\s*\]`)
	loopOpenRe      = regexp.MustCompile(`\b(for|while)\s*\(`)
	stringConcatRe  = regexp.MustCompile(`\w+\s*\+=\s*`)
	sizeInCondRe    = regexp.MustCompile(`\bfor\s*\([^;]*;[^;]*\.size\s*\(\s*\)`)
	byValueParamRe  = regexp.MustCompile(`\(\s*(?:std::)?(string|vector\s*<[^>]*>|map\s*<[^>]*>|set\s*<[^>]*>)\s+\w+\s*[,)]`)
	iteratorDeclRe  = regexp.MustCompile(`\b(?:std::)?\w+\s*<[^>]*>\s*::\s*(const_)?iterator\b`)
	endlInLoopRe    = regexp.MustCompile(`\bendl\b`)
)

// defaultRules is the complete rule set. Category filtering happens in the
// analyzer, not here.
var defaultRules = []Rule{
	{
		ID: "unsafe-c-function", Kind: "error", Category: "security", Severity: SeverityHigh,
		Scan: lineScan(unsafeFuncRe, "unsafe C string function; use bounded alternatives like snprintf or std::string"),
	},
	{
		ID: "new-delete-imbalance", Kind: "warning", Category: "memory", Severity: SeverityMedium,
		Scan: func(src *sourceContext) []Finding {
			news := len(newRe.FindAllString(src.stripped, -1))
			deletes := len(deleteRe.FindAllString(src.stripped, -1))
			if news > deletes {
				return []Finding{{
					Message: fmt.Sprintf("%d new expression(s) but only %d delete(s); possible memory leak", news, deletes),
					Line:    firstMatchLine(src, newRe),
				}}
			}
			return nil
		},
	},
	{
		ID: "using-namespace-std", Kind: "style", Category: "style", Severity: SeverityLow,
		Scan: lineScan(usingNamespace, "using namespace std pollutes the global namespace"),
	},
	{
		ID: "catch-all", Kind: "info", Category: "best-practice", Severity: SeverityLow,
		Scan: lineScan(catchAllRe, "catch (...) hides the exception type; catch specific exceptions"),
	},
	{
		ID: "malloc-in-cpp", Kind: "warning", Category: "memory", Severity: SeverityMedium,
		Scan: func(src *sourceContext) []Finding {
			if src.language.IsC() {
				return nil
			}
			return lineScan(mallocRe, "malloc/free in C++; prefer new/delete or containers")(src)
		},
	},
	{
		ID: "class-naming", Kind: "style", Category: "style", Severity: SeverityLow,
		Scan: func(src *sourceContext) []Finding {
			var out []Finding
			for i, line := range src.strippedLines() {
				if m := classNameRe.FindStringSubmatch(line); m != nil {
					out = append(out, Finding{
						Message: fmt.Sprintf("type %q should start with an uppercase letter", m[1]),
						Line:    i + 1,
						Snippet: snippetOf(src.lines[i]),
					})
				}
			}
			return out
		},
	},
	{
		ID: "unchecked-input", Kind: "warning", Category: "best-practice", Severity: SeverityMedium,
		Scan: func(src *sourceContext) []Finding {
			if !cinRe.MatchString(src.stripped) || cinFailRe.MatchString(src.stripped) {
				return nil
			}
			return []Finding{{
				Message: "input read with cin >> but stream state is never checked",
				Line:    firstMatchLine(src, cinRe),
			}}
		},
	},
	{
		ID: "rand-usage", Kind: "warning", Category: "security", Severity: SeverityMedium,
		Scan: lineScan(randRe, "rand() is predictable and poorly distributed; use <random>"),
	},
	{
		ID: "large-static-array", Kind: "warning", Category: "memory", Severity: SeverityMedium,
		Scan: func(src *sourceContext) []Finding {
			var out []Finding
			for i, line := range src.strippedLines() {
				for _, m := range staticArrayRe.FindAllStringSubmatch(line, -1) {
					if n, err := strconv.Atoi(m[1]); err == nil && n > 10000 {
						out = append(out, Finding{
							Message: fmt.Sprintf("static array of %d elements risks stack overflow; allocate on the heap", n),
							Line:    i + 1,
							Snippet: snippetOf(src.lines[i]),
						})
					}
				}
			}
			return out
		},
	},
	{
		ID: "string-concat-in-loop", Kind: "warning", Category: "performance", Severity: SeverityMedium,
		Scan: inLoopScan(stringConcatRe, "string concatenation inside a loop reallocates repeatedly; reserve or use a stream"),
	},
	{
		ID: "uncached-size-in-loop", Kind: "info", Category: "performance", Severity: SeverityLow,
		Scan: lineScan(sizeInCondRe, ".size() called every loop iteration; cache it before the loop"),
	},
	{
		ID: "endl-in-loop", Kind: "info", Category: "performance", Severity: SeverityLow,
		Scan: inLoopScan(endlInLoopRe, "std::endl flushes the stream each iteration; use '\\n'"),
	},
	{
		ID: "triple-nested-loop", Kind: "warning", Category: "complexity", Severity: SeverityMedium,
		Scan: func(src *sourceContext) []Finding {
			depth := 0
			var loopStack []int
			for i, line := range src.strippedLines() {
				if loopOpenRe.MatchString(line) {
					loopStack = append(loopStack, depth)
					if len(loopStack) >= 3 {
						return []Finding{{
							Message: "three or more nested loops; consider restructuring or precomputing",
							Line:    i + 1,
							Snippet: snippetOf(src.lines[i]),
						}}
					}
				}
				depth += strings.Count(line, "{") - strings.Count(line, "}")
				for len(loopStack) > 0 && depth <= loopStack[len(loopStack)-1] {
					loopStack = loopStack[:len(loopStack)-1]
				}
				if depth < 0 {
					depth = 0
				}
			}
			return nil
		},
	},
	{
		ID: "high-cyclomatic", Kind: "warning", Category: "complexity", Severity: SeverityHigh,
		Scan: func(src *sourceContext) []Finding {
			if src.cyclomatic <= 15 {
				return nil
			}
			return []Finding{{
				Message: fmt.Sprintf("cyclomatic complexity %d exceeds 15; split into smaller functions", src.cyclomatic),
				Line:    1,
			}}
		},
	},
	{
		ID: "pass-by-value", Kind: "warning", Category: "performance", Severity: SeverityMedium,
		Scan: func(src *sourceContext) []Finding {
			if src.language.IsC() {
				return nil
			}
			return lineScan(byValueParamRe, "heavy object passed by value; take a const reference")(src)
		},
	},
	{
		ID: "prefer-auto", Kind: "info", Category: "modernization", Severity: SeverityLow,
		Scan: func(src *sourceContext) []Finding {
			if src.language.IsC() {
				return nil
			}
			return lineScan(iteratorDeclRe, "spelled-out iterator type; auto is clearer")(src)
		},
	},
}

// inLoopScan reports matches of re only on lines inside a for/while body.
func inLoopScan(re *regexp.Regexp, message string) func(src *sourceContext) []Finding {
	return func(src *sourceContext) []Finding {
		var out []Finding
		loopDepth := 0
		braceAtLoop := []int{}
		depth := 0
		for i, line := range src.strippedLines() {
			if loc := re.FindStringIndex(line); loopDepth > 0 && loc != nil && !loopOpenRe.MatchString(line) {
				out = append(out, Finding{
					Message: message,
					Line:    i + 1,
					Column:  loc[0] + 1,
					Snippet: snippetOf(src.lines[i]),
				})
			}
			if loopOpenRe.MatchString(line) {
				loopDepth++
				braceAtLoop = append(braceAtLoop, depth)
			}
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			for loopDepth > 0 && depth <= braceAtLoop[loopDepth-1] {
				loopDepth--
				braceAtLoop = braceAtLoop[:loopDepth]
			}
			if depth < 0 {
				depth = 0
			}
		}
		return out
	}
}

func firstMatchLine(src *sourceContext, re *regexp.Regexp) int {
	for i, line := range src.strippedLines() {
		if re.MatchString(line) {
			return i + 1
		}
	}
	return 1
}
