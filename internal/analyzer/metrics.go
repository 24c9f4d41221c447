package analyzer

import (
	"math"
	"regexp"
	"strings"
)

var (
	includeRe      = regexp.MustCompile(`^\s*#\s*include\b`)
	functionRe     = regexp.MustCompile(`\b[\w:<>~]+\s+[\w:]+\s*\([^;]*\)\s*(const\s*)?\{`)
	classRe        = regexp.MustCompile(`\b(class|struct)\s+\w+`)
	decisionRe     = regexp.MustCompile(`\b(if|while|for|case|catch)\b|&&|\|\||\?`)
	operatorRe     = regexp.MustCompile(`[+\-*/%=<>!&|^~]+|\b(return|if|else|while|for|switch|case|new|delete)\b`)
	operandRe      = regexp.MustCompile(`\b[A-Za-z_]\w*\b|\b\d+(\.\d+)?\b|"[^"]*"`)
	lineCommentRe  = regexp.MustCompile(`^\s*//`)
	blockCommentRe = regexp.MustCompile(`^\s*/\*`)
)

func computeMetrics(lines []string) Metrics {
	m := Metrics{TotalLines: len(lines)}
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			m.BlankLines++
		case inBlock:
			m.CommentLines++
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
		case lineCommentRe.MatchString(line):
			m.CommentLines++
		case blockCommentRe.MatchString(line):
			m.CommentLines++
			if !strings.Contains(trimmed, "*/") {
				inBlock = true
			}
		default:
			m.CodeLines++
			if includeRe.MatchString(line) {
				m.Includes++
			}
			if functionRe.MatchString(line) {
				m.Functions++
			}
			m.Classes += len(classRe.FindAllString(line, -1))
		}
	}
	if m.CodeLines > 0 {
		m.CommentRatio = float64(m.CommentLines) / float64(m.CodeLines)
	}
	return m
}

// cyclomaticComplexity is 1 plus the number of decision points.
func cyclomaticComplexity(source string) int {
	return 1 + len(decisionRe.FindAllString(stripComments(source), -1))
}

// cognitiveComplexity weights each decision point by its current nesting
// depth, so deeply nested branching costs more than flat branching.
func cognitiveComplexity(lines []string) int {
	total := 0
	depth := 0
	for _, line := range lines {
		stripped := stripComments(line)
		for _, m := range decisionRe.FindAllString(stripped, -1) {
			if m == "case" {
				continue
			}
			total += 1 + depth
		}
		depth += strings.Count(stripped, "{") - strings.Count(stripped, "}")
		if depth < 0 {
			depth = 0
		}
	}
	return total
}

func maxNestingDepth(source string) int {
	depth, max := 0, 0
	for _, r := range stripComments(source) {
		switch r {
		case '{':
			depth++
			if depth > max {
				max = depth
			}
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return max
}

// halsteadVolume approximates program volume from lexical operator and
// operand counts: N * log2(n) over total and distinct token counts.
func halsteadVolume(source string) float64 {
	stripped := stripComments(source)
	ops := operatorRe.FindAllString(stripped, -1)
	operands := operandRe.FindAllString(stripped, -1)

	distinct := make(map[string]struct{})
	for _, o := range ops {
		distinct["op:"+o] = struct{}{}
	}
	for _, o := range operands {
		distinct["od:"+o] = struct{}{}
	}

	total := len(ops) + len(operands)
	vocab := len(distinct)
	if total == 0 || vocab == 0 {
		return 0
	}
	return float64(total) * math.Log2(float64(vocab))
}

// maintainabilityIndex computes 171 - 5.2*ln(V) - 0.23*CC - 16.2*ln(LOC+1),
// clamped to [0, 100].
func maintainabilityIndex(volume float64, cyclomatic, codeLines int) float64 {
	v := volume
	if v < 1 {
		v = 1
	}
	mi := 171 - 5.2*math.Log(v) - 0.23*float64(cyclomatic) - 16.2*math.Log(float64(codeLines)+1)
	return clamp(mi, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stripComments removes // and /* */ comments plus string literals, to keep
// decision keywords inside them from inflating counts.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inLine, inBlock, inStr := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inLine:
			if c == '\n' {
				inLine = false
				b.WriteByte(c)
			}
		case inBlock:
			if c == '*' && i+1 < len(s) && s[i+1] == '/' {
				inBlock = false
				i++
			} else if c == '\n' {
				b.WriteByte(c)
			}
		case inStr:
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			inLine = true
			i++
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			inBlock = true
			i++
		case c == '"':
			inStr = true
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
