package visualizer

import (
	"regexp"
	"strconv"
	"strings"
)

// primitiveSizes holds the assumed byte widths of builtin types.
var primitiveSizes = map[string]int{
	"char": 1, "bool": 1,
	"short": 2,
	"int": 4, "float": 4, "unsigned": 4,
	"long": 8, "double": 8, "size_t": 8,
}

const defaultPrimitiveSize = 8

// classSizes holds rough in-place sizes of common standard types.
var classSizes = map[string]int{
	"string": 32,
	"vector": 24, "list": 24,
	"map": 48, "set": 48,
	"deque": 40,
}

const defaultClassSize = 64

const pointerSize = 8

// keywords that can never be variable names or user types.
var reservedWords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "return": true, "break": true,
	"continue": true, "const": true, "static": true, "struct": true,
	"class": true, "void": true, "new": true, "delete": true,
	"sizeof": true, "typedef": true, "using": true, "namespace": true,
	"template": true, "typename": true, "public": true, "private": true,
	"include": true,
}

var (
	primitiveDeclRe = regexp.MustCompile(`\b(char|bool|short|int|float|unsigned|long|double|size_t)\s+(\w+)\s*(=|;|,|\))`)
	arrayDeclRe     = regexp.MustCompile(`\b(\w+)\s+(\w+)\s*\[\s*(\d+)\s*\]`)
	pointerDeclRe   = regexp.MustCompile(`\b(\w+)\s*\*\s*(\w+)\s*(=|;|\))`)
	objectDeclRe    = regexp.MustCompile(`\b(?:std::)?(\w+)(?:<[^>]*>)?\s+(\w+)\s*(;|=|\()`)
	newAssignRe     = regexp.MustCompile(`(\w+)\s*=\s*new\s+(\w+)`)
	newArrayRe      = regexp.MustCompile(`(\w+)\s*=\s*new\s+(\w+)\s*\[\s*(\d+)\s*\]`)
)

// scopeOf classifies a line by indentation depth.
func scopeOf(line string) string {
	indent := 0
	for _, r := range line {
		if r == ' ' {
			indent++
		} else if r == '\t' {
			indent += 4
		} else {
			break
		}
	}
	switch {
	case indent < 4:
		return "global"
	case indent < 8:
		return "function"
	default:
		return "block"
	}
}

func primitiveSizeOf(typ string) int {
	if s, ok := primitiveSizes[typ]; ok {
		return s
	}
	return defaultPrimitiveSize
}

func classSizeOf(typ string) int {
	if s, ok := classSizes[typ]; ok {
		return s
	}
	return defaultClassSize
}

// scanVariables runs every extraction pass over the source lines. Each pass
// is independent; a name claimed by an earlier pass on the same line is not
// re-reported.
func scanVariables(lines []string) []VariableInfo {
	var vars []VariableInfo
	for i, raw := range lines {
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		lineNo := i + 1
		scope := scopeOf(raw)
		seen := map[string]bool{}

		add := func(v VariableInfo) {
			if reservedWords[v.Name] || seen[v.Name] {
				return
			}
			seen[v.Name] = true
			vars = append(vars, v)
		}

		// Dynamic allocations first so the pointer pass does not claim
		// the target as a plain pointer.
		for _, m := range newArrayRe.FindAllStringSubmatch(line, -1) {
			n, _ := strconv.Atoi(m[3])
			add(VariableInfo{
				Name: m[1], Type: m[2] + "[]", Category: "dynamic_array",
				Storage: "heap", Scope: scope,
				SizeBytes: primitiveSizeOf(m[2]) * n, Line: lineNo,
			})
		}
		for _, m := range newAssignRe.FindAllStringSubmatch(line, -1) {
			add(VariableInfo{
				Name: m[1], Type: m[2], Category: "dynamic_object",
				Storage: "heap", Scope: scope,
				SizeBytes: objectSizeOf(m[2]), Line: lineNo,
			})
		}

		for _, m := range arrayDeclRe.FindAllStringSubmatch(line, -1) {
			if reservedWords[m[1]] {
				continue
			}
			n, _ := strconv.Atoi(m[3])
			add(VariableInfo{
				Name: m[2], Type: m[1] + "[" + m[3] + "]", Category: "array",
				Storage: "stack", Scope: scope,
				SizeBytes: primitiveSizeOf(m[1]) * n, Line: lineNo,
			})
		}

		for _, m := range pointerDeclRe.FindAllStringSubmatch(line, -1) {
			if reservedWords[m[1]] {
				continue
			}
			add(VariableInfo{
				Name: m[2], Type: m[1] + "*", Category: "pointer",
				Storage: "stack", Scope: scope,
				SizeBytes: pointerSize, Line: lineNo,
			})
		}

		for _, m := range primitiveDeclRe.FindAllStringSubmatch(line, -1) {
			add(VariableInfo{
				Name: m[2], Type: m[1], Category: "primitive",
				Storage: "stack", Scope: scope,
				SizeBytes: primitiveSizeOf(m[1]), Line: lineNo,
			})
		}

		for _, m := range objectDeclRe.FindAllStringSubmatch(line, -1) {
			typ := m[1]
			if reservedWords[typ] || reservedWords[m[2]] {
				continue
			}
			if _, isPrim := primitiveSizes[typ]; isPrim {
				continue
			}
			add(VariableInfo{
				Name: m[2], Type: typ, Category: "object",
				Storage: "stack", Scope: scope,
				SizeBytes: classSizeOf(typ), Line: lineNo,
			})
		}
	}
	return vars
}

// objectSizeOf sizes a dynamically allocated type: primitives by width,
// known classes by their estimate.
func objectSizeOf(typ string) int {
	if s, ok := primitiveSizes[typ]; ok {
		return s
	}
	return classSizeOf(typ)
}

// stackCallOverhead is the fixed bookkeeping added to the stack estimate.
const stackCallOverhead = 64

// computeFootprint sums variable sizes by storage class. Heap carries a 10%
// allocator management overhead.
func computeFootprint(vars []VariableInfo) Footprint {
	var stack, heap int
	for _, v := range vars {
		if v.Storage == "heap" {
			heap += v.SizeBytes
		} else {
			stack += v.SizeBytes
		}
	}
	stack += stackCallOverhead
	heap += heap / 10
	return Footprint{
		StackBytes: stack,
		HeapBytes:  heap,
		TotalBytes: stack + heap,
	}
}
