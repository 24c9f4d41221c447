package visualizer

import (
	"regexp"
	"strings"
)

func buildMemoryView(vars []VariableInfo) *MemoryView {
	view := &MemoryView{Stack: []VariableInfo{}, Heap: []VariableInfo{}}
	for _, v := range vars {
		if v.Storage == "heap" {
			view.Heap = append(view.Heap, v)
		} else {
			view.Stack = append(view.Stack, v)
		}
	}
	return view
}

// scopeOrder fixes frame ordering: outermost first.
var scopeOrder = []string{"global", "function", "block"}

func buildStackView(vars []VariableInfo) *StackView {
	byScope := map[string][]VariableInfo{}
	for _, v := range vars {
		if v.Storage != "stack" {
			continue
		}
		byScope[v.Scope] = append(byScope[v.Scope], v)
	}

	view := &StackView{Frames: []StackFrame{}}
	for _, scope := range scopeOrder {
		members := byScope[scope]
		if len(members) == 0 {
			continue
		}
		frame := StackFrame{Scope: scope}
		offset := 0
		for _, v := range members {
			frame.Slots = append(frame.Slots, StackSlot{Variable: v, Offset: offset})
			offset += v.SizeBytes
		}
		frame.SizeBytes = offset
		view.Frames = append(view.Frames, frame)
	}
	return view
}

// heapFragmentation estimates fragmentation as a tenth per allocation,
// saturating at 0.9.
func heapFragmentation(allocCount int) float64 {
	f := 0.1 * float64(allocCount)
	if f > 0.9 {
		return 0.9
	}
	return f
}

func buildHeapView(vars []VariableInfo) *HeapView {
	view := &HeapView{Allocations: []VariableInfo{}}
	for _, v := range vars {
		if v.Storage == "heap" {
			view.Allocations = append(view.Allocations, v)
		}
	}
	view.Fragmentation = heapFragmentation(len(view.Allocations))
	return view
}

var flowKeywordRe = regexp.MustCompile(`^\s*(if|else|for|while|switch|return|break|continue)\b`)

const flowContentLimit = 50

// buildFlowView sketches control flow as one node per control-keyword line,
// linked sequentially.
func buildFlowView(lines []string) *FlowView {
	view := &FlowView{Nodes: []FlowNode{}, Edges: []FlowEdge{}}
	for i, line := range lines {
		m := flowKeywordRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		content := strings.TrimSpace(line)
		if len(content) > flowContentLimit {
			content = content[:flowContentLimit] + "..."
		}
		id := len(view.Nodes)
		view.Nodes = append(view.Nodes, FlowNode{
			ID:      id,
			Kind:    m[1],
			Content: content,
			Line:    i + 1,
		})
		if id > 0 {
			view.Edges = append(view.Edges, FlowEdge{From: id - 1, To: id})
		}
	}
	return view
}

// containerSizes holds the in-place sizes shown in the structures view.
var containerSizes = map[string]int{
	"vector": 24, "list": 24,
	"map": 48, "set": 48,
	"queue": 32, "stack": 32,
}

var containerDeclRe = regexp.MustCompile(`\b(?:std::)?(vector|list|map|set|queue|stack)\s*<[^>]*>\s+(\w+)`)

func buildStructuresView(lines []string) *StructuresView {
	view := &StructuresView{Structures: []StructureInfo{}}
	for i, line := range lines {
		for _, m := range containerDeclRe.FindAllStringSubmatch(line, -1) {
			view.Structures = append(view.Structures, StructureInfo{
				Name:      m[2],
				Kind:      m[1],
				SizeBytes: containerSizes[m[1]],
				Line:      i + 1,
			})
		}
	}
	return view
}
