package visualizer

import "time"

// VariableInfo describes one variable discovered in the source.
type VariableInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Category  string `json:"category"` // primitive, array, pointer, object, dynamic_object, dynamic_array
	Storage   string `json:"storage"`  // stack or heap
	Scope     string `json:"scope"`    // global, function, block
	SizeBytes int    `json:"size_bytes"`
	Line      int    `json:"line"`
}

// Footprint is the estimated memory usage split by storage class. Stack
// includes a fixed call overhead; heap includes allocator bookkeeping.
type Footprint struct {
	StackBytes int `json:"stack_bytes"`
	HeapBytes  int `json:"heap_bytes"`
	TotalBytes int `json:"total_bytes"`
}

// Metadata accompanies every visualization.
type Metadata struct {
	SessionID   string    `json:"session_id"`
	GeneratedAt time.Time `json:"generated_at"`
	RegionCount int       `json:"region_count"`
	StackBytes  int       `json:"stack_bytes"`
	HeapBytes   int       `json:"heap_bytes"`
}

// MemoryView lists variables by storage class.
type MemoryView struct {
	Stack []VariableInfo `json:"stack"`
	Heap  []VariableInfo `json:"heap"`
}

// StackFrame groups stack variables of one scope with running offsets.
type StackFrame struct {
	Scope     string      `json:"scope"`
	Slots     []StackSlot `json:"slots"`
	SizeBytes int         `json:"size_bytes"`
}

// StackSlot is one variable's position inside a frame.
type StackSlot struct {
	Variable VariableInfo `json:"variable"`
	Offset   int          `json:"offset"`
}

// StackView lists frames ordered global, function, block.
type StackView struct {
	Frames []StackFrame `json:"frames"`
}

// HeapView lists dynamic allocations with a fragmentation estimate that
// grows with allocation count.
type HeapView struct {
	Allocations   []VariableInfo `json:"allocations"`
	Fragmentation float64        `json:"fragmentation"`
}

// FlowNode is one step of the estimated execution flow.
type FlowNode struct {
	ID      int    `json:"id"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Line    int    `json:"line"`
}

// FlowEdge links consecutive flow nodes.
type FlowEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// FlowView is the sequential control-flow sketch.
type FlowView struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
}

// StructureInfo describes one detected container.
type StructureInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	SizeBytes int    `json:"size_bytes"`
	Line      int    `json:"line"`
}

// StructuresView lists detected standard containers.
type StructuresView struct {
	Structures []StructureInfo `json:"structures"`
}

// Result is a complete visualization. The view field matching Kind is
// populated; kind "full" populates all five.
type Result struct {
	Kind       string          `json:"kind"`
	Variables  []VariableInfo  `json:"variables"`
	Footprint  Footprint       `json:"footprint"`
	Metadata   Metadata        `json:"metadata"`
	Memory     *MemoryView     `json:"memory,omitempty"`
	Stack      *StackView      `json:"stack,omitempty"`
	Heap       *HeapView       `json:"heap,omitempty"`
	Flow       *FlowView       `json:"flow,omitempty"`
	Structures *StructuresView `json:"structures,omitempty"`
}
