package visualizer

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"cpplab-engine/internal/request"
)

// Visualizer builds heuristic memory and flow views from source text. Like
// the analyzer it is purely lexical and works on code that does not compile.
type Visualizer struct{}

func New() *Visualizer {
	return &Visualizer{}
}

// Visualize runs the variable passes and assembles the requested view.
func (v *Visualizer) Visualize(req *request.VisualizationRequest) *Result {
	lines := strings.Split(req.Source, "\n")
	vars := scanVariables(lines)
	footprint := computeFootprint(vars)

	result := &Result{
		Kind:      req.Kind,
		Variables: vars,
		Footprint: footprint,
		Metadata: Metadata{
			SessionID:   sessionID(),
			GeneratedAt: time.Now().UTC(),
			RegionCount: len(vars),
			StackBytes:  footprint.StackBytes,
			HeapBytes:   footprint.HeapBytes,
		},
	}

	switch req.Kind {
	case "stack":
		result.Stack = buildStackView(vars)
	case "heap":
		result.Heap = buildHeapView(vars)
	case "flow":
		result.Flow = buildFlowView(lines)
	case "structures":
		result.Structures = buildStructuresView(lines)
	case "full":
		result.Memory = buildMemoryView(vars)
		result.Stack = buildStackView(vars)
		result.Heap = buildHeapView(vars)
		result.Flow = buildFlowView(lines)
		result.Structures = buildStructuresView(lines)
	default:
		result.Memory = buildMemoryView(vars)
	}
	return result
}

// sessionID returns an 8-hex-digit random identifier.
func sessionID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}
