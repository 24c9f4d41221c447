package visualizer

import (
	"regexp"
	"testing"

	"cpplab-engine/internal/request"
)

func visualize(t *testing.T, source, kind string) *Result {
	t.Helper()
	v := New()
	return v.Visualize(&request.VisualizationRequest{
		Source:   source,
		Language: request.LangCPP17,
		Kind:     kind,
	})
}

func findVar(vars []VariableInfo, name string) *VariableInfo {
	for i := range vars {
		if vars[i].Name == name {
			return &vars[i]
		}
	}
	return nil
}

func TestFullKindPopulatesAllViews(t *testing.T) {
	res := visualize(t, `#include <vector>
int main() {
    int count = 3;
    int* buf = new int[count];
    std::vector<int> values;
    if (count > 0) {
        return 1;
    }
    delete[] buf;
    return 0;
}`, "full")

	if res.Memory == nil {
		t.Error("memory view not populated")
	}
	if res.Stack == nil {
		t.Error("stack view not populated")
	}
	if res.Heap == nil {
		t.Error("heap view not populated")
	}
	if res.Flow == nil {
		t.Error("flow view not populated")
	}
	if res.Structures == nil {
		t.Error("structures view not populated")
	}
	if res.Kind != "full" {
		t.Errorf("kind = %q, want full", res.Kind)
	}
}

func TestFixedArray(t *testing.T) {
	res := visualize(t, `int main() {
    int x[10];
    return 0;
}`, "memory")

	v := findVar(res.Variables, "x")
	if v == nil {
		t.Fatalf("array x not found: %+v", res.Variables)
	}
	if v.Category != "array" || v.Storage != "stack" {
		t.Errorf("x = %+v, want array on stack", v)
	}
	if v.SizeBytes != 40 {
		t.Errorf("size = %d, want 40 (4*10)", v.SizeBytes)
	}
}

func TestDynamicArray(t *testing.T) {
	res := visualize(t, `int main() {
    int* p = new int[5];
    return 0;
}`, "memory")

	v := findVar(res.Variables, "p")
	if v == nil {
		t.Fatalf("p not found: %+v", res.Variables)
	}
	if v.Category != "dynamic_array" || v.Storage != "heap" {
		t.Errorf("p = %+v, want dynamic_array on heap", v)
	}
	if v.SizeBytes != 20 {
		t.Errorf("size = %d, want 20 (4*5)", v.SizeBytes)
	}
}

func TestPrimitiveSizes(t *testing.T) {
	src := `int main() {
    char c = 'a';
    short s = 1;
    int i = 2;
    double d = 3.0;
    return 0;
}`
	res := visualize(t, src, "memory")
	wants := map[string]int{"c": 1, "s": 2, "i": 4, "d": 8}
	for name, size := range wants {
		v := findVar(res.Variables, name)
		if v == nil {
			t.Errorf("%s not found", name)
			continue
		}
		if v.SizeBytes != size {
			t.Errorf("%s size = %d, want %d", name, v.SizeBytes, size)
		}
	}
}

func TestObjectEstimates(t *testing.T) {
	src := `int main() {
    std::string name;
    std::vector<int> items;
    std::map<int, int> index;
    return 0;
}`
	res := visualize(t, src, "memory")
	wants := map[string]int{"name": 32, "items": 24, "index": 48}
	for n, size := range wants {
		v := findVar(res.Variables, n)
		if v == nil {
			t.Errorf("%s not found: %+v", n, res.Variables)
			continue
		}
		if v.SizeBytes != size {
			t.Errorf("%s size = %d, want %d", n, v.SizeBytes, size)
		}
	}
}

func TestScopeByIndentation(t *testing.T) {
	src := `int g = 0;
int main() {
    int f = 1;
    if (f) {
        int b = 2;
    }
    return 0;
}`
	res := visualize(t, src, "memory")
	tests := map[string]string{"g": "global", "f": "function", "b": "block"}
	for name, scope := range tests {
		v := findVar(res.Variables, name)
		if v == nil {
			t.Errorf("%s not found", name)
			continue
		}
		if v.Scope != scope {
			t.Errorf("%s scope = %q, want %q", name, v.Scope, scope)
		}
	}
}

func TestFootprint(t *testing.T) {
	src := `int main() {
    int x[10];
    int* p = new int[5];
    return 0;
}`
	res := visualize(t, src, "memory")
	// 40 (array) + 64 overhead; p is claimed by the dynamic pass.
	if res.Footprint.StackBytes != 104 {
		t.Errorf("stack = %d, want 104", res.Footprint.StackBytes)
	}
	// 20 heap + 10% overhead = 22
	if res.Footprint.HeapBytes != 22 {
		t.Errorf("heap = %d, want 22", res.Footprint.HeapBytes)
	}
	if res.Footprint.TotalBytes != 126 {
		t.Errorf("total = %d, want 126", res.Footprint.TotalBytes)
	}
}

func TestHeapFragmentation(t *testing.T) {
	tests := []struct {
		allocs int
		want   float64
	}{
		{0, 0}, {3, 0.3}, {9, 0.9}, {20, 0.9},
	}
	for _, tt := range tests {
		if got := heapFragmentation(tt.allocs); got != tt.want {
			t.Errorf("fragmentation(%d) = %f, want %f", tt.allocs, got, tt.want)
		}
	}
}

func TestStackFrames(t *testing.T) {
	src := `int g = 0;
int main() {
    int a = 1;
    double b = 2.0;
    return 0;
}`
	res := visualize(t, src, "stack")
	if res.Stack == nil {
		t.Fatal("stack view not populated")
	}
	var fn *StackFrame
	for i := range res.Stack.Frames {
		if res.Stack.Frames[i].Scope == "function" {
			fn = &res.Stack.Frames[i]
		}
	}
	if fn == nil {
		t.Fatalf("no function frame: %+v", res.Stack.Frames)
	}
	if len(fn.Slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(fn.Slots))
	}
	if fn.Slots[0].Offset != 0 || fn.Slots[1].Offset != 4 {
		t.Errorf("offsets = %d,%d, want 0,4", fn.Slots[0].Offset, fn.Slots[1].Offset)
	}
	if fn.SizeBytes != 12 {
		t.Errorf("frame size = %d, want 12", fn.SizeBytes)
	}
}

func TestFlowView(t *testing.T) {
	src := `int main() {
    if (1) {
        return 1;
    }
    return 0;
}`
	res := visualize(t, src, "flow")
	if res.Flow == nil {
		t.Fatal("flow view not populated")
	}
	if len(res.Flow.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3 (if, return, return)", len(res.Flow.Nodes))
	}
	if res.Flow.Nodes[0].Kind != "if" {
		t.Errorf("first node kind = %q, want if", res.Flow.Nodes[0].Kind)
	}
	if len(res.Flow.Edges) != 2 {
		t.Errorf("edges = %d, want 2", len(res.Flow.Edges))
	}
	if res.Flow.Edges[0].From != 0 || res.Flow.Edges[0].To != 1 {
		t.Errorf("first edge = %+v, want 0->1", res.Flow.Edges[0])
	}
}

func TestStructuresView(t *testing.T) {
	src := `#include <vector>
int main() {
    std::vector<int> v;
    std::map<int, int> m;
    std::queue<int> q;
    return 0;
}`
	res := visualize(t, src, "structures")
	if res.Structures == nil {
		t.Fatal("structures view not populated")
	}
	wants := map[string]int{"v": 24, "m": 48, "q": 32}
	for _, s := range res.Structures.Structures {
		want, ok := wants[s.Name]
		if !ok {
			t.Errorf("unexpected structure %+v", s)
			continue
		}
		if s.SizeBytes != want {
			t.Errorf("%s size = %d, want %d", s.Name, s.SizeBytes, want)
		}
		delete(wants, s.Name)
	}
	if len(wants) != 0 {
		t.Errorf("missing structures: %v", wants)
	}
}

func TestSessionID(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{8}$`)
	for i := 0; i < 5; i++ {
		id := sessionID()
		if !re.MatchString(id) {
			t.Fatalf("session id %q not 8 hex digits", id)
		}
	}
}

func TestMetadata(t *testing.T) {
	res := visualize(t, "int x = 1;", "memory")
	if res.Metadata.RegionCount != len(res.Variables) {
		t.Errorf("region count = %d, want %d", res.Metadata.RegionCount, len(res.Variables))
	}
	if res.Metadata.GeneratedAt.IsZero() {
		t.Error("generated_at not set")
	}
}
