package cache

import (
	"testing"
	"time"

	"cpplab-engine/internal/config"
	"cpplab-engine/internal/request"
	"cpplab-engine/internal/sandbox"
)

func testCache() *Cache {
	return New(config.CacheConfig{
		ExecutionTTL:     5 * time.Minute,
		AnalysisTTL:      30 * time.Minute,
		VisualizationTTL: 30 * time.Minute,
		CleanupInterval:  10 * time.Minute,
	}, nil)
}

func execReq(source string, flags ...string) *request.ExecutionRequest {
	return &request.ExecutionRequest{
		Source:   source,
		Language: request.LangC11,
		Flags:    flags,
		Timeout:  10 * time.Second,
	}
}

func TestExecutionFingerprint_Stable(t *testing.T) {
	a := ExecutionFingerprint(execReq("int main(){}", "-O2", "-Wall"))
	b := ExecutionFingerprint(execReq("int main(){}", "-O2", "-Wall"))
	if a != b {
		t.Error("identical requests produced different fingerprints")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestExecutionFingerprint_FlagOrderIndependent(t *testing.T) {
	a := ExecutionFingerprint(execReq("int main(){}", "-O2", "-Wall"))
	b := ExecutionFingerprint(execReq("int main(){}", "-Wall", "-O2"))
	if a != b {
		t.Error("flag order changed the fingerprint")
	}
}

func TestExecutionFingerprint_Sensitivity(t *testing.T) {
	base := ExecutionFingerprint(execReq("int main(){}"))

	changedSource := ExecutionFingerprint(execReq("int main(){return 1;}"))
	if base == changedSource {
		t.Error("source change did not change the fingerprint")
	}

	withStdin := execReq("int main(){}")
	withStdin.Stdin = "data"
	if base == ExecutionFingerprint(withStdin) {
		t.Error("stdin change did not change the fingerprint")
	}

	otherLang := execReq("int main(){}")
	otherLang.Language = request.LangCPP17
	if base == ExecutionFingerprint(otherLang) {
		t.Error("language change did not change the fingerprint")
	}
}

func TestExecutionFingerprint_TimeoutExcluded(t *testing.T) {
	a := execReq("int main(){}")
	b := execReq("int main(){}")
	b.Timeout = 30 * time.Second
	b.UserID = "someone-else"
	if ExecutionFingerprint(a) != ExecutionFingerprint(b) {
		t.Error("timeout or user identity leaked into the fingerprint")
	}
}

func TestExecutionRoundTrip(t *testing.T) {
	c := testCache()
	fp := ExecutionFingerprint(execReq("int main(){}"))

	if _, ok := c.GetExecution(fp); ok {
		t.Fatal("hit on empty cache")
	}

	c.PutExecution(fp, &sandbox.ExecutionResult{
		ID:      "e1",
		State:   sandbox.StateCompleted,
		Success: true,
		Stdout:  "hello",
	})

	got, ok := c.GetExecution(fp)
	if !ok {
		t.Fatal("miss after put")
	}
	if !got.Cached {
		t.Error("cached result not marked Cached")
	}
	if got.Stdout != "hello" {
		t.Errorf("stdout = %q", got.Stdout)
	}
}

func TestCachedCopyDoesNotMutateStored(t *testing.T) {
	c := testCache()
	original := &sandbox.ExecutionResult{ID: "e1", Success: true}
	c.PutExecution("fp", original)

	first, _ := c.GetExecution("fp")
	first.Stdout = "mutated"

	second, _ := c.GetExecution("fp")
	if second.Stdout != "" {
		t.Error("mutating a returned result changed the stored entry")
	}
	if original.Cached {
		t.Error("stored entry mutated by Get")
	}
}

func TestAnalysisFingerprint_CategoryOrderIndependent(t *testing.T) {
	a := AnalysisFingerprint(&request.AnalysisRequest{
		Source: "x", Language: request.LangC11, Categories: []string{"style", "security"},
	})
	b := AnalysisFingerprint(&request.AnalysisRequest{
		Source: "x", Language: request.LangC11, Categories: []string{"security", "style"},
	})
	if a != b {
		t.Error("category order changed the fingerprint")
	}
}

func TestKindsDoNotCollide(t *testing.T) {
	exec := ExecutionFingerprint(execReq("int main(){}"))
	analysis := AnalysisFingerprint(&request.AnalysisRequest{
		Source: "int main(){}", Language: request.LangC11,
	})
	viz := VisualizationFingerprint(&request.VisualizationRequest{
		Source: "int main(){}", Kind: "memory",
	})
	if exec == analysis || exec == viz || analysis == viz {
		t.Error("fingerprints of different kinds collided")
	}
}
