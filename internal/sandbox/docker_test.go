package sandbox

import "testing"

func TestContainerName(t *testing.T) {
	got := containerName("3f2a9c1d")
	if got != "exec-3f2a9c1d" {
		t.Errorf("containerName = %q, want exec-3f2a9c1d", got)
	}
}
