package monitor

import (
	"context"
	"testing"
)

func TestStartSpan(t *testing.T) {
	tr := NewTracer()
	ctx, span := tr.StartSpan(context.Background(), "execute",
		AttrExecID.String("abc"),
		AttrLanguage.String("cpp17"),
	)
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}
	defer span.End()

	if got := SpanFromContext(ctx); got != span {
		t.Error("span not stored in returned context")
	}
}

func TestAttributeKeys(t *testing.T) {
	cases := []struct {
		kv   string
		want string
	}{
		{string(AttrFingerprint), "engine.fingerprint"},
		{string(AttrState), "engine.state"},
		{string(AttrCached), "engine.cached"},
		{string(AttrDurationMS), "engine.duration_ms"},
	}
	for _, tc := range cases {
		if tc.kv != tc.want {
			t.Errorf("attribute key = %q, want %q", tc.kv, tc.want)
		}
	}
}
