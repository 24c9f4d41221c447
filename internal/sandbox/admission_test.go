package sandbox

import (
	"errors"
	"testing"
)

func TestAdmissionQueue(t *testing.T) {
	q := NewAdmissionQueue(2, nil)

	p1, err := q.Enter("e1")
	if err != nil {
		t.Fatalf("first enter: %v", err)
	}
	p2, err := q.Enter("e2")
	if err != nil {
		t.Fatalf("second enter: %v", err)
	}
	if q.InUse() != 2 {
		t.Errorf("InUse = %d, want 2", q.InUse())
	}

	if _, err := q.Enter("e3"); !errors.Is(err, ErrQueueSaturated) {
		t.Fatalf("saturated enter error = %v, want ErrQueueSaturated", err)
	}

	p1.Release()
	if q.InUse() != 1 {
		t.Errorf("InUse after release = %d, want 1", q.InUse())
	}

	p3, err := q.Enter("e3")
	if err != nil {
		t.Fatalf("enter after release: %v", err)
	}
	p2.Release()
	p3.Release()
}

func TestPermitDoubleRelease(t *testing.T) {
	q := NewAdmissionQueue(1, nil)
	p, err := q.Enter("e1")
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	p.Release()
	p.Release()
	if q.InUse() != 0 {
		t.Errorf("InUse = %d, want 0 after double release", q.InUse())
	}
}

func TestAdmissionQueueMinimumSlots(t *testing.T) {
	q := NewAdmissionQueue(0, nil)
	if q.Capacity() != 1 {
		t.Errorf("Capacity = %d, want 1", q.Capacity())
	}
}
