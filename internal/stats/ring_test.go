package stats

import (
	"math"
	"testing"
)

func TestRingMeanEmpty(t *testing.T) {
	r := NewRing(10)
	if got := r.Mean(); got != 0 {
		t.Errorf("Mean() of empty ring = %v, want 0", got)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRingMean(t *testing.T) {
	r := NewRing(10)
	r.Push(10)
	r.Push(20)
	r.Push(30)

	if got := r.Mean(); got != 20 {
		t.Errorf("Mean() = %v, want 20", got)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestRingEviction(t *testing.T) {
	r := NewRing(3)
	r.Push(100) // evicted
	r.Push(1)
	r.Push(2)
	r.Push(3)

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	if got := r.Mean(); math.Abs(got-2) > 1e-9 {
		t.Errorf("Mean() after eviction = %v, want 2", got)
	}
}

func TestRingEvictionWraps(t *testing.T) {
	r := NewRing(2)
	for i := 1; i <= 100; i++ {
		r.Push(float64(i))
	}
	// Only 99 and 100 remain.
	if got := r.Mean(); math.Abs(got-99.5) > 1e-9 {
		t.Errorf("Mean() = %v, want 99.5", got)
	}
}

func TestRingMinCapacity(t *testing.T) {
	r := NewRing(0)
	r.Push(5)
	r.Push(7)
	if got := r.Mean(); got != 7 {
		t.Errorf("Mean() = %v, want 7", got)
	}
}
