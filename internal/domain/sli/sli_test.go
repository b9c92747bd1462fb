package sli

import (
	"testing"
	"time"
)

func TestNewAvailabilitySLIComputesRatio(t *testing.T) {
	w := Window{Start: time.Now().Add(-24 * time.Hour), End: time.Now()}
	s, err := NewAvailabilitySLI(990, 1000, w, 1000)
	if err != nil {
		t.Fatalf("NewAvailabilitySLI() error = %v", err)
	}
	if s.AvailabilityRatio != 0.99 {
		t.Errorf("AvailabilityRatio = %v, want 0.99", s.AvailabilityRatio)
	}
}

func TestNewAvailabilitySLIRejectsGoodGreaterThanTotal(t *testing.T) {
	if _, err := NewAvailabilitySLI(10, 5, Window{}, 5); err == nil {
		t.Fatalf("expected error when good_events > total_events")
	}
}

func TestNewAvailabilitySLIZeroTotal(t *testing.T) {
	s, err := NewAvailabilitySLI(0, 0, Window{}, 0)
	if err != nil {
		t.Fatalf("NewAvailabilitySLI() error = %v", err)
	}
	if s.AvailabilityRatio != 0 {
		t.Errorf("AvailabilityRatio = %v, want 0 for zero-sample window", s.AvailabilityRatio)
	}
}

func TestNewLatencySLIValidatesOrdering(t *testing.T) {
	if _, err := NewLatencySLI(100, 50, 200, 300, Window{}, 10); err == nil {
		t.Fatalf("expected error for p50 > p95")
	}
	if _, err := NewLatencySLI(-1, 50, 200, 300, Window{}, 10); err == nil {
		t.Fatalf("expected error for negative percentile")
	}
	l, err := NewLatencySLI(50, 95, 99, 150, Window{}, 10)
	if err != nil {
		t.Fatalf("NewLatencySLI() error = %v", err)
	}
	if l.P999Ms != 150 {
		t.Errorf("P999Ms = %v, want 150", l.P999Ms)
	}
}
