// Package sli defines the SLI value objects — AvailabilitySLI and
// LatencySLI — returned by the telemetry adapter and consumed by the
// recommendation pipeline's tier computation.
package sli

import (
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// Window is an inclusive observation range.
type Window struct {
	Start time.Time
	End   time.Time
}

// AvailabilitySLI is a good/total ratio observed over a window.
type AvailabilitySLI struct {
	GoodEvents       int64
	TotalEvents      int64
	AvailabilityRatio float64
	Window           Window
	SampleCount       int
}

// NewAvailabilitySLI validates and constructs an AvailabilitySLI. The ratio
// is derived, never supplied, so it can never drift from good/total.
func NewAvailabilitySLI(good, total int64, window Window, sampleCount int) (*AvailabilitySLI, error) {
	if good < 0 || good > total {
		return nil, errors.InvalidInput("good_events", "must satisfy 0 <= good_events <= total_events")
	}
	ratio := 0.0
	if total > 0 {
		ratio = float64(good) / float64(total)
	}
	if ratio < 0 || ratio > 1 {
		return nil, errors.InvalidInput("availability_ratio", "must be in [0,1]")
	}
	return &AvailabilitySLI{
		GoodEvents:        good,
		TotalEvents:       total,
		AvailabilityRatio: ratio,
		Window:            window,
		SampleCount:       sampleCount,
	}, nil
}

// LatencySLI carries ordered latency percentiles observed over a window.
type LatencySLI struct {
	P50Ms       float64
	P95Ms       float64
	P99Ms       float64
	P999Ms      float64
	Window      Window
	SampleCount int
}

// NewLatencySLI validates ordering p50 <= p95 <= p99 <= p999 and
// non-negativity before constructing a LatencySLI.
func NewLatencySLI(p50, p95, p99, p999 float64, window Window, sampleCount int) (*LatencySLI, error) {
	if p50 < 0 || p95 < 0 || p99 < 0 || p999 < 0 {
		return nil, errors.InvalidInput("percentiles", "must be non-negative")
	}
	if !(p50 <= p95 && p95 <= p99 && p99 <= p999) {
		return nil, errors.InvalidInput("percentiles", "must satisfy p50 <= p95 <= p99 <= p999")
	}
	return &LatencySLI{
		P50Ms:       p50,
		P95Ms:       p95,
		P99Ms:       p99,
		P999Ms:      p999,
		Window:      window,
		SampleCount: sampleCount,
	}, nil
}

// RollingBucket is one point in a rolling-window availability series, used
// as the input to tier computation, breach-probability estimation, and
// bootstrap confidence intervals.
type RollingBucket struct {
	BucketStart time.Time
	Value       float64 // availability ratio for this bucket
}
