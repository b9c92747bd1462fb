// Package bootstrap computes confidence intervals by resampling with
// replacement, reproducible under a seeded PRNG source.
package bootstrap

import (
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/percentile"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/prng"
)

// Interval is a two-point confidence interval.
type Interval struct {
	Lower float64
	Upper float64
}

// Statistic computes a scalar summary of a resampled series, e.g. a
// percentile.
type Statistic func(sample []float64) float64

// Confidence resamples data with replacement resamples times, computing
// statistic on each resample, and returns the 2.5th/97.5th percentile of
// the resulting distribution. A single-element input degenerates to
// [x, x] since every resample can only draw that element.
func Confidence(data []float64, resamples int, source prng.Source, statistic Statistic) Interval {
	if len(data) == 0 {
		panic("bootstrap: empty input")
	}
	if len(data) == 1 {
		return Interval{Lower: data[0], Upper: data[0]}
	}

	results := make([]float64, resamples)
	sample := make([]float64, len(data))
	for i := 0; i < resamples; i++ {
		for j := range sample {
			sample[j] = data[source.IntN(len(data))]
		}
		results[i] = statistic(sample)
	}

	return Interval{
		Lower: percentile.Value(results, 0.025),
		Upper: percentile.Value(results, 0.975),
	}
}
