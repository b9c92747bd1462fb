// Package attribution computes weighted feature attribution for a
// recommendation's explanation: a fixed, SLI-type-specific weight table
// applied to observed feature values, normalized to sum to 1.0.
package attribution

import (
	"math"
	"sort"

	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// WeightTable maps a feature name to its fixed weight; weights for a single
// table must sum to 1.0.
type WeightTable map[string]float64

// AvailabilityWeights is the fixed weight table for availability
// recommendations (§4.5).
var AvailabilityWeights = WeightTable{
	"historical_availability": 0.40,
	"downstream_risk":         0.30,
	"external_reliability":    0.15,
	"deployment_freq":         0.15,
}

// LatencyWeights is the fixed weight table for latency recommendations (§4.5).
var LatencyWeights = WeightTable{
	"p99_historical":      0.50,
	"call_chain_depth":    0.22,
	"noisy_neighbor":      0.15,
	"traffic_seasonality": 0.13,
}

// Contribution is one ranked feature's normalized share of a recommendation's
// explanation.
type Contribution struct {
	Feature      string
	Contribution float64
}

// Compute applies weights to values and normalizes the result to sum to
// 1.0, sorted by absolute contribution descending. The inputs must supply
// exactly the keys the weight table lists; missing or extra keys are an
// error. If every weighted value is zero, contribution is distributed
// uniformly across features.
func Compute(weights WeightTable, values map[string]float64) ([]Contribution, error) {
	if len(values) != len(weights) {
		return nil, errors.InvalidInput("values", "must supply exactly the keys the weight table lists")
	}
	for feature := range weights {
		if _, ok := values[feature]; !ok {
			return nil, errors.InvalidInput("values", "missing required feature: "+feature)
		}
	}
	for feature := range values {
		if _, ok := weights[feature]; !ok {
			return nil, errors.InvalidInput("values", "unexpected feature not in weight table: "+feature)
		}
	}

	raw := make(map[string]float64, len(weights))
	total := 0.0
	for feature, weight := range weights {
		contribution := values[feature] * weight
		raw[feature] = contribution
		total += contribution
	}

	normalized := make([]Contribution, 0, len(weights))
	if total == 0 {
		uniform := 1.0 / float64(len(weights))
		for feature := range weights {
			normalized = append(normalized, Contribution{Feature: feature, Contribution: uniform})
		}
	} else {
		for feature, contribution := range raw {
			normalized = append(normalized, Contribution{Feature: feature, Contribution: contribution / total})
		}
	}

	sort.Slice(normalized, func(i, j int) bool {
		return math.Abs(normalized[i].Contribution) > math.Abs(normalized[j].Contribution)
	})
	return normalized, nil
}
