// Package recommendation defines the SLO Recommendation entity: the output
// of the twelve-step pipeline, its tiers, explanation, and lifecycle.
package recommendation

import (
	"math"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// SLIType selects which indicator a recommendation targets.
type SLIType string

const (
	SLITypeAvailability SLIType = "availability"
	SLITypeLatency      SLIType = "latency"
)

// TierName identifies one of the exactly-three computed tiers.
type TierName string

const (
	TierConservative TierName = "conservative"
	TierBalanced     TierName = "balanced"
	TierAggressive   TierName = "aggressive"
)

// Status tracks a recommendation's position in its lifecycle.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusExpired    Status = "expired"
)

// Tier carries one tier's target plus its supporting fields. Target is
// expressed as a percentage (availability) or milliseconds (latency),
// matching §4.3's tier computation.
type Tier struct {
	Target               float64
	BreachProbability    float64
	ConfidenceLower      float64
	ConfidenceUpper      float64
	ErrorBudgetMinutes   float64 // availability tiers only; zero for latency
}

// FeatureAttribution is one ranked contribution in an explanation.
type FeatureAttribution struct {
	Feature      string
	Contribution float64 // normalized, sums to 1.0 across the set
}

// Explanation is the deterministic human-facing summary attached to a
// recommendation.
type Explanation struct {
	Summary               string
	Attributions          []FeatureAttribution
	DependencyImpactSummary string
}

// DataQuality records how much the pipeline trusts the inputs it used.
type DataQuality struct {
	Completeness       float64
	TelemetryGaps      []string
	ConfidenceNote     string
	IsColdStart        bool
	LookbackDaysActual int
}

// Recommendation is a single computed recommendation for one
// (service, sli_type) pair.
type Recommendation struct {
	ID                   string
	ServiceID            string
	SLIType              SLIType
	Metric               string
	Tiers                map[TierName]Tier
	Explanation          Explanation
	DataQuality          DataQuality
	LookbackWindowStart  time.Time
	LookbackWindowEnd    time.Time
	GeneratedAt          time.Time
	ExpiresAt            time.Time
	Status               Status
}

const attributionTolerance = 1e-6

// New validates and constructs a Recommendation. All three tiers must be
// present; every breach-probability field must be in [0,1]; attribution
// contributions must sum to 1.0 within floating tolerance.
func New(
	id, serviceID string,
	sliType SLIType,
	metric string,
	tiers map[TierName]Tier,
	explanation Explanation,
	dataQuality DataQuality,
	lookbackStart, lookbackEnd, generatedAt time.Time,
	ttl time.Duration,
) (*Recommendation, error) {
	if serviceID == "" {
		return nil, errors.InvalidInput("service_id", "must not be empty")
	}
	if sliType != SLITypeAvailability && sliType != SLITypeLatency {
		return nil, errors.InvalidInput("sli_type", "must be availability or latency")
	}
	for _, name := range []TierName{TierConservative, TierBalanced, TierAggressive} {
		tier, ok := tiers[name]
		if !ok {
			return nil, errors.InvalidInput("tiers", "all three tiers (conservative, balanced, aggressive) are required")
		}
		if tier.BreachProbability < 0 || tier.BreachProbability > 1 {
			return nil, errors.InvalidInput("tiers", "breach_probability must be in [0,1]")
		}
	}
	if !lookbackStart.Before(lookbackEnd) {
		return nil, errors.InvalidInput("lookback_window", "lookback_window_start must be before lookback_window_end")
	}
	sum := 0.0
	for _, a := range explanation.Attributions {
		sum += a.Contribution
	}
	if len(explanation.Attributions) > 0 && math.Abs(sum-1.0) > attributionTolerance {
		return nil, errors.InvalidInput("attribution", "contributions must sum to 1.0 within tolerance")
	}

	return &Recommendation{
		ID:                  id,
		ServiceID:           serviceID,
		SLIType:             sliType,
		Metric:              metric,
		Tiers:               tiers,
		Explanation:         explanation,
		DataQuality:         dataQuality,
		LookbackWindowStart: lookbackStart,
		LookbackWindowEnd:   lookbackEnd,
		GeneratedAt:         generatedAt,
		ExpiresAt:           generatedAt.Add(ttl),
		Status:              StatusActive,
	}, nil
}

// Supersede transitions an active recommendation to superseded, as happens
// when a new recommendation is generated for the same (service, sli_type)
// pair in the same transaction.
func (r *Recommendation) Supersede() {
	r.Status = StatusSuperseded
}

// ExpireIfDue transitions an active recommendation to expired when now is
// past its expiry, and reports whether a transition occurred.
func (r *Recommendation) ExpireIfDue(now time.Time) bool {
	if r.Status == StatusActive && now.After(r.ExpiresAt) {
		r.Status = StatusExpired
		return true
	}
	return false
}
