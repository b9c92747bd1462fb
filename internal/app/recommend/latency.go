package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/attribution"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/bootstrap"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// generateLatency implements §4.3 steps 3-12 for sli_type=latency.
func (p *Pipeline) generateLatency(ctx context.Context, svc *service.Service, window sli.Window, lookbackDays int, isColdStart bool, completeness float64, subgraph *ports.Subgraph, now time.Time) (*recommendation.Recommendation, string, error) {
	observed, err := p.telemetry.LatencyPercentiles(ctx, svc.ServiceID, window)
	if err != nil {
		return nil, "", errors.TelemetryUnavailable("latency_percentiles", err)
	}
	if observed == nil {
		return nil, "no latency telemetry for this window", errors.InsufficientData(svc.ServiceID, "no latency telemetry")
	}

	margin := p.cfg.NoiseMarginDefault
	if shareInfra(svc) {
		margin = p.cfg.NoiseMarginShared
	}

	conservative := math.Ceil(observed.P999Ms * (1 + margin))
	balanced := math.Ceil(observed.P99Ms * (1 + margin))
	aggressive := observed.P95Ms

	source := bootstrapSource(p)
	tiers := map[recommendation.TierName]recommendation.Tier{
		recommendation.TierConservative: buildLatencyTier(conservative, observed),
		recommendation.TierBalanced:     buildLatencyTier(balanced, observed),
		recommendation.TierAggressive:   buildLatencyTier(aggressive, observed),
	}
	_ = source // bootstrap CI for latency degenerates to the point estimate; see buildLatencyTier.

	depth := float64(subgraph.ReachedDepth)
	maxDepth := float64(p.cfg.SubgraphDepth)
	callChainDepth := 0.0
	if maxDepth > 0 {
		callChainDepth = clamp01(depth / maxDepth)
	}
	p99Historical := 0.0
	if observed.P999Ms > 0 {
		p99Historical = clamp01(observed.P99Ms / observed.P999Ms)
	}

	contributions, err := attribution.Compute(attribution.LatencyWeights, map[string]float64{
		"p99_historical":      p99Historical,
		"call_chain_depth":    callChainDepth,
		"noisy_neighbor":      0,
		"traffic_seasonality": 0,
	})
	if err != nil {
		return nil, "", err
	}

	explanation := recommendation.Explanation{
		Summary: fmt.Sprintf(
			"Observed p99 latency %.0f ms over the lookback window; recommended balanced target %.0f ms (p99 plus a %.1f%% noise margin).",
			observed.P99Ms, balanced, margin*100,
		),
		Attributions: toFeatureAttributions(contributions),
	}

	dataQuality := recommendation.DataQuality{
		Completeness:       completeness,
		IsColdStart:        isColdStart,
		LookbackDaysActual: lookbackDays,
	}
	if completeness < p.cfg.CompletenessThreshold {
		dataQuality.ConfidenceNote = "telemetry completeness below threshold even after extended lookback"
		dataQuality.TelemetryGaps = []string{"completeness_below_threshold"}
	}

	rec, err := recommendation.New(
		"", svc.ServiceID, recommendation.SLITypeLatency, "p99_response_time_ms",
		tiers, explanation, dataQuality, window.Start, window.End, now, p.cfg.TTL,
	)
	if err != nil {
		return nil, "", err
	}

	if err := p.persist(ctx, rec); err != nil {
		return nil, "", err
	}
	return rec, "", nil
}

// buildLatencyTier computes breach probability via piecewise-linear
// interpolation over the four observed percentile anchors, and a
// confidence interval that degenerates to the point estimate: no rolling
// per-request latency series is available from the telemetry port (only
// the aggregate percentiles), so bootstrap.Confidence's single-element
// short-circuit is reused deliberately rather than resampling three points.
func buildLatencyTier(target float64, observed *sli.LatencySLI) recommendation.Tier {
	ci := bootstrap.Confidence([]float64{target}, 1, nil, func(sample []float64) float64 { return sample[0] })
	return recommendation.Tier{
		Target:            target,
		BreachProbability: latencyBreachProbability(target, observed),
		ConfidenceLower:   ci.Lower,
		ConfidenceUpper:   ci.Upper,
	}
}

// latencyBreachProbability estimates P(latency > target) by linear
// interpolation between the exceedance rates implied by the four observed
// percentile anchors (p50->0.50, p95->0.05, p99->0.01, p999->0.001). A
// target at or below p50 yields 0.50; a target at or above p999 yields
// half the p999 rate (0.0005).
func latencyBreachProbability(target float64, observed *sli.LatencySLI) float64 {
	type anchor struct {
		value      float64
		exceedance float64
	}
	anchors := []anchor{
		{observed.P50Ms, 0.50},
		{observed.P95Ms, 0.05},
		{observed.P99Ms, 0.01},
		{observed.P999Ms, 0.001},
	}

	if target <= anchors[0].value {
		return anchors[0].exceedance
	}
	last := anchors[len(anchors)-1]
	if target >= last.value {
		return last.exceedance / 2
	}
	for i := 0; i < len(anchors)-1; i++ {
		lo, hi := anchors[i], anchors[i+1]
		if target >= lo.value && target <= hi.value {
			if hi.value == lo.value {
				return hi.exceedance
			}
			frac := (target - lo.value) / (hi.value - lo.value)
			return lo.exceedance + frac*(hi.exceedance-lo.exceedance)
		}
	}
	return last.exceedance
}
