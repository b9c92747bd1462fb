package recommend

import (
	"context"
	"math"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/attribution"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/bootstrap"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/percentile"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// generateAvailability implements §4.3 steps 3-12 for sli_type=availability.
func (p *Pipeline) generateAvailability(ctx context.Context, svc *service.Service, window sli.Window, lookbackDays int, isColdStart bool, completeness float64, subgraph *ports.Subgraph, now time.Time) (*recommendation.Recommendation, string, error) {
	observed, err := p.telemetry.AvailabilitySLI(ctx, svc.ServiceID, window)
	if err != nil {
		return nil, "", errors.TelemetryUnavailable("availability_sli", err)
	}
	rolling, err := p.telemetry.RollingAvailability(ctx, svc.ServiceID, window, p.cfg.RollingBucket)
	if err != nil {
		return nil, "", errors.TelemetryUnavailable("rolling_availability", err)
	}
	if observed == nil || len(rolling) == 0 {
		return nil, "no availability telemetry for this window", errors.InsufficientData(svc.ServiceID, "no availability telemetry")
	}

	values := make([]float64, len(rolling))
	for i, b := range rolling {
		values[i] = b.Value
	}
	sorted := percentile.Sorted(values)

	// Step 6: composite bound over hard-sync dependency chain.
	bound, err := p.dependencyBound(ctx, svc.ServiceID, observed.AvailabilityRatio, window, subgraph)
	if err != nil {
		return nil, "", err
	}

	// Step 7: tier computation, per §4.3's availability rule.
	conservativeRaw := percentile.Value(sorted, 0.001)
	balancedRaw := percentile.Value(sorted, 0.01)
	aggressiveRaw := percentile.Value(sorted, 0.05)

	conservative := math.Min(conservativeRaw, bound.RComposite)
	balanced := math.Min(balancedRaw, bound.RComposite)
	aggressive := aggressiveRaw

	source := bootstrapSource(p)
	tiers := map[recommendation.TierName]recommendation.Tier{
		recommendation.TierConservative: buildAvailabilityTier(conservative, 0.001, sorted, rolling, p.cfg.BootstrapResamples, source),
		recommendation.TierBalanced:     buildAvailabilityTier(balanced, 0.01, sorted, rolling, p.cfg.BootstrapResamples, source),
		recommendation.TierAggressive:   buildAvailabilityTier(aggressive, 0.05, sorted, rolling, p.cfg.BootstrapResamples, source),
	}

	// Step 10: weighted feature attribution.
	downstreamRisk := clamp01(0)
	if observed.AvailabilityRatio > 0 {
		downstreamRisk = clamp01((observed.AvailabilityRatio - bound.RComposite) / observed.AvailabilityRatio)
	}
	externalReliability := 1.0
	if len(bound.SoftRisks) > 0 {
		externalReliability = clamp01(float64(bound.SoftCount) / float64(bound.SoftCount+bound.HardCount+1))
	}
	contributions, err := attribution.Compute(attribution.AvailabilityWeights, map[string]float64{
		"historical_availability": observed.AvailabilityRatio,
		"downstream_risk":         downstreamRisk,
		"external_reliability":    externalReliability,
		"deployment_freq":         0,
	})
	if err != nil {
		return nil, "", err
	}

	// Step 11: deterministic explanation.
	explanation := recommendation.Explanation{
		Summary:      summaryText(observed.AvailabilityRatio*100, balanced*100, (observed.AvailabilityRatio-balanced)*100, bound.HardCount, bound.Bottleneck),
		Attributions: toFeatureAttributions(contributions),
	}
	if len(bound.SoftRisks) > 0 {
		explanation.DependencyImpactSummary = "soft dependencies at risk: " + joinStrings(bound.SoftRisks)
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
		"", svc.ServiceID, recommendation.SLITypeAvailability, "error_rate",
		tiers, explanation, dataQuality, window.Start, window.End, now, p.cfg.TTL,
	)
	if err != nil {
		return nil, "", err
	}

	// Step 12: persist (supersede + insert atomically).
	if err := p.persist(ctx, rec); err != nil {
		return nil, "", err
	}
	return rec, "", nil
}

func buildAvailabilityTier(target, p float64, sorted []float64, rolling []sli.RollingBucket, resamples int, source ports.PRNG) recommendation.Tier {
	ci := bootstrap.Confidence(sorted, resamples, source, func(sample []float64) float64 {
		return percentile.Value(sample, p)
	})
	targetPct := target * 100
	return recommendation.Tier{
		Target:             targetPct,
		BreachProbability:  breachProbabilityRatio(rolling, target),
		ConfidenceLower:    ci.Lower * 100,
		ConfidenceUpper:    ci.Upper * 100,
		ErrorBudgetMinutes: errorBudgetMinutes(targetPct),
	}
}

func toFeatureAttributions(contributions []attribution.Contribution) []recommendation.FeatureAttribution {
	out := make([]recommendation.FeatureAttribution, len(contributions))
	for i, c := range contributions {
		out[i] = recommendation.FeatureAttribution{Feature: c.Feature, Contribution: c.Contribution}
	}
	return out
}

func joinStrings(in []string) string {
	out := ""
	for i, s := range in {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
