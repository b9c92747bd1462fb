// Package constraint implements error budget breakdown, unachievability
// detection, and upstream impact analysis (§4.4) on top of the same
// composite-availability math the recommendation pipeline uses.
package constraint

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/composite"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/cycledetect"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// minutesPerMonth matches the 43200 constant (30 days) used throughout §4.4.
const minutesPerMonth = 43200

// unachievableSentinel bounds consumption_pct when target == 100 to avoid
// propagating an infinity through downstream reporting.
const unachievableSentinel = 999999.99

// Config carries the tunables constraint analysis shares with the
// recommendation pipeline.
type Config struct {
	DepDefaultAvailability float64
	ExternalBufferK        float64
	SubgraphDepth          int
	ImpactMaxDepth         int
	LookbackDays           int
}

// DefaultConfig mirrors recommend.DefaultConfig's relevant fields.
func DefaultConfig() Config {
	return Config{
		DepDefaultAvailability: 0.999,
		ExternalBufferK:        11,
		SubgraphDepth:          3,
		ImpactMaxDepth:         3,
		LookbackDays:           30,
	}
}

// UseCase implements §4.4's three operations.
type UseCase struct {
	services  ports.ServiceRepository
	deps      ports.DependencyRepository
	telemetry ports.TelemetryQuery
	recs      ports.RecommendationRepository
	clock     ports.Clock
	cfg       Config
}

// New constructs a UseCase.
func New(services ports.ServiceRepository, deps ports.DependencyRepository, telemetry ports.TelemetryQuery, recs ports.RecommendationRepository, clock ports.Clock, cfg Config) *UseCase {
	return &UseCase{services: services, deps: deps, telemetry: telemetry, recs: recs, clock: clock, cfg: cfg}
}

// RiskLevel classifies how much of the error budget a single dependency
// consumes.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

func riskFor(consumptionPct float64) RiskLevel {
	switch {
	case consumptionPct > 30:
		return RiskHigh
	case consumptionPct >= 20:
		return RiskModerate
	default:
		return RiskLow
	}
}

// DependencyConsumption is one hard dependency's share of the error budget.
type DependencyConsumption struct {
	ServiceID      string
	Availability   float64
	ConsumptionPct float64
	Risk           RiskLevel
}

// BudgetBreakdown is the result of BudgetBreakdown.
type BudgetBreakdown struct {
	ServiceID          string
	TargetPct          float64
	TotalBudgetMinutes float64
	Dependencies       []DependencyConsumption
}

// BudgetBreakdown computes the error budget and each hard dependency's
// consumption share for a proposed target.
func (u *UseCase) BudgetBreakdown(ctx context.Context, serviceID string, targetPct float64) (*BudgetBreakdown, error) {
	if targetPct <= 0 || targetPct > 100 {
		return nil, errors.InvalidInput("target_pct", "must be in (0, 100]")
	}
	if _, err := u.services.GetByServiceID(ctx, serviceID); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	window := u.window(now)
	subgraph, err := u.deps.Traverse(ctx, serviceID, ports.DirectionDownstream, u.cfg.SubgraphDepth, false)
	if err != nil {
		return nil, errors.TelemetryUnavailable("traverse subgraph", err)
	}
	depBound, _, err := u.hardDependencies(ctx, serviceID, subgraph, window, nil, 0)
	if err != nil {
		return nil, err
	}

	result := &BudgetBreakdown{
		ServiceID:          serviceID,
		TargetPct:          targetPct,
		TotalBudgetMinutes: (1 - targetPct/100) * minutesPerMonth,
	}
	remainder := 1 - targetPct/100
	for _, d := range depBound {
		consumption := unachievableSentinel
		if targetPct < 100 {
			consumption = (1 - d.Availability) / remainder * 100
		}
		result.Dependencies = append(result.Dependencies, DependencyConsumption{
			ServiceID:      d.ServiceID,
			Availability:   d.Availability,
			ConsumptionPct: consumption,
			Risk:           riskFor(consumption),
		})
	}
	sort.Slice(result.Dependencies, func(i, j int) bool {
		return result.Dependencies[i].ServiceID < result.Dependencies[j].ServiceID
	})
	return result, nil
}

// UnachievabilityResult reports whether a target is reachable given the
// current dependency chain.
type UnachievabilityResult struct {
	Unachievable                      bool
	RComposite                        float64
	Gap                               float64
	HardDependencyCount               int
	RequiredPerDependencyAvailability float64
	Remediation                       string
}

// Unachievability implements the 10x rule: a target is unachievable iff
// R_composite < target/100, and when so each of the n hard deps must reach
// at least 1 - (1-target)/(n+1) for the target to become reachable.
func (u *UseCase) Unachievability(ctx context.Context, serviceID string, targetPct float64) (*UnachievabilityResult, error) {
	if targetPct <= 0 || targetPct > 100 {
		return nil, errors.InvalidInput("target_pct", "must be in (0, 100]")
	}
	now := u.clock.Now()
	window := u.window(now)

	bound, err := u.compositeBoundFor(ctx, serviceID, window, nil, 0)
	if err != nil {
		return nil, err
	}

	targetRatio := targetPct / 100
	result := &UnachievabilityResult{
		RComposite:           bound.RComposite,
		HardDependencyCount:  bound.HardCount,
		Unachievable:         bound.RComposite < targetRatio,
	}
	if !result.Unachievable {
		return result, nil
	}

	result.Gap = targetRatio - bound.RComposite
	n := float64(bound.HardCount)
	required := 1 - (1-targetRatio)/(n+1)
	result.RequiredPerDependencyAvailability = required
	result.Remediation = fmt.Sprintf(
		"target %.3f%% is unachievable at the current composite bound %.3f%% (gap %.4f). "+
			"Each of the %d hard dependencies must reach at least %.4f%% availability, "+
			"or the dependency chain must be shortened or made redundant.",
		targetPct, bound.RComposite*100, result.Gap, bound.HardCount, required*100,
	)
	return result, nil
}

// UpstreamImpact is one upstream service's projected change in composite
// bound if serviceID's availability moved to the proposed value.
type UpstreamImpact struct {
	ServiceID       string
	CurrentBound    float64
	ProjectedBound  float64
	Delta           float64
	ActiveTargetPct float64
	SLOAtRisk       bool
}

// ImpactAnalysis enumerates upstream services within the configured max
// depth, recomputes their composite bound with serviceID's availability
// replaced by proposedAvailability, and flags any whose active target would
// no longer be met by the projected bound.
func (u *UseCase) ImpactAnalysis(ctx context.Context, serviceID string, proposedAvailability float64) ([]UpstreamImpact, error) {
	if proposedAvailability <= 0 || proposedAvailability > 1 {
		return nil, errors.InvalidInput("proposed_availability", "must be in (0, 1]")
	}
	upstream, err := u.deps.Traverse(ctx, serviceID, ports.DirectionUpstream, u.cfg.ImpactMaxDepth, false)
	if err != nil {
		return nil, errors.TelemetryUnavailable("traverse upstream", err)
	}

	now := u.clock.Now()
	window := u.window(now)
	sliType := recommendation.SLITypeAvailability

	var impacts []UpstreamImpact
	for _, upstreamID := range upstream.Nodes {
		if upstreamID == serviceID {
			continue
		}
		current, err := u.compositeBoundFor(ctx, upstreamID, window, nil, 0)
		if err != nil {
			return nil, err
		}
		projected, err := u.compositeBoundFor(ctx, upstreamID, window, &serviceID, proposedAvailability)
		if err != nil {
			return nil, err
		}

		impact := UpstreamImpact{
			ServiceID:      upstreamID,
			CurrentBound:   current.RComposite,
			ProjectedBound: projected.RComposite,
			Delta:          projected.RComposite - current.RComposite,
		}

		active, err := u.recs.GetActive(ctx, upstreamID, &sliType)
		if err != nil {
			return nil, err
		}
		if len(active) > 0 {
			if balanced, ok := active[0].Tiers[recommendation.TierBalanced]; ok {
				impact.ActiveTargetPct = balanced.Target
				if balanced.Target/100 > projected.RComposite {
					impact.SLOAtRisk = true
				}
			}
		}
		impacts = append(impacts, impact)
	}

	sort.Slice(impacts, func(i, j int) bool {
		return math.Abs(impacts[i].Delta) > math.Abs(impacts[j].Delta)
	})
	return impacts, nil
}

func (u *UseCase) window(now time.Time) sli.Window {
	return sli.Window{Start: now.AddDate(0, 0, -u.cfg.LookbackDays), End: now}
}

// compositeBoundFor computes svcID's own composite bound: self-availability
// resolved the same way a caller resolves any dependency's availability
// (telemetry ratio, external adaptive buffer, or configured default), folded
// with its hard-sync dependency chain. overrideID/overrideAvail substitute a
// single dependency's availability anywhere it appears in the chain, used by
// ImpactAnalysis to project a proposed change without mutating stored state.
func (u *UseCase) compositeBoundFor(ctx context.Context, svcID string, window sli.Window, overrideID *string, overrideAvail float64) (composite.Bound, error) {
	selfAvailability, err := u.dependencyAvailability(ctx, svcID, window, overrideID, overrideAvail)
	if err != nil {
		return composite.Bound{}, err
	}
	subgraph, err := u.deps.Traverse(ctx, svcID, ports.DirectionDownstream, u.cfg.SubgraphDepth, false)
	if err != nil {
		return composite.Bound{}, errors.TelemetryUnavailable("traverse subgraph", err)
	}
	deps, softRisks, err := u.hardDependencies(ctx, svcID, subgraph, window, overrideID, overrideAvail)
	if err != nil {
		return composite.Bound{}, err
	}
	bound := composite.Compute(selfAvailability, deps)
	bound.SoftRisks = append(bound.SoftRisks, softRisks...)
	sort.Strings(bound.SoftRisks)
	return bound, nil
}

// hardDependencies gathers a subgraph's hard-sync edges, collapses any SCC
// among them to a supernode (min(members)), and resolves each resulting
// dependency's availability, honoring the override substitution.
func (u *UseCase) hardDependencies(ctx context.Context, serviceID string, subgraph *ports.Subgraph, window sli.Window, overrideID *string, overrideAvail float64) ([]composite.Dependency, []string, error) {
	var hardPairs [][2]string
	hardNodes := map[string]bool{}
	var softRisks []string
	for _, e := range subgraph.Edges {
		if e.CommunicationMode == graph.CommunicationSync && e.Criticality == graph.CriticalityHard {
			// serviceID is the subject whose availability is already folded
			// in as selfAvailability; an edge touching it only identifies
			// the other endpoint as a hard dependency, not serviceID as one
			// of its own dependencies.
			if e.Source != serviceID {
				hardNodes[e.Source] = true
			}
			if e.Target != serviceID {
				hardNodes[e.Target] = true
			}
			if e.Source != serviceID && e.Target != serviceID {
				hardPairs = append(hardPairs, [2]string{e.Source, e.Target})
			}
		} else {
			softRisks = append(softRisks, e.Target)
		}
	}

	nodeIDs := make([]string, 0, len(hardNodes))
	for id := range hardNodes {
		nodeIDs = append(nodeIDs, id)
	}
	g := cycledetect.NewGraph(nodeIDs, hardPairs)
	sccs := cycledetect.SCCs(g)

	inSCC := map[string]string{}
	var deps []composite.Dependency
	for _, members := range sccs {
		minAvail := 1.0
		for _, m := range members {
			avail, err := u.dependencyAvailability(ctx, m, window, overrideID, overrideAvail)
			if err != nil {
				return nil, nil, err
			}
			if avail < minAvail {
				minAvail = avail
			}
		}
		canonical := graph.CanonicalID(members)
		for _, m := range members {
			inSCC[m] = canonical
		}
		deps = append(deps, composite.Dependency{ServiceID: canonical, Availability: minAvail, Kind: composite.KindSerialHard})
	}

	for m := range hardNodes {
		if _, ok := inSCC[m]; ok {
			continue
		}
		avail, err := u.dependencyAvailability(ctx, m, window, overrideID, overrideAvail)
		if err != nil {
			return nil, nil, err
		}
		deps = append(deps, composite.Dependency{ServiceID: m, Availability: avail, Kind: composite.KindSerialHard})
	}

	sort.Slice(deps, func(i, j int) bool { return deps[i].ServiceID < deps[j].ServiceID })
	sort.Strings(softRisks)
	return deps, dedupe(softRisks), nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// dependencyAvailability resolves a single dependency's availability:
// overrideID short-circuits to overrideAvail (the substitution ImpactAnalysis
// projects), otherwise external services get the adaptive buffer and
// internal services fall back to the configured default when telemetry is
// absent, exactly as the recommendation pipeline resolves its own
// dependencies.
func (u *UseCase) dependencyAvailability(ctx context.Context, depServiceID string, window sli.Window, overrideID *string, overrideAvail float64) (float64, error) {
	if overrideID != nil && depServiceID == *overrideID {
		return overrideAvail, nil
	}
	depSvc, err := u.services.GetByServiceID(ctx, depServiceID)
	if err != nil {
		return u.cfg.DepDefaultAvailability, nil
	}

	observedSLI, err := u.telemetry.AvailabilitySLI(ctx, depServiceID, window)
	if err != nil {
		return 0, errors.TelemetryUnavailable("dependency availability_sli", err)
	}
	var observed *float64
	if observedSLI != nil {
		observed = &observedSLI.AvailabilityRatio
	}

	if depSvc.Type == service.TypeExternal {
		return composite.AdaptiveBuffer(observed, depSvc.PublishedSLA, u.cfg.ExternalBufferK, u.cfg.DepDefaultAvailability), nil
	}
	if observed != nil {
		return *observed, nil
	}
	return u.cfg.DepDefaultAvailability, nil
}
