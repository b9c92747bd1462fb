// Package recommend implements the twelve-step recommendation pipeline
// (§4.3): one orchestration per (service, sli_type), composing the pure
// computation services in internal/domain/compute against the ports
// repositories and telemetry adapter.
package recommend

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
	"github.com/R3E-Network/slo-recommendation-engine/internal/metrics"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/prng"
)

// Config carries every tunable the pipeline needs from §6's configuration
// table.
type Config struct {
	LookbackDefaultDays     int
	LookbackExtendedDays    int
	CompletenessThreshold   float64
	DepDefaultAvailability  float64
	ExternalBufferK         float64
	TTL                     time.Duration
	NoiseMarginDefault      float64
	NoiseMarginShared       float64
	BootstrapResamples      int
	BootstrapSeed           uint64
	RollingBucket           time.Duration
	SubgraphDepth           int
}

// DefaultConfig returns the configuration table's documented defaults.
func DefaultConfig() Config {
	return Config{
		LookbackDefaultDays:    30,
		LookbackExtendedDays:   90,
		CompletenessThreshold:  0.90,
		DepDefaultAvailability: 0.999,
		ExternalBufferK:        11,
		TTL:                    24 * time.Hour,
		NoiseMarginDefault:     0.05,
		NoiseMarginShared:      0.10,
		BootstrapResamples:     1000,
		BootstrapSeed:          42,
		RollingBucket:          24 * time.Hour,
		SubgraphDepth:          3,
	}
}

// Pipeline orchestrates the twelve steps of §4.3 for one service at a time.
type Pipeline struct {
	services  ports.ServiceRepository
	deps      ports.DependencyRepository
	telemetry ports.TelemetryQuery
	recs      ports.RecommendationRepository
	clock     ports.Clock
	seedPRNG  func(seed uint64) ports.PRNG
	cfg       Config
	log       *logger.Logger
}

// New constructs a Pipeline. seedPRNG defaults to pkg/prng.New when nil.
func New(services ports.ServiceRepository, deps ports.DependencyRepository, telemetry ports.TelemetryQuery, recs ports.RecommendationRepository, clock ports.Clock, cfg Config, log *logger.Logger) *Pipeline {
	return &Pipeline{
		services:  services,
		deps:      deps,
		telemetry: telemetry,
		recs:      recs,
		clock:     clock,
		seedPRNG:  func(seed uint64) ports.PRNG { return prng.New(seed) },
		cfg:       cfg,
		log:       log,
	}
}

// Result is the RecommendationSet produced for one service across every
// SLI type that could be computed.
type Result struct {
	ServiceID       string
	Recommendations map[recommendation.SLIType]*recommendation.Recommendation
	SkippedNotes    map[recommendation.SLIType]string
}

// Generate runs the twelve-step pipeline for serviceID across sliTypes (nil
// or empty means both availability and latency). Per-SLI-type telemetry
// absence is not fatal (§7): it is recorded in SkippedNotes, and Generate
// only fails with insufficient_data when every requested type is absent.
func (p *Pipeline) Generate(ctx context.Context, serviceID string, sliTypes []recommendation.SLIType, lookbackDaysOverride int) (*Result, error) {
	// Step 1: resolve service.
	svc, err := p.services.GetByServiceID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if len(sliTypes) == 0 {
		sliTypes = []recommendation.SLIType{recommendation.SLITypeAvailability, recommendation.SLITypeLatency}
	}

	now := p.clock.Now()

	// Step 2: choose lookback.
	lookbackDays := p.cfg.LookbackDefaultDays
	if lookbackDaysOverride > 0 {
		lookbackDays = lookbackDaysOverride
	}
	window := sli.Window{Start: now.AddDate(0, 0, -lookbackDays), End: now}
	isColdStart := false

	completeness, err := p.telemetry.DataCompleteness(ctx, serviceID, window)
	if err != nil {
		return nil, errors.TelemetryUnavailable("data_completeness", err)
	}
	if completeness == nil || *completeness < p.cfg.CompletenessThreshold {
		lookbackDays = p.cfg.LookbackExtendedDays
		window = sli.Window{Start: now.AddDate(0, 0, -lookbackDays), End: now}
		isColdStart = true
		extended, err := p.telemetry.DataCompleteness(ctx, serviceID, window)
		if err != nil {
			return nil, errors.TelemetryUnavailable("data_completeness", err)
		}
		completeness = extended
	}
	if completeness == nil {
		completeness = new(float64)
	}

	// Step 4: fetch subgraph (shared by every SLI type for this service).
	subgraph, err := p.deps.Traverse(ctx, serviceID, ports.DirectionDownstream, p.cfg.SubgraphDepth, false)
	if err != nil {
		return nil, errors.TelemetryUnavailable("traverse subgraph", err)
	}

	result := &Result{ServiceID: serviceID, Recommendations: map[recommendation.SLIType]*recommendation.Recommendation{}, SkippedNotes: map[recommendation.SLIType]string{}}

	for _, sliType := range sliTypes {
		stepStart := p.clock.Now()
		rec, note, err := p.generateOne(ctx, svc, sliType, window, lookbackDays, isColdStart, *completeness, subgraph, now)
		if err != nil {
			if svcErr, ok := err.(*errors.Error); ok && (svcErr.Code == errors.CodeInsufficientData) {
				result.SkippedNotes[sliType] = note
				metrics.RecordPipelineRun(string(sliType), "skipped", p.clock.Now().Sub(stepStart))
				continue
			}
			metrics.RecordPipelineRun(string(sliType), "error", p.clock.Now().Sub(stepStart))
			return nil, err
		}
		metrics.RecordPipelineRun(string(sliType), "ok", p.clock.Now().Sub(stepStart))
		result.Recommendations[sliType] = rec
	}

	if len(result.Recommendations) == 0 {
		return nil, errors.InsufficientData(serviceID, "no telemetry available for any requested SLI type")
	}
	return result, nil
}

func (p *Pipeline) generateOne(ctx context.Context, svc *service.Service, sliType recommendation.SLIType, window sli.Window, lookbackDays int, isColdStart bool, completeness float64, subgraph *ports.Subgraph, now time.Time) (*recommendation.Recommendation, string, error) {
	switch sliType {
	case recommendation.SLITypeAvailability:
		return p.generateAvailability(ctx, svc, window, lookbackDays, isColdStart, completeness, subgraph, now)
	case recommendation.SLITypeLatency:
		return p.generateLatency(ctx, svc, window, lookbackDays, isColdStart, completeness, subgraph, now)
	default:
		return nil, "", errors.InvalidInput("sli_type", "must be availability or latency")
	}
}

// dependencyBound fetches hard-sync dependency availabilities reachable
// through the subgraph, collapses any detected SCC among them to a single
// supernode (min(members)), and computes the composite bound per §4.5.
// It also returns, in Bound.SoftRisks, the targets of every non-hard-sync
// edge anywhere in the subgraph.
func (p *Pipeline) dependencyBound(ctx context.Context, serviceID string, selfAvailability float64, window sli.Window, subgraph *ports.Subgraph) (composite.Bound, error) {
	var hardPairs [][2]string
	hardNodes := map[string]bool{}
	var softRisks []string

	for _, e := range subgraph.Edges {
		if e.CommunicationMode == graph.CommunicationSync && e.Criticality == graph.CriticalityHard {
			// serviceID itself is the subject whose availability is already
			// folded in as selfAvailability; an edge touching it only tells
			// us the other endpoint is a hard dependency, not that serviceID
			// is one of its own dependencies.
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

	inSCC := map[string]string{} // member -> canonical supernode id
	var superDeps []composite.Dependency
	for _, members := range sccs {
		minAvail := 1.0
		for _, m := range members {
			avail, err := p.dependencyAvailability(ctx, m, window)
			if err != nil {
				return composite.Bound{}, err
			}
			if avail < minAvail {
				minAvail = avail
			}
		}
		canonical := graph.CanonicalID(members)
		for _, m := range members {
			inSCC[m] = canonical
		}
		superDeps = append(superDeps, composite.Dependency{ServiceID: canonical, Availability: minAvail, Kind: composite.KindSerialHard})
	}

	seen := map[string]bool{}
	var deps []composite.Dependency
	deps = append(deps, superDeps...)
	for m := range hardNodes {
		if canonical, ok := inSCC[m]; ok {
			seen[canonical] = true
			continue
		}
		avail, err := p.dependencyAvailability(ctx, m, window)
		if err != nil {
			return composite.Bound{}, err
		}
		deps = append(deps, composite.Dependency{ServiceID: m, Availability: avail, Kind: composite.KindSerialHard})
	}

	sort.Strings(softRisks)
	bound := composite.Compute(selfAvailability, deps)
	bound.SoftRisks = append(bound.SoftRisks, dedupe(softRisks)...)
	sort.Strings(bound.SoftRisks)
	return bound, nil
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

// dependencyAvailability resolves one dependency's own availability: an
// external service applies the adaptive buffer (§4.5) over its observed
// ratio and published SLA; an internal service without telemetry falls
// back to the configured default.
func (p *Pipeline) dependencyAvailability(ctx context.Context, depServiceID string, window sli.Window) (float64, error) {
	depSvc, err := p.services.GetByServiceID(ctx, depServiceID)
	if err != nil {
		return p.cfg.DepDefaultAvailability, nil
	}

	observedSLI, err := p.telemetry.AvailabilitySLI(ctx, depServiceID, window)
	if err != nil {
		return 0, errors.TelemetryUnavailable("dependency availability_sli", err)
	}
	var observed *float64
	if observedSLI != nil {
		observed = &observedSLI.AvailabilityRatio
	}

	if depSvc.Type == service.TypeExternal {
		return composite.AdaptiveBuffer(observed, depSvc.PublishedSLA, p.cfg.ExternalBufferK, p.cfg.DepDefaultAvailability), nil
	}
	if observed != nil {
		return *observed, nil
	}
	return p.cfg.DepDefaultAvailability, nil
}

func (p *Pipeline) persist(ctx context.Context, rec *recommendation.Recommendation) error {
	if txn, ok := p.recs.(ports.TransactionalRecommendationRepository); ok {
		return txn.SupersedeAndInsert(ctx, rec)
	}
	if err := p.recs.SupersedeActive(ctx, rec.ServiceID, rec.SLIType); err != nil {
		return err
	}
	return p.recs.Save(ctx, rec)
}

func shareInfra(svc *service.Service) bool {
	return svc.Metadata["shared_infrastructure"] == "true"
}

func bootstrapSource(p *Pipeline) ports.PRNG {
	return p.seedPRNG(p.cfg.BootstrapSeed)
}

// breachProbabilityRatio is the fraction of rolling buckets below
// threshold t (§4.3 step 8), used by the availability tier path where a
// real bucketed series exists.
func breachProbabilityRatio(series []sli.RollingBucket, threshold float64) float64 {
	if len(series) == 0 {
		return 0
	}
	breaches := 0
	for _, b := range series {
		if b.Value < threshold {
			breaches++
		}
	}
	return float64(breaches) / float64(len(series))
}

func errorBudgetMinutes(targetPct float64) float64 {
	return (1 - targetPct/100) * 43200
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ceilTo(v float64) float64 {
	return math.Ceil(v)
}

// summaryText assembles the deterministic explanation string (§4.3 step 11).
func summaryText(observedPct, balancedPct, marginPct float64, hardCount int, bottleneck string) string {
	base := fmt.Sprintf(
		"Observed availability %.3f%% over the lookback window; recommended balanced target %.3f%% (margin %.3f%% below observed), derived from %d hard dependencies.",
		observedPct, balancedPct, marginPct, hardCount,
	)
	if bottleneck != "" {
		base += fmt.Sprintf(" Bottleneck dependency: %s.", bottleneck)
	}
	return base
}
