package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
	"github.com/R3E-Network/slo-recommendation-engine/internal/storage/memory"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/clock"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// fakeTelemetry is a scriptable ports.TelemetryQuery for pipeline tests.
type fakeTelemetry struct {
	availability map[string]*sli.AvailabilitySLI
	rolling      map[string][]sli.RollingBucket
	latency      map[string]*sli.LatencySLI
	completeness map[string]*float64
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{
		availability: map[string]*sli.AvailabilitySLI{},
		rolling:      map[string][]sli.RollingBucket{},
		latency:      map[string]*sli.LatencySLI{},
		completeness: map[string]*float64{},
	}
}

func (f *fakeTelemetry) AvailabilitySLI(_ context.Context, serviceID string, _ sli.Window) (*sli.AvailabilitySLI, error) {
	return f.availability[serviceID], nil
}

func (f *fakeTelemetry) LatencyPercentiles(_ context.Context, serviceID string, _ sli.Window) (*sli.LatencySLI, error) {
	return f.latency[serviceID], nil
}

func (f *fakeTelemetry) RollingAvailability(_ context.Context, serviceID string, _ sli.Window, _ time.Duration) ([]sli.RollingBucket, error) {
	return f.rolling[serviceID], nil
}

func (f *fakeTelemetry) DataCompleteness(_ context.Context, serviceID string, _ sli.Window) (*float64, error) {
	return f.completeness[serviceID], nil
}

func ptr(v float64) *float64 { return &v }

func rollingSeries(start time.Time, values ...float64) []sli.RollingBucket {
	out := make([]sli.RollingBucket, len(values))
	for i, v := range values {
		out[i] = sli.RollingBucket{BucketStart: start.Add(time.Duration(i) * 24 * time.Hour), Value: v}
	}
	return out
}

func setupPipeline(t *testing.T) (*Pipeline, *memory.Store, *fakeTelemetry) {
	t.Helper()
	store := memory.New()
	telemetry := newFakeTelemetry()
	fixed := clock.Fixed{At: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	p := New(store.Services, store.Dependencies, telemetry, store.Recommendations, fixed, DefaultConfig(), logger.NewDefault("test"))
	return p, store, telemetry
}

func mustRegister(t *testing.T, store *memory.Store, serviceID string, typ service.Type, sla *float64) {
	t.Helper()
	svc, err := service.New(serviceID, "team-a", service.CriticalityHigh, typ, sla)
	if err != nil {
		t.Fatalf("service.New(%s): %v", serviceID, err)
	}
	if err := store.Services.UpsertMany(context.Background(), []*service.Service{svc}); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}
}

func TestGenerate_AvailabilityAndLatency(t *testing.T) {
	p, store, telemetry := setupPipeline(t)
	ctx := context.Background()
	mustRegister(t, store, "checkout", service.TypeInternal, nil)

	window := sli.Window{}
	avail, err := sli.NewAvailabilitySLI(9990, 10000, window, 10000)
	if err != nil {
		t.Fatal(err)
	}
	telemetry.availability["checkout"] = avail
	telemetry.rolling["checkout"] = rollingSeries(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		0.999, 0.998, 0.9995, 0.997, 0.999, 0.9992, 0.9988, 0.999, 0.9991, 0.9993)
	latency, err := sli.NewLatencySLI(50, 120, 200, 450, window, 10000)
	if err != nil {
		t.Fatal(err)
	}
	telemetry.latency["checkout"] = latency
	telemetry.completeness["checkout"] = ptr(0.95)

	result, err := p.Generate(ctx, "checkout", nil, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(result.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d (skipped: %v)", len(result.Recommendations), result.SkippedNotes)
	}

	availRec := result.Recommendations[recommendation.SLITypeAvailability]
	if availRec.Tiers[recommendation.TierConservative].Target > availRec.Tiers[recommendation.TierAggressive].Target {
		t.Errorf("expected conservative <= aggressive target, got conservative=%v aggressive=%v",
			availRec.Tiers[recommendation.TierConservative].Target, availRec.Tiers[recommendation.TierAggressive].Target)
	}

	latRec := result.Recommendations[recommendation.SLITypeLatency]
	if latRec.Tiers[recommendation.TierAggressive].Target > latRec.Tiers[recommendation.TierBalanced].Target {
		t.Errorf("expected aggressive (p95) <= balanced (p99-derived) latency target")
	}
	if latRec.Tiers[recommendation.TierBalanced].Target > latRec.Tiers[recommendation.TierConservative].Target {
		t.Errorf("expected balanced <= conservative latency target")
	}
}

func TestGenerate_ColdStartExtendsLookback(t *testing.T) {
	p, store, telemetry := setupPipeline(t)
	ctx := context.Background()
	mustRegister(t, store, "new-svc", service.TypeInternal, nil)

	window := sli.Window{}
	avail, _ := sli.NewAvailabilitySLI(995, 1000, window, 1000)
	telemetry.availability["new-svc"] = avail
	telemetry.rolling["new-svc"] = rollingSeries(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), 0.995, 0.996)
	telemetry.completeness["new-svc"] = ptr(0.40)

	result, err := p.Generate(ctx, "new-svc", []recommendation.SLIType{recommendation.SLITypeAvailability}, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec := result.Recommendations[recommendation.SLITypeAvailability]
	if !rec.DataQuality.IsColdStart {
		t.Error("expected IsColdStart=true when completeness is below threshold")
	}
	if rec.DataQuality.LookbackDaysActual != p.cfg.LookbackExtendedDays {
		t.Errorf("expected extended lookback %d, got %d", p.cfg.LookbackExtendedDays, rec.DataQuality.LookbackDaysActual)
	}
	if rec.DataQuality.ConfidenceNote == "" {
		t.Error("expected a confidence note when completeness remains below threshold after extension")
	}
}

func TestGenerate_NoTelemetryIsInsufficientData(t *testing.T) {
	p, store, _ := setupPipeline(t)
	ctx := context.Background()
	mustRegister(t, store, "quiet-svc", service.TypeInternal, nil)

	_, err := p.Generate(ctx, "quiet-svc", nil, 0)
	if !errors.Is(err, errors.CodeInsufficientData) {
		t.Fatalf("expected insufficient_data, got %v", err)
	}
}

func TestGenerate_PartialSkipWhenOneSLIMissing(t *testing.T) {
	p, store, telemetry := setupPipeline(t)
	ctx := context.Background()
	mustRegister(t, store, "partial-svc", service.TypeInternal, nil)

	window := sli.Window{}
	avail, _ := sli.NewAvailabilitySLI(998, 1000, window, 1000)
	telemetry.availability["partial-svc"] = avail
	telemetry.rolling["partial-svc"] = rollingSeries(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), 0.998, 0.999)
	telemetry.completeness["partial-svc"] = ptr(0.95)

	result, err := p.Generate(ctx, "partial-svc", nil, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := result.Recommendations[recommendation.SLITypeAvailability]; !ok {
		t.Error("expected availability recommendation to be present")
	}
	if _, ok := result.SkippedNotes[recommendation.SLITypeLatency]; !ok {
		t.Error("expected latency to be skipped with a note since no latency telemetry was provided")
	}
}

func TestGenerate_SupersedesPriorActiveRecommendation(t *testing.T) {
	p, store, telemetry := setupPipeline(t)
	ctx := context.Background()
	mustRegister(t, store, "repeat-svc", service.TypeInternal, nil)

	window := sli.Window{}
	avail, _ := sli.NewAvailabilitySLI(998, 1000, window, 1000)
	telemetry.availability["repeat-svc"] = avail
	telemetry.rolling["repeat-svc"] = rollingSeries(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), 0.998, 0.999, 0.997)
	telemetry.completeness["repeat-svc"] = ptr(0.95)

	if _, err := p.Generate(ctx, "repeat-svc", []recommendation.SLIType{recommendation.SLITypeAvailability}, 0); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if _, err := p.Generate(ctx, "repeat-svc", []recommendation.SLIType{recommendation.SLITypeAvailability}, 0); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	active, err := store.Recommendations.GetActive(ctx, "repeat-svc", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active recommendation after a second run, got %d", len(active))
	}
}

func TestDependencyBound_CollapsesHardSyncChain(t *testing.T) {
	p, store, telemetry := setupPipeline(t)
	ctx := context.Background()
	mustRegister(t, store, "a", service.TypeInternal, nil)
	mustRegister(t, store, "b", service.TypeInternal, nil)
	mustRegister(t, store, "c", service.TypeInternal, nil)

	window := sli.Window{}
	telemetry.availability["b"] = mustAvail(t, 0.999)
	telemetry.availability["c"] = mustAvail(t, 0.995)

	e1, err := graph.New("a", "b", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	e2, err := graph.New("b", "c", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Dependencies.UpsertMany(ctx, []*graph.Edge{e1, e2}); err != nil {
		t.Fatal(err)
	}

	subgraph, err := store.Dependencies.Traverse(ctx, "a", ports.DirectionDownstream, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	bound, err := p.dependencyBound(ctx, "a", 0.9999, window, subgraph)
	if err != nil {
		t.Fatal(err)
	}
	if bound.HardCount != 2 {
		t.Errorf("expected 2 hard deps (b, c), got %d", bound.HardCount)
	}
	want := 0.9999 * 0.999 * 0.995
	if diff := bound.RComposite - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected RComposite=%v, got %v", want, bound.RComposite)
	}
}

func mustAvail(t *testing.T, ratio float64) *sli.AvailabilitySLI {
	t.Helper()
	total := int64(100000)
	good := int64(ratio * float64(total))
	a, err := sli.NewAvailabilitySLI(good, total, sli.Window{}, int(total))
	if err != nil {
		t.Fatal(err)
	}
	return a
}
