package memory

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

func TestServiceStoreGetByServiceIDNotFound(t *testing.T) {
	s := NewServiceStore()
	if _, err := s.GetByServiceID(context.Background(), "missing"); !errors.Is(err, errors.CodeServiceNotFound) {
		t.Fatalf("expected service_not_found, got %v", err)
	}
}

func TestServiceStoreUpsertAndGetRoundTrips(t *testing.T) {
	s := NewServiceStore()
	svc, _ := service.New("svc-a", "payments", service.CriticalityHigh, service.TypeInternal, nil)
	if err := s.UpsertMany(context.Background(), []*service.Service{svc}); err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	got, err := s.GetByServiceID(context.Background(), "svc-a")
	if err != nil {
		t.Fatalf("GetByServiceID() error = %v", err)
	}
	if got.Team != "payments" {
		t.Errorf("Team = %q, want payments", got.Team)
	}
	// Clone isolation: mutating the returned copy must not affect the store.
	got.Team = "mutated"
	again, _ := s.GetByServiceID(context.Background(), "svc-a")
	if again.Team != "payments" {
		t.Errorf("store was mutated through a returned clone")
	}
}

func TestServiceStoreListAllFiltersDiscovered(t *testing.T) {
	s := NewServiceStore()
	discovered := service.NewDiscovered("svc-b")
	registered, _ := service.New("svc-a", "payments", service.CriticalityHigh, service.TypeInternal, nil)
	_ = s.UpsertMany(context.Background(), []*service.Service{discovered, registered})

	result, err := s.ListAll(context.Background(), 0, 10, ports.ServiceFilter{})
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(result) != 1 || result[0].ServiceID != "svc-a" {
		t.Errorf("ListAll() = %v, want only svc-a (discovered excluded by default)", result)
	}
}

func TestDependencyStoreUpsertRejectsDuplicateKeyOverwrite(t *testing.T) {
	deps := NewDependencyStore(nil)
	e1, _ := graph.New("a", "b", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	e2, _ := graph.New("a", "b", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now().Add(time.Hour))
	_ = deps.UpsertMany(context.Background(), []*graph.Edge{e1})
	_ = deps.UpsertMany(context.Background(), []*graph.Edge{e2})

	got, err := deps.ListBySource(context.Background(), "a")
	if err != nil {
		t.Fatalf("ListBySource() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListBySource() = %v, want one row (same source/target/discovery_source key)", got)
	}
}

func TestDependencyStoreTraverseDownstream(t *testing.T) {
	services := NewServiceStore()
	svcA, _ := service.New("a", "team", service.CriticalityHigh, service.TypeInternal, nil)
	svcB, _ := service.New("b", "team", service.CriticalityHigh, service.TypeInternal, nil)
	svcC, _ := service.New("c", "team", service.CriticalityHigh, service.TypeInternal, nil)
	_ = services.UpsertMany(context.Background(), []*service.Service{svcA, svcB, svcC})

	deps := NewDependencyStore(services)
	eAB, _ := graph.New("a", "b", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	eBC, _ := graph.New("b", "c", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	_ = deps.UpsertMany(context.Background(), []*graph.Edge{eAB, eBC})

	sub, err := deps.Traverse(context.Background(), "a", ports.DirectionDownstream, 3, false)
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if len(sub.Nodes) != 3 {
		t.Errorf("Nodes = %v, want [a b c]", sub.Nodes)
	}
	if sub.HasCycle {
		t.Errorf("HasCycle = true, want false for an acyclic chain")
	}
}

func TestDependencyStoreTraverseUnknownStart(t *testing.T) {
	services := NewServiceStore()
	deps := NewDependencyStore(services)
	if _, err := deps.Traverse(context.Background(), "missing", ports.DirectionDownstream, 3, false); !errors.Is(err, errors.CodeServiceNotFound) {
		t.Fatalf("expected service_not_found, got %v", err)
	}
}

func TestDependencyStoreDetectCycles(t *testing.T) {
	deps := NewDependencyStore(nil)
	eAB, _ := graph.New("a", "b", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	eBA, _ := graph.New("b", "a", graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	_ = deps.UpsertMany(context.Background(), []*graph.Edge{eAB, eBA})

	cycles, err := deps.DetectCycles(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("DetectCycles() error = %v", err)
	}
	if len(cycles) != 1 {
		t.Fatalf("DetectCycles() = %v, want one cycle", cycles)
	}
}

func TestRecommendationStoreSupersedeThenSaveLeavesOneActive(t *testing.T) {
	recs := NewRecommendationStore()
	tiers := map[recommendation.TierName]recommendation.Tier{
		recommendation.TierConservative: {Target: 99},
		recommendation.TierBalanced:     {Target: 99.5},
		recommendation.TierAggressive:   {Target: 99.9},
	}
	now := time.Now()
	first, _ := recommendation.New("", "svc-a", recommendation.SLITypeAvailability, "error_rate", tiers, recommendation.Explanation{}, recommendation.DataQuality{}, now.Add(-time.Hour), now, now, 24*time.Hour)
	_ = recs.Save(context.Background(), first)

	_ = recs.SupersedeActive(context.Background(), "svc-a", recommendation.SLITypeAvailability)
	second, _ := recommendation.New("", "svc-a", recommendation.SLITypeAvailability, "error_rate", tiers, recommendation.Explanation{}, recommendation.DataQuality{}, now.Add(-time.Hour), now, now, 24*time.Hour)
	_ = recs.Save(context.Background(), second)

	active, err := recs.GetActive(context.Background(), "svc-a", nil)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("GetActive() = %v, want exactly one active row", active)
	}
	if active[0].ID != second.ID {
		t.Errorf("active recommendation = %s, want the second insert", active[0].ID)
	}
}

func TestRecommendationStoreExpireStale(t *testing.T) {
	recs := NewRecommendationStore()
	tiers := map[recommendation.TierName]recommendation.Tier{
		recommendation.TierConservative: {Target: 99},
		recommendation.TierBalanced:     {Target: 99.5},
		recommendation.TierAggressive:   {Target: 99.9},
	}
	generatedAt := time.Now().Add(-48 * time.Hour)
	rec, _ := recommendation.New("", "svc-a", recommendation.SLITypeAvailability, "error_rate", tiers, recommendation.Explanation{}, recommendation.DataQuality{}, generatedAt.Add(-time.Hour), generatedAt, generatedAt, 24*time.Hour)
	_ = recs.Save(context.Background(), rec)

	count, err := recs.ExpireStale(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}
	if count != 1 {
		t.Errorf("ExpireStale() = %d, want 1", count)
	}
}
