package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/audit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/storage/memory"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/clock"
)

func newRecommendation(t *testing.T, now time.Time) *recommendation.Recommendation {
	t.Helper()
	tiers := map[recommendation.TierName]recommendation.Tier{
		recommendation.TierConservative: {Target: 99.0, BreachProbability: 0.01},
		recommendation.TierBalanced:     {Target: 99.5, BreachProbability: 0.02},
		recommendation.TierAggressive:   {Target: 99.9, BreachProbability: 0.05},
	}
	rec, err := recommendation.New("", "checkout", recommendation.SLITypeAvailability, "error_rate",
		tiers, recommendation.Explanation{}, recommendation.DataQuality{}, now.Add(-30*24*time.Hour), now, now, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func newUseCase(store *memory.Store, now time.Time) *UseCase {
	return New(store.Recommendations, store.Audit, clock.Fixed{At: now})
}

func TestAccept_RecordsSelectedTier(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := newRecommendation(t, now)
	if err := store.Recommendations.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	u := newUseCase(store, now)
	entry, err := u.Accept(context.Background(), "checkout", recommendation.SLITypeAvailability, recommendation.TierBalanced, "alice", "looks right")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if entry.Action != audit.ActionAccept {
		t.Errorf("expected action accept, got %s", entry.Action)
	}
	if entry.SelectedTier != string(recommendation.TierBalanced) {
		t.Errorf("expected selected tier balanced, got %s", entry.SelectedTier)
	}

	history, err := u.History(context.Background(), "checkout")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(history))
	}
}

func TestAccept_RejectsUnknownTier(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := newRecommendation(t, now)
	if err := store.Recommendations.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	u := newUseCase(store, now)
	if _, err := u.Accept(context.Background(), "checkout", recommendation.SLITypeAvailability, recommendation.TierName("nonexistent"), "alice", ""); err == nil {
		t.Fatal("expected an error for an unknown tier")
	}
}

func TestModify_RequiresAtLeastOneDelta(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := newRecommendation(t, now)
	if err := store.Recommendations.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	u := newUseCase(store, now)
	if _, err := u.Modify(context.Background(), "checkout", recommendation.SLITypeAvailability, nil, "alice", ""); err == nil {
		t.Fatal("expected an error when no modifications are supplied")
	}

	entry, err := u.Modify(context.Background(), "checkout", recommendation.SLITypeAvailability, map[string]interface{}{"balanced_target": 99.95}, "alice", "tightened after incident review")
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if entry.Modifications["balanced_target"] != 99.95 {
		t.Errorf("expected modification to be recorded, got %v", entry.Modifications)
	}
}

func TestReject_SupersedesActiveRecommendation(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := newRecommendation(t, now)
	if err := store.Recommendations.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	u := newUseCase(store, now)
	entry, err := u.Reject(context.Background(), "checkout", recommendation.SLITypeAvailability, "bob", "target too aggressive for current on-call load")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if entry.Action != audit.ActionReject {
		t.Errorf("expected action reject, got %s", entry.Action)
	}

	active, err := store.Recommendations.GetActive(context.Background(), "checkout", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active recommendations after reject, got %d", len(active))
	}
}

func TestAccept_NoActiveRecommendationIsAnError(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	u := newUseCase(store, now)
	if _, err := u.Accept(context.Background(), "nonexistent", recommendation.SLITypeAvailability, recommendation.TierBalanced, "alice", ""); err == nil {
		t.Fatal("expected an error when no active recommendation exists")
	}
}

func TestExpireSweep_TransitionsPastExpiry(t *testing.T) {
	store := memory.New()
	genAt := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := newRecommendation(t, genAt)
	if err := store.Recommendations.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	later := genAt.Add(48 * time.Hour)
	u := newUseCase(store, later)
	count, err := u.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("ExpireSweep: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 expired recommendation, got %d", count)
	}

	active, err := store.Recommendations.GetActive(context.Background(), "checkout", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("expected the expired recommendation to no longer be active, got %d", len(active))
	}
}
