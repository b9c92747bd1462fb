package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/lifecycle"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/storage/memory"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/clock"
)

func newExpiryFixture(t *testing.T) (*lifecycle.UseCase, *memory.RecommendationStore, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Unix(0, 0))
	recs := memory.NewRecommendationStore()
	audits := memory.NewAuditLog()
	uc := lifecycle.New(recs, audits, clk)
	return uc, recs, clk
}

func sampleTiers() map[recommendation.TierName]recommendation.Tier {
	return map[recommendation.TierName]recommendation.Tier{
		recommendation.TierConservative: {Target: 99.9, BreachProbability: 0.01, ConfidenceLower: 99.8, ConfidenceUpper: 99.95},
		recommendation.TierBalanced:     {Target: 99.5, BreachProbability: 0.05, ConfidenceLower: 99.3, ConfidenceUpper: 99.7},
		recommendation.TierAggressive:   {Target: 99.0, BreachProbability: 0.10, ConfidenceLower: 98.7, ConfidenceUpper: 99.3},
	}
}

func TestExpiryScheduler_StartRunsOnCronSchedule(t *testing.T) {
	uc, recs, clk := newExpiryFixture(t)

	generatedAt := clk.Now().Add(-2 * time.Hour)
	rec, err := recommendation.New(
		"", "svc-a", recommendation.SLITypeAvailability, "availability_ratio",
		sampleTiers(), recommendation.Explanation{}, recommendation.DataQuality{},
		generatedAt, generatedAt.Add(time.Hour), generatedAt, time.Hour,
	)
	require.NoError(t, err)
	require.NoError(t, recs.Save(context.Background(), rec))

	sched := NewExpiryScheduler(uc, "@every 1s", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sched.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = sched.Stop(stopCtx)
	}()

	require.Eventually(t, func() bool {
		n, sweepErr := sched.LastResult()
		return sweepErr == nil && n >= 1
	}, 3*time.Second, 50*time.Millisecond, "expected at least one expiry sweep to run")
}

func TestExpiryScheduler_DefaultSpecWhenEmpty(t *testing.T) {
	uc, _, _ := newExpiryFixture(t)
	sched := NewExpiryScheduler(uc, "", nil)
	assert.Equal(t, DefaultExpirySpec, sched.spec)
}

func TestExpiryScheduler_StartIsIdempotent(t *testing.T) {
	uc, _, _ := newExpiryFixture(t)
	sched := NewExpiryScheduler(uc, DefaultExpirySpec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sched.Start(ctx))
	require.NoError(t, sched.Start(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, sched.Stop(stopCtx))
}

func TestExpiryScheduler_StopWithoutStartIsNoop(t *testing.T) {
	uc, _, _ := newExpiryFixture(t)
	sched := NewExpiryScheduler(uc, DefaultExpirySpec, nil)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, sched.Stop(stopCtx))
}
