package telemetryadapter

import (
	"context"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
)

// NoopClient is a TimeSeriesClient that reports every query as simply
// absent. It is the fallback when no telemetry backend is configured,
// mirroring the teacher's pattern of disabling an optional integration with
// a startup warning rather than failing the whole process.
type NoopClient struct{}

func (NoopClient) AvailabilityCounts(context.Context, string, sli.Window) (int64, int64, int, bool, error) {
	return 0, 0, 0, false, nil
}

func (NoopClient) LatencyPercentiles(context.Context, string, sli.Window) (float64, float64, float64, float64, int, bool, error) {
	return 0, 0, 0, 0, 0, false, nil
}

func (NoopClient) RollingAvailability(context.Context, string, sli.Window, time.Duration) ([]sli.RollingBucket, error) {
	return nil, nil
}

func (NoopClient) Completeness(context.Context, string, sli.Window) (float64, bool, error) {
	return 0, false, nil
}
