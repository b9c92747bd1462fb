// Package telemetryadapter implements ports.TelemetryQuery over an injected
// time-series query client, with an optional read-through cache absorbing
// repeated lookback-window queries within a single batch run.
package telemetryadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	core "github.com/R3E-Network/slo-recommendation-engine/internal/app/corekit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/cache"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// TimeSeriesClient is the minimal query surface the adapter needs from
// whatever observability backend stores raw SLI data. The backend itself
// (Prometheus, a warehouse table, a vendor API) stays out of scope; this is
// the seam a real deployment implements against its own store.
type TimeSeriesClient interface {
	AvailabilityCounts(ctx context.Context, serviceID string, window sli.Window) (good, total int64, sampleCount int, found bool, err error)
	LatencyPercentiles(ctx context.Context, serviceID string, window sli.Window) (p50, p95, p99, p999 float64, sampleCount int, found bool, err error)
	RollingAvailability(ctx context.Context, serviceID string, window sli.Window, bucket time.Duration) ([]sli.RollingBucket, error)
	Completeness(ctx context.Context, serviceID string, window sli.Window) (ratio float64, found bool, err error)
}

// Adapter implements ports.TelemetryQuery.
type Adapter struct {
	client TimeSeriesClient
	cache  cache.Cache
	ttl    time.Duration
	log    *logger.Logger
	retry  core.RetryPolicy
}

// New builds an Adapter. cache may be nil, in which case every query goes
// straight to the client. The adapter retries a failing outbound call under
// DefaultRetryPolicy (a single attempt, no backoff); use WithRetryPolicy to
// apply the bounded-attempt retry §5 permits before surfacing
// telemetry_unavailable to the pipeline.
func New(client TimeSeriesClient, c cache.Cache, ttl time.Duration, log *logger.Logger) *Adapter {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Adapter{client: client, cache: c, ttl: ttl, log: log, retry: core.DefaultRetryPolicy}
}

// WithRetryPolicy overrides the retry policy applied to every outbound call.
func (a *Adapter) WithRetryPolicy(policy core.RetryPolicy) *Adapter {
	a.retry = policy
	return a
}

func windowKey(prefix, serviceID string, window sli.Window) string {
	return fmt.Sprintf("%s:%s:%d:%d", prefix, serviceID, window.Start.Unix(), window.End.Unix())
}

func (a *Adapter) readCached(ctx context.Context, key string, out interface{}) bool {
	if a.cache == nil {
		return false
	}
	raw, ok, err := a.cache.Get(ctx, key)
	if err != nil || !ok {
		if err != nil && a.log != nil {
			a.log.WithField("key", key).WithField("error", err).Warn("telemetry cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

func (a *Adapter) writeCached(ctx context.Context, key string, value interface{}) {
	if a.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil && a.log != nil {
		a.log.WithField("key", key).WithField("error", err).Warn("telemetry cache write failed")
	}
}

func (a *Adapter) AvailabilitySLI(ctx context.Context, serviceID string, window sli.Window) (*sli.AvailabilitySLI, error) {
	key := windowKey("avail", serviceID, window)
	var cached sli.AvailabilitySLI
	if a.readCached(ctx, key, &cached) {
		return &cached, nil
	}

	var good, total int64
	var sampleCount int
	var found bool
	err := core.Retry(ctx, a.retry, func() error {
		var callErr error
		good, total, sampleCount, found, callErr = a.client.AvailabilityCounts(ctx, serviceID, window)
		return callErr
	})
	if err != nil {
		return nil, errors.TelemetryUnavailable(serviceID, err)
	}
	if !found {
		return nil, nil
	}
	result, err := sli.NewAvailabilitySLI(good, total, window, sampleCount)
	if err != nil {
		return nil, err
	}
	a.writeCached(ctx, key, result)
	return result, nil
}

func (a *Adapter) LatencyPercentiles(ctx context.Context, serviceID string, window sli.Window) (*sli.LatencySLI, error) {
	key := windowKey("latency", serviceID, window)
	var cached sli.LatencySLI
	if a.readCached(ctx, key, &cached) {
		return &cached, nil
	}

	var p50, p95, p99, p999 float64
	var sampleCount int
	var found bool
	err := core.Retry(ctx, a.retry, func() error {
		var callErr error
		p50, p95, p99, p999, sampleCount, found, callErr = a.client.LatencyPercentiles(ctx, serviceID, window)
		return callErr
	})
	if err != nil {
		return nil, errors.TelemetryUnavailable(serviceID, err)
	}
	if !found {
		return nil, nil
	}
	result, err := sli.NewLatencySLI(p50, p95, p99, p999, window, sampleCount)
	if err != nil {
		return nil, err
	}
	a.writeCached(ctx, key, result)
	return result, nil
}

func (a *Adapter) RollingAvailability(ctx context.Context, serviceID string, window sli.Window, bucket time.Duration) ([]sli.RollingBucket, error) {
	key := windowKey(fmt.Sprintf("rolling:%d", bucket), serviceID, window)
	var cached []sli.RollingBucket
	if a.readCached(ctx, key, &cached) {
		return cached, nil
	}

	var buckets []sli.RollingBucket
	err := core.Retry(ctx, a.retry, func() error {
		var callErr error
		buckets, callErr = a.client.RollingAvailability(ctx, serviceID, window, bucket)
		return callErr
	})
	if err != nil {
		return nil, errors.TelemetryUnavailable(serviceID, err)
	}
	a.writeCached(ctx, key, buckets)
	return buckets, nil
}

func (a *Adapter) DataCompleteness(ctx context.Context, serviceID string, window sli.Window) (*float64, error) {
	key := windowKey("completeness", serviceID, window)
	var cached float64
	if a.readCached(ctx, key, &cached) {
		return &cached, nil
	}

	var ratio float64
	var found bool
	err := core.Retry(ctx, a.retry, func() error {
		var callErr error
		ratio, found, callErr = a.client.Completeness(ctx, serviceID, window)
		return callErr
	})
	if err != nil {
		return nil, errors.TelemetryUnavailable(serviceID, err)
	}
	if !found {
		return nil, nil
	}
	a.writeCached(ctx, key, ratio)
	return &ratio, nil
}
