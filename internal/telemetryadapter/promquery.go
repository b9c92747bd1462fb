package telemetryadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
)

// PromQueryConfig names the metrics a Prometheus-backed TimeSeriesClient
// queries against. Defaults match the conventional RED-style series names;
// operators with a different naming scheme override these per deployment.
type PromQueryConfig struct {
	GoodRequestsMetric  string
	TotalRequestsMetric string
	LatencyBucketMetric string
	ExpectedSamplesPerWindow float64
}

// DefaultPromQueryConfig returns the conventional metric names most
// Prometheus-instrumented HTTP services already expose.
func DefaultPromQueryConfig() PromQueryConfig {
	return PromQueryConfig{
		GoodRequestsMetric:       "http_requests_good_total",
		TotalRequestsMetric:      "http_requests_total",
		LatencyBucketMetric:      "http_request_duration_seconds_bucket",
		ExpectedSamplesPerWindow: 1,
	}
}

// PromClient implements TimeSeriesClient over a live Prometheus server's
// HTTP query API, using github.com/prometheus/client_golang/api/prometheus/v1
// — the same module the core uses for in-process metrics recording, here
// exercised as a PromQL query client instead of an exposition registry.
type PromClient struct {
	api promv1.API
	cfg PromQueryConfig
}

// NewPromClient dials addr (e.g. "http://prometheus:9090") and returns a
// PromClient using cfg's metric names. No network round-trip happens here;
// the first query surfaces connection failures.
func NewPromClient(addr string, cfg PromQueryConfig) (*PromClient, error) {
	client, err := api.NewClient(api.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("build prometheus client: %w", err)
	}
	if cfg.ExpectedSamplesPerWindow <= 0 {
		cfg.ExpectedSamplesPerWindow = 1
	}
	return &PromClient{api: promv1.NewAPI(client), cfg: cfg}, nil
}

func (p *PromClient) scalarAt(ctx context.Context, query string, at time.Time) (float64, bool, error) {
	value, warnings, err := p.api.Query(ctx, query, at)
	if err != nil {
		return 0, false, err
	}
	_ = warnings
	vector, ok := value.(model.Vector)
	if !ok || len(vector) == 0 {
		return 0, false, nil
	}
	return float64(vector[0].Value), true, nil
}

func rangeDuration(window sli.Window) string {
	d := window.End.Sub(window.Start)
	if d <= 0 {
		d = time.Minute
	}
	return model.Duration(d).String()
}

// AvailabilityCounts sums good and total request counts over the window via
// increase() instant queries evaluated at window.End.
func (p *PromClient) AvailabilityCounts(ctx context.Context, serviceID string, window sli.Window) (good, total int64, sampleCount int, found bool, err error) {
	r := rangeDuration(window)
	goodQuery := fmt.Sprintf(`sum(increase(%s{service_id=%q}[%s]))`, p.cfg.GoodRequestsMetric, serviceID, r)
	totalQuery := fmt.Sprintf(`sum(increase(%s{service_id=%q}[%s]))`, p.cfg.TotalRequestsMetric, serviceID, r)

	goodVal, goodFound, err := p.scalarAt(ctx, goodQuery, window.End)
	if err != nil {
		return 0, 0, 0, false, err
	}
	totalVal, totalFound, err := p.scalarAt(ctx, totalQuery, window.End)
	if err != nil {
		return 0, 0, 0, false, err
	}
	if !goodFound && !totalFound {
		return 0, 0, 0, false, nil
	}
	sampleCount = int(totalVal)
	return int64(goodVal), int64(totalVal), sampleCount, true, nil
}

// LatencyPercentiles evaluates histogram_quantile against the configured
// latency bucket metric for each of the four documented percentiles.
func (p *PromClient) LatencyPercentiles(ctx context.Context, serviceID string, window sli.Window) (p50, p95, p99, p999 float64, sampleCount int, found bool, err error) {
	r := rangeDuration(window)
	quantile := func(q float64) (float64, bool, error) {
		query := fmt.Sprintf(
			`histogram_quantile(%v, sum(rate(%s{service_id=%q}[%s])) by (le))`,
			q, p.cfg.LatencyBucketMetric, serviceID, r,
		)
		return p.scalarAt(ctx, query, window.End)
	}

	var ok50, ok95, ok99, ok999 bool
	if p50, ok50, err = quantile(0.50); err != nil {
		return 0, 0, 0, 0, 0, false, err
	}
	if p95, ok95, err = quantile(0.95); err != nil {
		return 0, 0, 0, 0, 0, false, err
	}
	if p99, ok99, err = quantile(0.99); err != nil {
		return 0, 0, 0, 0, 0, false, err
	}
	if p999, ok999, err = quantile(0.999); err != nil {
		return 0, 0, 0, 0, 0, false, err
	}
	if !ok50 && !ok95 && !ok99 && !ok999 {
		return 0, 0, 0, 0, 0, false, nil
	}

	countQuery := fmt.Sprintf(`sum(increase(%s_count{service_id=%q}[%s]))`, trimBucketSuffix(p.cfg.LatencyBucketMetric), serviceID, r)
	count, _, cerr := p.scalarAt(ctx, countQuery, window.End)
	if cerr != nil {
		return 0, 0, 0, 0, 0, false, cerr
	}
	return p50, p95, p99, p999, int(count), true, nil
}

// RollingAvailability evaluates the good/total ratio of the same two
// counters AvailabilityCounts queries separately, over a stepped range,
// producing one bucket per step.
func (p *PromClient) RollingAvailability(ctx context.Context, serviceID string, window sli.Window, bucket time.Duration) ([]sli.RollingBucket, error) {
	if bucket <= 0 {
		bucket = 24 * time.Hour
	}
	query := fmt.Sprintf(
		`sum(increase(%s{service_id=%q}[%s])) / sum(increase(%s{service_id=%q}[%s]))`,
		p.cfg.GoodRequestsMetric, serviceID, model.Duration(bucket).String(),
		p.cfg.TotalRequestsMetric, serviceID, model.Duration(bucket).String(),
	)
	r := promv1.Range{Start: window.Start, End: window.End, Step: bucket}
	value, warnings, err := p.api.QueryRange(ctx, query, r)
	if err != nil {
		return nil, err
	}
	_ = warnings

	matrix, ok := value.(model.Matrix)
	if !ok || len(matrix) == 0 {
		return nil, nil
	}
	var buckets []sli.RollingBucket
	for _, sample := range matrix[0].Values {
		buckets = append(buckets, sli.RollingBucket{
			BucketStart: sample.Timestamp.Time(),
			Value:       float64(sample.Value),
		})
	}
	return buckets, nil
}

// Completeness estimates the observed-to-expected sample ratio over the
// window using the total request count series as a proxy for sample volume.
func (p *PromClient) Completeness(ctx context.Context, serviceID string, window sli.Window) (ratio float64, found bool, err error) {
	r := rangeDuration(window)
	query := fmt.Sprintf(`sum(increase(%s{service_id=%q}[%s]))`, p.cfg.TotalRequestsMetric, serviceID, r)
	observed, ok, err := p.scalarAt(ctx, query, window.End)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	expected := p.cfg.ExpectedSamplesPerWindow * window.End.Sub(window.Start).Hours()
	if expected <= 0 {
		return 1, true, nil
	}
	ratio = observed / expected
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true, nil
}

func trimBucketSuffix(metric string) string {
	const suffix = "_bucket"
	if len(metric) > len(suffix) && metric[len(metric)-len(suffix):] == suffix {
		return metric[:len(metric)-len(suffix)]
	}
	return metric
}
