// Package metrics provides the Prometheus collectors the core records
// against, and helpers to turn them into internal/app/corekit.ObservationHooks
// for instrumenting the pipeline and batch runner. Serving /metrics over
// HTTP is the composition root's concern (§1: transport is out of scope) —
// this package only owns the Registry and recorder functions.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	core "github.com/R3E-Network/slo-recommendation-engine/internal/app/corekit"
)

// Registry holds every collector this package registers. A composition root
// mounts it behind promhttp.HandlerFor if it wants a scrape endpoint.
var Registry = prometheus.NewRegistry()

var (
	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slo_engine",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total recommendation pipeline invocations by outcome.",
		},
		[]string{"sli_type", "outcome"},
	)

	pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slo_engine",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Duration of a single service's pipeline invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"outcome"},
	)

	batchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slo_engine",
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Total batch runs by outcome.",
		},
		[]string{"outcome"},
	)

	batchServiceResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slo_engine",
			Subsystem: "batch",
			Name:      "service_results_total",
			Help:      "Per-service results within batch runs.",
		},
		[]string{"result"},
	)

	batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "slo_engine",
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Duration of a full batch run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	observationCollectors sync.Map
)

func init() {
	Registry.MustRegister(
		pipelineRuns,
		pipelineDuration,
		batchRuns,
		batchServiceResults,
		batchDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// RecordPipelineRun records one (service, sli_type) pipeline outcome.
func RecordPipelineRun(sliType, outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	pipelineRuns.WithLabelValues(sliType, outcome).Inc()
	pipelineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordBatchRun records one full batch pass: its terminal outcome plus the
// distribution of per-service results it produced.
func RecordBatchRun(outcome string, successful, failed, skipped int, duration time.Duration) {
	batchRuns.WithLabelValues(outcome).Inc()
	batchServiceResults.WithLabelValues("successful").Add(float64(successful))
	batchServiceResults.WithLabelValues("failed").Add(float64(failed))
	batchServiceResults.WithLabelValues("skipped").Add(float64(skipped))
	if duration > 0 {
		batchDuration.Observe(duration.Seconds())
	}
}

type observationCollector struct {
	gauge *prometheus.GaugeVec
	hist  *prometheus.HistogramVec
}

// ObservationHooks builds corekit.ObservationHooks backed by a Prometheus
// in-flight gauge and duration histogram, identified by namespace/subsystem/
// name. Collectors are created once and cached, so repeated calls for the
// same triple share one set of series.
func ObservationHooks(namespace, subsystem, name string) core.ObservationHooks {
	key := namespace + ":" + subsystem + ":" + name
	var collector observationCollector
	if entry, ok := observationCollectors.Load(key); ok {
		collector = entry.(observationCollector)
	} else {
		collector = createObservationCollector(namespace, subsystem, name)
		observationCollectors.Store(key, collector)
	}
	return core.ObservationHooks{
		OnStart: func(_ context.Context, meta map[string]string) {
			collector.gauge.WithLabelValues(resourceLabel(meta)).Inc()
		},
		OnComplete: func(_ context.Context, meta map[string]string, err error, duration time.Duration) {
			label := resourceLabel(meta)
			collector.gauge.WithLabelValues(label).Dec()
			status := "success"
			if err != nil {
				status = "error"
			}
			collector.hist.WithLabelValues(label, status).Observe(duration.Seconds())
		},
	}
}

func createObservationCollector(namespace, subsystem, name string) observationCollector {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name + "_in_flight",
			Help:      "Current operations in flight for " + subsystem,
		},
		[]string{"resource"},
	)
	hist := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name + "_duration_seconds",
			Help:      "Duration of operations for " + subsystem,
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"resource", "status"},
	)
	Registry.MustRegister(gauge, hist)
	return observationCollector{gauge: gauge, hist: hist}
}

func resourceLabel(meta map[string]string) string {
	if meta == nil {
		return "unknown"
	}
	if id, ok := meta["service_id"]; ok && id != "" {
		return id
	}
	if source, ok := meta["source"]; ok && source != "" {
		return source
	}
	return "unknown"
}

// PipelineHooks returns the observation hooks for per-service pipeline
// invocations.
func PipelineHooks() core.ObservationHooks {
	return ObservationHooks("slo_engine", "pipeline", "generate")
}

// IngestHooks returns the observation hooks for graph ingest operations.
func IngestHooks() core.ObservationHooks {
	return ObservationHooks("slo_engine", "ingest", "payload")
}
