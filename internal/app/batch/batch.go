// Package batch implements bounded-concurrency batch regeneration of
// recommendations across every eligible service (§4.6). A single Runner
// invocation fans out to K concurrent pipeline runs, isolates per-service
// failures, and never panics out of the batch.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/recommend"
	"github.com/R3E-Network/slo-recommendation-engine/internal/metrics"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// listPageSize bounds how many services a single ListAll call fetches while
// paginating the full eligible set.
const listPageSize = 500

// Config carries batch-specific tunables from §6's configuration table.
type Config struct {
	ConcurrencyK      int
	IncludeDiscovered bool
}

// DefaultConfig returns the documented default concurrency bound.
func DefaultConfig() Config {
	return Config{ConcurrencyK: 20, IncludeDiscovered: false}
}

// Failure records one service's isolated failure within a batch run.
type Failure struct {
	ServiceID string
	Error     string
}

// Result is the outcome of a single batch run.
type Result struct {
	Total      int
	Successful int
	Skipped    int
	Failed     int
	Duration   time.Duration
	Failures   []Failure
}

// Runner orchestrates one batch pass over the service registry.
type Runner struct {
	services ports.ServiceRepository
	pipeline *recommend.Pipeline
	clock    ports.Clock
	cfg      Config
	log      *logger.Logger
}

// New constructs a Runner.
func New(services ports.ServiceRepository, pipeline *recommend.Pipeline, clock ports.Clock, cfg Config, log *logger.Logger) *Runner {
	return &Runner{services: services, pipeline: pipeline, clock: clock, cfg: cfg, log: log}
}

// Run regenerates recommendations for every eligible service, bounded to
// cfg.ConcurrencyK concurrent pipeline invocations. A per-service failure
// never aborts the run: it is captured against that service_id and counted.
// Run itself never returns an error for per-service failures; it only fails
// when the service listing itself cannot be read.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := r.clock.Now()

	serviceIDs, err := r.eligibleServiceIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(serviceIDs)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency())

	for _, id := range serviceIDs {
		serviceID := id
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer r.recoverInto(&mu, result, serviceID)

			_, err := r.pipeline.Generate(ctx, serviceID, nil, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Successful++
			case errors.Is(err, errors.CodeInsufficientData):
				result.Skipped++
			default:
				result.Failed++
				result.Failures = append(result.Failures, Failure{ServiceID: serviceID, Error: err.Error()})
				if r.log != nil {
					r.log.WithField("service_id", serviceID).WithField("err", err).Error("batch: recommendation generation failed")
				}
			}
		}()
	}

	wg.Wait()
	result.Duration = r.clock.Now().Sub(start)

	outcome := "ok"
	if result.Failed > 0 {
		outcome = "partial_failure"
	}
	metrics.RecordBatchRun(outcome, result.Successful, result.Failed, result.Skipped, result.Duration)

	return result, nil
}

// recoverInto converts a panicking pipeline invocation into a counted
// failure: the batch runner must never raise out of its scheduled task.
func (r *Runner) recoverInto(mu *sync.Mutex, result *Result, serviceID string) {
	if rec := recover(); rec != nil {
		mu.Lock()
		defer mu.Unlock()
		result.Failed++
		result.Failures = append(result.Failures, Failure{ServiceID: serviceID, Error: "panic: recovered"})
		if r.log != nil {
			r.log.WithField("service_id", serviceID).WithField("panic", rec).Error("batch: recovered from panic")
		}
	}
}

func (r *Runner) concurrency() int {
	if r.cfg.ConcurrencyK <= 0 {
		return 1
	}
	return r.cfg.ConcurrencyK
}

// eligibleServiceIDs pages through the full registry collecting every
// service whose discovered flag matches cfg.IncludeDiscovered.
func (r *Runner) eligibleServiceIDs(ctx context.Context) ([]string, error) {
	var ids []string
	skip := 0
	for {
		page, err := r.services.ListAll(ctx, skip, listPageSize, ports.ServiceFilter{IncludeDiscovered: r.cfg.IncludeDiscovered})
		if err != nil {
			return nil, err
		}
		for _, svc := range page {
			if !r.cfg.IncludeDiscovered && svc.Discovered {
				continue
			}
			ids = append(ids, svc.ServiceID)
		}
		if len(page) < listPageSize {
			break
		}
		skip += listPageSize
	}
	return ids, nil
}
