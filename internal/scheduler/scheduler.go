// Package scheduler drives the periodic batch regeneration of recommendations
// (§4.6): a lifecycle-managed system.Service wrapping a time.Ticker loop
// around internal/app/batch.Runner, guaranteeing no overlapping runs and a
// bounded catch-up grace period after a restart.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/batch"
	core "github.com/R3E-Network/slo-recommendation-engine/internal/app/corekit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/system"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// Ensure BatchScheduler implements system.Service.
var _ system.Service = (*BatchScheduler)(nil)

// ResultHandler is notified after every completed batch run, whether the
// scheduler fired it on the regular interval or as a catch-up run.
type ResultHandler func(ctx context.Context, result *batch.Result)

// BatchScheduler ticks at a configured interval and runs at most one batch
// pass at a time. A tick that arrives while a run is already in flight is
// coalesced: at most one additional run is queued, never one per missed
// tick, per §4.6's "no overlapping runs (coalesce missed ticks into one)".
type BatchScheduler struct {
	runner   *batch.Runner
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	runMu   sync.Mutex
	inFlight bool
	pending  bool

	onResult ResultHandler
	lastErr  error
}

// New constructs a BatchScheduler. interval defaults to 24h (§6
// batch_interval_hours) when non-positive.
func New(runner *batch.Runner, interval time.Duration, log *logger.Logger) *BatchScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("slo-batch-scheduler")
	}
	return &BatchScheduler{runner: runner, interval: interval, log: log}
}

// WithResultHandler registers a callback invoked after every run. It must
// return quickly; long work should be dispatched asynchronously by the
// caller.
func (s *BatchScheduler) WithResultHandler(handler ResultHandler) {
	s.mu.Lock()
	s.onResult = handler
	s.mu.Unlock()
}

// Name identifies this service for lifecycle and descriptor purposes.
func (s *BatchScheduler) Name() string { return "slo-batch-scheduler" }

// Descriptor advertises the scheduler's architectural placement.
func (s *BatchScheduler) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "slo-batch-scheduler",
		Domain:       "slo-recommendation",
		Layer:        core.LayerEngine,
		Capabilities: []string{"schedule", "batch-regenerate"},
	}
}

// Start begins the background ticking loop. A run fires immediately on
// start (bounded catch-up: exactly one run, never one per interval missed
// while the process was down), then again every interval.
func (s *BatchScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fire(runCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.fire(runCtx)
			}
		}
	}()

	s.log.WithField("interval", s.interval).Info("batch scheduler started")
	return nil
}

// Stop halts the ticking loop and waits for any in-flight run to finish.
func (s *BatchScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("batch scheduler stopped")
	return nil
}

// fire runs exactly one batch pass, unless one is already in flight, in
// which case it marks a single pending follow-up run and returns
// immediately: the caller (the ticking goroutine) never blocks on a slow
// batch, and a burst of ticks during a long run collapses to one retry.
func (s *BatchScheduler) fire(ctx context.Context) {
	s.runMu.Lock()
	if s.inFlight {
		s.pending = true
		s.runMu.Unlock()
		return
	}
	s.inFlight = true
	s.runMu.Unlock()

	s.runOnce(ctx)

	for {
		s.runMu.Lock()
		if !s.pending {
			s.inFlight = false
			s.runMu.Unlock()
			return
		}
		s.pending = false
		s.runMu.Unlock()

		select {
		case <-ctx.Done():
			s.runMu.Lock()
			s.inFlight = false
			s.runMu.Unlock()
			return
		default:
		}
		s.runOnce(ctx)
	}
}

// runOnce invokes the batch runner once, never letting a panic or error
// escape the scheduled task (§4.6: "the batch runner must never raise out
// of its scheduled task").
func (s *BatchScheduler) runOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.WithField("panic", rec).Error("batch scheduler recovered from panic")
		}
	}()

	result, err := s.runner.Run(ctx)
	s.mu.Lock()
	s.lastErr = err
	handler := s.onResult
	s.mu.Unlock()

	if err != nil {
		s.log.WithField("error", err).Error("scheduled batch run failed")
		return
	}

	s.log.WithField("total", result.Total).
		WithField("successful", result.Successful).
		WithField("failed", result.Failed).
		WithField("skipped", result.Skipped).
		WithField("duration", result.Duration).
		Info("scheduled batch run complete")

	if handler != nil {
		handler(ctx, result)
	}
}

// LastError returns the error from the most recent run of the service
// listing step, if any (per-service failures never surface here — they are
// captured in the result's Failures list instead).
func (s *BatchScheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
