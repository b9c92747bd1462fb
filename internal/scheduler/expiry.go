package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	core "github.com/R3E-Network/slo-recommendation-engine/internal/app/corekit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/lifecycle"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/system"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// Ensure ExpiryScheduler implements system.Service.
var _ system.Service = (*ExpiryScheduler)(nil)

// DefaultExpirySpec runs the sweep once an hour, independent of the batch
// regeneration interval: expiry is cheap and idempotent, so it runs on its
// own cadence rather than piggybacking on a batch pass.
const DefaultExpirySpec = "@hourly"

// ExpiryScheduler drives lifecycle.UseCase.ExpireSweep on a cron schedule.
// Unlike BatchScheduler's fixed-interval ticker, the sweep cadence is a cron
// expression (§6 allows operators to tune this independently of
// batch_interval_hours), so the schedule itself is parsed and dispatched by
// robfig/cron rather than a raw time.Ticker.
type ExpiryScheduler struct {
	uc   *lifecycle.UseCase
	spec string
	log  *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	lastN   int
	lastErr error
}

// NewExpiryScheduler constructs an ExpiryScheduler. spec defaults to
// DefaultExpirySpec when empty.
func NewExpiryScheduler(uc *lifecycle.UseCase, spec string, log *logger.Logger) *ExpiryScheduler {
	if spec == "" {
		spec = DefaultExpirySpec
	}
	if log == nil {
		log = logger.NewDefault("slo-expiry-scheduler")
	}
	return &ExpiryScheduler{uc: uc, spec: spec, log: log}
}

// Name identifies this service for lifecycle and descriptor purposes.
func (s *ExpiryScheduler) Name() string { return "slo-expiry-scheduler" }

// Descriptor advertises the scheduler's architectural placement.
func (s *ExpiryScheduler) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "slo-expiry-scheduler",
		Domain:       "slo-recommendation",
		Layer:        core.LayerEngine,
		Capabilities: []string{"schedule", "expire-stale-recommendations"},
	}
}

// Start parses spec and begins the cron scheduler. An invalid spec is
// surfaced as an error here rather than at construction, matching
// system.Service's Start-time failure contract.
func (s *ExpiryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	s.log.WithField("spec", s.spec).Info("expiry scheduler started")
	return nil
}

// Stop halts the cron scheduler and waits for any in-flight sweep to finish.
func (s *ExpiryScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	running := s.running
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	if !running || c == nil {
		return nil
	}

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("expiry scheduler stopped")
	return nil
}

// sweep runs one expiry pass, never letting a panic escape the cron
// dispatcher.
func (s *ExpiryScheduler) sweep(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.WithField("panic", rec).Error("expiry scheduler recovered from panic")
		}
	}()

	n, err := s.uc.ExpireSweep(ctx)
	s.mu.Lock()
	s.lastN = n
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.log.WithField("error", err).Error("expiry sweep failed")
		return
	}
	s.log.WithField("expired", n).Info("expiry sweep complete")
}

// LastResult returns the count expired and error from the most recent sweep.
func (s *ExpiryScheduler) LastResult() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastN, s.lastErr
}
