package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/batch"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/constraint"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ingest"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/lifecycle"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/recommend"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/system"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/traverse"
	"github.com/R3E-Network/slo-recommendation-engine/internal/cache"
	"github.com/R3E-Network/slo-recommendation-engine/internal/config"
	"github.com/R3E-Network/slo-recommendation-engine/internal/graphadapter"
	"github.com/R3E-Network/slo-recommendation-engine/internal/platform/database"
	"github.com/R3E-Network/slo-recommendation-engine/internal/scheduler"
	"github.com/R3E-Network/slo-recommendation-engine/internal/storage/memory"
	"github.com/R3E-Network/slo-recommendation-engine/internal/storage/postgres"
	"github.com/R3E-Network/slo-recommendation-engine/internal/telemetryadapter"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/clock"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// engine bundles every use case the composition root exposes, analogous to
// the teacher's Application struct.
type engine struct {
	Ingest     *ingest.UseCase
	Traverse   *traverse.UseCase
	Recommend  *recommend.Pipeline
	Constraint *constraint.UseCase
	Batch      *batch.Runner
	Lifecycle  *lifecycle.UseCase
	manager    *system.Manager
}

func (e *engine) Start(ctx context.Context) error { return e.manager.Start(ctx) }
func (e *engine) Stop(ctx context.Context) error  { return e.manager.Stop(ctx) }

func main() {
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup (ignored for in-memory storage)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	appLogger := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})

	ctx := context.Background()
	e, closeFn, err := build(ctx, cfg, appLogger, *runMigrations)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	defer closeFn()

	if err := e.Start(ctx); err != nil {
		log.Fatalf("start engine: %v", err)
	}
	appLogger.WithField("env", string(cfg.Env)).Info("slo recommendation engine started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Stop(shutdownCtx); err != nil {
		log.Fatalf("stop engine: %v", err)
	}
}

// build wires every port to a concrete adapter per cfg, and returns a
// cleanup func the caller must invoke on shutdown regardless of start
// success.
func build(ctx context.Context, cfg *config.Config, log *logger.Logger, runMigrations bool) (*engine, func(), error) {
	var (
		services   ports.ServiceRepository
		deps       ports.DependencyRepository
		recs       ports.RecommendationRepository
		audits     ports.AuditStore
		cycles     ports.CycleRepository
		closeFuncs []func()
	)

	if cfg.PostgresDSN != "" {
		db, err := database.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nopClose, err
		}
		closeFuncs = append(closeFuncs, func() { db.Close() })

		if runMigrations {
			if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
				return nil, combine(closeFuncs), err
			}
		}

		services = postgres.NewServiceStore(db)
		deps = postgres.NewDependencyStore(db)
		recs = postgres.NewRecommendationStore(db)
		audits = postgres.NewAuditLog(db)
		cycles = postgres.NewCycleStore(db)
	} else {
		mem := memory.New()
		services = mem.Services
		deps = mem.Dependencies
		recs = mem.Recommendations
		audits = mem.Audit
		cycles = mem.Cycles
	}

	var traversalCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.TraversalCacheTTL)
		closeFuncs = append(closeFuncs, func() { redisCache.Close() })
		traversalCache = redisCache
	} else {
		memCache := cache.NewMemory(cfg.TraversalCacheTTL)
		closeFuncs = append(closeFuncs, memCache.Close)
		traversalCache = memCache
	}
	deps = graphadapter.New(deps, traversalCache, cfg.TraversalCacheTTL, log)

	var tsClient telemetryadapter.TimeSeriesClient
	if cfg.PrometheusURL != "" {
		promClient, err := telemetryadapter.NewPromClient(cfg.PrometheusURL, telemetryadapter.DefaultPromQueryConfig())
		if err != nil {
			log.WithField("error", err).Warn("configure prometheus telemetry client; falling back to no-op")
			tsClient = telemetryadapter.NoopClient{}
		} else {
			tsClient = promClient
		}
	} else {
		log.Warn("PROMETHEUS_URL not configured; telemetry queries will report no data")
		tsClient = telemetryadapter.NoopClient{}
	}
	telemetry := telemetryadapter.New(tsClient, traversalCache, cfg.TraversalCacheTTL, log)

	realClock := clock.Real{}

	ingestUC := ingest.New(services, deps, cycles, realClock, log)
	traverseUC := traverse.New(services, deps, cfg.MaxTraversalDepth)
	lifecycleUC := lifecycle.New(recs, audits, realClock)

	pipelineCfg := recommend.Config{
		LookbackDefaultDays:    cfg.LookbackDefaultDays,
		LookbackExtendedDays:   cfg.LookbackExtendedDays,
		CompletenessThreshold:  cfg.CompletenessThreshold,
		DepDefaultAvailability: cfg.DepDefaultAvailability,
		ExternalBufferK:        cfg.ExternalBufferK,
		TTL:                    cfg.RecommendationTTL,
		NoiseMarginDefault:     cfg.NoiseMarginDefault,
		NoiseMarginShared:      cfg.NoiseMarginShared,
		BootstrapResamples:     cfg.BootstrapResamples,
		BootstrapSeed:          cfg.BootstrapSeed,
		RollingBucket:          24 * time.Hour,
		SubgraphDepth:          3,
	}
	pipeline := recommend.New(services, deps, telemetry, recs, realClock, pipelineCfg, log)

	constraintCfg := constraint.Config{
		DepDefaultAvailability: cfg.DepDefaultAvailability,
		ExternalBufferK:        cfg.ExternalBufferK,
		SubgraphDepth:          3,
		ImpactMaxDepth:         3,
		LookbackDays:           cfg.LookbackDefaultDays,
	}
	constraintUC := constraint.New(services, deps, telemetry, recs, realClock, constraintCfg)

	batchCfg := batch.Config{ConcurrencyK: cfg.BatchConcurrency, IncludeDiscovered: false}
	batchRunner := batch.New(services, pipeline, realClock, batchCfg, log)

	manager := system.NewManager()
	batchScheduler := scheduler.New(batchRunner, time.Duration(cfg.BatchIntervalHours)*time.Hour, log)
	expiryScheduler := scheduler.NewExpiryScheduler(lifecycleUC, cfg.ExpirySweepSpec, log)
	if err := manager.Register(batchScheduler); err != nil {
		return nil, combine(closeFuncs), err
	}
	if err := manager.Register(expiryScheduler); err != nil {
		return nil, combine(closeFuncs), err
	}

	return &engine{
		Ingest:     ingestUC,
		Traverse:   traverseUC,
		Recommend:  pipeline,
		Constraint: constraintUC,
		Batch:      batchRunner,
		Lifecycle:  lifecycleUC,
		manager:    manager,
	}, combine(closeFuncs), nil
}

func nopClose() {}

func combine(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
