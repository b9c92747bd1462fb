// Package config provides environment-aware configuration for the SLO
// recommendation engine core. Loading (env vars, optional .env file) and
// wiring (DI) live here; neither auth, transport, nor telemetry-store driver
// configuration is in scope — only the options the core itself recognizes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// Config holds every option the core recognizes, per the specification's
// configuration table.
type Config struct {
	Env Environment

	// Logging
	LogLevel  string
	LogFormat string

	// Lookback / cold start
	LookbackDefaultDays  int
	LookbackExtendedDays int
	CompletenessThreshold float64

	// Composite math defaults
	DepDefaultAvailability float64
	ExternalBufferK        float64

	// Recommendation lifecycle
	RecommendationTTL time.Duration

	// Latency tiering
	NoiseMarginDefault float64
	NoiseMarginShared  float64

	// Bootstrap
	BootstrapResamples int
	BootstrapSeed      uint64

	// Batch orchestration
	BatchConcurrency   int
	BatchIntervalHours int
	ExpirySweepSpec    string

	// Graph
	StaleEdgeThresholdHours int
	MaxTraversalDepth       int

	// Persistence / cache
	PostgresDSN      string
	RedisAddr        string
	TraversalCacheTTL time.Duration

	// Telemetry backend
	PrometheusURL string

	// Metrics
	MetricsEnabled bool
}

// Load builds a Config from environment variables, optionally pre-seeded
// from a "config/<env>.env" file (mirrors the teacher's layered env-file +
// os.Getenv approach; missing files are not an error).
func Load() (*Config, error) {
	envStr := os.Getenv("SLO_ENGINE_ENV")
	if envStr == "" {
		envStr = string(Development)
	}
	env := Environment(envStr)
	switch env {
	case Development, Testing, Production:
	default:
		return nil, fmt.Errorf("invalid SLO_ENGINE_ENV: %s (must be development, testing, or production)", envStr)
	}

	configFile := fmt.Sprintf("config/%s.env", env)
	if err := godotenv.Load(configFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("warning: could not load %s: %v\n", configFile, err)
		}
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")

	c.LookbackDefaultDays = getIntEnv("LOOKBACK_DEFAULT_DAYS", 30)
	c.LookbackExtendedDays = getIntEnv("LOOKBACK_EXTENDED_DAYS", 90)
	c.CompletenessThreshold = getFloatEnv("COMPLETENESS_THRESHOLD", 0.90)

	c.DepDefaultAvailability = getFloatEnv("DEP_DEFAULT_AVAILABILITY", 0.999)
	c.ExternalBufferK = getFloatEnv("EXTERNAL_BUFFER_K", 11)

	ttl := getEnv("RECOMMENDATION_TTL", "24h")
	parsedTTL, err := time.ParseDuration(ttl)
	if err != nil {
		return fmt.Errorf("invalid RECOMMENDATION_TTL: %w", err)
	}
	c.RecommendationTTL = parsedTTL

	c.NoiseMarginDefault = getFloatEnv("NOISE_MARGIN_DEFAULT", 0.05)
	c.NoiseMarginShared = getFloatEnv("NOISE_MARGIN_SHARED", 0.10)

	c.BootstrapResamples = getIntEnv("BOOTSTRAP_RESAMPLES", 1000)
	c.BootstrapSeed = uint64(getIntEnv("BOOTSTRAP_SEED", 42))

	c.BatchConcurrency = getIntEnv("BATCH_CONCURRENCY", 20)
	c.BatchIntervalHours = getIntEnv("BATCH_INTERVAL_HOURS", 24)
	c.ExpirySweepSpec = getEnv("EXPIRY_SWEEP_SPEC", "@hourly")

	c.StaleEdgeThresholdHours = getIntEnv("STALE_EDGE_THRESHOLD_HOURS", 168)
	c.MaxTraversalDepth = getIntEnv("MAX_TRAVERSAL_DEPTH", 10)

	c.PostgresDSN = getEnv("POSTGRES_DSN", "")
	c.RedisAddr = getEnv("REDIS_ADDR", "")
	cacheTTL := getEnv("TRAVERSAL_CACHE_TTL", "5s")
	parsedCacheTTL, err := time.ParseDuration(cacheTTL)
	if err != nil {
		return fmt.Errorf("invalid TRAVERSAL_CACHE_TTL: %w", err)
	}
	c.TraversalCacheTTL = parsedCacheTTL

	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", c.Env == Production)
	c.PrometheusURL = getEnv("PROMETHEUS_URL", "")

	return nil
}

// IsDevelopment reports whether the environment is development.
func (c *Config) IsDevelopment() bool { return c.Env == Development }

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool { return c.Env == Production }

// Validate checks cross-field and range constraints beyond simple parsing.
func (c *Config) Validate() error {
	if c.LookbackDefaultDays <= 0 || c.LookbackExtendedDays < c.LookbackDefaultDays {
		return fmt.Errorf("lookback_extended_days must be >= lookback_default_days")
	}
	if c.CompletenessThreshold < 0 || c.CompletenessThreshold > 1 {
		return fmt.Errorf("completeness_threshold must be in [0,1]")
	}
	if c.DepDefaultAvailability <= 0 || c.DepDefaultAvailability > 1 {
		return fmt.Errorf("dep_default_availability must be in (0,1]")
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("batch_concurrency must be positive")
	}
	if c.MaxTraversalDepth < 1 || c.MaxTraversalDepth > 10 {
		return fmt.Errorf("max_traversal_depth must be in [1,10]")
	}
	if c.BootstrapResamples <= 0 {
		return fmt.Errorf("bootstrap_resamples must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
