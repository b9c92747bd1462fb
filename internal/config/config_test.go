package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LookbackDefaultDays != 30 {
		t.Errorf("LookbackDefaultDays = %d, want 30", cfg.LookbackDefaultDays)
	}
	if cfg.LookbackExtendedDays != 90 {
		t.Errorf("LookbackExtendedDays = %d, want 90", cfg.LookbackExtendedDays)
	}
	if cfg.ExternalBufferK != 11 {
		t.Errorf("ExternalBufferK = %v, want 11", cfg.ExternalBufferK)
	}
	if cfg.RecommendationTTL.Hours() != 24 {
		t.Errorf("RecommendationTTL = %v, want 24h", cfg.RecommendationTTL)
	}
	if cfg.BatchConcurrency != 20 {
		t.Errorf("BatchConcurrency = %d, want 20", cfg.BatchConcurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadInvalidEnvironment(t *testing.T) {
	os.Clearenv()
	t.Setenv("SLO_ENGINE_ENV", "bogus")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid SLO_ENGINE_ENV")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Clearenv()
	t.Setenv("BATCH_CONCURRENCY", "5")
	t.Setenv("MAX_TRAVERSAL_DEPTH", "3")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BatchConcurrency != 5 {
		t.Errorf("BatchConcurrency = %d, want 5", cfg.BatchConcurrency)
	}
	if cfg.MaxTraversalDepth != 3 {
		t.Errorf("MaxTraversalDepth = %d, want 3", cfg.MaxTraversalDepth)
	}
}

func TestValidateRejectsOutOfRangeDepth(t *testing.T) {
	cfg := &Config{
		LookbackDefaultDays:    30,
		LookbackExtendedDays:   90,
		CompletenessThreshold:  0.9,
		DepDefaultAvailability: 0.999,
		BatchConcurrency:       20,
		MaxTraversalDepth:      11,
		BootstrapResamples:     1000,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for max_traversal_depth out of range")
	}
}
