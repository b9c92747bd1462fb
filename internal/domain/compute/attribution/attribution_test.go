package attribution

import "testing"

func TestComputeRejectsMissingKeys(t *testing.T) {
	values := map[string]float64{"historical_availability": 0.9}
	if _, err := Compute(AvailabilityWeights, values); err == nil {
		t.Fatalf("expected error for missing keys")
	}
}

func TestComputeRejectsExtraKeys(t *testing.T) {
	values := map[string]float64{
		"historical_availability": 0.9,
		"downstream_risk":         0.1,
		"external_reliability":    0.2,
		"deployment_freq":         0.1,
		"unexpected_feature":      0.5,
	}
	if _, err := Compute(AvailabilityWeights, values); err == nil {
		t.Fatalf("expected error for extra keys")
	}
}

func TestComputeNormalizesToOne(t *testing.T) {
	values := map[string]float64{
		"historical_availability": 0.9,
		"downstream_risk":         0.2,
		"external_reliability":    0.1,
		"deployment_freq":         0.05,
	}
	contributions, err := Compute(AvailabilityWeights, values)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	sum := 0.0
	for _, c := range contributions {
		sum += c.Contribution
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("sum of contributions = %v, want 1.0", sum)
	}
}

func TestComputeSortedByAbsoluteContributionDescending(t *testing.T) {
	values := map[string]float64{
		"historical_availability": 0.9,
		"downstream_risk":         0.2,
		"external_reliability":    0.1,
		"deployment_freq":         0.05,
	}
	contributions, err := Compute(AvailabilityWeights, values)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	for i := 1; i < len(contributions); i++ {
		if contributions[i-1].Contribution < contributions[i].Contribution {
			t.Fatalf("not sorted descending: %+v", contributions)
		}
	}
}

func TestComputeAllZeroDistributesUniformly(t *testing.T) {
	values := map[string]float64{
		"historical_availability": 0,
		"downstream_risk":         0,
		"external_reliability":    0,
		"deployment_freq":         0,
	}
	contributions, err := Compute(AvailabilityWeights, values)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	for _, c := range contributions {
		if diff := c.Contribution - 0.25; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Contribution for %s = %v, want 0.25", c.Feature, c.Contribution)
		}
	}
}

func TestComputeLatencyWeights(t *testing.T) {
	values := map[string]float64{
		"p99_historical":      0.8,
		"call_chain_depth":    0.3,
		"noisy_neighbor":      0.1,
		"traffic_seasonality": 0.05,
	}
	if _, err := Compute(LatencyWeights, values); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
}
