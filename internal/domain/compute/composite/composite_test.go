package composite

import "testing"

func ptr(f float64) *float64 { return &f }

func TestComputeZeroHardDeps(t *testing.T) {
	b := Compute(0.999, nil)
	if b.RComposite != 0.999 {
		t.Errorf("RComposite = %v, want 0.999 (identity with zero hard deps)", b.RComposite)
	}
}

func TestComputeOneHardDep(t *testing.T) {
	b := Compute(0.999, []Dependency{{ServiceID: "dep-a", Availability: 0.9995, Kind: KindSerialHard}})
	want := 0.999 * 0.9995
	if diff := b.RComposite - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("RComposite = %v, want %v", b.RComposite, want)
	}
	if b.Bottleneck != "dep-a" {
		t.Errorf("Bottleneck = %q, want dep-a", b.Bottleneck)
	}
}

func TestComputeSerialChain(t *testing.T) {
	// A -> B -> C, R_A=0.999, R_B=0.9995, R_C=0.9999 (scenario 1 from spec.md §8)
	b := Compute(0.999, []Dependency{
		{ServiceID: "B", Availability: 0.9995, Kind: KindSerialHard},
		{ServiceID: "C", Availability: 0.9999, Kind: KindSerialHard},
	})
	want := 0.999 * 0.9995 * 0.9999
	if diff := b.RComposite - want; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("RComposite = %v, want ~%v", b.RComposite, want)
	}
}

func TestComputeExcludesSoftFromProduct(t *testing.T) {
	b := Compute(0.999, []Dependency{
		{ServiceID: "soft-a", Availability: 0.5, Kind: KindSoft},
	})
	if b.RComposite != 0.999 {
		t.Errorf("RComposite = %v, want 0.999 (soft dep must not enter product)", b.RComposite)
	}
	if b.SoftCount != 1 || len(b.SoftRisks) != 1 || b.SoftRisks[0] != "soft-a" {
		t.Errorf("expected soft-a reported as risk, got %+v", b)
	}
}

func TestGroupAvailability(t *testing.T) {
	got := GroupAvailability([]float64{0.9, 0.9})
	want := 1 - (1-0.9)*(1-0.9)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("GroupAvailability() = %v, want %v", got, want)
	}
}

func TestAdaptiveBufferScenario3(t *testing.T) {
	// published SLA 0.9999, observed absent -> effective = 1 - (1-0.9999)*11 = 0.9989
	got := AdaptiveBuffer(nil, ptr(0.9999), 11, 0.999)
	want := 0.9989
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AdaptiveBuffer() = %v, want %v", got, want)
	}
}

func TestAdaptiveBufferBothPresentTakesMin(t *testing.T) {
	got := AdaptiveBuffer(ptr(0.995), ptr(0.9999), 11, 0.999)
	want := 0.995 // observed is lower than published_adjusted (0.9989)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AdaptiveBuffer() = %v, want %v", got, want)
	}
}

func TestAdaptiveBufferNeitherPresentUsesDefault(t *testing.T) {
	if got := AdaptiveBuffer(nil, nil, 11, 0.999); got != 0.999 {
		t.Errorf("AdaptiveBuffer() = %v, want configured default 0.999", got)
	}
}
