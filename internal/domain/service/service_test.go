package service

import "testing"

func ptr(f float64) *float64 { return &f }

func TestNewValidatesPublishedSLA(t *testing.T) {
	if _, err := New("svc-a", "payments", CriticalityHigh, TypeInternal, ptr(0.999)); err == nil {
		t.Fatalf("expected error for published_sla on an internal service")
	}
	if _, err := New("svc-a", "payments", CriticalityHigh, TypeExternal, ptr(1.5)); err == nil {
		t.Fatalf("expected error for published_sla out of (0,1]")
	}
	svc, err := New("svc-a", "payments", CriticalityHigh, TypeExternal, ptr(0.999))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if svc.PublishedSLA == nil || *svc.PublishedSLA != 0.999 {
		t.Errorf("PublishedSLA = %v, want 0.999", svc.PublishedSLA)
	}
}

func TestNewRejectsInvalidEnums(t *testing.T) {
	if _, err := New("svc-a", "team", Criticality("ultra"), TypeInternal, nil); err == nil {
		t.Fatalf("expected error for invalid criticality")
	}
	if _, err := New("svc-a", "team", CriticalityLow, Type("partner"), nil); err == nil {
		t.Fatalf("expected error for invalid service_type")
	}
	if _, err := New("", "team", CriticalityLow, TypeInternal, nil); err == nil {
		t.Fatalf("expected error for empty service_id")
	}
}

func TestNewDiscovered(t *testing.T) {
	svc := NewDiscovered("svc-b")
	if !svc.Discovered {
		t.Errorf("Discovered = false, want true")
	}
	if svc.Type != TypeInternal {
		t.Errorf("Type = %v, want internal default", svc.Type)
	}
}

func TestApplyExplicitMetadataClearsDiscovered(t *testing.T) {
	svc := NewDiscovered("svc-b")
	if err := svc.ApplyExplicitMetadata("checkout", CriticalityCritical, TypeInternal, nil); err != nil {
		t.Fatalf("ApplyExplicitMetadata() error = %v", err)
	}
	if svc.Discovered {
		t.Errorf("Discovered = true, want false after explicit metadata")
	}
	if svc.Team != "checkout" {
		t.Errorf("Team = %q, want checkout", svc.Team)
	}
}

func TestApplyExplicitMetadataRejectsSLAOnInternal(t *testing.T) {
	svc := NewDiscovered("svc-b")
	if err := svc.ApplyExplicitMetadata("checkout", CriticalityCritical, TypeInternal, ptr(0.99)); err == nil {
		t.Fatalf("expected error for published_sla on internal service")
	}
}
