package audit

import (
	"testing"
	"time"
)

func TestNewRejectsInvalidAction(t *testing.T) {
	if _, err := New("svc-a", "rec-1", Action("bogus"), "alice", time.Now(), nil, nil, "because"); err == nil {
		t.Fatalf("expected error for invalid action")
	}
}

func TestNewRejectsEmptyActor(t *testing.T) {
	if _, err := New("svc-a", "rec-1", ActionAccept, "", time.Now(), nil, nil, "because"); err == nil {
		t.Fatalf("expected error for empty actor")
	}
}

func TestNewConstructsValidEntry(t *testing.T) {
	entry, err := New("svc-a", "rec-1", ActionAccept, "alice", time.Now(), map[string]interface{}{"status": "active"}, map[string]interface{}{"status": "active", "tier": "balanced"}, "meets team's risk tolerance")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if entry.Action != ActionAccept {
		t.Errorf("Action = %v, want accept", entry.Action)
	}
}
