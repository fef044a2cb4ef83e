package typing

import (
	"testing"
	"time"
)

func TestSetTyping_AddAndRemove(t *testing.T) {
	tr := NewTracker(0)

	users := tr.SetTyping("global", "c1", "Alice", true)
	if len(users) != 1 || users[0] != "Alice" {
		t.Fatalf("expected [Alice], got %v", users)
	}

	users = tr.SetTyping("global", "c2", "Bob", true)
	if len(users) != 2 || users[0] != "Alice" || users[1] != "Bob" {
		t.Fatalf("expected sorted [Alice Bob], got %v", users)
	}

	users = tr.SetTyping("global", "c1", "Alice", false)
	if len(users) != 1 || users[0] != "Bob" {
		t.Fatalf("expected [Bob] after Alice stopped, got %v", users)
	}
}

func TestSetTyping_StopWithoutStart(t *testing.T) {
	tr := NewTracker(0)

	users := tr.SetTyping("global", "c1", "Alice", false)
	if users == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(users) != 0 {
		t.Fatalf("expected empty list, got %v", users)
	}
}

func TestSnapshot_RoomsAreIsolated(t *testing.T) {
	tr := NewTracker(0)

	tr.SetTyping("global", "c1", "Alice", true)
	tr.SetTyping("dev", "c2", "Bob", true)

	if got := tr.Snapshot("global"); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("global: expected [Alice], got %v", got)
	}
	if got := tr.Snapshot("dev"); len(got) != 1 || got[0] != "Bob" {
		t.Errorf("dev: expected [Bob], got %v", got)
	}
	if got := tr.Snapshot("empty"); len(got) != 0 {
		t.Errorf("empty room: expected no users, got %v", got)
	}
}

func TestClearConnection(t *testing.T) {
	tr := NewTracker(0)

	tr.SetTyping("global", "c1", "Alice", true)
	tr.SetTyping("dev", "c1", "Alice", true)
	tr.SetTyping("dev", "c2", "Bob", true)

	affected := tr.ClearConnection("c1")
	if len(affected) != 2 || affected[0] != "dev" || affected[1] != "global" {
		t.Fatalf("expected affected rooms [dev global], got %v", affected)
	}

	if got := tr.Snapshot("global"); len(got) != 0 {
		t.Errorf("global: expected empty, got %v", got)
	}
	if got := tr.Snapshot("dev"); len(got) != 1 || got[0] != "Bob" {
		t.Errorf("dev: expected [Bob], got %v", got)
	}

	if affected := tr.ClearConnection("c1"); len(affected) != 0 {
		t.Fatalf("second clear should affect no rooms, got %v", affected)
	}
}

func TestSnapshot_ExpiresStaleEntries(t *testing.T) {
	tr := NewTracker(10 * time.Millisecond)

	tr.SetTyping("global", "c1", "Alice", true)
	if got := tr.Snapshot("global"); len(got) != 1 {
		t.Fatalf("expected [Alice] before expiry, got %v", got)
	}

	time.Sleep(20 * time.Millisecond)

	if got := tr.Snapshot("global"); len(got) != 0 {
		t.Fatalf("expected empty list after TTL, got %v", got)
	}
}
