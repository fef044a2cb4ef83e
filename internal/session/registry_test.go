package session

import (
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	s := r.Register("c1", "Alice")
	if s.ID != "c1" || s.DisplayName != "Alice" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.CurrentRoom != GlobalRoom {
		t.Fatalf("new session should start in %q, got %q", GlobalRoom, s.CurrentRoom)
	}

	if got := r.Lookup("c1"); got != s {
		t.Fatalf("Lookup returned %v, want %v", got, s)
	}
	if got := r.Lookup("missing"); got != nil {
		t.Fatalf("Lookup of unknown connection returned %v, want nil", got)
	}
}

func TestRegister_ReplacesExisting(t *testing.T) {
	r := NewRegistry()

	r.Register("c1", "Alice")
	r.SetRoom("c1", "dev")
	s := r.Register("c1", "Alicia")

	if s.DisplayName != "Alicia" {
		t.Errorf("expected replaced display name, got %q", s.DisplayName)
	}
	if s.CurrentRoom != GlobalRoom {
		t.Errorf("re-register should reset room to %q, got %q", GlobalRoom, s.CurrentRoom)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 session, got %d", r.Count())
	}
}

func TestSetRoom(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")

	r.SetRoom("c1", "dev")
	if got := r.Lookup("c1").CurrentRoom; got != "dev" {
		t.Fatalf("expected room %q, got %q", "dev", got)
	}

	// Unknown connection is a logged no-op, not a panic.
	r.SetRoom("missing", "dev")
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")

	removed := r.Remove("c1")
	if removed == nil || removed.ID != "c1" {
		t.Fatalf("expected removed session c1, got %v", removed)
	}
	if r.Lookup("c1") != nil {
		t.Fatal("session still present after Remove")
	}
	if r.Remove("c1") != nil {
		t.Fatal("second Remove should return nil")
	}
}

func TestAll_SortedByID(t *testing.T) {
	r := NewRegistry()
	r.Register("c3", "Carol")
	r.Register("c1", "Alice")
	r.Register("c2", "Bob")

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if all[i].ID != want {
			t.Errorf("index %d: expected %q, got %q", i, want, all[i].ID)
		}
	}
}

func TestInRoom(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")
	r.Register("c2", "Bob")
	r.Register("c3", "Carol")
	r.SetRoom("c2", "dev")

	global := r.InRoom(GlobalRoom)
	if len(global) != 2 || global[0] != "c1" || global[1] != "c3" {
		t.Fatalf("expected [c1 c3] in global, got %v", global)
	}

	dev := r.InRoom("dev")
	if len(dev) != 1 || dev[0] != "c2" {
		t.Fatalf("expected [c2] in dev, got %v", dev)
	}

	if got := r.InRoom("empty"); len(got) != 0 {
		t.Fatalf("expected no members in unknown room, got %v", got)
	}
}
