package message

import (
	"strings"
	"testing"
)

func TestNewID_Format(t *testing.T) {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != idLength {
			t.Fatalf("expected id length %d, got %d (%q)", idLength, len(id), id)
		}
		for _, r := range id {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("id %q contains non-base36 rune %q", id, r)
			}
		}
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		id := NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewConversationKey_Symmetric(t *testing.T) {
	if NewConversationKey("alice", "bob") != NewConversationKey("bob", "alice") {
		t.Fatal("conversation key is not symmetric")
	}
	if got := NewConversationKey("bob", "alice"); got != "alice|bob" {
		t.Fatalf("expected key %q, got %q", "alice|bob", got)
	}
}

func TestNewRoomMessage_Fields(t *testing.T) {
	m := NewRoomMessage(From{UserID: "u1", DisplayName: "Alice"}, "global", "hi", nil)

	if m.ID == "" {
		t.Fatal("expected a generated id")
	}
	if m.Room != "global" || m.To != "" {
		t.Fatalf("expected room variant, got room=%q to=%q", m.Room, m.To)
	}
	if m.Ts == 0 {
		t.Fatal("expected a timestamp")
	}
	if m.ReadBy == nil || len(m.ReadBy) != 0 {
		t.Fatalf("expected empty ReadBy slice, got %v", m.ReadBy)
	}
	if m.Reactions == nil || len(m.Reactions) != 0 {
		t.Fatalf("expected empty Reactions map, got %v", m.Reactions)
	}
}

func TestNewPrivateMessage_Fields(t *testing.T) {
	m := NewPrivateMessage(From{UserID: "u1", DisplayName: "Alice"}, "u2", "psst", nil)

	if m.To != "u2" || m.Room != "" {
		t.Fatalf("expected private variant, got room=%q to=%q", m.Room, m.To)
	}
	if m.Read {
		t.Fatal("new private message must start unread")
	}
}

func TestMarkReadBy_Idempotent(t *testing.T) {
	m := NewRoomMessage(From{UserID: "u1"}, "global", "hi", nil)

	if !m.MarkReadBy("u2") {
		t.Fatal("first read receipt should be recorded")
	}
	if m.MarkReadBy("u2") {
		t.Fatal("second read receipt from same reader should be a no-op")
	}
	if len(m.ReadBy) != 1 || m.ReadBy[0] != "u2" {
		t.Fatalf("expected ReadBy [u2], got %v", m.ReadBy)
	}

	if !m.MarkReadBy("u3") {
		t.Fatal("receipt from a different reader should be recorded")
	}
	if len(m.ReadBy) != 2 {
		t.Fatalf("expected 2 readers, got %d", len(m.ReadBy))
	}
}

func TestReact_CountsIncrement(t *testing.T) {
	m := NewRoomMessage(From{UserID: "u1"}, "global", "hi", nil)

	m.React("👍")
	m.React("👍")
	m.React("🔥")

	if m.Reactions["👍"] != 2 {
		t.Errorf("expected 👍 count 2, got %d", m.Reactions["👍"])
	}
	if m.Reactions["🔥"] != 1 {
		t.Errorf("expected 🔥 count 1, got %d", m.Reactions["🔥"])
	}
}
