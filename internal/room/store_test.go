package room

import (
	"errors"
	"fmt"
	"testing"

	"github.com/parley/chat-server/internal/message"
)

func roomMsg(room, text string) *message.Message {
	return message.NewRoomMessage(message.From{UserID: "u1", DisplayName: "Alice"}, room, text, nil)
}

func TestEnsure_CreatesLazily(t *testing.T) {
	s := NewStore(0)

	if s.Count() != 0 {
		t.Fatalf("expected empty store, got %d rooms", s.Count())
	}

	first, err := s.Ensure("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Ensure("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("Ensure should return the same log for the same room")
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 room, got %d", s.Count())
	}
}

func TestEnsure_RejectsBlankName(t *testing.T) {
	s := NewStore(0)

	for _, name := range []string{"", "   ", "\t"} {
		if _, err := s.Ensure(name); !errors.Is(err, ErrInvalidRoom) {
			t.Errorf("Ensure(%q): expected ErrInvalidRoom, got %v", name, err)
		}
	}
	if s.Count() != 0 {
		t.Fatalf("blank names must not create rooms, got %d", s.Count())
	}
}

func TestAppend_CreatesRoom(t *testing.T) {
	s := NewStore(0)

	if err := s.Append("dev", roomMsg("dev", "hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs := s.Messages("dev")
	if len(msgs) != 1 || msgs[0].Text != "hi" {
		t.Fatalf("unexpected messages: %v", msgs)
	}
}

func TestMessages_UnknownRoomIsEmpty(t *testing.T) {
	s := NewStore(0)

	msgs := s.Messages("nope")
	if msgs == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(msgs) != 0 {
		t.Fatalf("expected 0 messages, got %d", len(msgs))
	}
}

func TestAppend_EvictsAtBound(t *testing.T) {
	s := NewStore(3)

	for i := 1; i <= 5; i++ {
		if err := s.Append("dev", roomMsg("dev", fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	msgs := s.Messages("dev")
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "msg-3" || msgs[2].Text != "msg-5" {
		t.Errorf("unexpected window: first=%q last=%q", msgs[0].Text, msgs[2].Text)
	}
}

func TestFind(t *testing.T) {
	s := NewStore(0)

	m := roomMsg("dev", "needle")
	_ = s.Append("dev", m)

	if got := s.Find("dev", m.ID); got != m {
		t.Fatalf("expected message %s, got %v", m.ID, got)
	}
	if got := s.Find("dev", "unknown"); got != nil {
		t.Fatalf("expected nil for unknown id, got %v", got)
	}
	if got := s.Find("other", m.ID); got != nil {
		t.Fatalf("expected nil for unknown room, got %v", got)
	}
}

func TestNames_Sorted(t *testing.T) {
	s := NewStore(0)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.Ensure(name); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	names := s.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}
