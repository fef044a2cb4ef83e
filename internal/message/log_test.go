package message

import (
	"fmt"
	"sync"
	"testing"
)

func newTestMessage(text string) *Message {
	return NewRoomMessage(From{UserID: "u1", DisplayName: "Alice"}, "global", text, nil)
}

func TestLog_AppendAndAll(t *testing.T) {
	l := NewLog(0)

	l.Append(newTestMessage("one"))
	l.Append(newTestMessage("two"))
	l.Append(newTestMessage("three"))

	msgs := l.All()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "one" || msgs[1].Text != "two" || msgs[2].Text != "three" {
		t.Errorf("messages out of order: %q %q %q", msgs[0].Text, msgs[1].Text, msgs[2].Text)
	}
}

func TestLog_EvictsOldestAtBound(t *testing.T) {
	l := NewLog(5)

	for i := 1; i <= 7; i++ {
		l.Append(newTestMessage(fmt.Sprintf("msg-%d", i)))
	}

	msgs := l.All()
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	// Should contain messages 3 through 7 in order.
	for i, m := range msgs {
		expected := fmt.Sprintf("msg-%d", i+3)
		if m.Text != expected {
			t.Errorf("index %d: expected %q, got %q", i, expected, m.Text)
		}
	}
}

func TestLog_DefaultBound(t *testing.T) {
	l := NewLog(0)

	for i := 0; i <= DefaultLogBound; i++ {
		l.Append(newTestMessage(fmt.Sprintf("msg-%d", i)))
	}

	if l.Len() != DefaultLogBound {
		t.Fatalf("expected %d messages, got %d", DefaultLogBound, l.Len())
	}
	// The first message must have been evicted.
	if got := l.All()[0].Text; got != "msg-1" {
		t.Errorf("expected oldest message %q, got %q", "msg-1", got)
	}
}

func TestLog_Find(t *testing.T) {
	l := NewLog(0)

	m := newTestMessage("needle")
	l.Append(newTestMessage("hay"))
	l.Append(m)
	l.Append(newTestMessage("hay"))

	if got := l.Find(m.ID); got != m {
		t.Fatalf("expected to find message %s, got %v", m.ID, got)
	}
	if got := l.Find("zzzzzzzz"); got != nil {
		t.Fatalf("expected nil for unknown id, got %v", got)
	}
}

func TestLog_Tail(t *testing.T) {
	l := NewLog(0)

	for i := 1; i <= 5; i++ {
		l.Append(newTestMessage(fmt.Sprintf("msg-%d", i)))
	}

	tail := l.Tail(2)
	if len(tail) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(tail))
	}
	if tail[0].Text != "msg-4" || tail[1].Text != "msg-5" {
		t.Errorf("unexpected tail: %q %q", tail[0].Text, tail[1].Text)
	}

	if got := l.Tail(10); len(got) != 5 {
		t.Fatalf("oversized tail: expected 5 messages, got %d", len(got))
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := NewLog(50)
	goroutines := 20
	perGoroutine := 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for m := 0; m < perGoroutine; m++ {
				l.Append(newTestMessage(fmt.Sprintf("g%d-m%d", id, m)))
				_ = l.All()
			}
		}(g)
	}
	wg.Wait()

	if l.Len() != 50 {
		t.Fatalf("expected 50 messages after concurrent writes, got %d", l.Len())
	}
}
