package message

import "sync"

// DefaultLogBound is the number of messages retained per room or conversation.
const DefaultLogBound = 500

// Log is a bounded, ordered, goroutine-safe message log. Appends beyond the
// bound evict the oldest entry first; the relative order of the remainder is
// preserved. Lookups are linear scans, which is fine at the default bound.
type Log struct {
	mu       sync.RWMutex
	bound    int
	messages []*Message
}

// NewLog creates an empty log with the given bound. A bound <= 0 falls back
// to DefaultLogBound.
func NewLog(bound int) *Log {
	if bound <= 0 {
		bound = DefaultLogBound
	}
	return &Log{bound: bound}
}

// Append adds a message at the tail. If the log is full the oldest message
// is evicted.
func (l *Log) Append(msg *Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.messages) >= l.bound {
		// Shift in place so the backing array does not grow unboundedly.
		copy(l.messages, l.messages[1:])
		l.messages[len(l.messages)-1] = msg
		return
	}
	l.messages = append(l.messages, msg)
}

// Find returns the message with the given id, or nil if it is not in the log
// (never appended, or already evicted).
func (l *Log) Find(id string) *Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, m := range l.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// All returns a snapshot of the log in append order. The slice is a copy;
// the messages themselves are shared.
func (l *Log) All() []*Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Tail returns up to n most recent messages in append order.
func (l *Log) Tail(n int) []*Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]*Message, n)
	copy(out, l.messages[len(l.messages)-n:])
	return out
}

// Len returns the number of messages currently retained.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
