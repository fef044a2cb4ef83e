// Package conversation stores the per-pair private message logs, keyed by the
// canonical conversation key so that either participant addresses the same
// log.
package conversation

import (
	"sync"

	"github.com/parley/chat-server/internal/message"
)

// Store maps canonical pair keys to bounded message logs.
type Store struct {
	mu     sync.RWMutex
	bound  int
	convos map[message.ConversationKey]*message.Log
}

// NewStore creates a Store whose conversations retain up to bound messages
// each. A bound <= 0 falls back to message.DefaultLogBound.
func NewStore(bound int) *Store {
	return &Store{
		bound:  bound,
		convos: make(map[message.ConversationKey]*message.Log),
	}
}

// Ensure returns the log for the pair, creating it if needed. The pair is
// normalized through the canonical key, so (a,b) and (b,a) share a log.
func (s *Store) Ensure(a, b string) *message.Log {
	key := message.NewConversationKey(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.convos[key]
	if !ok {
		l = message.NewLog(s.bound)
		s.convos[key] = l
	}
	return l
}

// Append adds a message to the pair's log, creating it lazily.
func (s *Store) Append(a, b string, msg *message.Message) {
	s.Ensure(a, b).Append(msg)
}

// Find returns the message with the given id from the pair's log, or nil.
func (s *Store) Find(a, b, messageID string) *message.Message {
	l := s.lookup(a, b)
	if l == nil {
		return nil
	}
	return l.Find(messageID)
}

// Messages returns a snapshot of the pair's log in append order. A missing
// conversation yields an empty slice.
func (s *Store) Messages(a, b string) []*message.Message {
	l := s.lookup(a, b)
	if l == nil {
		return []*message.Message{}
	}
	return l.All()
}

func (s *Store) lookup(a, b string) *message.Log {
	key := message.NewConversationKey(a, b)
	s.mu.RLock()
	l := s.convos[key]
	s.mu.RUnlock()
	return l
}
