// Package room stores the per-room bounded message logs. Rooms are created
// lazily on first join or first message and persist for the life of the
// process, even when empty.
package room

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/parley/chat-server/internal/message"
)

// ErrInvalidRoom is returned for operations addressing a blank room name.
var ErrInvalidRoom = errors.New("room: invalid room name")

// Store maps room names to their message logs. Each log carries its own lock,
// so appends to different rooms never contend.
type Store struct {
	mu    sync.RWMutex
	bound int
	rooms map[string]*message.Log
}

// NewStore creates a Store whose rooms retain up to bound messages each.
// A bound <= 0 falls back to message.DefaultLogBound.
func NewStore(bound int) *Store {
	return &Store{
		bound: bound,
		rooms: make(map[string]*message.Log),
	}
}

// Ensure returns the room's log, creating the room if it does not exist yet.
func (s *Store) Ensure(name string) (*message.Log, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidRoom
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.rooms[name]
	if !ok {
		l = message.NewLog(s.bound)
		s.rooms[name] = l
	}
	return l, nil
}

// Append adds a message to the room's log, creating the room lazily. Eviction
// beyond the bound is handled by the log.
func (s *Store) Append(name string, msg *message.Message) error {
	l, err := s.Ensure(name)
	if err != nil {
		return err
	}
	l.Append(msg)
	return nil
}

// Find returns the message with the given id from the room's log, or nil if
// the room or the message does not exist.
func (s *Store) Find(name, messageID string) *message.Message {
	s.mu.RLock()
	l := s.rooms[name]
	s.mu.RUnlock()

	if l == nil {
		return nil
	}
	return l.Find(messageID)
}

// Messages returns a snapshot of the room's log in append order. A missing
// room yields an empty slice.
func (s *Store) Messages(name string) []*message.Message {
	s.mu.RLock()
	l := s.rooms[name]
	s.mu.RUnlock()

	if l == nil {
		return []*message.Message{}
	}
	return l.All()
}

// Names returns the sorted list of room names.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Count returns the number of rooms.
func (s *Store) Count() int {
	s.mu.RLock()
	n := len(s.rooms)
	s.mu.RUnlock()
	return n
}
