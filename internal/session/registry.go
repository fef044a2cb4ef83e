// Package session tracks connected users: the binding between a connection
// id, a self-declared display name, and the user's current room. The registry
// is the authoritative in-memory owner of sessions; other components refer to
// users by connection id only.
package session

import (
	"log"
	"sort"
	"sync"
)

// GlobalRoom is the well-known room every user starts in.
const GlobalRoom = "global"

// Session is the live binding between a connection and a user.
type Session struct {
	ID          string // connection id
	DisplayName string
	CurrentRoom string
}

// Registry is a goroutine-safe map of connection id to session. Constructed
// once at process start and handed to the connection-handling layer; tests
// build isolated instances.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry ready for use.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register creates or replaces the session for a connection, placing the
// user in the global room. Re-joining with a new display name replaces the
// previous session for the same connection.
func (r *Registry) Register(connID, displayName string) *Session {
	s := &Session{
		ID:          connID,
		DisplayName: displayName,
		CurrentRoom: GlobalRoom,
	}

	r.mu.Lock()
	r.sessions[connID] = s
	r.mu.Unlock()
	return s
}

// Lookup returns the session for a connection, or nil if none is registered.
func (r *Registry) Lookup(connID string) *Session {
	r.mu.RLock()
	s := r.sessions[connID]
	r.mu.RUnlock()
	return s
}

// SetRoom updates a session's current room. Operations on an unregistered
// connection are logged and dropped rather than surfaced: presence
// broadcasts tolerate transient absence.
func (r *Registry) SetRoom(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		log.Printf("session: SetRoom for unknown connection %s", connID)
		return
	}
	s.CurrentRoom = room
}

// Remove deregisters a connection and returns the removed session so the
// caller can drive the cleanup cascade, or nil if none was registered.
func (r *Registry) Remove(connID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	delete(r.sessions, connID)
	return s
}

// All returns a snapshot of every session, ordered by connection id so
// presence broadcasts are deterministic.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InRoom returns the connection ids of every session currently in the room.
func (r *Registry) InRoom(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, s := range r.sessions {
		if s.CurrentRoom == room {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.sessions)
	r.mu.RUnlock()
	return n
}
