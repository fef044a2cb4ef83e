// Package typing tracks which users are currently composing a message, per
// room. Entries are transient: they are removed on an explicit stop signal,
// on disconnect, or (when a TTL is configured) after expiry.
package typing

import (
	"sort"
	"sync"
	"time"
)

// entry records one typing user and when the signal was last refreshed.
type entry struct {
	displayName string
	since       time.Time
}

// Tracker maintains the per-room typing sets. A zero TTL means entries never
// expire on their own, matching the historical behavior; a positive TTL drops
// entries from snapshots once stale, guarding against lost stop signals.
type Tracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	rooms map[string]map[string]entry // room -> connID -> entry
}

// NewTracker creates a Tracker with the given entry TTL (0 disables expiry).
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:   ttl,
		rooms: make(map[string]map[string]entry),
	}
}

// SetTyping adds or removes the connection's typing entry for the room and
// returns the resulting snapshot of typing display names.
func (t *Tracker) SetTyping(room, connID, displayName string, isTyping bool) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if isTyping {
		set, ok := t.rooms[room]
		if !ok {
			set = make(map[string]entry)
			t.rooms[room] = set
		}
		set[connID] = entry{displayName: displayName, since: time.Now()}
	} else if set, ok := t.rooms[room]; ok {
		delete(set, connID)
	}

	return t.snapshotLocked(room)
}

// Snapshot returns the current typing display names for the room.
func (t *Tracker) Snapshot(room string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(room)
}

// ClearConnection removes the connection from every room's typing set and
// returns the names of the rooms it was removed from, so the caller can
// broadcast updated lists.
func (t *Tracker) ClearConnection(connID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var affected []string
	for room, set := range t.rooms {
		if _, ok := set[connID]; ok {
			delete(set, connID)
			affected = append(affected, room)
		}
	}
	sort.Strings(affected)
	return affected
}

// snapshotLocked returns the room's live display names sorted for
// deterministic broadcasts. Expired entries are pruned as a side effect.
// Callers must hold t.mu.
func (t *Tracker) snapshotLocked(room string) []string {
	set := t.rooms[room]
	if len(set) == 0 {
		return []string{}
	}

	now := time.Now()
	names := make([]string, 0, len(set))
	for connID, e := range set {
		if t.ttl > 0 && now.Sub(e.since) > t.ttl {
			delete(set, connID)
			continue
		}
		names = append(names, e.displayName)
	}
	sort.Strings(names)
	return names
}
