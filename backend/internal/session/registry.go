package session

import (
	"sync"

	"bubbles-backend/backend/pkg/metrics"
)

// Registry maps each connected user to their currently active session.
// It is the sole shared mutable state tying a transcript event to a
// session, with exactly one entry per connected user. Only the session
// lifecycle may call Register and Release; other components read it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]string // user_id -> session_id
}

// NewRegistry creates an empty live-session registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]string)}
}

// Register records sessionID as the live session for userID, replacing
// any previous entry for that user
func (r *Registry) Register(userID, sessionID string) {
	r.mu.Lock()
	r.sessions[userID] = sessionID
	size := len(r.sessions)
	r.mu.Unlock()
	metrics.LiveSessions.Set(float64(size))
}

// Release removes the live-session entry for userID
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	delete(r.sessions, userID)
	size := len(r.sessions)
	r.mu.Unlock()
	metrics.LiveSessions.Set(float64(size))
}

// Lookup returns the live session for a user, if any
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sessions[userID]
	return id, ok
}

// IsLive reports whether sessionID is the registered live session of any
// user. The ledger cross-checks this before appending log entries so a
// lingering session cannot write after a newer one has started.
func (r *Registry) IsLive(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.sessions {
		if id == sessionID {
			return true
		}
	}
	return false
}

// Count returns the number of connected users
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
