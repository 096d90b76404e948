package state

import (
	"fmt"
	"strings"
	"time"
)

// Speaker roles attached to session log entries. Diarization speaker 0 is
// the primary user; every other speaker index maps to RoleOther.
const (
	RoleUser  = "user"
	RoleOther = "other"
	RoleAgent = "agent"
)

// RoleForSpeaker maps a diarization speaker index to a log role
func RoleForSpeaker(speaker int) string {
	if speaker == 0 {
		return RoleUser
	}
	return RoleOther
}

// Relation is a single extracted (source, relation, target) triple destined
// for a user's knowledge graph
type Relation struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// WellFormed reports whether the relation carries both endpoints.
// Malformed relations are skipped, not rejected.
func (r Relation) WellFormed() bool {
	return strings.TrimSpace(r.Source) != "" && strings.TrimSpace(r.Target) != ""
}

// MemoryMatch is a single long-term memory hit from similarity search
type MemoryMatch struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Session is one live wingman session row
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	StartedAt time.Time `json:"started_at"`
}

// SessionLogEntry is one appended transcript or agent message
type SessionLogEntry struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the entry before it is appended
func (e SessionLogEntry) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	switch e.Role {
	case RoleUser, RoleOther, RoleAgent:
	default:
		return fmt.Errorf("unknown role: %s", e.Role)
	}
	return nil
}

// ConsultantExchange is one on-demand Q&A pair, independent of any live session
type ConsultantExchange struct {
	UserID    string    `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
