package graph

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bubbles-backend/backend/internal/state"
	"bubbles-backend/backend/pkg/logger"
	"bubbles-backend/backend/pkg/metrics"
)

// NoFactsSentinel is returned when no graph facts match a query. It is
// valid, contentless context, not an error.
const NoFactsSentinel = "No known graph facts."

// Backend is the durable storage contract for per-user graphs
type Backend interface {
	FetchGraph(ctx context.Context, userID string) (json.RawMessage, error)
	UpsertGraph(ctx context.Context, userID string, graphData json.RawMessage) error
}

// Store manages the in-memory knowledge graphs of active users. A graph
// is either absent or loaded in full; Persist writes it back and evicts
// it so resident memory stays bounded to connected users.
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu     sync.Mutex
	active map[string]*KnowledgeGraph
	locks  map[string]*sync.Mutex
}

// NewStore creates a graph store over the given backend
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		logger:  logger.Get(),
		active:  make(map[string]*KnowledgeGraph),
		locks:   make(map[string]*sync.Mutex),
	}
}

// userLock returns the per-user mutex serializing every access to one
// user's graph: queries, updates and load/persist cycles. The graph's
// own maps are never touched outside this lock.
func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Load fetches the persisted graph for a user into memory. Calling it
// while a graph is already loaded is a no-op: the in-memory copy is
// authoritative and must not be overwritten by a stale durable copy.
// Storage failure degrades to an empty graph.
func (s *Store) Load(ctx context.Context, userID string) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	_, loaded := s.active[userID]
	s.mu.Unlock()
	if loaded {
		return
	}

	g := New()
	raw, err := s.backend.FetchGraph(ctx, userID)
	switch {
	case err != nil:
		s.logger.Warn("Failed to load graph, starting empty",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	case raw != nil:
		if err := g.UnmarshalNodeLink(raw); err != nil {
			s.logger.Warn("Stored graph is unreadable, starting empty",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			g = New()
		} else {
			s.logger.Info("Graph loaded",
				zap.String("user_id", userID),
				zap.Int("nodes", g.NodeCount()),
				zap.Int("edges", g.EdgeCount()),
			)
		}
	default:
		s.logger.Info("New empty graph created", zap.String("user_id", userID))
	}

	s.mu.Lock()
	s.active[userID] = g
	s.mu.Unlock()
}

// Loaded reports whether a graph is currently in memory for the user
func (s *Store) Loaded(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[userID]
	return ok
}

// FindContext matches text against node labels case-insensitively in both
// directions and renders every fact incident to a matched node, capped at
// limit lines. Returns the no-facts sentinel when nothing matches or no
// graph is loaded.
func (s *Store) FindContext(userID, text string, limit int) string {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	g, ok := s.active[userID]
	s.mu.Unlock()
	if !ok {
		return NoFactsSentinel
	}

	facts := g.Facts(text)
	if len(facts) == 0 {
		return NoFactsSentinel
	}
	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	return strings.Join(facts, "\n")
}

// ApplyUpdates adds one edge per well-formed relation to the in-memory
// graph. Malformed relations are skipped silently. Returns the number of
// edges actually added; a no-op (with a diagnostic) when no graph is
// loaded for the user.
func (s *Store) ApplyUpdates(userID string, relations []state.Relation) int {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	g, ok := s.active[userID]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("No active graph to update", zap.String("user_id", userID))
		return 0
	}

	added := 0
	for _, rel := range relations {
		if !rel.WellFormed() {
			continue
		}
		if g.AddEdge(rel.Source, rel.Target, rel.Relation) {
			added++
		}
	}
	if added > 0 {
		metrics.RelationsApplied.Add(float64(added))
		s.logger.Debug("Graph updated",
			zap.String("user_id", userID),
			zap.Int("edges_added", added),
		)
	}
	return added
}

// Persist serializes the in-memory graph to durable storage with upsert
// semantics, then evicts it from memory. No-op when nothing is loaded.
// The graph is evicted even when the write fails: in-session edits are
// lost rather than kept resident for a disconnected user.
func (s *Store) Persist(ctx context.Context, userID string) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	g, ok := s.active[userID]
	s.mu.Unlock()
	if !ok {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.active, userID)
		s.mu.Unlock()
	}()

	raw, err := g.MarshalNodeLink()
	if err != nil {
		s.logger.Warn("Failed to serialize graph", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.backend.UpsertGraph(ctx, userID, raw); err != nil {
		s.logger.Warn("Failed to save graph, in-memory edits are lost",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Graph saved",
		zap.String("user_id", userID),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)
}
