package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"bubbles-backend/backend/internal/state"
	apperrors "bubbles-backend/backend/pkg/errors"
	"bubbles-backend/backend/pkg/logger"
	"bubbles-backend/backend/pkg/metrics"
)

// Supabase is the durable backing store for graphs, memories and sessions.
// A nil client (missing credentials or failed construction) is a valid
// degraded state: every method returns ErrStorageUnavailable and callers
// fall back to local behavior.
type Supabase struct {
	client *supabase.Client
	logger *zap.Logger
}

// NewSupabase creates the store. It never fails: a broken or absent
// configuration yields a store that reports unavailability per call.
func NewSupabase(url, key string) *Supabase {
	log := logger.Get()
	if url == "" || key == "" {
		log.Warn("Supabase credentials not set, running without durable storage")
		return &Supabase{logger: log}
	}

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		log.Warn("Failed to create Supabase client, running without durable storage", zap.Error(err))
		return &Supabase{logger: log}
	}

	log.Info("Supabase client initialized")
	return &Supabase{client: client, logger: log}
}

// Available reports whether a durable backend is reachable in principle
func (s *Supabase) Available() bool {
	return s.client != nil
}

// FetchGraph returns the persisted node-link document for a user, or
// (nil, nil) when the user has no stored graph yet.
func (s *Supabase) FetchGraph(ctx context.Context, userID string) (json.RawMessage, error) {
	if s.client == nil {
		return nil, apperrors.ErrStorageUnavailable
	}

	data, _, err := s.client.From("knowledge_graphs").
		Select("graph_data", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		metrics.StorageFailures.WithLabelValues("knowledge_graphs").Inc()
		return nil, apperrors.NewStorageQueryFailed("knowledge_graphs", err)
	}

	var rows []struct {
		GraphData json.RawMessage `json:"graph_data"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperrors.NewStorageQueryFailed("knowledge_graphs", err)
	}
	if len(rows) == 0 || len(rows[0].GraphData) == 0 {
		return nil, nil
	}
	return rows[0].GraphData, nil
}

// UpsertGraph writes the node-link document for a user, creating or
// replacing the row keyed by user_id.
func (s *Supabase) UpsertGraph(ctx context.Context, userID string, graphData json.RawMessage) error {
	if s.client == nil {
		return apperrors.ErrStorageUnavailable
	}

	row := map[string]interface{}{
		"user_id":    userID,
		"graph_data": graphData,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	_, _, err := s.client.From("knowledge_graphs").
		Upsert(row, "user_id", "", "").
		Execute()
	if err != nil {
		metrics.StorageFailures.WithLabelValues("knowledge_graphs").Inc()
		return apperrors.NewStorageQueryFailed("knowledge_graphs", err)
	}
	return nil
}

// InsertMemory appends one long-term memory record
func (s *Supabase) InsertMemory(ctx context.Context, userID, content string, embedding []float32) error {
	if s.client == nil {
		return apperrors.ErrStorageUnavailable
	}

	row := map[string]interface{}{
		"user_id":   userID,
		"content":   content,
		"embedding": embedding,
	}
	_, _, err := s.client.From("memory").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		metrics.StorageFailures.WithLabelValues("memory").Inc()
		return apperrors.NewStorageQueryFailed("memory", err)
	}
	return nil
}

// MatchMemory runs the similarity-search RPC scoped to one user
func (s *Supabase) MatchMemory(ctx context.Context, userID string, embedding []float32, threshold float64, count int) ([]state.MemoryMatch, error) {
	if s.client == nil {
		return nil, apperrors.ErrStorageUnavailable
	}

	params := map[string]interface{}{
		"query_embedding": embedding,
		"match_threshold": threshold,
		"match_count":     count,
		"p_user_id":       userID,
	}
	raw := s.client.Rpc("match_memory", "", params)
	if raw == "" {
		metrics.StorageFailures.WithLabelValues("memory").Inc()
		return nil, apperrors.NewStorageQueryFailed("match_memory", nil)
	}

	var matches []state.MemoryMatch
	if err := json.Unmarshal([]byte(raw), &matches); err != nil {
		return nil, apperrors.NewStorageQueryFailed("match_memory", err)
	}
	return matches, nil
}

// InsertSession creates a session row and returns its identifier
func (s *Supabase) InsertSession(ctx context.Context, userID, title string) (string, error) {
	if s.client == nil {
		return "", apperrors.ErrStorageUnavailable
	}

	row := map[string]interface{}{
		"user_id": userID,
		"title":   title,
	}
	var rows []struct {
		ID string `json:"id"`
	}
	_, err := s.client.From("sessions").
		Insert(row, false, "", "representation", "").
		ExecuteTo(&rows)
	if err != nil {
		metrics.StorageFailures.WithLabelValues("sessions").Inc()
		return "", apperrors.NewStorageQueryFailed("sessions", err)
	}
	if len(rows) == 0 || rows[0].ID == "" {
		return "", apperrors.NewStorageQueryFailed("sessions", nil)
	}
	return rows[0].ID, nil
}

// InsertSessionLog appends one transcript or agent message
func (s *Supabase) InsertSessionLog(ctx context.Context, entry state.SessionLogEntry) error {
	if s.client == nil {
		return apperrors.ErrStorageUnavailable
	}

	row := map[string]interface{}{
		"session_id": entry.SessionID,
		"role":       entry.Role,
		"content":    entry.Content,
	}
	_, _, err := s.client.From("session_logs").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		metrics.StorageFailures.WithLabelValues("session_logs").Inc()
		return apperrors.NewStorageQueryFailed("session_logs", err)
	}
	return nil
}

// InsertConsultantExchange appends one Q&A pair
func (s *Supabase) InsertConsultantExchange(ctx context.Context, ex state.ConsultantExchange) error {
	if s.client == nil {
		return apperrors.ErrStorageUnavailable
	}

	row := map[string]interface{}{
		"user_id":  ex.UserID,
		"question": ex.Question,
		"answer":   ex.Answer,
	}
	_, _, err := s.client.From("consultant_logs").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		metrics.StorageFailures.WithLabelValues("consultant_logs").Inc()
		return apperrors.NewStorageQueryFailed("consultant_logs", err)
	}
	return nil
}

// FetchConsultantHistory returns the most recent exchanges, newest first
func (s *Supabase) FetchConsultantHistory(ctx context.Context, userID string, limit int) ([]state.ConsultantExchange, error) {
	if s.client == nil {
		return nil, apperrors.ErrStorageUnavailable
	}

	data, _, err := s.client.From("consultant_logs").
		Select("question, answer", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		metrics.StorageFailures.WithLabelValues("consultant_logs").Inc()
		return nil, apperrors.NewStorageQueryFailed("consultant_logs", err)
	}

	var exchanges []state.ConsultantExchange
	if err := json.Unmarshal(data, &exchanges); err != nil {
		return nil, apperrors.NewStorageQueryFailed("consultant_logs", err)
	}
	return exchanges, nil
}
