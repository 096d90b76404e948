package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bubbles-backend/backend/internal/state"
	"bubbles-backend/backend/pkg/logger"
)

// NoHistorySentinel is returned when a user has no consultant history
const NoHistorySentinel = "No past consultant history."

// DefaultSessionTitle is the title for newly started live sessions
const DefaultSessionTitle = "Live Wingman Session"

// DefaultHistoryLimit is how many Q&A pairs consultant context carries
const DefaultHistoryLimit = 5

// Backend is the durable storage contract for sessions and logs
type Backend interface {
	InsertSession(ctx context.Context, userID, title string) (string, error)
	InsertSessionLog(ctx context.Context, entry state.SessionLogEntry) error
	InsertConsultantExchange(ctx context.Context, ex state.ConsultantExchange) error
	FetchConsultantHistory(ctx context.Context, userID string, limit int) ([]state.ConsultantExchange, error)
}

// Ledger is the durable log of live sessions, their transcripts and the
// consultant Q&A history. Every write is best-effort: failures degrade,
// never propagate.
type Ledger struct {
	backend  Backend
	registry *Registry
	logger   *zap.Logger
}

// NewLedger creates a session ledger. The registry guards log appends
// against stale session identifiers.
func NewLedger(backend Backend, registry *Registry) *Ledger {
	return &Ledger{
		backend:  backend,
		registry: registry,
		logger:   logger.Get(),
	}
}

// StartSession creates a session row and returns its identifier. On
// storage failure it falls back to a locally generated identifier so the
// caller can proceed without durable logging.
func (l *Ledger) StartSession(ctx context.Context, userID string) string {
	id, err := l.backend.InsertSession(ctx, userID, DefaultSessionTitle)
	if err != nil {
		fallback := uuid.NewString()
		l.logger.Warn("Failed to start session, using local identifier",
			zap.String("user_id", userID),
			zap.String("session_id", fallback),
			zap.Error(err),
		)
		return fallback
	}
	l.logger.Info("Session started",
		zap.String("user_id", userID),
		zap.String("session_id", id),
	)
	return id
}

// LogMessage appends a log entry, but only while sessionID is the
// registered live session for some user. Stale writes are dropped.
func (l *Ledger) LogMessage(ctx context.Context, sessionID, role, content string) {
	if !l.registry.IsLive(sessionID) {
		l.logger.Debug("Dropping log for stale session",
			zap.String("session_id", sessionID),
			zap.String("role", role),
		)
		return
	}

	entry := state.SessionLogEntry{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		l.logger.Warn("Dropping invalid log entry", zap.Error(err))
		return
	}
	if err := l.backend.InsertSessionLog(ctx, entry); err != nil {
		l.logger.Warn("Failed to log message",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// FetchConsultantHistory renders the most recent Q&A pairs oldest-first
// as alternating "Q:"/"A:" lines. Degrades to the sentinel.
func (l *Ledger) FetchConsultantHistory(ctx context.Context, userID string, limit int) string {
	exchanges, err := l.backend.FetchConsultantHistory(ctx, userID, limit)
	if err != nil {
		l.logger.Warn("Failed to fetch consultant history",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return NoHistorySentinel
	}
	if len(exchanges) == 0 {
		return NoHistorySentinel
	}

	// Backend returns newest first; render oldest first.
	var lines []string
	for i := len(exchanges) - 1; i >= 0; i-- {
		lines = append(lines, "Q: "+exchanges[i].Question)
		lines = append(lines, "A: "+exchanges[i].Answer)
	}
	return strings.Join(lines, "\n")
}

// LogConsultantExchange appends one Q&A pair, best-effort
func (l *Ledger) LogConsultantExchange(ctx context.Context, userID, question, answer string) {
	ex := state.ConsultantExchange{
		UserID:    userID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.backend.InsertConsultantExchange(ctx, ex); err != nil {
		l.logger.Warn("Failed to log consultant exchange",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	l.logger.Debug("Logged consultant exchange", zap.String("user_id", userID))
}
