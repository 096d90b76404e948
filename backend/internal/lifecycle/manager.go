package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bubbles-backend/backend/internal/fusion"
	"bubbles-backend/backend/internal/graph"
	"bubbles-backend/backend/internal/memory"
	"bubbles-backend/backend/internal/session"
	"bubbles-backend/backend/internal/state"
	"bubbles-backend/backend/pkg/logger"
	"bubbles-backend/backend/pkg/metrics"
)

// eventBuffer bounds each user's queue. Transcript events arrive at
// speech pace, so this is generous.
const eventBuffer = 64

// Advisor is the language-model layer: fast-tier advice and extraction,
// detailed-tier answers. Implemented by adapter.Brain.
type Advisor interface {
	WingmanAdvice(ctx context.Context, userID, transcript, graphContext, memoryContext string) string
	ExtractRelations(ctx context.Context, transcript string) []state.Relation
	ConsultantAnswer(ctx context.Context, userID, question, history, graphContext, memoryContext string) string
}

// AdviceWaiting mirrors the advisor's "no advice" sentinel
const AdviceWaiting = "WAITING"

// Manager drives per-user session state: Disconnected -> Connected ->
// transcript events -> Disconnected. Each connected user gets one worker
// goroutine consuming a buffered channel, so that user's events are
// processed strictly in arrival order while different users run in
// parallel.
type Manager struct {
	graphs   *graph.Store
	memories *memory.Index
	ledger   *session.Ledger
	registry *session.Registry
	fusion   *fusion.Fusion
	brain    Advisor
	logger   *zap.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

type worker struct {
	events chan Event
	notify func(Outbound)
	done   chan struct{}
}

// NewManager wires the session lifecycle over its collaborators. Only the
// manager mutates the live-session registry.
func NewManager(graphs *graph.Store, memories *memory.Index, ledger *session.Ledger, registry *session.Registry, fus *fusion.Fusion, brain Advisor) *Manager {
	return &Manager{
		graphs:   graphs,
		memories: memories,
		ledger:   ledger,
		registry: registry,
		fusion:   fus,
		brain:    brain,
		logger:   logger.Get(),
		workers:  make(map[string]*worker),
	}
}

// Connect opens a live session for a user. Session creation, registry
// entry and graph load all degrade gracefully; entry to the connected
// state never blocks on a single failure.
func (m *Manager) Connect(userID string, notify func(Outbound)) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	m.mu.Lock()
	if _, ok := m.workers[userID]; ok {
		m.mu.Unlock()
		return fmt.Errorf("user already connected: %s", userID)
	}
	w := &worker{
		events: make(chan Event, eventBuffer),
		notify: notify,
		done:   make(chan struct{}),
	}
	m.workers[userID] = w
	m.mu.Unlock()

	go m.run(userID, w)
	w.events <- Event{Type: EventConnect, UserID: userID}
	return nil
}

// Transcript enqueues one speech segment for ordered processing. Events
// for unknown users are dropped with a diagnostic.
func (m *Manager) Transcript(userID string, speaker int, text string, isFinal bool) {
	m.enqueue(Event{
		Type:    EventTranscript,
		UserID:  userID,
		Speaker: speaker,
		Text:    text,
		IsFinal: isFinal,
	})
}

// Disconnect delivers session teardown: the graph is persisted and
// evicted, then the user leaves the registry. This is the only point at
// which in-session graph edits are guaranteed to be written back, so
// unlike transcripts the event is never dropped: the send blocks until
// the worker frees a queue slot.
func (m *Manager) Disconnect(userID string) {
	m.mu.Lock()
	w, ok := m.workers[userID]
	m.mu.Unlock()
	if !ok {
		return
	}

	select {
	case w.events <- Event{Type: EventDisconnect, UserID: userID}:
	case <-w.done:
	}
}

// DisconnectWait enqueues teardown and blocks until the user's worker
// has processed it. After it returns the notify callback will not be
// invoked again, so the caller may release its transport.
func (m *Manager) DisconnectWait(userID string) {
	m.mu.Lock()
	w, ok := m.workers[userID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.Disconnect(userID)
	<-w.done
}

func (m *Manager) enqueue(ev Event) {
	m.mu.Lock()
	w, ok := m.workers[ev.UserID]
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("Dropping event for disconnected user",
			zap.String("user_id", ev.UserID),
			zap.String("event", ev.Type.String()),
		)
		return
	}

	select {
	case w.events <- ev:
	default:
		m.logger.Warn("Event queue full, dropping event",
			zap.String("user_id", ev.UserID),
			zap.String("event", ev.Type.String()),
		)
	}
}

// run consumes one user's event stream in order until disconnect
func (m *Manager) run(userID string, w *worker) {
	defer close(w.done)
	ctx := context.Background()

	for ev := range w.events {
		switch ev.Type {
		case EventConnect:
			m.handleConnect(ctx, ev)
		case EventTranscript:
			m.handleTranscript(ctx, w, ev)
		case EventQuery:
			if ev.Reply != nil {
				ev.Reply <- m.consult(ctx, ev.UserID, ev.Text)
			}
		case EventAdvice:
			if ev.Reply != nil {
				ev.Reply <- m.wingman(ctx, ev.UserID, ev.Text)
			}
		case EventDisconnect:
			m.handleDisconnect(ctx, ev)
			m.drain(ctx, w)
			return
		}
	}
}

// drain answers requests still queued behind a disconnect out of band
// and drops everything else
func (m *Manager) drain(ctx context.Context, w *worker) {
	for {
		select {
		case ev := <-w.events:
			if ev.Reply == nil {
				continue
			}
			switch ev.Type {
			case EventQuery:
				ev.Reply <- m.consult(ctx, ev.UserID, ev.Text)
			case EventAdvice:
				ev.Reply <- m.wingman(ctx, ev.UserID, ev.Text)
			}
		default:
			return
		}
	}
}

func (m *Manager) handleConnect(ctx context.Context, ev Event) {
	m.logger.Info("User connected", zap.String("user_id", ev.UserID))

	sessionID := m.ledger.StartSession(ctx, ev.UserID)
	m.registry.Register(ev.UserID, sessionID)
	m.graphs.Load(ctx, ev.UserID)
}

func (m *Manager) handleTranscript(ctx context.Context, w *worker, ev Event) {
	text := strings.TrimSpace(ev.Text)
	if !ev.IsFinal || text == "" {
		return
	}

	role := state.RoleForSpeaker(ev.Speaker)
	metrics.TranscriptsProcessed.WithLabelValues(role).Inc()

	sessionID, ok := m.registry.Lookup(ev.UserID)
	if !ok {
		m.logger.Debug("Transcript for unregistered user dropped",
			zap.String("user_id", ev.UserID),
		)
		return
	}

	m.ledger.LogMessage(ctx, sessionID, role, text)
	m.send(w, newTranscriptPayload(role, text))

	m.logger.Debug("Transcript processed",
		zap.String("user_id", ev.UserID),
		zap.String("role", role),
		zap.Int("speaker", ev.Speaker),
	)

	// Advice is generated only for the conversation partner's speech:
	// the wingman suggests how the user should respond.
	if role == state.RoleOther {
		fctx := m.fusion.Assemble(ctx, ev.UserID, text)
		advice := m.brain.WingmanAdvice(ctx, ev.UserID, text, fctx.GraphFacts, fctx.Memories)
		if advice != AdviceWaiting {
			m.logger.Info("Wingman suggestion",
				zap.String("user_id", ev.UserID),
				zap.String("advice", advice),
			)
			m.send(w, newAdvicePayload(advice))
			m.ledger.LogMessage(ctx, sessionID, state.RoleAgent, advice)
			metrics.AdviceEmitted.Inc()
		}
	}

	// Knowledge is extracted from both speakers.
	if relations := m.brain.ExtractRelations(ctx, text); len(relations) > 0 {
		m.graphs.ApplyUpdates(ev.UserID, relations)
	}

	// Long-term memory save runs off this worker; it must not delay the
	// next transcript event.
	m.memories.Save(ev.UserID, fmt.Sprintf("Speaker %d: %s", ev.Speaker, text))
}

func (m *Manager) handleDisconnect(ctx context.Context, ev Event) {
	m.logger.Info("User disconnected", zap.String("user_id", ev.UserID))

	m.graphs.Persist(ctx, ev.UserID)
	m.registry.Release(ev.UserID)

	m.mu.Lock()
	delete(m.workers, ev.UserID)
	m.mu.Unlock()
}

func (m *Manager) send(w *worker, payload Outbound) {
	if w.notify != nil {
		w.notify(payload)
	}
}

// Consult answers a one-shot consultant question. When the user has a
// live session the query is serialized onto their event stream so graph
// access stays ordered; otherwise it runs as a standalone synchronous
// cycle that loads, answers and persists in one pass.
func (m *Manager) Consult(ctx context.Context, userID, question string) string {
	if answer, ok := m.dispatch(ctx, EventQuery, userID, question); ok {
		return answer
	}
	return m.consult(ctx, userID, question)
}

// dispatch serializes a one-shot request onto the user's live worker so
// it cannot touch the session's graph concurrently. The send blocks
// until the worker frees a queue slot. Returns ok=false when the user
// has no live session and the caller should run the standalone cycle.
func (m *Manager) dispatch(ctx context.Context, eventType EventType, userID, text string) (string, bool) {
	m.mu.Lock()
	w, live := m.workers[userID]
	m.mu.Unlock()
	if !live {
		return "", false
	}

	reply := make(chan string, 1)
	select {
	case w.events <- Event{Type: eventType, UserID: userID, Text: text, Reply: reply}:
	case <-w.done:
		// Worker exited before accepting; the session is gone.
		return "", false
	case <-ctx.Done():
		return "", true
	}

	select {
	case answer := <-reply:
		return answer, true
	case <-w.done:
		// The exiting worker drains pending requests; use its answer if
		// one arrived, otherwise fall back to the standalone cycle.
		select {
		case answer := <-reply:
			return answer, true
		default:
			return "", false
		}
	case <-ctx.Done():
		return "", true
	}
}

func (m *Manager) consult(ctx context.Context, userID, question string) string {
	m.graphs.Load(ctx, userID)
	fctx := m.fusion.AssembleWithHistory(ctx, userID, question)
	answer := m.brain.ConsultantAnswer(ctx, userID, question, fctx.History, fctx.GraphFacts, fctx.Memories)
	m.ledger.LogConsultantExchange(ctx, userID, question, answer)
	metrics.ConsultantQueries.Inc()

	// A live session keeps its graph resident until disconnect; only the
	// standalone path persists and evicts here.
	if _, live := m.registry.Lookup(userID); !live {
		m.graphs.Persist(ctx, userID)
	}
	return answer
}

// Wingman answers a one-shot advice request over a raw partner
// transcript. Serialized onto the user's event stream while a live
// session holds their graph; standalone otherwise.
func (m *Manager) Wingman(ctx context.Context, userID, transcript string) string {
	if advice, ok := m.dispatch(ctx, EventAdvice, userID, transcript); ok {
		return advice
	}
	return m.wingman(ctx, userID, transcript)
}

// wingman runs one advice cycle: load, fuse, advise, learn, persist
// unless a live session keeps the graph resident
func (m *Manager) wingman(ctx context.Context, userID, transcript string) string {
	m.graphs.Load(ctx, userID)
	fctx := m.fusion.Assemble(ctx, userID, transcript)
	advice := m.brain.WingmanAdvice(ctx, userID, transcript, fctx.GraphFacts, fctx.Memories)

	if relations := m.brain.ExtractRelations(ctx, transcript); len(relations) > 0 {
		m.graphs.ApplyUpdates(userID, relations)
	}
	if advice != AdviceWaiting {
		metrics.AdviceEmitted.Inc()
	}

	if _, live := m.registry.Lookup(userID); !live {
		m.graphs.Persist(ctx, userID)
	}
	m.memories.Save(userID, "Other: "+transcript)
	return advice
}

// Shutdown disconnects every live user and waits for their workers, then
// drains pending memory saves
func (m *Manager) Shutdown() {
	m.mu.Lock()
	users := make([]string, 0, len(m.workers))
	dones := make([]chan struct{}, 0, len(m.workers))
	for userID, w := range m.workers {
		users = append(users, userID)
		dones = append(dones, w.done)
	}
	m.mu.Unlock()

	for _, userID := range users {
		m.Disconnect(userID)
	}
	for _, done := range dones {
		<-done
	}
	m.memories.Drain()
}
