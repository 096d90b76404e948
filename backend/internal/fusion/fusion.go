package fusion

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fact-line caps per query mode. The consultant gets a wider slice of the
// graph than the latency-sensitive wingman path.
const (
	WingmanFactLimit    = 5
	ConsultantFactLimit = 10
	HistoryLimit        = 5
)

// GraphSource yields rendered graph facts for a query
type GraphSource interface {
	FindContext(userID, text string, limit int) string
}

// MemorySource yields rendered long-term memories for a query
type MemorySource interface {
	Search(ctx context.Context, userID, query string) string
}

// HistorySource yields rendered consultant Q&A history
type HistorySource interface {
	FetchConsultantHistory(ctx context.Context, userID string, limit int) string
}

// Context is the assembled bundle handed to the language-model caller.
// Sources are concatenated by the prompt builder, never merged or
// re-ranked here; each field may hold a sentinel string.
type Context struct {
	GraphFacts string
	Memories   string
	History    string
}

// Fusion composes the three context sources for a query. Pure
// composition: no caching, no cross-source ranking.
type Fusion struct {
	graphs   GraphSource
	memories MemorySource
	history  HistorySource
}

// New creates a context fusion over the given sources
func New(graphs GraphSource, memories MemorySource, history HistorySource) *Fusion {
	return &Fusion{graphs: graphs, memories: memories, history: history}
}

// Assemble gathers graph facts and memories for the wingman path. The
// sources have no dependency on each other and run concurrently; each
// degrades to its own sentinel, so assembly itself cannot fail.
func (f *Fusion) Assemble(ctx context.Context, userID, text string) *Context {
	out := &Context{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.GraphFacts = f.graphs.FindContext(userID, text, WingmanFactLimit)
		return nil
	})
	g.Go(func() error {
		out.Memories = f.memories.Search(ctx, userID, text)
		return nil
	})
	_ = g.Wait()
	return out
}

// AssembleWithHistory additionally gathers consultant history, for the
// consultant path
func (f *Fusion) AssembleWithHistory(ctx context.Context, userID, text string) *Context {
	out := &Context{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.GraphFacts = f.graphs.FindContext(userID, text, ConsultantFactLimit)
		return nil
	})
	g.Go(func() error {
		out.Memories = f.memories.Search(ctx, userID, text)
		return nil
	})
	g.Go(func() error {
		out.History = f.history.FetchConsultantHistory(ctx, userID, HistoryLimit)
		return nil
	})
	_ = g.Wait()
	return out
}
