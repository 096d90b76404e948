package fusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubGraph struct {
	facts string
	limit int
}

func (s *stubGraph) FindContext(_, _ string, limit int) string {
	s.limit = limit
	return s.facts
}

type stubMemory struct {
	memories string
}

func (s *stubMemory) Search(_ context.Context, _, _ string) string {
	return s.memories
}

type stubHistory struct {
	history string
	called  bool
}

func (s *stubHistory) FetchConsultantHistory(_ context.Context, _ string, _ int) string {
	s.called = true
	return s.history
}

func TestFusion_Assemble(t *testing.T) {
	graphs := &stubGraph{facts: "Fact: Alice enjoys Hiking"}
	memories := &stubMemory{memories: "Memory: they talked about trails"}
	history := &stubHistory{history: "Q: q\nA: a"}
	f := New(graphs, memories, history)

	out := f.Assemble(context.Background(), "user-1", "hiking")

	assert.Equal(t, "Fact: Alice enjoys Hiking", out.GraphFacts)
	assert.Equal(t, "Memory: they talked about trails", out.Memories)
	assert.Equal(t, WingmanFactLimit, graphs.limit)

	// The wingman path never touches consultant history
	assert.Empty(t, out.History)
	assert.False(t, history.called)
}

func TestFusion_AssembleWithHistory(t *testing.T) {
	graphs := &stubGraph{facts: "Fact: Alice enjoys Hiking"}
	memories := &stubMemory{memories: "Memory: they talked about trails"}
	history := &stubHistory{history: "Q: q\nA: a"}
	f := New(graphs, memories, history)

	out := f.AssembleWithHistory(context.Background(), "user-1", "hiking")

	assert.Equal(t, "Fact: Alice enjoys Hiking", out.GraphFacts)
	assert.Equal(t, "Memory: they talked about trails", out.Memories)
	assert.Equal(t, "Q: q\nA: a", out.History)
	assert.Equal(t, ConsultantFactLimit, graphs.limit)
}

func TestFusion_SentinelsPassThrough(t *testing.T) {
	f := New(
		&stubGraph{facts: "No known graph facts."},
		&stubMemory{memories: "No relevant past memories."},
		&stubHistory{history: "No past consultant history."},
	)

	out := f.AssembleWithHistory(context.Background(), "user-1", "anything")

	// Sentinels are forwarded untouched, never treated as failures
	assert.Equal(t, "No known graph facts.", out.GraphFacts)
	assert.Equal(t, "No relevant past memories.", out.Memories)
	assert.Equal(t, "No past consultant history.", out.History)
}
