package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeGraph_AddEdge_Idempotent(t *testing.T) {
	g := New()

	assert.True(t, g.AddEdge("Alice", "Hiking", "enjoys"))
	assert.False(t, g.AddEdge("Alice", "Hiking", "enjoys"))
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())

	// Same endpoints, different relation: a distinct edge
	assert.True(t, g.AddEdge("Alice", "Hiking", "hates"))
	assert.Equal(t, 2, g.EdgeCount())
}

func TestKnowledgeGraph_AddEdge_CaseInsensitiveNodes(t *testing.T) {
	g := New()

	g.AddEdge("Alice", "Bob", "knows")
	g.AddEdge("alice", "BOB", "knows")

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())

	// First-seen label is preserved in rendered facts
	facts := g.Facts("alice")
	require.Len(t, facts, 1)
	assert.Equal(t, "Fact: Alice knows Bob", facts[0])
}

func TestKnowledgeGraph_AddEdge_Malformed(t *testing.T) {
	g := New()

	assert.False(t, g.AddEdge("", "Bob", "knows"))
	assert.False(t, g.AddEdge("Alice", "", "knows"))
	assert.False(t, g.AddEdge("  ", "Bob", "knows"))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestKnowledgeGraph_AddEdge_DefaultRelation(t *testing.T) {
	g := New()

	g.AddEdge("Alice", "Bob", "")
	facts := g.Facts("Alice")
	require.Len(t, facts, 1)
	assert.Equal(t, "Fact: Alice related Bob", facts[0])
}

func TestKnowledgeGraph_Facts(t *testing.T) {
	g := New()
	g.AddEdge("Alice", "Bob", "knows")
	g.AddEdge("Bob", "Chess", "plays")

	// Node mentioned in text
	facts := g.Facts("I was talking to alice yesterday")
	require.Len(t, facts, 1)
	assert.Equal(t, "Fact: Alice knows Bob", facts[0])

	// Matching one node pulls in all incident edges
	facts = g.Facts("tell me about bob")
	assert.Len(t, facts, 2)

	// No matching node
	assert.Nil(t, g.Facts("completely unrelated topic"))
}

func TestKnowledgeGraph_NodeLink_RoundTrip(t *testing.T) {
	g := New()
	g.AddEdge("Alice", "Hiking", "enjoys")
	g.AddEdge("Alice", "Bob", "knows")
	g.AddEdge("Bob", "Chess", "plays")

	data, err := g.MarshalNodeLink()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.UnmarshalNodeLink(data))

	assert.Equal(t, g.NodeCount(), restored.NodeCount())
	assert.Equal(t, g.EdgeCount(), restored.EdgeCount())
	assert.Equal(t, g.Facts("Alice"), restored.Facts("Alice"))
	assert.Equal(t, g.Facts("chess"), restored.Facts("chess"))
}

func TestKnowledgeGraph_UnmarshalNodeLink_Invalid(t *testing.T) {
	g := New()
	err := g.UnmarshalNodeLink([]byte("not json"))
	assert.Error(t, err)
}
