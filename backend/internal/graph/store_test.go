package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bubbles-backend/backend/internal/state"
)

type fakeGraphBackend struct {
	mu        sync.Mutex
	graphs    map[string]json.RawMessage
	fetchErr  error
	upsertErr error
	fetches   int
	upserts   int
}

func newFakeGraphBackend() *fakeGraphBackend {
	return &fakeGraphBackend{graphs: make(map[string]json.RawMessage)}
}

func (f *fakeGraphBackend) FetchGraph(_ context.Context, userID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	raw, ok := f.graphs[userID]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (f *fakeGraphBackend) UpsertGraph(_ context.Context, userID string, graphData json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.graphs[userID] = graphData
	return nil
}

func TestStore_Load_NewUser(t *testing.T) {
	backend := newFakeGraphBackend()
	store := NewStore(backend)

	store.Load(context.Background(), "user-1")

	assert.True(t, store.Loaded("user-1"))
	assert.Equal(t, NoFactsSentinel, store.FindContext("user-1", "anything", 5))
}

func TestStore_Load_Idempotent(t *testing.T) {
	backend := newFakeGraphBackend()
	store := NewStore(backend)
	ctx := context.Background()

	store.Load(ctx, "user-1")
	added := store.ApplyUpdates("user-1", []state.Relation{
		{Source: "Alice", Target: "Hiking", Relation: "enjoys"},
	})
	require.Equal(t, 1, added)

	// A second load must not clobber in-memory edits
	store.Load(ctx, "user-1")
	assert.Equal(t, "Fact: Alice enjoys Hiking", store.FindContext("user-1", "hiking", 5))
	assert.Equal(t, 1, backend.fetches)
}

func TestStore_Load_StorageFailure(t *testing.T) {
	backend := newFakeGraphBackend()
	backend.fetchErr = fmt.Errorf("storage down")
	store := NewStore(backend)

	store.Load(context.Background(), "user-1")

	// Degrades to an empty graph, still usable
	assert.True(t, store.Loaded("user-1"))
	assert.Equal(t, 1, store.ApplyUpdates("user-1", []state.Relation{
		{Source: "A", Target: "B", Relation: "knows"},
	}))
}

func TestStore_Load_UnreadableGraph(t *testing.T) {
	backend := newFakeGraphBackend()
	backend.graphs["user-1"] = json.RawMessage("garbage")
	store := NewStore(backend)

	store.Load(context.Background(), "user-1")

	assert.True(t, store.Loaded("user-1"))
	assert.Equal(t, NoFactsSentinel, store.FindContext("user-1", "anything", 5))
}

func TestStore_PersistAndReload(t *testing.T) {
	backend := newFakeGraphBackend()
	store := NewStore(backend)
	ctx := context.Background()

	store.Load(ctx, "user-1")
	store.ApplyUpdates("user-1", []state.Relation{
		{Source: "Alice", Target: "Hiking", Relation: "enjoys"},
		{Source: "Alice", Target: "Bob", Relation: "knows"},
	})
	store.Persist(ctx, "user-1")

	// Persisting evicts the in-memory copy
	assert.False(t, store.Loaded("user-1"))
	assert.Equal(t, NoFactsSentinel, store.FindContext("user-1", "hiking", 5))

	// Reloading restores an isomorphic graph
	store.Load(ctx, "user-1")
	got := store.FindContext("user-1", "alice", 5)
	assert.Contains(t, got, "Fact: Alice enjoys Hiking")
	assert.Contains(t, got, "Fact: Alice knows Bob")
}

func TestStore_Persist_WriteFailureStillEvicts(t *testing.T) {
	backend := newFakeGraphBackend()
	backend.upsertErr = fmt.Errorf("storage down")
	store := NewStore(backend)
	ctx := context.Background()

	store.Load(ctx, "user-1")
	store.ApplyUpdates("user-1", []state.Relation{
		{Source: "A", Target: "B", Relation: "knows"},
	})
	store.Persist(ctx, "user-1")

	assert.False(t, store.Loaded("user-1"))
}

func TestStore_Persist_NotLoaded(t *testing.T) {
	backend := newFakeGraphBackend()
	store := NewStore(backend)

	store.Persist(context.Background(), "nobody")
	assert.Equal(t, 0, backend.upserts)
}

func TestStore_ApplyUpdates(t *testing.T) {
	backend := newFakeGraphBackend()
	store := NewStore(backend)
	store.Load(context.Background(), "user-1")

	relations := []state.Relation{
		{Source: "Alice", Target: "Hiking", Relation: "enjoys"},
		{Source: "", Target: "Hiking", Relation: "enjoys"}, // malformed, skipped
		{Source: "Alice", Target: "Hiking", Relation: "enjoys"}, // duplicate
	}
	assert.Equal(t, 1, store.ApplyUpdates("user-1", relations))
}

func TestStore_ApplyUpdates_NotLoaded(t *testing.T) {
	store := NewStore(newFakeGraphBackend())

	added := store.ApplyUpdates("nobody", []state.Relation{
		{Source: "A", Target: "B", Relation: "knows"},
	})
	assert.Equal(t, 0, added)
}

func TestStore_FindContext_Limit(t *testing.T) {
	store := NewStore(newFakeGraphBackend())
	store.Load(context.Background(), "user-1")

	var relations []state.Relation
	for i := 0; i < 10; i++ {
		relations = append(relations, state.Relation{
			Source:   "Alice",
			Target:   fmt.Sprintf("Topic%d", i),
			Relation: "likes",
		})
	}
	store.ApplyUpdates("user-1", relations)

	got := store.FindContext("user-1", "alice", 5)
	assert.Len(t, strings.Split(got, "\n"), 5)
}
