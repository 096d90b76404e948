package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bubbles-backend/backend/internal/state"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 0.5}, nil
}

type fakeMemoryBackend struct {
	mu        sync.Mutex
	records   []string
	matches   []state.MemoryMatch
	insertErr error
	matchErr  error
}

func (f *fakeMemoryBackend) InsertMemory(_ context.Context, _, content string, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, content)
	return nil
}

func (f *fakeMemoryBackend) MatchMemory(_ context.Context, _ string, _ []float32, _ float64, _ int) ([]state.MemoryMatch, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	return f.matches, nil
}

func (f *fakeMemoryBackend) stored() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.records...)
}

func TestIndex_Search(t *testing.T) {
	backend := &fakeMemoryBackend{
		matches: []state.MemoryMatch{
			{Content: "Speaker 1: I love hiking", Similarity: 0.9},
			{Content: "Speaker 0: me too", Similarity: 0.7},
		},
	}
	idx := NewIndex(backend, &fakeEmbedder{})

	got := idx.Search(context.Background(), "user-1", "hiking")
	assert.Equal(t, "Memory: Speaker 1: I love hiking\nMemory: Speaker 0: me too", got)
}

func TestIndex_Search_NoMatches(t *testing.T) {
	idx := NewIndex(&fakeMemoryBackend{}, &fakeEmbedder{})

	got := idx.Search(context.Background(), "user-1", "hiking")
	assert.Equal(t, NoMemoriesSentinel, got)
}

func TestIndex_Search_EmbedderFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("embedding service down")}
	idx := NewIndex(&fakeMemoryBackend{}, embedder)

	got := idx.Search(context.Background(), "user-1", "hiking")
	assert.Equal(t, NoMemoriesSentinel, got)
}

func TestIndex_Search_BackendFailure(t *testing.T) {
	backend := &fakeMemoryBackend{matchErr: fmt.Errorf("rpc failed")}
	idx := NewIndex(backend, &fakeEmbedder{})

	got := idx.Search(context.Background(), "user-1", "hiking")
	assert.Equal(t, NoMemoriesSentinel, got)
}

func TestIndex_Save(t *testing.T) {
	backend := &fakeMemoryBackend{}
	idx := NewIndex(backend, &fakeEmbedder{})

	idx.Save("user-1", "Speaker 1: I love hiking")
	idx.Drain()

	records := backend.stored()
	require.Len(t, records, 1)
	assert.Equal(t, "Speaker 1: I love hiking", records[0])
}

func TestIndex_Save_BlankContent(t *testing.T) {
	backend := &fakeMemoryBackend{}
	embedder := &fakeEmbedder{}
	idx := NewIndex(backend, embedder)

	idx.Save("user-1", "   ")
	idx.Drain()

	assert.Empty(t, backend.stored())
	assert.Equal(t, 0, embedder.calls)
}

func TestIndex_Save_FailureIsSwallowed(t *testing.T) {
	backend := &fakeMemoryBackend{insertErr: fmt.Errorf("insert failed")}
	idx := NewIndex(backend, &fakeEmbedder{})

	idx.Save("user-1", "some content")
	idx.Drain()

	assert.Empty(t, backend.stored())
}
