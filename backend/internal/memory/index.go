package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"bubbles-backend/backend/internal/state"
	"bubbles-backend/backend/pkg/logger"
)

// NoMemoriesSentinel is returned when similarity search yields nothing or
// fails. Valid, contentless context, not an error.
const NoMemoriesSentinel = "No relevant past memories."

const (
	// DefaultTopK is how many memories a search returns at most
	DefaultTopK = 3
	// DefaultMinSimilarity is the similarity floor for search hits
	DefaultMinSimilarity = 0.5

	saveTimeout = 15 * time.Second
)

// Embedder turns text into a fixed-length float vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Backend is the durable storage contract for memory records
type Backend interface {
	InsertMemory(ctx context.Context, userID, content string, embedding []float32) error
	MatchMemory(ctx context.Context, userID string, embedding []float32, threshold float64, count int) ([]state.MemoryMatch, error)
}

// Index is the long-term semantic memory: append-only records retrieved
// by per-user similarity search.
type Index struct {
	backend  Backend
	embedder Embedder
	logger   *zap.Logger
	pending  sync.WaitGroup
}

// NewIndex creates a memory index
func NewIndex(backend Backend, embedder Embedder) *Index {
	return &Index{
		backend:  backend,
		embedder: embedder,
		logger:   logger.Get(),
	}
}

// Search embeds the query and returns up to DefaultTopK memories above
// the similarity floor, rendered as "Memory: <content>" lines. Degrades
// to the sentinel on any failure.
func (i *Index) Search(ctx context.Context, userID, query string) string {
	vec, err := i.embedder.Embed(ctx, query)
	if err != nil {
		i.logger.Warn("Failed to embed search query",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return NoMemoriesSentinel
	}

	matches, err := i.backend.MatchMemory(ctx, userID, vec, DefaultMinSimilarity, DefaultTopK)
	if err != nil {
		i.logger.Warn("Memory search failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return NoMemoriesSentinel
	}

	var lines []string
	for _, m := range matches {
		if m.Content != "" {
			lines = append(lines, "Memory: "+m.Content)
		}
	}
	if len(lines) == 0 {
		return NoMemoriesSentinel
	}
	return strings.Join(lines, "\n")
}

// Save embeds content and appends a memory record without blocking the
// caller: embedding is CPU-bound and must stay off the live-advice path.
// Blank content is a no-op. Failures are logged and swallowed.
func (i *Index) Save(userID, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	i.pending.Add(1)
	go func() {
		defer i.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		i.save(ctx, userID, content)
	}()
}

func (i *Index) save(ctx context.Context, userID, content string) {
	vec, err := i.embedder.Embed(ctx, content)
	if err != nil {
		i.logger.Warn("Failed to embed memory content",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if err := i.backend.InsertMemory(ctx, userID, content, vec); err != nil {
		i.logger.Warn("Failed to save memory",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	i.logger.Debug("Saved new memory", zap.String("user_id", userID))
}

// Drain waits for in-flight saves, for graceful shutdown
func (i *Index) Drain() {
	i.pending.Wait()
}
