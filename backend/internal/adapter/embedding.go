package adapter

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "bubbles-backend/backend/pkg/errors"
	"bubbles-backend/backend/pkg/logger"
)

// EmbeddingClient turns text into fixed-length float vectors via an
// OpenAI-compatible embeddings endpoint.
type EmbeddingClient struct {
	client *openai.Client
	model  string
	dim    int
	logger *zap.Logger
}

// NewEmbeddingClient creates the embedding adapter
func NewEmbeddingClient(baseURL, apiKey, model string, dim int) *EmbeddingClient {
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &EmbeddingClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
		dim:    dim,
		logger: logger.Get(),
	}
}

// Embed returns the embedding vector for text. The vector length is
// validated against the configured dimension: a model/schema mismatch
// here would silently corrupt the similarity search.
func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, apperrors.NewEmbeddingFailed(e.model, err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewEmbeddingFailed(e.model, nil)
	}

	vec := resp.Data[0].Embedding
	if e.dim > 0 && len(vec) != e.dim {
		e.logger.Warn("Embedding dimension mismatch",
			zap.String("model", e.model),
			zap.Int("expected", e.dim),
			zap.Int("got", len(vec)),
		)
		return nil, apperrors.NewEmbeddingFailed(e.model, nil)
	}
	return vec, nil
}
