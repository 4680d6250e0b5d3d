package interfaces

import (
	"context"
)

// EmbeddingService generates vector embeddings for text. Implementations are
// opaque request/response collaborators; callers surface failures untouched.
type EmbeddingService interface {
	// GenerateEmbedding creates a vector embedding for raw text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateQueryEmbedding generates an embedding for a search query
	// (may use different preparation than document embedding)
	GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error)

	// ModelName returns the embedding model identifier
	ModelName() string

	// Dimension returns the embedding dimension
	Dimension() int
}
