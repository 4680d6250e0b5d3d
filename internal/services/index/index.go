package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/interfaces"
	"github.com/ternarybob/perquire/internal/models"
)

// embedConcurrency bounds parallel embedding calls during Build. Each chunk
// owns exactly one slot in the entry slice, so workers never share state.
const embedConcurrency = 4

// Index is an in-memory vector index over chunk embeddings. Once built it is
// read-only; rebuilding means constructing a new Index, never mutating an
// existing one.
type Index struct {
	embedder interfaces.EmbeddingService
	logger   arbor.ILogger
	chunks   []*models.Chunk // insertion order, used for tie-breaking
}

// Build embeds every chunk and constructs an index. Any embedding failure
// aborts the whole build: a partial index cannot be safely queried.
func Build(ctx context.Context, embedder interfaces.EmbeddingService, chunks []*models.Chunk, logger arbor.ILogger) (*Index, error) {
	idx := &Index{
		embedder: embedder,
		logger:   logger,
		chunks:   make([]*models.Chunk, len(chunks)),
	}

	sem := make(chan struct{}, embedConcurrency)
	errCh := make(chan error, len(chunks))
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(slot int, c *models.Chunk) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if len(c.Embedding) > 0 {
				// Already embedded (loaded from storage)
				idx.chunks[slot] = c
				return
			}

			vec, err := embedder.GenerateEmbedding(ctx, c.Text)
			if err != nil {
				errCh <- fmt.Errorf("chunk %s (source %s, index %d): %w", c.ID, c.Source, c.Index, err)
				return
			}
			c.Embedding = vec
			c.EmbeddingModel = embedder.ModelName()
			idx.chunks[slot] = c
		}(i, chunk)
	}

	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, &common.EmbeddingError{Op: "build", Err: err}
	}

	logger.Info().
		Int("chunks", len(chunks)).
		Str("model", embedder.ModelName()).
		Msg("Vector index built")

	return idx, nil
}

// FromEmbedded constructs an index from chunks that already carry embeddings,
// without calling the embedding service. Chunks missing an embedding are
// rejected.
func FromEmbedded(embedder interfaces.EmbeddingService, chunks []*models.Chunk, logger arbor.ILogger) (*Index, error) {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %s has no embedding", c.ID)
		}
	}
	return &Index{
		embedder: embedder,
		logger:   logger,
		chunks:   chunks,
	}, nil
}

// Size returns the number of indexed chunks
func (idx *Index) Size() int {
	return len(idx.chunks)
}

// Chunks returns the indexed chunks in insertion order
func (idx *Index) Chunks() []*models.Chunk {
	return idx.chunks
}

// Retrieve embeds the query once and returns the top-k chunks by descending
// cosine similarity. Ties keep insertion order (first indexed wins). Fewer
// than k results are returned when the index holds fewer than k chunks; an
// empty index always answers with an empty result without touching the
// embedding service.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(idx.chunks) == 0 {
		return []models.ScoredChunk{}, nil
	}

	queryVec, err := idx.embedder.GenerateQueryEmbedding(ctx, query)
	if err != nil {
		return nil, &common.EmbeddingError{Op: "query", Err: err}
	}

	scored := make([]models.ScoredChunk, len(idx.chunks))
	for i, c := range idx.chunks {
		scored[i] = models.ScoredChunk{
			Chunk: c,
			Score: cosineSimilarity(queryVec, c.Embedding),
		}
	}

	// Stable sort preserves insertion order on equal scores
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}

	idx.logger.Debug().
		Int("k", k).
		Int("index_size", len(idx.chunks)).
		Msg("Retrieved chunks for query")

	return scored[:k], nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
