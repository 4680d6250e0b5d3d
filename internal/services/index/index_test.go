package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/models"
)

// fakeEmbedder returns fixed vectors per text, with a rune-count fallback so
// identical text always maps to an identical vector. Build embeds
// concurrently, so the call counter is guarded.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	// Deterministic fallback: length, vowels, spaces
	var length, vowels, spaces float32
	for _, r := range text {
		length++
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		case ' ':
			spaces++
		}
	}
	return []float32{length, vowels, spaces, 1}, nil
}

func (f *fakeEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return f.GenerateEmbedding(ctx, query)
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed-001" }
func (f *fakeEmbedder) Dimension() int    { return 4 }

func chunks(texts ...string) []*models.Chunk {
	out := make([]*models.Chunk, len(texts))
	for i, text := range texts {
		out[i] = &models.Chunk{
			ID:     fmt.Sprintf("chunk_%d", i),
			Source: "test://doc",
			Index:  i,
			Text:   text,
		}
	}
	return out
}

func TestBuild_EmbedsEveryChunk(t *testing.T) {
	embedder := &fakeEmbedder{}
	cs := chunks("alpha", "beta", "gamma")

	idx, err := Build(context.Background(), embedder, cs, common.GetLogger())

	require.NoError(t, err)
	assert.Equal(t, 3, idx.Size())
	for _, c := range idx.Chunks() {
		assert.NotEmpty(t, c.Embedding)
		assert.Equal(t, "fake-embed-001", c.EmbeddingModel)
	}
}

func TestBuild_EmbeddingFailureIsFatal(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("service unavailable")}

	idx, err := Build(context.Background(), embedder, chunks("alpha", "beta"), common.GetLogger())

	require.Error(t, err)
	assert.Nil(t, idx)

	var embErr *common.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, "build", embErr.Op)
}

func TestBuild_SkipsAlreadyEmbeddedChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	cs := chunks("alpha", "beta")
	cs[0].Embedding = []float32{1, 0, 0, 0}

	_, err := Build(context.Background(), embedder, cs, common.GetLogger())

	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls, "pre-embedded chunk should not be re-embedded")
}

func TestRetrieve_RanksMostSimilarFirst(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"cats":  {1, 0, 0, 0},
		"dogs":  {0, 1, 0, 0},
		"birds": {0, 0, 1, 0},
		"query": {0.9, 0.1, 0, 0},
	}}

	idx, err := Build(context.Background(), embedder, chunks("cats", "dogs", "birds"), common.GetLogger())
	require.NoError(t, err)

	results, err := idx.Retrieve(context.Background(), "query", 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "cats", results[0].Chunk.Text)
	assert.Equal(t, "dogs", results[1].Chunk.Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieve_QueryIdenticalToChunkRanksItFirst(t *testing.T) {
	embedder := &fakeEmbedder{}
	cs := chunks("the capital of france", "unrelated musings on go", "a third chunk entirely")

	idx, err := Build(context.Background(), embedder, cs, common.GetLogger())
	require.NoError(t, err)

	results, err := idx.Retrieve(context.Background(), "the capital of france", 3)
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "the capital of france", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRetrieve_IsDeterministic(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, err := Build(context.Background(), embedder, chunks("one fish", "two fish", "red fish", "blue fish"), common.GetLogger())
	require.NoError(t, err)

	first, err := idx.Retrieve(context.Background(), "fish", 3)
	require.NoError(t, err)
	second, err := idx.Retrieve(context.Background(), "fish", 3)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Chunk.ID, second[i].Chunk.ID)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestRetrieve_TiesKeepInsertionOrder(t *testing.T) {
	// Identical vectors for every chunk: all scores tie exactly
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"first":  {1, 1, 0, 0},
		"second": {1, 1, 0, 0},
		"third":  {1, 1, 0, 0},
		"query":  {1, 1, 0, 0},
	}}

	idx, err := Build(context.Background(), embedder, chunks("first", "second", "third"), common.GetLogger())
	require.NoError(t, err)

	results, err := idx.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk.Text)
	assert.Equal(t, "second", results[1].Chunk.Text)
	assert.Equal(t, "third", results[2].Chunk.Text)
}

func TestRetrieve_ReturnsAtMostKAndAtMostIndexSize(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, err := Build(context.Background(), embedder, chunks("a a", "b b", "c c"), common.GetLogger())
	require.NoError(t, err)

	results, err := idx.Retrieve(context.Background(), "a", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3, "never pad beyond index size")

	results, err = idx.Retrieve(context.Background(), "a", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_EmptyIndexAnswersEmptyWithoutEmbedding(t *testing.T) {
	// A failing embedder proves the query is never embedded on an empty index
	embedder := &fakeEmbedder{err: errors.New("must not be called")}

	idx, err := Build(context.Background(), embedder, nil, common.GetLogger())
	require.NoError(t, err)

	results, err := idx.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_QueryEmbeddingFailureIsFatal(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, err := Build(context.Background(), embedder, chunks("alpha"), common.GetLogger())
	require.NoError(t, err)

	embedder.err = errors.New("service down")
	_, err = idx.Retrieve(context.Background(), "alpha", 1)

	var embErr *common.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, "query", embErr.Op)
}

func TestFromEmbedded_RejectsMissingEmbeddings(t *testing.T) {
	cs := chunks("alpha")
	_, err := FromEmbedded(&fakeEmbedder{}, cs, common.GetLogger())
	require.Error(t, err)

	cs[0].Embedding = []float32{1, 0, 0, 0}
	idx, err := FromEmbedded(&fakeEmbedder{}, cs, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Size())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "dimension mismatch scores zero")
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector scores zero")
}
