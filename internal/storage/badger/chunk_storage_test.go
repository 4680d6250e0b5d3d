package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/interfaces"
	"github.com/ternarybob/perquire/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestStorage(t *testing.T) (interfaces.ChunkStorage, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)

	db := &BadgerDB{store: store}
	storage, err := NewChunkStorage(db, arbor.NewLogger())
	require.NoError(t, err)

	return storage, func() { store.Close() }
}

func chunk(id, source, text string) *models.Chunk {
	return &models.Chunk{
		ID:        id,
		Source:    source,
		Text:      text,
		Embedding: []float32{0.1, 0.2, 0.3},
	}
}

func TestChunkStorage_Roundtrip(t *testing.T) {
	storage, cleanup := newTestStorage(t)
	defer cleanup()

	saved := []*models.Chunk{
		chunk("chunk-1", "src-a", "first"),
		chunk("chunk-2", "src-a", "second"),
		chunk("chunk-3", "src-b", "third"),
	}
	require.NoError(t, storage.SaveChunks(saved))

	loaded, err := storage.LoadChunks()
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	for i, c := range loaded {
		assert.Equal(t, saved[i].ID, c.ID)
		assert.Equal(t, saved[i].Text, c.Text)
		assert.Equal(t, saved[i].Embedding, c.Embedding)
	}
}

func TestChunkStorage_InsertionOrderAcrossBatches(t *testing.T) {
	storage, cleanup := newTestStorage(t)
	defer cleanup()

	require.NoError(t, storage.SaveChunks([]*models.Chunk{chunk("z-last-id", "src-a", "one")}))
	require.NoError(t, storage.SaveChunks([]*models.Chunk{chunk("a-first-id", "src-b", "two")}))

	loaded, err := storage.LoadChunks()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Order follows insertion, not key order
	assert.Equal(t, "z-last-id", loaded[0].ID)
	assert.Equal(t, "a-first-id", loaded[1].ID)
}

func TestChunkStorage_Count(t *testing.T) {
	storage, cleanup := newTestStorage(t)
	defer cleanup()

	count, err := storage.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		chunk("chunk-1", "src", "a"),
		chunk("chunk-2", "src", "b"),
	}))

	count, err = storage.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChunkStorage_Clear(t *testing.T) {
	storage, cleanup := newTestStorage(t)
	defer cleanup()

	require.NoError(t, storage.SaveChunks([]*models.Chunk{chunk("chunk-1", "src", "a")}))
	require.NoError(t, storage.Clear())

	count, err := storage.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	loaded, err := storage.LoadChunks()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestChunkStorage_RejectsMissingID(t *testing.T) {
	storage, cleanup := newTestStorage(t)
	defer cleanup()

	err := storage.SaveChunks([]*models.Chunk{{Source: "src", Text: "no id"}})
	require.Error(t, err)
}
