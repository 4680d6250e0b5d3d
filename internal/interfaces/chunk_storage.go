package interfaces

import (
	"github.com/ternarybob/perquire/internal/models"
)

// ChunkStorage persists embedded chunks so an index can be reconstructed
// without re-calling the embedding service. Snapshots are replaced whole:
// a refresh clears the store and saves the new chunk set.
type ChunkStorage interface {
	// SaveChunks stores a batch of embedded chunks
	SaveChunks(chunks []*models.Chunk) error

	// LoadChunks returns all stored chunks in insertion order
	LoadChunks() ([]*models.Chunk, error)

	// Count returns the number of stored chunks
	Count() (int, error)

	// Clear removes all stored chunks
	Clear() error
}
