package badger

import (
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/interfaces"
	"github.com/ternarybob/perquire/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// chunkRecord wraps a chunk with an explicit store-wide sequence so
// LoadChunks can return the exact insertion order across sources.
type chunkRecord struct {
	ID    string `badgerhold:"key"`
	Seq   int
	Chunk *models.Chunk
}

// ChunkStorage implements the ChunkStorage interface for Badger
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	mu      sync.Mutex
	nextSeq int
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) (interfaces.ChunkStorage, error) {
	s := &ChunkStorage{
		db:     db,
		logger: logger,
	}

	// Resume the sequence past any existing records
	count, err := s.Count()
	if err != nil {
		return nil, err
	}
	s.nextSeq = count

	return s, nil
}

func (s *ChunkStorage) SaveChunks(chunks []*models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk ID is required")
		}
		record := &chunkRecord{
			ID:    chunk.ID,
			Seq:   s.nextSeq,
			Chunk: chunk,
		}
		if err := s.db.Store().Upsert(record.ID, record); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
		}
		s.nextSeq++
	}

	s.logger.Debug().Int("chunks", len(chunks)).Msg("Chunks persisted")
	return nil
}

func (s *ChunkStorage) LoadChunks() ([]*models.Chunk, error) {
	var records []chunkRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("ID").Ne("").SortBy("Seq")); err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	chunks := make([]*models.Chunk, len(records))
	for i := range records {
		chunks[i] = records[i].Chunk
	}
	return chunks, nil
}

func (s *ChunkStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&chunkRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

func (s *ChunkStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Store().DeleteMatching(&chunkRecord{}, nil); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	s.nextSeq = 0

	s.logger.Debug().Msg("Chunk store cleared")
	return nil
}
