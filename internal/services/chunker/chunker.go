package chunker

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/models"
)

// separators ordered coarsest to finest: paragraph break, line break,
// sentence-ending punctuation, word boundary. A hard character cut is the
// final fallback when none of these fit within the chunk budget.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Splitter divides documents into bounded-size overlapping chunks. Sizes and
// offsets count runes, not bytes, so multi-byte text is never cut mid-rune.
// Every chunk is a contiguous slice of its source: chunk i+1 starts exactly
// `overlap` runes before the chosen end of chunk i, so the trailing overlap
// of one chunk always equals the leading overlap of the next.
type Splitter struct {
	chunkSize int
	overlap   int
	logger    arbor.ILogger
}

// NewSplitter validates the chunking configuration and creates a splitter.
// An overlap at or above the chunk size would loop instead of advancing, so
// it fails fast with a ConfigError.
func NewSplitter(config common.ChunkingConfig, logger arbor.ILogger) (*Splitter, error) {
	if config.ChunkSize <= 0 {
		return nil, common.NewConfigError("chunk_size must be positive, got %d", config.ChunkSize)
	}
	if config.ChunkOverlap < 0 {
		return nil, common.NewConfigError("chunk_overlap must be non-negative, got %d", config.ChunkOverlap)
	}
	if config.ChunkOverlap >= config.ChunkSize {
		return nil, common.NewConfigError("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			config.ChunkOverlap, config.ChunkSize)
	}

	return &Splitter{
		chunkSize: config.ChunkSize,
		overlap:   config.ChunkOverlap,
		logger:    logger,
	}, nil
}

// Split chunks every document in order. Documents with empty text yield no
// chunks.
func (s *Splitter) Split(docs []*models.Document) []*models.Chunk {
	var chunks []*models.Chunk
	for _, doc := range docs {
		docChunks := s.splitDocument(doc)
		s.logger.Debug().
			Str("source", doc.Source).
			Int("text_length", len(doc.Text)).
			Int("chunks", len(docChunks)).
			Msg("Document chunked")
		chunks = append(chunks, docChunks...)
	}
	return chunks
}

func (s *Splitter) splitDocument(doc *models.Document) []*models.Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	var out []*models.Chunk
	start := 0
	for {
		if len(runes)-start <= s.chunkSize {
			// Final chunk of this source, may be shorter than chunkSize
			out = append(out, s.newChunk(doc, runes, len(out), start, len(runes)))
			return out
		}

		end := s.cutPoint(runes, start)
		out = append(out, s.newChunk(doc, runes, len(out), start, end))
		start = end - s.overlap
	}
}

// cutPoint picks the end offset (in runes) for a chunk starting at start. It
// prefers the coarsest separator with an occurrence inside the window,
// falling through to finer separators, then to a hard cut at the full chunk
// size. The cut must land past the overlap region or the next chunk would not
// advance.
func (s *Splitter) cutPoint(runes []rune, start int) int {
	window := string(runes[start : start+s.chunkSize])
	minEnd := start + s.overlap + 1

	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// Keep the separator with the leading piece. The separators are all
		// ASCII, so len(sep) counts runes too; the byte index into the window
		// still needs converting to a rune offset.
		end := start + utf8.RuneCountInString(window[:idx]) + len(sep)
		if end >= minEnd {
			return end
		}
	}

	// Last resort: cut mid-word at the budget, on a rune boundary
	return start + s.chunkSize
}

func (s *Splitter) newChunk(doc *models.Document, runes []rune, index, start, end int) *models.Chunk {
	return &models.Chunk{
		ID:        common.NewChunkID(),
		Source:    doc.Source,
		Index:     index,
		Text:      string(runes[start:end]),
		CharStart: start,
		CharEnd:   end,
		CreatedAt: time.Now().UTC(),
	}
}
