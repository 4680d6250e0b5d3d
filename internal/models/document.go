package models

import (
	"time"
)

// Document represents the raw text extracted from a single source location.
// Documents are immutable once produced by the extractor and are discarded
// after chunking; only chunks are retained.
type Document struct {
	ID        string    `json:"id"`     // doc_<uuid>
	Source    string    `json:"source"` // URL or filesystem path
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Chunk is a bounded-size contiguous slice of a source document, the unit of
// retrieval. CharStart and CharEnd are rune offsets into the parent text and
// Text covers exactly [CharStart, CharEnd), so adjacent chunks of the same
// source share exactly the configured overlap and never split a multi-byte
// rune.
type Chunk struct {
	ID             string    `json:"id" badgerhold:"key"` // chunk_<uuid>
	Source         string    `json:"source"`              // parent source identity
	Index          int       `json:"index"`               // sequence within the source, 0-based
	Text           string    `json:"text"`
	CharStart      int       `json:"char_start"`
	CharEnd        int       `json:"char_end"`
	Embedding      []float32 `json:"embedding,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScoredChunk pairs a chunk with its similarity to a query embedding.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// PromptContext holds the two merge-stage inputs of the synthesis pipeline:
// the formatted retrieved context and the untouched user question.
type PromptContext struct {
	Context  string
	Question string
}

// Answer is the final output of the synthesis pipeline for one question.
type Answer struct {
	Text     string   `json:"answer"`
	Sources  []string `json:"sources,omitempty"` // source identities that contributed context
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
}
