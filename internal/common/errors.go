package common

import (
	"fmt"
)

// ConfigError reports invalid or incomplete configuration. Raised before any
// ingestion or query work begins; always fatal to startup.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigError creates a ConfigError with a formatted reason.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// FetchError reports a failure to fetch or parse a single source location.
// Non-fatal to a batch: the extractor logs it and skips the source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports an embedding service failure. Fatal during index
// build (no partial index) and fatal during query-time retrieval.
type EmbeddingError struct {
	Op  string // "build" or "query"
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding service failed during %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// GenerationError reports a generation service failure. Fatal for the active
// query; no partial answer is produced.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (provider %s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
