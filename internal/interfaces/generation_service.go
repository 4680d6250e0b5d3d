package interfaces

import (
	"context"
)

// GenerationService produces a completion for a rendered prompt. The model
// identifier is configuration, not hardwired; implementations wrap a single
// provider (Gemini, Claude).
type GenerationService interface {
	// Generate invokes the model with the rendered prompt and returns the
	// raw response text
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the generation model identifier
	ModelName() string

	// ProviderName returns the provider identifier ("gemini", "claude")
	ProviderName() string

	// Close releases provider resources
	Close() error
}
