package llm

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/interfaces"
)

// geminiEmbedder adapts GeminiService to the embedding contract
type geminiEmbedder struct {
	svc *GeminiService
}

func (e *geminiEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return e.svc.Embed(ctx, text)
}

// Queries use the same preparation as documents
func (e *geminiEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return e.svc.Embed(ctx, query)
}

func (e *geminiEmbedder) ModelName() string {
	return e.svc.EmbedModelName()
}

func (e *geminiEmbedder) Dimension() int {
	return e.svc.Dimension()
}

// geminiGenerator adapts GeminiService to the generation contract
type geminiGenerator struct {
	svc *GeminiService
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.svc.GenerateContent(ctx, prompt)
	if err != nil {
		return "", &common.GenerationError{Provider: "gemini", Err: err}
	}
	return text, nil
}

func (g *geminiGenerator) ModelName() string    { return g.svc.ChatModelName() }
func (g *geminiGenerator) ProviderName() string { return string(common.LLMProviderGemini) }
func (g *geminiGenerator) Close() error         { return nil }

// claudeGenerator adapts ClaudeService to the generation contract
type claudeGenerator struct {
	svc *ClaudeService
}

func (g *claudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.svc.GenerateContent(ctx, prompt)
	if err != nil {
		return "", &common.GenerationError{Provider: "claude", Err: err}
	}
	return text, nil
}

func (g *claudeGenerator) ModelName() string    { return g.svc.ChatModelName() }
func (g *claudeGenerator) ProviderName() string { return string(common.LLMProviderClaude) }
func (g *claudeGenerator) Close() error         { return g.svc.Close() }

// NewServices creates the embedding service and the generation service for
// the configured provider. Embeddings always come from Gemini; generation
// follows llm.default_provider. The shared Gemini client is reused when
// gemini serves both roles.
func NewServices(cfg *common.Config, logger arbor.ILogger) (interfaces.EmbeddingService, interfaces.GenerationService, error) {
	gemini, err := NewGeminiService(&cfg.Gemini, logger)
	if err != nil {
		return nil, nil, err
	}

	embedder := &geminiEmbedder{svc: gemini}

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderGemini:
		return embedder, &geminiGenerator{svc: gemini}, nil

	case common.LLMProviderClaude:
		claude, err := NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			return nil, nil, err
		}
		return embedder, &claudeGenerator{svc: claude}, nil

	default:
		return nil, nil, common.NewConfigError("unsupported llm provider %q: must be 'gemini' or 'claude'", cfg.LLM.DefaultProvider)
	}
}
