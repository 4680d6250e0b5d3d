package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/perquire/internal/interfaces"
	"github.com/ternarybob/perquire/internal/models"
)

// Retriever is the query-side contract of the vector index.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

// Service answers questions through a small directed stage graph: two
// independent branches (retrieve-and-format context, pass the question
// through) run concurrently, then merge into a prompt context, which flows
// through a linear tail (render, generate, decode). Any stage failure aborts
// the query; downstream stages never run on partial state.
type Service struct {
	retriever Retriever
	generator interfaces.GenerationService
	template  *Template
	topK      int
	logger    arbor.ILogger
}

// NewService builds a synthesis pipeline bound to a retriever, a generation
// provider and a prompt template identifier.
func NewService(retriever Retriever, generator interfaces.GenerationService, templateID string, topK int, logger arbor.ILogger) (*Service, error) {
	if retriever == nil {
		return nil, fmt.Errorf("pipeline requires a retriever")
	}
	if generator == nil {
		return nil, fmt.Errorf("pipeline requires a generation service")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	tmpl, err := TemplateByID(templateID)
	if err != nil {
		return nil, err
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		template:  tmpl,
		topK:      topK,
		logger:    logger,
	}, nil
}

// queryState carries one question through the stage graph. Branch stages
// write to disjoint fields, so the concurrent phase needs no locking.
type queryState struct {
	question string

	retrieved   []models.ScoredChunk
	contextText string
	sources     []string

	prompt   models.PromptContext
	rendered string
	raw      string
}

type stage struct {
	name string
	run  func(ctx context.Context, st *queryState) error
}

// Answer runs the full pipeline for one question.
func (s *Service) Answer(ctx context.Context, question string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	st := &queryState{question: question}

	branches := []stage{
		{name: "retrieve_context", run: s.retrieveStage},
		{name: "pass_question", run: s.passQuestionStage},
	}
	if err := s.runBranches(ctx, st, branches); err != nil {
		return nil, err
	}

	tail := []stage{
		{name: "merge_render", run: s.mergeRenderStage},
		{name: "generate", run: s.generateStage},
	}
	for _, stg := range tail {
		if err := stg.run(ctx, st); err != nil {
			s.logger.Warn().Err(err).Str("stage", stg.name).Msg("Pipeline stage failed")
			return nil, err
		}
	}

	return s.decode(st), nil
}

// runBranches evaluates independent stages concurrently and waits for all of
// them before the merge. The first error wins; the query aborts either way.
func (s *Service) runBranches(ctx context.Context, st *queryState, branches []stage) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(branches))

	for _, stg := range branches {
		wg.Add(1)
		go func(stg stage) {
			defer wg.Done()
			if err := stg.run(ctx, st); err != nil {
				s.logger.Warn().Err(err).Str("stage", stg.name).Msg("Pipeline stage failed")
				errCh <- err
			}
		}(stg)
	}
	wg.Wait()
	close(errCh)

	return <-errCh
}

// retrieveStage fetches the top-k chunks for the question and formats them as
// a single context block, chunk texts joined by blank lines in retrieval
// order. Source identities are collected in first-seen order for the answer.
func (s *Service) retrieveStage(ctx context.Context, st *queryState) error {
	results, err := s.retriever.Retrieve(ctx, st.question, s.topK)
	if err != nil {
		return err
	}
	st.retrieved = results

	parts := make([]string, 0, len(results))
	seen := make(map[string]bool)
	for _, sc := range results {
		parts = append(parts, sc.Chunk.Text)
		if sc.Chunk.Source != "" && !seen[sc.Chunk.Source] {
			seen[sc.Chunk.Source] = true
			st.sources = append(st.sources, sc.Chunk.Source)
		}
	}
	st.contextText = strings.Join(parts, "\n\n")

	s.logger.Debug().
		Int("chunks", len(results)).
		Int("context_chars", len(st.contextText)).
		Msg("Context assembled")
	return nil
}

// passQuestionStage carries the question to the merge untouched.
func (s *Service) passQuestionStage(ctx context.Context, st *queryState) error {
	_ = ctx
	st.prompt.Question = st.question
	return nil
}

func (s *Service) mergeRenderStage(ctx context.Context, st *queryState) error {
	_ = ctx
	st.prompt.Context = st.contextText
	st.rendered = s.template.Render(st.prompt)
	return nil
}

func (s *Service) generateStage(ctx context.Context, st *queryState) error {
	raw, err := s.generator.Generate(ctx, st.rendered)
	if err != nil {
		return err
	}
	st.raw = raw
	return nil
}

func (s *Service) decode(st *queryState) *models.Answer {
	return &models.Answer{
		Text:     strings.TrimSpace(st.raw),
		Sources:  st.sources,
		Provider: s.generator.ProviderName(),
		Model:    s.generator.ModelName(),
	}
}
