package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Generator produces answer text from a grounded request.
type Generator interface {
	Generate(ctx context.Context, req *GenerationRequest) (string, error)
}

// QueryService runs the query pipeline:
//
//	retrieving -> empty -> done
//	retrieving -> generating -> done
type QueryService struct {
	retriever driving.Retriever
	prompts   *PromptBuilder
	generator Generator
	docs      driven.DocumentStore
}

// NewQueryService creates the query pipeline. docs may be nil, in which
// case the not-found answer carries no topic suggestion.
func NewQueryService(retriever driving.Retriever, prompts *PromptBuilder, generator Generator, docs driven.DocumentStore) *QueryService {
	return &QueryService{
		retriever: retriever,
		prompts:   prompts,
		generator: generator,
		docs:      docs,
	}
}

// Ask answers a question with citations.
func (s *QueryService) Ask(ctx context.Context, query domain.Query) (*domain.Answer, error) {
	logger.Section("Query")
	start := time.Now()
	answer := &domain.Answer{Path: []domain.QueryState{domain.QueryStateRetrieving}}

	results, err := s.retriever.Retrieve(ctx, query, driving.RetrieveOptions{})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	if len(results) == 0 {
		answer.Path = append(answer.Path, domain.QueryStateEmpty, domain.QueryStateDone)
		answer.Text = s.prompts.NotFound(s.modules(ctx))
		answer.Sources = []domain.Source{}
		answer.Fallback = true
		logger.Info("No evidence cleared the threshold (%s)", time.Since(start))
		return answer, nil
	}

	answer.Path = append(answer.Path, domain.QueryStateGenerating)
	req, err := s.prompts.Build(query, results)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	text, err := s.generator.Generate(ctx, req)
	switch {
	case domain.IsContentPolicy(err):
		logger.Warn("Generation refused: %v", err)
		answer.Text = s.prompts.PolicyFallback()
		answer.Sources = []domain.Source{}
		answer.Fallback = true
	case err != nil:
		return nil, err
	default:
		answer.Text = text
		answer.Sources = make([]domain.Source, len(req.Evidence))
		for i, r := range req.Evidence {
			answer.Sources[i] = domain.SourceFromResult(r)
		}
	}

	answer.Path = append(answer.Path, domain.QueryStateDone)
	logger.Info("Answered with %d sources in %s", len(answer.Sources), time.Since(start))
	return answer, nil
}

// Retrieve exposes the retrieval stage on its own.
func (s *QueryService) Retrieve(ctx context.Context, query domain.Query, opts driving.RetrieveOptions) ([]domain.RetrievalResult, error) {
	return s.retriever.Retrieve(ctx, query, opts)
}

func (s *QueryService) modules(ctx context.Context) []string {
	if s.docs == nil {
		return nil
	}
	modules, err := s.docs.ListModules(ctx)
	if err != nil {
		logger.Warn("Listing modules for suggestion: %v", err)
		return nil
	}
	return modules
}
