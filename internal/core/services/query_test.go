package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// stubRetriever returns fixed results.
type stubRetriever struct {
	results []domain.RetrievalResult
	err     error
	last    driving.RetrieveOptions
}

func (s *stubRetriever) Retrieve(_ context.Context, _ domain.Query, opts driving.RetrieveOptions) ([]domain.RetrievalResult, error) {
	s.last = opts
	return s.results, s.err
}

func moduleStore(t *testing.T, modules ...string) *memory.DocumentStore {
	t.Helper()
	docs := memory.NewDocumentStore()
	for _, m := range modules {
		require.NoError(t, docs.SaveDocument(context.Background(), &domain.DocumentRecord{
			ID: "id-" + m, SourcePath: m + "/index.md", Module: m,
		}))
	}
	return docs
}

func TestQueryService_Ask_GeneratesWithSources(t *testing.T) {
	retriever := &stubRetriever{results: []domain.RetrievalResult{
		evidence("Nodes", "Publishers", "ros2/nodes.md", "A node publishes.", 0.9),
		evidence("Topics", "Topics", "ros2/topics.md", "Topics carry messages.", 0.6),
	}}
	gen := &countingGenerator{text: "Nodes publish messages on topics [1][2]."}
	svc := NewQueryService(retriever, NewPromptBuilder(nil), gen, nil)

	answer, err := svc.Ask(context.Background(), domain.Query{Question: "How do nodes talk?"})

	require.NoError(t, err)
	assert.Equal(t, "Nodes publish messages on topics [1][2].", answer.Text)
	assert.False(t, answer.Fallback)
	assert.Equal(t, []domain.QueryState{
		domain.QueryStateRetrieving, domain.QueryStateGenerating, domain.QueryStateDone,
	}, answer.Path)
	assert.Equal(t, domain.QueryStateDone, answer.State())
	assert.Equal(t, []domain.Source{
		{Title: "Nodes", SourcePath: "ros2/nodes.md", Section: "Publishers"},
		{Title: "Topics", SourcePath: "ros2/topics.md", Section: "Topics"},
	}, answer.Sources)
	assert.Equal(t, 1, gen.calls)
	assert.Len(t, gen.last.Evidence, len(answer.Sources))
}

func TestQueryService_Ask_EmptyRetrievalSkipsGenerator(t *testing.T) {
	gen := &countingGenerator{text: "should not be used"}
	svc := NewQueryService(&stubRetriever{results: []domain.RetrievalResult{}}, NewPromptBuilder(nil), gen, moduleStore(t, "simulation", "ros2"))

	answer, err := svc.Ask(context.Background(), domain.Query{Question: "How do I bake bread?"})

	require.NoError(t, err)
	assert.Zero(t, gen.calls)
	assert.True(t, answer.Fallback)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, []domain.QueryState{
		domain.QueryStateRetrieving, domain.QueryStateEmpty, domain.QueryStateDone,
	}, answer.Path)
	assert.Contains(t, answer.Text, "Topics covered include: ros2, simulation.")
}

func TestQueryService_Ask_ContentPolicyFallback(t *testing.T) {
	retriever := &stubRetriever{results: []domain.RetrievalResult{evidence("Nodes", "", "ros2/nodes.md", "A node.", 0.9)}}
	gen := &countingGenerator{err: &domain.ContentPolicyError{Provider: "openai", Reason: "content_filter"}}
	svc := NewQueryService(retriever, NewPromptBuilder(nil), gen, nil)

	answer, err := svc.Ask(context.Background(), domain.Query{Question: "something unsafe"})

	require.NoError(t, err)
	assert.True(t, answer.Fallback)
	assert.Equal(t, defaultPrompts["policy_fallback"], answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, domain.QueryStateDone, answer.State())
}

func TestQueryService_Ask_Errors(t *testing.T) {
	t.Run("retrieval error", func(t *testing.T) {
		svc := NewQueryService(&stubRetriever{err: domain.NewInvalidInput("question", "must not be empty")},
			NewPromptBuilder(nil), &countingGenerator{}, nil)

		_, err := svc.Ask(context.Background(), domain.Query{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("generation error", func(t *testing.T) {
		retriever := &stubRetriever{results: []domain.RetrievalResult{evidence("T", "", "t.md", "c", 0.9)}}
		genErr := &domain.TransientProviderError{Provider: "ollama", Op: "chat", Err: errors.New("down")}
		svc := NewQueryService(retriever, NewPromptBuilder(nil), &countingGenerator{err: genErr}, nil)

		_, err := svc.Ask(context.Background(), domain.Query{Question: "q"})

		assert.ErrorIs(t, err, domain.ErrTransientProvider)
	})
}

func TestQueryService_Ask_EndToEnd(t *testing.T) {
	r := newTestRetriever(t, &mockEmbedding{}, coursePassages...)
	llm := &mockLLM{reply: "Gazebo runs the robot model [1]."}
	svc := NewQueryService(r, NewPromptBuilder(nil), NewAnswerGenerator(llm, testLLMSettings, fastRetry), nil)

	answer, err := svc.Ask(context.Background(), domain.Query{Question: "What does gazebo simulation run?"})

	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "simulation/lesson-2.md", answer.Sources[0].SourcePath)
	assert.Contains(t, llm.messages[1].Content, "[1] Lesson 2 > Overview (simulation/lesson-2.md)")
}

func TestQueryService_Retrieve_PassesOptions(t *testing.T) {
	retriever := &stubRetriever{results: []domain.RetrievalResult{}}
	svc := NewQueryService(retriever, NewPromptBuilder(nil), &countingGenerator{}, nil)

	_, err := svc.Retrieve(context.Background(), domain.Query{Question: "q"}, driving.RetrieveOptions{Limit: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, retriever.last.Limit)
}
