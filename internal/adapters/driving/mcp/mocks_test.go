package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer *domain.Answer
	err    error
	got    domain.Query
}

func (m *mockQueryService) Ask(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.got = q
	return m.answer, m.err
}

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	results []domain.RetrievalResult
	err     error
	gotQ    domain.Query
	gotOpts driving.RetrieveOptions
}

func (m *mockRetriever) Retrieve(_ context.Context, q domain.Query, opts driving.RetrieveOptions) ([]domain.RetrievalResult, error) {
	m.gotQ = q
	m.gotOpts = opts
	return m.results, m.err
}

// mockIngestion is a mock implementation of driving.IngestionService.
type mockIngestion struct {
	info    *domain.CollectionInfo
	records []domain.DocumentRecord
	err     error
}

func (m *mockIngestion) IngestAll(context.Context, driving.IngestOptions) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIngestion) IngestPaths(context.Context, []string) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIngestion) Collection(context.Context) (*domain.CollectionInfo, error) {
	return m.info, m.err
}

func (m *mockIngestion) Documents(context.Context) ([]domain.DocumentRecord, error) {
	return m.records, m.err
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports)
	require.NoError(t, err)
	return s
}
