package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing query service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("missing retriever returns error", func(t *testing.T) {
		_, err := NewServer(&Ports{Query: &mockQueryService{}})
		assert.ErrorIs(t, err, ErrMissingRetriever)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}, Retriever: &mockRetriever{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingQueryService)
	assert.NoError(t, (&Ports{Query: &mockQueryService{}, Retriever: &mockRetriever{}}).Validate())
	assert.NoError(t, (&Ports{
		Query:     &mockQueryService{},
		Retriever: &mockRetriever{},
		Ingestion: &mockIngestion{},
	}).Validate())
}
