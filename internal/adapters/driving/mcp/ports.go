package mcp

import (
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Query answers questions.
	Query driving.QueryService

	// Retriever returns ranked evidence without generation.
	Retriever driving.Retriever

	// Ingestion describes the collection and its documents. Optional;
	// without it the resources are empty.
	Ingestion driving.IngestionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
