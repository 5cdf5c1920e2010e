package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// DocumentStore persists the ingestion manifest: one record per
// document currently present in the index.
type DocumentStore interface {
	// SaveDocument stores or replaces a record.
	SaveDocument(ctx context.Context, rec *domain.DocumentRecord) error

	// GetDocument retrieves a record by document ID.
	// Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// ListDocuments returns all records ordered by source path.
	ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error)

	// DeleteDocument removes a record. Deleting a missing record is not an error.
	DeleteDocument(ctx context.Context, id string) error

	// ListModules returns the distinct non-empty modules, sorted.
	ListModules(ctx context.Context) ([]string, error)
}
