package driving

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// IngestOptions tunes an ingestion run.
type IngestOptions struct {
	// ChangedOnly skips documents whose content hash and model version
	// match the manifest.
	ChangedOnly bool

	// Progress, if set, is called after each document finishes.
	Progress func(done, total int, sourcePath string)
}

// IngestionService builds and maintains the index.
type IngestionService interface {
	// IngestAll re-ingests the whole source and removes documents that
	// are no longer present. Safe to run repeatedly.
	IngestAll(ctx context.Context, opts IngestOptions) (*domain.IngestReport, error)

	// IngestPaths re-ingests specific source paths. Paths that no longer
	// exist are removed from the index.
	IngestPaths(ctx context.Context, paths []string) (*domain.IngestReport, error)

	// Collection describes the target collection.
	Collection(ctx context.Context) (*domain.CollectionInfo, error)

	// Documents lists the ingestion manifest.
	Documents(ctx context.Context) ([]domain.DocumentRecord, error)
}
