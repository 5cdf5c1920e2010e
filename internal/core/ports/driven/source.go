package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// DocumentSource yields the corpus as Documents.
type DocumentSource interface {
	// Load returns every document currently in the source.
	Load(ctx context.Context) ([]domain.Document, error)

	// LoadPath loads a single document by source path.
	// Returns domain.ErrNotFound if the path no longer exists.
	LoadPath(ctx context.Context, sourcePath string) (*domain.Document, error)

	// Root describes where documents are loaded from.
	Root() string
}

// SourceWatcher reports changed source paths until ctx is cancelled.
type SourceWatcher interface {
	// Watch calls onChange with batches of changed source paths.
	Watch(ctx context.Context, onChange func(paths []string)) error
}
