package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// VectorIndex stores IndexEntries in named collections and answers
// nearest-neighbour queries.
//
// Every implementation must guarantee:
//   - EnsureCollection is idempotent and rejects a mismatched existing
//     collection with *domain.IndexIntegrityError.
//   - ReplaceDocument writes the new entries before removing stale ones,
//     so concurrent searches see the old or the new set, never a mix.
//     Calls for the same document are serialized by the implementation.
//   - Search returns an empty slice, not an error, when the filter
//     matches nothing.
type VectorIndex interface {
	// EnsureCollection creates the collection or verifies an existing one.
	EnsureCollection(ctx context.Context, cfg domain.CollectionConfig) error

	// CollectionInfo returns the collection config and entry count.
	// Returns domain.ErrNotFound for an unknown collection.
	CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error)

	// ReplaceDocument upserts entries and deletes any other entries
	// belonging to documentID.
	ReplaceDocument(ctx context.Context, collection, documentID string, entries []domain.IndexEntry) error

	// DeleteDocument removes every entry belonging to documentID.
	DeleteDocument(ctx context.Context, collection, documentID string) error

	// Search returns up to limit hits ordered by descending score.
	Search(ctx context.Context, collection string, query []float32, limit int, filter *domain.MetadataFilter) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// EntryID is the matched entry.
	EntryID string

	// Payload is the stored chunk metadata.
	Payload domain.Payload

	// Score is higher for closer vectors under the collection metric.
	Score float64
}
