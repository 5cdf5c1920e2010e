package vectors

import (
	"fmt"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// CheckEntries verifies that every entry fits the collection and belongs
// to documentID. Nothing should be written when it fails.
func CheckEntries(cfg domain.CollectionConfig, documentID string, entries []domain.IndexEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return domain.NewInvalidInput("entry_id", "must not be empty")
		}
		if _, dup := seen[e.ID]; dup {
			return domain.NewInvalidInput("entry_id", "duplicate entry %s", e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.Payload.DocumentID != documentID {
			return &domain.IndexIntegrityError{
				Collection: cfg.Name,
				Reason:     fmt.Sprintf("entry %s belongs to document %q, not %q", e.ID, e.Payload.DocumentID, documentID),
			}
		}
		if err := cfg.CheckEntry(e); err != nil {
			return err
		}
	}
	return nil
}

// CheckQuery verifies the query vector dimension.
func CheckQuery(cfg domain.CollectionConfig, query []float32) error {
	if len(query) != cfg.Dimension {
		return &domain.IndexIntegrityError{
			Collection: cfg.Name,
			Reason:     fmt.Sprintf("query has dimension %d, collection has %d", len(query), cfg.Dimension),
		}
	}
	return nil
}
