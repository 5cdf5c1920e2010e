package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// Normaliser transforms a raw file into a Document.
// Each normaliser handles specific file extensions.
type Normaliser interface {
	// SupportedExtensions returns lower-case extensions including the dot.
	SupportedExtensions() []string

	// Normalise builds a Document. Title, section hierarchy and extra
	// metadata are taken from the file where available.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}
