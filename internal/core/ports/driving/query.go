package driving

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// RetrieveOptions tunes a single retrieval.
// Zero values fall back to the configured defaults.
type RetrieveOptions struct {
	// Limit bounds the number of results.
	Limit int

	// ScoreThreshold drops results scoring below it.
	// A nil pointer means "use the configured default".
	ScoreThreshold *float64
}

// Retriever turns a query into ranked evidence.
type Retriever interface {
	// Retrieve embeds the question, searches the index and applies the
	// score threshold. Returns an empty slice when nothing qualifies.
	Retrieve(ctx context.Context, query domain.Query, opts RetrieveOptions) ([]domain.RetrievalResult, error)
}

// QueryService answers questions with citations.
type QueryService interface {
	// Ask runs the full query pipeline. An empty retrieval produces a
	// fallback answer with no sources, not an error.
	Ask(ctx context.Context, query domain.Query) (*domain.Answer, error)
}
