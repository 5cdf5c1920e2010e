package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retriever embeds a question and returns the evidence that clears the
// score threshold.
type Retriever struct {
	embedder   *Embedder
	index      driven.VectorIndex
	collection string
	defaults   domain.RetrievalSettings
}

// NewRetriever creates a retriever over one collection.
func NewRetriever(embedder *Embedder, index driven.VectorIndex, collection string, defaults domain.RetrievalSettings) *Retriever {
	return &Retriever{
		embedder:   embedder,
		index:      index,
		collection: collection,
		defaults:   defaults,
	}
}

// Retrieve embeds only the question, searches the index and drops
// results below the threshold.
func (r *Retriever) Retrieve(ctx context.Context, query domain.Query, opts driving.RetrieveOptions) ([]domain.RetrievalResult, error) {
	logger.Section("Retrieve")
	start := time.Now()

	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := validateFilter(query.Filter); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit < 0 {
		return nil, domain.NewInvalidInput("limit", "must not be negative, got %d", limit)
	}
	if limit == 0 {
		limit = r.defaults.Limit
	}
	threshold := r.defaults.ScoreThreshold
	if opts.ScoreThreshold != nil {
		threshold = *opts.ScoreThreshold
	}
	logger.Debug("Question: %q, limit=%d, threshold=%.3f, filter=%q", query.Question, limit, threshold, query.Filter.String())

	vecs, err := r.embedder.Embed(ctx, []string{query.Question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := r.index.Search(ctx, r.collection, vecs[0], limit, query.Filter)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.collection, err)
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		results = append(results, domain.RetrievalResult{Payload: h.Payload, Score: h.Score})
	}
	domain.SortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}

	logger.Debug("Retrieved %d of %d hits above threshold in %s", len(results), len(hits), time.Since(start))
	return results, nil
}

func validateFilter(f *domain.MetadataFilter) error {
	if f.IsEmpty() {
		return nil
	}
	for _, c := range f.Clauses {
		if _, ok := (domain.Payload{}).Field(c.Field); !ok {
			return domain.NewInvalidInput("metadata_filter", "unknown field %q", c.Field)
		}
		if len(c.Values) == 0 {
			return domain.NewInvalidInput("metadata_filter", "field %q has no values", c.Field)
		}
	}
	return nil
}
