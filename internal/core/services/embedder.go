package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
	"github.com/custodia-labs/groundwork/internal/retry"
)

// Embedder turns texts into vectors through one EmbeddingService.
// It splits input to the provider batch cap, retries transient failures
// under its policy and stamps every result with one model version.
type Embedder struct {
	service      driven.EmbeddingService
	policy       retry.Policy
	batchSize    int
	modelVersion string
}

// NewEmbedder creates an embedder. batchSize is further capped by the
// service's MaxBatchSize; zero means "use the service cap".
func NewEmbedder(service driven.EmbeddingService, modelVersion string, batchSize int, policy retry.Policy) *Embedder {
	if capSize := service.MaxBatchSize(); capSize > 0 && (batchSize <= 0 || batchSize > capSize) {
		batchSize = capSize
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if policy.Provider == "" {
		policy.Provider = service.ModelName()
	}
	return &Embedder{
		service:      service,
		policy:       policy,
		batchSize:    batchSize,
		modelVersion: modelVersion,
	}
}

// ModelVersion is the tag written on every entry this embedder produces.
func (e *Embedder) ModelVersion() string {
	return e.modelVersion
}

// Dimensions returns the vector size reported by the service.
func (e *Embedder) Dimensions() int {
	return e.service.Dimensions()
}

// BatchSize returns the effective texts-per-request.
func (e *Embedder) BatchSize() int {
	return e.batchSize
}

// Embed returns one vector per text, in input order.
//
// Blank texts are rejected before any provider call. Provider failures are
// returned as *domain.EmbeddingProviderError wrapping the last cause.
// Cancellation returns ctx.Err() unwrapped.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, domain.NewInvalidInput("texts", "text %d is empty", i)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		var vecs [][]float32
		err := e.policy.Do(ctx, "embed", func(ctx context.Context) error {
			v, err := e.service.EmbedBatch(ctx, batch)
			if err != nil {
				return err
			}
			vecs = v
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Embedding batch %d-%d failed: %v", start, end, err)
			return nil, &domain.EmbeddingProviderError{Model: e.modelVersion, Err: err}
		}
		if err := e.checkBatch(batch, vecs); err != nil {
			return nil, &domain.EmbeddingProviderError{Model: e.modelVersion, Err: err}
		}
		out = append(out, vecs...)
	}

	logger.Debug("Embedded %d texts in batches of %d", len(texts), e.batchSize)
	return out, nil
}

func (e *Embedder) checkBatch(batch []string, vecs [][]float32) error {
	if len(vecs) != len(batch) {
		return fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(batch))
	}
	want := e.service.Dimensions()
	for i, v := range vecs {
		if want <= 0 {
			want = len(v)
		}
		if len(v) != want || len(v) == 0 {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), want)
		}
	}
	return nil
}
