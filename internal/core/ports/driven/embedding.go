// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService is a single embedding provider.
//
// Adapters make exactly one provider request per EmbedBatch call and
// classify failures: retriable failures are returned as
// *domain.TransientProviderError, rejected input as *domain.InvalidInputError.
// Splitting, retries and rate limiting are handled by the core embedder.
//
// Implementations include:
//   - OpenAI or any OpenAI-compatible endpoint
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// EmbedBatch returns one vector per text, in input order.
	// len(texts) never exceeds MaxBatchSize.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// MaxBatchSize is the provider-imposed cap on texts per request.
	MaxBatchSize() int

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
