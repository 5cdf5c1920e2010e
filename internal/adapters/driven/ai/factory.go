// Package ai provides factory functions for creating provider and index
// adapters from application settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/groundwork/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/groundwork/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/groundwork/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/groundwork/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/groundwork/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/retry"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// fixHint is appended to configuration errors.
const fixHint = "Run 'groundwork settings list' to review the configuration"

// Storage bundles the vector index with the ingestion manifest.
type Storage struct {
	VectorIndex   driven.VectorIndex
	DocumentStore driven.DocumentStore
	closers       []func() error
}

// Close releases the index and manifest.
func (s *Storage) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// CreateStorage opens the configured index backend.
//
// sqlite and bolt keep vectors and manifest in one file. qdrant stores
// vectors remotely and the manifest in a local SQLite file. memory keeps
// both in process and is meant for tests and one-shot runs.
func CreateStorage(settings domain.IndexSettings, provider domain.ProviderSettings) (*Storage, error) {
	switch settings.Backend {
	case domain.IndexBackendSQLite:
		store, err := sqlite.NewStore(settings.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return &Storage{VectorIndex: store.VectorIndex(), DocumentStore: store.DocumentStore(), closers: []func() error{store.Close}}, nil

	case domain.IndexBackendBolt:
		store, err := bolt.NewStore(settings.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return &Storage{VectorIndex: store.VectorIndex(), DocumentStore: store.DocumentStore(), closers: []func() error{store.Close}}, nil

	case domain.IndexBackendMemory:
		idx := memory.NewVectorIndex()
		return &Storage{VectorIndex: idx, DocumentStore: memory.NewDocumentStore(), closers: []func() error{idx.Close}}, nil

	case domain.IndexBackendQdrant:
		idx, err := qdrant.New(qdrant.Config{
			URL:     settings.QdrantURL,
			APIKey:  settings.QdrantAPIKey,
			Timeout: provider.Timeout,
			Retry:   RetryPolicy(provider, "qdrant", 0),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		manifest, err := sqlite.NewStore(settings.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: manifest: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return &Storage{VectorIndex: idx, DocumentStore: manifest.DocumentStore(), closers: []func() error{idx.Close, manifest.Close}}, nil

	default:
		return nil, fmt.Errorf("%w: index backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}

// RetryPolicy builds the retry policy for one provider from the shared
// provider settings. rps of zero disables client-side rate limiting.
func RetryPolicy(settings domain.ProviderSettings, provider string, rps float64) retry.Policy {
	return retry.Policy{
		Provider:    provider,
		MaxAttempts: settings.MaxAttempts,
		Timeout:     settings.Timeout,
		Limiter:     retry.NewLimiter(rps),
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings, timeout time.Duration) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings, timeout)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). %s",
			domain.ErrEmbeddingUnavailable, settings.Provider, err, fixHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings, timeout time.Duration) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings, timeout)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). %s",
			domain.ErrLLMUnavailable, settings.Provider, err, fixHint)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service named by settings.
// An unconfigured provider, such as a missing API key, is an error.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, timeout time.Duration) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrEmbeddingUnavailable)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderOpenAI:
		if settings.APIKey == "" {
			return nil, missingKey(domain.ErrEmbeddingUnavailable, settings.Provider, settings.APIKeyEnv)
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the LLM service named by settings.
func CreateLLMService(settings *domain.LLMSettings, timeout time.Duration) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no LLM settings", domain.ErrLLMUnavailable)
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, missingKey(domain.ErrLLMUnavailable, settings.Provider, settings.APIKeyEnv)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

func missingKey(sentinel error, provider domain.AIProvider, env string) error {
	if env == "" {
		env = provider.DefaultAPIKeyEnv()
	}
	return fmt.Errorf("%w: %s requires an API key; set %s", sentinel, provider, env)
}
