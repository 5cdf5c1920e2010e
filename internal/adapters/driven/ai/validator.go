package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// CheckResult reports whether one configured component is usable.
type CheckResult struct {
	Component string
	Target    string
	Err       error
}

// OK reports whether the check passed.
func (r CheckResult) OK() bool {
	return r.Err == nil
}

// ConfigValidator validates provider and index configuration by
// connecting to each component once.
type ConfigValidator struct{}

// NewConfigValidator creates a new config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Check creates, pings and closes the embedding service, the LLM and
// the index backend. Every component is checked even if an earlier one fails.
func (v *ConfigValidator) Check(ctx context.Context, settings *domain.AppSettings) []CheckResult {
	return []CheckResult{
		{Component: "embedding", Target: settings.Embedding.ModelVersion(), Err: v.ValidateEmbedding(ctx, &settings.Embedding, settings.Provider)},
		{Component: "llm", Target: domain.ModelVersion(settings.LLM.Provider, settings.LLM.Model), Err: v.ValidateLLM(ctx, &settings.LLM, settings.Provider)},
		{Component: "index", Target: indexTarget(settings.Index), Err: v.ValidateIndex(settings.Index, settings.Provider)},
	}
}

// ValidateEmbedding creates the embedding service and pings it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings, provider domain.ProviderSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings, provider.Timeout)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateLLM creates the LLM service and pings it.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings, provider domain.ProviderSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, settings, provider.Timeout)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateIndex opens and closes the index backend.
func (v *ConfigValidator) ValidateIndex(settings domain.IndexSettings, provider domain.ProviderSettings) error {
	storage, err := CreateStorage(settings, provider)
	if err != nil {
		return err
	}
	return storage.Close()
}

func indexTarget(s domain.IndexSettings) string {
	if s.Backend == domain.IndexBackendQdrant {
		return fmt.Sprintf("qdrant %s (manifest %s)", s.QdrantURL, s.Path)
	}
	if s.Path == "" {
		return string(s.Backend)
	}
	return fmt.Sprintf("%s %s", s.Backend, s.Path)
}
