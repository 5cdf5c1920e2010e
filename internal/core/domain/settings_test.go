package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{name: "ollama is valid", provider: AIProviderOllama, expected: true},
		{name: "openai is valid", provider: AIProviderOpenAI, expected: true},
		{name: "anthropic is valid", provider: AIProviderAnthropic, expected: true},
		{name: "empty string is invalid", provider: AIProvider(""), expected: false},
		{name: "unknown provider is invalid", provider: AIProvider("cohere"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestAIProvider_DefaultAPIKeyEnv tests key environment variable names
func TestAIProvider_DefaultAPIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", AIProviderOpenAI.DefaultAPIKeyEnv())
	assert.Equal(t, "ANTHROPIC_API_KEY", AIProviderAnthropic.DefaultAPIKeyEnv())
	assert.Empty(t, AIProviderOllama.DefaultAPIKeyEnv())
}

// TestEmbeddingSettings_IsConfigured tests provider and key requirements
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "sk"}.IsConfigured(),
		"anthropic has no embedding API")
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

// TestLLMSettings_IsConfigured tests provider and key requirements
func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "key"}.IsConfigured())
}

// TestEmbeddingSettings_ModelVersion tests the version tag format
func TestEmbeddingSettings_ModelVersion(t *testing.T) {
	s := EmbeddingSettings{Provider: AIProviderOpenAI, Model: "text-embedding-3-small"}
	assert.Equal(t, "openai/text-embedding-3-small", s.ModelVersion())
}

// TestChunkingSettings_Validate tests overlap bounds
func TestChunkingSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkingSettings
		wantErr bool
	}{
		{name: "valid", cfg: ChunkingSettings{TargetSize: 500, Overlap: 50}},
		{name: "zero overlap", cfg: ChunkingSettings{TargetSize: 500, Overlap: 0}},
		{name: "overlap equals target", cfg: ChunkingSettings{TargetSize: 500, Overlap: 500}, wantErr: true},
		{name: "overlap exceeds target", cfg: ChunkingSettings{TargetSize: 100, Overlap: 200}, wantErr: true},
		{name: "negative overlap", cfg: ChunkingSettings{TargetSize: 100, Overlap: -1}, wantErr: true},
		{name: "zero target", cfg: ChunkingSettings{TargetSize: 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestIndexBackend_IsValid tests backend names
func TestIndexBackend_IsValid(t *testing.T) {
	for _, b := range []IndexBackend{IndexBackendSQLite, IndexBackendBolt, IndexBackendMemory, IndexBackendQdrant} {
		assert.True(t, b.IsValid(), b)
	}
	assert.False(t, IndexBackend("pinecone").IsValid())
}

// TestDefaultAppSettings tests that defaults are internally consistent
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	require.NoError(t, s.Chunking.Validate())
	assert.True(t, s.Embedding.IsConfigured())
	assert.True(t, s.LLM.IsConfigured())
	assert.LessOrEqual(t, s.LLM.Temperature, 0.2)
	assert.Equal(t, MetricCosine, s.Index.Metric)
	assert.True(t, s.Index.Backend.IsValid())
	assert.Positive(t, s.Provider.MaxAttempts)
	assert.Positive(t, s.Provider.Timeout)

	_, ok := EmbeddingDimensions()[s.Embedding.Model]
	assert.True(t, ok, "default embedding model has a known dimension")
}

// TestDefaultModels_CoverProviders tests every provider has a default model
func TestDefaultModels_CoverProviders(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		assert.NotEmpty(t, DefaultEmbeddingModels()[p], p)
	}
	for _, p := range AllLLMProviders() {
		assert.NotEmpty(t, DefaultLLMModels()[p], p)
	}
}
