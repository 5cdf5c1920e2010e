package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// DefaultAPIKeyEnv returns the environment variable holding the provider key.
func (p AIProvider) DefaultAPIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is resolved from APIKeyEnv at load time.
	APIKey string

	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string

	// BatchSize is the largest batch sent in one provider request.
	BatchSize int

	// RequestsPerSecond rate-limits provider calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ModelVersion is the tag stamped on every vector produced with these
// settings. Collections refuse entries carrying a different tag.
func (e EmbeddingSettings) ModelVersion() string {
	return ModelVersion(e.Provider, e.Model)
}

// ModelVersion formats a provider and model as a model-version tag.
func ModelVersion(provider AIProvider, model string) string {
	return string(provider) + "/" + model
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is resolved from APIKeyEnv at load time.
	APIKey string

	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string

	// Temperature is kept low for factual answers.
	Temperature float64

	// MaxTokens caps the answer length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ProviderSettings bounds every external provider call.
type ProviderSettings struct {
	// Timeout applies to a single provider request.
	Timeout time.Duration

	// MaxAttempts is the retry ceiling for transient failures.
	MaxAttempts int
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	TargetSize int
	Overlap    int
}

// Validate rejects an overlap that would never let a chunk advance.
func (c ChunkingSettings) Validate() error {
	if c.TargetSize <= 0 {
		return NewInvalidInput("chunking.target_size", "must be positive, got %d", c.TargetSize)
	}
	if c.Overlap < 0 {
		return NewInvalidInput("chunking.overlap", "must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.TargetSize {
		return NewInvalidInput("chunking.overlap", "must be smaller than target size %d, got %d", c.TargetSize, c.Overlap)
	}
	return nil
}

// RetrievalSettings configures the retriever defaults.
type RetrievalSettings struct {
	Limit          int
	ScoreThreshold float64
}

// IndexBackend names a vector index implementation.
type IndexBackend string

// Available index backends.
const (
	IndexBackendSQLite IndexBackend = "sqlite"
	IndexBackendBolt   IndexBackend = "bolt"
	IndexBackendMemory IndexBackend = "memory"
	IndexBackendQdrant IndexBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexBackendSQLite, IndexBackendBolt, IndexBackendMemory, IndexBackendQdrant:
		return true
	default:
		return false
	}
}

// IndexSettings configures the vector index.
type IndexSettings struct {
	Backend    IndexBackend
	Path       string
	Collection string
	Metric     DistanceMetric
	QdrantURL  string
	// QdrantAPIKey is resolved from the QDRANT_API_KEY environment variable.
	QdrantAPIKey string
}

// IngestSettings configures the ingestion job.
type IngestSettings struct {
	SourceDir string
	Workers   int
}

// ServerSettings configures the HTTP query endpoint.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Provider  ProviderSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Index     IndexSettings
	Ingest    IngestSettings
	Server    ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Both AI providers default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultEmbeddingModels()[AIProviderOllama],
			BatchSize: 64,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Provider: ProviderSettings{
			Timeout:     30 * time.Second,
			MaxAttempts: 4,
		},
		Chunking: ChunkingSettings{
			TargetSize: 1000,
			Overlap:    200,
		},
		Retrieval: RetrievalSettings{
			Limit:          5,
			ScoreThreshold: 0.3,
		},
		Index: IndexSettings{
			Backend:    IndexBackendSQLite,
			Collection: "corpus",
			Metric:     MetricCosine,
			QdrantURL:  "http://localhost:6333",
		},
		Ingest: IngestSettings{
			SourceDir: "docs",
			Workers:   4,
		},
		Server: ServerSettings{
			Addr: "127.0.0.1:8080",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
