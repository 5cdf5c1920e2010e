package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKeyEnv  = "embedding.api_key_env"
	keyEmbedBatchSize  = "embedding.batch_size"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKeyEnv    = "llm.api_key_env"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyChunkTarget     = "chunking.target_size"
	keyChunkOverlap    = "chunking.overlap"
	keyRetrievalLimit  = "retrieval.limit"
	keyRetrievalThresh = "retrieval.score_threshold"
	keyIndexBackend    = "index.backend"
	keyIndexPath       = "index.path"
	keyIndexCollection = "index.collection"
	keyIndexMetric     = "index.metric"
	keyIndexQdrantURL  = "index.qdrant_url"
	keyIngestSourceDir = "ingest.source_dir"
	keyIngestWorkers   = "ingest.workers"
	keyProviderTimeout = "provider.timeout_seconds"
	keyProviderMaxAtt  = "provider.max_attempts"
	keyServerAddr      = "server.addr"
)

// qdrantAPIKeyEnv holds the optional qdrant API key.
const qdrantAPIKeyEnv = "QDRANT_API_KEY"

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindProvider
	kindBackend
	kindMetric
)

// settingKeys lists every recognised key in display order.
var settingKeys = []struct {
	name string
	kind keyKind
}{
	{keyEmbedProvider, kindProvider},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKeyEnv, kindString},
	{keyEmbedBatchSize, kindInt},
	{keyEmbedRPS, kindFloat},
	{keyLLMProvider, kindProvider},
	{keyLLMModel, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKeyEnv, kindString},
	{keyLLMTemperature, kindFloat},
	{keyLLMMaxTokens, kindInt},
	{keyChunkTarget, kindInt},
	{keyChunkOverlap, kindInt},
	{keyRetrievalLimit, kindInt},
	{keyRetrievalThresh, kindFloat},
	{keyIndexBackend, kindBackend},
	{keyIndexPath, kindString},
	{keyIndexCollection, kindString},
	{keyIndexMetric, kindMetric},
	{keyIndexQdrantURL, kindString},
	{keyIngestSourceDir, kindString},
	{keyIngestWorkers, kindInt},
	{keyProviderTimeout, kindInt},
	{keyProviderMaxAtt, kindInt},
	{keyServerAddr, kindString},
}

// SettingsService maps flattened config keys onto AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// API keys are read from the environment variables named in the config.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	metric, err := domain.ParseDistanceMetric(s.configStore.GetString(keyIndexMetric))
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
		Provider: domain.ProviderSettings{
			Timeout:     time.Duration(s.getInt(keyProviderTimeout, int(defaults.Provider.Timeout/time.Second))) * time.Second,
			MaxAttempts: s.getInt(keyProviderMaxAtt, defaults.Provider.MaxAttempts),
		},
		Chunking: domain.ChunkingSettings{
			TargetSize: s.getInt(keyChunkTarget, defaults.Chunking.TargetSize),
			Overlap:    s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			Limit:          s.getInt(keyRetrievalLimit, defaults.Retrieval.Limit),
			ScoreThreshold: s.getFloat(keyRetrievalThresh, defaults.Retrieval.ScoreThreshold),
		},
		Index: domain.IndexSettings{
			Backend:      s.getBackend(defaults.Index.Backend),
			Path:         s.configStore.GetString(keyIndexPath),
			Collection:   s.getString(keyIndexCollection, defaults.Index.Collection),
			Metric:       metric,
			QdrantURL:    s.getString(keyIndexQdrantURL, defaults.Index.QdrantURL),
			QdrantAPIKey: s.getenv(qdrantAPIKeyEnv),
		},
		Ingest: domain.IngestSettings{
			SourceDir: s.getString(keyIngestSourceDir, defaults.Ingest.SourceDir),
			Workers:   s.getInt(keyIngestWorkers, defaults.Ingest.Workers),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
	}

	// Models default per provider, so a provider switch alone picks a working model.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	settings.Embedding.APIKeyEnv = s.getString(keyEmbedAPIKeyEnv, settings.Embedding.Provider.DefaultAPIKeyEnv())
	settings.LLM.APIKeyEnv = s.getString(keyLLMAPIKeyEnv, settings.LLM.Provider.DefaultAPIKeyEnv())
	if settings.Embedding.APIKeyEnv != "" {
		settings.Embedding.APIKey = s.getenv(settings.Embedding.APIKeyEnv)
	}
	if settings.LLM.APIKeyEnv != "" {
		settings.LLM.APIKey = s.getenv(settings.LLM.APIKeyEnv)
	}

	if settings.Index.Path == "" {
		settings.Index.Path = s.defaultIndexPath(settings.Index.Backend)
	}

	return settings, nil
}

// Set validates and stores a single setting by key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := lookupKey(key)
	if !ok {
		return domain.NewInvalidInput(key, "unknown setting")
	}
	value = strings.TrimSpace(value)

	var stored any = value
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return domain.NewInvalidInput(key, "expected an integer, got %q", value)
		}
		stored = int64(n)
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return domain.NewInvalidInput(key, "expected a number, got %q", value)
		}
		stored = f
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return domain.NewInvalidInput(key, "unknown provider %q", value)
		}
	case kindBackend:
		if !domain.IndexBackend(value).IsValid() {
			return domain.NewInvalidInput(key, "unknown backend %q", value)
		}
	case kindMetric:
		m, err := domain.ParseDistanceMetric(value)
		if err != nil {
			return err
		}
		stored = m.String()
	}

	previous, had := s.configStore.Get(key)
	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.Validate(); err != nil {
		// Restore so the rejected value does not linger in memory.
		var rerr error
		if had {
			rerr = s.configStore.Set(key, previous)
		} else {
			rerr = s.configStore.Unset(key)
		}
		return errors.Join(err, rerr)
	}
	return s.configStore.Save()
}

// Keys lists the recognised setting keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.name
	}
	return keys
}

// Value returns the effective value of a setting key as text.
//
//nolint:gocyclo // Flat key switch
func (s *SettingsService) Value(key string) (string, error) {
	st, err := s.Get()
	if err != nil {
		return "", err
	}

	switch key {
	case keyEmbedProvider:
		return st.Embedding.Provider.String(), nil
	case keyEmbedModel:
		return st.Embedding.Model, nil
	case keyEmbedBaseURL:
		return st.Embedding.BaseURL, nil
	case keyEmbedAPIKeyEnv:
		return st.Embedding.APIKeyEnv, nil
	case keyEmbedBatchSize:
		return strconv.Itoa(st.Embedding.BatchSize), nil
	case keyEmbedRPS:
		return formatFloat(st.Embedding.RequestsPerSecond), nil
	case keyLLMProvider:
		return st.LLM.Provider.String(), nil
	case keyLLMModel:
		return st.LLM.Model, nil
	case keyLLMBaseURL:
		return st.LLM.BaseURL, nil
	case keyLLMAPIKeyEnv:
		return st.LLM.APIKeyEnv, nil
	case keyLLMTemperature:
		return formatFloat(st.LLM.Temperature), nil
	case keyLLMMaxTokens:
		return strconv.Itoa(st.LLM.MaxTokens), nil
	case keyChunkTarget:
		return strconv.Itoa(st.Chunking.TargetSize), nil
	case keyChunkOverlap:
		return strconv.Itoa(st.Chunking.Overlap), nil
	case keyRetrievalLimit:
		return strconv.Itoa(st.Retrieval.Limit), nil
	case keyRetrievalThresh:
		return formatFloat(st.Retrieval.ScoreThreshold), nil
	case keyIndexBackend:
		return string(st.Index.Backend), nil
	case keyIndexPath:
		return st.Index.Path, nil
	case keyIndexCollection:
		return st.Index.Collection, nil
	case keyIndexMetric:
		return st.Index.Metric.String(), nil
	case keyIndexQdrantURL:
		return st.Index.QdrantURL, nil
	case keyIngestSourceDir:
		return st.Ingest.SourceDir, nil
	case keyIngestWorkers:
		return strconv.Itoa(st.Ingest.Workers), nil
	case keyProviderTimeout:
		return strconv.Itoa(int(st.Provider.Timeout / time.Second)), nil
	case keyProviderMaxAtt:
		return strconv.Itoa(st.Provider.MaxAttempts), nil
	case keyServerAddr:
		return st.Server.Addr, nil
	default:
		return "", domain.NewInvalidInput(key, "unknown setting")
	}
}

// Validate checks the current settings for consistency.
// API keys are not checked here; the ai factory reports a missing key
// when a provider is actually created.
func (s *SettingsService) Validate() error {
	st, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if st.Embedding.Provider == domain.AIProviderAnthropic {
		errs = append(errs, domain.NewInvalidInput(keyEmbedProvider, "anthropic does not provide embeddings"))
	}
	if st.Embedding.BatchSize <= 0 {
		errs = append(errs, domain.NewInvalidInput(keyEmbedBatchSize, "must be positive"))
	}
	if st.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, domain.NewInvalidInput(keyEmbedRPS, "must not be negative"))
	}
	if st.LLM.Temperature < 0 || st.LLM.Temperature > 2 {
		errs = append(errs, domain.NewInvalidInput(keyLLMTemperature, "must be between 0 and 2"))
	}
	if st.LLM.MaxTokens <= 0 {
		errs = append(errs, domain.NewInvalidInput(keyLLMMaxTokens, "must be positive"))
	}
	if err := st.Chunking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if st.Retrieval.Limit <= 0 {
		errs = append(errs, domain.NewInvalidInput(keyRetrievalLimit, "must be positive"))
	}
	if st.Index.Collection == "" {
		errs = append(errs, domain.NewInvalidInput(keyIndexCollection, "must not be empty"))
	}
	if st.Ingest.Workers <= 0 {
		errs = append(errs, domain.NewInvalidInput(keyIngestWorkers, "must be positive"))
	}
	if st.Provider.Timeout <= 0 {
		errs = append(errs, domain.NewInvalidInput(keyProviderTimeout, "must be positive"))
	}
	if st.Provider.MaxAttempts <= 0 {
		errs = append(errs, domain.NewInvalidInput(keyProviderMaxAtt, "must be positive"))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// defaultIndexPath places persistent indexes next to the config file.
// The qdrant backend keeps its ingestion manifest in SQLite.
func (s *SettingsService) defaultIndexPath(backend domain.IndexBackend) string {
	dir := filepath.Dir(s.configStore.Path())
	switch backend {
	case domain.IndexBackendSQLite, domain.IndexBackendQdrant:
		return filepath.Join(dir, "index.db")
	case domain.IndexBackendBolt:
		return filepath.Join(dir, "index.bolt")
	default:
		return ""
	}
}

func lookupKey(key string) (keyKind, bool) {
	for _, k := range settingKeys {
		if k.name == key {
			return k.kind, true
		}
	}
	return 0, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.configStore.GetString(keyIndexBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
