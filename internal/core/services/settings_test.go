package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/groundwork/internal/core/domain"
)

func newTestSettings(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	service.getenv = func(k string) string { return env[k] }
	return service, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettings(nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Embedding.Model, settings.Embedding.Model)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.LLM.Model, settings.LLM.Model)
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Provider, settings.Provider)
	assert.Equal(t, domain.MetricCosine, settings.Index.Metric)
	assert.Equal(t, "index.db", settings.Index.Path)
	assert.Empty(t, settings.Embedding.APIKeyEnv, "ollama needs no key")
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettings(nil)
	_ = store.Set("chunking.target_size", int64(800))
	_ = store.Set("chunking.overlap", int64(100))
	_ = store.Set("retrieval.score_threshold", 0.55)
	_ = store.Set("index.backend", "bolt")
	_ = store.Set("index.metric", "DOT")
	_ = store.Set("provider.timeout_seconds", int64(10))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.ChunkingSettings{TargetSize: 800, Overlap: 100}, settings.Chunking)
	assert.InDelta(t, 0.55, settings.Retrieval.ScoreThreshold, 1e-9)
	assert.Equal(t, domain.IndexBackendBolt, settings.Index.Backend)
	assert.Equal(t, "index.bolt", settings.Index.Path)
	assert.Equal(t, domain.MetricDot, settings.Index.Metric)
	assert.Equal(t, 10*time.Second, settings.Provider.Timeout)
}

func TestSettingsService_Get_ProviderDefaultsAndKeys(t *testing.T) {
	service, store := newTestSettings(map[string]string{
		"OPENAI_API_KEY":    "sk-openai",
		"ANTHROPIC_API_KEY": "sk-ant",
		"QDRANT_API_KEY":    "qd",
	})
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("llm.provider", "anthropic")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "openai/text-embedding-3-small", settings.Embedding.ModelVersion())
	assert.Equal(t, "sk-openai", settings.Embedding.APIKey)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)
	assert.Equal(t, "qd", settings.Index.QdrantAPIKey)
}

func TestSettingsService_Get_CustomAPIKeyEnv(t *testing.T) {
	service, store := newTestSettings(map[string]string{"GATEWAY_KEY": "gw"})
	_ = store.Set("llm.provider", "openai")
	_ = store.Set("llm.api_key_env", "GATEWAY_KEY")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "gw", settings.LLM.APIKey)
}

func TestSettingsService_Get_InvalidStoredMetric(t *testing.T) {
	service, store := newTestSettings(nil)
	_ = store.Set("index.metric", "manhattan")

	_, err := service.Get()

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	service, store := newTestSettings(nil)

	require.NoError(t, service.Set("retrieval.limit", " 8 "))
	require.NoError(t, service.Set("llm.temperature", "0.2"))
	require.NoError(t, service.Set("index.metric", "Euclidean"))
	require.NoError(t, service.Set("llm.provider", "openai"))

	v, _ := store.Get("retrieval.limit")
	assert.Equal(t, int64(8), v)
	assert.Equal(t, "euclidean", store.GetString("index.metric"))
	assert.Equal(t, 4, store.Saves())

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 8, settings.Retrieval.Limit)
	assert.InDelta(t, 0.2, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"search.mode", "hybrid"},
		{"retrieval.limit", "many"},
		{"retrieval.score_threshold", "high"},
		{"embedding.provider", "cohere"},
		{"index.backend", "postgres"},
		{"index.metric", "manhattan"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			service, store := newTestSettings(nil)

			err := service.Set(tt.key, tt.value)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, store.Saves())
		})
	}
}

func TestSettingsService_Set_InconsistentValueRestored(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, service.Set("chunking.overlap", "300"))

	err := service.Set("chunking.overlap", "1000")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	v, _ := store.Get("chunking.overlap")
	assert.Equal(t, int64(300), v)

	err = service.Set("embedding.provider", "anthropic")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, had := store.Get("embedding.provider")
	assert.False(t, had, "unset key stays unset")
	assert.Equal(t, 1, store.Saves())
}

func TestSettingsService_Value(t *testing.T) {
	service, store := newTestSettings(nil)
	_ = store.Set("retrieval.score_threshold", 0.45)

	for _, key := range service.Keys() {
		_, err := service.Value(key)
		assert.NoError(t, err, key)
	}

	v, err := service.Value("retrieval.score_threshold")
	require.NoError(t, err)
	assert.Equal(t, "0.45", v)

	v, err = service.Value("provider.timeout_seconds")
	require.NoError(t, err)
	assert.Equal(t, "30", v)

	_, err = service.Value("nope")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Keys(t *testing.T) {
	service, _ := newTestSettings(nil)

	keys := service.Keys()

	assert.Equal(t, "embedding.provider", keys[0])
	assert.Contains(t, keys, "index.qdrant_url")
	assert.Len(t, keys, len(settingKeys))
}

func TestSettingsService_Validate(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, service.Validate())

	_ = store.Set("llm.temperature", 3.0)
	_ = store.Set("ingest.workers", int64(0))

	err := service.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.temperature")
	assert.Contains(t, err.Error(), "ingest.workers")
}

func TestSettingsService_DefaultIndexPathFollowsConfig(t *testing.T) {
	service, store := newTestSettings(nil)
	_ = store.Set("index.path", filepath.Join("var", "lib", "course.db"))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("var", "lib", "course.db"), settings.Index.Path)
}
