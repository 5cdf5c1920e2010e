package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "llama3.2"))
	require.NoError(t, store.Set("chunking.target_size", int64(800)))
	require.NoError(t, store.Set("llm.temperature", 0.2))
	require.NoError(t, store.Set("debug", true))

	assert.Equal(t, "llama3.2", store.GetString("llm.model"))
	assert.Equal(t, 800, store.GetInt("chunking.target_size"))
	assert.InDelta(t, 0.2, store.GetFloat("llm.temperature"), 1e-9)
	assert.InDelta(t, 800.0, store.GetFloat("chunking.target_size"), 1e-9)
	assert.True(t, store.GetBool("debug"))
}

func TestConfigStore_MissingAndMistyped(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("llm.model", 42))

	assert.Equal(t, "", store.GetString("llm.model"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_Unset(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("index.path", "/tmp/index.db"))

	require.NoError(t, store.Unset("index.path"))
	require.NoError(t, store.Unset("never.set"))

	_, ok := store.Get("index.path")
	assert.False(t, ok)
}

func TestConfigStore_SaveCounts(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Save())
	require.NoError(t, store.Save())

	assert.Equal(t, 2, store.Saves())
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Load())
}
