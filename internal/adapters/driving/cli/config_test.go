package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// useMemoryConfig swaps the config file for an in-memory store.
func useMemoryConfig(t *testing.T) *memory.ConfigStore {
	t.Helper()
	store := memory.NewConfigStore()
	old := newConfigStore
	newConfigStore = func(string) (driven.ConfigStore, error) { return store, nil }
	t.Cleanup(func() { newConfigStore = old })
	return store
}

func TestConfigCmd_SkipsServices(t *testing.T) {
	for _, c := range []string{"show", "init", "set"} {
		cmd, _, err := rootCmd.Find([]string{"config", c})
		require.NoError(t, err)
		assert.False(t, needsServices(cmd), c)
	}
}

func TestConfigShow(t *testing.T) {
	useMemoryConfig(t)

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Config: :memory:")
	assert.Contains(t, out, "Provider: Ollama (local)")
	assert.Contains(t, out, "Model: nomic-embed-text")
	assert.Contains(t, out, "Re-embed policy: lazy")
	assert.Contains(t, out, "Default limit: 10")
	assert.NotContains(t, out, "API Key")
}

func TestConfigShow_MasksAPIKey(t *testing.T) {
	store := useMemoryConfig(t)
	s := domain.DefaultSettings()
	s.Embedding.Provider = domain.AIProviderOpenAI
	s.Embedding.APIKey = "sk-1234567890abcdef"
	require.NoError(t, store.Save(s))

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "567890")
}

func TestConfigInit_SavesDefaults(t *testing.T) {
	store := useMemoryConfig(t)

	out, err := execute(t, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote :memory:")
	assert.True(t, store.Saved())
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, s domain.Settings)
	}{
		{"chunker.max_tokens", "128", func(t *testing.T, s domain.Settings) { assert.Equal(t, 128, s.Chunker.MaxTokens) }},
		{"embedding.provider", "openai", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, domain.AIProviderOpenAI, s.Embedding.Provider)
		}},
		{"embedding.requests_per_second", "2.5", func(t *testing.T, s domain.Settings) {
			assert.InDelta(t, 2.5, s.Embedding.RequestsPerSecond, 1e-9)
		}},
		{"store.reembed_policy", "eager", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, domain.ReembedEager, s.Store.ReembedPolicy)
		}},
		{"search.default_threshold", "0.25", func(t *testing.T, s domain.Settings) {
			assert.InDelta(t, 0.25, s.Search.DefaultThreshold, 1e-9)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := useMemoryConfig(t)

			out, err := execute(t, "config", "set", tt.key, tt.value)

			require.NoError(t, err)
			assert.Contains(t, out, "Set "+tt.key)
			s, err := store.Load()
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestConfigSet_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"nope", "1"}},
		{"not a number", []string{"chunker.max_tokens", "many"}},
		{"fails validation", []string{"store.reembed_policy", "sometimes"}},
		{"out of range", []string{"search.default_threshold", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := useMemoryConfig(t)

			_, err := execute(t, append([]string{"config", "set"}, tt.args...)...)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.False(t, store.Saved())
		})
	}
}

func TestConfigSet_APIKeyFromStdin(t *testing.T) {
	store := useMemoryConfig(t)
	rootCmd.SetIn(strings.NewReader("sk-secret-value\n"))

	_, err := execute(t, "config", "set", "embedding.api_key", "-")

	require.NoError(t, err)
	s, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-value", s.Embedding.APIKey)
}

func TestConfigSet_WritesTOMLFile(t *testing.T) {
	dir := t.TempDir()
	old := configDir
	configDir = dir
	defer func() { configDir = old }()

	_, err := execute(t, "config", "set", "search.default_limit", "25")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_limit = 25")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghijklmnopqrstuvwxyz"))
}

func TestSettingKeys_Sorted(t *testing.T) {
	keys := settingKeys()
	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "embedding.api_key")
}
