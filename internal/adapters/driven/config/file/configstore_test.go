package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	_, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestConfigStore_Load_MissingFileUsesDefaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestConfigStore_SaveAndLoad(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultSettings()
	settings.Chunker.MaxTokens = 128
	settings.Embedding.Provider = domain.AIProviderOpenAI
	settings.Embedding.Model = "text-embedding-3-large"
	settings.Embedding.APIKey = "sk-test"
	settings.Embedding.Dimensions = 3072
	settings.Embedding.RequestsPerSecond = 2.5
	settings.Store.ReembedPolicy = domain.ReembedEager
	settings.Search.DefaultThreshold = 0.25

	require.NoError(t, store.Save(settings))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestConfigStore_Load_PartialFileKeepsDefaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	content := `
[chunker]
max_tokens = 64

[search]
default_limit = 3
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))

	settings, err := store.Load()
	require.NoError(t, err)

	want := domain.DefaultSettings()
	want.Chunker.MaxTokens = 64
	want.Search.DefaultLimit = 3
	assert.Equal(t, want, settings)
}

func TestConfigStore_Load_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed toml", "[chunker\nmax_tokens = 1"},
		{"unknown provider", "[embedding]\nprovider = \"llamafile\""},
		{"bad policy", "[store]\nreembed_policy = \"sometimes\""},
		{"zero budget", "[chunker]\nmax_tokens = 0"},
		{"threshold out of range", "[search]\ndefault_threshold = 1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewConfigStore(t.TempDir())
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0600))

			_, err = store.Load()
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestConfigStore_Save_RejectsInvalid(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultSettings()
	settings.Search.Index = "hnsw"

	assert.ErrorIs(t, store.Save(settings), domain.ErrInvalidInput)
	assert.NoFileExists(t, store.Path())
}
