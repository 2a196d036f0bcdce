package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestConfigStore_LoadDefaults(t *testing.T) {
	store := NewConfigStore()

	s, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s)
	assert.False(t, store.Saved())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Save(t *testing.T) {
	store := NewConfigStore()
	s := domain.DefaultSettings()
	s.Chunker.MaxTokens = 64

	require.NoError(t, store.Save(s))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 64, loaded.Chunker.MaxTokens)
	assert.True(t, store.Saved())
}

func TestConfigStore_SaveRejectsInvalid(t *testing.T) {
	store := NewConfigStore()
	s := domain.DefaultSettings()
	s.Chunker.MaxTokens = 0

	err := store.Save(s)

	require.Error(t, err)
	assert.False(t, store.Saved())
	loaded, _ := store.Load()
	assert.Equal(t, domain.DefaultSettings().Chunker.MaxTokens, loaded.Chunker.MaxTokens)
}
