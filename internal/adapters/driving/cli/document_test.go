package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range documentCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "get"}, names)
}

func TestUpdateCmd_ReplacesContent(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	dir := corpus(t)
	path := filepath.Join(dir, "pets.txt")

	_, err := execute(t, "index", dir)
	require.NoError(t, err)
	writeFile(t, dir, "pets.txt", "Dogs chase balls in the park.")

	out, err := execute(t, "update", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Updated: "+path)
	chunks, err := indexService.Chunks(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Dogs chase balls in the park.", chunks[0].Text)
}

func TestUpdateCmd_UnknownDocument(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	path := writeFile(t, t.TempDir(), "new.txt", "never indexed")

	_, err := execute(t, "update", path)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCmd_RemovesDocument(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	dir := corpus(t)
	path := filepath.Join(dir, "pets.txt")

	_, err := execute(t, "index", dir)
	require.NoError(t, err)

	out, err := execute(t, "delete", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Deleted: "+path)
	assert.Len(t, indexService.Documents(), 1)
	assert.Equal(t, domain.StateDeleted, indexService.State(path))
}

func TestDeleteCmd_UnknownDocument(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "delete", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentList_Empty(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents indexed.")
}

func TestDocumentList_ShowsDocuments(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	dir := corpus(t)
	_, err := execute(t, "index", dir)
	require.NoError(t, err)

	out, err := execute(t, "document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "pets.txt"))
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentGet_ShowsChunks(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	dir := corpus(t)
	path := filepath.Join(dir, "pets.txt")
	_, err := execute(t, "index", dir)
	require.NoError(t, err)

	out, err := execute(t, "document", "get", path)

	require.NoError(t, err)
	assert.Contains(t, out, "State:   indexed")
	assert.Contains(t, out, "Chunks:  1")
	assert.Contains(t, out, "test/words@16")
	assert.Contains(t, out, "The cat sat on the mat.")
}

func TestDocumentGet_Unknown(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "document", "get", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
