package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search <query>", searchCmd.Use)
}

func TestSearchCmd_Flags(t *testing.T) {
	limit := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "n", limit.Shorthand)
	assert.Equal(t, "0", limit.DefValue)

	threshold := searchCmd.Flags().Lookup("threshold")
	require.NotNil(t, threshold)
	assert.Equal(t, "t", threshold.Shorthand)

	assert.NotNil(t, searchCmd.Flags().Lookup("json"))
}

func indexCorpus(t *testing.T) string {
	t.Helper()
	dir := corpus(t)
	_, err := execute(t, "index", dir)
	require.NoError(t, err)
	return dir
}

func TestSearchCmd_RanksMatchingDocumentFirst(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	dir := indexCorpus(t)

	out, err := execute(t, "search", "--json", "cat", "mat")
	require.NoError(t, err)

	var results []searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, filepath.Join(dir, "pets.txt"), results[0].DocumentID)
	assert.Equal(t, domain.ChunkID(results[0].DocumentID, 0), results[0].ChunkID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchCmd_ShortLimitFlag(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	indexCorpus(t)

	out, err := execute(t, "search", "-n", "1", "--json", "rain")
	require.NoError(t, err)

	var results []searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 1)
}

func TestSearchCmd_ThresholdFiltersEverything(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	indexCorpus(t)

	out, err := execute(t, "search", "-t", "1", "unrelated words entirely")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_DefaultThresholdFromSettings(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	indexCorpus(t)
	settings.Search.DefaultThreshold = 1

	out, err := execute(t, "search", "cat")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_TableOutput(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	dir := indexCorpus(t)

	out, err := execute(t, "search", "cat")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, filepath.Join(dir, "pets.txt")+"#0")
	assert.Contains(t, out, "score:")
}

func TestSearchCmd_EmptyIndex(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "search", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	searchService = nil

	_, err := execute(t, "search", "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestOutputSearchJSON_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchJSON(rootCmd, []domain.ScoredChunk{})

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "[]")
}

func TestOutputSearchTable_CollapsesWhitespace(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	results := []domain.ScoredChunk{{
		EmbeddedChunk: domain.EmbeddedChunk{Chunk: domain.Chunk{ID: "doc-1#0", DocumentID: "doc-1", Text: "line one\n\nline   two"}},
		Score:         0.95,
	}}

	err := outputSearchTable(rootCmd, results)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "1. doc-1#0 (score: 0.9500)")
	assert.Contains(t, buf.String(), "line one line two")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 80))
	assert.Equal(t, "abcdefg...", snippet(strings.Repeat("abcdefghij", 3), 10))
	assert.Equal(t, "a...", snippet("abcdefgh", 1))
	assert.Equal(t, "héllo wö...", snippet("héllo wörld again", 11))
}

func TestTerminalWidth_NonTerminal(t *testing.T) {
	assert.Equal(t, defaultWidth, terminalWidth(new(bytes.Buffer)))
}
