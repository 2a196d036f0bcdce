package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/telemetry"
)

const testDims = 16

// wordOracle embeds text as a bag of hashed words.
type wordOracle struct{}

var _ driven.EmbeddingOracle = wordOracle{}

func (o wordOracle) Embed(_ context.Context, text string) ([]float32, error) {
	return wordVector(text), nil
}

func (o wordOracle) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = wordVector(text)
	}
	return out, nil
}

func (wordOracle) Dimensions() int              { return testDims }
func (wordOracle) ModelVersion() string         { return "test/words@16" }
func (wordOracle) Ping(_ context.Context) error { return nil }
func (wordOracle) Close() error                 { return nil }

func wordVector(text string) []float32 {
	vec := make([]float32, testDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?")
		sum := sha256.Sum256([]byte(w))
		vec[int(sum[0])%testDims]++
	}
	vec[0] += 0.01
	return vec
}

// setupTestServices wires an in-memory vector store into the command
// package and returns a function restoring the previous state.
func setupTestServices(t *testing.T) func() {
	t.Helper()

	pipeline, err := postprocessors.DefaultPipeline(domain.ChunkerSettings{MaxTokens: 32})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	embedder, err := services.NewEmbeddingClient(wordOracle{}, services.WithEmbeddingMetrics(metrics))
	require.NoError(t, err)

	store, err := services.NewVectorStore(memory.NewChunkStore(), pipeline, embedder, services.WithMetrics(metrics))
	require.NoError(t, err)
	require.NoError(t, store.Open(context.Background()))

	oldIndex, oldSearch, oldRegistry, oldSettings := indexService, searchService, metricsRegistry, settings
	indexService = store
	searchService = services.NewRetriever(store, embedder)
	metricsRegistry = reg
	settings = domain.DefaultSettings()

	return func() {
		_ = store.Close()
		indexService, searchService, metricsRegistry, settings = oldIndex, oldSearch, oldRegistry, oldSettings
		resetFlags()
	}
}

// resetFlags restores command flags that persist between executions.
func resetFlags() {
	searchLimit = 0
	searchThreshold = 0
	searchJSON = false
	statsJSON = false
	statsMetrics = false
	for _, name := range []string{"limit", "threshold", "json"} {
		if f := searchCmd.Flags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
	for _, name := range []string{"json", "metrics"} {
		if f := statsCmd.Flags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeFile creates a file under dir, making parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// corpus writes a small document set and returns its directory.
func corpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "pets.txt", "The cat sat on the mat. The cat purred.")
	writeFile(t, dir, "notes/weather.md", "# Weather\n\nRain is expected tomorrow with strong wind.")
	writeFile(t, dir, "image.png", "not text")
	writeFile(t, dir, ".hidden/secret.txt", "hidden file")
	return dir
}
