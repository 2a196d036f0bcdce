package services

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// fakeOracle implements driven.EmbeddingOracle for testing.
// Texts listed in vectors get that vector; others get a bag-of-words hash.
type fakeOracle struct {
	mu      sync.Mutex
	dims    int
	version string
	vectors map[string][]float32
	err     error
	calls   int
	texts   []string
	hook    func(call int, texts []string)
}

var _ driven.EmbeddingOracle = (*fakeOracle)(nil)

func newFakeOracle(dims int, version string) *fakeOracle {
	return &fakeOracle{dims: dims, version: version, vectors: make(map[string][]float32)}
}

func (f *fakeOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeOracle) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.texts = append(f.texts, texts...)
	err := f.err
	hook := f.hook
	dims := f.dims
	f.mu.Unlock()

	if hook != nil {
		hook(call, texts)
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		f.mu.Lock()
		vec, ok := f.vectors[text]
		f.mu.Unlock()
		if ok {
			out[i] = append([]float32(nil), vec...)
			continue
		}
		out[i] = hashVector(text, dims)
	}
	return out, nil
}

func (f *fakeOracle) Dimensions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dims
}

func (f *fakeOracle) ModelVersion() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *fakeOracle) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeOracle) Close() error { return nil }

func (f *fakeOracle) set(text string, vec ...float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[text] = vec
}

func (f *fakeOracle) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeOracle) switchModel(version string, dims int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version = version
	f.dims = dims
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// hashVector spreads the words of text over dims buckets.
func hashVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(w))
		vec[int(sum[0])%dims]++
	}
	vec[0] += 0.01
	return vec
}

type storeFixture struct {
	store    *VectorStore
	chunks   *memory.ChunkStore
	oracle   *fakeOracle
	embedder *EmbeddingClient
}

func newFixture(t *testing.T, oracle *fakeOracle, chunks *memory.ChunkStore, maxTokens int, opts ...VectorStoreOption) *storeFixture {
	t.Helper()
	if chunks == nil {
		chunks = memory.NewChunkStore()
	}

	pipeline, err := postprocessors.DefaultPipeline(domain.ChunkerSettings{MaxTokens: maxTokens})
	require.NoError(t, err)

	embedder, err := NewEmbeddingClient(oracle)
	require.NoError(t, err)

	store, err := NewVectorStore(chunks, pipeline, embedder, opts...)
	require.NoError(t, err)
	require.NoError(t, store.Open(context.Background()))

	return &storeFixture{store: store, chunks: chunks, oracle: oracle, embedder: embedder}
}

func chunkIDs(results []domain.ScoredChunk) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func embeddedChunk(docID string, index int, version string, vec ...float32) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Chunk: domain.Chunk{
			ID:         domain.ChunkID(docID, index),
			DocumentID: docID,
			Index:      index,
			Text:       "chunk " + domain.ChunkID(docID, index),
		},
		Embedding:    vec,
		ModelVersion: version,
	}
}
