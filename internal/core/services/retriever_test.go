package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newRetrieverFixture(t *testing.T) (*Retriever, *storeFixture) {
	t.Helper()
	oracle := petsOracle()
	oracle.set("which animal sat", 0.9, 0.1, 0)
	f := newFixture(t, oracle, nil, 8)
	require.NoError(t, f.store.IndexDocument(context.Background(), domain.Document{ID: "pets", Content: petsText}))
	return NewRetriever(f.store, f.embedder), f
}

func TestRetriever_Retrieve(t *testing.T) {
	r, _ := newRetrieverFixture(t)

	results, err := r.Retrieve(context.Background(), "which animal sat", domain.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, catText, results[0].Text)
}

func TestRetriever_Retrieve_EmptyQuery(t *testing.T) {
	r, _ := newRetrieverFixture(t)

	_, err := r.Retrieve(context.Background(), "", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetriever_Search(t *testing.T) {
	r, _ := newRetrieverFixture(t)

	results, err := r.Search(context.Background(), []float32{0, 1, 0}, domain.SearchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"pets#1"}, chunkIDs(results))
}

func TestRetriever_Ground(t *testing.T) {
	r, f := newRetrieverFixture(t)
	ctx := context.Background()

	assert.Len(t, r.Ground(ctx, "which animal sat", domain.SearchOptions{Limit: 1}), 1)

	f.oracle.fail(errors.New("connection refused"))
	results := r.Ground(ctx, "a question never asked", domain.SearchOptions{})
	assert.NotNil(t, results)
	assert.Empty(t, results)

	assert.Empty(t, r.Ground(ctx, "", domain.SearchOptions{}))
}
