package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.SearchService = (*Retriever)(nil)

// Retriever answers queries for the generation orchestrator.
type Retriever struct {
	store    *VectorStore
	embedder *EmbeddingClient
}

// NewRetriever creates a retriever over a vector store.
func NewRetriever(store *VectorStore, embedder *EmbeddingClient) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Search ranks stored chunks against a query embedding.
func (r *Retriever) Search(
	ctx context.Context, query []float32, opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	return r.store.Search(ctx, query, opts)
}

// Retrieve embeds the query text with the active model and searches.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if emb.ModelVersion != r.store.ModelVersion() {
		return nil, fmt.Errorf("%w: query embedded by %s, store uses %s",
			domain.ErrDimensionMismatch, emb.ModelVersion, r.store.ModelVersion())
	}

	return r.store.Search(ctx, emb.Vector, opts)
}

// Ground retrieves context for generation. Failures are logged and yield
// no chunks so generation can proceed ungrounded.
func (r *Retriever) Ground(ctx context.Context, query string, opts domain.SearchOptions) []domain.ScoredChunk {
	results, err := r.Retrieve(ctx, query, opts)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("Retrieval failed, continuing without context: %v", err)
		}
		return []domain.ScoredChunk{}
	}
	return results
}
