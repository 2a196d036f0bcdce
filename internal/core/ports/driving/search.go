package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService provides retrieval to the generation orchestrator.
type SearchService interface {
	// Search ranks stored chunks against a query embedding.
	Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error)

	// Retrieve embeds the query text and ranks stored chunks against it.
	Retrieve(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.ScoredChunk, error)

	// Ground is Retrieve that never fails. On any error it returns no
	// chunks, so generation proceeds without retrieved context.
	Ground(ctx context.Context, query string, opts domain.SearchOptions) []domain.ScoredChunk
}
