package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IndexService manages the indexed document set.
type IndexService interface {
	// IndexDocument chunks, embeds and stores a document atomically.
	IndexDocument(ctx context.Context, doc domain.Document) error

	// UpdateDocument replaces the chunk set of a known document.
	UpdateDocument(ctx context.Context, doc domain.Document) error

	// DeleteIndex removes a document with all its chunks.
	DeleteIndex(ctx context.Context, documentID string) error

	// IndexBatch indexes many documents, stopping between documents
	// when ctx is cancelled.
	IndexBatch(ctx context.Context, docs []domain.Document) (domain.BatchReport, error)

	// ReembedStale refreshes chunks embedded by an inactive model version.
	ReembedStale(ctx context.Context) (int, error)

	// GetIndexStats returns document, chunk and byte counts.
	GetIndexStats(ctx context.Context) (domain.IndexStats, error)

	// OptimizeIndex compacts storage without changing query results.
	OptimizeIndex(ctx context.Context) error

	// State returns the lifecycle state of a document.
	State(documentID string) domain.IndexState

	// Documents lists indexed documents ordered by id.
	Documents() []domain.Document

	// Chunks returns the committed chunks of a document in order.
	Chunks(documentID string) ([]domain.EmbeddedChunk, error)
}
