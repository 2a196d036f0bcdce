package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ChunkStore persists documents with their embedded chunks.
// Backed by SQLite for durable storage.
type ChunkStore interface {
	// ReplaceDocument writes doc and its complete chunk set in one
	// transaction. Chunks previously stored for doc are removed in the
	// same transaction, so readers never see a mix of both sets.
	ReplaceDocument(ctx context.Context, doc domain.Document, chunks []domain.EmbeddedChunk) error

	// DeleteDocument removes a document and, by cascade, its chunks.
	// Returns domain.ErrNotFound if the id is unknown.
	DeleteDocument(ctx context.Context, id string) error

	// GetChunks retrieves the chunks of a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.EmbeddedChunk, error)

	// ListDocuments returns every stored document.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListChunks returns every stored chunk ordered by document and index.
	ListChunks(ctx context.Context) ([]domain.EmbeddedChunk, error)

	// MarkStale flags chunks embedded by any model version other than
	// activeVersion and clears the flag on matching chunks.
	// Returns the number of stale chunks.
	MarkStale(ctx context.Context, activeVersion string) (int, error)

	// Stats returns document and chunk counts with bytes used.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Optimize compacts storage. It must not change stored content.
	Optimize(ctx context.Context) error

	// Close releases resources.
	Close() error
}
