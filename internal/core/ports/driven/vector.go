package driven

import "context"

// VectorIndex is a sub-linear candidate generator for similarity search,
// e.g. an inverted-file or graph-based nearest-neighbour index.
// Swapping one in trades exactness for speed; the kind in use is logged.
type VectorIndex interface {
	// Add inserts a vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, chunkID string) error

	// Search returns up to k candidate chunk ids near the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a candidate returned by a VectorIndex.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the index's own similarity estimate.
	// Final scores are always recomputed exactly.
	Similarity float64
}
