package memory

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a flat in-memory driven.VectorIndex.
// It returns the k nearest vectors by cosine similarity.
type VectorIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{vectors: make(map[string][]float32)}
}

// Add inserts or replaces the vector of a chunk.
func (x *VectorIndex) Add(_ context.Context, chunkID string, embedding []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors[chunkID] = append([]float32(nil), embedding...)
	return nil
}

// Delete removes a chunk. Unknown ids are ignored.
func (x *VectorIndex) Delete(_ context.Context, chunkID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.vectors, chunkID)
	return nil
}

// Search returns up to k hits ordered by descending similarity.
func (x *VectorIndex) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(x.vectors))
	for id, vec := range x.vectors {
		if len(vec) != len(query) {
			continue
		}
		hits = append(hits, driven.VectorHit{ChunkID: id, Similarity: cosine(query, vec)})
	}
	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.ChunkID, b.ChunkID)
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Close releases the vectors.
func (x *VectorIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = make(map[string][]float32)
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
