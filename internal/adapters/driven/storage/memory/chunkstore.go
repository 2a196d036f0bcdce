package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.EmbeddedChunk
	closed    bool
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.EmbeddedChunk),
	}
}

// ReplaceDocument stores doc with its complete chunk set.
func (s *ChunkStore) ReplaceDocument(_ context.Context, doc domain.Document, chunks []domain.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	doc.Content = ""
	doc.TotalChunks = len(chunks)
	s.documents[doc.ID] = doc
	s.chunks[doc.ID] = cloneChunks(chunks)
	return nil
}

// DeleteDocument removes a document and its chunks.
func (s *ChunkStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// GetChunks retrieves all chunks for a document.
func (s *ChunkStore) GetChunks(_ context.Context, documentID string) ([]domain.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneChunks(s.chunks[documentID]), nil
}

// ListDocuments returns every document ordered by id.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListChunks returns every chunk ordered by document and index.
func (s *ChunkStore) ListChunks(_ context.Context) ([]domain.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []domain.EmbeddedChunk
	for _, id := range ids {
		result = append(result, cloneChunks(s.chunks[id])...)
	}
	return result, nil
}

// MarkStale flags chunks of any other model version.
func (s *ChunkStore) MarkStale(_ context.Context, activeVersion string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stale := 0
	for _, chunks := range s.chunks {
		for i := range chunks {
			chunks[i].Stale = chunks[i].ModelVersion != activeVersion
			if chunks[i].Stale {
				stale++
			}
		}
	}
	return stale, nil
}

// Stats returns counts of stored documents and chunks.
func (s *ChunkStore) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.IndexStats{DocumentCount: len(s.documents)}
	for _, chunks := range s.chunks {
		for i := range chunks {
			stats.ChunkCount++
			stats.BytesUsed += int64(len(chunks[i].Text)) + int64(4*len(chunks[i].Embedding))
			if chunks[i].Stale {
				stats.StaleChunkCount++
			}
		}
	}
	return stats, nil
}

// Optimize is a no-op for the in-memory store.
func (s *ChunkStore) Optimize(_ context.Context) error {
	return nil
}

// Close marks the store closed.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneChunks(chunks []domain.EmbeddedChunk) []domain.EmbeddedChunk {
	if chunks == nil {
		return nil
	}
	out := make([]domain.EmbeddedChunk, len(chunks))
	for i := range chunks {
		out[i] = chunks[i]
		out[i].Embedding = append([]float32(nil), chunks[i].Embedding...)
	}
	return out
}
