package domain

import "errors"

// Domain errors represent expected failure modes of the RAG core.
// Callers discriminate them with errors.Is.
var (
	// ErrNotFound indicates a requested document or chunk does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIngestion indicates a malformed or unreadable document.
	// The document's stored state is unchanged.
	ErrIngestion = errors.New("ingestion failed")

	// ErrEmbeddingUnavailable indicates the embedding oracle is not ready.
	// Index and update fail atomically; no partial chunks are written.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates every candidate was excluded because
	// its dimensionality disagrees with the query.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStorage indicates a disk or I/O fault in the chunk store.
	// The store remains in its last consistent state.
	ErrStorage = errors.New("storage error")

	// ErrStoreClosed indicates the vector store has been closed.
	ErrStoreClosed = errors.New("store closed")
)
