package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document represents a text document handed to the core by a document source.
// Once submitted it is owned by the vector store.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the full text content before chunking.
	Content string

	// Source tags where the document came from (file, note, message...).
	// The core never interprets it.
	Source string

	// ContentHash is the hex SHA-256 of Content, used for change detection.
	// The vector store always computes it from Content; a caller's value is
	// ignored.
	ContentHash string

	// TotalChunks is the number of chunks in the current chunk set.
	TotalChunks int

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the chunk set was last replaced.
	UpdatedAt time.Time

	// Indexed reports whether a complete chunk set is committed.
	Indexed bool
}

// ContentHash returns the hex encoded SHA-256 digest of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Chunk represents a searchable unit within a document.
type Chunk struct {
	// ID is DocumentID and Index joined by ChunkIDSeparator.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the ordinal position within the document, contiguous from 0.
	Index int

	// Text is the exact chunk text as it appears in the document.
	Text string

	// TokenCount is the estimated number of tokens in Text.
	TokenCount int
}

// ChunkIDSeparator joins a document id and a chunk index into a chunk id.
const ChunkIDSeparator = "#"

// ChunkID builds the id of the chunk at index within documentID.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s%s%d", documentID, ChunkIDSeparator, index)
}

// EmbeddedChunk is a chunk together with the vector that represents it.
type EmbeddedChunk struct {
	Chunk

	// Embedding is the vector produced by the embedding model.
	// Nil when the stored blob could not be decoded.
	Embedding []float32

	// ModelVersion identifies the embedding model that produced Embedding.
	ModelVersion string

	// Stale marks embeddings from a model version that is no longer active.
	// Stale chunks are never compared against queries.
	Stale bool

	// Corrupt marks a stored embedding that could not be read back.
	Corrupt bool

	// CreatedAt is when the embedding was stored.
	CreatedAt time.Time
}

// Dimensions returns the embedding dimensionality.
func (c EmbeddedChunk) Dimensions() int {
	return len(c.Embedding)
}

// ScoredChunk is a search hit. It is produced by search and never persisted.
type ScoredChunk struct {
	EmbeddedChunk

	// Score is the cosine similarity against the query, in [-1, 1].
	Score float64
}
