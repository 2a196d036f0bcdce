// Package domain defines the core business entities for the Sercha RAG core.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A text document submitted for indexing
//   - Chunk: A bounded, ordered segment of a document
//   - EmbeddedChunk: A chunk with its embedding vector
//   - ScoredChunk: A search hit with its similarity score
//   - Settings: Chunker, embedding, store and search configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
