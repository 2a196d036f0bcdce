// Package services implements the driving port interfaces.
//
// VectorStore owns indexed documents and their embedded chunks,
// EmbeddingClient batches and caches oracle calls, SimilarityEngine ranks
// candidates and Retriever answers text queries on top of all three.
//
// Services are pure Go with no CGO dependencies.
package services
