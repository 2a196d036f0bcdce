package driven

import "context"

// EmbeddingOracle generates vector embeddings from text.
// The core treats every call as fallible and potentially slow.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - On-device models behind an inference runtime
type EmbeddingOracle interface {
	// Embed generates a vector embedding for the given text.
	// Returns domain.ErrEmbeddingUnavailable when the model is not loaded.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	Dimensions() int

	// ModelVersion identifies the model producing vectors. Vectors from
	// different versions are never compared.
	ModelVersion() string

	// Ping validates the oracle is ready to serve requests.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
