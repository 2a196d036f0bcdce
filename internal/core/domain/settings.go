package domain

import (
	"fmt"
	"math"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ReembedPolicy decides when chunks embedded by an older model are refreshed.
type ReembedPolicy string

// Available re-embedding policies.
const (
	// ReembedLazy leaves stale chunks out of search until their document
	// is resubmitted or a re-embed is requested.
	ReembedLazy ReembedPolicy = "lazy"

	// ReembedEager re-embeds every stale chunk when the store opens.
	ReembedEager ReembedPolicy = "eager"
)

// IsValid returns true if the policy is recognised.
func (p ReembedPolicy) IsValid() bool {
	return p == ReembedLazy || p == ReembedEager
}

// IndexKind names the candidate index serving similarity search.
type IndexKind string

// Available index kinds.
const (
	// IndexExact is a linear scan over every stored chunk.
	IndexExact IndexKind = "exact"

	// IndexMemory keeps an in-memory candidate index, rebuilt on open.
	// Candidates are rescored exactly.
	IndexMemory IndexKind = "memory"
)

// IsValid returns true if the index kind is recognised.
func (k IndexKind) IsValid() bool {
	return k == IndexExact || k == IndexMemory
}

// IsExact reports whether results are exact rather than approximate.
func (k IndexKind) IsExact() bool {
	return k == IndexExact
}

// ChunkerSettings configures the chunker.
type ChunkerSettings struct {
	// MaxTokens is the token budget of one chunk.
	MaxTokens int
}

// EmbeddingSettings holds embedding provider and client configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// BatchSize is the number of texts per oracle call.
	BatchSize int

	// CacheSize is the number of cached embeddings. Zero disables the cache.
	CacheSize int

	// RequestsPerSecond throttles oracle calls. Zero means unlimited.
	RequestsPerSecond float64

	// TimeoutSeconds bounds a single oracle request.
	TimeoutSeconds int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// StoreSettings configures persistence and mutation behaviour.
type StoreSettings struct {
	// DataDir holds the SQLite database. Empty means ~/.sercha-rag/data.
	DataDir string

	// ReembedPolicy decides how version drift is resolved.
	ReembedPolicy ReembedPolicy

	// Concurrency bounds parallel document indexing in batch jobs.
	Concurrency int
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// DefaultLimit applies when a query passes limit <= 0.
	DefaultLimit int

	// DefaultThreshold is the CLI default minimum score.
	DefaultThreshold float64

	// Index names the candidate index.
	Index IndexKind
}

// Settings holds all configuration of the RAG core.
type Settings struct {
	Chunker   ChunkerSettings
	Embedding EmbeddingSettings
	Store     StoreSettings
	Search    SearchSettings
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Chunker: ChunkerSettings{
			MaxTokens: 256,
		},
		Embedding: EmbeddingSettings{
			Provider:       AIProviderOllama,
			Model:          DefaultEmbeddingModels()[AIProviderOllama],
			Dimensions:     768, // nomic-embed-text default
			BatchSize:      16,
			CacheSize:      4096,
			TimeoutSeconds: 30,
		},
		Store: StoreSettings{
			ReembedPolicy: ReembedLazy,
			Concurrency:   4,
		},
		Search: SearchSettings{
			DefaultLimit: 10,
			Index:        IndexExact,
		},
	}
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	switch {
	case s.Chunker.MaxTokens <= 0:
		return fmt.Errorf("%w: chunker max_tokens must be positive", ErrInvalidInput)
	case !s.Embedding.Provider.IsValid():
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	case s.Embedding.Dimensions < 0:
		return fmt.Errorf("%w: embedding dimensions must not be negative", ErrInvalidInput)
	case s.Embedding.BatchSize <= 0:
		return fmt.Errorf("%w: embedding batch_size must be positive", ErrInvalidInput)
	case s.Embedding.CacheSize < 0:
		return fmt.Errorf("%w: embedding cache_size must not be negative", ErrInvalidInput)
	case s.Embedding.RequestsPerSecond < 0:
		return fmt.Errorf("%w: embedding requests_per_second must not be negative", ErrInvalidInput)
	case !s.Store.ReembedPolicy.IsValid():
		return fmt.Errorf("%w: unknown reembed policy %q", ErrInvalidInput, s.Store.ReembedPolicy)
	case s.Store.Concurrency <= 0:
		return fmt.Errorf("%w: store concurrency must be positive", ErrInvalidInput)
	case s.Search.DefaultLimit <= 0:
		return fmt.Errorf("%w: search default_limit must be positive", ErrInvalidInput)
	case math.IsNaN(s.Search.DefaultThreshold) || s.Search.DefaultThreshold < -1 || s.Search.DefaultThreshold > 1:
		return fmt.Errorf("%w: search default_threshold must be within [-1, 1]", ErrInvalidInput)
	case !s.Search.Index.IsValid():
		return fmt.Errorf("%w: unknown search index %q", ErrInvalidInput, s.Search.Index)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
