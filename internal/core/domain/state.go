package domain

// IndexState is the lifecycle state of a document inside the vector store.
type IndexState string

// Document lifecycle states.
const (
	// StateUnindexed is a document the store has never committed.
	StateUnindexed IndexState = "unindexed"

	// StateIndexing is a first-time index in flight.
	StateIndexing IndexState = "indexing"

	// StateIndexed is a document with a committed chunk set.
	StateIndexed IndexState = "indexed"

	// StateReindexing is a chunk set replacement in flight.
	StateReindexing IndexState = "reindexing"

	// StateDeleted is terminal. A new submission with the same id
	// starts a fresh lifecycle.
	StateDeleted IndexState = "deleted"
)

// String returns the string representation.
func (s IndexState) String() string {
	return string(s)
}

// IndexStats summarises the contents of a vector store.
type IndexStats struct {
	// DocumentCount is the number of indexed documents.
	DocumentCount int `json:"document_count"`

	// ChunkCount is the number of stored chunks.
	ChunkCount int `json:"chunk_count"`

	// StaleChunkCount is the number of chunks awaiting re-embedding.
	StaleChunkCount int `json:"stale_chunk_count"`

	// BytesUsed is chunk text plus embedding bytes.
	BytesUsed int64 `json:"bytes_used"`

	// ModelVersion is the active embedding model version.
	ModelVersion string `json:"model_version"`
}

// BatchReport describes the outcome of a batch index job.
type BatchReport struct {
	// JobID correlates log lines of one batch.
	JobID string

	// Committed lists documents whose chunk set was written.
	Committed []string

	// Unchanged lists documents skipped because nothing changed.
	Unchanged []string

	// Failed maps document ids to the error that stopped them.
	Failed map[string]error

	// Cancelled reports that the batch stopped early on cancellation.
	Cancelled bool
}
