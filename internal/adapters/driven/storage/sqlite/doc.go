// Package sqlite provides the SQLite implementation of driven.ChunkStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each applied version is recorded in schema_migrations
// in the same transaction as the migration itself.
//
//   - documents: one row per indexed document (content hash, chunk count)
//   - chunks: chunk text with its embedding blob and model version,
//     removed by cascade when the document row is deleted
//
// Embeddings are stored as little-endian float32 blobs. A blob whose length
// is not a multiple of four is loaded as corrupt rather than failing the read.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
