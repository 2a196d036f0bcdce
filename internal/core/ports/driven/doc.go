// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the store to function:
//
//   - EmbeddingOracle: Converts text into versioned vectors
//   - ChunkStore: Document and chunk persistence
//   - PostProcessorPipeline: Splits documents into chunks
//   - ConfigStore: Settings persistence
//
// # Optional Interfaces
//
// These can be nil - search falls back to an exact linear scan:
//
//   - VectorIndex: Approximate nearest-neighbour candidate generation.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
