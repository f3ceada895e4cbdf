// Package domain defines the core entities of the retrieval pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Normalised text awaiting chunking
//   - Chunk: A token-bounded slice of one document
//   - EmbeddingRecord: A chunk as persisted, with its vector
//   - RetrievalHit: One fused result of a hybrid query
//   - RawDocument: Opaque bytes read from disk before normalisation
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
