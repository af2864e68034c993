// Package domain defines the core business entities for credirag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested complaint narrative with provenance
//   - Chunk: A bounded, overlapping segment of a Document
//   - IndexItem / IndexManifest: What a vector index stores and how it was built
//   - RetrievalResult: The ranked chunks returned for one query
//   - Answer: Generated text plus the citations it was grounded on
//   - Turn: One entry in an in-memory conversation session
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
