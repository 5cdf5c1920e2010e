// Package domain defines the core entities of the groundwork RAG engine.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: a loaded content unit with provenance metadata
//   - Chunk: an ordered, bounded slice of a document used for retrieval
//   - IndexEntry: a vector plus its versioned payload
//   - Query, RetrievalResult, Source, Answer: the query path
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
