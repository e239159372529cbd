// Package domain defines the core business entities for the Loom gateway.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Course: A tenant scoping documents, guardrails and a vector index
//   - Document: An ingested file, identified by the hash of its bytes
//   - Chunk: A fixed-size window of a document's text
//   - VectorRecord: The embedding of a chunk in a course index
//   - ChatRequest/ChatResponse: OpenAI-compatible chat completion shapes
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
