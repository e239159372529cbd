// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the gateway to function:
//
//   - EmbeddingService: Turns text into vectors
//   - VectorIndex: Per-course vector storage and similarity search
//   - LLMService: Upstream chat completion provider
//   - CourseStore: Course metadata persistence
//   - DocumentStore: Document and chunk persistence
//   - TextExtractor: Text extraction from uploaded files
//
// # Optional Interfaces
//
//   - RawStore: Archive of the original uploads (nil disables archiving)
//   - ConfigStore: Key-value access to the configuration file
//
// # Implementation Location
//
// Implementations live in internal/adapters/driven/:
//
//   - embedding/openai, embedding/hashing
//   - llm/openai
//   - vector/qdrant, vector/memory
//   - storage/sqlite, storage/postgres, storage/memory
//   - extractor/pdf
//   - rawstore/filesystem
//   - config/file
package driven
