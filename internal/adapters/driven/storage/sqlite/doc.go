// Package sqlite provides a SQLite-based implementation of the course and
// document stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Both stores share a single database connection:
//
//   - CourseStore: course names and guardrails
//   - DocumentStore: document and chunk metadata
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Inserts use ON CONFLICT DO NOTHING so re-ingesting a file is a no-op.
//
// # Data Location
//
// By default, the database is stored at ~/.loom/data/metadata.db
package sqlite
