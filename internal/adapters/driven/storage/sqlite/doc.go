// Package sqlite stores the ingestion manifest and a brute-force vector
// index in a single SQLite database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One Store serves two ports:
//
//   - DocumentStore: the per-document manifest used for changed-only ingestion
//   - VectorIndex: collections and their entries, vectors kept as float32 blobs
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files,
// and applied versions are recorded in schema_migrations.
//
// # Search
//
// Metadata filters are evaluated by SQLite with json_extract over the stored
// payload. Surviving rows are scored in Go under the collection metric.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, and writes to one document are serialized in process.
package sqlite
