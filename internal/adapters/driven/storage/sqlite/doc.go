// Package sqlite provides a SQLite-backed driven.TrackerStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Processed sets of every pipeline stage
// share one table keyed by stage, scope and item id. Model-dependent stages
// (embedding, index) are scoped by embedding model so switching models does
// not reuse another model's sets.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Each Save replaces a stage's set in one transaction.
package sqlite
