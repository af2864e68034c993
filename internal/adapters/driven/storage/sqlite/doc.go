// Package sqlite persists vector index snapshots in a single SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. A snapshot file holds one manifest row, the chunk
// rows with their embeddings in insertion order, and a small key/value table
// for backend settings.
//
// # Writes
//
// WriteSnapshot replaces the whole content in one transaction. Callers that
// must never expose a half-written file write to a temporary path and rename it.
package sqlite
