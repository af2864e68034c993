// Package vector groups the vector index backends.
//
// Backends:
//   - flat: exact cosine search in memory, persisted to a SQLite snapshot
//   - qdrant: vectors held in a Qdrant collection, manifest kept locally
package vector
