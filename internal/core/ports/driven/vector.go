package driven

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// VectorIndex is a built, read-only collection of chunk vectors.
// After Build or Load it is never mutated, so concurrent searches are safe.
type VectorIndex interface {
	// Search returns up to k hits sorted by descending cosine similarity,
	// ties broken by insertion order. k larger than Len returns every item.
	Search(ctx context.Context, query []float32, k int) ([]domain.Hit, error)

	// Len returns the number of stored items.
	Len() int

	// Manifest describes how the index was built.
	Manifest() domain.IndexManifest

	// Save persists the index and its manifest to path.
	// Replacing an existing file is atomic.
	Save(ctx context.Context, path string) error

	// Close releases resources.
	Close() error
}

// IndexStore creates vector indexes. Rebuilding is the only way to change one.
type IndexStore interface {
	// Backend names the implementation, recorded in manifests.
	Backend() string

	// Build creates an index from items in insertion order.
	Build(ctx context.Context, manifest domain.IndexManifest, items []domain.IndexItem) (VectorIndex, error)

	// Load restores an index saved at path. The manifest is checked against
	// want before any vectors are read; a dimension disagreement fails with
	// *domain.DimensionMismatchError. A zero want skips the check.
	Load(ctx context.Context, path string, want domain.EmbeddingSpec) (VectorIndex, error)

	// ReadManifest returns the manifest saved at path without loading vectors.
	ReadManifest(ctx context.Context, path string) (domain.IndexManifest, error)
}
