// Package flat provides an exact, in-memory vector index.
//
// Every search scores the query against every stored vector, so results are
// exact and deterministic. Snapshots are persisted with the sqlite adapter.
package flat

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/creditrust/credirag/internal/adapters/driven/storage/sqlite"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// Backend is the name recorded in manifests.
const Backend = string(domain.IndexBackendFlat)

// ctxCheckEvery bounds how many vectors are scored between context checks.
const ctxCheckEvery = 1024

// Ensure interfaces are implemented.
var (
	_ driven.IndexStore  = (*Store)(nil)
	_ driven.VectorIndex = (*Index)(nil)
)

// Store builds and loads flat indexes.
type Store struct{}

// NewStore creates a flat index store.
func NewStore() *Store {
	return &Store{}
}

// Backend returns "flat".
func (s *Store) Backend() string {
	return Backend
}

// Build creates an index from items. Every vector must have manifest.Dimensions entries.
func (s *Store) Build(_ context.Context, manifest domain.IndexManifest, items []domain.IndexItem) (driven.VectorIndex, error) {
	return newIndex(manifest, items)
}

// Load restores the snapshot at path.
func (s *Store) Load(ctx context.Context, path string, want domain.EmbeddingSpec) (driven.VectorIndex, error) {
	db, err := sqlite.OpenExisting(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	manifest, err := db.ReadManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("flat: %w", err)
	}
	if manifest.Backend != Backend {
		return nil, fmt.Errorf("flat: index %s was built by %q: %w", path, manifest.Backend, domain.ErrUnsupportedType)
	}
	if err := manifest.CheckCompatible(want); err != nil {
		return nil, err
	}

	items, err := db.ReadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("flat: %w", err)
	}
	if len(items) != manifest.ChunkCount {
		return nil, fmt.Errorf("flat: manifest lists %d chunks, snapshot has %d", manifest.ChunkCount, len(items))
	}

	return newIndex(*manifest, items)
}

// ReadManifest returns the manifest saved at path.
func (s *Store) ReadManifest(ctx context.Context, path string) (domain.IndexManifest, error) {
	return ReadManifest(ctx, path)
}

// ReadManifest reads any snapshot manifest regardless of backend.
func ReadManifest(ctx context.Context, path string) (domain.IndexManifest, error) {
	m, _, err := sqlite.LoadManifest(ctx, path)
	return m, err
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// Index is an immutable set of vectors searched by brute force.
type Index struct {
	manifest domain.IndexManifest
	entries  []entry
	closed   atomic.Bool
}

func newIndex(manifest domain.IndexManifest, items []domain.IndexItem) (*Index, error) {
	if len(items) == 0 {
		return nil, domain.ErrIndexEmpty
	}
	if manifest.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: manifest dimensions must be positive", domain.ErrInvalidInput)
	}

	entries := make([]entry, len(items))
	for i, item := range items {
		if len(item.Vector) != manifest.Dimensions {
			return nil, &domain.DimensionMismatchError{
				IndexModel:         manifest.EmbeddingModel,
				IndexDimensions:    manifest.Dimensions,
				ProviderModel:      manifest.EmbeddingModel,
				ProviderDimensions: len(item.Vector),
			}
		}
		entries[i] = entry{
			chunk:  item.Chunk,
			vector: slices.Clone(item.Vector),
			norm:   norm(item.Vector),
		}
	}

	manifest.Backend = Backend
	manifest.ChunkCount = len(entries)

	return &Index{manifest: manifest, entries: entries}, nil
}

// Search returns the k most similar chunks. Ties keep insertion order.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]domain.Hit, error) {
	if idx.closed.Load() {
		return nil, domain.ErrIndexClosed
	}
	if len(query) != idx.manifest.Dimensions {
		return nil, &domain.DimensionMismatchError{
			IndexModel:         idx.manifest.EmbeddingModel,
			IndexDimensions:    idx.manifest.Dimensions,
			ProviderDimensions: len(query),
		}
	}
	if k <= 0 {
		return nil, nil
	}
	k = min(k, len(idx.entries))

	type scored struct {
		pos   int
		score float64
	}

	qnorm := norm(query)
	scores := make([]scored, len(idx.entries))
	for i := range idx.entries {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		scores[i] = scored{pos: i, score: cosine(query, qnorm, &idx.entries[i])}
	}

	slices.SortStableFunc(scores, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	hits := make([]domain.Hit, k)
	for i, s := range scores[:k] {
		hits[i] = domain.Hit{
			Chunk: idx.entries[s.pos].chunk,
			Score: s.score,
			Rank:  i + 1,
		}
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Manifest returns the build manifest.
func (idx *Index) Manifest() domain.IndexManifest {
	return idx.manifest
}

// Save writes a snapshot to a temporary file and renames it over path.
func (idx *Index) Save(ctx context.Context, path string) error {
	if idx.closed.Load() {
		return domain.ErrIndexClosed
	}

	items := make([]domain.IndexItem, len(idx.entries))
	for i, e := range idx.entries {
		items[i] = domain.IndexItem{Chunk: e.chunk, Vector: e.vector}
	}

	return sqlite.SaveSnapshot(ctx, path, idx.manifest, items, nil)
}

// Close marks the index closed. Searches after Close fail with domain.ErrIndexClosed.
func (idx *Index) Close() error {
	idx.closed.Store(true)
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero length.
func cosine(q []float32, qnorm float64, e *entry) float64 {
	if qnorm == 0 || e.norm == 0 {
		return 0
	}
	var dot float64
	for i, x := range q {
		dot += float64(x) * float64(e.vector[i])
	}
	return dot / (qnorm * e.norm)
}
