// Package qdrant stores index vectors in a Qdrant collection.
//
// Each build gets its own collection, so a rebuild never disturbs the index
// currently being served. The local snapshot file keeps only the manifest and
// the collection name.
package qdrant

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/qdrant/go-client/qdrant"

	"github.com/creditrust/credirag/internal/adapters/driven/storage/sqlite"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/logger"
)

// Backend is the name recorded in manifests.
const Backend = string(domain.IndexBackendQdrant)

// Defaults.
const (
	DefaultHost       = "localhost"
	DefaultPort       = 6334
	DefaultCollection = "complaints"
	upsertBatchSize   = 256
	metaCollection    = "collection"
)

// Ensure interfaces are implemented.
var (
	_ driven.IndexStore  = (*Store)(nil)
	_ driven.VectorIndex = (*Index)(nil)
)

// Config holds the Qdrant connection settings.
type Config struct {
	Host string
	Port int

	// Collection is the prefix for per-build collection names.
	Collection string

	APIKey string
	UseTLS bool
}

// client is the subset of *qdrant.Client the index uses.
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// Store builds and loads Qdrant-backed indexes.
type Store struct {
	cfg  Config
	dial func(Config) (client, error)
}

// NewStore creates a Qdrant index store.
func NewStore(cfg Config) *Store {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	return &Store{cfg: cfg, dial: dial}
}

func dial(cfg Config) (client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connecting to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return c, nil
}

// Backend returns "qdrant".
func (s *Store) Backend() string {
	return Backend
}

// CollectionName returns the collection a build with the given manifest ID uses.
func (s *Store) CollectionName(buildID string) string {
	id := strings.ReplaceAll(buildID, "-", "")
	if len(id) > 12 {
		id = id[:12]
	}
	if id == "" {
		return s.cfg.Collection
	}
	return s.cfg.Collection + "_" + id
}

// Build creates a fresh collection and upserts every item into it.
func (s *Store) Build(ctx context.Context, manifest domain.IndexManifest, items []domain.IndexItem) (driven.VectorIndex, error) {
	if len(items) == 0 {
		return nil, domain.ErrIndexEmpty
	}
	if manifest.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: manifest dimensions must be positive", domain.ErrInvalidInput)
	}
	for _, item := range items {
		if len(item.Vector) != manifest.Dimensions {
			return nil, &domain.DimensionMismatchError{
				IndexModel:         manifest.EmbeddingModel,
				IndexDimensions:    manifest.Dimensions,
				ProviderModel:      manifest.EmbeddingModel,
				ProviderDimensions: len(item.Vector),
			}
		}
	}

	c, err := s.dial(s.cfg)
	if err != nil {
		return nil, err
	}

	name := s.CollectionName(manifest.ID)
	if err := createCollection(ctx, c, name, manifest.Dimensions); err != nil {
		c.Close()
		return nil, err
	}

	for start := 0; start < len(items); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(items))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for seq := start; seq < end; seq++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(seq)),
				Vectors: qdrant.NewVectors(items[seq].Vector...),
				Payload: qdrant.NewValueMap(payloadFor(seq, items[seq].Chunk)),
			})
		}

		if _, err := c.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		}); err != nil {
			c.DeleteCollection(context.WithoutCancel(ctx), name) //nolint:errcheck // best effort cleanup
			c.Close()
			return nil, fmt.Errorf("qdrant: upserting points %d-%d: %w", start, end, err)
		}
	}

	logger.Debug("qdrant: upserted %d points into %s", len(items), name)

	manifest.Backend = Backend
	manifest.ChunkCount = len(items)

	return &Index{client: c, collection: name, manifest: manifest}, nil
}

func createCollection(ctx context.Context, c client, name string, dims int) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: checking collection %s: %w", name, err)
	}
	if exists {
		if err := c.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("qdrant: dropping stale collection %s: %w", name, err)
		}
	}

	err = c.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dims),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", name, err)
	}
	return nil
}

// Load reads the manifest at path and reattaches to its collection.
func (s *Store) Load(ctx context.Context, path string, want domain.EmbeddingSpec) (driven.VectorIndex, error) {
	manifest, meta, err := sqlite.LoadManifest(ctx, path)
	if err != nil {
		return nil, err
	}
	if manifest.Backend != Backend {
		return nil, fmt.Errorf("qdrant: index %s was built by %q: %w", path, manifest.Backend, domain.ErrUnsupportedType)
	}
	if err := manifest.CheckCompatible(want); err != nil {
		return nil, err
	}

	name := meta[metaCollection]
	if name == "" {
		return nil, fmt.Errorf("qdrant: index %s has no collection recorded: %w", path, domain.ErrInvalidInput)
	}

	c, err := s.dial(s.cfg)
	if err != nil {
		return nil, err
	}

	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("qdrant: checking collection %s: %w", name, err)
	}
	if !exists {
		c.Close()
		return nil, fmt.Errorf("qdrant: collection %s: %w", name, domain.ErrNotFound)
	}

	info, err := c.GetCollectionInfo(ctx, name)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("qdrant: reading collection %s: %w", name, err)
	}
	// A collection recreated outside credirag may no longer match the build.
	size := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if size != manifest.Dimensions {
		c.Close()
		return nil, fmt.Errorf("qdrant: collection %s: %w", name, &domain.DimensionMismatchError{
			IndexModel:         manifest.EmbeddingModel,
			IndexDimensions:    manifest.Dimensions,
			ProviderModel:      "collection " + name,
			ProviderDimensions: size,
		})
	}

	return &Index{client: c, collection: name, manifest: manifest}, nil
}

// ReadManifest returns the manifest saved at path.
func (s *Store) ReadManifest(ctx context.Context, path string) (domain.IndexManifest, error) {
	m, _, err := sqlite.LoadManifest(ctx, path)
	return m, err
}

// Index searches one Qdrant collection.
type Index struct {
	client     client
	collection string
	manifest   domain.IndexManifest
	closed     atomic.Bool
}

// Collection returns the backing collection name.
func (idx *Index) Collection() string {
	return idx.collection
}

// Search queries the collection. Equal scores are ordered by insertion sequence.
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

	limit := uint64(min(k, idx.manifest.ChunkCount))
	points, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(query...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query %s: %w", idx.collection, err)
	}

	return rankPoints(points), nil
}

// Len returns the number of points written at build time.
func (idx *Index) Len() int {
	return idx.manifest.ChunkCount
}

// Manifest returns the build manifest.
func (idx *Index) Manifest() domain.IndexManifest {
	return idx.manifest
}

// Save records the manifest and collection name at path. If path previously
// pointed at a different collection, that collection is dropped.
func (idx *Index) Save(ctx context.Context, path string) error {
	if idx.closed.Load() {
		return domain.ErrIndexClosed
	}

	previous := ""
	if old, meta, err := sqlite.LoadManifest(ctx, path); err == nil && old.Backend == Backend {
		previous = meta[metaCollection]
	}

	meta := map[string]string{metaCollection: idx.collection}
	if err := sqlite.SaveSnapshot(ctx, path, idx.manifest, nil, meta); err != nil {
		return err
	}

	if previous != "" && previous != idx.collection {
		if err := idx.client.DeleteCollection(ctx, previous); err != nil {
			logger.Warn("qdrant: failed to drop superseded collection %s: %v", previous, err)
		}
	}
	return nil
}

// Close releases the client connection.
func (idx *Index) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}
	return idx.client.Close()
}

// ==================== Payload Conversion ====================

func payloadFor(seq int, c domain.Chunk) map[string]any {
	payload := map[string]any{
		"seq":         int64(seq),
		"chunk_id":    c.ID,
		"document_id": c.DocumentID,
		"category":    c.Category,
		"text":        c.Text,
		"position":    int64(c.Position),
		"start":       int64(c.Start),
		"end":         int64(c.End),
	}
	if len(c.Extra) > 0 {
		extra := make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			extra[k] = v
		}
		payload["extra"] = extra
	}
	return payload
}

type rankedPoint struct {
	seq   int64
	score float64
	chunk domain.Chunk
}

// rankPoints converts scored points to hits ordered by score, then sequence.
func rankPoints(points []*qdrant.ScoredPoint) []domain.Hit {
	ranked := make([]rankedPoint, 0, len(points))
	for _, p := range points {
		seq, chunk := chunkFromPayload(p.GetPayload())
		if p.GetId() != nil {
			if num, ok := p.GetId().GetPointIdOptions().(*qdrant.PointId_Num); ok {
				seq = int64(num.Num)
			}
		}
		ranked = append(ranked, rankedPoint{seq: seq, score: float64(p.GetScore()), chunk: chunk})
	}

	slices.SortFunc(ranked, func(a, b rankedPoint) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	hits := make([]domain.Hit, len(ranked))
	for i, r := range ranked {
		hits[i] = domain.Hit{Chunk: r.chunk, Score: r.score, Rank: i + 1}
	}
	return hits
}

func chunkFromPayload(payload map[string]*qdrant.Value) (int64, domain.Chunk) {
	var c domain.Chunk
	var seq int64

	for key, v := range payload {
		switch key {
		case "seq":
			seq = v.GetIntegerValue()
		case "chunk_id":
			c.ID = v.GetStringValue()
		case "document_id":
			c.DocumentID = v.GetStringValue()
		case "category":
			c.Category = v.GetStringValue()
		case "text":
			c.Text = v.GetStringValue()
		case "position":
			c.Position = int(v.GetIntegerValue())
		case "start":
			c.Start = int(v.GetIntegerValue())
		case "end":
			c.End = int(v.GetIntegerValue())
		case "extra":
			fields := v.GetStructValue().GetFields()
			if len(fields) > 0 {
				c.Extra = make(map[string]string, len(fields))
				for k, fv := range fields {
					c.Extra[k] = valueString(fv)
				}
			}
		}
	}
	return seq, c
}

func valueString(v *qdrant.Value) string {
	switch val := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return fmt.Sprintf("%d", val.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return fmt.Sprintf("%g", val.DoubleValue)
	case *qdrant.Value_BoolValue:
		return fmt.Sprintf("%t", val.BoolValue)
	default:
		return ""
	}
}
