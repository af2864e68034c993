package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.Retriever = (*RetrieverService)(nil)

// RetrieverConfig holds retrieval parameters.
type RetrieverConfig struct {
	// TopK is used when a caller passes k <= 0.
	TopK int

	// MinScore drops hits scoring below it. Zero keeps everything.
	MinScore float64

	// EmbedTimeout bounds the query embedding call. Zero means no timeout.
	EmbedTimeout time.Duration
}

// RetrieverService embeds queries and searches the active index.
type RetrieverService struct {
	embedder driven.EmbeddingService
	handle   *IndexHandle
	cache    driven.QueryCache
	cfg      RetrieverConfig
}

// NewRetriever creates a retriever. cache may be nil.
func NewRetriever(
	embedder driven.EmbeddingService,
	handle *IndexHandle,
	cache driven.QueryCache,
	cfg RetrieverConfig,
) *RetrieverService {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cache != nil {
		handle.OnSwap(func(uint64) { cache.Purge() })
	}
	return &RetrieverService{
		embedder: embedder,
		handle:   handle,
		cache:    cache,
		cfg:      cfg,
	}
}

// Retrieve embeds query and returns up to k hits from the active index.
func (r *RetrieverService) Retrieve(ctx context.Context, query string, k int) (*domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = r.cfg.TopK
	}

	snap, err := r.handle.Acquire()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	logger.Debug("retrieve: k=%d index=v%d query=%q", k, snap.Version, query)

	if r.cache != nil {
		if cached, ok := r.cache.Get(snap.Version, query, k); ok {
			logger.Debug("retrieve: cache hit")
			cached.Cached = true
			stageFrom(ctx).enter(domain.TurnSearching)
			return &cached, nil
		}
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	stageFrom(ctx).enter(domain.TurnSearching)

	hits, err := snap.Index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	hits = r.filter(hits)

	result := domain.RetrievalResult{
		Query:        query,
		K:            k,
		Hits:         hits,
		IndexVersion: snap.Version,
	}
	logger.Debug("retrieve: %d hits", len(hits))

	if r.cache != nil {
		r.cache.Put(snap.Version, query, k, result)
	}
	return &result, nil
}

func (r *RetrieverService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EmbedTimeout)
		defer cancel()
	}

	done := logger.Timed("embed query")
	vec, err := r.embedder.Embed(ctx, query)
	done()
	if err == nil {
		return vec, nil
	}

	var perr *domain.EmbeddingProviderError
	if errors.As(err, &perr) {
		return nil, err
	}
	return nil, &domain.EmbeddingProviderError{Provider: r.embedder.ModelName(), Op: "embed", Err: err}
}

// filter drops hits under the relevance floor and renumbers the rest.
func (r *RetrieverService) filter(hits []domain.Hit) []domain.Hit {
	if r.cfg.MinScore <= 0 {
		return hits
	}
	kept := make([]domain.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= r.cfg.MinScore {
			h.Rank = len(kept) + 1
			kept = append(kept, h)
		}
	}
	return kept
}
