package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/adapters/driven/cache"
	"github.com/creditrust/credirag/internal/core/domain"
)

func sampleHits() []domain.Hit {
	return []domain.Hit{
		testHit(1, "c1", "Credit card", "I was charged a late fee twice.", 0.91),
		testHit(2, "c2", "Credit card", "The bank raised my interest rate.", 0.72),
		testHit(3, "c3", "Personal loan", "Loan payments were misapplied.", 0.40),
		testHit(4, "c4", "Savings account", "Funds were frozen without notice.", 0.15),
	}
}

func newTestRetriever(idx *mockVectorIndex, embedder *mockEmbeddingService, cfg RetrieverConfig) (*RetrieverService, *IndexHandle) {
	handle := NewIndexHandle()
	if idx != nil {
		handle.Swap(idx)
	}
	return NewRetriever(embedder, handle, nil, cfg), handle
}

func TestRetriever_EmptyQuery(t *testing.T) {
	embedder := &mockEmbeddingService{}
	r, _ := newTestRetriever(&mockVectorIndex{hits: sampleHits()}, embedder, RetrieverConfig{})

	for _, q := range []string{"", "   ", "\n\t"} {
		result, err := r.Retrieve(context.Background(), q, 3)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	}
	assert.Equal(t, int32(0), embedder.embedCalls.Load())
}

func TestRetriever_IndexNotLoaded(t *testing.T) {
	r, _ := newTestRetriever(nil, &mockEmbeddingService{}, RetrieverConfig{})

	_, err := r.Retrieve(context.Background(), "late fees", 3)
	assert.ErrorIs(t, err, domain.ErrIndexNotLoaded)
}

func TestRetriever_ReturnsRankedHits(t *testing.T) {
	idx := &mockVectorIndex{hits: sampleHits()}
	r, _ := newTestRetriever(idx, &mockEmbeddingService{}, RetrieverConfig{})

	result, err := r.Retrieve(context.Background(), "  late fees  ", 2)
	require.NoError(t, err)

	assert.Equal(t, "late fees", result.Query)
	assert.Equal(t, 2, result.K)
	assert.Equal(t, uint64(1), result.IndexVersion)
	assert.False(t, result.Cached)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "c1", result.Hits[0].Chunk.DocumentID)
	assert.Equal(t, "c2", result.Hits[1].Chunk.DocumentID)
}

func TestRetriever_DefaultK(t *testing.T) {
	idx := &mockVectorIndex{hits: sampleHits()}
	r, _ := newTestRetriever(idx, &mockEmbeddingService{}, RetrieverConfig{TopK: 3})

	result, err := r.Retrieve(context.Background(), "fees", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.K)
	assert.Equal(t, []int{3}, idx.searches)

	r, _ = newTestRetriever(idx, &mockEmbeddingService{}, RetrieverConfig{})
	result, err = r.Retrieve(context.Background(), "fees", -1)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTopK, result.K)
}

func TestRetriever_EmbedFailure(t *testing.T) {
	idx := &mockVectorIndex{hits: sampleHits()}
	embedder := &mockEmbeddingService{embedErr: errors.New("connection refused")}
	r, _ := newTestRetriever(idx, embedder, RetrieverConfig{})

	result, err := r.Retrieve(context.Background(), "fees", 3)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.Contains(t, err.Error(), "connection refused")

	var perr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mock-embed", perr.Provider)

	assert.Equal(t, 0, idx.searchCount(), "search must not run after a failed embed")
}

func TestRetriever_EmbedFailureKeepsProviderError(t *testing.T) {
	cause := &domain.EmbeddingProviderError{Provider: "ollama", Op: "embed", Err: errors.New("timeout")}
	r, _ := newTestRetriever(&mockVectorIndex{}, &mockEmbeddingService{embedErr: cause}, RetrieverConfig{})

	_, err := r.Retrieve(context.Background(), "fees", 3)
	assert.Same(t, cause, err)
}

func TestRetriever_SearchFailure(t *testing.T) {
	idx := &mockVectorIndex{searchErr: errors.New("disk gone")}
	r, _ := newTestRetriever(idx, &mockEmbeddingService{}, RetrieverConfig{})

	_, err := r.Retrieve(context.Background(), "fees", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestRetriever_MinScoreRenumbers(t *testing.T) {
	idx := &mockVectorIndex{hits: sampleHits()}
	r, _ := newTestRetriever(idx, &mockEmbeddingService{}, RetrieverConfig{MinScore: 0.5})

	result, err := r.Retrieve(context.Background(), "fees", 4)
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, 1, result.Hits[0].Rank)
	assert.Equal(t, 2, result.Hits[1].Rank)

	r, _ = newTestRetriever(idx, &mockEmbeddingService{}, RetrieverConfig{MinScore: 0.99})
	result, err = r.Retrieve(context.Background(), "fees", 4)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestRetriever_ReportsSearchingStage(t *testing.T) {
	r, _ := newTestRetriever(&mockVectorIndex{hits: sampleHits()}, &mockEmbeddingService{}, RetrieverConfig{})

	var stages []domain.TurnState
	ctx := withStage(context.Background(), func(s domain.TurnState) { stages = append(stages, s) })

	_, err := r.Retrieve(ctx, "fees", 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.TurnState{domain.TurnSearching}, stages)
}

func TestRetriever_CacheHitSkipsEmbedding(t *testing.T) {
	idx := &mockVectorIndex{hits: sampleHits()}
	embedder := &mockEmbeddingService{}
	handle := NewIndexHandle()
	handle.Swap(idx)
	r := NewRetriever(embedder, handle, cache.New(8), RetrieverConfig{})

	first, err := r.Retrieve(context.Background(), "late fees", 2)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := r.Retrieve(context.Background(), "late fees", 2)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Hits, second.Hits)

	assert.Equal(t, int32(1), embedder.embedCalls.Load())
	assert.Equal(t, 1, idx.searchCount())

	// A different k is a different entry.
	_, err = r.Retrieve(context.Background(), "late fees", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), embedder.embedCalls.Load())
}

func TestRetriever_CachePurgedOnSwap(t *testing.T) {
	embedder := &mockEmbeddingService{}
	handle := NewIndexHandle()
	handle.Swap(&mockVectorIndex{hits: sampleHits()})
	queryCache := cache.New(8)
	r := NewRetriever(embedder, handle, queryCache, RetrieverConfig{})

	_, err := r.Retrieve(context.Background(), "late fees", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, queryCache.Len())

	replacement := &mockVectorIndex{hits: sampleHits()[2:]}
	handle.Swap(replacement)
	assert.Equal(t, 0, queryCache.Len())

	result, err := r.Retrieve(context.Background(), "late fees", 2)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, uint64(2), result.IndexVersion)
	assert.Equal(t, "c3", result.Hits[0].Chunk.DocumentID)
	assert.Equal(t, int32(2), embedder.embedCalls.Load())
}
