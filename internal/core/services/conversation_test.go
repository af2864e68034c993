package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/core/domain"
)

type transition struct {
	from, to domain.TurnState
}

type transitionRecorder struct {
	mu   sync.Mutex
	seen []transition
}

func (r *transitionRecorder) observe(from, to domain.TurnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, transition{from, to})
}

func (r *transitionRecorder) transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.seen...)
}

var successPath = []transition{
	{domain.TurnIdle, domain.TurnEmbedding},
	{domain.TurnEmbedding, domain.TurnSearching},
	{domain.TurnSearching, domain.TurnComposing},
	{domain.TurnComposing, domain.TurnInvoking},
	{domain.TurnInvoking, domain.TurnDone},
	{domain.TurnDone, domain.TurnIdle},
}

func newTestConversation(
	embedder *mockEmbeddingService, llm *mockLLMService,
) (*ConversationService, *transitionRecorder) {
	handle := NewIndexHandle()
	handle.Swap(&mockVectorIndex{hits: sampleHits()})

	retriever := NewRetriever(embedder, handle, nil, RetrieverConfig{})
	generator := NewGenerator(llm, nil, GeneratorConfig{})
	conv := NewConversation(retriever, generator, 3)

	rec := &transitionRecorder{}
	conv.OnStateChange(rec.observe)
	return conv, rec
}

func TestConversation_NewSession(t *testing.T) {
	conv, _ := newTestConversation(&mockEmbeddingService{}, &mockLLMService{})

	assert.NotEmpty(t, conv.Session().ID)
	assert.False(t, conv.Session().StartedAt.IsZero())
	assert.Equal(t, domain.TurnIdle, conv.State())
	assert.Empty(t, conv.History())
	assert.Nil(t, conv.LastSources())
}

func TestConversation_AskSuccess(t *testing.T) {
	llm := &mockLLMService{response: "Late fees were charged twice."}
	conv, rec := newTestConversation(&mockEmbeddingService{}, llm)

	answer, err := conv.Ask(context.Background(), "Why are people complaining about late fees?")
	require.NoError(t, err)

	assert.Equal(t, "Late fees were charged twice.", answer.Text)
	require.Len(t, answer.Sources, 3)
	assert.Equal(t, "c1", answer.Sources[0].DocumentID)

	assert.Equal(t, successPath, rec.transitions())
	assert.Equal(t, domain.TurnIdle, conv.State())
	assert.NoError(t, conv.LastError())

	history := conv.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "Why are people complaining about late fees?", history[0].Text)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, answer.Sources, history[1].Sources)
	assert.Equal(t, answer.Sources, conv.LastSources())
}

func TestConversation_BlankQuestion(t *testing.T) {
	embedder := &mockEmbeddingService{}
	conv, rec := newTestConversation(embedder, &mockLLMService{response: "x"})

	_, err := conv.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	assert.Empty(t, rec.transitions())
	assert.Empty(t, conv.History())
	assert.Equal(t, int32(0), embedder.embedCalls.Load())
}

func TestConversation_EmbeddingFailure(t *testing.T) {
	llm := &mockLLMService{response: "x"}
	conv, rec := newTestConversation(&mockEmbeddingService{embedErr: errors.New("unreachable")}, llm)

	answer, err := conv.Ask(context.Background(), "late fees")
	assert.Nil(t, answer)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)

	assert.Equal(t, []transition{
		{domain.TurnIdle, domain.TurnEmbedding},
		{domain.TurnEmbedding, domain.TurnFailed},
		{domain.TurnFailed, domain.TurnIdle},
	}, rec.transitions())
	assert.Empty(t, conv.History())
	assert.ErrorIs(t, conv.LastError(), domain.ErrEmbeddingProvider)
	assert.Zero(t, llm.calls())
}

func TestConversation_GenerationFailure(t *testing.T) {
	conv, rec := newTestConversation(&mockEmbeddingService{}, &mockLLMService{err: errors.New("rate limited")})

	_, err := conv.Ask(context.Background(), "late fees")
	assert.ErrorIs(t, err, domain.ErrGeneration)

	got := rec.transitions()
	require.Len(t, got, 6)
	assert.Equal(t, transition{domain.TurnInvoking, domain.TurnFailed}, got[4])
	assert.Equal(t, transition{domain.TurnFailed, domain.TurnIdle}, got[5])
	assert.Empty(t, conv.History(), "a failed turn leaves history unchanged")
}

func TestConversation_FailureThenSuccess(t *testing.T) {
	llm := &mockLLMService{err: errors.New("boom")}
	conv, _ := newTestConversation(&mockEmbeddingService{}, llm)

	_, err := conv.Ask(context.Background(), "first")
	require.Error(t, err)
	require.Error(t, conv.LastError())

	llm.err = nil
	llm.response = "fine"
	_, err = conv.Ask(context.Background(), "second")
	require.NoError(t, err)

	assert.NoError(t, conv.LastError())
	history := conv.History()
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Text)
}

func TestConversation_HistoryAccumulates(t *testing.T) {
	conv, _ := newTestConversation(&mockEmbeddingService{}, &mockLLMService{response: "answer"})

	for _, q := range []string{"one", "two", "three"} {
		_, err := conv.Ask(context.Background(), q)
		require.NoError(t, err)
	}

	history := conv.History()
	require.Len(t, history, 6)
	assert.Equal(t, "three", history[4].Text)

	// History is a copy.
	history[0].Text = "changed"
	assert.Equal(t, "one", conv.History()[0].Text)
}

func TestConversation_CachedRetrievalStillVisitsSearching(t *testing.T) {
	handle := NewIndexHandle()
	handle.Swap(&mockVectorIndex{hits: sampleHits()})
	embedder := &mockEmbeddingService{}
	retriever := NewRetriever(embedder, handle, newMapCache(), RetrieverConfig{})
	conv := NewConversation(retriever, NewGenerator(&mockLLMService{response: "ok"}, nil, GeneratorConfig{}), 3)

	_, err := conv.Ask(context.Background(), "late fees")
	require.NoError(t, err)

	rec := &transitionRecorder{}
	conv.OnStateChange(rec.observe)
	_, err = conv.Ask(context.Background(), "late fees")
	require.NoError(t, err)

	assert.Equal(t, successPath, rec.transitions())
	assert.Equal(t, int32(1), embedder.embedCalls.Load())
}

func TestConversation_ConcurrentAsksAreSerialised(t *testing.T) {
	conv, _ := newTestConversation(&mockEmbeddingService{}, &mockLLMService{response: "ok"})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = conv.Ask(context.Background(), "late fees")
		}()
	}
	wg.Wait()

	history := conv.History()
	require.Len(t, history, 16)
	for i, turn := range history {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, turn.Role)
		} else {
			assert.Equal(t, domain.RoleAssistant, turn.Role)
		}
	}
	assert.Equal(t, domain.TurnIdle, conv.State())
}

// mapCache is a minimal driven.QueryCache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.RetrievalResult
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]domain.RetrievalResult)}
}

func cacheKey(version uint64, query string, k int) string {
	return fmt.Sprintf("%d|%d|%s", version, k, query)
}

func (c *mapCache) Get(version uint64, query string, k int) (domain.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[cacheKey(version, query, k)]
	return r, ok
}

func (c *mapCache) Put(version uint64, query string, k int, result domain.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(version, query, k)] = result
}

func (c *mapCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
