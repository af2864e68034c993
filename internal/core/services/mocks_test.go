package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Known texts map to fixed vectors; anything else gets the fallback vector.
type mockEmbeddingService struct {
	vectors   map[string][]float32
	embedding []float32
	embedErr  error
	dims      int
	model     string

	embedCalls atomic.Int32
	batchCalls atomic.Int32
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	if m.embedding != nil {
		return m.embedding
	}
	v := make([]float32, m.Dimensions())
	v[0] = 1
	return v
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbeddingService) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	hits      []domain.Hit
	searchErr error
	manifest  domain.IndexManifest

	mu       sync.Mutex
	searches []int
	closed   atomic.Int32
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]domain.Hit, error) {
	m.mu.Lock()
	m.searches = append(m.searches, k)
	m.mu.Unlock()

	if m.closed.Load() > 0 {
		return nil, domain.ErrIndexClosed
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) Len() int {
	return len(m.hits)
}

func (m *mockVectorIndex) Manifest() domain.IndexManifest {
	return m.manifest
}

func (m *mockVectorIndex) Save(_ context.Context, _ string) error {
	return errors.New("not supported")
}

func (m *mockVectorIndex) Close() error {
	m.closed.Add(1)
	return nil
}

func (m *mockVectorIndex) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches)
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	response string
	err      error

	mu      sync.Mutex
	prompts []string
	opts    []driven.GenerateOptions
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// mockCorpusLoader implements driven.CorpusLoader for testing.
type mockCorpusLoader struct {
	records []domain.CorpusRecord
	err     error
	paths   []string
}

func (m *mockCorpusLoader) Load(_ context.Context, path string) ([]domain.CorpusRecord, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// --- Helpers ---

func testHit(rank int, docID, category, text string, score float64) domain.Hit {
	return domain.Hit{
		Chunk: domain.Chunk{
			ID:         docID + "#0",
			DocumentID: docID,
			Category:   category,
			Text:       text,
			End:        len([]rune(text)),
		},
		Score: score,
		Rank:  rank,
	}
}
