package mcp

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	result *domain.RetrievalResult
	err    error
	k      int
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, k int) (*domain.RetrievalResult, error) {
	m.k = k
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RetrievalResult{Query: query, K: k}, nil
	}
	return m.result, nil
}

// mockGenerator is a mock implementation of driving.AnswerGenerator.
type mockGenerator struct {
	answer *domain.Answer
	err    error
}

func (m *mockGenerator) Compose(_ string, _ *domain.RetrievalResult) (*domain.Prompt, error) {
	return &domain.Prompt{}, m.err
}

func (m *mockGenerator) Generate(_ context.Context, _ string, _ *domain.RetrievalResult) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockIndexManager is a mock implementation of driving.IndexManager.
type mockIndexManager struct {
	manifest domain.IndexManifest
	version  uint64
	loaded   bool
}

func (m *mockIndexManager) Open(_ context.Context, _ string) (domain.IndexManifest, error) {
	return m.manifest, nil
}

func (m *mockIndexManager) Reload(_ context.Context) (domain.IndexManifest, error) {
	return m.manifest, nil
}

func (m *mockIndexManager) Watch(_ context.Context) error { return nil }

func (m *mockIndexManager) Current() (domain.IndexManifest, uint64, bool) {
	return m.manifest, m.version, m.loaded
}

func (m *mockIndexManager) ReloadError() error { return nil }

func (m *mockIndexManager) Inspect(_ context.Context, _ string) (domain.IndexManifest, error) {
	return m.manifest, nil
}

func oneHit() *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Query: "late fees",
		K:     5,
		Hits: []domain.Hit{{
			Chunk: domain.Chunk{
				ID:         "3021#0",
				DocumentID: "3021",
				Category:   "Credit card",
				Text:       "I was charged a late fee after paying on time.",
			},
			Score: 0.87,
			Rank:  1,
		}},
		IndexVersion: 3,
	}
}
