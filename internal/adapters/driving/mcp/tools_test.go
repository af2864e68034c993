package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/core/domain"
)

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked chunks", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{result: oneHit()}})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "late fees", K: 5})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, uint64(3), output.IndexVersion)
		require.Len(t, output.Chunks, 1)
		assert.Equal(t, "3021", output.Chunks[0].DocumentID)
		assert.Equal(t, "Credit card", output.Chunks[0].Category)
		assert.Equal(t, 1, output.Chunks[0].Rank)
		assert.InDelta(t, 0.87, output.Chunks[0].Score, 1e-9)
	})

	t.Run("passes k through so the retriever applies its default", func(t *testing.T) {
		retriever := &mockRetriever{}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})

		require.NoError(t, err)
		assert.Equal(t, 0, retriever.k)
		assert.Empty(t, output.Chunks)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{err: domain.ErrIndexNotLoaded}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})

		assert.ErrorIs(t, err, domain.ErrIndexNotLoaded)
	})
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with sources", func(t *testing.T) {
		gen := &mockGenerator{answer: &domain.Answer{
			Text:  "Customers report late fees charged after on-time payments [Source 1].",
			Model: "mock-llm",
			Sources: []domain.Citation{{
				Rank: 1, DocumentID: "3021", Category: "Credit card", Excerpt: "I was charged", Score: 0.87,
			}},
			DroppedChunks: 2,
		}}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{result: oneHit()}, Generator: gen})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "why late fees?"})

		require.NoError(t, err)
		assert.Contains(t, output.Answer, "[Source 1]")
		assert.Equal(t, "mock-llm", output.Model)
		assert.Equal(t, 2, output.DroppedChunks)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "3021", output.Sources[0].DocumentID)
		assert.Equal(t, "I was charged", output.Sources[0].Excerpt)
	})

	t.Run("no relevant context is reported as an answer", func(t *testing.T) {
		gen := &mockGenerator{err: domain.ErrNoRelevantContext}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Generator: gen})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "anything"})

		require.NoError(t, err)
		assert.Equal(t, domain.ErrNoRelevantContext.Error(), output.Answer)
		assert.Empty(t, output.Sources)
	})

	t.Run("generation failure is returned", func(t *testing.T) {
		genErr := &domain.GenerationError{Model: "mock-llm", Err: errors.New("503")}
		server, err := NewServer(&Ports{
			Retriever: &mockRetriever{result: oneHit()},
			Generator: &mockGenerator{err: genErr},
		})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "why?"})

		assert.ErrorIs(t, err, domain.ErrGeneration)
	})

	t.Run("retrieval failure skips generation", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Retriever: &mockRetriever{err: domain.ErrEmptyQuery},
			Generator: &mockGenerator{answer: &domain.Answer{Text: "unused"}},
		})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: " "})

		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	})
}
