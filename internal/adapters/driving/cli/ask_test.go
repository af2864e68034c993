package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/core/domain"
)

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	a := newFakeApp()
	a.retriever.result = twoHits()
	a.generator.answer = sampleAnswer()

	out, err := runCLI(t, a, "", "ask", "why late fees?")

	require.NoError(t, err)
	assert.Contains(t, out, "Customers mostly complain about late fees")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Complaint 3021 - Credit card (0.87)")
	assert.Contains(t, out, "[2] Complaint 4410")
	assert.Contains(t, out, "1 more excerpts did not fit")
}

func TestAskCmd_NoRelevantContext(t *testing.T) {
	a := newFakeApp()
	a.generator.err = domain.ErrNoRelevantContext

	out, err := runCLI(t, a, "", "ask", "unrelated")

	require.NoError(t, err)
	assert.Contains(t, out, "No relevant complaints found")
}

func TestAskCmd_GenerationError(t *testing.T) {
	a := newFakeApp()
	a.retriever.result = twoHits()
	a.generator.err = &domain.GenerationError{Model: "mock-llm", Err: errors.New("rate limited")}

	_, err := runCLI(t, a, "", "ask", "why?")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestAskCmd_RetrievalErrorSkipsGeneration(t *testing.T) {
	a := newFakeApp()
	a.retriever.err = domain.ErrEmptyQuery
	a.generator.answer = sampleAnswer()

	out, err := runCLI(t, a, "", "ask", " ")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_NoLLM(t *testing.T) {
	a := newFakeApp()
	a.generatorErr = domain.ErrLLMUnavailable

	_, err := runCLI(t, a, "", "ask", "why?")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAskCmd_JSON(t *testing.T) {
	a := newFakeApp()
	a.generator.answer = sampleAnswer()

	out, err := runCLI(t, a, "", "ask", "--json", "why?")

	require.NoError(t, err)
	assert.Contains(t, out, `"DocumentID": "3021"`)
	assert.Contains(t, out, `"Model": "mock-llm"`)
}
