package sources

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/messages"
	"github.com/creditrust/credirag/internal/core/domain"
)

func testCitations() []domain.Citation {
	return []domain.Citation{
		{Rank: 1, DocumentID: "3217", Category: "Credit card", Excerpt: "late fee charged twice", Score: 0.9},
		{Rank: 2, DocumentID: "5120", Category: "Savings account", Excerpt: "account frozen without notice", Score: 0.8},
	}
}

func TestNewView_Empty(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.Equal(t, 0, v.Count())
	assert.Nil(t, v.Selected())
	assert.Contains(t, v.View(), "No sources yet")
}

func TestView_SetSources(t *testing.T) {
	v := NewView(nil, nil)
	v.SetSources("Why the fees?", testCitations())

	assert.Equal(t, 2, v.Count())
	out := v.View()
	assert.Contains(t, out, `for "Why the fees?"`)
	assert.Contains(t, out, "Complaint 3217")
	assert.Contains(t, out, "late fee charged twice")
}

func TestView_Navigation(t *testing.T) {
	v := NewView(nil, nil)
	v.SetSources("q", testCitations())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.NotNil(t, v.Selected())
	assert.Equal(t, "5120", v.Selected().DocumentID)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, "3217", v.Selected().DocumentID)
}

func TestView_BackReturnsToChat(t *testing.T) {
	v := NewView(nil, nil)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewChat}, cmd())
}

func TestView_ShowsListHints(t *testing.T) {
	v := NewView(nil, nil)
	v.SetDimensions(140, 30)

	out := v.View()
	assert.Contains(t, out, "esc: back")
	assert.NotContains(t, out, "enter: ask")
}
