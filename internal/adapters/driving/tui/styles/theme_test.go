package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme_AccentsAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	accents := []lipgloss.Color{theme.Primary, theme.Secondary, theme.Success, theme.Warning, theme.Error}
	seen := make(map[lipgloss.Color]bool)
	for _, c := range accents {
		assert.NotEmpty(t, string(c))
		assert.False(t, seen[c], "duplicate accent %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilThemeUsesDefault(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestStyles_TurnLabelsDifferFromEachOther(t *testing.T) {
	s := DefaultStyles()

	assert.NotEqual(t, lipgloss.Style{}, s.UserTurn)
	assert.NotEqual(t, lipgloss.Style{}, s.AssistantTurn)
	assert.NotEqual(t, lipgloss.Style{}, s.Citation)
	assert.NotEqual(t, s.UserTurn.GetForeground(), s.AssistantTurn.GetForeground())
}

func TestStyles_CitationIsIndented(t *testing.T) {
	s := DefaultStyles()

	assert.Equal(t, 2, s.Citation.GetPaddingLeft())
}
