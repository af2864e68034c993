// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/styles"
	"github.com/creditrust/credirag/internal/core/domain"
)

// SourceList displays the citations of an answer in a navigable list.
type SourceList struct {
	sources  []domain.Citation
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list with the selected excerpt expanded.
func (l *SourceList) View() string {
	if len(l.sources) == 0 {
		return l.styles.Muted.Render("No sources yet. Ask a question first.")
	}

	lines := make([]string, 0, len(l.sources)+4)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.sources))), "")

	// One line per source plus the expanded excerpt below the list.
	visible := max(l.height-8, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.sources))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderSource(i))
	}

	if c := l.SelectedSource(); c != nil {
		excerpt := lipgloss.NewStyle().Width(max(l.width-4, 20)).Render(c.Excerpt)
		lines = append(lines, "", l.styles.Border.Padding(0, 1).Render(excerpt))
	}

	return strings.Join(lines, "\n")
}

func (l *SourceList) renderSource(i int) string {
	c := l.sources[i]
	label := fmt.Sprintf("[%d] Complaint %s - %s", c.Rank, c.DocumentID, c.Category)
	maxLen := max(l.width-12, 10)
	if len([]rune(label)) > maxLen {
		label = string([]rune(label)[:maxLen-3]) + "..."
	}
	score := fmt.Sprintf("%.2f", c.Score)

	if i == l.selected {
		return l.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", maxLen, label, score))
	}
	return l.styles.Normal.Render(fmt.Sprintf("  %-*s  ", maxLen, label)) + l.styles.Muted.Render(score)
}

// SetSources replaces the list contents and selects the first entry.
func (l *SourceList) SetSources(sources []domain.Citation) {
	l.sources = sources
	l.selected = 0
}

// Sources returns the current citations.
func (l *SourceList) Sources() []domain.Citation {
	return l.sources
}

// Selected returns the index of the selected source.
func (l *SourceList) Selected() int {
	return l.selected
}

// SelectedSource returns the selected citation, or nil if the list is empty.
func (l *SourceList) SelectedSource() *domain.Citation {
	if l.selected < 0 || l.selected >= len(l.sources) {
		return nil
	}
	return &l.sources[l.selected]
}

// MoveUp moves selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.sources)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of sources.
func (l *SourceList) Count() int {
	return len(l.sources)
}
