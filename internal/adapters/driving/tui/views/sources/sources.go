// Package sources provides the view listing the complaints behind the last answer.
package sources

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/components/list"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/components/status"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/keymap"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/messages"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/styles"
	"github.com/creditrust/credirag/internal/core/domain"
)

// View shows the citations of one answer.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	list   *list.SourceList
	bar    *status.Bar

	question string
	width    int
	height   int
}

// NewView creates a sources view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	bar := status.NewBar(s, km)
	bar.SetListMode(true)
	return &View{
		styles: s,
		keymap: km,
		list:   list.NewSourceList(s),
		bar:    bar,
		width:  80,
		height: 24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation. Back returns to the chat.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil
	case tea.KeyMsg:
		if keymap.Matches(msg.String(), v.keymap.Back) {
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
		}
		var cmd tea.Cmd
		v.list, cmd = v.list.Update(msg)
		return v, cmd
	}
	return v, nil
}

// View renders the source list.
func (v *View) View() string {
	title := v.styles.Title.Render("Sources")
	if v.question != "" {
		title += v.styles.Muted.Render(fmt.Sprintf("  for %q", v.question))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, "", v.list.View(), "", v.bar.View())
}

// SetSources replaces the listed citations.
func (v *View) SetSources(question string, sources []domain.Citation) {
	v.question = question
	v.list.SetSources(sources)
}

// Selected returns the highlighted citation, or nil.
func (v *View) Selected() *domain.Citation {
	return v.list.SelectedSource()
}

// Count returns the number of listed citations.
func (v *View) Count() int {
	return v.list.Count()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.list.SetDimensions(width, max(height-4, 3))
	v.bar.SetWidth(width)
}
