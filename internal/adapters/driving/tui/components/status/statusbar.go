// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/keymap"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/styles"
	"github.com/creditrust/credirag/internal/core/domain"
)

// Bar shows the turn state, the served index and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   domain.TurnState
	message string
	failed  bool

	indexModel   string
	indexVersion uint64
	indexLoaded  bool

	listMode bool
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  domain.TurnIdle,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	padding := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var parts []string

	switch {
	case s.failed:
		if s.message != "" {
			parts = append(parts, s.styles.Error.Render("Error: "+s.message))
		} else {
			parts = append(parts, s.styles.Error.Render("Error"))
		}
	case s.state.Busy():
		parts = append(parts, s.styles.Warning.Render(stateLabel(s.state)))
	case s.message != "":
		parts = append(parts, s.styles.Normal.Render(s.message))
	default:
		parts = append(parts, s.styles.Muted.Render("Ready"))
	}

	if s.indexLoaded {
		parts = append(parts, s.styles.Muted.Render(fmt.Sprintf("index v%d · %s", s.indexVersion, s.indexModel)))
	} else {
		parts = append(parts, s.styles.Warning.Render("no index"))
	}

	return strings.Join(parts, s.styles.Muted.Render(" | "))
}

// stateLabel describes an in-flight turn state.
func stateLabel(state domain.TurnState) string {
	switch state {
	case domain.TurnEmbedding:
		return "Embedding question..."
	case domain.TurnSearching:
		return "Searching complaints..."
	case domain.TurnComposing:
		return "Composing prompt..."
	case domain.TurnInvoking:
		return "Waiting for the model..."
	default:
		return state.String()
	}
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	if s.listMode {
		bindings = s.keymap.ListHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState records the conversation's turn state. Leaving an in-flight
// state for idle keeps any error shown until the next turn starts.
func (s *Bar) SetState(state domain.TurnState) {
	if state == domain.TurnEmbedding {
		s.failed = false
		s.message = ""
	}
	s.state = state
}

// State returns the current turn state.
func (s *Bar) State() domain.TurnState {
	return s.state
}

// SetError shows err until the next turn starts.
func (s *Bar) SetError(err error) {
	s.failed = err != nil
	s.message = ""
	if err != nil {
		s.message = err.Error()
	}
}

// Failed returns whether an error is displayed.
func (s *Bar) Failed() bool {
	return s.failed
}

// SetMessage sets an informational message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetIndex records the index being served.
func (s *Bar) SetIndex(model string, version uint64, loaded bool) {
	s.indexModel = model
	s.indexVersion = version
	s.indexLoaded = loaded
}

// SetListMode switches the hints to list navigation.
func (s *Bar) SetListMode(on bool) {
	s.listMode = on
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
