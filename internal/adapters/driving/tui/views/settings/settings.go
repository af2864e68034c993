// Package settings provides a read-only summary of the active configuration.
package settings

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/keymap"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/messages"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/styles"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// View shows the settings the session is running with.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	service driving.SettingsService

	settings *domain.Settings
	err      error
	width    int
	height   int
}

// NewView creates a settings view. service may be nil.
func NewView(s *styles.Styles, km *keymap.KeyMap, service driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:  s,
		keymap:  km,
		service: service,
		width:   80,
		height:  24,
	}
}

// Init loads the settings.
func (v *View) Init() tea.Cmd {
	return v.Load()
}

// Load returns a command that reads the current settings.
func (v *View) Load() tea.Cmd {
	service := v.service
	if service == nil {
		return nil
	}
	return func() tea.Msg {
		s, err := service.Get()
		return messages.SettingsLoaded{Settings: s, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
	case messages.SettingsLoaded:
		v.settings, v.err = msg.Settings, msg.Err
	case tea.KeyMsg:
		if keymap.Matches(msg.String(), v.keymap.Back) {
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
		}
	}
	return v, nil
}

// View renders the settings summary.
func (v *View) View() string {
	title := v.styles.Title.Render("Settings")
	help := v.styles.Help.Render("esc back · change with 'credirag settings set <key> <value>'")

	var body string
	switch {
	case v.service == nil:
		body = v.styles.Muted.Render("Settings are not available in this session.")
	case v.err != nil:
		body = v.styles.Error.Render("Failed to load settings: " + v.err.Error())
	case v.settings == nil:
		body = v.styles.Muted.Render("Loading...")
	default:
		body = v.render(v.settings)
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
}

func (v *View) render(s *domain.Settings) string {
	var b strings.Builder

	section := func(name string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Subtitle.Render(name) + "\n")
	}
	field := func(label, value string) {
		fmt.Fprintf(&b, "  %-14s %s\n", label+":", value)
	}

	section("Corpus")
	field("Path", s.Corpus.Path)
	if len(s.Corpus.Categories) > 0 {
		field("Categories", strings.Join(s.Corpus.Categories, ", "))
	}

	section("Embedding")
	field("Provider", s.Embedding.Provider.Description())
	field("Model", s.Embedding.Model)

	section("LLM")
	field("Provider", s.LLM.Provider.Description())
	field("Model", s.LLM.Model)
	field("API key", configured(s.LLM.APIKey != "" || !s.LLM.Provider.RequiresAPIKey()))

	section("Retrieval")
	field("Top k", fmt.Sprintf("%d", s.Retrieval.TopK))
	field("Context", fmt.Sprintf("%d chars", s.Generation.MaxContextChars))
	field("Index", fmt.Sprintf("%s (%s)", s.Index.Path, s.Index.Backend))

	return strings.TrimRight(b.String(), "\n")
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}

// Settings returns the loaded settings, or nil.
func (v *View) Settings() *domain.Settings {
	return v.settings
}

// Err returns the load error, if any.
func (v *View) Err() error {
	return v.err
}
