package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/keymap"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/messages"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/styles"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/views/chat"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/views/settings"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/views/sources"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// IndexPollInterval is how often the served index version is checked.
const IndexPollInterval = 2 * time.Second

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	chatView     *chat.View
	sourcesView  *sources.View
	settingsView *settings.View

	currentView messages.ViewType

	// indexVersion is the last version seen; zero until an index is loaded.
	indexVersion uint64
	reloadErr    error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingConversation)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		keymap:       km,
		chatView:     chat.NewView(s, km, ports.Conversation),
		sourcesView:  sources.NewView(s, km),
		settingsView: settings.NewView(s, km, ports.Settings),
		currentView:  messages.ViewChat,
	}, nil
}

// WithContext sets the context turns run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	return a
}

// Observe forwards conversation state transitions to p so the status bar
// follows a turn while it runs.
func (a *App) Observe(p Sender) {
	a.ports.Conversation.OnStateChange(func(from, to domain.TurnState) {
		p.Send(messages.StateChanged{From: from, To: to})
	})
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("credirag"),
		a.chatView.Init(),
		a.checkIndex(),
	)
}

// checkIndex reports the currently served index, or nil without an index port.
func (a *App) checkIndex() tea.Cmd {
	index := a.ports.Index
	if index == nil {
		return nil
	}
	return func() tea.Msg { return indexStatus(index) }
}

func (a *App) scheduleIndexCheck() tea.Cmd {
	index := a.ports.Index
	if index == nil {
		return nil
	}
	return tea.Tick(IndexPollInterval, func(time.Time) tea.Msg { return indexStatus(index) })
}

func indexStatus(index driving.IndexManager) messages.IndexStatus {
	manifest, version, ok := index.Current()
	return messages.IndexStatus{Manifest: manifest, Version: version, Loaded: ok, ReloadErr: index.ReloadError()}
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.IndexStatus:
		a.handleIndexStatus(msg)
		return a, a.scheduleIndexCheck()

	case messages.SettingsLoaded:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.AnswerReceived, messages.StateChanged, messages.ErrorOccurred:
		// Turn results land in the chat even while another view is shown.
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Everything else (spinner ticks, cursor blinks) belongs to the chat,
	// which keeps animating while another view is shown.
	a.chatView, cmd = a.chatView.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	k := msg.String()

	if keymap.Matches(k, a.keymap.Quit) {
		return a, tea.Quit
	}

	switch {
	case keymap.Matches(k, a.keymap.Sources) && a.currentView == messages.ViewChat:
		return a, a.switchTo(messages.ViewSources)
	case keymap.Matches(k, a.keymap.Help):
		return a, a.switchTo(messages.ViewHelp)
	case keymap.Matches(k, a.keymap.Settings):
		return a, a.switchTo(messages.ViewSettings)
	}

	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewSources:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
		if keymap.Matches(k, a.keymap.Back) {
			a.currentView = messages.ViewChat
		}
	}
	return a, cmd
}

func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view

	switch view {
	case messages.ViewSources:
		if answer := a.chatView.LastAnswer(); answer != nil {
			a.sourcesView.SetSources(a.lastQuestion(), answer.Sources)
		}
	case messages.ViewSettings:
		return a.settingsView.Load()
	case messages.ViewChat, messages.ViewHelp:
	}
	return nil
}

// lastQuestion returns the question behind the last answer.
func (a *App) lastQuestion() string {
	entries := a.chatView.Entries()
	for i := len(entries) - 1; i > 0; i-- {
		if entries[i].Role == domain.RoleAssistant && entries[i-1].Role == domain.RoleUser {
			return entries[i-1].Text
		}
	}
	return ""
}

func (a *App) handleIndexStatus(msg messages.IndexStatus) {
	// Background reload failures are shown once per distinct error.
	if msg.ReloadErr != nil && (a.reloadErr == nil || msg.ReloadErr.Error() != a.reloadErr.Error()) {
		a.chatView.SetMessage(fmt.Sprintf("Index reload failed, still serving v%d: %v", msg.Version, msg.ReloadErr))
	}
	a.reloadErr = msg.ReloadErr

	if !msg.Loaded {
		a.chatView.SetIndex("", 0, false)
		return
	}
	if a.indexVersion != 0 && msg.Version != a.indexVersion {
		a.chatView.SetMessage(fmt.Sprintf("Index reloaded (v%d)", msg.Version))
	}
	a.indexVersion = msg.Version
	a.chatView.SetIndex(msg.Manifest.EmbeddingModel, msg.Version, true)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSources:
		return a.sourcesView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.chatView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Chat:
  (type)      Enter a question
  enter       Ask
  pgup/pgdn   Scroll the transcript
  /sources    Show sources of the last answer
  /settings   Show settings
  /exit       Quit

Views:
  tab         Sources of the last answer
  f2          Settings
  f1          This help
  esc         Back to chat
  ctrl+c      Quit

[esc] back to chat`
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}

// Sources returns the sources view.
func (a *App) Sources() *sources.View {
	return a.sourcesView
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.chatView.SetDimensions(width, height)
	a.sourcesView.SetDimensions(width, height)
}
