// Package chat provides the conversation view: transcript, question input and status.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/components/input"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/components/status"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/keymap"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/messages"
	"github.com/creditrust/credirag/internal/adapters/driving/tui/styles"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// ErrNoConversation indicates that no conversation driver was provided.
var ErrNoConversation = errors.New("conversation driver is required")

// chrome is the number of lines used by everything except the transcript.
const chrome = 7

// Entry is one line of the visible transcript. Failed questions stay
// visible here even though the session history drops them.
type Entry struct {
	Role    domain.Role
	Text    string
	Sources []domain.Citation
	Err     error
}

// View is the chat screen.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.ChatInput
	transcript viewport.Model
	spinner    spinner.Model
	statusbar  *status.Bar

	conversation driving.ConversationDriver
	ctx          context.Context

	entries    []Entry
	lastAnswer *domain.Answer
	busy       bool

	width  int
	height int
	ready  bool
}

// NewView creates a chat view over conv.
func NewView(s *styles.Styles, km *keymap.KeyMap, conv driving.ConversationDriver) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Subtitle

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewChatInput(s),
		transcript:   viewport.New(80, 24-chrome),
		spinner:      sp,
		statusbar:    status.NewBar(s, km),
		conversation: conv,
		ctx:          context.Background(),
		width:        80,
		height:       24,
	}
}

// WithContext sets the context turns run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.StateChanged:
		v.statusbar.SetState(msg.To)
		return v, nil

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetError(msg.Err)
		return v, nil

	case spinner.TickMsg:
		if !v.busy {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.ScrollUp), keymap.Matches(msg.String(), v.keymap.ScrollDown):
		// Only page keys reach the viewport; letters belong to the input.
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	case keymap.Matches(msg.String(), v.keymap.Send):
		return v, v.submit()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit handles slash commands or starts a turn. Only one turn runs at a time.
func (v *View) submit() tea.Cmd {
	text := strings.TrimSpace(v.input.Value())
	if text == "" {
		return nil
	}

	switch text {
	case "/exit", "/quit":
		return func() tea.Msg { return messages.Quit{} }
	case "/sources":
		v.input.Reset()
		return changeView(messages.ViewSources)
	case "/settings":
		v.input.Reset()
		return changeView(messages.ViewSettings)
	case "/help":
		v.input.Reset()
		return changeView(messages.ViewHelp)
	}

	if v.busy {
		v.statusbar.SetMessage("Still answering the previous question")
		return nil
	}
	if v.conversation == nil {
		v.statusbar.SetError(ErrNoConversation)
		return nil
	}

	v.input.Reset()
	v.busy = true
	v.entries = append(v.entries, Entry{Role: domain.RoleUser, Text: text})
	v.refresh()

	return tea.Batch(v.ask(text), v.spinner.Tick)
}

func (v *View) ask(question string) tea.Cmd {
	conv, ctx := v.conversation, v.ctx
	return func() tea.Msg {
		answer, err := conv.Ask(ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.busy = false

	switch {
	case errors.Is(msg.Err, domain.ErrNoRelevantContext):
		v.markLastQuestion(msg.Err)
		v.statusbar.SetMessage("No relevant complaints found")
	case msg.Err != nil:
		v.markLastQuestion(msg.Err)
		v.statusbar.SetError(msg.Err)
	default:
		v.lastAnswer = msg.Answer
		v.entries = append(v.entries, Entry{
			Role:    domain.RoleAssistant,
			Text:    msg.Answer.Text,
			Sources: msg.Answer.Sources,
		})
		if msg.Answer.DroppedChunks > 0 {
			v.statusbar.SetMessage(fmt.Sprintf("%d excerpts left out to fit the context", msg.Answer.DroppedChunks))
		}
	}
	v.refresh()
}

func (v *View) markLastQuestion(err error) {
	for i := len(v.entries) - 1; i >= 0; i-- {
		if v.entries[i].Role == domain.RoleUser {
			v.entries[i].Err = err
			return
		}
	}
}

// refresh re-renders the transcript and keeps the newest turn in view.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 {
		return v.styles.Muted.Render("Ask a question about customer complaints, e.g.\n" +
			"  Why are people unhappy with BNPL?\n" +
			"  What do customers say about credit card late fees?")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
	blocks := make([]string, 0, len(v.entries)+1)

	for _, e := range v.entries {
		switch e.Role {
		case domain.RoleUser:
			block := v.styles.UserTurn.Render("You: ") + wrap.Render(e.Text)
			if e.Err != nil {
				block += "\n" + v.styles.Error.Render("  ✗ "+e.Err.Error())
			}
			blocks = append(blocks, block)
		case domain.RoleAssistant:
			block := v.styles.AssistantTurn.Render("Assistant:") + "\n" + wrap.Render(e.Text)
			if refs := v.renderSources(e.Sources); refs != "" {
				block += "\n" + refs
			}
			blocks = append(blocks, block)
		}
	}

	if v.busy {
		blocks = append(blocks, v.spinner.View()+" "+v.styles.Muted.Render("thinking..."))
	}

	return strings.Join(blocks, "\n\n")
}

func (v *View) renderSources(sources []domain.Citation) string {
	if len(sources) == 0 {
		return ""
	}
	refs := make([]string, len(sources))
	for i, c := range sources {
		refs[i] = fmt.Sprintf("[%d] %s (%s)", c.Rank, c.DocumentID, c.Category)
	}
	return v.styles.Citation.Render("Sources: " + strings.Join(refs, "  "))
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg { return messages.ViewChanged{View: view} }
}

// View renders the chat screen.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("credirag") + v.styles.Muted.Render("  complaint insights")
	if v.conversation != nil {
		id := v.conversation.Session().ID
		if len(id) > 8 {
			id = id[:8]
		}
		header += v.styles.Muted.Render("  session " + id)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.transcript.Width = width
	v.transcript.Height = max(height-chrome, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// SetIndex forwards the served index to the status bar.
func (v *View) SetIndex(model string, version uint64, loaded bool) {
	v.statusbar.SetIndex(model, version, loaded)
}

// SetMessage shows an informational message in the status bar.
func (v *View) SetMessage(msg string) {
	v.statusbar.SetMessage(msg)
}

// Entries returns the visible transcript.
func (v *View) Entries() []Entry {
	return v.entries
}

// LastAnswer returns the most recent successful answer, or nil.
func (v *View) LastAnswer() *domain.Answer {
	return v.lastAnswer
}

// Busy reports whether a turn is in flight.
func (v *View) Busy() bool {
	return v.busy
}

// SetQuestion fills the input.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Question returns the text in the input.
func (v *View) Question() string {
	return v.input.Value()
}

// Status exposes the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}
