// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/creditrust/credirag/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the transcript and question input.
	ViewChat ViewType = iota
	// ViewSources lists the citations of the last answer.
	ViewSources
	// ViewSettings shows the active configuration.
	ViewSettings
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewSources:
		return "sources"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// AnswerReceived carries the outcome of one conversation turn.
// Exactly one of Answer and Err is set.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// StateChanged mirrors a turn state transition of the conversation.
type StateChanged struct {
	From domain.TurnState
	To   domain.TurnState
}

// IndexStatus reports the index currently being served.
type IndexStatus struct {
	Manifest domain.IndexManifest
	Version  uint64
	Loaded   bool

	// ReloadErr is the last failed background reload, if any.
	ReloadErr error
}

// SettingsLoaded carries the active settings.
type SettingsLoaded struct {
	Settings *domain.Settings
	Err      error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
