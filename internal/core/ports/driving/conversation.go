package driving

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// StateObserver is notified of every turn state transition.
type StateObserver func(from, to domain.TurnState)

// ConversationDriver runs question/answer turns and keeps session history.
type ConversationDriver interface {
	// Ask runs one full turn. On failure no partial answer is returned and
	// history is left unchanged.
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// History returns a copy of the session's turns in order.
	History() []domain.Turn

	// State returns the current turn state.
	State() domain.TurnState

	// Session identifies the conversation.
	Session() domain.Session

	// OnStateChange registers an observer for state transitions.
	OnStateChange(fn StateObserver)
}
