package domain

import "time"

// Role identifies who authored a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a conversation session.
type Turn struct {
	Role Role
	Text string

	// Sources is set on assistant turns only.
	Sources []Citation

	At time.Time
}

// Session identifies an in-memory conversation.
type Session struct {
	ID        string
	StartedAt time.Time
}

// TurnState is a stage of the per-turn state machine.
type TurnState int

// Turn states, in the order a successful turn visits them.
const (
	TurnIdle TurnState = iota
	TurnEmbedding
	TurnSearching
	TurnComposing
	TurnInvoking
	TurnDone
	TurnFailed
)

// String returns the string representation.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnEmbedding:
		return "embedding"
	case TurnSearching:
		return "searching"
	case TurnComposing:
		return "composing"
	case TurnInvoking:
		return "invoking"
	case TurnDone:
		return "done"
	case TurnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Next returns the state a successful transition leads to.
// Terminal states lead back to idle.
func (s TurnState) Next() TurnState {
	switch s {
	case TurnIdle:
		return TurnEmbedding
	case TurnEmbedding:
		return TurnSearching
	case TurnSearching:
		return TurnComposing
	case TurnComposing:
		return TurnInvoking
	case TurnInvoking:
		return TurnDone
	default:
		return TurnIdle
	}
}

// CanTransition reports whether moving from s to next is legal.
// Any in-flight state may fail; done and failed only return to idle.
func (s TurnState) CanTransition(next TurnState) bool {
	if next == TurnFailed {
		return s != TurnDone && s != TurnFailed
	}
	return s.Next() == next
}

// Busy reports whether a turn is in flight.
func (s TurnState) Busy() bool {
	return s >= TurnEmbedding && s <= TurnInvoking
}
