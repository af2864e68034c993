package services

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationDriver = (*ConversationService)(nil)

// ConversationService runs question/answer turns for one in-memory session.
// Turns are serialised; a failed turn leaves history unchanged.
type ConversationService struct {
	retriever driving.Retriever
	generator driving.AnswerGenerator
	k         int
	now       func() time.Time

	turnMu sync.Mutex

	mu        sync.RWMutex
	session   domain.Session
	state     domain.TurnState
	history   []domain.Turn
	observers []driving.StateObserver
	lastErr   error
}

// NewConversation starts a session. k <= 0 uses the retriever's default.
func NewConversation(retriever driving.Retriever, generator driving.AnswerGenerator, k int) *ConversationService {
	return &ConversationService{
		retriever: retriever,
		generator: generator,
		k:         k,
		now:       time.Now,
		session: domain.Session{
			ID:        uuid.New().String(),
			StartedAt: time.Now(),
		},
		state: domain.TurnIdle,
	}
}

// Ask runs one turn: retrieve, compose, invoke. Blank questions are rejected
// before the state machine starts.
func (c *ConversationService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuery
	}

	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	logger.Section("Turn")
	asked := c.now()

	c.advanceTo(domain.TurnEmbedding)
	ctx = withStage(ctx, c.advanceTo)

	retrieved, err := c.retriever.Retrieve(ctx, question, c.k)
	if err != nil {
		return nil, c.fail(err)
	}

	c.advanceTo(domain.TurnComposing)

	answer, err := c.generator.Generate(ctx, question, retrieved)
	if err != nil {
		return nil, c.fail(err)
	}

	c.advanceTo(domain.TurnDone)

	c.mu.Lock()
	c.history = append(c.history,
		domain.Turn{Role: domain.RoleUser, Text: question, At: asked},
		domain.Turn{Role: domain.RoleAssistant, Text: answer.Text, Sources: answer.Sources, At: c.now()},
	)
	c.lastErr = nil
	c.mu.Unlock()

	c.transition(domain.TurnIdle)
	return answer, nil
}

// fail records err and returns the machine to idle.
func (c *ConversationService) fail(err error) error {
	logger.Debug("turn failed in state %s: %v", c.State(), err)

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.transition(domain.TurnFailed)
	c.transition(domain.TurnIdle)
	return err
}

// advanceTo steps forward through the successful path until target is reached.
func (c *ConversationService) advanceTo(target domain.TurnState) {
	for {
		current := c.State()
		if current == target || current.Next() == domain.TurnIdle {
			return
		}
		c.transition(current.Next())
	}
}

func (c *ConversationService) transition(next domain.TurnState) {
	c.mu.Lock()
	from := c.state
	if from == next || !from.CanTransition(next) {
		c.mu.Unlock()
		return
	}
	c.state = next
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(from, next)
	}
}

// History returns a copy of the session's turns in order.
func (c *ConversationService) History() []domain.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.history)
}

// State returns the current turn state.
func (c *ConversationService) State() domain.TurnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session identifies the conversation.
func (c *ConversationService) Session() domain.Session {
	return c.session
}

// LastError returns the error of the most recent failed turn, cleared by a successful one.
func (c *ConversationService) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastSources returns the citations of the most recent answer.
func (c *ConversationService) LastSources() []domain.Citation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].Role == domain.RoleAssistant {
			return slices.Clone(c.history[i].Sources)
		}
	}
	return nil
}

// OnStateChange registers an observer for state transitions.
func (c *ConversationService) OnStateChange(fn driving.StateObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}
