package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// mockConversation implements driving.ConversationDriver for testing.
type mockConversation struct {
	answer    *domain.Answer
	err       error
	observers []driving.StateObserver
}

func (m *mockConversation) Ask(context.Context, string) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockConversation) History() []domain.Turn { return nil }

func (m *mockConversation) State() domain.TurnState { return domain.TurnIdle }

func (m *mockConversation) Session() domain.Session {
	return domain.Session{ID: "session-1", StartedAt: time.Now()}
}

func (m *mockConversation) OnStateChange(fn driving.StateObserver) {
	m.observers = append(m.observers, fn)
}

func (m *mockConversation) emit(from, to domain.TurnState) {
	for _, fn := range m.observers {
		fn(from, to)
	}
}

// mockIndexManager implements driving.IndexManager for testing.
type mockIndexManager struct {
	manifest  domain.IndexManifest
	version   uint64
	loaded    bool
	reloadErr error
}

func (m *mockIndexManager) Open(context.Context, string) (domain.IndexManifest, error) {
	return m.manifest, nil
}

func (m *mockIndexManager) Reload(context.Context) (domain.IndexManifest, error) {
	return m.manifest, nil
}

func (m *mockIndexManager) Watch(context.Context) error { return nil }

func (m *mockIndexManager) Current() (domain.IndexManifest, uint64, bool) {
	return m.manifest, m.version, m.loaded
}

func (m *mockIndexManager) ReloadError() error { return m.reloadErr }

func (m *mockIndexManager) Inspect(context.Context, string) (domain.IndexManifest, error) {
	return m.manifest, nil
}

// recordingSender captures messages sent into a program.
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func sampleAnswer() *domain.Answer {
	return &domain.Answer{
		Text: "Most complaints concern disputed charges.",
		Sources: []domain.Citation{
			{Rank: 1, DocumentID: "1001", Category: "Credit card", Excerpt: "disputed a charge", Score: 0.88},
		},
	}
}
