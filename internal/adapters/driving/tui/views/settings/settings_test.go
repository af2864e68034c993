package settings

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/adapters/driving/tui/messages"
	"github.com/creditrust/credirag/internal/core/domain"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings *domain.Settings
	err      error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) { return m.settings, m.err }

func (m *mockSettingsService) Set(string, string) error { return nil }

func (m *mockSettingsService) Keys() []string { return nil }

func (m *mockSettingsService) IsSecret(string) bool { return false }

func (m *mockSettingsService) SetEmbeddingProvider(domain.AIProvider, string, string) error {
	return nil
}

func (m *mockSettingsService) SetLLMProvider(domain.AIProvider, string, string) error { return nil }

func (m *mockSettingsService) Validate() error { return nil }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *mockSettingsService) ValidateLLMConfig() error { return nil }

func TestView_NoService(t *testing.T) {
	v := NewView(nil, nil, nil)

	assert.Nil(t, v.Init())
	assert.Contains(t, v.View(), "not available")
}

func TestView_LoadAndRender(t *testing.T) {
	s := domain.DefaultSettings()
	s.Index.Path = "/tmp/index.db"
	s.Corpus.Categories = []string{"Credit card", "Personal loan"}
	v := NewView(nil, nil, &mockSettingsService{settings: &s})

	assert.Contains(t, v.View(), "Loading...")

	cmd := v.Init()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, messages.SettingsLoaded{}, msg)

	v, _ = v.Update(msg)
	require.NotNil(t, v.Settings())

	out := v.View()
	assert.Contains(t, out, "Hashing (offline, built in)")
	assert.Contains(t, out, "Credit card, Personal loan")
	assert.Contains(t, out, "/tmp/index.db (flat)")
	assert.Contains(t, out, "missing")
}

func TestView_LoadError(t *testing.T) {
	v := NewView(nil, nil, &mockSettingsService{err: errors.New("disk gone")})

	v, _ = v.Update(v.Init()())

	assert.Error(t, v.Err())
	assert.Contains(t, v.View(), "disk gone")
}

func TestView_BackReturnsToChat(t *testing.T) {
	v := NewView(nil, nil, nil)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewChat}, cmd())
}
