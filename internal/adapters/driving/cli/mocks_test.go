package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// fakeApp implements App over hand-written fakes.
type fakeApp struct {
	settings     *fakeSettings
	builder      *fakeBuilder
	manager      *fakeManager
	retriever    *fakeRetriever
	generator    *fakeGenerator
	conversation *fakeConversation
	generatorErr error
	indexPath    string
	closed       bool
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		settings:     &fakeSettings{values: map[string]string{}},
		builder:      &fakeBuilder{},
		manager:      &fakeManager{},
		retriever:    &fakeRetriever{},
		generator:    &fakeGenerator{},
		conversation: &fakeConversation{},
		indexPath:    "/tmp/index.db",
	}
}

func (a *fakeApp) Settings() driving.SettingsService { return a.settings }
func (a *fakeApp) IndexPath() string { return a.indexPath }

func (a *fakeApp) IndexBuilder(context.Context) (driving.IndexBuilder, error) { return a.builder, nil }
func (a *fakeApp) IndexManager(context.Context) (driving.IndexManager, error) { return a.manager, nil }
func (a *fakeApp) Retriever(context.Context) (driving.Retriever, error) { return a.retriever, nil }

func (a *fakeApp) Generator(context.Context) (driving.AnswerGenerator, error) {
	if a.generatorErr != nil {
		return nil, a.generatorErr
	}
	return a.generator, nil
}

func (a *fakeApp) Conversation(context.Context) (driving.ConversationDriver, error) {
	return a.conversation, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

// fakeSettings implements driving.SettingsService.
type fakeSettings struct {
	values      map[string]string
	setErr      error
	validateErr error
	embedding   domain.AIProvider
	llm         domain.AIProvider
	apiKey      string
}

func (s *fakeSettings) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()
	settings.Index.Path = "/tmp/index.db"
	if p, ok := s.values["corpus.path"]; ok {
		settings.Corpus.Path = p
	}
	return &settings, nil
}

func (s *fakeSettings) Set(key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *fakeSettings) Keys() []string {
	return []string{"corpus.path", "chunking.size", "llm.api_key"}
}

func (s *fakeSettings) IsSecret(key string) bool { return strings.HasSuffix(key, "api_key") }

func (s *fakeSettings) SetEmbeddingProvider(p domain.AIProvider, _, _ string) error {
	s.embedding = p
	return nil
}

func (s *fakeSettings) SetLLMProvider(p domain.AIProvider, _, apiKey string) error {
	s.llm = p
	s.apiKey = apiKey
	return nil
}

func (s *fakeSettings) Validate() error { return s.validateErr }
func (s *fakeSettings) GetDefaults() domain.Settings { return domain.DefaultSettings() }
func (s *fakeSettings) ValidateEmbeddingConfig() error { return nil }
func (s *fakeSettings) ValidateLLMConfig() error { return nil }

// fakeBuilder implements driving.IndexBuilder.
type fakeBuilder struct {
	report *domain.BuildReport
	err    error
	req    driving.BuildRequest
}

func (b *fakeBuilder) Build(_ context.Context, req driving.BuildRequest) (*domain.BuildReport, error) {
	b.req = req
	if b.err != nil {
		return nil, b.err
	}
	if b.report != nil {
		return b.report, nil
	}
	return &domain.BuildReport{Path: "/tmp/index.db"}, nil
}

// fakeManager implements driving.IndexManager.
type fakeManager struct {
	manifest  domain.IndexManifest
	err       error
	inspected string
	watched   chan struct{}
}

func (m *fakeManager) Open(context.Context, string) (domain.IndexManifest, error) {
	return m.manifest, m.err
}

func (m *fakeManager) Reload(context.Context) (domain.IndexManifest, error) {
	return m.manifest, m.err
}

func (m *fakeManager) Watch(ctx context.Context) error {
	if m.watched != nil {
		close(m.watched)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *fakeManager) Current() (domain.IndexManifest, uint64, bool) {
	return m.manifest, 1, true
}

func (m *fakeManager) ReloadError() error { return nil }

func (m *fakeManager) Inspect(_ context.Context, path string) (domain.IndexManifest, error) {
	m.inspected = path
	return m.manifest, m.err
}

// fakeRetriever implements driving.Retriever.
type fakeRetriever struct {
	result *domain.RetrievalResult
	err    error
	query  string
	k      int
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string, k int) (*domain.RetrievalResult, error) {
	r.query, r.k = query, k
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &domain.RetrievalResult{Query: query, K: k}, nil
}

// fakeGenerator implements driving.AnswerGenerator.
type fakeGenerator struct {
	answer *domain.Answer
	err    error
}

func (g *fakeGenerator) Compose(string, *domain.RetrievalResult) (*domain.Prompt, error) {
	return &domain.Prompt{}, nil
}

func (g *fakeGenerator) Generate(context.Context, string, *domain.RetrievalResult) (*domain.Answer, error) {
	return g.answer, g.err
}

// fakeConversation implements driving.ConversationDriver. Questions listed
// in failures fail; everything else is answered with answer.
type fakeConversation struct {
	answer   *domain.Answer
	failures map[string]error
	history  []domain.Turn
	asked    []string
}

func (c *fakeConversation) Ask(_ context.Context, question string) (*domain.Answer, error) {
	c.asked = append(c.asked, question)
	if err, ok := c.failures[question]; ok {
		return nil, err
	}
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c.history = append(c.history,
		domain.Turn{Role: domain.RoleUser, Text: question, At: at},
		domain.Turn{Role: domain.RoleAssistant, Text: c.answer.Text, Sources: c.answer.Sources, At: at},
	)
	return c.answer, nil
}

func (c *fakeConversation) History() []domain.Turn { return c.history }
func (c *fakeConversation) State() domain.TurnState { return domain.TurnIdle }
func (c *fakeConversation) Session() domain.Session { return domain.Session{ID: "s-1"} }
func (c *fakeConversation) OnStateChange(driving.StateObserver) {}

func sampleAnswer() *domain.Answer {
	return &domain.Answer{
		Text:  "Customers mostly complain about late fees charged after on-time payments [Source 1].",
		Model: "mock-llm",
		Sources: []domain.Citation{
			{Rank: 1, DocumentID: "3021", Category: "Credit card", Excerpt: "I was charged a late fee", Score: 0.87},
			{Rank: 2, DocumentID: "4410", Category: "Credit card", Excerpt: "The fee appeared again", Score: 0.66},
		},
		DroppedChunks: 1,
	}
}

// runCLI executes args against rootCmd with a as the application and
// returns everything written to stdout and stderr.
func runCLI(t *testing.T, a App, stdin string, args ...string) (string, error) {
	t.Helper()

	SetAppFactory(func(Config) (App, error) { return a, nil })
	t.Cleanup(func() {
		SetAppFactory(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--env-file", ""}, args...))

	err := rootCmd.ExecuteContext(t.Context())
	return buf.String(), err
}

// resetFlags restores every flag to its default, since cobra keeps values
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
