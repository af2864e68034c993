package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/creditrust/credirag/internal/adapters/driven/ai"
	"github.com/creditrust/credirag/internal/adapters/driven/cache"
	"github.com/creditrust/credirag/internal/adapters/driven/config/file"
	"github.com/creditrust/credirag/internal/adapters/driven/corpus"
	"github.com/creditrust/credirag/internal/adapters/driven/vector"
	"github.com/creditrust/credirag/internal/adapters/driven/vector/flat"
	"github.com/creditrust/credirag/internal/adapters/driving/cli"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/core/services"
	"github.com/creditrust/credirag/internal/logger"
	"github.com/creditrust/credirag/internal/normalisers/complaint"
	"github.com/creditrust/credirag/internal/postprocessors"
)

// Ensure application implements cli.App.
var _ cli.App = (*application)(nil)

// application wires adapters into services. Everything past the settings
// service is built on first use, so `settings` commands work offline.
type application struct {
	cfg      cli.Config
	settings *services.SettingsService
	prompts  *file.PromptStore

	mu        sync.Mutex
	loaded    *domain.Settings
	providers *ai.InitResult
	handle    *services.IndexHandle
	manager   *services.IndexManager
	retriever *services.RetrieverService
	generator *services.GeneratorService
}

func newApp(cfg cli.Config) (cli.App, error) {
	store, err := file.NewConfigStore(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	promptDir := ""
	if cfg.ConfigDir != "" {
		promptDir = filepath.Join(cfg.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	return &application{
		cfg:      cfg,
		settings: services.NewSettingsService(store, ai.NewConfigValidator()),
		prompts:  prompts,
	}, nil
}

func (a *application) Settings() driving.SettingsService {
	return a.settings
}

func (a *application) IndexPath() string {
	s, err := a.settings.Get()
	if err != nil {
		return ""
	}
	return s.Index.Path
}

// current returns settings read once per invocation. Callers hold a.mu.
func (a *application) current() (*domain.Settings, error) {
	if a.loaded != nil {
		return a.loaded, nil
	}
	s, err := a.settings.Get()
	if err != nil {
		return nil, err
	}
	a.loaded = s
	return s, nil
}

// initProviders creates the AI services once. Callers hold a.mu.
func (a *application) initProviders() (*ai.InitResult, *domain.Settings, error) {
	s, err := a.current()
	if err != nil {
		return nil, nil, err
	}
	if a.providers == nil {
		providers, err := ai.Init(s)
		if err != nil {
			return nil, nil, err
		}
		a.providers = providers
	}
	return a.providers, s, nil
}

func (a *application) IndexBuilder(context.Context) (driving.IndexBuilder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	providers, s, err := a.initProviders()
	if err != nil {
		return nil, err
	}

	store, err := vector.NewStore(s)
	if err != nil {
		return nil, err
	}
	segmenter, err := postprocessors.SegmentationPipeline(s.Chunking)
	if err != nil {
		return nil, err
	}

	loader := corpus.New(driven.CorpusColumns{
		ID:        s.Corpus.IDColumn,
		Category:  s.Corpus.CategoryColumn,
		Narrative: s.Corpus.NarrativeColumn,
		Date:      s.Corpus.DateColumn,
	})

	return services.NewIndexBuilder(
		loader,
		complaint.New(s.Ingest.Cleaning),
		segmenter,
		providers.EmbeddingService,
		store,
		services.IndexBuilderConfig{
			Corpus:     s.Corpus,
			Ingest:     s.Ingest,
			Chunking:   s.Chunking,
			OutputPath: s.Index.Path,
		},
	), nil
}

func (a *application) IndexManager(context.Context) (driving.IndexManager, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.indexManager()
}

// indexManager builds the manager without opening anything. Callers hold a.mu.
func (a *application) indexManager() (*services.IndexManager, error) {
	if a.manager != nil {
		return a.manager, nil
	}

	providers, s, err := a.initProviders()
	if err != nil {
		return nil, err
	}

	a.handle = services.NewIndexHandle()
	resolve := func(backend string) (driven.IndexStore, error) {
		return vector.StoreFor(s, backend)
	}
	a.manager = services.NewIndexManager(a.handle, flat.NewStore(), resolve, providers.EmbeddingService)
	return a.manager, nil
}

func (a *application) Retriever(ctx context.Context) (driving.Retriever, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openRetriever(ctx)
}

// openRetriever loads the configured index on first use. Callers hold a.mu.
func (a *application) openRetriever(ctx context.Context) (*services.RetrieverService, error) {
	if a.retriever != nil {
		return a.retriever, nil
	}

	manager, err := a.indexManager()
	if err != nil {
		return nil, err
	}
	s := a.loaded

	if _, _, ok := manager.Current(); !ok {
		if _, err := manager.Open(ctx, s.Index.Path); err != nil {
			return nil, fmt.Errorf("%w. Run 'credirag index build' first", err)
		}
	}

	var queryCache driven.QueryCache
	if s.Retrieval.Cache {
		queryCache = cache.New(s.Retrieval.CacheSize, cache.WithTTL(s.Retrieval.CacheTTL))
	}

	a.retriever = services.NewRetriever(a.providers.EmbeddingService, a.handle, queryCache, services.RetrieverConfig{
		TopK:         s.Retrieval.TopK,
		MinScore:     s.Retrieval.MinScore,
		EmbedTimeout: s.Embedding.Timeout,
	})
	return a.retriever, nil
}

func (a *application) Generator(context.Context) (driving.AnswerGenerator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openGenerator()
}

// openGenerator fails with domain.ErrLLMUnavailable when no model is
// configured. Callers hold a.mu.
func (a *application) openGenerator() (*services.GeneratorService, error) {
	if a.generator != nil {
		return a.generator, nil
	}

	providers, s, err := a.initProviders()
	if err != nil {
		return nil, err
	}
	if providers.LLMService == nil {
		return nil, fmt.Errorf("%w: set llm.provider and its API key, or run 'credirag settings wizard'",
			domain.ErrLLMUnavailable)
	}

	a.generator = services.NewGenerator(providers.LLMService, a.prompts, services.GeneratorConfig{
		MaxContextChars: s.Generation.MaxContextChars,
		Temperature:     s.LLM.Temperature,
		MaxTokens:       s.LLM.MaxTokens,
		Timeout:         s.LLM.Timeout,
	})
	return a.generator, nil
}

func (a *application) Conversation(ctx context.Context) (driving.ConversationDriver, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	generator, err := a.openGenerator()
	if err != nil {
		return nil, err
	}
	retriever, err := a.openRetriever(ctx)
	if err != nil {
		return nil, err
	}

	conv := services.NewConversation(retriever, generator, a.loaded.Retrieval.TopK)
	conv.OnStateChange(func(from, to domain.TurnState) {
		logger.Debug("turn %s -> %s", from, to)
	})
	return conv, nil
}

func (a *application) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.handle != nil {
		errs = append(errs, a.handle.Close())
	}
	if a.providers != nil {
		a.providers.Close()
	}
	return errors.Join(errs...)
}
