package services

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys that are read or written outside the key table.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedDims     = "embedding.dimensions"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"
)

// Environment variables consulted when an API key is not configured.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:      "OPENAI_API_KEY",
	domain.AIProviderAnthropic:   "ANTHROPIC_API_KEY",
	domain.AIProviderHuggingFace: "HUGGINGFACEHUB_API_TOKEN",
}

const defaultOllamaURL = "http://localhost:11434"

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
)

// setting binds one config key to a field of domain.Settings.
type setting struct {
	key    string
	kind   valueKind
	secret bool
	apply  func(s *domain.Settings, v any)
	check  func(v any) error
}

func oneOf[T ~string](valid func(T) bool) func(any) error {
	return func(v any) error {
		if !valid(T(v.(string))) {
			return fmt.Errorf("%w: unknown value %q", domain.ErrInvalidInput, v)
		}
		return nil
	}
}

func positive(v any) error {
	if v.(int) <= 0 {
		return fmt.Errorf("%w: must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func nonNegative(v any) error {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return fmt.Errorf("%w: must not be negative", domain.ErrInvalidInput)
		}
	case float64:
		if n < 0 {
			return fmt.Errorf("%w: must not be negative", domain.ErrInvalidInput)
		}
	}
	return nil
}

var settingsTable = []setting{
	{key: "corpus.path", kind: kindString, apply: func(s *domain.Settings, v any) { s.Corpus.Path = v.(string) }},
	{key: "corpus.id_column", kind: kindString, apply: func(s *domain.Settings, v any) { s.Corpus.IDColumn = v.(string) }},
	{key: "corpus.category_column", kind: kindString, apply: func(s *domain.Settings, v any) { s.Corpus.CategoryColumn = v.(string) }},
	{key: "corpus.narrative_column", kind: kindString, apply: func(s *domain.Settings, v any) { s.Corpus.NarrativeColumn = v.(string) }},
	{key: "corpus.date_column", kind: kindString, apply: func(s *domain.Settings, v any) { s.Corpus.DateColumn = v.(string) }},
	{key: "corpus.categories", kind: kindList, apply: func(s *domain.Settings, v any) { s.Corpus.Categories = v.([]string) }},
	{key: "corpus.sample", kind: kindInt, check: nonNegative, apply: func(s *domain.Settings, v any) { s.Corpus.Sample = v.(int) }},

	{key: "ingest.cleaning", kind: kindString, check: oneOf(domain.CleaningMode.IsValid),
		apply: func(s *domain.Settings, v any) { s.Ingest.Cleaning = domain.CleaningMode(v.(string)) }},
	{key: "ingest.batch_size", kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.Ingest.BatchSize = v.(int) }},
	{key: "ingest.workers", kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.Ingest.Workers = v.(int) }},

	{key: "chunking.size", kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.Chunking.Size = v.(int) }},
	{key: "chunking.overlap", kind: kindInt, check: nonNegative, apply: func(s *domain.Settings, v any) { s.Chunking.Overlap = v.(int) }},

	{key: keyEmbedProvider, kind: kindString, check: oneOf(domain.AIProvider.IsValid),
		apply: func(s *domain.Settings, v any) { s.Embedding.Provider = domain.AIProvider(v.(string)) }},
	{key: keyEmbedModel, kind: kindString, apply: func(s *domain.Settings, v any) { s.Embedding.Model = v.(string) }},
	{key: keyEmbedBaseURL, kind: kindString, apply: func(s *domain.Settings, v any) { s.Embedding.BaseURL = v.(string) }},
	{key: keyEmbedAPIKey, kind: kindString, secret: true, apply: func(s *domain.Settings, v any) { s.Embedding.APIKey = v.(string) }},
	{key: keyEmbedDims, kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.Embedding.Dimensions = v.(int) }},
	{key: "embedding.timeout", kind: kindDuration, apply: func(s *domain.Settings, v any) { s.Embedding.Timeout = v.(time.Duration) }},
	{key: "embedding.rate_limit", kind: kindFloat, check: nonNegative, apply: func(s *domain.Settings, v any) { s.Embedding.RateLimit = v.(float64) }},

	{key: keyLLMProvider, kind: kindString, check: oneOf(domain.AIProvider.IsValid),
		apply: func(s *domain.Settings, v any) { s.LLM.Provider = domain.AIProvider(v.(string)) }},
	{key: keyLLMModel, kind: kindString, apply: func(s *domain.Settings, v any) { s.LLM.Model = v.(string) }},
	{key: keyLLMBaseURL, kind: kindString, apply: func(s *domain.Settings, v any) { s.LLM.BaseURL = v.(string) }},
	{key: keyLLMAPIKey, kind: kindString, secret: true, apply: func(s *domain.Settings, v any) { s.LLM.APIKey = v.(string) }},
	{key: "llm.temperature", kind: kindFloat, check: nonNegative, apply: func(s *domain.Settings, v any) { s.LLM.Temperature = v.(float64) }},
	{key: "llm.max_tokens", kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.LLM.MaxTokens = v.(int) }},
	{key: "llm.timeout", kind: kindDuration, apply: func(s *domain.Settings, v any) { s.LLM.Timeout = v.(time.Duration) }},
	{key: "llm.rate_limit", kind: kindFloat, check: nonNegative, apply: func(s *domain.Settings, v any) { s.LLM.RateLimit = v.(float64) }},

	{key: "index.backend", kind: kindString, check: oneOf(domain.IndexBackend.IsValid),
		apply: func(s *domain.Settings, v any) { s.Index.Backend = domain.IndexBackend(v.(string)) }},
	{key: "index.path", kind: kindString, apply: func(s *domain.Settings, v any) { s.Index.Path = v.(string) }},

	{key: "qdrant.host", kind: kindString, apply: func(s *domain.Settings, v any) { s.Qdrant.Host = v.(string) }},
	{key: "qdrant.port", kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.Qdrant.Port = v.(int) }},
	{key: "qdrant.collection", kind: kindString, apply: func(s *domain.Settings, v any) { s.Qdrant.Collection = v.(string) }},
	{key: "qdrant.api_key", kind: kindString, secret: true, apply: func(s *domain.Settings, v any) { s.Qdrant.APIKey = v.(string) }},
	{key: "qdrant.use_tls", kind: kindBool, apply: func(s *domain.Settings, v any) { s.Qdrant.UseTLS = v.(bool) }},

	{key: "retrieval.top_k", kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.Retrieval.TopK = v.(int) }},
	{key: "retrieval.min_score", kind: kindFloat, apply: func(s *domain.Settings, v any) { s.Retrieval.MinScore = v.(float64) }},
	{key: "retrieval.cache", kind: kindBool, apply: func(s *domain.Settings, v any) { s.Retrieval.Cache = v.(bool) }},
	{key: "retrieval.cache_size", kind: kindInt, check: positive, apply: func(s *domain.Settings, v any) { s.Retrieval.CacheSize = v.(int) }},
	{key: "retrieval.cache_ttl", kind: kindDuration, apply: func(s *domain.Settings, v any) { s.Retrieval.CacheTTL = v.(time.Duration) }},

	{key: "generation.max_context_chars", kind: kindInt, check: positive,
		apply: func(s *domain.Settings, v any) { s.Generation.MaxContextChars = v.(int) }},
}

func lookupSetting(key string) (setting, bool) {
	i := slices.IndexFunc(settingsTable, func(s setting) bool { return s.key == key })
	if i < 0 {
		return setting{}, false
	}
	return settingsTable[i], true
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
	home        func() (string, error)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
		home:        os.UserHomeDir,
	}
}

// Get retrieves current application settings. Missing or unreadable values
// keep their defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()

	for _, st := range settingsTable {
		v, ok := s.read(st)
		if !ok {
			continue
		}
		if st.check != nil && st.check(v) != nil {
			continue
		}
		st.apply(&settings, v)
	}

	// Models follow the provider unless set explicitly.
	if _, ok := s.configStore.Get(keyEmbedModel); !ok {
		if m, ok := domain.DefaultEmbeddingModels()[settings.Embedding.Provider]; ok {
			settings.Embedding.Model = m
		}
	}
	if _, ok := s.configStore.Get(keyLLMModel); !ok {
		if m, ok := domain.DefaultLLMModels()[settings.LLM.Provider]; ok {
			settings.LLM.Model = m
		}
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaURL
	}

	// Dimensions follow the model unless set explicitly.
	if _, ok := s.configStore.Get(keyEmbedDims); !ok {
		if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
			settings.Embedding.Dimensions = d
		}
	}

	path, err := s.indexPath(settings.Index.Path)
	if err != nil {
		return nil, err
	}
	settings.Index.Path = path

	return &settings, nil
}

// read returns the stored value for st converted to its kind.
func (s *SettingsService) read(st setting) (any, bool) {
	if _, exists := s.configStore.Get(st.key); !exists {
		return nil, false
	}

	switch st.kind {
	case kindString:
		v := s.configStore.GetString(st.key)
		return v, v != ""
	case kindInt:
		return s.configStore.GetInt(st.key), true
	case kindFloat:
		return s.configStore.GetFloat(st.key), true
	case kindBool:
		return s.configStore.GetBool(st.key), true
	case kindDuration:
		d, err := time.ParseDuration(s.configStore.GetString(st.key))
		if err != nil || d <= 0 {
			return nil, false
		}
		return d, true
	case kindList:
		return s.configStore.GetStringSlice(st.key), true
	default:
		return nil, false
	}
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	if name, ok := apiKeyEnv[provider]; ok {
		return s.getenv(name)
	}
	return ""
}

// indexPath expands "~/" and fills in the default location.
func (s *SettingsService) indexPath(path string) (string, error) {
	if path != "" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := s.home()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	if path == "" {
		return filepath.Join(home, ".credirag", "index.db"), nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Keys lists every settable key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingsTable))
	for i, st := range settingsTable {
		keys[i] = st.key
	}
	return keys
}

// IsSecret reports whether key holds a credential that should not be echoed.
func (s *SettingsService) IsSecret(key string) bool {
	st, ok := lookupSetting(key)
	return ok && st.secret
}

// Set parses value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, stored, err := parseSetting(st, value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if st.check != nil {
		if err := st.check(parsed); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// parseSetting returns the typed value and the form written to the store.
func parseSetting(st setting, value string) (any, any, error) {
	value = strings.TrimSpace(value)

	switch st.kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidInput, value)
		}
		return n, n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, value)
		}
		return f, f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q is not a boolean", domain.ErrInvalidInput, value)
		}
		return b, b, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, nil, fmt.Errorf("%w: %q is not a positive duration", domain.ErrInvalidInput, value)
		}
		return d, d.String(), nil
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, items, nil
	default:
		return value, value, nil
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, provider.String()},
		{keyEmbedModel, model},
		{keyEmbedBaseURL, s.baseURLFor(provider, keyEmbedBaseURL)},
		{keyEmbedAPIKey, apiKey},
	}
	if d, ok := domain.EmbeddingDimensions()[model]; ok {
		values = append(values, struct {
			key string
			val any
		}{keyEmbedDims, d})
	}

	for _, kv := range values {
		if err := s.configStore.Set(kv.key, kv.val); err != nil {
			return fmt.Errorf("save %s: %w", kv.key, err)
		}
	}
	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() || !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	for _, kv := range []struct {
		key string
		val string
	}{
		{keyLLMProvider, provider.String()},
		{keyLLMModel, model},
		{keyLLMBaseURL, s.baseURLFor(provider, keyLLMBaseURL)},
		{keyLLMAPIKey, apiKey},
	} {
		if err := s.configStore.Set(kv.key, kv.val); err != nil {
			return fmt.Errorf("save %s: %w", kv.key, err)
		}
	}
	return nil
}

// baseURLFor keeps a custom endpoint for ollama and clears it for cloud providers.
func (s *SettingsService) baseURLFor(provider domain.AIProvider, key string) string {
	if provider != domain.AIProviderOllama {
		return ""
	}
	if existing := s.configStore.GetString(key); existing != "" {
		return existing
	}
	return defaultOllamaURL
}

// Validate checks settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks the relationships between settings that the
// per-key checks cannot see.
func ValidateSettings(settings *domain.Settings) error {
	if settings.Chunking.Size <= settings.Chunking.Overlap {
		return fmt.Errorf("%w: chunking.size (%d) must be greater than chunking.overlap (%d)",
			domain.ErrInvalidInput, settings.Chunking.Size, settings.Chunking.Overlap)
	}
	if settings.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: chunking.overlap must not be negative", domain.ErrInvalidInput)
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidInput)
	}
	if settings.Generation.MaxContextChars <= 0 {
		return fmt.Errorf("%w: generation.max_context_chars must be positive", domain.ErrInvalidInput)
	}
	if !settings.Ingest.Cleaning.IsValid() {
		return fmt.Errorf("%w: unknown cleaning mode %q", domain.ErrInvalidInput, settings.Ingest.Cleaning)
	}
	if !settings.Index.Backend.IsValid() {
		return fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, settings.Index.Backend)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}
