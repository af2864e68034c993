package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHuggingFace is the Hugging Face inference API.
	AIProviderHuggingFace AIProvider = "huggingface"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHuggingFace:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderHuggingFace
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (offline, built in)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHuggingFace:
		return "Hugging Face (cloud)"
	default:
		return unknownDescription
	}
}

// CleaningMode selects how narratives are normalised before segmentation.
type CleaningMode string

// Cleaning modes.
const (
	CleaningNone       CleaningMode = "none"
	CleaningBasic      CleaningMode = "basic"
	CleaningAggressive CleaningMode = "aggressive"
)

// IsValid returns true if the cleaning mode is recognised.
func (m CleaningMode) IsValid() bool {
	return m == CleaningNone || m == CleaningBasic || m == CleaningAggressive
}

// IndexBackend selects the vector index implementation.
type IndexBackend string

// Index backends.
const (
	// IndexBackendFlat is the exact in-process index persisted to a sqlite file.
	IndexBackendFlat IndexBackend = "flat"

	// IndexBackendQdrant stores vectors in a Qdrant collection.
	IndexBackendQdrant IndexBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendFlat || b == IndexBackendQdrant
}

// CorpusSettings describes the tabular complaint input.
type CorpusSettings struct {
	// Path is the default corpus file (.csv or .xlsx).
	Path string

	// Column names in the header row.
	IDColumn        string
	CategoryColumn  string
	NarrativeColumn string
	DateColumn      string

	// Categories restricts ingestion to these products. Empty means all.
	Categories []string

	// Sample keeps at most this many documents, stratified by category. Zero disables it.
	Sample int
}

// IngestSettings controls the index build pipeline.
type IngestSettings struct {
	Cleaning  CleaningMode
	BatchSize int
	Workers   int
}

// ChunkingSettings holds segmenter parameters in characters.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions is the vector size. Zero means the model's known default.
	Dimensions int

	// Timeout bounds each embedding call.
	Timeout time.Duration

	// RateLimit caps requests per second. Zero disables throttling.
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	Temperature float64
	MaxTokens   int

	// Timeout bounds the single generation call of a turn.
	Timeout time.Duration

	// RateLimit caps requests per second. Zero disables throttling.
	RateLimit float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings locates the persisted vector index.
type IndexSettings struct {
	Backend IndexBackend
	Path    string
}

// QdrantSettings configures the qdrant backend.
type QdrantSettings struct {
	Host       string
	Port       int
	Collection string
	APIKey     string
	UseTLS     bool
}

// RetrievalSettings controls the retriever.
type RetrievalSettings struct {
	// TopK is the default number of chunks to retrieve.
	TopK int

	// MinScore drops hits below this similarity. Zero keeps everything.
	MinScore float64

	// Cache enables the per-index query cache.
	Cache     bool
	CacheSize int

	// CacheTTL expires cached results after this long. Zero keeps them until evicted.
	CacheTTL time.Duration
}

// GenerationSettings controls prompt assembly.
type GenerationSettings struct {
	// MaxContextChars bounds the context block, counted in characters.
	MaxContextChars int
}

// Settings holds all application settings.
type Settings struct {
	Corpus     CorpusSettings
	Ingest     IngestSettings
	Chunking   ChunkingSettings
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Index      IndexSettings
	Qdrant     QdrantSettings
	Retrieval  RetrievalSettings
	Generation GenerationSettings
}

// Default parameter values.
const (
	DefaultChunkSize       = 500
	DefaultChunkOverlap    = 50
	DefaultTopK            = 5
	DefaultMaxContextChars = 6000
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultLLMTimeout      = 60 * time.Second
)

// DefaultSettings returns settings that work offline for indexing and
// retrieval. Generation needs an API key for the default LLM provider.
func DefaultSettings() Settings {
	return Settings{
		Corpus: CorpusSettings{
			Path:            "complaints.csv",
			IDColumn:        "Complaint ID",
			CategoryColumn:  "Product",
			NarrativeColumn: "Consumer complaint narrative",
			DateColumn:      "Date received",
		},
		Ingest: IngestSettings{
			Cleaning:  CleaningBasic,
			BatchSize: 32,
			Workers:   4,
		},
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      DefaultEmbeddingModels()[AIProviderHashing],
			Dimensions: 384,
			Timeout:    DefaultEmbedTimeout,
		},
		LLM: LLMSettings{
			Provider:    AIProviderHuggingFace,
			Model:       DefaultLLMModels()[AIProviderHuggingFace],
			Temperature: 0.5,
			MaxTokens:   512,
			Timeout:     DefaultLLMTimeout,
		},
		Index: IndexSettings{
			Backend: IndexBackendFlat,
		},
		Qdrant: QdrantSettings{
			Host:       "localhost",
			Port:       6334,
			Collection: "complaints",
		},
		Retrieval: RetrievalSettings{
			TopK:      DefaultTopK,
			Cache:     true,
			CacheSize: 256,
		},
		Generation: GenerationSettings{
			MaxContextChars: DefaultMaxContextChars,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHuggingFace,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderHuggingFace,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing:     "hashing-v1",
		AIProviderOllama:      "nomic-embed-text",
		AIProviderOpenAI:      "text-embedding-3-small",
		AIProviderHuggingFace: "sentence-transformers/all-MiniLM-L6-v2",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHuggingFace: "mistralai/Mistral-7B-Instruct-v0.2",
		AIProviderOllama:      "llama3.2",
		AIProviderOpenAI:      "gpt-4o-mini",
		AIProviderAnthropic:   "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Hugging Face models
		"sentence-transformers/all-MiniLM-L6-v2":  384,
		"sentence-transformers/all-mpnet-base-v2": 768,
	}
}
