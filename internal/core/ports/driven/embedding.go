// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// The same service must be used to build an index and to query it.
//
// Implementations may include:
//   - Hashing (offline, deterministic)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Hugging Face feature-extraction (sentence-transformers/all-MiniLM-L6-v2)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// The same text must always produce the same vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	// It either returns exactly len(texts) vectors or an error; items are never dropped.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// Startup calls this so an unreachable provider fails immediately.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
