package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// Input validation errors. These are raised before any I/O happens.

	// ErrEmptyQuery indicates a blank query reached the retriever.
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmptyDocument indicates a document had no text to segment.
	ErrEmptyDocument = errors.New("empty document")

	// Pipeline errors.

	// ErrIngestion indicates the corpus input was missing or malformed.
	// It aborts the index build.
	ErrIngestion = errors.New("ingestion failed")

	// ErrDimensionMismatch indicates a persisted index and the embedding
	// provider disagree on vector dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingModelMismatch indicates a persisted index was built with a
	// different embedding model than the one configured.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")

	// ErrEmbeddingProvider indicates the embedding provider failed or is unreachable.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrGeneration indicates the language model call failed.
	ErrGeneration = errors.New("generation failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Retrieval errors.

	// ErrNoRelevantContext indicates retrieval succeeded but produced nothing
	// usable as context. It is never returned for a failed fetch.
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrContextBudget indicates not even the top-ranked chunk fits the
	// configured context budget.
	ErrContextBudget = errors.New("context budget too small")

	// ErrIndexNotLoaded indicates no index has been installed yet.
	ErrIndexNotLoaded = errors.New("vector index not loaded")

	// ErrIndexEmpty indicates an index build received no items.
	ErrIndexEmpty = errors.New("vector index is empty")

	// ErrIndexClosed indicates a search against an index that has been released.
	ErrIndexClosed = errors.New("vector index closed")
)

// IngestionError describes why the corpus could not be ingested.
type IngestionError struct {
	// Source is the corpus path or name.
	Source string

	// Row is the 1-based data row, or 0 when the failure is not row specific.
	Row int

	// Reason is a short human-readable explanation.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *IngestionError) Error() string {
	msg := "ingestion: " + e.Source
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Is matches ErrIngestion.
func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }

// EmptyDocumentError is returned when a document has no segmentable text.
type EmptyDocumentError struct {
	DocumentID string
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("document %q: %s", e.DocumentID, ErrEmptyDocument)
}

// Is matches ErrEmptyDocument.
func (e *EmptyDocumentError) Is(target error) bool { return target == ErrEmptyDocument }

// DimensionMismatchError is returned when a persisted index cannot be served
// by the configured embedding provider.
type DimensionMismatchError struct {
	IndexModel         string
	IndexDimensions    int
	ProviderModel      string
	ProviderDimensions int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: index built with %s (%d dims), provider is %s (%d dims)",
		ErrDimensionMismatch, e.IndexModel, e.IndexDimensions, e.ProviderModel, e.ProviderDimensions)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// EmbeddingProviderError wraps a failure reported by an embedding provider.
type EmbeddingProviderError struct {
	// Provider is the provider or model name.
	Provider string

	// Op is the failing operation, e.g. "embed", "embed batch", "ping".
	Op string

	Err error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// Is matches ErrEmbeddingProvider.
func (e *EmbeddingProviderError) Is(target error) bool { return target == ErrEmbeddingProvider }

// GenerationError wraps a failed language model call.
// Its message carries the cause's message unchanged.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return ErrGeneration.Error()
	}
	return fmt.Sprintf("%s (%s): %s", ErrGeneration, e.Model, e.Err.Error())
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is matches ErrGeneration.
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }
