package driven

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// Normaliser turns a validated corpus record into a Document with cleaned text.
type Normaliser interface {
	// Name identifies the normaliser for logging.
	Name() string

	// Normalise cleans the narrative. It must be deterministic.
	// The returned Document may have empty Text; the segmenter rejects it.
	Normalise(ctx context.Context, rec domain.CorpusRecord) (*domain.Document, error)
}
