package driven

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// CorpusLoader reads a tabular complaint corpus.
// Missing required columns or an unreadable file fail with *domain.IngestionError.
type CorpusLoader interface {
	// Load returns every data row in file order.
	Load(ctx context.Context, path string) ([]domain.CorpusRecord, error)
}

// CorpusColumns names the header cells a loader maps to record fields.
type CorpusColumns struct {
	ID        string
	Category  string
	Narrative string
	Date      string
}
