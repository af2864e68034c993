package driving

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// Retriever fetches the chunks most similar to a query.
type Retriever interface {
	// Retrieve embeds query and returns up to k ranked hits from the active index.
	// A blank query fails with domain.ErrEmptyQuery before anything is embedded.
	// k <= 0 uses the configured default.
	Retrieve(ctx context.Context, query string, k int) (*domain.RetrievalResult, error)
}
