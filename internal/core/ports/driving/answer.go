package driving

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// AnswerGenerator turns retrieved context into a grounded answer.
type AnswerGenerator interface {
	// Compose assembles the budgeted prompt without calling the model.
	Compose(query string, retrieved *domain.RetrievalResult) (*domain.Prompt, error)

	// Generate composes the prompt and makes exactly one model call.
	// Model failures are returned as *domain.GenerationError.
	Generate(ctx context.Context, query string, retrieved *domain.RetrievalResult) (*domain.Answer, error)
}
