// Package provenance stamps document-level attribution onto chunks.
package provenance

import (
	"context"
	"maps"

	"github.com/creditrust/credirag/internal/core/domain"
)

// ReceivedKey is the chunk Extra key holding the complaint's received date.
const ReceivedKey = "received"

// Processor copies provenance that the segmenter does not carry itself.
// It never changes chunk text or offsets.
type Processor struct{}

// New creates a provenance processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "provenance"
}

// Process sets each chunk's category from the document when missing and
// records the received date in Extra.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		if chunks[i].Category == "" {
			chunks[i].Category = doc.Category
		}
		if doc.ReceivedAt.IsZero() {
			continue
		}
		extra := maps.Clone(chunks[i].Extra)
		if extra == nil {
			extra = make(map[string]string, 1)
		}
		extra[ReceivedKey] = doc.ReceivedAt.Format("2006-01-02")
		chunks[i].Extra = extra
	}
	return chunks, nil
}
