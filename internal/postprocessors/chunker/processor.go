// Package chunker provides a recursive, boundary-aware text segmenter.
//
// Text is cut into chunks of at most ChunkSize characters (runes). Each cut
// prefers the latest paragraph break in the window, then a line break, a
// sentence end, a clause separator and finally a space, and only falls back
// to a hard cut when the window contains none of them. Consecutive chunks
// share exactly Overlap characters, so dropping the first Overlap characters
// of every chunk but the first and concatenating reconstructs the input.
package chunker

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/creditrust/credirag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// separatorGroups are tried in descending priority. Within a group the
// latest occurrence wins. The separator stays with the preceding chunk.
var separatorGroups = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{"; ", ", "},
	{" ", "\t"},
}

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	groups    [][][]rune
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// The chunk size must exceed the overlap and the overlap must not be negative.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 || p.overlap < 0 || p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("chunker: size %d, overlap %d: %w (need size > overlap >= 0)",
			p.chunkSize, p.overlap, domain.ErrInvalidInput)
	}

	p.groups = make([][][]rune, len(separatorGroups))
	for i, group := range separatorGroups {
		for _, sep := range group {
			p.groups[i] = append(p.groups[i], []rune(sep))
		}
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured maximum chunk length.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document text into chunks.
// Input chunks are ignored; this processor creates new chunks from document text.
// Empty or whitespace-only text fails with *domain.EmptyDocumentError.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, &domain.EmptyDocumentError{DocumentID: doc.ID}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runes := []rune(doc.Text)
	spans := p.split(runes)

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s#%d", doc.ID, i),
			DocumentID: doc.ID,
			Category:   doc.Category,
			Text:       string(runes[s.start:s.end]),
			Position:   i,
			Start:      s.start,
			End:        s.end,
			Extra:      maps.Clone(doc.Extra),
		})
	}

	return chunks, nil
}

type span struct {
	start, end int
}

// split returns chunk spans covering runes. Every span is at most chunkSize
// long and starts exactly overlap runes before the previous span's end.
func (p *Processor) split(runes []rune) []span {
	n := len(runes)
	estimated := n/(p.chunkSize-p.overlap) + 1
	spans := make([]span, 0, estimated)

	start := 0
	for {
		if n-start <= p.chunkSize {
			spans = append(spans, span{start, n})
			return spans
		}
		end := p.cut(runes, start)
		spans = append(spans, span{start, end})
		start = end - p.overlap
	}
}

// cut picks where the chunk starting at start ends. The end always lies
// past start+overlap so the next chunk makes progress, and natural
// boundaries are only taken in the back half of the window to avoid
// runs of tiny chunks.
func (p *Processor) cut(runes []rune, start int) int {
	limit := start + p.chunkSize
	floor := start + max(p.overlap+1, p.chunkSize/2)

	for _, group := range p.groups {
		if end := lastBoundary(runes, floor, limit, group); end > 0 {
			return end
		}
	}
	return limit
}

// lastBoundary returns the largest end in [floor, limit] such that
// runes[:end] ends with one of seps, or 0 if there is none.
func lastBoundary(runes []rune, floor, limit int, seps [][]rune) int {
	for end := limit; end >= floor; end-- {
		for _, sep := range seps {
			if hasSuffixAt(runes, end, sep) {
				return end
			}
		}
	}
	return 0
}

func hasSuffixAt(runes []rune, end int, sep []rune) bool {
	if end < len(sep) {
		return false
	}
	for i, r := range sep {
		if runes[end-len(sep)+i] != r {
			return false
		}
	}
	return true
}
