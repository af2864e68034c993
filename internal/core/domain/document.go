package domain

import "time"

// CorpusRecord is one row of the tabular complaint corpus, before validation.
type CorpusRecord struct {
	// Row is the 1-based data row in the source file.
	Row int

	// ID is the complaint identifier.
	ID string `validate:"required"`

	// Category is the product label the complaint was filed under.
	Category string `validate:"required"`

	// Narrative is the free-text consumer complaint. It may be empty here;
	// empty narratives are rejected before segmentation.
	Narrative string

	// Received is the raw date-received value, if the column exists.
	Received string

	// Extra holds every column not modelled above, keyed by header name.
	Extra map[string]string
}

// Document is an ingested complaint narrative.
// It is immutable once ingested.
type Document struct {
	// ID is the complaint identifier.
	ID string

	// Category is the product label.
	Category string

	// Text is the narrative after normalisation.
	Text string

	// ReceivedAt is when the complaint was received, zero if unknown.
	ReceivedAt time.Time

	// Extra holds unmodelled fields carried through from the corpus.
	Extra map[string]string
}

// Chunk is a bounded segment of a Document's text.
// Consecutive chunks of the same document overlap by a fixed number of characters.
type Chunk struct {
	// ID is stable for a given document and position: "<doc id>#<position>".
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Category is copied from the parent so results stay attributable.
	Category string

	// Text is the chunk content.
	Text string

	// Position is the 0-based ordinal within the document.
	Position int

	// Start and End are rune offsets of Text within the document text.
	Start int
	End   int

	// Extra carries the parent document's unmodelled fields.
	Extra map[string]string
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}
