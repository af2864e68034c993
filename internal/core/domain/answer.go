package domain

// Citation identifies a chunk an answer was grounded on.
type Citation struct {
	Rank       int
	DocumentID string
	Category   string
	Excerpt    string
	Score      float64
}

// Prompt is an assembled, budgeted prompt ready for a single model call.
type Prompt struct {
	// Text is the full prompt.
	Text string

	// Used are the hits that made it into the context, in rank order.
	Used []Hit

	// Dropped counts the lowest-ranked hits removed to honour the budget.
	Dropped int

	// ContextChars is the size of the context block in characters.
	ContextChars int
}

// Answer is the outcome of one successful generation.
type Answer struct {
	// Text is the model output.
	Text string

	// Sources are the citations that were placed in the prompt.
	Sources []Citation

	// Model is the language model that produced Text.
	Model string

	// DroppedChunks counts retrieved chunks left out for budget reasons.
	DroppedChunks int

	// IndexVersion identifies the index snapshot used for retrieval.
	IndexVersion uint64
}
