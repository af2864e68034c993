package domain

// Hit is a single ranked chunk returned by a similarity search.
type Hit struct {
	// Chunk is the matched chunk including its metadata.
	Chunk Chunk

	// Score is cosine similarity, higher is closer.
	Score float64

	// Rank is the 1-based position in the result list.
	Rank int
}

// RetrievalResult is the ordered result of one retrieve call.
// It is transient and never persisted.
type RetrievalResult struct {
	// Query is the text that was embedded.
	Query string

	// K is the effective number of results requested.
	K int

	// Hits are ordered by descending score, ties by insertion order.
	Hits []Hit

	// IndexVersion identifies the index snapshot that served the query.
	IndexVersion uint64

	// Cached is true when the result came from the query cache.
	Cached bool
}

// Empty returns true when no chunks were retrieved.
func (r RetrievalResult) Empty() bool {
	return len(r.Hits) == 0
}
