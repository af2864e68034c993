package driven

import "github.com/creditrust/credirag/internal/core/domain"

// QueryCache memoises retrieval results for exact query text.
// Entries are only valid for the index version they were produced against.
type QueryCache interface {
	// Get returns a cached result for the key.
	Get(version uint64, query string, k int) (domain.RetrievalResult, bool)

	// Put stores a result.
	Put(version uint64, query string, k int, result domain.RetrievalResult)

	// Purge drops every entry. Called when the active index is swapped.
	Purge()

	// Len returns the number of cached entries.
	Len() int
}
