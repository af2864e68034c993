package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/core/domain"
)

func result(query string, docs ...string) domain.RetrievalResult {
	r := domain.RetrievalResult{Query: query, K: len(docs)}
	for i, d := range docs {
		r.Hits = append(r.Hits, domain.Hit{Chunk: domain.Chunk{DocumentID: d}, Rank: i + 1})
	}
	return r
}

func TestGetPut(t *testing.T) {
	c := New(4)

	_, ok := c.Get(1, "late fees", 5)
	assert.False(t, ok)

	c.Put(1, "late fees", 5, result("late fees", "a", "b"))

	got, ok := c.Get(1, "late fees", 5)
	require.True(t, ok)
	assert.Equal(t, "late fees", got.Query)
	assert.Len(t, got.Hits, 2)
	assert.Equal(t, 1, c.Len())
}

func TestKeyIncludesVersionAndK(t *testing.T) {
	c := New(4)
	c.Put(1, "q", 5, result("q", "a"))

	_, ok := c.Get(2, "q", 5)
	assert.False(t, ok, "different index version")

	_, ok = c.Get(1, "q", 3)
	assert.False(t, ok, "different k")

	_, ok = c.Get(1, "Q", 5)
	assert.False(t, ok, "query text is exact")
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Put(1, "a", 5, result("a"))
	c.Put(1, "b", 5, result("b"))

	_, ok := c.Get(1, "a", 5)
	require.True(t, ok)

	c.Put(1, "c", 5, result("c"))

	_, ok = c.Get(1, "b", 5)
	assert.False(t, ok)
	_, ok = c.Get(1, "a", 5)
	assert.True(t, ok)
	_, ok = c.Get(1, "c", 5)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestPutReplaces(t *testing.T) {
	c := New(2)
	c.Put(1, "a", 5, result("a", "x"))
	c.Put(1, "a", 5, result("a", "y", "z"))

	got, ok := c.Get(1, "a", 5)
	require.True(t, ok)
	assert.Len(t, got.Hits, 2)
	assert.Equal(t, 1, c.Len())
}

func TestReturnsCopies(t *testing.T) {
	c := New(2)
	r := result("a", "x")
	c.Put(1, "a", 5, r)
	r.Hits[0].Chunk.DocumentID = "mutated"

	got, _ := c.Get(1, "a", 5)
	got.Hits[0].Chunk.DocumentID = "also mutated"

	again, _ := c.Get(1, "a", 5)
	assert.Equal(t, "x", again.Hits[0].Chunk.DocumentID)
}

func TestPurge(t *testing.T) {
	c := New(4)
	c.Put(1, "a", 5, result("a"))
	c.Put(1, "b", 5, result("b"))

	c.Purge()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(1, "a", 5)
	assert.False(t, ok)
}

func TestTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(4, WithTTL(time.Minute))
	c.now = func() time.Time { return now }

	c.Put(1, "a", 5, result("a"))
	_, ok := c.Get(1, "a", 5)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(1, "a", 5)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestDefaultCapacity(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultCapacity, c.capacity)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(16)
	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				q := fmt.Sprintf("q%d", (i+j)%32)
				c.Put(1, q, 5, result(q, "d"))
				c.Get(1, q, 5)
				if j%50 == 0 {
					c.Purge()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
