package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newsdex/core"
)

func results(ids ...core.ID) []core.SearchResult {
	out := make([]core.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = core.SearchResult{DocumentId: id, Score: 0.9, Rank: i + 1}
	}
	return out
}

func TestKeyFor(t *testing.T) {
	t.Run("normalization folds case and whitespace", func(t *testing.T) {
		assert.Equal(t, KeyFor("Rate  Hike", 5), KeyFor("rate hike", 5))
		assert.Equal(t, KeyFor("  rate hike  ", 5), KeyFor("rate hike", 5))
	})

	t.Run("different queries differ", func(t *testing.T) {
		assert.NotEqual(t, KeyFor("rate hike", 5), KeyFor("rate cut", 5))
	})

	t.Run("different k differ", func(t *testing.T) {
		assert.NotEqual(t, KeyFor("rate hike", 5), KeyFor("rate hike", 10))
	})
}

func TestGetPut(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	key := KeyFor("rate hike", 5)

	_, ok := c.Get(key)
	assert.False(t, ok)

	stored := results(1, 2, 3)
	c.Put(key, stored)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, stored, got)
}

func TestEmptyResultsNotCached(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	key := KeyFor("no matches", 5)
	c.Put(key, nil)
	c.Put(key, []core.SearchResult{})

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPurge(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	c.Put(KeyFor("a", 5), results(1))
	c.Put(KeyFor("b", 5), results(2))
	require.Equal(t, 2, c.Len())

	c.Purge()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(KeyFor("a", 5))
	assert.False(t, ok)
}

func TestCapacityEviction(t *testing.T) {
	c, err := New(100)
	require.NoError(t, err)

	// Fill past capacity; the earliest entry is the eviction candidate
	for i := 0; i < 101; i++ {
		c.Put(KeyFor(fmt.Sprintf("query-%d", i), 5), results(core.ID(i+1)))
	}

	assert.Equal(t, 100, c.Len())
	_, ok := c.Get(KeyFor("query-0", 5))
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get(KeyFor("query-100", 5))
	assert.True(t, ok)
}

func TestLRUSemantics(t *testing.T) {
	// Eviction is by access recency, not insertion order: touching an old
	// entry protects it from the next eviction.
	c, err := New(2)
	require.NoError(t, err)

	keyA := KeyFor("a", 5)
	keyB := KeyFor("b", 5)
	keyC := KeyFor("c", 5)

	c.Put(keyA, results(1))
	c.Put(keyB, results(2))

	_, ok := c.Get(keyA)
	require.True(t, ok)

	c.Put(keyC, results(3))

	_, ok = c.Get(keyA)
	assert.True(t, ok, "recently accessed entry must survive")
	_, ok = c.Get(keyB)
	assert.False(t, ok, "least recently used entry is evicted")
}

func TestDefaultCapacity(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)

	for i := 0; i < DefaultCapacity+1; i++ {
		c.Put(KeyFor(fmt.Sprintf("q%d", i), 3), results(core.ID(i+1)))
	}
	assert.Equal(t, DefaultCapacity, c.Len())
}
