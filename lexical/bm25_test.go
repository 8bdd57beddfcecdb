package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newsdex/core"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "lowercases and trims punctuation",
			input:    "Central Bank, raises Rates!",
			expected: []string{"central", "bank", "raises", "rates"},
		},
		{
			name:     "removes stop words",
			input:    "the impact of the decision on markets",
			expected: []string{"impact", "decision", "markets"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "only stop words",
			input:    "the a an of",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.input))
		})
	}
}

func TestIndexAddRemove(t *testing.T) {
	idx := NewIndex()
	assert.Equal(t, 0, idx.Len())

	idx.Add(1, 100, "central bank raises rates")
	idx.Add(2, 100, "markets rally on the decision")
	assert.Equal(t, 2, idx.Len())

	// Re-adding replaces the previous entry
	idx.Add(1, 100, "completely different text")
	assert.Equal(t, 2, idx.Len())
	assert.Zero(t, idx.Score([]string{"central"}, 1))

	idx.Remove(1)
	assert.Equal(t, 1, idx.Len())

	// Removing an unknown id is a no-op
	idx.Remove(99)
	assert.Equal(t, 1, idx.Len())
}

func TestIndexSearch(t *testing.T) {
	idx := NewIndex()
	idx.Add(1, 100, "central bank raises interest rates")
	idx.Add(2, 200, "football season opens with record attendance")
	idx.Add(3, 300, "bank reports record quarterly profits")

	t.Run("matching terms rank relevant chunks first", func(t *testing.T) {
		hits := idx.Search(Tokenize("central bank rates"), 10)

		require.NotEmpty(t, hits)
		assert.Equal(t, core.ID(1), hits[0].ChunkID)
		assert.Equal(t, core.ID(100), hits[0].DocID)
		assert.Greater(t, hits[0].Score, float64(0))
	})

	t.Run("unrelated terms yield no hits", func(t *testing.T) {
		assert.Empty(t, idx.Search(Tokenize("volcano eruption"), 10))
	})

	t.Run("k truncates results", func(t *testing.T) {
		hits := idx.Search(Tokenize("bank record"), 1)
		assert.Len(t, hits, 1)
	})

	t.Run("zero k yields no hits", func(t *testing.T) {
		assert.Empty(t, idx.Search(Tokenize("bank"), 0))
	})

	t.Run("rarer terms weigh more", func(t *testing.T) {
		// "bank" appears in two chunks, "football" in one
		bankHits := idx.Search([]string{"bank"}, 10)
		footballHits := idx.Search([]string{"football"}, 10)

		require.NotEmpty(t, bankHits)
		require.NotEmpty(t, footballHits)
		assert.Greater(t, footballHits[0].Score, bankHits[0].Score)
	})
}

func TestIndexSearchTieBreak(t *testing.T) {
	idx := NewIndex()
	// Identical text gives identical scores
	idx.Add(7, 700, "solar panels power the grid")
	idx.Add(3, 300, "solar panels power the grid")
	idx.Add(5, 500, "solar panels power the grid")

	hits := idx.Search(Tokenize("solar panels"), 10)

	require.Len(t, hits, 3)
	assert.Equal(t, core.ID(3), hits[0].ChunkID)
	assert.Equal(t, core.ID(5), hits[1].ChunkID)
	assert.Equal(t, core.ID(7), hits[2].ChunkID)
}

func TestIndexScore(t *testing.T) {
	idx := NewIndex()
	idx.Add(1, 100, "inflation data surprises economists")

	assert.Greater(t, idx.Score([]string{"inflation"}, 1), float64(0))
	assert.Zero(t, idx.Score([]string{"inflation"}, 42))
	assert.Zero(t, idx.Score([]string{"cricket"}, 1))
}
