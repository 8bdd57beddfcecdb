package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("empty input yields no spans", func(t *testing.T) {
		s := New()
		assert.Empty(t, s.Split(""))
	})

	t.Run("whitespace-only input yields no spans", func(t *testing.T) {
		s := New()
		assert.Empty(t, s.Split("   \n\t  "))
	})

	t.Run("short text yields single span", func(t *testing.T) {
		s := New()
		spans := s.Split("The central bank raised rates today.")

		require.Len(t, spans, 1)
		assert.Equal(t, "The central bank raised rates today.", spans[0].Text)
		assert.Equal(t, 0, spans[0].Start)
	})

	t.Run("text below minimum length is dropped", func(t *testing.T) {
		s := New()
		assert.Empty(t, s.Split("ok"))
	})

	t.Run("long text produces multiple spans", func(t *testing.T) {
		sentence := "The committee voted to hold rates steady for another quarter. "
		text := strings.Repeat(sentence, 20)

		s := New()
		spans := s.Split(text)

		require.Greater(t, len(spans), 1)
		for _, span := range spans {
			assert.LessOrEqual(t, len([]rune(span.Text)), DefaultMaxChunkChars)
			assert.GreaterOrEqual(t, len([]rune(span.Text)), DefaultMinChunkChars)
		}
	})

	t.Run("breaks at sentence boundaries", func(t *testing.T) {
		first := strings.Repeat("a", 200) + "."
		second := strings.Repeat("b", 200) + "."
		text := first + " " + second

		s := New()
		spans := s.Split(text)

		require.Greater(t, len(spans), 1)
		assert.True(t, strings.HasSuffix(spans[0].Text, "."))
		assert.NotContains(t, spans[0].Text, "b")
	})

	t.Run("breaks at CJK sentence boundaries", func(t *testing.T) {
		first := strings.Repeat("甲", 200) + "。"
		second := strings.Repeat("乙", 200) + "。"
		text := first + second

		s := New()
		spans := s.Split(text)

		require.Greater(t, len(spans), 1)
		assert.True(t, strings.HasSuffix(spans[0].Text, "。"))
		assert.NotContains(t, spans[0].Text, "乙")
	})

	t.Run("consecutive spans overlap", func(t *testing.T) {
		// No sentence enders or spaces, so spans break at the hard limit
		text := strings.Repeat("x", 1000)

		s := New()
		spans := s.Split(text)

		require.Greater(t, len(spans), 1)
		for i := 1; i < len(spans); i++ {
			assert.Equal(t, spans[i-1].End-DefaultOverlapChars, spans[i].Start)
		}
	})

	t.Run("coverage is lossless", func(t *testing.T) {
		text := strings.Repeat("y", 750)

		s := New()
		spans := s.Split(text)

		require.NotEmpty(t, spans)
		assert.Equal(t, 0, spans[0].Start)
		assert.Equal(t, len([]rune(text)), spans[len(spans)-1].End)
		for i := 1; i < len(spans); i++ {
			assert.LessOrEqual(t, spans[i].Start, spans[i-1].End)
		}
	})
}

func TestSplitOptions(t *testing.T) {
	t.Run("custom max chunk size", func(t *testing.T) {
		s := New(WithMaxChunkChars(50), WithOverlapChars(10))
		spans := s.Split(strings.Repeat("z", 200))

		require.NotEmpty(t, spans)
		for _, span := range spans {
			assert.LessOrEqual(t, len([]rune(span.Text)), 50)
		}
	})

	t.Run("overlap clamped below max", func(t *testing.T) {
		s := New(WithMaxChunkChars(20), WithOverlapChars(100))
		spans := s.Split(strings.Repeat("w", 100))

		// Must terminate and cover the input
		require.NotEmpty(t, spans)
		assert.Equal(t, 100, spans[len(spans)-1].End)
	})

	t.Run("custom minimum drops short trailing spans", func(t *testing.T) {
		s := New(WithMinChunkChars(10))
		assert.Empty(t, s.Split("too short"))
	})
}
