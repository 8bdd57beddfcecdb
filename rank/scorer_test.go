package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newsdex/core"
)

func TestHybrid(t *testing.T) {
	t.Run("default weights", func(t *testing.T) {
		s := New()
		assert.InDelta(t, 0.7*0.8+0.3*0.5, s.Hybrid(0.8, 0.5), 1e-9)
	})

	t.Run("custom weights", func(t *testing.T) {
		s := New(WithWeights(Weights{Semantic: 0.6, Lexical: 0.4}))
		assert.InDelta(t, 0.6*1.0+0.4*0.5, s.Hybrid(1.0, 0.5), 1e-9)
	})

	t.Run("single-signal candidates score zero on the other", func(t *testing.T) {
		s := New()
		assert.InDelta(t, 0.7*0.9, s.Hybrid(0.9, 0), 1e-9)
		assert.InDelta(t, 0.3*0.9, s.Hybrid(0, 0.9), 1e-9)
	})

	t.Run("semantic-dominant outranks lexical-dominant by default", func(t *testing.T) {
		s := New()
		assert.Greater(t, s.Hybrid(0.9, 0.1), s.Hybrid(0.1, 0.9))
	})
}

func TestFuse(t *testing.T) {
	s := New(WithMinSimilarity(0))

	t.Run("dedupes across variants keeping max", func(t *testing.T) {
		variantA := []ChunkScore{
			{ChunkID: 1, DocID: 100, Semantic: 0.5, Lexical: 0.5},
		}
		variantB := []ChunkScore{
			{ChunkID: 1, DocID: 100, Semantic: 0.9, Lexical: 0.9},
			{ChunkID: 2, DocID: 200, Semantic: 0.4, Lexical: 0},
		}

		fused := s.Fuse(variantA, variantB)
		require.Len(t, fused, 2)

		byChunk := make(map[core.ID]Fused)
		for _, f := range fused {
			byChunk[f.ChunkID] = f
		}
		assert.InDelta(t, s.Hybrid(0.9, 0.9), byChunk[1].Hybrid, 1e-9)
		assert.InDelta(t, s.Hybrid(0.4, 0), byChunk[2].Hybrid, 1e-9)
	})

	t.Run("empty variants fuse to nothing", func(t *testing.T) {
		assert.Empty(t, s.Fuse(nil, []ChunkScore{}))
	})
}

func TestFuseMinSimilarity(t *testing.T) {
	s := New() // default floor 0.3

	fused := s.Fuse([]ChunkScore{
		{ChunkID: 1, DocID: 100, Semantic: 0.9, Lexical: 0.9}, // well above
		{ChunkID: 2, DocID: 200, Semantic: 0.1, Lexical: 0.1}, // below
	})

	require.Len(t, fused, 1)
	assert.Equal(t, core.ID(1), fused[0].ChunkID)
}

func TestEntityGate(t *testing.T) {
	s := New()

	t.Run("full coverage boosts", func(t *testing.T) {
		got := s.EntityGate(1.0, []string{"ecb", "frankfurt"}, []string{"ECB", "Frankfurt", "Lagarde"})
		assert.InDelta(t, DefaultEntityBoost, got, 1e-9)
	})

	t.Run("partial coverage earns nothing", func(t *testing.T) {
		got := s.EntityGate(1.0, []string{"ecb", "tokyo"}, []string{"ecb", "frankfurt"})
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("no query entities means no boost", func(t *testing.T) {
		got := s.EntityGate(1.0, nil, []string{"ecb"})
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		got := s.EntityGate(1.0, []string{"ECB"}, []string{"ecb"})
		assert.InDelta(t, DefaultEntityBoost, got, 1e-9)
	})

	t.Run("custom boost", func(t *testing.T) {
		s := New(WithEntityBoost(2.0))
		assert.InDelta(t, 2.0, s.EntityGate(1.0, []string{"a"}, []string{"a"}), 1e-9)
	})
}

func TestApplyRecency(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s := New()

	t.Run("fresh article gets a boost", func(t *testing.T) {
		got := s.ApplyRecency(1.0, now.Add(-1*time.Hour), now)
		assert.InDelta(t, 0.7+0.3*1.5, got, 1e-9)
	})

	t.Run("month-old article is dampened", func(t *testing.T) {
		got := s.ApplyRecency(1.0, now.Add(-60*24*time.Hour), now)
		assert.InDelta(t, 0.7+0.3*0.5, got, 1e-9)
	})

	t.Run("zero publication time gets the oldest bucket", func(t *testing.T) {
		got := s.ApplyRecency(1.0, time.Time{}, now)
		assert.InDelta(t, 0.7+0.3*0.5, got, 1e-9)
	})

	t.Run("zero influence disables recency", func(t *testing.T) {
		s := New(WithRecencyInfluence(0))
		got := s.ApplyRecency(1.0, now.Add(-365*24*time.Hour), now)
		assert.InDelta(t, 1.0, got, 1e-9)
	})
}

func TestStepDecay(t *testing.T) {
	tests := []struct {
		name     string
		age      time.Duration
		expected float64
	}{
		{"under 12 hours", 6 * time.Hour, 1.5},
		{"under 24 hours", 18 * time.Hour, 1.3},
		{"under 3 days", 2 * 24 * time.Hour, 1.1},
		{"under 7 days", 5 * 24 * time.Hour, 1.0},
		{"under 30 days", 20 * 24 * time.Hour, 0.8},
		{"older", 90 * 24 * time.Hour, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StepDecay(tt.age))
		})
	}
}

func TestBlendRerank(t *testing.T) {
	t.Run("default blend", func(t *testing.T) {
		s := New()
		assert.InDelta(t, 0.4*0.8+0.6*0.9, s.BlendRerank(0.8, 0.9), 1e-9)
	})

	t.Run("custom blend", func(t *testing.T) {
		s := New(WithBlendWeights(0.5, 0.5))
		assert.InDelta(t, 0.5*0.8+0.5*0.4, s.BlendRerank(0.8, 0.4), 1e-9)
	})
}

func TestNormalizeLexical(t *testing.T) {
	t.Run("scales by max", func(t *testing.T) {
		got := NormalizeLexical([]float64{4, 2, 1})
		assert.InDelta(t, 1.0, got[0], 1e-9)
		assert.InDelta(t, 0.5, got[1], 1e-9)
		assert.InDelta(t, 0.25, got[2], 1e-9)
	})

	t.Run("all zero stays zero", func(t *testing.T) {
		assert.Equal(t, []float64{0, 0}, NormalizeLexical([]float64{0, 0}))
	})
}

func TestClampSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, ClampSimilarity(-0.5))
	assert.Equal(t, 0.5, ClampSimilarity(0.5))
	assert.Equal(t, 1.0, ClampSimilarity(1.2))
}
