package mock

import (
	"context"
	"hash/fnv"
	"math"
)

const mockDim = 384

// MockEmbedder is a deterministic test double for ai.Embedder. The same text
// always embeds to the same unit vector, and distinct texts embed to vectors
// that are close to orthogonal, so similarity assertions in tests are stable.
type MockEmbedder struct {
	// EmbedTextFunc overrides EmbedText when set.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc overrides EmbedTexts when set.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

// NewMockEmbedder creates a mock embedder producing 384-dimensional vectors.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return textVector(text), nil
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = textVector(text)
	}
	return vectors, nil
}

// Reset clears any injected behavior.
func (m *MockEmbedder) Reset() {
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// textVector derives a unit vector from the FNV hash of the text. Components
// are centered around zero so unrelated texts have near-zero inner product.
func textVector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, mockDim)
	var sumSquares float64
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		// Top bits of the LCG state, mapped into [-1, 1)
		vec[i] = float32(int32(state>>32)) / float32(math.MaxInt32)
		sumSquares += float64(vec[i]) * float64(vec[i])
	}

	if sumSquares > 0 {
		inv := float32(1 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
