package mock

import (
	"context"
	"strings"
)

// MockReranker is a test double for ai.Reranker.
// It allows custom behavior injection via function fields.
type MockReranker struct {
	// RelevanceFunc is called by Relevance if set.
	// If nil, uses default word-overlap scoring.
	RelevanceFunc func(ctx context.Context, query, text string) (float64, error)

	callCount int
}

// NewMockReranker creates a mock reranker with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockReranker().
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Relevance scores the candidate text against the query.
// Default behavior: fraction of query words present in the text, so tests
// get a stable score in [0, 1] that tracks lexical overlap.
func (m *MockReranker) Relevance(ctx context.Context, query, text string) (float64, error) {
	m.callCount++

	if m.RelevanceFunc != nil {
		return m.RelevanceFunc(ctx, query, text)
	}

	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0, nil
	}

	lowerText := strings.ToLower(text)
	matched := 0
	for _, word := range queryWords {
		if strings.Contains(lowerText, word) {
			matched++
		}
	}

	return float64(matched) / float64(len(queryWords)), nil
}

// CallCount returns the number of times Relevance was called.
func (m *MockReranker) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockReranker) Reset() {
	m.callCount = 0
	m.RelevanceFunc = nil
}
