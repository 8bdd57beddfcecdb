package mock

import "context"

// MockQueryExpander is a test double for ai.QueryExpander.
// It allows custom behavior injection via function fields.
type MockQueryExpander struct {
	// ExpandFunc is called by Expand if set.
	// If nil, uses default template-based variants.
	ExpandFunc func(ctx context.Context, query string) ([]string, error)

	callCount int
}

// NewMockQueryExpander creates a mock query expander with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExpander().
func NewMockQueryExpander() *MockQueryExpander {
	return &MockQueryExpander{}
}

// Expand returns deterministic mock variants of the query.
// Default behavior: two fixed templates around the original query.
// The original query itself is never included.
func (m *MockQueryExpander) Expand(ctx context.Context, query string) ([]string, error) {
	m.callCount++

	if m.ExpandFunc != nil {
		return m.ExpandFunc(ctx, query)
	}

	if query == "" {
		return []string{}, nil
	}

	return []string{
		"latest news about " + query,
		query + " recent developments",
	}, nil
}

// CallCount returns the number of times Expand was called.
func (m *MockQueryExpander) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockQueryExpander) Reset() {
	m.callCount = 0
	m.ExpandFunc = nil
}
