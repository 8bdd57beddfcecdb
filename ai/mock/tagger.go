package mock

import (
	"context"
	"strings"
	"unicode"

	"github.com/poiesic/newsdex/ai"
)

// MockEntityTagger is a test double for ai.EntityTagger.
// It allows custom behavior injection via function fields.
type MockEntityTagger struct {
	// ExtractEntitiesFunc is called by ExtractEntities if set.
	// If nil, uses default capitalized-word extraction.
	ExtractEntitiesFunc func(ctx context.Context, text string) ([]ai.ExtractedEntity, error)

	callCount int
}

// NewMockEntityTagger creates a mock entity tagger with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockTagger().
func NewMockEntityTagger() *MockEntityTagger {
	return &MockEntityTagger{}
}

// ExtractEntities extracts simple mock entities from text.
// Default behavior: treats capitalized words as entities, lowercased.
func (m *MockEntityTagger) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	m.callCount++

	if m.ExtractEntitiesFunc != nil {
		return m.ExtractEntitiesFunc(ctx, text)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []ai.ExtractedEntity{}, nil
	}

	seen := make(map[string]bool)
	entities := make([]ai.ExtractedEntity, 0, 5)
	for _, word := range words {
		if len(entities) >= 5 {
			break
		}

		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" {
			continue
		}

		runes := []rune(word)
		if !unicode.IsUpper(runes[0]) {
			continue
		}

		name := strings.ToLower(word)
		if seen[name] {
			continue
		}
		seen[name] = true

		// Assign a simple type based on length
		entityType := "person"
		if len(runes) > 6 {
			entityType = "organization"
		}

		entities = append(entities, ai.ExtractedEntity{
			Name: name,
			Type: entityType,
		})
	}

	return entities, nil
}

// CallCount returns the number of times ExtractEntities was called.
func (m *MockEntityTagger) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockEntityTagger) Reset() {
	m.callCount = 0
	m.ExtractEntitiesFunc = nil
}
