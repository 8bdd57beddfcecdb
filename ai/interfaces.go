package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityTagger extracts named entities from text.
// Implementations must be thread-safe for concurrent use.
type EntityTagger interface {
	// ExtractEntities analyzes text and extracts named entities with their
	// types. Returns an empty slice if no entities are found.
	// Returns an error if entity extraction fails; callers are expected to
	// treat failure as a degradation, not a hard error.
	ExtractEntities(ctx context.Context, text string) ([]ExtractedEntity, error)
}

// ExtractedEntity represents a named entity identified in text.
type ExtractedEntity struct {
	// Name is the entity surface form, lowercased.
	// Example: "european central bank", "hong kong"
	Name string

	// Type categorizes the entity (e.g., "person", "place", "organization").
	// Must match one of the predefined entity types.
	Type string
}

// QueryExpander produces paraphrase variants of a raw query to improve recall
// for ambiguous phrasing. Implementations must be thread-safe.
type QueryExpander interface {
	// Expand returns up to two alternative phrasings of the query. The
	// original query is NOT included in the returned slice; the caller always
	// keeps it. An error means the caller should proceed with the original
	// query alone.
	Expand(ctx context.Context, query string) ([]string, error)
}

// Reranker scores a (query, candidate text) pair jointly, cross-encoder
// style. More accurate than comparing independent embeddings, but costlier.
// Implementations must be thread-safe.
type Reranker interface {
	// Relevance returns a relevance score in [0, 1] for the candidate text
	// against the query. An error means reranking is unavailable; callers
	// fall back to their existing ranking.
	Relevance(ctx context.Context, query, text string) (float64, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages the capability instances, ensuring
// they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// EntityTagger returns the entity extraction service.
	// The returned EntityTagger is safe for concurrent use.
	EntityTagger() EntityTagger

	// QueryExpander returns the query variant service.
	// The returned QueryExpander is safe for concurrent use.
	QueryExpander() QueryExpander

	// Reranker returns the cross-encoder relevance service.
	// The returned Reranker is safe for concurrent use.
	Reranker() Reranker

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
