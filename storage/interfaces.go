package storage

import (
	"context"
	"time"

	"github.com/poiesic/newsdex/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing news documents.
type DocumentRepository interface {
	Repository
	// AddDocuments adds one or more documents to storage.
	// For documents with Id=0, derives the ID from the link (or title when
	// the link is empty). Sets IngestedAt/UpdatedAt timestamps if unset.
	// Returns the documents with IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Also removes associated index entries.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing ones).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// GetDocumentsByDateRange retrieves documents within a publication time
	// range. Returns documents where start <= PublishedAt < end, ordered by
	// publication time.
	GetDocumentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Document, error)

	// GetRecentDocuments retrieves the N most recently published documents,
	// most recent first.
	GetRecentDocuments(ctx context.Context, limit int) ([]*core.Document, error)

	// GetDocumentsByCategory retrieves up to limit documents in a category.
	GetDocumentsByCategory(ctx context.Context, category string, limit int) ([]*core.Document, error)

	// RelatedDocuments finds documents sharing entity and keyword tags with
	// the given document, ordered by overlap. Returns ErrNotFound if the
	// reference document doesn't exist.
	RelatedDocuments(ctx context.Context, id core.ID, limit int) ([]*core.RelatedDocument, error)

	// ForEachDocument visits every stored document. Used by index rebuilds.
	// Iteration stops at the first error from fn.
	ForEachDocument(ctx context.Context, fn func(*core.Document) error) error

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// ChunkRepository provides operations for managing document chunks.
type ChunkRepository interface {
	Repository
	// AddChunks adds one or more chunks to storage. Chunk IDs are
	// content-derived by the caller; adding an existing ID overwrites.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// DeleteChunks removes chunks by their IDs.
	// Returns ErrNotFound if any chunk doesn't exist.
	DeleteChunks(ctx context.Context, ids ...core.ID) error

	// DeleteChunksByDocument removes all chunks belonging to a document and
	// returns their IDs so callers can update in-memory indexes. Deleting
	// for an unknown document is a no-op.
	DeleteChunksByDocument(ctx context.Context, docID core.ID) ([]core.ID, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunksByDocument retrieves all chunks of a document ordered by
	// sequence number.
	GetChunksByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error)

	// ForEachChunk visits every stored chunk. Used by index rebuilds.
	// Iteration stops at the first error from fn.
	ForEachChunk(ctx context.Context, fn func(*core.Chunk) error) error

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}
