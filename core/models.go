package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Document is a news article in the corpus. Documents are immutable once
// ingested; the engine only reads and chunks them. Enrichment fields
// (Summary, Entities, Keywords, Category) are populated during ingestion
// and may be empty.
type Document struct {
	Id          ID
	Title       string
	Body        string
	Source      string
	Link        string
	PublishedAt time.Time // When the article was originally published
	IngestedAt  time.Time // When the document entered the corpus
	UpdatedAt   time.Time // When the record was last updated
	Summary     string
	Entities    []string // Named entities extracted from title + body
	Keywords    []string
	Category    string
}

// Chunk is a bounded span of a document's body text, the unit of indexing.
// Its ID is derived from (document id, sequence, text), so re-indexing an
// unchanged document reproduces the same chunk set.
type Chunk struct {
	Id         ID
	DocumentId ID
	Seq        int
	Text       string
	Vector     []float32 // Embedding vector (populated by the ingestion pipeline)
}

// ChunkID derives the deterministic ID for a chunk of a document.
func ChunkID(docID ID, seq int, text string) ID {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf, uint64(docID))
	binary.LittleEndian.PutUint64(buf[8:], uint64(seq))
	return IDFromContent(string(buf) + text)
}

// SearchResult is a single entry of a ranked result set.
type SearchResult struct {
	DocumentId ID
	Score      float32
	Snippet    string
	Rank       int
}

// RelatedDocument is a document related to another by shared entity and
// keyword tags.
type RelatedDocument struct {
	DocumentId ID
	Title      string
	Category   string
	Score      float32
	Shared     []string // Tags common to both documents
}
