// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rebuild

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/newsdex/ai"
	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/lexical"
	"github.com/poiesic/newsdex/segment"
	"github.com/poiesic/newsdex/storage"
	"github.com/poiesic/newsdex/vector"
)

// Config holds configuration for a rebuild operation.
type Config struct {
	// Dim is the embedding dimension for the fresh vector index
	Dim int

	// BatchSize is the number of documents to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults for the given
// embedding dimension.
func DefaultConfig(dim int) *Config {
	return &Config{
		Dim:            dim,
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result holds the indexes produced by a rebuild. The caller swaps them in
// for the live indexes once the rebuild succeeds.
type Result struct {
	Vectors   *vector.Index
	Terms     *lexical.Index
	Documents int
	Chunks    int
}

// Rebuilder re-derives the chunk set and both search indexes from the stored
// documents. It builds into fresh indexes so the live ones keep serving until
// the swap.
type Rebuilder struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	embedder  ai.Embedder
	segmenter *segment.Segmenter
	config    *Config
	progress  io.Writer
}

// NewRebuilder creates a new rebuilder.
// progress: where to write progress output (typically os.Stderr)
func NewRebuilder(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	embedder ai.Embedder,
	segmenter *segment.Segmenter,
	config *Config,
	progress io.Writer,
) (*Rebuilder, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if segmenter == nil {
		segmenter = segment.New()
	}
	if config == nil {
		config = DefaultConfig(0)
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Rebuilder{
		documents: documents,
		chunks:    chunks,
		embedder:  embedder,
		segmenter: segmenter,
		config:    config,
		progress:  progress,
	}, nil
}

// Rebuild re-segments and re-embeds every stored document, replacing its
// persisted chunks, and returns fresh vector and lexical indexes over the
// new chunk set.
func (r *Rebuilder) Rebuild(ctx context.Context) (*Result, error) {
	total, err := r.documents.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	dim := r.config.Dim
	if dim <= 0 {
		// Probe the embedder once to learn the dimension
		vec, err := r.embedder.EmbedText(ctx, "dimension probe")
		if err != nil {
			return nil, fmt.Errorf("failed to probe embedding dimension: %w", err)
		}
		dim = len(vec)
	}

	vectors, err := vector.New(dim)
	if err != nil {
		return nil, err
	}
	terms := lexical.NewIndex()

	result := &Result{Vectors: vectors, Terms: terms}

	if total == 0 {
		fmt.Fprintf(r.progress, "No documents found (0 documents)\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting rebuild of %d documents (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	iterator := NewDocumentIterator(r.documents, r.config.BatchSize)
	err = iterator.ForEach(ctx, func(docs []*core.Document) error {
		for _, doc := range docs {
			if err := r.rebuildDocument(ctx, doc, vectors, terms, result); err != nil {
				return fmt.Errorf("failed to rebuild document %d: %w", doc.Id, err)
			}
		}
		tracker.Increment(len(docs))
		return nil
	})
	if err != nil {
		return nil, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Rebuild complete. Processed %d documents (%d chunks) in %v (%.1f docs/sec)\n",
		total, result.Chunks, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return result, nil
}

// rebuildDocument replaces one document's chunks and feeds the fresh indexes.
func (r *Rebuilder) rebuildDocument(ctx context.Context, doc *core.Document, vectors *vector.Index, terms *lexical.Index, result *Result) error {
	newChunks := r.segmenter.ChunkDocument(doc)
	if len(newChunks) == 0 {
		result.Documents++
		return nil
	}

	texts := make([]string, len(newChunks))
	for i, chunk := range newChunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}
	if len(embeddings) != len(newChunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(newChunks), len(embeddings))
	}

	for i := range newChunks {
		newChunks[i].Vector = NormalizeVector(embeddings[i])
	}

	if _, err := r.chunks.DeleteChunksByDocument(ctx, doc.Id); err != nil {
		return err
	}
	if _, err := r.chunks.AddChunks(ctx, newChunks...); err != nil {
		return err
	}

	for _, chunk := range newChunks {
		if err := vectors.Upsert(chunk.Id, chunk.DocumentId, chunk.Vector); err != nil {
			return err
		}
		terms.Add(chunk.Id, chunk.DocumentId, chunk.Text)
	}

	result.Documents++
	result.Chunks += len(newChunks)
	return nil
}
