package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/newsdex/ai"
	"github.com/poiesic/newsdex/cache"
	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/lexical"
	"github.com/poiesic/newsdex/rebuild"
	"github.com/poiesic/newsdex/segment"
	"github.com/poiesic/newsdex/storage"
	"github.com/poiesic/newsdex/vector"
)

// embedBatchSize is the number of chunk texts sent per embedding request.
const embedBatchSize = 16

// Pipeline orchestrates document indexing: segmentation, embedding, chunk
// persistence, and index maintenance. Entity enrichment runs asynchronously
// so it never blocks indexing.
type Pipeline struct {
	documents  storage.DocumentRepository
	chunks     storage.ChunkRepository
	vectors    *vector.Index
	terms      *lexical.Index
	results    *cache.ResultCache
	segmenter  *segment.Segmenter
	embedder   ai.Embedder
	embedPool  *ants.Pool
	tagPool    *ants.Pool
	tagProc    processor
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embedPool != nil {
			p.embedPool.Release()
		}
		if p.tagPool != nil {
			p.tagPool.Release()
		}

		embedPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		tagPool, err := ants.NewPool(size)
		if err != nil {
			embedPool.Release()
			return err
		}

		p.embedPool = embedPool
		p.tagPool = tagPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithSegmenter sets a custom segmenter.
func WithSegmenter(segmenter *segment.Segmenter) Option {
	return func(p *Pipeline) error {
		if segmenter != nil {
			p.segmenter = segmenter
		}
		return nil
	}
}

// WithRetryPolicy sets the retry policy for embedding calls.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts > 0 {
			p.maxRetries = maxAttempts
		}
		if baseDelay > 0 {
			p.retryDelay = baseDelay
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	provider ai.AIProvider,
	vectors *vector.Index,
	terms *lexical.Index,
	results *cache.ResultCache,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if terms == nil {
		return nil, ErrLexicalIndexRequired
	}
	if results == nil {
		return nil, ErrResultCacheRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embedPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	tagPool, err := ants.NewPool(poolSize)
	if err != nil {
		embedPool.Release()
		return nil, err
	}

	p := &Pipeline{
		documents:  documents,
		chunks:     chunks,
		vectors:    vectors,
		terms:      terms,
		results:    results,
		segmenter:  segment.New(),
		embedder:   provider.Embedder(),
		embedPool:  embedPool,
		tagPool:    tagPool,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	tagProc, err := newTagProcessor(documents, provider.EntityTagger(), results, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.tagProc = tagProc

	return p, nil
}

// IndexDocument validates, stores, segments, embeds, and indexes a document.
// Indexing the same document again replaces its previous chunk set, so the
// operation is idempotent. An embedding failure leaves the document lexically
// searchable; it is logged, not returned.
func (p *Pipeline) IndexDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	if doc.Id == 0 {
		if doc.Link != "" {
			doc.Id = core.IDFromContent(doc.Link)
		} else {
			doc.Id = core.IDFromContent(doc.Title)
		}
	}

	// Upsert the document record
	_, err := p.documents.GetDocument(ctx, doc.Id)
	switch {
	case err == nil:
		if _, err := p.documents.UpdateDocuments(ctx, doc); err != nil {
			return err
		}
	case errors.Is(err, storage.ErrNotFound):
		if _, err := p.documents.AddDocuments(ctx, doc); err != nil {
			return err
		}
	default:
		return err
	}

	// Drop any previous chunk set so re-indexing cannot accumulate
	removed, err := p.chunks.DeleteChunksByDocument(ctx, doc.Id)
	if err != nil {
		return err
	}
	for _, chunkID := range removed {
		p.vectors.Remove(chunkID)
		p.terms.Remove(chunkID)
	}

	newChunks := p.segmenter.ChunkDocument(doc)
	if len(newChunks) == 0 {
		p.results.Purge()
		return nil
	}

	p.embedChunks(ctx, doc.Id, newChunks)

	if _, err := p.chunks.AddChunks(ctx, newChunks...); err != nil {
		return err
	}

	for _, chunk := range newChunks {
		if len(chunk.Vector) > 0 {
			if err := p.vectors.Upsert(chunk.Id, chunk.DocumentId, chunk.Vector); err != nil {
				p.logger.Error("error upserting chunk vector", "chunk", chunk.Id, "err", err)
			}
		}
		p.terms.Add(chunk.Id, chunk.DocumentId, chunk.Text)
	}

	p.results.Purge()

	// Entity enrichment runs off the indexing path
	p.tagPool.Submit(func() {
		if err := p.tagProc.process(context.Background(), doc.Id); err != nil {
			p.logger.Error("error enriching document", "document", doc.Id, "err", err)
		}
	})

	return nil
}

// RemoveDocument deletes a document, its chunks, and its index entries.
func (p *Pipeline) RemoveDocument(ctx context.Context, id core.ID) error {
	removed, err := p.chunks.DeleteChunksByDocument(ctx, id)
	if err != nil {
		return err
	}
	for _, chunkID := range removed {
		p.vectors.Remove(chunkID)
		p.terms.Remove(chunkID)
	}

	if err := p.documents.DeleteDocuments(ctx, id); err != nil {
		return err
	}

	p.results.Purge()
	return nil
}

// embedChunks embeds chunk texts in concurrent batches. Batches that fail
// after retries leave their chunks without vectors; those chunks remain
// lexically searchable.
func (p *Pipeline) embedChunks(ctx context.Context, docID core.ID, chunks []*core.Chunk) {
	var wg sync.WaitGroup

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := p.embedPool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			var embeddings [][]float32
			err := rebuild.RetryWithBackoff(ctx, func() error {
				var err error
				embeddings, err = p.embedder.EmbedTexts(ctx, texts)
				return err
			}, p.maxRetries, p.retryDelay)
			if err != nil {
				p.logger.Warn("embedding failed; chunks indexed without vectors",
					"document", docID, "chunks", len(batch), "err", err)
				return
			}
			if len(embeddings) != len(batch) {
				p.logger.Error("embedding result mismatch",
					"document", docID, "expected", len(batch), "received", len(embeddings))
				return
			}

			for i := range batch {
				batch[i].Vector = rebuild.NormalizeVector(embeddings[i])
			}
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Error("error submitting embedding batch", "document", docID, "err", submitErr)
		}
	}

	wg.Wait()
}

// Release releases resources including worker pools. Queued enrichment tasks
// may be dropped. The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embedPool != nil {
		p.embedPool.Release()
	}
	if p.tagPool != nil {
		p.tagPool.Release()
	}
}
