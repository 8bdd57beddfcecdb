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


package newsdex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/newsdex/ai"
	"github.com/poiesic/newsdex/ai/openai"
	"github.com/poiesic/newsdex/cache"
	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/ingestion"
	"github.com/poiesic/newsdex/lexical"
	"github.com/poiesic/newsdex/rebuild"
	"github.com/poiesic/newsdex/search"
	"github.com/poiesic/newsdex/storage"
	badgerstore "github.com/poiesic/newsdex/storage/badger"
	"github.com/poiesic/newsdex/vector"
)

// DefaultEmbeddingDim matches the default embedding model in ai.DefaultConfig.
const DefaultEmbeddingDim = 768

const (
	vectorsArtifact = "vectors.ndxv"
	mappingArtifact = "vectors.ndxm"
)

// Corpus is the composition root: it owns the document store, both search
// indexes, the result cache, and the AI provider, and hands out pipelines
// and searchers wired against them.
type Corpus struct {
	backend   *badgerstore.Backend
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	provider  ai.AIProvider
	vectors   *vector.Index
	terms     *lexical.Index
	results   *cache.ResultCache
	dir       string
	dim       int
	inMemory  bool
	logger    *slog.Logger
}

// CorpusOption configures a Corpus.
type CorpusOption func(*corpusOptions)

type corpusOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	dim           int
	cacheCapacity int
	inMemory      bool
	logger        *slog.Logger
}

// WithAIConfig sets the configuration used to build the OpenAI-compatible
// provider. Ignored when WithProvider is given.
func WithAIConfig(cfg *ai.Config) CorpusOption {
	return func(o *corpusOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider supplies an already-constructed AI provider instead of the
// default OpenAI-compatible one. The corpus takes ownership and closes it.
func WithProvider(provider ai.AIProvider) CorpusOption {
	return func(o *corpusOptions) {
		o.provider = provider
	}
}

// WithEmbeddingDim sets the embedding dimension. It must match the
// configured embedding model.
func WithEmbeddingDim(dim int) CorpusOption {
	return func(o *corpusOptions) {
		o.dim = dim
	}
}

// WithCacheCapacity sets the result cache capacity.
func WithCacheCapacity(capacity int) CorpusOption {
	return func(o *corpusOptions) {
		o.cacheCapacity = capacity
	}
}

// WithInMemory keeps everything in memory; nothing is read from or written
// to the corpus directory. Intended for tests.
func WithInMemory() CorpusOption {
	return func(o *corpusOptions) {
		o.inMemory = true
	}
}

// WithCorpusLogger sets the logger for corpus lifecycle events.
func WithCorpusLogger(logger *slog.Logger) CorpusOption {
	return func(o *corpusOptions) {
		o.logger = logger
	}
}

// OpenCorpus opens the corpus rooted at dir, creating it if absent. The
// vector index is loaded from its persisted artifacts when they exist;
// missing or corrupt artifacts are recovered from the stored chunks, which
// carry their embedding vectors. The lexical index is always rebuilt from
// the stored chunks, it has no persisted form.
func OpenCorpus(dir string, opts ...CorpusOption) (*Corpus, error) {
	options := &corpusOptions{
		aiConfig: ai.DefaultConfig(),
		dim:      DefaultEmbeddingDim,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.dim <= 0 {
		options.dim = DefaultEmbeddingDim
	}

	backend, err := badgerstore.OpenBackend(dir, options.inMemory)
	if err != nil {
		return nil, err
	}

	documents, err := badgerstore.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := badgerstore.NewChunkRepository(backend)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			chunks.Close()
			documents.Close()
			backend.Close()
			return nil, err
		}
	}

	results, err := cache.New(options.cacheCapacity)
	if err != nil {
		provider.Close()
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	c := &Corpus{
		backend:   backend,
		documents: documents,
		chunks:    chunks,
		provider:  provider,
		results:   results,
		dir:       dir,
		dim:       options.dim,
		inMemory:  options.inMemory,
		logger:    options.logger,
	}

	if err := c.loadIndexes(context.Background()); err != nil {
		c.provider.Close()
		c.chunks.Close()
		c.documents.Close()
		c.backend.Close()
		return nil, err
	}
	return c, nil
}

// loadIndexes prepares the in-memory indexes. The vector index prefers its
// persisted artifacts; anything wrong with them falls back to the vectors
// stored on the chunks themselves. The lexical index is derived from the
// chunk text every time.
func (c *Corpus) loadIndexes(ctx context.Context) error {
	vectors, err := vector.New(c.dim)
	if err != nil {
		return err
	}
	c.vectors = vectors
	c.terms = lexical.NewIndex()

	loaded := false
	if !c.inMemory {
		err := c.vectors.LoadFrom(c.vectorsPath(), c.mappingPath())
		switch {
		case err == nil:
			loaded = true
		case errors.Is(err, core.ErrIndexCorrupt):
			c.logger.Warn("vector index artifacts corrupt, recovering from stored chunks", "err", err)
		case os.IsNotExist(err):
			// Fresh corpus, or artifacts were never written
		default:
			return err
		}
	}

	return c.chunks.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		if !loaded && len(chunk.Vector) == c.dim {
			if err := c.vectors.Upsert(chunk.Id, chunk.DocumentId, chunk.Vector); err != nil {
				return err
			}
		}
		c.terms.Add(chunk.Id, chunk.DocumentId, chunk.Text)
		return nil
	})
}

func (c *Corpus) vectorsPath() string {
	return filepath.Join(c.dir, vectorsArtifact)
}

func (c *Corpus) mappingPath() string {
	return filepath.Join(c.dir, mappingArtifact)
}

// Close persists the vector index artifacts and releases every owned
// resource. Pipelines and searchers handed out by this corpus must not be
// used after Close.
func (c *Corpus) Close() error {
	if err := c.provider.Close(); err != nil {
		c.logger.Error("error closing AI provider", "err", err)
	}

	if !c.inMemory {
		if err := c.vectors.SaveTo(c.vectorsPath(), c.mappingPath()); err != nil {
			c.logger.Error("error saving vector index artifacts", "err", err)
		}
	}

	if err := c.chunks.Close(); err != nil {
		c.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := c.documents.Close(); err != nil {
		c.logger.Error("error closing document repository", "err", err)
		return err
	}

	if err := c.backend.Close(); err != nil {
		c.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (c *Corpus) DocumentRepository() storage.DocumentRepository {
	return c.documents
}

func (c *Corpus) ChunkRepository() storage.ChunkRepository {
	return c.chunks
}

func (c *Corpus) ResultCache() *cache.ResultCache {
	return c.results
}

func (c *Corpus) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(c.documents, c.chunks, c.provider, c.vectors, c.terms, c.results, opts...)
}

func (c *Corpus) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(c.documents, c.chunks, c.provider, c.vectors, c.terms, c.results, opts...)
}

// Rebuild re-segments and re-embeds every stored document and swaps the
// fresh indexes in. Existing pipelines and searchers keep the old indexes;
// create new ones after a rebuild. progress may be nil.
func (c *Corpus) Rebuild(ctx context.Context, progress io.Writer) (*rebuild.Result, error) {
	rebuilder, err := rebuild.NewRebuilder(c.documents, c.chunks, c.provider.Embedder(), nil, rebuild.DefaultConfig(c.dim), progress)
	if err != nil {
		return nil, err
	}

	result, err := rebuilder.Rebuild(ctx)
	if err != nil {
		return nil, err
	}

	c.vectors = result.Vectors
	c.terms = result.Terms
	c.results.Purge()
	c.logger.Info("indexes rebuilt", "documents", result.Documents, "chunks", result.Chunks)
	return result, nil
}
