package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/newsdex/ai"
	"github.com/poiesic/newsdex/cache"
	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/lexical"
	"github.com/poiesic/newsdex/rank"
	"github.com/poiesic/newsdex/storage"
	"github.com/poiesic/newsdex/vector"
)

// minRetrievalDepth is the floor on per-variant candidate retrieval. Pulling
// more candidates than k gives the scorer room to reorder.
const minRetrievalDepth = 30

// DefaultCapabilityTimeout bounds each external capability call made during
// a search.
const DefaultCapabilityTimeout = 10 * time.Second

// Mode describes how a search response was produced.
type Mode int

const (
	// ModeFull means every stage ran, including expansion and reranking.
	ModeFull Mode = iota

	// ModeDegraded means at least one capability failed and the response was
	// computed with reduced functionality.
	ModeDegraded

	// ModeEmptyCorpus means no documents are indexed.
	ModeEmptyCorpus
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeDegraded:
		return "degraded"
	case ModeEmptyCorpus:
		return "empty-corpus"
	default:
		return "unknown"
	}
}

// Response is a ranked result set plus how it was produced.
type Response struct {
	Results  []core.SearchResult
	Mode     Mode
	CacheHit bool
}

// Searcher provides hybrid semantic and lexical search over the indexed
// corpus. It is stateless between calls and safe for concurrent use.
type Searcher struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	vectors   *vector.Index
	terms     *lexical.Index
	results   *cache.ResultCache
	scorer    *rank.Scorer
	embedder  ai.Embedder
	tagger    ai.EntityTagger
	expander  ai.QueryExpander
	reranker  ai.Reranker
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithScorer sets a custom hybrid scorer.
func WithScorer(scorer *rank.Scorer) Option {
	return func(s *Searcher) error {
		if scorer != nil {
			s.scorer = scorer
		}
		return nil
	}
}

// WithCapabilityTimeout bounds expansion, tagging, and rerank calls.
func WithCapabilityTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		if timeout > 0 {
			s.timeout = timeout
		}
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	provider ai.AIProvider,
	vectors *vector.Index,
	terms *lexical.Index,
	results *cache.ResultCache,
	opts ...Option,
) (*Searcher, error) {
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

	s := &Searcher{
		documents: documents,
		chunks:    chunks,
		vectors:   vectors,
		terms:     terms,
		results:   results,
		scorer:    rank.New(),
		embedder:  provider.Embedder(),
		tagger:    provider.EntityTagger(),
		expander:  provider.QueryExpander(),
		reranker:  provider.Reranker(),
		timeout:   DefaultCapabilityTimeout,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SearchOption configures a single search request.
type SearchOption func(*searchRequest)

// WithCategory restricts results to documents in the given category.
func WithCategory(category string) SearchOption {
	return func(r *searchRequest) {
		r.category = category
	}
}

// WithMonitor attaches a monitor to the request.
func WithMonitor(monitor SearchMonitor) SearchOption {
	return func(r *searchRequest) {
		if monitor != nil {
			r.monitor = monitor
		}
	}
}

type searchRequest struct {
	category string
	monitor  SearchMonitor
}

// candidate is a chunk-level scoring record resolved to its document.
type candidate struct {
	chunkID core.ID
	doc     *core.Document
	hybrid  float64
	final   float64
	text    string
}

// Search runs the full retrieval flow: cache check, query expansion, entity
// extraction, per-variant hybrid retrieval, entity-gated scoring with recency
// weighting, reranking, and write-through caching.
//
// A search never fails because a capability is down; the response is marked
// Degraded instead. The returned error is non-nil only for context
// cancellation or a storage failure.
func (s *Searcher) Search(ctx context.Context, query string, k int, opts ...SearchOption) (*Response, error) {
	req := &searchRequest{monitor: &noopMonitor{}}
	for _, opt := range opts {
		opt(req)
	}
	monitor := req.monitor

	normalized := normalizeQuery(query)
	monitor.Start(normalized)

	if normalized == "" || k <= 0 {
		return &Response{Results: []core.SearchResult{}, Mode: ModeFull}, nil
	}

	if s.vectors.Len() == 0 && s.terms.Len() == 0 {
		return &Response{Results: []core.SearchResult{}, Mode: ModeEmptyCorpus}, nil
	}

	key := s.cacheKey(normalized, k, req.category)
	if cached, ok := s.results.Get(key); ok {
		monitor.CacheHit(normalized)
		return &Response{Results: cached, Mode: ModeFull, CacheHit: true}, nil
	}

	degraded := false

	// Expansion failure shrinks the variant set to the original query
	variants, ok := s.expandQuery(ctx, normalized)
	if !ok {
		degraded = true
	}
	monitor.AfterExpansion(variants)

	// Tagging failure disables the entity boost for this request
	queryEntities, ok := s.extractQueryEntities(ctx, query)
	if !ok {
		degraded = true
	}
	monitor.AfterEntityExtraction(queryEntities)

	variantScores, retrievalDegraded, err := s.retrieveVariants(ctx, variants, k, monitor)
	if err != nil {
		return nil, err
	}
	if retrievalDegraded {
		degraded = true
	}

	fused := s.scorer.Fuse(variantScores...)
	cands, err := s.resolveCandidates(ctx, fused, queryEntities, req.category)
	if err != nil {
		return nil, err
	}
	monitor.AfterHybridScoring(len(cands))

	if len(cands) == 0 {
		mode := ModeFull
		if degraded {
			mode = ModeDegraded
		}
		monitor.Finish(nil)
		return &Response{Results: []core.SearchResult{}, Mode: mode}, nil
	}

	sortCandidates(cands)

	cands, reranked := s.rerank(ctx, normalized, cands, k, monitor)
	if !reranked {
		degraded = true
	}
	sortCandidates(cands)

	if len(cands) > k {
		cands = cands[:k]
	}

	results := make([]core.SearchResult, len(cands))
	for i, cand := range cands {
		results[i] = core.SearchResult{
			DocumentId: cand.doc.Id,
			Score:      float32(cand.final),
			Snippet:    cand.text,
			Rank:       i + 1,
		}
	}

	mode := ModeFull
	if degraded {
		mode = ModeDegraded
	}

	// Degraded rankings are recomputed on the next request instead of being
	// served from cache; empty result sets are never cached either.
	if mode == ModeFull {
		s.results.Put(key, results)
	}

	monitor.Finish(results)

	return &Response{Results: results, Mode: mode}, nil
}

// expandQuery returns the variant set for retrieval, always starting with the
// original query. The bool result is false when the expander failed.
func (s *Searcher) expandQuery(ctx context.Context, query string) ([]string, bool) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	expanded, err := s.expander.Expand(tctx, query)
	if err != nil {
		s.logger.Warn("query expansion failed; using original query only", "err", err)
		return []string{query}, false
	}

	variants := make([]string, 0, len(expanded)+1)
	variants = append(variants, query)
	for _, v := range expanded {
		v = normalizeQuery(v)
		if v != "" && v != query {
			variants = append(variants, v)
		}
	}
	return variants, true
}

// extractQueryEntities returns the entity names found in the raw query. The
// bool result is false when the tagger failed.
func (s *Searcher) extractQueryEntities(ctx context.Context, query string) ([]string, bool) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entities, err := s.tagger.ExtractEntities(tctx, query)
	if err != nil {
		s.logger.Warn("query entity extraction failed; entity boost disabled", "err", err)
		return nil, false
	}

	names := make([]string, len(entities))
	for i, entity := range entities {
		names[i] = entity.Name
	}
	return names, true
}

// retrieveVariants runs vector and lexical retrieval for every variant
// concurrently. A variant whose embedding fails falls back to lexical-only
// candidates.
func (s *Searcher) retrieveVariants(ctx context.Context, variants []string, k int, monitor SearchMonitor) ([][]rank.ChunkScore, bool, error) {
	depth := 3 * k
	if depth < minRetrievalDepth {
		depth = minRetrievalDepth
	}

	scores := make([][]rank.ChunkScore, len(variants))
	degraded := make([]bool, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		g.Go(func() error {
			variantScores, vectorHits, lexicalHits, ok := s.retrieveVariant(gctx, variant, depth)
			scores[i] = variantScores
			degraded[i] = !ok
			monitor.AfterVariantRetrieval(variant, vectorHits, lexicalHits)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	return scores, slices.Contains(degraded, true), nil
}

// retrieveVariant gathers and merges vector and lexical candidates for one
// query variant.
func (s *Searcher) retrieveVariant(ctx context.Context, variant string, depth int) ([]rank.ChunkScore, int, int, bool) {
	ok := true
	merged := make(map[core.ID]*rank.ChunkScore)

	var vectorHits int
	vec, err := s.embedder.EmbedText(ctx, variant)
	if err != nil {
		s.logger.Warn("query embedding failed; lexical retrieval only", "variant", variant, "err", err)
		ok = false
	} else {
		res, err := s.vectors.Query(vec, depth)
		if err != nil {
			s.logger.Warn("vector query failed", "variant", variant, "err", err)
			ok = false
		} else {
			vectorHits = len(res.Hits)
			for _, hit := range res.Hits {
				merged[hit.ChunkID] = &rank.ChunkScore{
					ChunkID:  hit.ChunkID,
					DocID:    hit.DocID,
					Semantic: rank.ClampSimilarity(float64(hit.Score)),
				}
			}
		}
	}

	lexHits := s.terms.Search(lexical.Tokenize(variant), depth)
	raw := make([]float64, len(lexHits))
	for i, hit := range lexHits {
		raw[i] = hit.Score
	}
	for i, norm := range rank.NormalizeLexical(raw) {
		hit := lexHits[i]
		if cs, found := merged[hit.ChunkID]; found {
			cs.Lexical = norm
		} else {
			merged[hit.ChunkID] = &rank.ChunkScore{
				ChunkID: hit.ChunkID,
				DocID:   hit.DocID,
				Lexical: norm,
			}
		}
	}

	out := make([]rank.ChunkScore, 0, len(merged))
	for _, cs := range merged {
		out = append(out, *cs)
	}
	return out, vectorHits, len(lexHits), ok
}

// resolveCandidates loads candidate documents, applies the category filter,
// entity gate, and recency weighting, and reduces chunk scores to the best
// chunk per document.
func (s *Searcher) resolveCandidates(ctx context.Context, fused []rank.Fused, queryEntities []string, category string) ([]*candidate, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	docIDs := make([]core.ID, 0, len(fused))
	seen := make(map[core.ID]bool, len(fused))
	for _, f := range fused {
		if !seen[f.DocID] {
			seen[f.DocID] = true
			docIDs = append(docIDs, f.DocID)
		}
	}

	docs, err := s.documents.GetDocuments(ctx, docIDs...)
	if err != nil {
		return nil, err
	}
	byID := make(map[core.ID]*core.Document, len(docs))
	for _, doc := range docs {
		byID[doc.Id] = doc
	}

	now := time.Now().UTC()
	best := make(map[core.ID]*candidate)
	for _, f := range fused {
		doc, found := byID[f.DocID]
		if !found {
			// Chunk outlived its document; the indexes are stale for it
			continue
		}
		if category != "" && doc.Category != category {
			continue
		}

		score := s.scorer.EntityGate(f.Hybrid, queryEntities, doc.Entities)
		score = s.scorer.ApplyRecency(score, doc.PublishedAt, now)

		if cur, found := best[doc.Id]; !found || score > cur.hybrid {
			best[doc.Id] = &candidate{
				chunkID: f.ChunkID,
				doc:     doc,
				hybrid:  score,
				final:   score,
			}
		}
	}

	cands := make([]*candidate, 0, len(best))
	for _, cand := range best {
		cands = append(cands, cand)
	}
	return cands, nil
}

// rerank scores the top candidates with the cross-encoder and blends the
// result into their final scores. Blended and raw hybrid scores live on
// different scales, so on success only the reranked candidates stay in
// contention; the returned bool is false if reranking was abandoned.
func (s *Searcher) rerank(ctx context.Context, query string, cands []*candidate, k int, monitor SearchMonitor) ([]*candidate, bool) {
	depth := s.scorer.RerankDepth()
	if depth > len(cands) {
		depth = len(cands)
	}

	// Snippets are needed for everything that can appear in the response
	textDepth := max(depth, k)
	if textDepth > len(cands) {
		textDepth = len(cands)
	}
	for _, cand := range cands[:textDepth] {
		chunk, err := s.chunks.GetChunk(ctx, cand.chunkID)
		if err != nil {
			s.logger.Warn("error loading chunk for snippet", "chunk", cand.chunkID, "err", err)
			cand.text = cand.doc.Title
			continue
		}
		cand.text = chunk.Text
	}

	reranked := 0
	for _, cand := range cands[:depth] {
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		score, err := s.reranker.Relevance(tctx, query, cand.text)
		cancel()
		if err != nil {
			s.logger.Warn("reranking failed; falling back to hybrid order", "err", err)
			// Partial blending would make scores incomparable
			for _, c := range cands {
				c.final = c.hybrid
			}
			return cands, false
		}
		cand.final = s.scorer.BlendRerank(cand.hybrid, score)
		reranked++
	}

	monitor.AfterRerank(reranked)
	return cands[:depth], true
}

// sortCandidates orders by score descending, breaking ties by newer
// publication time, then ascending document id.
func sortCandidates(cands []*candidate) {
	slices.SortFunc(cands, func(a, b *candidate) int {
		if a.final != b.final {
			if a.final > b.final {
				return -1
			}
			return 1
		}
		if !a.doc.PublishedAt.Equal(b.doc.PublishedAt) {
			if a.doc.PublishedAt.After(b.doc.PublishedAt) {
				return -1
			}
			return 1
		}
		if a.doc.Id < b.doc.Id {
			return -1
		}
		if a.doc.Id > b.doc.Id {
			return 1
		}
		return 0
	})
}

// cacheKey folds the category filter into the cached query so filtered and
// unfiltered requests never collide.
func (s *Searcher) cacheKey(normalized string, k int, category string) cache.Key {
	if category != "" {
		normalized = normalized + "\ncategory:" + strings.ToLower(category)
	}
	return cache.KeyFor(normalized, k)
}

// normalizeQuery lowercases and collapses whitespace.
func normalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
