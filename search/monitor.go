package search

import (
	"github.com/poiesic/newsdex/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during
// search. AfterVariantRetrieval fires from concurrent retrieval goroutines,
// so implementations must be safe for concurrent use; every other hook is
// called sequentially from the goroutine running Search.
type SearchMonitor interface {
	Start(query string)
	CacheHit(query string)
	AfterExpansion(variants []string)
	AfterEntityExtraction(entities []string)
	AfterVariantRetrieval(variant string, vectorHits, lexicalHits int)
	AfterHybridScoring(candidates int)
	AfterRerank(reranked int)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) CacheHit(_ string)                       {}
func (n *noopMonitor) AfterExpansion(_ []string)               {}
func (n *noopMonitor) AfterEntityExtraction(_ []string)        {}
func (n *noopMonitor) AfterVariantRetrieval(_ string, _, _ int) {}
func (n *noopMonitor) AfterHybridScoring(_ int)                {}
func (n *noopMonitor) AfterRerank(_ int)                       {}
func (n *noopMonitor) Finish(_ []core.SearchResult)            {}
