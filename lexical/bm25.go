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


package lexical

import (
	"math"
	"slices"
	"sync"

	"github.com/poiesic/newsdex/core"
)

// Okapi BM25 parameters.
const (
	K1 = 1.2
	B  = 0.75
)

// Hit is a scored chunk returned by Search.
type Hit struct {
	ChunkID core.ID
	DocID   core.ID
	Score   float64
}

// entry holds the indexed form of one chunk.
type entry struct {
	docID  core.ID
	counts map[string]int
	length int
}

// Index is an in-memory BM25 inverted index over chunk text.
// It is rebuilt from stored chunks on startup and carries no persistence of
// its own. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	entries  map[core.ID]*entry
	postings map[string]map[core.ID]int
	totalLen int
}

// NewIndex creates an empty BM25 index.
func NewIndex() *Index {
	return &Index{
		entries:  make(map[core.ID]*entry),
		postings: make(map[string]map[core.ID]int),
	}
}

// Add indexes the chunk text under chunkID. Adding an existing chunkID
// replaces the previous entry.
func (idx *Index) Add(chunkID, docID core.ID, text string) {
	terms := Tokenize(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(chunkID)

	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}

	idx.entries[chunkID] = &entry{
		docID:  docID,
		counts: counts,
		length: len(terms),
	}
	idx.totalLen += len(terms)

	for term, tf := range counts {
		posting := idx.postings[term]
		if posting == nil {
			posting = make(map[core.ID]int)
			idx.postings[term] = posting
		}
		posting[chunkID] = tf
	}
}

// Remove drops the chunk from the index. Unknown ids are a no-op.
func (idx *Index) Remove(chunkID core.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
}

func (idx *Index) removeLocked(chunkID core.ID) {
	e, ok := idx.entries[chunkID]
	if !ok {
		return
	}

	for term := range e.counts {
		posting := idx.postings[term]
		delete(posting, chunkID)
		if len(posting) == 0 {
			delete(idx.postings, term)
		}
	}
	idx.totalLen -= e.length
	delete(idx.entries, chunkID)
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Score computes the BM25 score of a single chunk against the query terms.
// Unknown chunks score zero.
func (idx *Index) Score(terms []string, chunkID core.ID) float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.entries[chunkID]
	if !ok {
		return 0
	}
	return idx.scoreLocked(terms, chunkID, e)
}

// Search returns the k best-scoring chunks for the query terms, descending by
// score with ascending chunk id as tie-break. Terms absent from the index
// contribute nothing; a query with no indexed terms yields no hits.
func (idx *Index) Search(terms []string, k int) []Hit {
	if k <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// Gather candidates from the postings of each query term
	candidates := make(map[core.ID]bool)
	for _, term := range terms {
		for chunkID := range idx.postings[term] {
			candidates[chunkID] = true
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(candidates))
	for chunkID := range candidates {
		e := idx.entries[chunkID]
		hits = append(hits, Hit{
			ChunkID: chunkID,
			DocID:   e.docID,
			Score:   idx.scoreLocked(terms, chunkID, e),
		})
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.ChunkID < b.ChunkID {
			return -1
		}
		if a.ChunkID > b.ChunkID {
			return 1
		}
		return 0
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// scoreLocked computes Okapi BM25 for one chunk. Caller holds at least a
// read lock.
func (idx *Index) scoreLocked(terms []string, chunkID core.ID, e *entry) float64 {
	n := len(idx.entries)
	if n == 0 || e.length == 0 {
		return 0
	}
	avgLen := float64(idx.totalLen) / float64(n)

	var score float64
	for _, term := range terms {
		tf := e.counts[term]
		if tf == 0 {
			continue
		}
		df := len(idx.postings[term])
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		norm := float64(tf) * (K1 + 1) / (float64(tf) + K1*(1-B+B*float64(e.length)/avgLen))
		score += idf * norm
	}
	return score
}
