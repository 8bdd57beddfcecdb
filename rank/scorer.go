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


// Package rank combines semantic, lexical, entity, and recency signals into
// a single document ranking, and blends in cross-encoder scores when a
// reranker is available.
package rank

import (
	"strings"
	"time"

	"github.com/poiesic/newsdex/core"
)

// Weights splits the hybrid score between the semantic and lexical signals.
// The two weights are expected to sum to 1.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DefaultWeights favors the semantic signal. A 0.6/0.4 split is a reasonable
// alternative for corpora with strong keyword queries.
var DefaultWeights = Weights{Semantic: 0.7, Lexical: 0.3}

const (
	// DefaultEntityBoost multiplies the hybrid score when the document
	// covers every query entity.
	DefaultEntityBoost = 1.30

	// DefaultMinSimilarity drops candidates whose hybrid score falls below
	// the threshold before any boosting.
	DefaultMinSimilarity = 0.3

	// DefaultRecencyInfluence is the share of the final score driven by
	// publication age.
	DefaultRecencyInfluence = 0.3

	// DefaultRerankDepth is how many top candidates the reranker scores.
	DefaultRerankDepth = 10

	// DefaultHybridWeight and DefaultRerankWeight blend the hybrid score
	// with the reranker score for the final ordering.
	DefaultHybridWeight = 0.4
	DefaultRerankWeight = 0.6
)

// ChunkScore carries a chunk's normalized per-variant signals, both in [0, 1].
type ChunkScore struct {
	ChunkID  core.ID
	DocID    core.ID
	Semantic float64
	Lexical  float64
}

// Fused is a chunk's deduplicated hybrid score across all query variants.
type Fused struct {
	ChunkID core.ID
	DocID   core.ID
	Hybrid  float64
}

// Scorer applies the ranking pipeline configuration. Construct with New;
// the zero value is not usable.
type Scorer struct {
	weights          Weights
	entityBoost      float64
	minSimilarity    float64
	recencyInfluence float64
	decay            DecayFunc
	rerankDepth      int
	hybridWeight     float64
	rerankWeight     float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights sets the semantic/lexical split.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithEntityBoost sets the multiplier applied on full entity coverage.
func WithEntityBoost(boost float64) Option {
	return func(s *Scorer) {
		if boost > 0 {
			s.entityBoost = boost
		}
	}
}

// WithMinSimilarity sets the hybrid score floor.
func WithMinSimilarity(min float64) Option {
	return func(s *Scorer) {
		if min >= 0 {
			s.minSimilarity = min
		}
	}
}

// WithRecencyInfluence sets the share of the score driven by recency.
func WithRecencyInfluence(influence float64) Option {
	return func(s *Scorer) {
		if influence >= 0 && influence <= 1 {
			s.recencyInfluence = influence
		}
	}
}

// WithDecay sets the age-to-multiplier decay function.
func WithDecay(decay DecayFunc) Option {
	return func(s *Scorer) {
		if decay != nil {
			s.decay = decay
		}
	}
}

// WithRerankDepth sets how many candidates the reranker scores.
func WithRerankDepth(depth int) Option {
	return func(s *Scorer) {
		if depth > 0 {
			s.rerankDepth = depth
		}
	}
}

// WithBlendWeights sets the hybrid/rerank split for the final score.
func WithBlendWeights(hybrid, rerank float64) Option {
	return func(s *Scorer) {
		if hybrid >= 0 && rerank >= 0 {
			s.hybridWeight = hybrid
			s.rerankWeight = rerank
		}
	}
}

// New creates a Scorer with the given options applied over defaults.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		weights:          DefaultWeights,
		entityBoost:      DefaultEntityBoost,
		minSimilarity:    DefaultMinSimilarity,
		recencyInfluence: DefaultRecencyInfluence,
		decay:            StepDecay,
		rerankDepth:      DefaultRerankDepth,
		hybridWeight:     DefaultHybridWeight,
		rerankWeight:     DefaultRerankWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RerankDepth returns how many candidates the reranker should score.
func (s *Scorer) RerankDepth() int {
	return s.rerankDepth
}

// MinSimilarity returns the hybrid score floor.
func (s *Scorer) MinSimilarity() float64 {
	return s.minSimilarity
}

// Hybrid computes the weighted combination of the two signals.
func (s *Scorer) Hybrid(semantic, lexical float64) float64 {
	return s.weights.Semantic*semantic + s.weights.Lexical*lexical
}

// Fuse merges per-variant chunk scores into one hybrid score per chunk.
// A chunk retrieved by several variants keeps its best hybrid score; a
// chunk seen by only one signal scores zero on the other. Chunks below the
// minimum similarity are dropped.
func (s *Scorer) Fuse(variants ...[]ChunkScore) []Fused {
	best := make(map[core.ID]Fused)
	for _, scores := range variants {
		for _, cs := range scores {
			hybrid := s.Hybrid(cs.Semantic, cs.Lexical)
			if prev, ok := best[cs.ChunkID]; !ok || hybrid > prev.Hybrid {
				best[cs.ChunkID] = Fused{
					ChunkID: cs.ChunkID,
					DocID:   cs.DocID,
					Hybrid:  hybrid,
				}
			}
		}
	}

	fused := make([]Fused, 0, len(best))
	for _, f := range best {
		if f.Hybrid < s.minSimilarity {
			continue
		}
		fused = append(fused, f)
	}
	return fused
}

// EntityGate returns the boosted score when docEntities covers every query
// entity, and the unchanged score otherwise. Partial coverage earns nothing;
// no query entities means no boost either.
func (s *Scorer) EntityGate(score float64, queryEntities, docEntities []string) float64 {
	if len(queryEntities) == 0 {
		return score
	}

	present := make(map[string]bool, len(docEntities))
	for _, e := range docEntities {
		present[strings.ToLower(e)] = true
	}
	for _, q := range queryEntities {
		if !present[strings.ToLower(q)] {
			return score
		}
	}
	return score * s.entityBoost
}

// ApplyRecency blends the publication-age decay into the score:
// score * (1 - influence + influence * decay(age)). Zero publication times
// get the oldest decay bucket.
func (s *Scorer) ApplyRecency(score float64, publishedAt, now time.Time) float64 {
	age := now.Sub(publishedAt)
	if publishedAt.IsZero() {
		age = time.Duration(1<<62 - 1)
	}
	return score * (1 - s.recencyInfluence + s.recencyInfluence*s.decay(age))
}

// BlendRerank combines the hybrid score with a reranker relevance score.
func (s *Scorer) BlendRerank(hybrid, rerank float64) float64 {
	return s.hybridWeight*hybrid + s.rerankWeight*rerank
}

// NormalizeLexical scales raw BM25 scores into [0, 1] by dividing by the
// maximum score in the batch. An all-zero batch stays zero.
func NormalizeLexical(scores []float64) []float64 {
	var max float64
	for _, v := range scores {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return scores
	}
	out := make([]float64, len(scores))
	for i, v := range scores {
		out[i] = v / max
	}
	return out
}

// ClampSimilarity maps an inner-product similarity into [0, 1]. Normalized
// embeddings keep it in [-1, 1]; negative correlation is treated as zero.
func ClampSimilarity(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
