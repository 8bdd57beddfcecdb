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


// Package search provides hybrid semantic and lexical retrieval over the
// indexed corpus.
//
// The Searcher type implements a multi-stage search flow that combines:
//   - Semantic retrieval over embedded chunks
//   - BM25 lexical retrieval over chunk text
//   - Query expansion for recall on ambiguous phrasing
//   - An entity gate and recency weighting on hybrid scores
//   - Cross-encoder reranking of the top candidates
//
// Every external capability is optional at runtime: failures degrade the
// response (and mark it as such) instead of failing the search.
package search
