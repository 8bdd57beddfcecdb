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


package vector

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/poiesic/newsdex/core"
)

// State describes the lifecycle of the index.
type State int32

const (
	// StateEmpty means no vectors are stored.
	StateEmpty State = iota
	// StateBuilding means the first partitioned structure is being built.
	StateBuilding
	// StateReady means the published structure reflects all stored vectors.
	StateReady
	// StateStale means vectors changed since the structure was published.
	StateStale
	// StateRebuilding means a fresh structure is being built to replace a
	// stale one. Queries keep using the previous structure until the swap.
	StateRebuilding
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// Kind reports which retrieval path produced a Result.
type Kind int

const (
	// KindFlat means an exhaustive scan over all vectors.
	KindFlat Kind = iota
	// KindPartitioned means a probe of the nearest partitions only.
	KindPartitioned
)

// Hit is a scored chunk returned by Query.
type Hit struct {
	ChunkID core.ID
	DocID   core.ID
	Score   float32
}

// Result carries query hits and the path that produced them.
type Result struct {
	Hits []Hit
	Kind Kind
}

const (
	// DefaultFlatScanThreshold is the corpus size below which queries scan
	// exhaustively instead of probing partitions.
	DefaultFlatScanThreshold = 1000

	// DefaultMaxPartitions caps the partition count.
	DefaultMaxPartitions = 100

	// DefaultProbeCount is the number of nearest partitions scanned per query.
	DefaultProbeCount = 10
)

// Index stores chunk vectors and answers inner-product similarity queries.
// Vectors are assumed normalized by the embedder, so inner product equals
// cosine similarity. Safe for concurrent use.
//
// The authoritative vectors live in maps guarded by a mutex; the partitioned
// structure is an immutable snapshot published through an atomic pointer, so
// queries against it never block mutations.
type Index struct {
	dim           int
	flatThreshold int
	maxPartitions int
	probeCount    int
	eagerRebuild  bool
	logger        *slog.Logger

	mu      sync.RWMutex
	vectors map[core.ID][]float32
	docs    map[core.ID]core.ID
	state   State
	built   bool

	partitions atomic.Pointer[partitionSet]
}

// Option configures an Index.
type Option func(*Index)

// WithFlatScanThreshold sets the corpus size below which queries use the
// exhaustive flat scan.
func WithFlatScanThreshold(n int) Option {
	return func(idx *Index) {
		if n >= 0 {
			idx.flatThreshold = n
		}
	}
}

// WithMaxPartitions caps the number of partitions built.
func WithMaxPartitions(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.maxPartitions = n
		}
	}
}

// WithProbeCount sets how many nearest partitions each query scans.
func WithProbeCount(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.probeCount = n
		}
	}
}

// WithEagerRebuild makes mutations rebuild the partitioned structure
// immediately instead of deferring to the next query.
func WithEagerRebuild(eager bool) Option {
	return func(idx *Index) {
		idx.eagerRebuild = eager
	}
}

// WithLogger sets the logger used by the index.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// New creates an empty index for vectors of the given dimension.
func New(dim int, opts ...Option) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector: dimension must be positive, got %d", dim)
	}

	idx := &Index{
		dim:           dim,
		flatThreshold: DefaultFlatScanThreshold,
		maxPartitions: DefaultMaxPartitions,
		probeCount:    DefaultProbeCount,
		logger:        slog.Default().With("component", "vector-index"),
		vectors:       make(map[core.ID][]float32),
		docs:          make(map[core.ID]core.ID),
		state:         StateEmpty,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Dim returns the vector dimension the index enforces.
func (idx *Index) Dim() int {
	return idx.dim
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// State returns the current lifecycle state.
func (idx *Index) State() State {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

// Upsert stores or replaces the vector for chunkID. Returns
// core.ErrDimensionMismatch when the vector length does not match the index
// dimension; the index is unchanged in that case.
func (idx *Index) Upsert(chunkID, docID core.ID, vec []float32) error {
	if len(vec) != idx.dim {
		return fmt.Errorf("%w: got %d, index dimension %d", core.ErrDimensionMismatch, len(vec), idx.dim)
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	idx.mu.Lock()
	idx.vectors[chunkID] = stored
	idx.docs[chunkID] = docID
	idx.state = StateStale
	idx.mu.Unlock()

	if idx.eagerRebuild {
		idx.rebuildIfNeeded()
	}
	return nil
}

// Remove drops the vector for chunkID. Unknown ids are a no-op.
func (idx *Index) Remove(chunkID core.ID) {
	idx.mu.Lock()
	if _, ok := idx.vectors[chunkID]; !ok {
		idx.mu.Unlock()
		return
	}
	delete(idx.vectors, chunkID)
	delete(idx.docs, chunkID)
	if len(idx.vectors) == 0 {
		idx.state = StateEmpty
		idx.partitions.Store(nil)
	} else {
		idx.state = StateStale
	}
	idx.mu.Unlock()

	if idx.eagerRebuild {
		idx.rebuildIfNeeded()
	}
}

// Query returns the k nearest stored vectors by inner product, descending.
// An empty index yields an empty result and no error. Small corpora scan
// exhaustively; larger ones probe the partitioned structure, rebuilding it
// first if mutations left it stale.
func (idx *Index) Query(vec []float32, k int) (Result, error) {
	if len(vec) != idx.dim {
		return Result{}, fmt.Errorf("%w: got %d, index dimension %d", core.ErrDimensionMismatch, len(vec), idx.dim)
	}
	if k <= 0 {
		return Result{Kind: KindFlat}, nil
	}

	idx.mu.RLock()
	n := len(idx.vectors)
	idx.mu.RUnlock()

	if n == 0 {
		return Result{Kind: KindFlat}, nil
	}

	if n < idx.flatThreshold {
		return Result{Hits: idx.flatScan(vec, k), Kind: KindFlat}, nil
	}

	idx.rebuildIfNeeded()

	ps := idx.partitions.Load()
	if ps == nil {
		// A concurrent build has not published yet; serve exhaustively
		return Result{Hits: idx.flatScan(vec, k), Kind: KindFlat}, nil
	}
	return Result{Hits: ps.query(vec, k, idx.probeCount), Kind: KindPartitioned}, nil
}

// flatScan runs the exhaustive inner-product scan under a read lock.
func (idx *Index) flatScan(vec []float32, k int) []Hit {
	idx.mu.RLock()
	hits := make([]Hit, 0, len(idx.vectors))
	for chunkID, stored := range idx.vectors {
		hits = append(hits, Hit{
			ChunkID: chunkID,
			DocID:   idx.docs[chunkID],
			Score:   dotProduct(vec, stored),
		})
	}
	idx.mu.RUnlock()

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// rebuildIfNeeded builds and publishes a fresh partitioned structure when the
// current one is missing or stale. Building happens outside the lock on a
// snapshot; concurrent queries keep using the previous structure.
func (idx *Index) rebuildIfNeeded() {
	idx.mu.Lock()
	if idx.state != StateStale || len(idx.vectors) == 0 {
		idx.mu.Unlock()
		return
	}
	if idx.built {
		idx.state = StateRebuilding
	} else {
		idx.state = StateBuilding
	}

	// Snapshot under the lock, build outside it
	vectors := make(map[core.ID][]float32, len(idx.vectors))
	docs := make(map[core.ID]core.ID, len(idx.docs))
	for id, v := range idx.vectors {
		vectors[id] = v
		docs[id] = idx.docs[id]
	}
	idx.mu.Unlock()

	ps := buildPartitionSet(vectors, docs, idx.maxPartitions)
	idx.partitions.Store(ps)

	idx.mu.Lock()
	idx.built = true
	// Mutations during the build leave the index stale again
	if idx.state == StateBuilding || idx.state == StateRebuilding {
		idx.state = StateReady
	}
	idx.mu.Unlock()

	idx.logger.Debug("published partition structure",
		"vectors", len(vectors),
		"partitions", len(ps.centroids))
}
