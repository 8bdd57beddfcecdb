package vector

import (
	"math"
	"slices"

	"github.com/poiesic/newsdex/core"
)

// kmeans iteration count. A handful of Lloyd passes is enough for probe
// routing; exact centroids are not required.
const lloydIterations = 5

// partitionSet is an immutable inner-product partition structure. It carries
// its own vector snapshot so queries stay consistent while the authoritative
// maps change underneath.
type partitionSet struct {
	centroids [][]float32
	members   [][]core.ID
	vectors   map[core.ID][]float32
	docs      map[core.ID]core.ID
}

// buildPartitionSet clusters the snapshot into at most maxPartitions
// partitions, following nlist = min(maxPartitions, sqrt(n)).
func buildPartitionSet(vectors map[core.ID][]float32, docs map[core.ID]core.ID, maxPartitions int) *partitionSet {
	n := len(vectors)

	nlist := int(math.Sqrt(float64(n)))
	if nlist > maxPartitions {
		nlist = maxPartitions
	}
	if nlist < 1 {
		nlist = 1
	}

	// Deterministic iteration order for centroid seeding
	ids := make([]core.ID, 0, n)
	for id := range vectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// Seed centroids from evenly spaced members
	centroids := make([][]float32, nlist)
	step := n / nlist
	if step < 1 {
		step = 1
	}
	for i := 0; i < nlist; i++ {
		src := vectors[ids[(i*step)%n]]
		centroids[i] = slices.Clone(src)
	}

	assignments := make([]int, n)
	for iter := 0; iter < lloydIterations; iter++ {
		// Assign each vector to its nearest centroid by inner product
		changed := false
		for i, id := range ids {
			best := nearestCentroid(centroids, vectors[id])
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids as member means
		sums := make([][]float64, nlist)
		counts := make([]int, nlist)
		for i, id := range ids {
			p := assignments[i]
			vec := vectors[id]
			if sums[p] == nil {
				sums[p] = make([]float64, len(vec))
			}
			for j, v := range vec {
				sums[p][j] += float64(v)
			}
			counts[p]++
		}
		for p := 0; p < nlist; p++ {
			if counts[p] == 0 {
				continue // empty partition keeps its centroid
			}
			mean := make([]float32, len(sums[p]))
			for j, sum := range sums[p] {
				mean[j] = float32(sum / float64(counts[p]))
			}
			centroids[p] = mean
		}
	}

	members := make([][]core.ID, nlist)
	for i, id := range ids {
		p := assignments[i]
		members[p] = append(members[p], id)
	}

	return &partitionSet{
		centroids: centroids,
		members:   members,
		vectors:   vectors,
		docs:      docs,
	}
}

// query probes the nprobe nearest partitions and scans their members.
func (ps *partitionSet) query(vec []float32, k, nprobe int) []Hit {
	if nprobe > len(ps.centroids) {
		nprobe = len(ps.centroids)
	}

	// Rank partitions by centroid similarity
	type ranked struct {
		partition int
		score     float32
	}
	order := make([]ranked, len(ps.centroids))
	for i, c := range ps.centroids {
		order[i] = ranked{partition: i, score: dotProduct(vec, c)}
	}
	slices.SortFunc(order, func(a, b ranked) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return a.partition - b.partition
	})

	var hits []Hit
	for _, r := range order[:nprobe] {
		for _, id := range ps.members[r.partition] {
			hits = append(hits, Hit{
				ChunkID: id,
				DocID:   ps.docs[id],
				Score:   dotProduct(vec, ps.vectors[id]),
			})
		}
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// nearestCentroid returns the index of the centroid with the highest inner
// product against vec.
func nearestCentroid(centroids [][]float32, vec []float32) int {
	best := 0
	bestScore := float32(math.Inf(-1))
	for i, c := range centroids {
		if s := dotProduct(vec, c); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}
