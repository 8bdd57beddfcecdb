package vector

import "slices"

// dotProduct computes the inner product of two equal-length vectors.
// Embeddings are normalized, so this equals cosine similarity.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// sortHits orders hits by descending score with ascending chunk id as
// tie-break, so equal-scored results are deterministic.
func sortHits(hits []Hit) {
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
}
