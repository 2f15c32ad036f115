// Package vectorstore holds the ranking rules shared by the vector index
// implementations.
package vectorstore

import (
	"math"
	"sort"

	"docqa/internal/domain"
)

// DefaultTopK is used when a search asks for k <= 0.
const DefaultTopK = 4

// Normalize returns an L2-normalized copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	n := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Dot is the dot product of two vectors of equal length.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Rank sorts results by score descending, ties by chunk index ascending,
// and keeps the first k (DefaultTopK when k <= 0).
func Rank(results []domain.SearchResult, k int) []domain.SearchResult {
	if k <= 0 {
		k = DefaultTopK
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}
