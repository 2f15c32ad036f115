package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/domain"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Dot(v, v), 1e-6)

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))

	in := []float32{1, 1}
	_ = Normalize(in)
	assert.Equal(t, []float32{1, 1}, in, "input is not modified")
}

func TestRank(t *testing.T) {
	res := func(idx int, score float64) domain.SearchResult {
		return domain.SearchResult{Chunk: domain.Chunk{Index: idx}, Score: score}
	}
	tests := []struct {
		name string
		in   []domain.SearchResult
		k    int
		want []int
	}{
		{"descending", []domain.SearchResult{res(0, 0.1), res(1, 0.9), res(2, 0.5)}, 3, []int{1, 2, 0}},
		{"ties by index", []domain.SearchResult{res(2, 0.5), res(0, 0.5), res(1, 0.5)}, 2, []int{0, 1}},
		{"default k", []domain.SearchResult{res(0, 1), res(1, 1), res(2, 1), res(3, 1), res(4, 1)}, 0, []int{0, 1, 2, 3}},
		{"k above n", []domain.SearchResult{res(0, 0.2), res(1, 0.3)}, 10, []int{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.in, tt.k)
			idx := make([]int, len(got))
			for i, r := range got {
				idx[i] = r.Chunk.Index
			}
			assert.Equal(t, tt.want, idx)
		})
	}
}
