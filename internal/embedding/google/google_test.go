package google

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/embedding"
)

func newTestEmbedder(t *testing.T) *Embedder {
	t.Helper()
	e, err := NewEmbedder(context.Background(),
		embedding.WithAPIKey("test-key"),
		embedding.WithModel("text-embedding-004"),
		embedding.WithBatchSize(500),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewEmbedder(t *testing.T) {
	e := newTestEmbedder(t)
	assert.Equal(t, "google:text-embedding-004", e.Name())
	assert.Equal(t, maxBatch, e.options.BatchSize)
	assert.Zero(t, e.Dimension())

	_, err := NewEmbedder(context.Background(), embedding.WithModel("m"))
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	e := newTestEmbedder(t)

	vecs, err := e.collect(&genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{
		{Values: []float32{1, 0}},
		{Values: []float32{0, 1}},
	}}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, 2, e.Dimension())

	_, err = e.collect(&genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 2, 3}}}}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = e.collect(&genai.BatchEmbedContentsResponse{}, 1)
	assert.ErrorIs(t, err, domain.ErrEmbeddingAPI)

	_, err = e.collect(nil, 1)
	assert.ErrorIs(t, err, domain.ErrEmbeddingAPI)
}
