package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/pkg/retry"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// fakeServer answers each input with [len(text), position, 1], listing the
// items in reverse order to exercise index-based reordering.
func fakeServer(t *testing.T, calls *atomic.Int32, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		items := make([]embeddingItem, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dim)
			vec[0] = float32(len(req.Input[i]))
			if dim > 1 {
				vec[1] = float32(i)
			}
			items = append(items, embeddingItem{Object: "embedding", Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": items, "model": req.Model})
	}))
}

func newTestEmbedder(t *testing.T, url string, opts ...embedding.Option) *Embedder {
	t.Helper()
	base := []embedding.Option{
		embedding.WithAPIKey("test-key"),
		embedding.WithModel("test-model"),
		embedding.WithBaseURL(url),
	}
	e, err := NewEmbedder(append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func TestEmbedDocuments_BatchesAndKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	srv := fakeServer(t, &calls, 3)
	defer srv.Close()
	e := newTestEmbedder(t, srv.URL, embedding.WithBatchSize(2))

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v[0], "vector %d out of order", i)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, e.Dimension())
	assert.Equal(t, "openai:test-model", e.Name())
}

func TestEmbedQuery_DimensionStable(t *testing.T) {
	var calls atomic.Int32
	srv := fakeServer(t, &calls, 4)
	defer srv.Close()
	e := newTestEmbedder(t, srv.URL)

	a, err := e.EmbedQuery(context.Background(), "what is the boiling point?")
	require.NoError(t, err)
	b, err := e.EmbedQuery(context.Background(), "what is the boiling point?")
	require.NoError(t, err)
	assert.Len(t, a, 4)
	assert.Len(t, b, len(a))
}

func TestEmbed_AuthFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()
	e := newTestEmbedder(t, srv.URL, embedding.WithRetry(retry.RetryConfig{Attempts: 3, DelayMS: 1, MaxDelayMS: 2}))

	_, err := e.EmbedDocuments(context.Background(), []string{"x"})
	require.ErrorIs(t, err, domain.ErrEmbeddingAPI)
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "auth failures are not retried")
}

func TestEmbed_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	inner := fakeServer(t, &calls, 2)
	defer inner.Close()
	var seen atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		inner.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()
	e := newTestEmbedder(t, srv.URL, embedding.WithRetry(retry.RetryConfig{Attempts: 3, DelayMS: 1, MaxDelayMS: 2}))

	vecs, err := e.EmbedDocuments(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Equal(t, int32(2), seen.Load())
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[1,2],"index":0}]}`))
	}))
	defer srv.Close()
	e := newTestEmbedder(t, srv.URL)

	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingAPI)
}

func TestEmbed_DimensionChangeRejected(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if n.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[1,2,3],"index":0}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[1,2],"index":0}]}`))
	}))
	defer srv.Close()
	e := newTestEmbedder(t, srv.URL)

	_, err := e.EmbedQuery(context.Background(), "first")
	require.NoError(t, err)
	_, err = e.EmbedQuery(context.Background(), "second")
	assert.ErrorIs(t, err, domain.ErrEmbeddingAPI)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestNewEmbedder_RequiresKey(t *testing.T) {
	_, err := NewEmbedder(embedding.WithModel("m"))
	assert.Error(t, err)
}

func TestEmbed_DeadlineDuringBackoffKeepsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()
	e := newTestEmbedder(t, srv.URL, embedding.WithRetry(retry.RetryConfig{Attempts: 3, DelayMS: 2000, MaxDelayMS: 4000}))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := e.EmbedQuery(ctx, "hello")
	require.ErrorIs(t, err, domain.ErrEmbeddingAPI)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}
