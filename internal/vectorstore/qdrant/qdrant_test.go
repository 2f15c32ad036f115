package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// fakeQdrant implements the handful of REST endpoints the store uses.
type fakeQdrant struct {
	t           *testing.T
	mu          sync.Mutex
	collections map[string][]point
	dims        map[string]int
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *httptest.Server) {
	f := &fakeQdrant{t: t, collections: map[string][]point{}, dims: map[string]int{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "secret", r.Header.Get("api-key"))
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/collections/"), "/")
	name := parts[0]
	_, exists := f.collections[name]
	w.Header().Set("Content-Type", "application/json")

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		delete(f.collections, name)
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	case len(parts) == 1 && r.Method == http.MethodPut:
		var req createCollection
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(f.t, "Cosine", req.Vectors.Distance)
		f.collections[name] = nil
		f.dims[name] = req.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	case !exists:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection doesn't exist"}}`))
	case len(parts) == 2 && parts[1] == "points" && r.Method == http.MethodPut:
		var req upsertPoints
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		for _, p := range req.Points {
			_, err := uuid.Parse(p.ID)
			assert.NoError(f.t, err, "point IDs must be UUIDs")
		}
		f.collections[name] = append(f.collections[name], req.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
	case len(parts) == 3 && parts[2] == "search":
		var req searchRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		type hit struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		}
		hits := make([]hit, 0, len(f.collections[name]))
		for _, p := range f.collections[name] {
			hits = append(hits, hit{Score: vectorstore.Dot(p.Vector, req.Vector), Payload: p.Payload})
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		if len(hits) > req.Limit {
			hits = hits[:req.Limit]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": hits, "status": "ok"})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{DocumentID: "d", ChunkID: "d:0", Index: 0, Start: 0, End: 5, Text: "alpha"},
		{DocumentID: "d", ChunkID: "d:1", Index: 1, Start: 5, End: 9, Text: "beta"},
		{DocumentID: "d", ChunkID: "d:2", Index: 2, Start: 9, End: 14, Text: "gamma"},
	}
}

func TestStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeQdrant(t)
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", CollectionPrefix: "docqa"}, "abc")
	assert.Equal(t, "docqa-abc", s.Collection())

	_, err := s.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)

	require.NoError(t, s.Init(ctx, 2))
	assert.Equal(t, 2, fake.dims["docqa-abc"])
	require.NoError(t, s.Upsert(ctx, testChunks(), [][]float32{{1, 0}, {0, 3}, {1, 1}}))

	res, err := s.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, testChunks()[1], res[0].Chunk)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)

	res, err = s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 3)

	_, err = s.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, s.Clear(ctx))
	_, ok := fake.collections["docqa-abc"]
	assert.False(t, ok, "Clear drops the collection")
	_, err = s.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestStorage_InitRecreates(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeQdrant(t)
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret"}, "s1")

	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, testChunks()[:1], [][]float32{{1, 0}}))
	require.NoError(t, s.Init(ctx, 3))
	assert.Empty(t, fake.collections["s1"])
	assert.Equal(t, 3, fake.dims["s1"])
}

func TestPointID(t *testing.T) {
	assert.Equal(t, PointID("d:1"), PointID("d:1"))
	assert.NotEqual(t, PointID("d:1"), PointID("d:2"))
	_, err := uuid.Parse(PointID("d:1"))
	assert.NoError(t, err)
}
