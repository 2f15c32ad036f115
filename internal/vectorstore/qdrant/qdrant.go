package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/pkg/httpclient"
	"docqa/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant. Each session owns one
// collection with cosine distance; Init recreates it and Clear drops it.
type Storage struct {
	conn       *httpclient.Connector
	collection string

	mu        sync.RWMutex
	dimension int
	points    int
}

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
	HTTPClient       *http.Client
}

// NewStorage returns a store for the collection "<prefix>-<session>".
func NewStorage(cfg Config, session string) *Storage {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = httpclient.New(
			httpclient.WithRequestTimeout(timeout),
			httpclient.WithHeader("api-key", cfg.APIKey),
			httpclient.WithRequestLogging(),
		)
	}
	collection := session
	if cfg.CollectionPrefix != "" {
		collection = cfg.CollectionPrefix + "-" + session
	}
	return &Storage{
		conn:       httpclient.NewConnector(cfg.URL, client),
		collection: collection,
	}
}

// Collection returns the Qdrant collection name.
func (s *Storage) Collection() string { return s.collection }

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollection struct {
	Vectors vectorParams `json:"vectors"`
}

type payload struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	Index      int    `json:"index"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type upsertPoints struct {
	Points []point `json:"points"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload payload `json:"payload"`
	} `json:"result"`
}

func (s *Storage) path(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

// Init recreates the collection with the given dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", dimension)
	}
	if err := s.drop(ctx); err != nil {
		return err
	}
	body := createCollection{Vectors: vectorParams{Size: dimension, Distance: "Cosine"}}
	if err := s.conn.DoJSON(ctx, http.MethodPut, s.path(""), body, nil); err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
	}
	s.mu.Lock()
	s.dimension = dimension
	s.points = 0
	s.mu.Unlock()
	ctxzap.Debug(ctx, "qdrant collection created", zap.String("collection", s.collection), zap.Int("dimension", dimension))
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("qdrant: chunks and vectors length mismatch")
	}
	s.mu.RLock()
	dimension := s.dimension
	s.mu.RUnlock()
	if dimension == 0 {
		return fmt.Errorf("qdrant: %w", domain.ErrEmptyIndex)
	}

	points := make([]point, len(chunks))
	for i, ch := range chunks {
		if len(vectors[i]) != dimension {
			return fmt.Errorf("qdrant: %w: got %d, want %d", domain.ErrDimensionMismatch, len(vectors[i]), dimension)
		}
		points[i] = point{
			ID:     PointID(ch.ChunkID),
			Vector: vectorstore.Normalize(vectors[i]),
			Payload: payload{
				DocumentID: ch.DocumentID,
				ChunkID:    ch.ChunkID,
				Index:      ch.Index,
				Start:      ch.Start,
				End:        ch.End,
				Text:       ch.Text,
			},
		}
	}
	if err := s.conn.DoJSON(ctx, http.MethodPut, s.path("/points?wait=true"), upsertPoints{Points: points}, nil); err != nil {
		return fmt.Errorf("qdrant: upsert: %w", err)
	}
	s.mu.Lock()
	s.points += len(points)
	s.mu.Unlock()
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	dimension, points := s.dimension, s.points
	s.mu.RUnlock()
	if points == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(vector) != dimension {
		return nil, fmt.Errorf("qdrant: %w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), dimension)
	}
	if k <= 0 {
		k = vectorstore.DefaultTopK
	}

	req := searchRequest{Vector: vectorstore.Normalize(vector), Limit: k, WithPayload: true}
	var rsp searchResponse
	if err := s.conn.DoJSON(ctx, http.MethodPost, s.path("/points/search"), req, &rsp); err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, domain.ErrEmptyIndex
		}
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(rsp.Result))
	for _, r := range rsp.Result {
		p := r.Payload
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				DocumentID: p.DocumentID,
				ChunkID:    p.ChunkID,
				Index:      p.Index,
				Start:      p.Start,
				End:        p.End,
				Text:       p.Text,
			},
			Score: r.Score,
		})
	}
	return vectorstore.Rank(results, k), nil
}

// Clear drops the collection.
func (s *Storage) Clear(ctx context.Context) error {
	if err := s.drop(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.dimension = 0
	s.points = 0
	s.mu.Unlock()
	return nil
}

func (s *Storage) drop(ctx context.Context) error {
	err := s.conn.DoJSON(ctx, http.MethodDelete, s.path(""), nil, nil)
	var httpErr *httpclient.HTTPError
	if err != nil && !(errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound) {
		return fmt.Errorf("qdrant: drop collection %s: %w", s.collection, err)
	}
	return nil
}

// PointID maps a chunk ID onto the UUID form Qdrant requires.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docqa:"+chunkID)).String()
}
