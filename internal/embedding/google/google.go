package google

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/genaicompat"
	"docqa/internal/pkg/ratelimit"
	"docqa/internal/pkg/retry"
)

const (
	provider = "google"
	// maxBatch is the BatchEmbedContents request limit.
	maxBatch = 100
)

// Embedder calls the Gemini embedding API.
type Embedder struct {
	options embedding.Options
	client  *genai.Client
	model   *genai.EmbeddingModel
	limiter *rate.Limiter

	mu        sync.Mutex
	dimension int
}

func NewEmbedder(ctx context.Context, opts ...embedding.Option) (*Embedder, error) {
	options := embedding.NewOptions(opts...)
	if options.Model == "" {
		return nil, errors.New("google embedder: missing model")
	}
	options.BatchSize = min(options.BatchSize, maxBatch)

	client, err := genaicompat.NewClient(ctx, options.APIKey, options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("google embedder: %w", err)
	}
	return &Embedder{
		options: options,
		client:  client,
		model:   client.EmbeddingModel(options.Model),
		limiter: ratelimit.New(options.RequestsPerSecond),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return provider + ":" + e.options.Model }

func (e *Embedder) Prepare(context.Context, []string) error { return nil }

func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// Close releases the underlying client.
func (e *Embedder) Close() error { return e.client.Close() }

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.options.BatchSize {
		end := min(start+e.options.BatchSize, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	ctxzap.Debug(ctx, "embedded documents", zap.Int("count", len(texts)), zap.String("model", e.options.Model))
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var rsp *genai.BatchEmbedContentsResponse
	err := retry.Do(ctx, e.options.Retry, domain.IsTransient, func() error {
		if err := ratelimit.Wait(ctx, e.limiter, domain.ErrEmbeddingAPI, provider); err != nil {
			return err
		}
		b := e.model.NewBatch()
		for _, text := range batch {
			b.AddContent(genai.Text(text))
		}
		r, err := e.model.BatchEmbedContents(ctx, b)
		if err != nil {
			return genaicompat.APIError(domain.ErrEmbeddingAPI, provider, err)
		}
		rsp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.collect(rsp, len(batch))
}

func (e *Embedder) collect(rsp *genai.BatchEmbedContentsResponse, want int) ([][]float32, error) {
	if rsp == nil || len(rsp.Embeddings) != want {
		got := 0
		if rsp != nil {
			got = len(rsp.Embeddings)
		}
		return nil, e.malformed(fmt.Errorf("got %d embeddings for %d inputs", got, want))
	}
	out := make([][]float32, want)
	for i, emb := range rsp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, e.malformed(fmt.Errorf("empty embedding at index %d", i))
		}
		if err := e.checkDimension(len(emb.Values)); err != nil {
			return nil, err
		}
		out[i] = emb.Values
	}
	return out, nil
}

func (e *Embedder) checkDimension(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimension == 0 {
		e.dimension = n
		return nil
	}
	if n != e.dimension {
		return e.malformed(fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, n, e.dimension))
	}
	return nil
}

func (e *Embedder) malformed(err error) error {
	return &domain.APIError{Kind: domain.ErrEmbeddingAPI, Provider: provider, Err: err}
}
