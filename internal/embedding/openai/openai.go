package openai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/openaicompat"
	"docqa/internal/pkg/ratelimit"
	"docqa/internal/pkg/retry"
)

const provider = "openai"

// Embedder calls an OpenAI-compatible /embeddings endpoint. The vector
// dimension is learned from the first response and fixed afterwards.
type Embedder struct {
	options embedding.Options
	client  *openai.Client
	limiter *rate.Limiter

	mu        sync.Mutex
	dimension int
}

// NewEmbedder creates an embeddings client using the provided options.
func NewEmbedder(opts ...embedding.Option) (*Embedder, error) {
	options := embedding.NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("openai embedder: missing API key")
	}
	if options.Model == "" {
		return nil, errors.New("openai embedder: missing model")
	}
	return &Embedder{
		options: options,
		client:  openaicompat.NewClient(options.APIKey, options.BaseURL, options.HTTPClient),
		limiter: ratelimit.New(options.RequestsPerSecond),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return provider + ":" + e.options.Model }

// Prepare is a no-op for hosted models.
func (e *Embedder) Prepare(context.Context, []string) error { return nil }

// Dimension returns the vector size, or 0 before the first call.
func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// EmbedDocuments embeds texts in batches; vector i belongs to texts[i].
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

// EmbedQuery embeds a single question.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var rsp openai.EmbeddingResponse
	err := retry.Do(ctx, e.options.Retry, domain.IsTransient, func() error {
		if err := ratelimit.Wait(ctx, e.limiter, domain.ErrEmbeddingAPI, provider); err != nil {
			return err
		}
		r, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.options.Model),
		})
		if err != nil {
			return openaicompat.APIError(domain.ErrEmbeddingAPI, provider, err)
		}
		rsp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(rsp.Data) != len(batch) {
		return nil, e.malformed(fmt.Errorf("got %d embeddings for %d inputs", len(rsp.Data), len(batch)))
	}
	out := make([][]float32, len(batch))
	for _, d := range rsp.Data {
		if d.Index < 0 || d.Index >= len(batch) || out[d.Index] != nil {
			return nil, e.malformed(fmt.Errorf("unexpected embedding index %d", d.Index))
		}
		if len(d.Embedding) == 0 {
			return nil, e.malformed(fmt.Errorf("empty embedding at index %d", d.Index))
		}
		if err := e.checkDimension(len(d.Embedding)); err != nil {
			return nil, err
		}
		out[d.Index] = d.Embedding
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
