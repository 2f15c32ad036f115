// Package builder assembles sessions, the HTTP app and the chat UI from
// the application config.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	googleembed "docqa/internal/embedding/google"
	openaiembed "docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/llm"
	"docqa/internal/llm/anthropic"
	googlellm "docqa/internal/llm/google"
	openaillm "docqa/internal/llm/openai"
	"docqa/internal/loader"
	"docqa/internal/pkg/httpclient"
	"docqa/internal/service"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

// Sessions builds session components. Stateless parts are shared; the
// vector store and, for tfidf, the embedder are created per session.
type Sessions struct {
	cfg     *config.AppConfig
	logger  *zap.Logger
	loader  domain.Loader
	chunker domain.Chunker
	chat    domain.ChatModel
	summary domain.Summarizer
	shared  domain.Embedder
	closers []io.Closer
}

// NewSessions wires the providers selected in cfg.
func NewSessions(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Sessions, error) {
	s := &Sessions{
		cfg:    cfg,
		logger: logger,
		loader: loader.New(loader.Config{
			FetchTimeout: cfg.Loader.FetchTimeout(),
			MaxBytes:     cfg.Loader.MaxBytes,
			UserAgent:    cfg.Loader.UserAgent,
		}),
		chunker: chunker.New(
			chunker.WithChunkSize(cfg.Chunker.Size),
			chunker.WithOverlap(cfg.Chunker.Overlap),
		),
		summary: summarizer.NewFrequency(),
	}

	chat, err := s.newChat(ctx)
	if err != nil {
		return nil, err
	}
	s.chat = chat

	if cfg.Embedder.Type != "tfidf" {
		emb, err := s.newHostedEmbedder(ctx)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.shared = emb
	}
	logger.Info("components ready",
		zap.String("embedder", cfg.Embedder.Type),
		zap.String("chat", chat.Name()),
		zap.String("vector_store", cfg.VectorStore.Type))
	return s, nil
}

// New assembles a session; id names its vector collection.
func (s *Sessions) New(id string) (*service.Session, error) {
	emb := s.shared
	if emb == nil {
		emb = tfidf.NewEmbedder()
	}
	var store domain.VectorStore
	switch s.cfg.VectorStore.Type {
	case "memory":
		store = memory.NewStorage()
	case "qdrant":
		q := s.cfg.VectorStore.Qdrant
		store = qdrant.NewStorage(qdrant.Config{
			URL:              q.URL,
			APIKey:           q.APIKey(),
			CollectionPrefix: q.CollectionPrefix,
			Timeout:          q.Timeout(),
		}, id)
	default:
		return nil, fmt.Errorf("unknown vector store: %s", s.cfg.VectorStore.Type)
	}
	return service.NewSession(service.Components{
		Loader:     s.loader,
		Chunker:    s.chunker,
		Embedder:   emb,
		Store:      store,
		Chat:       s.chat,
		Summarizer: s.summary,
	}, service.Config{
		TopK:             s.cfg.Retrieval.TopK,
		HistoryTurns:     *s.cfg.Chat.HistoryTurns,
		SummarySentences: s.cfg.Summarizer.MaxSentences,
	}), nil
}

// Close releases provider clients.
func (s *Sessions) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (s *Sessions) newHostedEmbedder(ctx context.Context) (domain.Embedder, error) {
	e := s.cfg.Embedder
	opts := []embedding.Option{
		embedding.WithAPIKey(e.APIKey()),
		embedding.WithModel(e.Model),
		embedding.WithBaseURL(e.BaseURL),
		embedding.WithBatchSize(e.BatchSize),
		embedding.WithRateLimit(e.RequestsPerSecond),
		embedding.WithRetry(e.Retry),
	}
	switch e.Type {
	case "openai":
		opts = append(opts, embedding.WithHTTPClient(s.httpClient(e.Timeout())))
		return openaiembed.NewEmbedder(opts...)
	case "google":
		emb, err := googleembed.NewEmbedder(ctx, opts...)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, emb)
		return emb, nil
	}
	return nil, fmt.Errorf("unknown embedder: %s", e.Type)
}

func (s *Sessions) newChat(ctx context.Context) (domain.ChatModel, error) {
	c := s.cfg.Chat
	opts := []llm.Option{
		llm.WithAPIKey(c.APIKey()),
		llm.WithModel(c.Model),
		llm.WithBaseURL(c.BaseURL),
		llm.WithMaxTokens(c.MaxTokens),
		llm.WithRetry(c.Retry),
	}
	if c.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*c.Temperature))
	}
	switch c.Type {
	case "openai":
		return openaillm.NewChatModel(append(opts, llm.WithHTTPClient(s.httpClient(c.Timeout())))...)
	case "anthropic":
		return anthropic.NewChatModel(append(opts, llm.WithHTTPClient(s.httpClient(c.Timeout())))...)
	case "google":
		m, err := googlellm.NewChatModel(ctx, opts...)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, m)
		return m, nil
	}
	return nil, fmt.Errorf("unknown chat model: %s", c.Type)
}

func (s *Sessions) httpClient(timeout time.Duration) *http.Client {
	return httpclient.New(
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithRequestLogging(),
	)
}
