// Package service orchestrates ingestion and question answering for a
// session: one document, its vector index and the conversation about it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/pkg/logger"
)

const previewRunes = 500

// Components are the ports a session drives. Summarizer may be nil.
type Components struct {
	Loader     domain.Loader
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Store      domain.VectorStore
	Chat       domain.ChatModel
	Summarizer domain.Summarizer
}

// Config tunes retrieval and prompting.
type Config struct {
	TopK             int
	HistoryTurns     int
	SummarySentences int
}

// Session is one document plus its index and conversation. Operations on
// a session are serialized.
type Session struct {
	c   Components
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	ready bool
	doc   *domain.Document
	turns []domain.Turn
}

func NewSession(c Components, cfg Config) *Session {
	return &Session{c: c, cfg: cfg, now: time.Now}
}

// Ingest replaces the session's document. The previous index and
// conversation are discarded before loading, so a failed ingest leaves the
// session empty and not ready.
func (s *Session) Ingest(ctx context.Context, src domain.Source) (domain.IngestReport, error) {
	ctx = logger.WithAction(ctx, "ingest")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reset(ctx); err != nil {
		return domain.IngestReport{}, err
	}

	doc, err := s.c.Loader.Load(ctx, src)
	if err != nil {
		return domain.IngestReport{}, err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return domain.IngestReport{}, fmt.Errorf("%w: %s", domain.ErrNoContent, doc.Name)
	}

	chunks, err := s.c.Chunker.Chunk(doc)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("chunk %s: %w", doc.Name, err)
	}
	if len(chunks) == 0 {
		return domain.IngestReport{}, fmt.Errorf("%w: %s", domain.ErrNoContent, doc.Name)
	}

	if err := s.index(ctx, chunks); err != nil {
		return domain.IngestReport{}, err
	}

	s.doc = &doc
	s.ready = true
	report := s.report(ctx, doc, len(chunks))
	ctxzap.Info(ctx, "document indexed",
		zap.String("document_id", doc.ID),
		zap.String("format", doc.Format),
		zap.Int("characters", report.Characters),
		zap.Int("chunks", len(chunks)),
	)
	return report, nil
}

func (s *Session) index(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := s.c.Embedder.Prepare(ctx, texts); err != nil {
		return err
	}
	vectors, err := s.c.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return s.embeddingError(fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	if err := s.c.Store.Init(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	if err := s.c.Store.Upsert(ctx, chunks, vectors); err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return s.embeddingError(err)
		}
		return fmt.Errorf("build index: %w", err)
	}
	return nil
}

func (s *Session) report(ctx context.Context, doc domain.Document, chunks int) domain.IngestReport {
	report := domain.IngestReport{
		DocumentID: doc.ID,
		Name:       doc.Name,
		Format:     doc.Format,
		Sections:   doc.Sections,
		Characters: utf8.RuneCountInString(doc.Content),
		Chunks:     chunks,
		Preview:    preview(doc.Content, previewRunes),
		Embedder:   s.c.Embedder.Name(),
	}
	if s.c.Summarizer != nil {
		summary, err := s.c.Summarizer.Summarize(doc.Content, s.cfg.SummarySentences)
		if err != nil {
			ctxzap.Warn(ctx, "summary failed", zap.Error(err))
		}
		report.Summary = summary
	}
	return report
}

// Ask answers a question from the indexed document. A failed call records
// no turn.
func (s *Session) Ask(ctx context.Context, question string) (domain.Answer, error) {
	ctx = logger.WithAction(ctx, "ask")
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return domain.Answer{}, domain.ErrRetrievalEmpty
	}

	vector, err := s.c.Embedder.EmbedQuery(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}
	results, err := s.c.Store.Search(ctx, vector, s.cfg.TopK)
	switch {
	case errors.Is(err, domain.ErrDimensionMismatch):
		return domain.Answer{}, s.embeddingError(err)
	case errors.Is(err, domain.ErrEmptyIndex):
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrRetrievalEmpty, err)
	case err != nil:
		return domain.Answer{}, fmt.Errorf("search index: %w", err)
	case len(results) == 0:
		return domain.Answer{}, domain.ErrRetrievalEmpty
	}

	messages := BuildMessages(question, results, s.turns, s.cfg.HistoryTurns)
	text, err := s.c.Chat.Complete(ctx, messages)
	if err != nil {
		return domain.Answer{}, err
	}

	s.turns = append(s.turns, domain.Turn{Question: question, Answer: text, Sources: results, AskedAt: s.now()})
	ctxzap.Info(ctx, "question answered",
		zap.Int("sources", len(results)),
		zap.Float64("top_score", results[0].Score),
		zap.Int("turn", len(s.turns)),
	)
	return domain.Answer{Text: text, Sources: results}, nil
}

// History returns a copy of the conversation turns, oldest first.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.turns...)
}

// Document returns the indexed document, if any.
func (s *Session) Document() (domain.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return domain.Document{}, false
	}
	return *s.doc, true
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Reset discards the document, index and conversation.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(ctx)
}

func (s *Session) reset(ctx context.Context) error {
	s.ready = false
	s.doc = nil
	s.turns = nil
	if err := s.c.Store.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}

func (s *Session) embeddingError(err error) error {
	return &domain.APIError{Kind: domain.ErrEmbeddingAPI, Provider: s.c.Embedder.Name(), Err: err}
}

func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
