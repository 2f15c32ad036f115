package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/pkg/logger"
	"docqa/internal/service"
	"docqa/internal/transcript"
)

// Sessions is the session store the handlers work against.
type Sessions interface {
	Create() (string, *service.Session, error)
	Get(id string) (*service.Session, error)
	Delete(id string) error
}

type Handler struct {
	sessions       Sessions
	maxUploadBytes int64
}

func NewHandler(sessions Sessions, maxUploadBytes int64) *Handler {
	return &Handler{sessions: sessions, maxUploadBytes: maxUploadBytes}
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateSession")
	id, _, err := h.sessions.Create()
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	ctxzap.Info(ctx, "session created", zap.String("session_id", id))
	h.respondJSON(w, http.StatusCreated, CreateSessionResponse{ID: id})
}

// DeleteSession handles DELETE /sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.sessionContext(r, "DeleteSession")
	if err := h.sessions.Delete(id); err != nil {
		h.handleError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IngestDocument handles POST /sessions/{id}/documents with either a
// multipart "file" field or a JSON DocumentRequest.
func (h *Handler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.sessionContext(r, "IngestDocument")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	src, err := h.readSource(w, r)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	report, err := s.Ingest(ctx, src)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toIngestReportDTO(report))
}

func (h *Handler) readSource(w http.ResponseWriter, r *http.Request) (domain.Source, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return domain.Source{}, fmt.Errorf("%w: multipart field \"file\": %w", errBadRequest, err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return domain.Source{}, fmt.Errorf("%w: read upload: %w", errBadRequest, err)
		}
		return domain.Source{
			Kind:     domain.SourceFile,
			Name:     header.Filename,
			MIMEType: header.Header.Get("Content-Type"),
			Data:     data,
		}, nil
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.Source{}, fmt.Errorf("%w: invalid request body: %w", errBadRequest, err)
	}
	switch {
	case strings.TrimSpace(req.URL) != "":
		return domain.Source{Kind: domain.SourceURL, URL: req.URL}, nil
	case req.Text != "":
		return domain.Source{Kind: domain.SourceText, Name: req.Name, Text: req.Text}, nil
	}
	return domain.Source{}, fmt.Errorf("%w: one of file, url or text is required", errBadRequest)
}

// AskQuestion handles POST /sessions/{id}/questions
func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.sessionContext(r, "AskQuestion")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(ctx, w, fmt.Errorf("%w: invalid request body: %w", errBadRequest, err))
		return
	}

	answer, err := s.Ask(ctx, req.Question)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, AnswerDTO{Answer: answer.Text, Sources: toSourceDTOs(answer.Sources)})
}

// History handles GET /sessions/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.sessionContext(r, "History")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toTurnDTOs(s.History()))
}

// Transcript handles GET /sessions/{id}/transcript?format=md|pdf
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.sessionContext(r, "Transcript")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	fmtr, err := transcript.New(transcript.Format(r.URL.Query().Get("format")))
	if err != nil {
		h.handleError(ctx, w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	t := transcript.Transcript{Turns: s.History()}
	if doc, ok := s.Document(); ok {
		t.Document = doc.Name
	}
	out, err := fmtr.Format(t)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", fmtr.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"transcript-%s%s\"", id, fmtr.FileExtension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) sessionContext(r *http.Request, action string) (context.Context, string) {
	id := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", id),
		zap.String("action", action),
	)
	return ctx, id
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		ctxzap.Warn(ctx, "request too large", zap.Error(err))
		h.respondJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
	} else {
		ctxzap.Info(ctx, "request rejected", zap.Int("status", status), zap.Error(err))
	}
	h.respondJSON(w, status, ErrorResponse{Error: err.Error()})
}
