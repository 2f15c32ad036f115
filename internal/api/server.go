package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"docqa/internal/api/middleware"
)

// SetupRouter creates and configures the HTTP router.
func SetupRouter(h *Handler, logger *zap.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	if timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes registers session routes.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Delete("/{id}", h.DeleteSession)
		r.Post("/{id}/documents", h.IngestDocument)
		r.Post("/{id}/questions", h.AskQuestion)
		r.Get("/{id}/history", h.History)
		r.Get("/{id}/transcript", h.Transcript)
	})
}
