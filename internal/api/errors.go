package api

import (
	"errors"
	"net/http"

	"docqa/internal/domain"
)

var errBadRequest = errors.New("bad request")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtraction), errors.Is(err, domain.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRetrievalEmpty), errors.Is(err, domain.ErrEmptyIndex):
		return http.StatusConflict
	case errors.Is(err, domain.ErrFetch), errors.Is(err, domain.ErrEmbeddingAPI), errors.Is(err, domain.ErrCompletionAPI):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
