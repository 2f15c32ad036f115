package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnsupportedFormat is returned when a source has no registered extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction is returned when a parser fails or yields no text.
	ErrExtraction = errors.New("text extraction failed")
	// ErrFetch is returned when a URL cannot be retrieved.
	ErrFetch = errors.New("fetch failed")
	// ErrNoContent is returned when a document has no text to index.
	ErrNoContent = errors.New("document has no content")
	// ErrEmbeddingAPI is returned when the embedding provider fails.
	ErrEmbeddingAPI = errors.New("embedding api error")
	// ErrEmptyIndex is returned when a vector index is queried before it is built.
	ErrEmptyIndex = errors.New("vector index is empty")
	// ErrRetrievalEmpty is returned when a question is asked with nothing indexed.
	ErrRetrievalEmpty = errors.New("no document indexed")
	// ErrCompletionAPI is returned when the chat-completion provider fails.
	ErrCompletionAPI = errors.New("completion api error")

	ErrEmptyQuestion     = errors.New("question is empty")
	ErrSessionNotFound   = errors.New("session not found")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// APIError is a failed call to a hosted model provider.
// Kind is ErrEmbeddingAPI or ErrCompletionAPI.
type APIError struct {
	Kind       error
	Provider   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Kind.Error()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Transient reports whether the call may succeed if repeated: rate limits,
// server errors and transport failures.
func (e *APIError) Transient() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == 0:
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return false
}

// FetchError is a failed URL retrieval. StatusCode is 0 for transport errors.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return "fetch " + e.URL + ": failed"
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// IsTransient reports whether err wraps an APIError worth retrying.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return false
}
