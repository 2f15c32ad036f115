package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Transient(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  *APIError
		want bool
	}{
		{"rate limited", &APIError{Kind: ErrEmbeddingAPI, StatusCode: http.StatusTooManyRequests, Err: cause}, true},
		{"server error", &APIError{Kind: ErrEmbeddingAPI, StatusCode: http.StatusBadGateway, Err: cause}, true},
		{"network", &APIError{Kind: ErrCompletionAPI, Err: cause}, true},
		{"unauthorized", &APIError{Kind: ErrCompletionAPI, StatusCode: http.StatusUnauthorized, Err: cause}, false},
		{"bad request", &APIError{Kind: ErrCompletionAPI, StatusCode: http.StatusBadRequest}, false},
		{"canceled", &APIError{Kind: ErrEmbeddingAPI, Err: context.Canceled}, false},
		{"deadline", &APIError{Kind: ErrEmbeddingAPI, Err: fmt.Errorf("wait: %w", context.DeadlineExceeded)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Transient())
			assert.Equal(t, tt.want, IsTransient(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
	assert.False(t, IsTransient(cause))
}

func TestAPIError_Matching(t *testing.T) {
	cause := errors.New("invalid key")
	err := fmt.Errorf("embed: %w", &APIError{Kind: ErrEmbeddingAPI, Provider: "openai", StatusCode: 401, Err: cause})

	assert.ErrorIs(t, err, ErrEmbeddingAPI)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrCompletionAPI)
	assert.Equal(t, "embed: openai: embedding api error (status 401): invalid key", err.Error())

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestFetchError(t *testing.T) {
	err := &FetchError{URL: "http://x/doc", StatusCode: 404}
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, "fetch http://x/doc: status 404", err.Error())

	netErr := &FetchError{URL: "http://x/doc", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, netErr, ErrFetch)
	assert.ErrorIs(t, netErr, context.DeadlineExceeded)
}
