// Package genaicompat builds Gemini clients and decodes their errors.
package genaicompat

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	genaiopt "google.golang.org/api/option"

	"docqa/internal/domain"
)

// NewClient returns a Gemini client authenticated with apiKey. A non-empty
// endpoint overrides the public API host.
func NewClient(ctx context.Context, apiKey, endpoint string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("google: missing API key")
	}
	opts := []genaiopt.ClientOption{genaiopt.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, genaiopt.WithEndpoint(endpoint))
	}
	return genai.NewClient(ctx, opts...)
}

// StatusCode extracts the HTTP status from a Google API error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// APIError wraps err as a domain error of the given kind.
func APIError(kind error, provider string, err error) *domain.APIError {
	return &domain.APIError{Kind: kind, Provider: provider, StatusCode: StatusCode(err), Err: err}
}
