// Package openaicompat builds go-openai clients for any OpenAI-compatible
// endpoint (OpenAI, Together, local gateways) and decodes their errors.
package openaicompat

import (
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// NewClient returns a client for baseURL. An empty baseURL keeps the OpenAI
// default; a nil httpClient keeps the library default.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

// StatusCode extracts the HTTP status from a go-openai error, or 0.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// APIError wraps err as a domain error of the given kind.
func APIError(kind error, provider string, err error) *domain.APIError {
	return &domain.APIError{Kind: kind, Provider: provider, StatusCode: StatusCode(err), Err: err}
}
