// Package embedding holds the options shared by the embedder providers.
package embedding

import (
	"net/http"

	"docqa/internal/pkg/retry"
)

type Option func(*Options)

type Options struct {
	APIKey            string
	Model             string
	BaseURL           string
	BatchSize         int
	RequestsPerSecond float64
	Retry             retry.RetryConfig
	HTTPClient        *http.Client
}

func WithAPIKey(apiKey string) Option {
	return func(o *Options) {
		o.APIKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithBatchSize caps the number of texts sent in one API call.
func WithBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

// WithRateLimit paces outbound calls. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(o *Options) {
		o.RequestsPerSecond = rps
	}
}

func WithRetry(rc retry.RetryConfig) Option {
	return func(o *Options) {
		o.Retry = rc
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		BatchSize: 32,
		Retry:     retry.RetryConfig{Attempts: 1},
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
