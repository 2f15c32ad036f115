// Package llm holds the options shared by the chat-completion providers.
package llm

import (
	"net/http"

	"docqa/internal/domain"
	"docqa/internal/pkg/retry"
)

const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 2048
)

type Option func(*Options)

type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Retry       retry.RetryConfig
	HTTPClient  *http.Client
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

func WithTemperature(t float32) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
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
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Retry:       retry.RetryConfig{Attempts: 1},
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// SplitSystem separates system messages from the conversation. Multiple
// system messages are joined with a blank line.
func SplitSystem(messages []domain.Message) (string, []domain.Message) {
	var system string
	rest := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != domain.RoleSystem {
			rest = append(rest, m)
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += m.Content
	}
	return system, rest
}
