package openai

import (
	"context"
	"errors"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/llm"
	"docqa/internal/openaicompat"
	"docqa/internal/pkg/retry"
)

const provider = "openai"

// ChatModel calls an OpenAI-compatible /chat/completions endpoint.
type ChatModel struct {
	options llm.Options
	client  *openai.Client
}

func NewChatModel(opts ...llm.Option) (*ChatModel, error) {
	options := llm.NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("openai chat: missing API key")
	}
	if options.Model == "" {
		return nil, errors.New("openai chat: missing model")
	}
	return &ChatModel{
		options: options,
		client:  openaicompat.NewClient(options.APIKey, options.BaseURL, options.HTTPClient),
	}, nil
}

func (m *ChatModel) Name() string { return provider + ":" + m.options.Model }

// Complete sends the conversation and returns the first choice verbatim.
func (m *ChatModel) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.options.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: m.options.Temperature,
		MaxTokens:   m.options.MaxTokens,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content})
	}

	var rsp openai.ChatCompletionResponse
	err := retry.Do(ctx, m.options.Retry, domain.IsTransient, func() error {
		r, err := m.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return openaicompat.APIError(domain.ErrCompletionAPI, provider, err)
		}
		rsp = r
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(rsp.Choices) == 0 {
		return "", &domain.APIError{Kind: domain.ErrCompletionAPI, Provider: provider, Err: errors.New("no choices in response")}
	}
	ctxzap.Debug(ctx, "chat completion",
		zap.String("model", m.options.Model),
		zap.Int("prompt_tokens", rsp.Usage.PromptTokens),
		zap.Int("completion_tokens", rsp.Usage.CompletionTokens),
	)
	return rsp.Choices[0].Message.Content, nil
}
