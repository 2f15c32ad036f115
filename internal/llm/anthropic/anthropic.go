package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/llm"
	"docqa/internal/pkg/retry"
)

const provider = "anthropic"

// ChatModel calls the Anthropic Messages API. System messages are sent in
// the top-level system field.
type ChatModel struct {
	options llm.Options
	client  anthropic.Client
}

func NewChatModel(opts ...llm.Option) (*ChatModel, error) {
	options := llm.NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("anthropic chat: missing API key")
	}
	if options.Model == "" {
		return nil, errors.New("anthropic chat: missing model")
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.APIKey),
		// retries are driven by options.Retry
		anthropicopt.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}
	if options.HTTPClient != nil {
		clientOpts = append(clientOpts, anthropicopt.WithHTTPClient(options.HTTPClient))
	}
	return &ChatModel{
		options: options,
		client:  anthropic.NewClient(clientOpts...),
	}, nil
}

func (m *ChatModel) Name() string { return provider + ":" + m.options.Model }

func (m *ChatModel) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	req, err := m.params(messages)
	if err != nil {
		return "", err
	}

	var rsp *anthropic.Message
	err = retry.Do(ctx, m.options.Retry, domain.IsTransient, func() error {
		r, err := m.client.Messages.New(ctx, req)
		if err != nil {
			return &domain.APIError{Kind: domain.ErrCompletionAPI, Provider: provider, StatusCode: statusCode(err), Err: err}
		}
		rsp = r
		return nil
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return "", &domain.APIError{Kind: domain.ErrCompletionAPI, Provider: provider, Err: errors.New("no text in response")}
	}
	ctxzap.Debug(ctx, "chat completion",
		zap.String("model", m.options.Model),
		zap.Int64("input_tokens", rsp.Usage.InputTokens),
		zap.Int64("output_tokens", rsp.Usage.OutputTokens),
	)
	return b.String(), nil
}

func (m *ChatModel) params(messages []domain.Message) (anthropic.MessageNewParams, error) {
	system, conversation := llm.SplitSystem(messages)
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.options.Model),
		MaxTokens:   int64(m.options.MaxTokens),
		Temperature: anthropic.Float(float64(m.options.Temperature)),
		Messages:    make([]anthropic.MessageParam, 0, len(conversation)),
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, msg := range conversation {
		block := anthropic.NewTextBlock(msg.Content)
		switch msg.Role {
		case domain.RoleUser:
			req.Messages = append(req.Messages, anthropic.NewUserMessage(block))
		case domain.RoleAssistant:
			req.Messages = append(req.Messages, anthropic.NewAssistantMessage(block))
		default:
			return req, &domain.APIError{Kind: domain.ErrCompletionAPI, Provider: provider, Err: fmt.Errorf("unsupported role %q", msg.Role)}
		}
	}
	return req, nil
}

func statusCode(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
