package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"docqa/internal/domain"
	"docqa/internal/genaicompat"
	"docqa/internal/llm"
	"docqa/internal/pkg/retry"
)

const provider = "google"

// ChatModel calls Gemini. The system message becomes the system
// instruction and earlier turns become chat history.
type ChatModel struct {
	options llm.Options
	client  *genai.Client
}

func NewChatModel(ctx context.Context, opts ...llm.Option) (*ChatModel, error) {
	options := llm.NewOptions(opts...)
	if options.Model == "" {
		return nil, errors.New("google chat: missing model")
	}
	client, err := genaicompat.NewClient(ctx, options.APIKey, options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("google chat: %w", err)
	}
	return &ChatModel{options: options, client: client}, nil
}

func (m *ChatModel) Name() string { return provider + ":" + m.options.Model }

func (m *ChatModel) Close() error { return m.client.Close() }

func (m *ChatModel) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	system, history, last, err := contents(messages)
	if err != nil {
		return "", err
	}

	model := m.client.GenerativeModel(m.options.Model)
	model.SetTemperature(m.options.Temperature)
	model.SetMaxOutputTokens(int32(m.options.MaxTokens))
	model.SystemInstruction = system

	var rsp *genai.GenerateContentResponse
	err = retry.Do(ctx, m.options.Retry, domain.IsTransient, func() error {
		cs := model.StartChat()
		cs.History = history
		r, err := cs.SendMessage(ctx, last)
		if err != nil {
			return genaicompat.APIError(domain.ErrCompletionAPI, provider, err)
		}
		rsp = r
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", &domain.APIError{Kind: domain.ErrCompletionAPI, Provider: provider, Err: errors.New("no response from Google")}
	}
	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// contents maps messages onto Gemini's chat model: the final message must
// come from the user and is sent; everything before it is history.
func contents(messages []domain.Message) (*genai.Content, []*genai.Content, genai.Text, error) {
	systemText, conversation := llm.SplitSystem(messages)
	if len(conversation) == 0 || conversation[len(conversation)-1].Role != domain.RoleUser {
		return nil, nil, "", &domain.APIError{Kind: domain.ErrCompletionAPI, Provider: provider, Err: errors.New("conversation must end with a user message")}
	}

	var system *genai.Content
	if systemText != "" {
		system = &genai.Content{Parts: []genai.Part{genai.Text(systemText)}}
	}
	history := make([]*genai.Content, 0, len(conversation)-1)
	for _, msg := range conversation[:len(conversation)-1] {
		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return system, history, genai.Text(conversation[len(conversation)-1].Content), nil
}
