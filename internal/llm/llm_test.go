package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/domain"
)

func TestNewOptions_Defaults(t *testing.T) {
	o := NewOptions(WithModel("m"), WithMaxTokens(0))
	assert.Equal(t, "m", o.Model)
	assert.Equal(t, DefaultTemperature, o.Temperature)
	assert.Equal(t, DefaultMaxTokens, o.MaxTokens)
	assert.Equal(t, uint(1), o.Retry.Attempts)

	o = NewOptions(WithTemperature(0), WithMaxTokens(16))
	assert.Zero(t, o.Temperature)
	assert.Equal(t, 16, o.MaxTokens)
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]domain.Message{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleSystem, Content: "cite the context"},
		{Role: domain.RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "be brief\n\ncite the context", system)
	assert.Equal(t, []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
	}, rest)
}
