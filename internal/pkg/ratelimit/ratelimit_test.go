package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"docqa/internal/domain"
)

func TestNew(t *testing.T) {
	assert.Equal(t, rate.Inf, New(0).Limit())
	assert.Equal(t, rate.Limit(0.5), New(0.5).Limit())
	assert.Equal(t, 1, New(0.5).Burst())
	assert.Equal(t, 5, New(5).Burst())
}

func TestWait_Cancelled(t *testing.T) {
	l := New(0.01)
	require.NoError(t, Wait(context.Background(), l, domain.ErrEmbeddingAPI, "test"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := Wait(ctx, l, domain.ErrEmbeddingAPI, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingAPI)
	assert.False(t, domain.IsTransient(err))
}
