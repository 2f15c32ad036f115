// Package ratelimit paces outbound provider calls.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"docqa/internal/domain"
)

// New returns a token bucket allowing rps calls per second, or an
// unlimited one when rps is not positive.
func New(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
}

// Wait blocks on the limiter and reports a cancelled wait as an API error
// of the given kind. A wait that would outlive the deadline is reported as
// context.DeadlineExceeded so it is not retried.
func Wait(ctx context.Context, l *rate.Limiter, kind error, provider string) error {
	err := l.Wait(ctx)
	if err == nil {
		return nil
	}
	cause := ctx.Err()
	if cause == nil {
		cause = context.DeadlineExceeded
	}
	return &domain.APIError{Kind: kind, Provider: provider, Err: fmt.Errorf("%w: %w", cause, err)}
}
