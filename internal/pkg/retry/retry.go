package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
	defaultMaxDelay = 8 * time.Second
)

// RetryConfig bounds how often a transient failure is retried.
// Attempts counts the first call, so 1 disables retries.
type RetryConfig struct {
	Attempts   uint `yaml:"attempts" env:"ATTEMPTS"`
	DelayMS    int  `yaml:"delay_ms" env:"DELAY_MS"`
	MaxDelayMS int  `yaml:"max_delay_ms" env:"MAX_DELAY_MS"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:   defaultAttempts,
		DelayMS:    int(defaultDelay / time.Millisecond),
		MaxDelayMS: int(defaultMaxDelay / time.Millisecond),
	}
}

func (rc RetryConfig) ToRetryOptions() []retry.Option {
	attempts := rc.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return []retry.Option{
		retry.Attempts(attempts),
		retry.Delay(time.Duration(rc.DelayMS) * time.Millisecond),
		retry.MaxDelay(time.Duration(rc.MaxDelayMS) * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
}

// Do runs fn until it succeeds, returns an error for which retryable is
// false, the attempts run out or ctx is done. The last error is returned
// unwrapped; when ctx ends during a backoff wait, the context error is
// joined with the last error of fn.
func Do(ctx context.Context, rc RetryConfig, retryable func(error) bool, fn func() error) error {
	if retryable == nil {
		retryable = retry.IsRecoverable
	}
	opts := append(rc.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Warn(ctx, "retrying call", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	var last error
	err := retry.Do(func() error {
		last = fn()
		return last
	}, opts...)
	if err != nil && last != nil && !errors.Is(err, last) {
		return fmt.Errorf("%w: %w", err, last)
	}
	return err
}
