package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// RetryPolicy configures exponential backoff: BaseDelay, doubling, up to
// MaxAttempts total attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns the policy used for Drive calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Retry runs fn until it succeeds, attempts are exhausted or ctx is done.
// The returned error wraps the last failure. Configuration errors are
// returned after the first attempt since retrying cannot fix them.
func Retry[T any](ctx context.Context, policy RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.normalized()

	var zero T
	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrNotConfigured) {
			return zero, fmt.Errorf("%s: %w", op, err)
		}

		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, policy.MaxAttempts, lastErr)
}
