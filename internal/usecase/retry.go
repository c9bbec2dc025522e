package usecase

import (
	"context"
	"time"
)

// RetryPolicy retries an operation with exponentially increasing backoff.
// MaxRetries counts additional attempts beyond the first.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Backoff      float64
}

// DefaultRetryPolicy matches the generation retry behavior: up to two
// retries, starting at one second and growing by 1.5x.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Second,
		Backoff:      1.5,
	}
}

// Do runs op until it succeeds or attempts are exhausted, sleeping between
// attempts. The backoff sleep is context-aware; a canceled context returns
// ctx.Err immediately.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	delay := p.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := op(); err != nil {
			lastErr = err
			if attempt == p.MaxRetries {
				break
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * p.Backoff)
			continue
		}
		return nil
	}

	return lastErr
}
