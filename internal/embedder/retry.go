package embedder

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryConfig configures exponential backoff for provider calls. MaxRetries
// counts attempts, not re-tries: 3 means at most three requests.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64 // fraction of each delay randomized, 0 disables
}

// DefaultRetryConfig returns the provider defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
		Jitter:     0.2,
	}
}

// permanentError marks a failure that another attempt cannot fix: bad
// requests, auth failures, malformed responses.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// retryWithBackoff calls fn until it succeeds, fails permanently, runs out of
// attempts or ctx ends. The permanent wrapper is removed from the returned
// error.
func retryWithBackoff[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxRetries, 1)
	delay := cfg.BaseDelay

	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return zero, pe.err
		}
		if attempt >= attempts {
			return zero, err
		}

		timer := time.NewTimer(withJitter(delay, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

func withJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * fraction
	return time.Duration(float64(d) - spread + rand.Float64()*2*spread)
}
