package reddit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Retry defaults
const (
	DefaultMaxRetries = 3
	InitialBackoffMs  = 500
	MaxBackoffMs      = 8000
	BackoffMultiplier = 2.0
	JitterFraction    = 0.2

	// MaxRetryAfter caps a server-provided Retry-After hint.
	MaxRetryAfter = 30 * time.Second
)

// TransportError is returned when a remote call fails permanently or
// exhausts its retry budget. Callers treat it as zero results for the task.
type TransportError struct {
	Endpoint string
	Status   int // 0 when no HTTP response was received
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("reddit %s: status %d after %d attempt(s): %v", e.Endpoint, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("reddit %s: failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RetryConfig configures exponential backoff with jitter
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum computed delay between retries
	Multiplier float64       // Exponential backoff multiplier
	Jitter     float64       // Fraction of the delay randomized in both directions
}

// DefaultRetryConfig returns defaults suited to the Reddit API
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFraction,
	}
}

// statusError describes a non-2xx response.
type statusError struct {
	status     int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("http %d", e.status)
	}
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	// Transport level failures and per-attempt timeouts
	return true
}

// retryWithBackoff runs fn until it succeeds, returns a non-retryable error,
// or the retry budget is spent. It returns the number of attempts made.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, onRetry func(attempt int, err error, wait time.Duration), fn func() (T, error)) (T, int, error) {
	var zero T
	var lastErr error
	backoff := config.BaseDelay

	for attempt := 1; attempt <= config.MaxRetries+1; attempt++ {
		result, err := fn()
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, attempt, ctx.Err()
		}
		if !retryable(err) || attempt > config.MaxRetries {
			return zero, attempt, lastErr
		}

		wait := jitter(backoff, config.Jitter)
		var se *statusError
		if errors.As(err, &se) && se.retryAfter > wait {
			wait = min(se.retryAfter, MaxRetryAfter)
		}
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, attempt, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * config.Multiplier)
		if backoff > config.MaxDelay {
			backoff = config.MaxDelay
		}
	}

	return zero, config.MaxRetries + 1, lastErr
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * fraction * float64(d)
	return time.Duration(float64(d) + delta)
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
