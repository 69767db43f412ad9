package embedder

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/metrics"
)

// BreakerConfig holds circuit breaker settings for a provider
type BreakerConfig struct {
	MaxRequests      uint32        // Requests allowed while half-open
	Interval         time.Duration // Closed-state window for resetting counts
	Timeout          time.Duration // Open-state duration before half-open
	FailureThreshold float64       // Failure ratio that trips the breaker
	MinRequests      uint32        // Requests needed before the ratio is evaluated
}

// DefaultBreakerConfig returns the default circuit breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// BreakerEmbedder wraps an Embedder with a circuit breaker and records
// call outcomes.
type BreakerEmbedder struct {
	Embedder
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Collector
}

// WithBreaker wraps e. Invalid input and caller cancellation do not count
// as provider failures.
func WithBreaker(e Embedder, cfg BreakerConfig, logger *zap.Logger, m *metrics.Collector) *BreakerEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedder-" + e.Provider(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("embedding circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrInvalidInput) ||
				errors.Is(err, ErrEmptyText) ||
				errors.Is(err, ErrBatchTooLarge) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &BreakerEmbedder{Embedder: e, cb: cb, metrics: m}
}

func (b *BreakerEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	out, err := b.execute(func() (any, error) {
		return b.Embedder.GenerateEmbedding(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Embedding), nil
}

func (b *BreakerEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	out, err := b.execute(func() (any, error) {
		return b.Embedder.GenerateBatch(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*BatchEmbeddingResponse), nil
}

// State returns the breaker state name.
func (b *BreakerEmbedder) State() string {
	return b.cb.State().String()
}

func (b *BreakerEmbedder) execute(fn func() (any, error)) (any, error) {
	out, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		b.metrics.ObserveEmbedding("ok")
		return out, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		b.metrics.ObserveEmbedding("rejected")
		return nil, ErrCircuitOpen
	default:
		b.metrics.ObserveEmbedding("error")
		return nil, err
	}
}
