package embedder

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/metrics"
)

// Config holds embedder configuration
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Retry    RetryConfig

	// Breaker enables the circuit breaker with BreakerConfig (defaults when zero).
	Breaker       bool
	BreakerConfig BreakerConfig

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	opts := HTTPOptions{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
		Retry:   cfg.Retry,
	}

	var (
		emb Embedder
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		emb, err = NewJinaProvider(opts)
	case ProviderOpenAI:
		emb, err = NewOpenAIProvider(opts)
	case ProviderLocal:
		emb = NewLocalProvider()
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Breaker {
		bc := cfg.BreakerConfig
		if bc == (BreakerConfig{}) {
			bc = DefaultBreakerConfig()
		}
		return WithBreaker(emb, bc, cfg.Logger, cfg.Metrics), nil
	}
	return emb, nil
}
