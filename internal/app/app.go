// Package app wires the engine's collaborators from a Config: the Reddit
// client, the embedding provider behind its circuit breaker, the similarity
// cache and the metrics collector. Both binaries start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/config"
	"github.com/dshills/evidencefetch/internal/embedder"
	"github.com/dshills/evidencefetch/internal/fetcher"
	"github.com/dshills/evidencefetch/internal/logging"
	"github.com/dshills/evidencefetch/internal/metrics"
	"github.com/dshills/evidencefetch/internal/reddit"
	"github.com/dshills/evidencefetch/internal/scoring"
	"github.com/dshills/evidencefetch/internal/simcache"
)

// Options are the inputs to New. Only Config is required.
type Options struct {
	Config *config.Config
	Logger *zap.Logger

	// Source replaces the Reddit client, mainly for tests
	Source fetcher.Source

	// Embedder replaces the provider selected by Config.EmbeddingProvider
	Embedder embedder.Embedder
}

// App owns every long-lived component of a process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Engine   *fetcher.Engine
	Embedder embedder.Embedder // nil unless semantic ranking is enabled
	Cache    *simcache.Cache   // nil unless semantic ranking is enabled
}

// New builds an App. Misconfiguration and missing credentials are fatal; an
// unusable cache file is not, the cache falls back to memory only.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(metrics.Namespace),
	}

	source := opts.Source
	if source == nil {
		client, err := reddit.New(reddit.Config{
			ClientID:          cfg.Secrets.RedditClientID,
			ClientSecret:      cfg.Secrets.RedditClientSecret,
			UserAgent:         cfg.UserAgent,
			Timeout:           cfg.RequestTimeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Retry:             retryConfig(cfg),
			Logger:            logger.Named("reddit"),
			Metrics:           a.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create reddit client: %w", err)
		}
		source = fetcher.RedditSource{Client: client}
	}

	var deps scoring.Deps
	if cfg.SemanticRanking {
		if err := a.openSemantic(ctx, opts.Embedder); err != nil {
			return nil, err
		}
		deps = scoring.Deps{Embedder: a.Embedder, Cache: a.Cache, Logger: logger.Named("scoring")}
	}

	eng, err := fetcher.New(fetcher.Options{
		Config:  cfg,
		Source:  source,
		Scoring: deps,
		Logger:  logger.Named("fetcher"),
		Metrics: a.Metrics,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Engine = eng

	logger.Info("Engine ready",
		zap.Bool("semantic_ranking", cfg.SemanticRanking),
		zap.String("fallback", cfg.SemanticFallback),
		zap.Int("workers", cfg.Workers),
		zap.Bool("concurrency", cfg.Concurrency),
		zap.Bool("persistent_cache", a.Cache != nil && a.Cache.Persistent()))
	return a, nil
}

func (a *App) openSemantic(ctx context.Context, emb embedder.Embedder) error {
	cfg := a.Config
	if emb == nil {
		var err error
		emb, err = embedder.New(embedder.Config{
			Provider: cfg.EmbeddingProvider,
			Model:    cfg.EmbeddingModel,
			APIKey:   apiKey(cfg),
			Timeout:  cfg.RequestTimeout,
			Breaker:  true,
			Logger:   a.Logger.Named("embedder"),
			Metrics:  a.Metrics,
		})
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
	}
	a.Embedder = emb

	opts := simcache.Options{Logger: a.Logger.Named("simcache"), Metrics: a.Metrics}
	cache, err := simcache.Open(ctx, cfg.CachePath, opts)
	if err != nil {
		a.Logger.Warn("Similarity cache unavailable, using memory only",
			zap.String("path", cfg.CachePath),
			zap.Error(err))
		cache = simcache.NewMemoryOnly(opts)
	}
	a.Cache = cache
	return nil
}

// Close releases the cache and the embedder.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	return errors.Join(errs...)
}

// BuildMode reports the SQLite driver compiled in.
func BuildMode() string {
	return simcache.BuildMode
}

func retryConfig(cfg *config.Config) reddit.RetryConfig {
	rc := reddit.DefaultRetryConfig()
	rc.MaxRetries = cfg.MaxRetries
	return rc
}

func apiKey(cfg *config.Config) string {
	switch cfg.EmbeddingProvider {
	case embedder.ProviderJina:
		return cfg.Secrets.JinaAPIKey
	case embedder.ProviderOpenAI:
		return cfg.Secrets.OpenAIAPIKey
	}
	return ""
}
