// Package config builds the single configuration value threaded through the
// evidence engine. Values are layered: built-in defaults, an optional YAML
// file, then EVIDENCE_* environment variables. The result is validated once.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dshills/evidencefetch/internal/embedder"
	"github.com/dshills/evidencefetch/internal/quality"
	"github.com/dshills/evidencefetch/internal/reddit"
	"github.com/dshills/evidencefetch/internal/veto"
)

// ErrInvalidConfig is returned when the final configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Fallback policies applied when the query embedding cannot be computed
const (
	FallbackNone    = "none"
	FallbackKeyword = "keyword"
)

// Ranking defaults. The scoring package refers to these.
const (
	DefaultMinRelevance  = 6.0
	DefaultMaxEmbedChars = 2000
)

// Environment variable names
const (
	EnvPrefix             = "EVIDENCE_"
	EnvRedditClientID     = "EVIDENCE_REDDIT_CLIENT_ID"
	EnvRedditClientSecret = "EVIDENCE_REDDIT_CLIENT_SECRET"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvJinaAPIKey         = "JINA_API_KEY"
)

// Config is the engine configuration. Secrets are never read from YAML.
type Config struct {
	// Ranking
	SemanticRanking  bool    `yaml:"semantic_ranking"`
	SemanticFallback string  `yaml:"semantic_fallback" validate:"oneof=none keyword"`
	MinRelevance     float64 `yaml:"min_relevance" validate:"gte=0"`

	// Concurrency
	Workers     int  `yaml:"workers" validate:"min=1,max=16"`
	Concurrency bool `yaml:"concurrency"`

	// Embeddings and cache
	EmbeddingProvider string `yaml:"embedding_provider" validate:"oneof=openai jina local"`
	EmbeddingModel    string `yaml:"embedding_model"`
	CachePath         string `yaml:"cache_path"`
	MaxEmbedChars     int    `yaml:"max_embed_chars" validate:"min=1"`

	// Quality thresholds
	MinPostLength     int      `yaml:"min_post_length" validate:"gte=0"`
	MinReplyLength    int      `yaml:"min_reply_length" validate:"gte=0"`
	MinReplyScore     int      `yaml:"min_reply_score"`
	MaxRepliesPerItem int      `yaml:"max_replies_per_item" validate:"gte=0"`
	MaxItems          int      `yaml:"max_items" validate:"min=1"`
	BotAuthors        []string `yaml:"bot_authors"`
	ResultsPerTerm    int      `yaml:"results_per_term" validate:"min=1,max=100"`

	// Transport
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"min=1"`
	UserAgent         string        `yaml:"user_agent" validate:"required"`

	// Ambient
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	MetricsAddr string `yaml:"metrics_addr"`

	Secrets Secrets `yaml:"-"`
}

// Secrets holds credentials sourced from the environment.
type Secrets struct {
	RedditClientID     string
	RedditClientSecret string
	OpenAIAPIKey       string
	JinaAPIKey         string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SemanticRanking:   false,
		SemanticFallback:  FallbackNone,
		MinRelevance:      DefaultMinRelevance,
		Workers:           3,
		Concurrency:       true,
		EmbeddingProvider: "openai",
		EmbeddingModel:    embedder.DefaultOpenAIModel,
		CachePath:         "evidence_cache.db",
		MaxEmbedChars:     DefaultMaxEmbedChars,
		MinPostLength:     quality.DefaultMinPostLength,
		MinReplyLength:    quality.DefaultMinReplyLength,
		MinReplyScore:     quality.DefaultMinReplyScore,
		MaxRepliesPerItem: 5,
		MaxItems:          10,
		BotAuthors:        slices.Clone(veto.DefaultBotAuthors),
		ResultsPerTerm:    25,
		RequestTimeout:    reddit.DefaultTimeout,
		MaxRetries:        reddit.DefaultMaxRetries,
		RequestsPerMinute: reddit.DefaultRequestsPerMinute,
		UserAgent:         reddit.DefaultUserAgent,
		LogLevel:          "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, formatValidationError(err))
	}
	return nil
}

var validate = validator.New()

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %v", ErrInvalidConfig, key, err)
		}
		*dst = n
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s must be a boolean: %v", ErrInvalidConfig, key, err)
		}
		*dst = b
		return nil
	}

	if err := boolean(EnvPrefix+"SEMANTIC_RANKING", &c.SemanticRanking); err != nil {
		return err
	}
	if err := boolean(EnvPrefix+"CONCURRENCY", &c.Concurrency); err != nil {
		return err
	}
	str(EnvPrefix+"SEMANTIC_FALLBACK", &c.SemanticFallback)
	str(EnvPrefix+"EMBEDDING_PROVIDER", &c.EmbeddingProvider)
	str(EnvPrefix+"EMBEDDING_MODEL", &c.EmbeddingModel)
	str(EnvPrefix+"CACHE_PATH", &c.CachePath)
	str(EnvPrefix+"USER_AGENT", &c.UserAgent)
	str(EnvPrefix+"LOG_LEVEL", &c.LogLevel)
	str(EnvPrefix+"METRICS_ADDR", &c.MetricsAddr)

	ints := []struct {
		key string
		dst *int
	}{
		{"WORKERS", &c.Workers},
		{"MAX_EMBED_CHARS", &c.MaxEmbedChars},
		{"MIN_POST_LENGTH", &c.MinPostLength},
		{"MIN_REPLY_LENGTH", &c.MinReplyLength},
		{"MIN_REPLY_SCORE", &c.MinReplyScore},
		{"MAX_REPLIES_PER_ITEM", &c.MaxRepliesPerItem},
		{"MAX_ITEMS", &c.MaxItems},
		{"RESULTS_PER_TERM", &c.ResultsPerTerm},
		{"MAX_RETRIES", &c.MaxRetries},
		{"REQUESTS_PER_MINUTE", &c.RequestsPerMinute},
	}
	for _, it := range ints {
		if err := integer(EnvPrefix+it.key, it.dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "MIN_RELEVANCE"); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %sMIN_RELEVANCE must be a number: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.MinRelevance = f
	}
	if v, ok := lookup(EnvPrefix + "REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sREQUEST_TIMEOUT must be a duration: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.RequestTimeout = d
	}

	str(EnvRedditClientID, &c.Secrets.RedditClientID)
	str(EnvRedditClientSecret, &c.Secrets.RedditClientSecret)
	str(EnvOpenAIAPIKey, &c.Secrets.OpenAIAPIKey)
	str(EnvJinaAPIKey, &c.Secrets.JinaAPIKey)
	return nil
}

// formatValidationError renders validator errors as one readable line.
func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, e.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
