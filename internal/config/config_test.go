package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/evidencefetch/internal/embedder"
	"github.com/dshills/evidencefetch/internal/quality"
	"github.com/dshills/evidencefetch/internal/reddit"
	"github.com/dshills/evidencefetch/internal/veto"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 6.0, cfg.MinRelevance)
	assert.Equal(t, 250, cfg.MinPostLength)
	assert.Equal(t, 140, cfg.MinReplyLength)
	assert.Equal(t, FallbackNone, cfg.SemanticFallback)
}

func TestDefaultMatchesPackageDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, quality.DefaultMinReplyScore, cfg.MinReplyScore)
	assert.Equal(t, reddit.DefaultTimeout, cfg.RequestTimeout)
	assert.Equal(t, reddit.DefaultRequestsPerMinute, cfg.RequestsPerMinute)
	assert.Equal(t, reddit.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, reddit.DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, embedder.DefaultOpenAIModel, cfg.EmbeddingModel)
	assert.Equal(t, veto.DefaultBotAuthors, cfg.BotAuthors)

	cfg.BotAuthors[0] = "changed"
	assert.Equal(t, "AutoModerator", veto.DefaultBotAuthors[0])
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.yaml")
	yamlData := `
semantic_ranking: true
workers: 5
max_items: 7
request_timeout: 3s
embedding_provider: local
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"EVIDENCE_WORKERS":              "2",
		"EVIDENCE_MIN_RELEVANCE":        "4.5",
		"EVIDENCE_REDDIT_CLIENT_ID":     "id",
		"EVIDENCE_REDDIT_CLIENT_SECRET": "secret",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.SemanticRanking)
	assert.Equal(t, 2, cfg.Workers, "env overrides file")
	assert.Equal(t, 7, cfg.MaxItems)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "local", cfg.EmbeddingProvider)
	assert.Equal(t, 4.5, cfg.MinRelevance)
	assert.Equal(t, "id", cfg.Secrets.RedditClientID)
	assert.Equal(t, "secret", cfg.Secrets.RedditClientSecret)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "workers too high", env: map[string]string{"EVIDENCE_WORKERS": "64"}},
		{name: "workers not a number", env: map[string]string{"EVIDENCE_WORKERS": "many"}},
		{name: "unknown fallback", env: map[string]string{"EVIDENCE_SEMANTIC_FALLBACK": "magic"}},
		{name: "unknown provider", env: map[string]string{"EVIDENCE_EMBEDDING_PROVIDER": "cohere"}},
		{name: "bad timeout", env: map[string]string{"EVIDENCE_REQUEST_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"EVIDENCE_CONCURRENCY": "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithEnv("", envMap(tt.env))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	require.Error(t, err)
}
