package scoring

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/config"
	"github.com/dshills/evidencefetch/internal/embedder"
)

// Deps are the collaborators a semantic strategy needs.
type Deps struct {
	Embedder embedder.Embedder
	Cache    VectorCache
	Logger   *zap.Logger
}

// New selects the strategy named by the configuration. It is called once at
// the start of every run.
func New(cfg *config.Config, deps Deps) (Strategy, error) {
	if !cfg.SemanticRanking {
		return NewKeyword(cfg.MinRelevance, nil, nil), nil
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("%w: semantic ranking enabled without an embedder", config.ErrInvalidConfig)
	}
	return NewSemantic(deps.Embedder, deps.Cache, cfg.MaxEmbedChars, deps.Logger), nil
}

// Fallback returns the strategy used when the semantic query vector is
// unavailable: keyword scoring when configured, otherwise Degraded.
func Fallback(cfg *config.Config) Strategy {
	if cfg.SemanticFallback == config.FallbackKeyword {
		return NewKeyword(cfg.MinRelevance, nil, nil)
	}
	return Degraded{}
}
