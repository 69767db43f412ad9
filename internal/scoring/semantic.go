package scoring

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/config"
	"github.com/dshills/evidencefetch/internal/embedder"
	"github.com/dshills/evidencefetch/internal/simcache"
	"github.com/dshills/evidencefetch/internal/textnorm"
)

// DefaultMaxEmbedChars bounds the candidate text sent to the provider.
const DefaultMaxEmbedChars = config.DefaultMaxEmbedChars

// candidateSeparator joins title and body before embedding.
const candidateSeparator = "\n\n"

// VectorCache is the subset of simcache.Cache used for scoring.
type VectorCache interface {
	Get(ctx context.Context, digest, model string) ([]float32, bool)
	Put(ctx context.Context, digest, model string, dims int, vector []float32) error
}

var _ VectorCache = (*simcache.Cache)(nil)

// Semantic ranks candidates by cosine similarity to the query embedding.
// A Semantic value holds one run's query vector; create one per run.
type Semantic struct {
	embedder      embedder.Embedder
	cache         VectorCache
	maxEmbedChars int
	logger        *zap.Logger

	query []float32
}

// NewSemantic builds a semantic strategy. A nil cache disables caching.
func NewSemantic(emb embedder.Embedder, cache VectorCache, maxEmbedChars int, logger *zap.Logger) *Semantic {
	if maxEmbedChars <= 0 {
		maxEmbedChars = DefaultMaxEmbedChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Semantic{
		embedder:      emb,
		cache:         cache,
		maxEmbedChars: maxEmbedChars,
		logger:        logger,
	}
}

func (s *Semantic) Name() string { return NameSemantic }

// ModelKey identifies the embedding space in cache keys: model and dimension.
func (s *Semantic) ModelKey() string {
	return s.embedder.Model() + "@" + strconv.Itoa(s.embedder.Dimension())
}

// Prepare obtains the query vector, cache first. Failure is returned as a
// *ScoringError wrapping ErrQueryEmbedding.
func (s *Semantic) Prepare(ctx context.Context, q QueryContext) error {
	text := textnorm.NormalizeString(q.Query)
	if text == "" {
		return &ScoringError{Err: fmt.Errorf("%w: empty query text", ErrQueryEmbedding)}
	}
	text = truncate(text, s.maxEmbedChars)

	vec, err := s.vectorFor(ctx, embedder.ComputeHash(text), text)
	if err != nil {
		return &ScoringError{Err: fmt.Errorf("%w: %w", ErrQueryEmbedding, err)}
	}
	s.query = vec
	return nil
}

// Gate never rejects: relevance is decided by ranking alone.
func (s *Semantic) Gate(Candidate) Verdict {
	return Verdict{Pass: true, Signals: []string{}}
}

// Score embeds one candidate, cache first, and compares it with the query.
func (s *Semantic) Score(ctx context.Context, c Candidate) (Score, error) {
	if s.query == nil {
		return Score{Signals: []string{}}, &ScoringError{ItemID: c.ID, Err: ErrQueryEmbedding}
	}
	text := s.CandidateText(c)
	vec, err := s.vectorFor(ctx, embedder.ComputeHash(text), text)
	if err != nil {
		return Score{Signals: []string{}}, &ScoringError{ItemID: c.ID, Err: err}
	}
	return Score{Value: CosineSimilarity(s.query, vec), Signals: []string{}}, nil
}

// ScoreAll scores candidates with one cache lookup per distinct digest and
// batched provider calls for the misses. When a batch call fails each text
// in it is retried alone, so one bad input cannot zero its neighbours.
func (s *Semantic) ScoreAll(ctx context.Context, cs []Candidate) ([]Score, []error) {
	scores := make([]Score, len(cs))
	errs := make([]error, len(cs))
	for i := range scores {
		scores[i].Signals = []string{}
	}
	if s.query == nil {
		for i, c := range cs {
			errs[i] = &ScoringError{ItemID: c.ID, Err: ErrQueryEmbedding}
		}
		return scores, errs
	}

	digests := make([]string, len(cs))
	texts := make(map[string]string, len(cs))
	var order []string
	for i, c := range cs {
		text := s.CandidateText(c)
		d := embedder.ComputeHash(text)
		digests[i] = d
		if _, ok := texts[d]; !ok {
			texts[d] = text
			order = append(order, d)
		}
	}

	model := s.ModelKey()
	vectors := make(map[string][]float32, len(order))
	failures := make(map[string]error)
	var missing []string
	for _, d := range order {
		if v, ok := s.cacheGet(ctx, d, model); ok {
			vectors[d] = v
			continue
		}
		missing = append(missing, d)
	}

	for start := 0; start < len(missing); start += embedder.MaxBatchSize {
		chunk := missing[start:min(start+embedder.MaxBatchSize, len(missing))]
		batch := make([]string, len(chunk))
		for i, d := range chunk {
			batch[i] = texts[d]
		}

		resp, err := s.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: batch})
		if err == nil && len(resp.Embeddings) == len(chunk) {
			for i, d := range chunk {
				vectors[d] = resp.Embeddings[i].Vector
				s.cachePut(ctx, d, model, resp.Embeddings[i].Vector)
			}
			continue
		}
		if err != nil {
			s.logger.Warn("batch embedding failed, retrying items individually",
				zap.Int("batch_size", len(chunk)), zap.Error(err))
		}
		if errors.Is(err, embedder.ErrCircuitOpen) {
			for _, d := range chunk {
				failures[d] = err
			}
			continue
		}
		for _, d := range chunk {
			v, err := s.embed(ctx, d, texts[d])
			if err != nil {
				failures[d] = err
				continue
			}
			vectors[d] = v
		}
	}

	for i, c := range cs {
		d := digests[i]
		if err, failed := failures[d]; failed {
			errs[i] = &ScoringError{ItemID: c.ID, Err: err}
			continue
		}
		scores[i].Value = CosineSimilarity(s.query, vectors[d])
	}
	return scores, errs
}

// CandidateText is the normalized, truncated text embedded for c.
func (s *Semantic) CandidateText(c Candidate) string {
	return truncate(c.Title+candidateSeparator+c.Body, s.maxEmbedChars)
}

func (s *Semantic) vectorFor(ctx context.Context, digest, text string) ([]float32, error) {
	if v, ok := s.cacheGet(ctx, digest, s.ModelKey()); ok {
		return v, nil
	}
	return s.embed(ctx, digest, text)
}

func (s *Semantic) embed(ctx context.Context, digest, text string) ([]float32, error) {
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, digest, s.ModelKey(), emb.Vector)
	return emb.Vector, nil
}

func (s *Semantic) cacheGet(ctx context.Context, digest, model string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, digest, model)
}

func (s *Semantic) cachePut(ctx context.Context, digest, model string, v []float32) {
	if s.cache == nil || len(v) == 0 {
		return
	}
	// The cache logs its own failures
	_ = s.cache.Put(ctx, digest, model, len(v), v)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
