// Package scoring ranks built candidates against the user's query.
//
// Two strategies share one contract. The keyword strategy sums the weights
// of matched phrase groups and gates candidates on a minimum score. The
// semantic strategy embeds the query and each candidate and uses cosine
// similarity; it never gates. A strategy is chosen once per run by New and
// never switched implicitly: a fallback to keyword scoring happens only
// when the configuration asks for it, and the engine does it in the open.
package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/evidencefetch/pkg/types"
)

// Strategy names
const (
	NameKeyword  = "keyword"
	NameSemantic = "semantic"
	NameDegraded = "degraded"
)

// ErrQueryEmbedding is wrapped by the ScoringError returned from Prepare
// when the query vector cannot be obtained.
var ErrQueryEmbedding = errors.New("query embedding unavailable")

// Candidate is the cleaned text of a post that survived Phase A.
type Candidate struct {
	ID         string
	Title      string
	Body       string
	Popularity int
}

// QueryContext is what a run ranks against.
type QueryContext struct {
	Query string
	Terms []string
}

// Verdict is the outcome of the relevance gate applied during Phase A.
type Verdict struct {
	Pass    bool
	Score   float64
	Signals []string
	Reason  types.RejectReason
}

// Score is a candidate's final relevance.
type Score struct {
	Value   float64
	Signals []string
}

// Strategy is the shared scoring contract.
type Strategy interface {
	// Name identifies the strategy in results and logs
	Name() string

	// Prepare computes per-run state such as the query vector
	Prepare(ctx context.Context, q QueryContext) error

	// Gate decides whether a candidate continues into quality filtering
	Gate(c Candidate) Verdict

	// Score returns the final relevance. On error the score is 0.0.
	Score(ctx context.Context, c Candidate) (Score, error)
}

// BatchScorer is implemented by strategies that score more efficiently in
// bulk. Results and errors are index-aligned with the input.
type BatchScorer interface {
	ScoreAll(ctx context.Context, cs []Candidate) ([]Score, []error)
}

// ScoringError is a recovered scoring failure. ItemID is empty when the
// failure concerns the query itself.
type ScoringError struct {
	ItemID string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("scoring query: %v", e.Err)
	}
	return fmt.Sprintf("scoring item %s: %v", e.ItemID, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// Degraded scores every candidate 0.0. The engine switches to it when the
// semantic query vector is unavailable and no fallback is configured, so
// ranking falls through to popularity.
type Degraded struct{}

func (Degraded) Name() string                                { return NameDegraded }
func (Degraded) Prepare(context.Context, QueryContext) error { return nil }
func (Degraded) Gate(Candidate) Verdict                      { return Verdict{Pass: true} }
func (Degraded) Score(context.Context, Candidate) (Score, error) {
	return Score{Signals: []string{}}, nil
}
