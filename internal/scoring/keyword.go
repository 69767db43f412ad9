package scoring

import (
	"context"
	"regexp"
	"strings"

	"github.com/dshills/evidencefetch/internal/config"
	"github.com/dshills/evidencefetch/pkg/types"
)

// DefaultMinRelevance is the keyword pass threshold.
const DefaultMinRelevance = config.DefaultMinRelevance

// PhraseGroup is a weighted set of phrases. A group contributes its weight
// once, however many of its phrases match.
type PhraseGroup struct {
	Name    string
	Weight  float64
	Phrases []string
}

// DefaultPositiveGroups favour instructional and question-driven posts.
var DefaultPositiveGroups = []PhraseGroup{
	{Name: "how_to_instructional", Weight: 5.0, Phrases: []string{
		"how to", "step by step", "build", "refinish", "install",
		"assemble", "repair", "instructions", "fix",
	}},
	{Name: "troubleshooting_repair", Weight: 4.0, Phrases: []string{
		"won't start", "doesn't work", "stuck", "leaking", "squeaking",
		"shorted", "cracked", "broken", "scratched", "dented", "damage",
	}},
	{Name: "question_driven", Weight: 3.0, Phrases: []string{
		"how do i", "any tips", "what's the best way", "should i", "how would you",
		"is it possible to", "recommendations for", "looking for advice",
	}},
	{Name: "tools_materials", Weight: 2.0, Phrases: []string{
		"plywood", "2x4", "sandpaper", "drill", "impact driver", "stain",
		"poly", "miter saw", "orbital sander", "screws", "drill bits",
	}},
	{Name: "safety_tips", Weight: 2.0, Phrases: []string{
		"safety gear", "safe to do", "first time", "beginner mistake",
		"newbie", "learning curve", "respirator", "mask",
	}},
}

// DefaultNegativeGroups penalize showcase posts.
var DefaultNegativeGroups = []PhraseGroup{
	{Name: "showcase_brag", Weight: -6.0, Phrases: []string{
		"just finished", "before and after", "my latest build", "finally done",
		"check out my", "progress pics", "showing off", "i built", "i made",
		"i finished",
	}},
}

// singleWordSuffixes expand a one-word phrase to simple variants.
var singleWordSuffixes = []string{"s", "ed", "ing"}

type compiledPhrase struct {
	phrase  string
	pattern *regexp.Regexp
}

type compiledGroup struct {
	name    string
	weight  float64
	phrases []compiledPhrase
}

// Keyword scores by weighted phrase matching. It is stateless after
// construction and safe for concurrent use.
type Keyword struct {
	threshold float64
	positive  []compiledGroup
	negative  []compiledGroup
}

// NewKeyword builds a keyword strategy. Nil groups select the defaults.
func NewKeyword(threshold float64, positive, negative []PhraseGroup) *Keyword {
	if positive == nil {
		positive = DefaultPositiveGroups
	}
	if negative == nil {
		negative = DefaultNegativeGroups
	}
	return &Keyword{
		threshold: threshold,
		positive:  compileGroups(positive),
		negative:  compileGroups(negative),
	}
}

func compileGroups(groups []PhraseGroup) []compiledGroup {
	out := make([]compiledGroup, 0, len(groups))
	for _, g := range groups {
		cg := compiledGroup{name: g.Name, weight: g.Weight}
		for _, p := range g.Phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			cg.phrases = append(cg.phrases, compiledPhrase{phrase: p, pattern: phrasePattern(p)})
		}
		out = append(out, cg)
	}
	return out
}

func phrasePattern(p string) *regexp.Regexp {
	expr := regexp.QuoteMeta(p)
	if !strings.Contains(p, " ") {
		expr += "(?:" + strings.Join(singleWordSuffixes, "|") + ")?"
	}
	return regexp.MustCompile(`\b` + expr + `\b`)
}

func (k *Keyword) Name() string { return NameKeyword }

func (k *Keyword) Prepare(context.Context, QueryContext) error { return nil }

// Gate scores the candidate and applies the threshold. Negative phrases are
// consulted only when no positive phrase matched; they push the score below
// zero, so such a candidate always fails with showcase_veto.
func (k *Keyword) Gate(c Candidate) Verdict {
	score, signals, negative := k.evaluate(c)
	switch {
	case negative:
		return Verdict{Score: score, Signals: signals, Reason: types.ReasonShowcaseVeto}
	case score < k.threshold:
		return Verdict{Score: score, Signals: signals, Reason: types.ReasonBelowThreshold}
	}
	return Verdict{Pass: true, Score: score, Signals: signals}
}

func (k *Keyword) Score(_ context.Context, c Candidate) (Score, error) {
	score, signals, _ := k.evaluate(c)
	return Score{Value: score, Signals: signals}, nil
}

func (k *Keyword) evaluate(c Candidate) (float64, []string, bool) {
	text := strings.ToLower(c.Title + " " + c.Body)

	score := 0.0
	signals := []string{}
	for _, g := range k.positive {
		hit := false
		for _, p := range g.phrases {
			if p.pattern.MatchString(text) {
				signals = append(signals, p.phrase)
				hit = true
			}
		}
		if hit {
			score += g.weight
		}
	}
	if len(signals) > 0 {
		return score, signals, false
	}

	negative := false
	for _, g := range k.negative {
		hit := false
		for _, p := range g.phrases {
			if p.pattern.MatchString(text) {
				signals = append(signals, p.phrase)
				hit = true
			}
		}
		if hit {
			score += g.weight
			negative = true
		}
	}
	return score, signals, negative
}
