package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/evidencefetch/pkg/types"
)

func TestKeywordGate(t *testing.T) {
	k := NewKeyword(DefaultMinRelevance, nil, nil)

	tests := []struct {
		name        string
		cand        Candidate
		wantPass    bool
		wantScore   float64
		wantReason  types.RejectReason
		wantSignals []string
	}{
		{
			name:        "instructional question passes",
			cand:        Candidate{Title: "How do I fix a leaky faucet?"},
			wantPass:    true,
			wantScore:   8.0,
			wantSignals: []string{"fix", "how do i"},
		},
		{
			name:        "showcase is vetoed",
			cand:        Candidate{Title: "Look what I built!"},
			wantScore:   -6.0,
			wantReason:  types.ReasonShowcaseVeto,
			wantSignals: []string{"i built"},
		},
		{
			name:        "weak match below threshold",
			cand:        Candidate{Title: "Plywood question", Body: "what grade of plywood"},
			wantScore:   2.0,
			wantReason:  types.ReasonBelowThreshold,
			wantSignals: []string{"plywood"},
		},
		{
			name:        "no match",
			cand:        Candidate{Title: "Hello", Body: "nothing relevant"},
			wantScore:   0,
			wantReason:  types.ReasonBelowThreshold,
			wantSignals: []string{},
		},
		{
			name:        "positives suppress negatives",
			cand:        Candidate{Title: "I built a shed, how to install the door?", Body: "before and after pics"},
			wantScore:   5.0,
			wantReason:  types.ReasonBelowThreshold,
			wantSignals: []string{"how to", "install"},
		},
		{
			name:        "suffix expansion",
			cand:        Candidate{Title: "Installing drills", Body: "repaired and stuck"},
			wantPass:    true,
			wantScore:   11.0,
			wantSignals: []string{"install", "repair", "stuck", "drill"},
		},
		{
			name:        "group counts once",
			cand:        Candidate{Title: "how to build and install and repair"},
			wantScore:   5.0,
			wantReason:  types.ReasonBelowThreshold,
			wantSignals: []string{"how to", "build", "install", "repair"},
		},
		{
			name:        "word boundaries",
			cand:        Candidate{Title: "prefix rebuild unfixable"},
			wantScore:   0,
			wantReason:  types.ReasonBelowThreshold,
			wantSignals: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := k.Gate(tt.cand)
			assert.Equal(t, tt.wantPass, v.Pass)
			assert.InDelta(t, tt.wantScore, v.Score, 1e-9)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantSignals, v.Signals)
		})
	}
}

func TestKeywordScoreMatchesGate(t *testing.T) {
	k := NewKeyword(DefaultMinRelevance, nil, nil)
	c := Candidate{Title: "Any tips to repair a cracked drawer?"}

	s, err := k.Score(context.Background(), c)
	require.NoError(t, err)
	v := k.Gate(c)
	assert.Equal(t, v.Score, s.Value)
	assert.Equal(t, v.Signals, s.Signals)
	assert.Equal(t, 12.0, s.Value)
	assert.Equal(t, NameKeyword, k.Name())
}

func TestKeywordCustomGroups(t *testing.T) {
	k := NewKeyword(1, []PhraseGroup{{Name: "g", Weight: 1, Phrases: []string{"Sourdough", " "}}}, []PhraseGroup{})
	v := k.Gate(Candidate{Body: "my sourdoughs rise"})
	assert.True(t, v.Pass)
	assert.Equal(t, []string{"sourdough"}, v.Signals)
}
