package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPlanNormalized(t *testing.T) {
	plan := SearchPlan{
		ID:          " p1 ",
		SearchTerms: []string{" leaky faucet ", "", "leaky faucet", "drip"},
		Communities: []string{"r/DIY", "/r/diy/", "HomeImprovement"},
	}

	got := plan.Normalized()
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, []string{"leaky faucet", "drip"}, got.SearchTerms)
	assert.Equal(t, []string{"diy", "homeimprovement"}, got.Communities)

	// Original left untouched
	assert.Equal(t, "r/DIY", plan.Communities[0])
}

func TestSearchPlanValidate(t *testing.T) {
	valid := SearchPlan{ID: "p1", SearchTerms: []string{"leaky faucet"}, Communities: []string{"diy"}}

	tests := []struct {
		name    string
		mutate  func(p *SearchPlan)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *SearchPlan) {}},
		{name: "missing id", mutate: func(p *SearchPlan) { p.ID = "" }, wantErr: true},
		{name: "no terms", mutate: func(p *SearchPlan) { p.SearchTerms = nil }, wantErr: true},
		{name: "too many terms", mutate: func(p *SearchPlan) {
			p.SearchTerms = []string{"a", "b", "c", "d", "e", "f"}
		}, wantErr: true},
		{name: "no communities", mutate: func(p *SearchPlan) { p.Communities = []string{} }, wantErr: true},
		{name: "too many communities", mutate: func(p *SearchPlan) {
			p.Communities = []string{"aa", "bb", "cc", "dd"}
		}, wantErr: true},
		{name: "bad community name", mutate: func(p *SearchPlan) { p.Communities = []string{"no spaces"} }, wantErr: true},
		{name: "blank term", mutate: func(p *SearchPlan) { p.SearchTerms = []string{""} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.SearchTerms = append([]string(nil), valid.SearchTerms...)
			p.Communities = append([]string(nil), valid.Communities...)
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPlan))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSearchPlanQueryText(t *testing.T) {
	p := SearchPlan{SearchTerms: []string{"leaky", "faucet"}}
	assert.Equal(t, "leaky faucet", p.QueryText())

	p.Query = "How do I fix a leaky faucet?"
	assert.Equal(t, "How do I fix a leaky faucet?", p.QueryText())
}

func TestItemValidate(t *testing.T) {
	now := time.Now()
	item := Item{
		ID:  "abc",
		URL: "https://www.reddit.com/r/diy/comments/abc/x/",
		Replies: []Reply{
			{ID: "c1", ParentID: "abc", FetchedAt: now},
		},
	}
	require.NoError(t, item.Validate())

	bad := item.Clone()
	bad.URL = "https://example.com/abc"
	assert.ErrorIs(t, bad.Validate(), ErrForeignURL)

	bad = item.Clone()
	bad.URL = ""
	assert.ErrorIs(t, bad.Validate(), ErrMissingURL)

	bad = item.Clone()
	bad.Replies[0].ParentID = "other"
	assert.ErrorIs(t, bad.Validate(), ErrOrphanReply)
	assert.Equal(t, "abc", item.Replies[0].ParentID, "clone must not share replies")
}

func TestIsCitationURL(t *testing.T) {
	assert.True(t, IsCitationURL("https://www.reddit.com/comments/abc"))
	assert.False(t, IsCitationURL("http://www.reddit.com/comments/abc"))
	assert.False(t, IsCitationURL("https://www.reddit.com.evil.io/x"))
	assert.False(t, IsCitationURL("/r/diy/comments/abc"))
}
