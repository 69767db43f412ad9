package types

import (
	"net/url"
	"strings"
	"time"
)

// Source platform constants
const (
	SourceReddit = "reddit"

	// CitationBase is the scheme and host every Item URL starts with.
	CitationBase = "https://www.reddit.com"
)

// Item is a validated, cleaned and scored unit of evidence (a post).
type Item struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	Community       string    `json:"community"`
	PopularityScore int       `json:"popularity_score"`
	RelevanceScore  float64   `json:"relevance_score"`
	MatchedSignals  []string  `json:"matched_signals"`
	URL             string    `json:"url"`
	Replies         []Reply   `json:"replies"`
	FetchedAt       time.Time `json:"fetched_at"`
	Source          string    `json:"source"`
}

// Reply is a filtered top-level response attached to an Item (a comment).
type Reply struct {
	ID              string    `json:"id"`
	ParentID        string    `json:"parent_id"`
	Body            string    `json:"body"`
	PopularityScore int       `json:"popularity_score"`
	Source          string    `json:"source"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Validate checks the citation and scoping invariants of an Item.
func (it *Item) Validate() error {
	if it.ID == "" {
		return ErrMissingItemID
	}
	if it.URL == "" {
		return ErrMissingURL
	}
	if !IsCitationURL(it.URL) {
		return ErrForeignURL
	}
	for _, r := range it.Replies {
		if r.ID == "" {
			return ErrMissingReplyID
		}
		if r.ParentID != it.ID {
			return ErrOrphanReply
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (it Item) Clone() Item {
	out := it
	if it.MatchedSignals != nil {
		out.MatchedSignals = append([]string(nil), it.MatchedSignals...)
	}
	if it.Replies != nil {
		out.Replies = append([]Reply(nil), it.Replies...)
	}
	return out
}

// IsCitationURL reports whether raw is an absolute https URL on reddit.com.
func IsCitationURL(raw string) bool {
	if !strings.HasPrefix(raw, CitationBase+"/") {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Host == "www.reddit.com"
}
