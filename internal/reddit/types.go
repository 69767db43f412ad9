package reddit

import "strings"

// Thing kinds used by the listing API
const (
	KindPost    = "t3"
	KindComment = "t1"
	KindMore    = "more"
)

// RawCandidate is an unprocessed post or comment as returned by the API. It
// never leaves the engine.
type RawCandidate struct {
	Kind       string
	ID         string
	Name       string // fullname, e.g. t3_abc123
	ParentID   string // fullname of the parent, comments only
	Title      string
	Body       *string // nil when the field was absent
	Author     string
	Community  string
	Score      int
	Permalink  string
	URL        string
	CreatedUTC float64

	// Flags consulted by the veto filter
	IsSelf      bool
	IsGallery   bool
	PostHint    string
	Over18      bool
	IsAd        bool
	Promoted    bool
	Stickied    bool
	NumComments int
}

// IsPost reports whether the candidate is a top-level post.
func (c RawCandidate) IsPost() bool {
	return c.Kind == KindPost
}

// ParentItemID returns the bare parent id when the parent is a post.
func (c RawCandidate) ParentItemID() (string, bool) {
	id, ok := strings.CutPrefix(c.ParentID, KindPost+"_")
	return id, ok && id != ""
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

type thingData struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	ParentID           string  `json:"parent_id"`
	Title              string  `json:"title"`
	Selftext           *string `json:"selftext"`
	Body               *string `json:"body"`
	Author             string  `json:"author"`
	Subreddit          string  `json:"subreddit"`
	Score              int     `json:"score"`
	Permalink          string  `json:"permalink"`
	URL                string  `json:"url"`
	CreatedUTC         float64 `json:"created_utc"`
	IsSelf             bool    `json:"is_self"`
	IsGallery          bool    `json:"is_gallery"`
	PostHint           string  `json:"post_hint"`
	Over18             bool    `json:"over_18"`
	IsCreatedFromAdsUI bool    `json:"is_created_from_ads_ui"`
	Promoted           bool    `json:"promoted"`
	Stickied           bool    `json:"stickied"`
	NumComments        int     `json:"num_comments"`
}

func (t thing) candidate() RawCandidate {
	d := t.Data
	body := d.Selftext
	if t.Kind == KindComment {
		body = d.Body
	}
	return RawCandidate{
		Kind:        t.Kind,
		ID:          d.ID,
		Name:        d.Name,
		ParentID:    d.ParentID,
		Title:       d.Title,
		Body:        body,
		Author:      d.Author,
		Community:   d.Subreddit,
		Score:       d.Score,
		Permalink:   d.Permalink,
		URL:         d.URL,
		CreatedUTC:  d.CreatedUTC,
		IsSelf:      d.IsSelf,
		IsGallery:   d.IsGallery,
		PostHint:    d.PostHint,
		Over18:      d.Over18,
		IsAd:        d.IsCreatedFromAdsUI,
		Promoted:    d.Promoted,
		Stickied:    d.Stickied,
		NumComments: d.NumComments,
	}
}
