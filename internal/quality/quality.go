// Package quality applies the post-scoring length thresholds and the
// run-scoped duplicate check.
package quality

import "github.com/dshills/evidencefetch/pkg/types"

// Default thresholds, in characters of cleaned text
const (
	DefaultMinPostLength  = 250
	DefaultMinReplyLength = 140
	DefaultMinReplyScore  = 2
)

// Filter holds the length and score thresholds.
type Filter struct {
	MinPostLength  int
	MinReplyLength int
	MinReplyScore  int
}

// DefaultFilter returns a Filter with the default thresholds.
func DefaultFilter() Filter {
	return Filter{
		MinPostLength:  DefaultMinPostLength,
		MinReplyLength: DefaultMinReplyLength,
		MinReplyScore:  DefaultMinReplyScore,
	}
}

// CheckPost checks a cleaned post body.
func (f Filter) CheckPost(body string) (types.RejectReason, bool) {
	if len(body) < f.MinPostLength {
		return types.ReasonTooShort, false
	}
	return "", true
}

// CheckReply checks a reply's popularity and its cleaned body. Popularity is
// checked first since it needs no text.
func (f Filter) CheckReply(body string, popularity int) (types.RejectReason, bool) {
	if popularity < f.MinReplyScore {
		return types.ReasonLowScore, false
	}
	if len(body) < f.MinReplyLength {
		return types.ReasonTooShort, false
	}
	return "", true
}

// Seen tracks item and reply ids already accepted in one run. It is owned by
// a single goroutine and is not safe for concurrent use.
type Seen struct {
	items   map[string]struct{}
	replies map[string]struct{}
}

// NewSeen returns empty dedup sets.
func NewSeen() *Seen {
	return &Seen{
		items:   make(map[string]struct{}),
		replies: make(map[string]struct{}),
	}
}

// AddItem records id and reports whether it was new.
func (s *Seen) AddItem(id string) bool {
	return add(s.items, id)
}

// AddReply records id and reports whether it was new.
func (s *Seen) AddReply(id string) bool {
	return add(s.replies, id)
}

// HasItem reports whether id was already accepted.
func (s *Seen) HasItem(id string) bool {
	_, ok := s.items[id]
	return ok
}

// Len returns the number of distinct items and replies seen.
func (s *Seen) Len() (items, replies int) {
	return len(s.items), len(s.replies)
}

func add(set map[string]struct{}, id string) bool {
	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}
	return true
}
