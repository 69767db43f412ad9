// Package veto holds the cheap metadata checks applied to raw candidates
// before any text processing. Each check is a pure predicate. Checks run in a
// fixed order and the first failure decides the rejection reason.
package veto

import (
	"strings"

	"github.com/dshills/evidencefetch/internal/reddit"
	"github.com/dshills/evidencefetch/pkg/types"
)

// DefaultBotAuthors lists automated accounts rejected by default.
var DefaultBotAuthors = []string{"AutoModerator"}

// IsDeletedOrRemoved reports a missing, blank, deleted or removed body.
func IsDeletedOrRemoved(c reddit.RawCandidate) bool {
	if c.Body == nil {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(*c.Body)) {
	case "", "[deleted]", "[removed]":
		return true
	}
	return false
}

// IsAd reports a sponsored or ads-UI post.
func IsAd(c reddit.RawCandidate) bool {
	return c.IsAd || c.Promoted
}

// IsNonText reports a post that is neither a self post nor an image/gallery
// post with a text body.
func IsNonText(c reddit.RawCandidate) bool {
	return !(c.IsSelf || c.PostHint == "image" || c.IsGallery)
}

// IsAdult reports an NSFW post.
func IsAdult(c reddit.RawCandidate) bool {
	return c.Over18
}

// Checker applies the ordered veto checks. The zero value is not usable;
// use New or Default.
type Checker struct {
	bots map[string]struct{}
}

// New creates a Checker that treats the given authors (case-insensitive) as bots.
func New(botAuthors []string) *Checker {
	bots := make(map[string]struct{}, len(botAuthors))
	for _, b := range botAuthors {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			bots[b] = struct{}{}
		}
	}
	return &Checker{bots: bots}
}

var defaultChecker = New(DefaultBotAuthors)

// IsBotAuthor reports whether the author is a known automated account.
func (v *Checker) IsBotAuthor(c reddit.RawCandidate) bool {
	_, ok := v.bots[strings.ToLower(strings.TrimSpace(c.Author))]
	return ok
}

// CheckPost runs all five checks in order. It returns the reason and false
// when the post is vetoed.
func (v *Checker) CheckPost(c reddit.RawCandidate) (types.RejectReason, bool) {
	switch {
	case IsDeletedOrRemoved(c):
		return types.ReasonDeletedOrRemoved, false
	case v.IsBotAuthor(c):
		return types.ReasonBotAuthor, false
	case IsAd(c):
		return types.ReasonAd, false
	case IsNonText(c):
		return types.ReasonNonText, false
	case IsAdult(c):
		return types.ReasonAdultContent, false
	}
	return "", true
}

// CheckReply runs the deleted and bot checks only. Replies inherit the
// parent's ad and adult status.
func (v *Checker) CheckReply(c reddit.RawCandidate) (types.RejectReason, bool) {
	switch {
	case IsDeletedOrRemoved(c):
		return types.ReasonDeletedOrRemoved, false
	case v.IsBotAuthor(c):
		return types.ReasonBotAuthor, false
	}
	return "", true
}

// IsBotAuthor applies the default bot list.
func IsBotAuthor(c reddit.RawCandidate) bool {
	return defaultChecker.IsBotAuthor(c)
}

// CheckPost applies the default Checker.
func CheckPost(c reddit.RawCandidate) (types.RejectReason, bool) {
	return defaultChecker.CheckPost(c)
}

// CheckReply applies the default Checker.
func CheckReply(c reddit.RawCandidate) (types.RejectReason, bool) {
	return defaultChecker.CheckReply(c)
}
