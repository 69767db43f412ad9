package fetcher

import (
	"context"
	"iter"

	"github.com/dshills/evidencefetch/internal/reddit"
)

// Session is one task's private view of the content platform.
type Session interface {
	Search(ctx context.Context, community, term string, limit int) iter.Seq2[reddit.RawCandidate, error]
	Replies(ctx context.Context, itemID string) ([]reddit.RawCandidate, error)
	Close()
}

// Source hands out independent sessions, one per task.
type Source interface {
	NewSession() Session
}

// RedditSource adapts a reddit.Client to Source.
type RedditSource struct {
	Client *reddit.Client
}

// NewSession implements Source.
func (s RedditSource) NewSession() Session {
	return s.Client.NewSession()
}
