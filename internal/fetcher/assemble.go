package fetcher

import (
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/dshills/evidencefetch/pkg/types"
)

// assemble orders items by relevance then popularity, keeping arrival order
// for ties, truncates to MaxItems and builds the immutable result.
func (e *Engine) assemble(plan types.SearchPlan, items []types.Item) *types.FetchResult {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		return a.PopularityScore > b.PopularityScore
	})
	if len(items) > e.cfg.MaxItems {
		items = items[:e.cfg.MaxItems]
	}

	out := make([]types.Item, 0, len(items))
	replies := make([]types.Reply, 0)
	for _, it := range items {
		c := it.Clone()
		if c.Replies == nil {
			c.Replies = []types.Reply{}
		}
		if c.MatchedSignals == nil {
			c.MatchedSignals = []string{}
		}
		out = append(out, c)
		replies = append(replies, c.Replies...)
	}

	return &types.FetchResult{
		PlanID:      plan.ID,
		Query:       plan.Query,
		SearchTerms: slices.Clone(plan.SearchTerms),
		Communities: slices.Clone(plan.Communities),
		Notes:       plan.Notes,
		Source:      types.SourceReddit,
		FetchedAt:   e.now().UTC(),
		Items:       out,
		Replies:     replies,
	}
}

// citationURL turns a permalink into an absolute www.reddit.com URL. Links
// that cannot be trusted to stay on the platform are replaced by the
// canonical /comments/{id} form.
func citationURL(id, permalink string) string {
	fallback := types.CitationBase + "/comments/" + url.PathEscape(id)

	p := strings.TrimSpace(permalink)
	if p == "" {
		return fallback
	}
	u, err := url.Parse(p)
	if err != nil {
		return fallback
	}

	if u.Scheme != "" || u.Host != "" {
		host := strings.ToLower(u.Hostname())
		onPlatform := host == "reddit.com" || strings.HasSuffix(host, ".reddit.com")
		if !onPlatform || (u.Scheme != "https" && u.Scheme != "http") {
			return fallback
		}
	}

	rel := strings.TrimLeft(u.EscapedPath(), "/")
	if rel == "" {
		return fallback
	}
	return types.CitationBase + "/" + rel
}
