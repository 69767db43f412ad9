package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint labels used in errors, logs and metrics
const (
	EndpointSearch   = "search"
	EndpointComments = "comments"
)

// Paging limits
const (
	MaxPageSize       = 25
	DefaultReplyLimit = 50
)

// Search yields posts matching term inside community, paging until the API
// is exhausted or limit posts have been yielded. Each range over the returned
// sequence starts a fresh query. A transport failure is yielded once as the
// final element.
func (s *Session) Search(ctx context.Context, community, term string, limit int) iter.Seq2[RawCandidate, error] {
	return func(yield func(RawCandidate, error) bool) {
		if limit <= 0 {
			return
		}
		name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(community)), "r/")
		path := "/r/" + url.PathEscape(name) + "/search"

		after := ""
		yielded := 0
		for yielded < limit {
			params := url.Values{}
			params.Set("q", term)
			params.Set("limit", strconv.Itoa(min(limit-yielded, MaxPageSize)))
			params.Set("restrict_sr", "1")
			params.Set("include_over_18", "false")
			params.Set("sort", "relevance")
			params.Set("raw_json", "1")
			if after != "" {
				params.Set("after", after)
			}

			var page listing
			if err := s.getJSON(ctx, EndpointSearch, path, params, &page); err != nil {
				yield(RawCandidate{}, err)
				return
			}
			if len(page.Data.Children) == 0 {
				return
			}

			for _, child := range page.Data.Children {
				c := child.candidate()
				if !c.IsPost() {
					continue
				}
				if !yield(c, nil) {
					return
				}
				yielded++
				if yielded >= limit {
					return
				}
			}

			after = page.Data.After
			if after == "" {
				return
			}
		}
	}
}

// Replies returns the top-level replies of the post with the given id.
// "more" stubs are skipped.
func (s *Session) Replies(ctx context.Context, itemID string) ([]RawCandidate, error) {
	itemID = strings.TrimPrefix(itemID, KindPost+"_")
	if itemID == "" {
		return nil, fmt.Errorf("%w: empty item id", ErrInvalidResponse)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(DefaultReplyLimit))
	params.Set("depth", "1")
	params.Set("sort", "top")
	params.Set("raw_json", "1")

	var payload []json.RawMessage
	if err := s.getJSON(ctx, EndpointComments, "/comments/"+url.PathEscape(itemID), params, &payload); err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return nil, &TransportError{Endpoint: EndpointComments, Attempts: 1, Err: fmt.Errorf("%w: expected 2 listings, got %d", ErrInvalidResponse, len(payload))}
	}

	var comments listing
	if err := json.Unmarshal(payload[1], &comments); err != nil {
		return nil, &TransportError{Endpoint: EndpointComments, Attempts: 1, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}

	out := make([]RawCandidate, 0, len(comments.Data.Children))
	for _, child := range comments.Data.Children {
		if child.Kind != KindComment {
			continue
		}
		out = append(out, child.candidate())
	}
	return out, nil
}
