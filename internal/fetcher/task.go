package fetcher

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/reddit"
	"github.com/dshills/evidencefetch/internal/scoring"
	"github.com/dshills/evidencefetch/internal/textnorm"
	"github.com/dshills/evidencefetch/pkg/types"
)

// task is one (community, search term) pair.
type task struct {
	community string
	term      string
}

// taskResult is everything a task hands back to the coordinator. Workers
// never touch run state directly.
type taskResult struct {
	task            task
	items           []types.Item
	candidates      int
	postRejections  map[string]int
	replyRejections map[string]int
	err             error
}

// runTask executes Phase A for one task on a private session. A transport
// failure on search discards the task's items.
func (e *Engine) runTask(ctx context.Context, t task, strategy scoring.Strategy, merged *mergedSet) taskResult {
	res := taskResult{
		task:            t,
		postRejections:  make(map[string]int),
		replyRejections: make(map[string]int),
	}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	sess := e.source.NewSession()
	defer sess.Close()

	log := e.logger.With(zap.String("community", t.community), zap.String("term", t.term))
	local := make(map[string]struct{})

	for raw, err := range sess.Search(ctx, t.community, t.term, e.cfg.ResultsPerTerm) {
		if err != nil {
			res.items = nil
			res.err = err
			return res
		}
		res.candidates++
		if raw.ID == "" || !raw.IsPost() {
			log.Debug("Skipping candidate", zap.String("id", raw.ID), zap.String("kind", raw.Kind))
			continue
		}
		if _, dup := local[raw.ID]; dup {
			e.reject(log, res.postRejections, types.StagePost, raw.ID, types.ReasonDuplicate)
			continue
		}
		local[raw.ID] = struct{}{}

		if item, ok := e.buildItem(ctx, sess, raw, t, strategy, merged, &res, log); ok {
			res.items = append(res.items, item)
		}
	}

	log.Debug("Task complete", zap.Int("candidates", res.candidates), zap.Int("items", len(res.items)))
	return res
}

// buildItem takes one post through veto, normalisation, the strategy gate,
// the length check and the reply pipeline. A post another task already
// merged is dropped before its replies are fetched.
func (e *Engine) buildItem(ctx context.Context, sess Session, raw reddit.RawCandidate, t task, strategy scoring.Strategy, merged *mergedSet, res *taskResult, log *zap.Logger) (types.Item, bool) {
	if reason, ok := e.veto.CheckPost(raw); !ok {
		e.reject(log, res.postRejections, types.StagePost, raw.ID, reason)
		return types.Item{}, false
	}

	title := textnorm.NormalizeString(raw.Title)
	body := textnorm.Normalize(raw.Body)

	verdict := strategy.Gate(scoring.Candidate{ID: raw.ID, Title: title, Body: body, Popularity: raw.Score})
	if !verdict.Pass {
		e.reject(log, res.postRejections, types.StagePost, raw.ID, verdict.Reason)
		return types.Item{}, false
	}
	if reason, ok := e.filter.CheckPost(body); !ok {
		e.reject(log, res.postRejections, types.StagePost, raw.ID, reason)
		return types.Item{}, false
	}
	if merged.hasItem(raw.ID) {
		e.reject(log, res.postRejections, types.StagePost, raw.ID, types.ReasonDuplicate)
		return types.Item{}, false
	}

	community := types.NormalizeCommunity(raw.Community)
	if community == "" {
		community = t.community
	}
	now := e.now().UTC()

	return types.Item{
		ID:              raw.ID,
		Title:           title,
		Body:            body,
		Community:       community,
		PopularityScore: raw.Score,
		MatchedSignals:  []string{},
		URL:             citationURL(raw.ID, raw.Permalink),
		Replies:         e.fetchReplies(ctx, sess, raw.ID, now, res, log),
		FetchedAt:       now,
		Source:          types.SourceReddit,
	}, true
}

// fetchReplies returns the filtered top-level replies of itemID, most
// popular first and capped. A failed fetch yields no replies.
func (e *Engine) fetchReplies(ctx context.Context, sess Session, itemID string, now time.Time, res *taskResult, log *zap.Logger) []types.Reply {
	if e.cfg.MaxRepliesPerItem == 0 {
		return []types.Reply{}
	}

	raws, err := sess.Replies(ctx, itemID)
	if err != nil {
		log.Warn("Fetching replies failed, attaching none", zap.String("id", itemID), zap.Error(err))
		return []types.Reply{}
	}

	replies := make([]types.Reply, 0, len(raws))
	for _, rc := range raws {
		if rc.ID == "" {
			continue
		}
		if parent, ok := rc.ParentItemID(); !ok || parent != itemID {
			e.reject(log, res.replyRejections, types.StageReply, rc.ID, types.ReasonOrphanReply)
			continue
		}
		if reason, ok := e.veto.CheckReply(rc); !ok {
			e.reject(log, res.replyRejections, types.StageReply, rc.ID, reason)
			continue
		}
		body := textnorm.Normalize(rc.Body)
		if reason, ok := e.filter.CheckReply(body, rc.Score); !ok {
			e.reject(log, res.replyRejections, types.StageReply, rc.ID, reason)
			continue
		}
		replies = append(replies, types.Reply{
			ID:              rc.ID,
			ParentID:        itemID,
			Body:            body,
			PopularityScore: rc.Score,
			Source:          types.SourceReddit,
			FetchedAt:       now,
		})
	}

	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].PopularityScore > replies[j].PopularityScore
	})
	if len(replies) > e.cfg.MaxRepliesPerItem {
		replies = replies[:e.cfg.MaxRepliesPerItem]
	}
	return replies
}
