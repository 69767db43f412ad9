package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/evidencefetch/internal/config"
	"github.com/dshills/evidencefetch/internal/logging"
	"github.com/dshills/evidencefetch/internal/metrics"
	"github.com/dshills/evidencefetch/internal/quality"
	"github.com/dshills/evidencefetch/internal/scoring"
	"github.com/dshills/evidencefetch/internal/veto"
	"github.com/dshills/evidencefetch/pkg/types"
)

// ErrNoSource is returned by New when Options.Source is nil.
var ErrNoSource = errors.New("no content source configured")

// Options configures an Engine.
type Options struct {
	Config  *config.Config
	Source  Source
	Scoring scoring.Deps

	// Veto overrides the checker built from Config.BotAuthors
	Veto *veto.Checker

	Logger  *zap.Logger
	Metrics *metrics.Collector

	// Now stamps fetched records; defaults to time.Now
	Now func() time.Time
}

// Engine retrieves, filters and ranks evidence. It holds no per-run state
// and is safe for concurrent use.
type Engine struct {
	cfg     *config.Config
	source  Source
	deps    scoring.Deps
	veto    *veto.Checker
	filter  quality.Filter
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// New validates the options and builds an Engine. Misconfiguration is
// reported here, before any run starts.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Source == nil {
		return nil, ErrNoSource
	}

	logger := logging.OrNop(opts.Logger)
	deps := opts.Scoring
	if deps.Logger == nil {
		deps.Logger = logger
	}
	if _, err := scoring.New(opts.Config, deps); err != nil {
		return nil, err
	}

	checker := opts.Veto
	if checker == nil {
		checker = veto.New(opts.Config.BotAuthors)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		cfg:    opts.Config,
		source: opts.Source,
		deps:   deps,
		veto:   checker,
		filter: quality.Filter{
			MinPostLength:  opts.Config.MinPostLength,
			MinReplyLength: opts.Config.MinReplyLength,
			MinReplyScore:  opts.Config.MinReplyScore,
		},
		logger:  logger,
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Fetch runs the pipeline for plan. Only an invalid plan is returned as an
// error; transport, scoring and cache failures shrink or degrade the result
// instead. When ctx is cancelled, outstanding tasks stop and the work
// already merged is still scored and returned with Stats.Cancelled set.
func (e *Engine) Fetch(ctx context.Context, plan types.SearchPlan) (*types.FetchResult, error) {
	plan = plan.Normalized()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	strategy, err := scoring.New(e.cfg, e.deps)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stats := types.RunStats{
		RunID:           uuid.NewString(),
		PostRejections:  make(map[string]int),
		ReplyRejections: make(map[string]int),
	}
	log := e.logger.With(zap.String("run_id", stats.RunID), zap.String("plan_id", plan.ID))

	tasks := planTasks(plan)
	stats.Tasks = len(tasks)
	log.Info("Starting evidence run",
		zap.Int("tasks", len(tasks)),
		zap.Bool("concurrent", e.cfg.Concurrency),
		zap.Int("workers", e.cfg.Workers),
		zap.String("strategy", strategy.Name()))

	merged := newMergedSet()
	items := e.collect(ctx, tasks, strategy, merged, &stats, log)
	stats.ItemsBuilt = len(items)
	if ctx.Err() != nil {
		stats.Cancelled = true
		log.Warn("Run cancelled, assembling merged work", zap.Error(ctx.Err()))
	}

	// Phase B works on what was merged even after cancellation; every
	// remote call it makes is bounded by its own timeout.
	e.score(context.WithoutCancel(ctx), plan, strategy, items, &stats, log)

	result := e.assemble(plan, items)
	stats.ItemsEmitted = len(result.Items)
	stats.DurationMillis = time.Since(start).Milliseconds()
	result.Stats = stats

	e.metrics.ObserveRun(stats.Strategy, stats.Degraded, stats.ItemsEmitted, time.Since(start))
	uniqueItems, uniqueReplies := merged.len()
	log.Info("Evidence run complete",
		zap.String("strategy", stats.Strategy),
		zap.Bool("degraded", stats.Degraded),
		zap.Int("candidates", stats.CandidatesSeen),
		zap.Int("items", stats.ItemsEmitted),
		zap.Int("unique_items", uniqueItems),
		zap.Int("unique_replies", uniqueReplies),
		zap.Int("failed_tasks", stats.FailedTasks),
		zap.Int64("duration_ms", stats.DurationMillis))

	return result, nil
}

// planTasks expands the plan into one task per (community, term) pair, in
// plan order.
func planTasks(plan types.SearchPlan) []task {
	tasks := make([]task, 0, len(plan.Communities)*len(plan.SearchTerms))
	for _, community := range plan.Communities {
		for _, term := range plan.SearchTerms {
			tasks = append(tasks, task{community: community, term: term})
		}
	}
	return tasks
}

// collect runs Phase A and merges task results on the calling goroutine,
// which is the only writer of merged. In sequential mode each task runs
// inline, so it sees everything merged before it.
func (e *Engine) collect(ctx context.Context, tasks []task, strategy scoring.Strategy, merged *mergedSet, stats *types.RunStats, log *zap.Logger) []types.Item {
	var items []types.Item
	if !e.cfg.Concurrency {
		for _, t := range tasks {
			items = e.merge(e.runTask(ctx, t, strategy, merged), merged, items, stats, log)
		}
		return items
	}

	results := make(chan taskResult)
	go e.dispatch(ctx, tasks, strategy, merged, results)
	for res := range results {
		items = e.merge(res, merged, items, stats, log)
	}
	return items
}

// dispatch runs every task on the worker pool and sends its result. It
// closes out when all tasks have returned.
func (e *Engine) dispatch(ctx context.Context, tasks []task, strategy scoring.Strategy, merged *mergedSet, out chan<- taskResult) {
	defer close(out)

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for _, t := range tasks {
		g.Go(func() error {
			out <- e.runTask(ctx, t, strategy, merged)
			return nil
		})
	}
	_ = g.Wait()
}

// merge folds one task's result into the run. Items and replies already seen
// in this run are dropped as duplicates.
func (e *Engine) merge(res taskResult, merged *mergedSet, items []types.Item, stats *types.RunStats, log *zap.Logger) []types.Item {
	stats.CandidatesSeen += res.candidates
	e.metrics.ObserveCandidates(res.candidates)
	addCounts(stats.PostRejections, res.postRejections)
	addCounts(stats.ReplyRejections, res.replyRejections)

	if res.err != nil {
		stats.FailedTasks++
		log.Warn("Task failed, contributing no results",
			zap.String("community", res.task.community),
			zap.String("term", res.task.term),
			zap.Error(res.err))
		return items
	}

	for _, it := range res.items {
		if !merged.addItem(it.ID) {
			e.reject(log, stats.PostRejections, types.StagePost, it.ID, types.ReasonDuplicate)
			continue
		}
		kept := make([]types.Reply, 0, len(it.Replies))
		for _, r := range it.Replies {
			if !merged.addReply(r.ID) {
				e.reject(log, stats.ReplyRejections, types.StageReply, r.ID, types.ReasonDuplicate)
				continue
			}
			kept = append(kept, r)
		}
		it.Replies = kept
		items = append(items, it)
	}
	return items
}

// score runs Phase B in place. A query-embedding failure switches the run to
// the configured fallback and marks it degraded; a single item's failure
// leaves that item at 0.0.
func (e *Engine) score(ctx context.Context, plan types.SearchPlan, strategy scoring.Strategy, items []types.Item, stats *types.RunStats, log *zap.Logger) {
	stats.Strategy = strategy.Name()
	if len(items) == 0 {
		return
	}

	q := scoring.QueryContext{Query: plan.QueryText(), Terms: plan.SearchTerms}
	if err := strategy.Prepare(ctx, q); err != nil {
		fallback := scoring.Fallback(e.cfg)
		log.Warn("Query embedding unavailable, ranking degraded",
			zap.String("fallback", fallback.Name()),
			zap.Error(err))
		if err := fallback.Prepare(ctx, q); err != nil {
			fallback = scoring.Degraded{}
		}
		strategy = fallback
		stats.Degraded = true
		stats.Strategy = strategy.Name()
	}

	candidates := make([]scoring.Candidate, len(items))
	for i, it := range items {
		candidates[i] = scoring.Candidate{ID: it.ID, Title: it.Title, Body: it.Body, Popularity: it.PopularityScore}
	}

	var (
		scores []scoring.Score
		errs   []error
	)
	if bs, ok := strategy.(scoring.BatchScorer); ok {
		scores, errs = bs.ScoreAll(ctx, candidates)
	} else {
		scores = make([]scoring.Score, len(candidates))
		errs = make([]error, len(candidates))
		for i, c := range candidates {
			scores[i], errs[i] = strategy.Score(ctx, c)
		}
	}

	for i := range items {
		if errs[i] != nil {
			stats.ScoringFailures++
			log.Warn("Scoring failed, using 0.0", zap.String("id", items[i].ID), zap.Error(errs[i]))
			items[i].RelevanceScore = 0
			items[i].MatchedSignals = []string{}
			continue
		}
		items[i].RelevanceScore = scores[i].Value
		items[i].MatchedSignals = scores[i].Signals
		if items[i].MatchedSignals == nil {
			items[i].MatchedSignals = []string{}
		}
	}
}

// reject records one ValidationRejection.
func (e *Engine) reject(log *zap.Logger, counts map[string]int, stage, id string, reason types.RejectReason) {
	counts[string(reason)]++
	e.metrics.ObserveRejection(stage, string(reason))
	log.Info("Candidate rejected",
		zap.String("stage", stage),
		zap.String("id", id),
		zap.String("reason", string(reason)))
}

func addCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}
