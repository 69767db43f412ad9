// Package fetcher runs the two-phase evidence pipeline for one SearchPlan.
//
// Phase A fans out one task per (community, search term) pair. Each task
// owns its own transport session and takes candidates through veto,
// normalisation, the strategy gate and the length check, then fetches and
// filters the surviving post's replies. Tasks return plain values; the
// coordinating goroutine merges them and applies the run-scoped duplicate
// check, so workers never share mutable state.
//
// Phase B starts once every task has returned. It scores the merged
// candidates with the run's strategy, then the assembler sorts by
// relevance and popularity, truncates and emits an immutable FetchResult.
//
// Usage:
//
//	eng, err := fetcher.New(fetcher.Options{
//	    Config: cfg,
//	    Source: fetcher.RedditSource{Client: client},
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := eng.Fetch(ctx, plan)
package fetcher
