// Package types provides the data contracts shared between the evidence
// fetcher and its collaborators.
//
// # Inbound
//
// SearchPlan is produced by the query planner and consumed read-only:
//
//	plan := types.SearchPlan{
//	    ID:          "6751f2ae-d9e7-47f4-b439-93648bf08b5b",
//	    Query:       "How do I fix a leaky faucet?",
//	    SearchTerms: []string{"leaky faucet"},
//	    Communities: []string{"diy"},
//	}
//	if err := plan.Normalized().Validate(); err != nil {
//	    // errors.Is(err, types.ErrInvalidPlan)
//	}
//
// # Outbound
//
// FetchResult is the only value that leaves the engine. It carries the
// ordered Items, each with a non-empty citation URL and its Replies, plus a
// flat copy of every emitted Reply and the run statistics.
//
// # Rejections
//
// RejectReason enumerates the expected, non-error outcomes of veto,
// relevance and quality checks. They are counted in RunStats and logged,
// never returned as errors.
package types
