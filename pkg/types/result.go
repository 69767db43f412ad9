package types

import "time"

// FetchResult is the engine's sole output. Items are ordered by relevance
// then popularity; Replies is the flat view of every reply nested in Items.
type FetchResult struct {
	PlanID      string    `json:"plan_id"`
	Query       string    `json:"query,omitempty"`
	SearchTerms []string  `json:"search_terms"`
	Communities []string  `json:"communities"`
	Notes       string    `json:"notes,omitempty"`
	Source      string    `json:"source"`
	FetchedAt   time.Time `json:"fetched_at"`
	Items       []Item    `json:"items"`
	Replies     []Reply   `json:"replies"`
	Stats       RunStats  `json:"stats"`
}

// RunStats summarizes what happened during a run.
type RunStats struct {
	RunID           string         `json:"run_id"`
	Strategy        string         `json:"strategy"`
	Degraded        bool           `json:"degraded"`
	Cancelled       bool           `json:"cancelled"`
	Tasks           int            `json:"tasks"`
	FailedTasks     int            `json:"failed_tasks"`
	CandidatesSeen  int            `json:"candidates_seen"`
	ItemsBuilt      int            `json:"items_built"`
	ItemsEmitted    int            `json:"items_emitted"`
	ScoringFailures int            `json:"scoring_failures"`
	PostRejections  map[string]int `json:"post_rejections"`
	ReplyRejections map[string]int `json:"reply_rejections"`
	DurationMillis  int64          `json:"duration_ms"`
}

// Validate checks every Item's invariants.
func (r *FetchResult) Validate() error {
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
