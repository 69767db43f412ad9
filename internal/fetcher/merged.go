package fetcher

import (
	"sync"

	"github.com/dshills/evidencefetch/internal/quality"
)

// mergedSet is the run's dedup state. Only the coordinator adds to it; tasks
// may ask whether an item was already merged so they can skip its replies.
type mergedSet struct {
	mu   sync.RWMutex
	seen *quality.Seen
}

func newMergedSet() *mergedSet {
	return &mergedSet{seen: quality.NewSeen()}
}

func (m *mergedSet) addItem(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen.AddItem(id)
}

func (m *mergedSet) addReply(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen.AddReply(id)
}

// hasItem reports whether id is already part of the run's result. A true
// answer is final; false may race with a merge in flight.
func (m *mergedSet) hasItem(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seen.HasItem(id)
}

func (m *mergedSet) len() (items, replies int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seen.Len()
}
