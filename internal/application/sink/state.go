package sink

import (
	"sync"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

// StreamSummary counts outcomes for one stream
type StreamSummary struct {
	Success int `json:"success"`
	Fail    int `json:"fail"`
	Items   int `json:"items"`
	Dropped int `json:"dropped"`
}

// StateTracker folds submission results into the target state emitted to the
// pipeline. It is read by the admin server while the pipeline writes, hence the lock.
type StateTracker struct {
	mu        sync.RWMutex
	bookmarks map[string][]map[string]any
	summary   map[string]*StreamSummary
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		bookmarks: make(map[string][]map[string]any),
		summary:   make(map[string]*StreamSummary),
	}
}

// Apply records results for stream
func (t *StateTracker) Apply(stream string, results ...prepurchase.SubmissionResult) {
	if len(results) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	sum := t.summaryFor(stream)
	for _, r := range results {
		mark := make(map[string]any, len(r.State)+2)
		for k, v := range r.State {
			mark[k] = v
		}
		if r.HasID() {
			mark["id"] = r.ID
		}
		mark["success"] = r.Success
		t.bookmarks[stream] = append(t.bookmarks[stream], mark)

		if r.Success {
			sum.Success++
			sum.Items += r.Items
		} else {
			sum.Fail++
		}
	}
}

// Dropped counts items dropped before submission
func (t *StateTracker) Dropped(stream string, n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summaryFor(stream).Dropped += n
}

// Summary returns a copy of the counters for stream
func (t *StateTracker) Summary(stream string) StreamSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.summary[stream]; ok {
		return *s
	}
	return StreamSummary{}
}

// Snapshot returns the state value:
// {"bookmarks": {stream: [...]}, "summary": {stream: {...}}}
func (t *StateTracker) Snapshot() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	bookmarks := make(map[string]any, len(t.bookmarks))
	for stream, marks := range t.bookmarks {
		cp := make([]map[string]any, len(marks))
		for i, m := range marks {
			mc := make(map[string]any, len(m))
			for k, v := range m {
				mc[k] = v
			}
			cp[i] = mc
		}
		bookmarks[stream] = cp
	}
	summary := make(map[string]any, len(t.summary))
	for stream, s := range t.summary {
		summary[stream] = *s
	}
	return map[string]any{
		"bookmarks": bookmarks,
		"summary":   summary,
	}
}

func (t *StateTracker) summaryFor(stream string) *StreamSummary {
	s, ok := t.summary[stream]
	if !ok {
		s = &StreamSummary{}
		t.summary[stream] = s
	}
	return s
}
