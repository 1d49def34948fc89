// Package ledger keeps an append-only record of submission outcomes, outside
// the pipeline state, for audits and replays.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

// Entry is one recorded submission outcome
type Entry struct {
	ID       string         `json:"id"`
	RunID    string         `json:"runId"`
	Stream   string         `json:"stream"`
	ResultID string         `json:"resultId,omitempty"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Items    int            `json:"items"`
	State    map[string]any `json:"state,omitempty"`
	At       time.Time      `json:"at"`
}

// NewEntry builds the entry of res
func NewEntry(runID, stream string, res prepurchase.SubmissionResult, at time.Time) Entry {
	return Entry{
		ID:       uuid.NewString(),
		RunID:    runID,
		Stream:   stream,
		ResultID: res.ID,
		Success:  res.Success,
		Error:    res.Error(),
		Items:    res.Items,
		State:    res.State,
		At:       at.UTC(),
	}
}
