package ledger

import (
	"context"
	"time"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

// Recorder turns submission results into ledger entries of one run
type Recorder struct {
	runID  string
	writer Writer
	now    func() time.Time
}

// NewRecorder creates a recorder appending to w
func NewRecorder(runID string, w Writer) *Recorder {
	return &Recorder{runID: runID, writer: w, now: time.Now}
}

// Record appends the entry of res
func (r *Recorder) Record(ctx context.Context, stream string, res prepurchase.SubmissionResult) error {
	return r.writer.Append(ctx, NewEntry(r.runID, stream, res, r.now()))
}
