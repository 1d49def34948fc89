package sink

import (
	"context"
	"time"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

// Observer receives pipeline counters. Implementations must not block.
type Observer interface {
	RecordReceived(stream string, shape prepurchase.Shape)
	ItemSkipped(stream string, skip prepurchase.Skip)
	Submitted(stream string, result prepurchase.SubmissionResult, elapsed time.Duration)
	BatchFlushed(stream string, records, items int)
}

// Recorder persists submission outcomes outside the pipeline state.
type Recorder interface {
	Record(ctx context.Context, stream string, result prepurchase.SubmissionResult) error
}

// NopObserver discards all counters
type NopObserver struct{}

func (NopObserver) RecordReceived(string, prepurchase.Shape) {}
func (NopObserver) ItemSkipped(string, prepurchase.Skip) {}
func (NopObserver) Submitted(string, prepurchase.SubmissionResult, time.Duration) {}
func (NopObserver) BatchFlushed(string, int, int) {}

var _ Observer = NopObserver{}
