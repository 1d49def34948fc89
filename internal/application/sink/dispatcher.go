package sink

import (
	"context"
	"errors"
	"time"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/optiply/target-vendit/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultMaxBatchSize is the number of buffered records that triggers a flush
const DefaultMaxBatchSize = 100

// Dispatcher submits payloads to the importer, either immediately or through
// a bounded batch. A dispatcher serves one stream and is not safe for
// concurrent use.
type Dispatcher struct {
	stream   string
	importer prepurchase.Importer
	maxBatch int
	batch    []prepurchase.Payload
	flushes  int
	logger   *zap.Logger
	observer Observer
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithMaxBatchSize sets the flush threshold; values below 1 keep the default
func WithMaxBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBatch = n
		}
	}
}

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDispatcherObserver sets the observer
func WithDispatcherObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// NewDispatcher creates a dispatcher for stream
func NewDispatcher(stream string, importer prepurchase.Importer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		stream:   stream,
		importer: importer,
		maxBatch: DefaultMaxBatchSize,
		logger:   zap.NewNop(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pending returns the number of buffered records
func (d *Dispatcher) Pending() int {
	return len(d.batch)
}

// PendingItems returns the number of items across buffered records
func (d *Dispatcher) PendingItems() int {
	n := 0
	for _, p := range d.batch {
		n += p.Len()
	}
	return n
}

// Flushes returns how many times the batch was flushed
func (d *Dispatcher) Flushes() int {
	return d.flushes
}

// MaxBatchSize returns the flush threshold
func (d *Dispatcher) MaxBatchSize() int {
	return d.maxBatch
}

// Offer buffers p and flushes when the batch reaches its maximum size.
// It returns the flush result when a flush happened; empty payloads are ignored.
func (d *Dispatcher) Offer(ctx context.Context, p prepurchase.Payload) (*prepurchase.SubmissionResult, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	d.batch = append(d.batch, p)
	if len(d.batch) < d.maxBatch {
		return nil, nil
	}
	return d.Flush(ctx)
}

// Flush submits every buffered item in one request. The batch is reset before
// the submission, so a failed flush is not retried and its items are reported
// only through the failed result.
func (d *Dispatcher) Flush(ctx context.Context) (*prepurchase.SubmissionResult, error) {
	if len(d.batch) == 0 {
		return nil, nil
	}

	records := len(d.batch)
	merged := prepurchase.Merge(d.batch...)
	d.batch = nil
	d.flushes++
	d.observer.BatchFlushed(d.stream, records, merged.Len())

	if merged.IsEmpty() {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "dispatcher.flush",
		telemetry.WithAttribute(telemetry.SpanAttrStream, d.stream),
		telemetry.WithAttribute(telemetry.SpanAttrRecords, records),
		telemetry.WithAttribute(telemetry.SpanAttrItems, merged.Len()),
	)
	defer span.End()

	res, err := d.submit(ctx, merged)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	d.logger.Info("Flushed batch",
		zap.String("stream", d.stream),
		zap.Int("records", records),
		zap.Int("items", merged.Len()),
		zap.Bool("success", res.Success),
	)
	return &res, nil
}

// Submit sends p as its own request, bypassing the batch.
func (d *Dispatcher) Submit(ctx context.Context, p prepurchase.Payload) (prepurchase.SubmissionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "dispatcher.submit",
		telemetry.WithAttribute(telemetry.SpanAttrStream, d.stream),
		telemetry.WithAttribute(telemetry.SpanAttrItems, p.Len()),
	)
	defer span.End()

	res, err := d.submit(ctx, p)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return res, err
}

// submit maps the importer outcome to a result. Only credential failures are
// returned as errors; everything else becomes a failed result.
func (d *Dispatcher) submit(ctx context.Context, p prepurchase.Payload) (prepurchase.SubmissionResult, error) {
	start := time.Now()
	resp, err := d.importer.Import(ctx, p)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, prepurchase.ErrCredentialsUnavailable) {
			return prepurchase.SubmissionResult{}, err
		}
		res := prepurchase.Failed(err, p.Len())
		d.observer.Submitted(d.stream, res, elapsed)
		d.logger.Error("Submission failed",
			zap.String("stream", d.stream),
			zap.Int("items", p.Len()),
			zap.String("correlation_id", p.CorrelationID()),
			zap.Error(err),
		)
		return res, nil
	}

	id := resp.AssignedID()
	if id == "" {
		id = p.CorrelationID()
	}
	res := prepurchase.Succeeded(id, p.Len())
	d.observer.Submitted(d.stream, res, elapsed)
	d.logger.Debug("Submission accepted",
		zap.String("stream", d.stream),
		zap.Int("items", p.Len()),
		zap.String("id", id),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}
