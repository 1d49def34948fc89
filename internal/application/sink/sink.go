package sink

import (
	"context"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"go.uber.org/zap"
)

// Config holds per-stream sink settings
type Config struct {
	Stream       string
	Mode         Mode
	MaxBatchSize int
	Defaults     prepurchase.Defaults
	// MaxRetainedSkips bounds the skips kept for reporting
	MaxRetainedSkips int
}

// Sink is the per-stream destination: it normalizes records and hands their
// payloads to its dispatcher.
//
// In buffered mode direct records are batched. Composite records are always
// submitted one line item per request, so a failing line never takes its
// siblings down with it.
type Sink struct {
	cfg        Config
	normalizer *prepurchase.Normalizer
	dispatcher *Dispatcher
	skips      *prepurchase.SkipCollection
	records    int
	logger     *zap.Logger
	observer   Observer
	recorder   Recorder
}

// Option configures a Sink
type Option func(*Sink)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the observer
func WithObserver(o Observer) Option {
	return func(s *Sink) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRecorder sets the outcome recorder
func WithRecorder(r Recorder) Option {
	return func(s *Sink) {
		s.recorder = r
	}
}

// WithNormalizer replaces the record normalizer
func WithNormalizer(n *prepurchase.Normalizer) Option {
	return func(s *Sink) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// New creates a sink submitting through importer
func New(cfg Config, importer prepurchase.Importer, opts ...Option) *Sink {
	if !cfg.Mode.IsValid() {
		cfg.Mode = ModeBuffered
	}
	s := &Sink{
		cfg:        cfg,
		normalizer: prepurchase.NewNormalizer(cfg.Defaults),
		skips:      prepurchase.NewSkipCollection(cfg.MaxRetainedSkips),
		logger:     zap.NewNop(),
		observer:   NopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("stream", cfg.Stream))
	s.dispatcher = NewDispatcher(cfg.Stream, importer,
		WithMaxBatchSize(cfg.MaxBatchSize),
		WithDispatcherLogger(s.logger),
		WithDispatcherObserver(s.observer),
	)
	return s
}

// Stream returns the stream name
func (s *Sink) Stream() string {
	return s.cfg.Stream
}

// Mode returns the submission mode
func (s *Sink) Mode() Mode {
	return s.cfg.Mode
}

// Dispatcher returns the sink's dispatcher
func (s *Sink) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Skips returns the skips collected so far
func (s *Sink) Skips() *prepurchase.SkipCollection {
	return s.skips
}

// Process normalizes a record and submits or buffers its payloads. It returns
// the results of the submissions the record triggered, in submission order.
// A non-nil error is fatal to the run.
func (s *Sink) Process(ctx context.Context, record prepurchase.Record) ([]prepurchase.SubmissionResult, error) {
	s.records++
	index := s.records

	out := s.normalizer.Normalize(record)
	s.observer.RecordReceived(s.cfg.Stream, out.Shape)
	s.report(index, out)

	var results []prepurchase.SubmissionResult
	// Buffered direct records go out before any later immediate submission.
	if out.Shape != prepurchase.ShapeDirect && len(out.Payloads) > 0 && s.dispatcher.Pending() > 0 {
		res, err := s.dispatcher.Flush(ctx)
		if err != nil {
			return results, err
		}
		if res != nil {
			results = append(results, s.complete(ctx, *res))
		}
	}
	for _, p := range out.Payloads {
		if s.cfg.Mode == ModeBuffered && out.Shape == prepurchase.ShapeDirect {
			res, err := s.dispatcher.Offer(ctx, p)
			if err != nil {
				return results, err
			}
			if res != nil {
				results = append(results, s.complete(ctx, *res))
			}
			continue
		}

		res, err := s.dispatcher.Submit(ctx, p)
		if err != nil {
			return results, err
		}
		results = append(results, s.complete(ctx, res))
	}
	return results, nil
}

// Drain flushes the buffered remainder. It must be called at stream end.
func (s *Sink) Drain(ctx context.Context) ([]prepurchase.SubmissionResult, error) {
	res, err := s.dispatcher.Flush(ctx)
	if err != nil || res == nil {
		return nil, err
	}
	if s.skips.HasSkips() {
		s.logger.Info("Skipped items so far", zap.String("summary", s.skips.String()))
	}
	return []prepurchase.SubmissionResult{s.complete(ctx, *res)}, nil
}

func (s *Sink) complete(ctx context.Context, res prepurchase.SubmissionResult) prepurchase.SubmissionResult {
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, s.cfg.Stream, res); err != nil {
			s.logger.Warn("Failed to record submission outcome", zap.String("id", res.ID), zap.Error(err))
		}
	}
	return res
}

func (s *Sink) report(index int, out prepurchase.Normalized) {
	for _, skip := range out.Notices {
		s.logger.Warn("Field defaulted",
			zap.Int("record", index),
			zap.Int("line", skip.Line),
			zap.String("field", string(skip.Field)),
			zap.String("code", string(skip.Code)),
			zap.Any("value", skip.Value),
			zap.String("reason", skip.Message),
		)
	}
	for _, skip := range out.Skips {
		s.skips.Add(skip)
		s.observer.ItemSkipped(s.cfg.Stream, skip)
		s.logger.Warn("Skipped item",
			zap.Int("record", index),
			zap.String("shape", out.Shape.String()),
			zap.Int("line", skip.Line),
			zap.String("field", string(skip.Field)),
			zap.String("code", string(skip.Code)),
			zap.Any("value", skip.Value),
			zap.String("reason", skip.Message),
		)
	}
}
