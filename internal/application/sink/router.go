package sink

import (
	"context"
	"fmt"
	"sort"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"go.uber.org/zap"
)

// Factory builds the sink of a stream on first use
type Factory func() *Sink

// Router delivers records to the sink registered for their stream and folds
// the results into the state tracker.
type Router struct {
	factories map[string]Factory
	sinks     map[string]*Sink
	order     []string
	tracker   *StateTracker
	logger    *zap.Logger
}

// NewRouter creates a router reporting into tracker
func NewRouter(tracker *StateTracker, logger *zap.Logger) *Router {
	if tracker == nil {
		tracker = NewStateTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		factories: make(map[string]Factory),
		sinks:     make(map[string]*Sink),
		tracker:   tracker,
		logger:    logger,
	}
}

// Register associates stream with a sink factory
func (r *Router) Register(stream string, factory Factory) {
	r.factories[stream] = factory
}

// Streams returns the registered stream names, sorted
func (r *Router) Streams() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Tracker returns the state tracker
func (r *Router) Tracker() *StateTracker {
	return r.tracker
}

// Sink returns the active sink of stream, if it was created
func (r *Router) Sink(stream string) (*Sink, bool) {
	s, ok := r.sinks[stream]
	return s, ok
}

// Route processes record on the sink of stream.
// Errors wrap ErrMalformedRecord or ErrUnknownStream; any other error is
// fatal and comes from the sink.
func (r *Router) Route(ctx context.Context, stream string, record prepurchase.Record) error {
	if stream == "" {
		return fmt.Errorf("%w: missing stream name", prepurchase.ErrMalformedRecord)
	}
	if record == nil {
		return fmt.Errorf("%w: stream %q: empty record", prepurchase.ErrMalformedRecord, stream)
	}

	s, err := r.sinkFor(stream)
	if err != nil {
		return err
	}

	before := s.Skips().TotalCount()
	results, err := s.Process(ctx, record)
	r.tracker.Apply(stream, results...)
	r.tracker.Dropped(stream, s.Skips().TotalCount()-before)
	return err
}

// Drain flushes every active sink in creation order. It stops at the first
// fatal error.
func (r *Router) Drain(ctx context.Context) error {
	for _, stream := range r.order {
		results, err := r.sinks[stream].Drain(ctx)
		r.tracker.Apply(stream, results...)
		if err != nil {
			return fmt.Errorf("drain %s: %w", stream, err)
		}
	}
	return nil
}

func (r *Router) sinkFor(stream string) (*Sink, error) {
	if s, ok := r.sinks[stream]; ok {
		return s, nil
	}
	factory, ok := r.factories[stream]
	if !ok {
		return nil, fmt.Errorf("%w: %q", prepurchase.ErrUnknownStream, stream)
	}
	s := factory()
	r.sinks[stream] = s
	r.order = append(r.order, stream)
	r.logger.Info("Sink created", zap.String("stream", stream), zap.String("mode", s.Mode().String()))
	return s, nil
}
