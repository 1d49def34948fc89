package singer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/optiply/target-vendit/internal/application/sink"
	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/optiply/target-vendit/internal/infrastructure/stream"
)

// drainTimeout bounds the final flush after cancellation
const drainTimeout = 30 * time.Second

// Stats counts the messages handled by a run
type Stats struct {
	Messages  int
	Records   int
	Malformed int
	States    int
}

// Runner drives the router from a message source
type Runner struct {
	router   *sink.Router
	schemas  *SchemaRegistry
	out      io.Writer
	logger   *zap.Logger
	validate bool
	stats    Stats
	// upstream is the latest state received from the tap
	upstream map[string]any
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the runner logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSchemaValidation validates records against their stream schema
func WithSchemaValidation(enabled bool) Option {
	return func(r *Runner) {
		r.validate = enabled
	}
}

// NewRunner creates a runner writing state messages to out
func NewRunner(router *sink.Router, out io.Writer, opts ...Option) *Runner {
	r := &Runner{
		router:  router,
		schemas: NewSchemaRegistry(),
		out:     out,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats returns the message counters
func (r *Runner) Stats() Stats { return r.stats }

// Schemas returns the schema registry
func (r *Runner) Schemas() *SchemaRegistry { return r.schemas }

// Run consumes src until it is exhausted, then drains every sink and writes
// the final state. When ctx is cancelled the sinks are still drained.
// The returned error is fatal: unknown stream, missing credentials or a
// broken source.
func (r *Runner) Run(ctx context.Context, src stream.Source) error {
	for {
		line, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return r.finish(ctx)
			}
			if ctx.Err() != nil {
				r.logger.Warn("Interrupted, draining sinks")
				dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
				defer cancel()
				return r.finish(dctx)
			}
			return fmt.Errorf("read input: %w", err)
		}

		if err := r.handle(ctx, line); err != nil {
			return err
		}
	}
}

func (r *Runner) handle(ctx context.Context, line []byte) error {
	r.stats.Messages++

	msg, err := Decode(line)
	if err != nil {
		r.stats.Malformed++
		r.logger.Warn("Skipping malformed message", zap.Int("message", r.stats.Messages), zap.Error(err))
		return nil
	}

	switch msg.Type {
	case TypeSchema:
		return r.handleSchema(msg)
	case TypeRecord:
		return r.handleRecord(ctx, msg)
	case TypeState:
		r.stats.States++
		r.rememberState(msg.Value)
		if err := r.router.Drain(ctx); err != nil {
			return err
		}
		return r.emitState()
	default:
		r.logger.Debug("Ignoring message", zap.String("type", string(msg.Type)), zap.String("stream", msg.Stream))
		return nil
	}
}

func (r *Runner) handleSchema(msg Message) error {
	if !r.validate || len(msg.Schema) == 0 {
		return nil
	}
	if err := r.schemas.Register(msg.Stream, msg.Schema); err != nil {
		r.logger.Warn("Ignoring invalid schema", zap.String("stream", msg.Stream), zap.Error(err))
	}
	return nil
}

func (r *Runner) handleRecord(ctx context.Context, msg Message) error {
	r.stats.Records++

	if r.validate && msg.Record != nil {
		if err := r.schemas.Validate(msg.Stream, msg.Record); err != nil {
			r.stats.Malformed++
			r.router.Tracker().Dropped(msg.Stream, 1)
			r.logger.Warn("Skipping record", zap.String("stream", msg.Stream), zap.Error(err))
			return nil
		}
	}

	err := r.router.Route(ctx, msg.Stream, msg.Record)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, prepurchase.ErrMalformedRecord):
		r.stats.Malformed++
		r.logger.Warn("Skipping record", zap.String("stream", msg.Stream), zap.Error(err))
		return nil
	default:
		return err
	}
}

func (r *Runner) finish(ctx context.Context) error {
	if err := r.router.Drain(ctx); err != nil {
		return err
	}
	r.logger.Info("Input exhausted",
		zap.Int("messages", r.stats.Messages),
		zap.Int("records", r.stats.Records),
		zap.Int("malformed", r.stats.Malformed),
	)
	return r.emitState()
}

func (r *Runner) rememberState(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	v, err := decodeState(raw)
	if err != nil {
		r.logger.Warn("Ignoring upstream state", zap.Error(err))
		return
	}
	r.upstream = v
}

// State returns the state the runner emits: the latest upstream state with
// the target's bookmarks merged in and its summary attached.
func (r *Runner) State() map[string]any {
	snap := r.router.Tracker().Snapshot()
	if r.upstream == nil {
		return snap
	}

	out := make(map[string]any, len(r.upstream)+2)
	for k, v := range r.upstream {
		out[k] = v
	}
	bookmarks := make(map[string]any)
	if up, ok := r.upstream["bookmarks"].(map[string]any); ok {
		for k, v := range up {
			bookmarks[k] = v
		}
	}
	if own, ok := snap["bookmarks"].(map[string]any); ok {
		for k, v := range own {
			bookmarks[k] = v
		}
	}
	out["bookmarks"] = bookmarks
	out["summary"] = snap["summary"]
	return out
}

func (r *Runner) emitState() error {
	b, err := json.Marshal(stateMessage{Type: TypeState, Value: r.State()})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	b = append(b, '\n')
	if _, err := r.out.Write(b); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
