// Package transport holds what the push and poll adapters share: the step
// from a received trigger through the gate into the pipeline.
package transport

import (
	"context"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
	"github.com/lanewatch/lanewatch/internal/pipeline"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

// ErrTransportUnavailable marks a broker or controller that cannot be reached
var ErrTransportUnavailable = errors.NewStd("trigger transport unavailable")

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, ev trigger.Event) pipeline.RunResult
}

// Dispatcher evaluates events against the gate and runs the admitted ones.
type Dispatcher struct {
	gate     *trigger.Gate
	runner   Runner
	recorder metrics.Recorder
	now      func() time.Time
	log      logger.Logger
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithRecorder records gate decisions
func WithRecorder(r metrics.Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithClock sets the clock the gate is evaluated against
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithLogger replaces the dispatcher logger
func WithLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDispatcher returns a dispatcher over gate and runner
func NewDispatcher(gate *trigger.Gate, runner Runner, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		gate:     gate,
		runner:   runner,
		recorder: metrics.NopRecorder{},
		now:      time.Now,
		log:      logger.Global().Module("transport"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle evaluates ev at the time of processing and runs the pipeline when the
// gate admits it. The returned result is zero when the event was dropped.
func (d *Dispatcher) Handle(ctx context.Context, ev trigger.Event) (pipeline.RunResult, trigger.Decision) {
	decision := d.gate.Evaluate(ev, d.now())
	d.recorder.RecordOperation(metrics.OpGate, string(decision.Reason))

	if !decision.Admitted {
		fields := []logger.Field{
			logger.String("source", string(ev.Source)),
			logger.String("reason", string(decision.Reason)),
		}
		if decision.Reason == trigger.ReasonCooldown {
			fields = append(fields, logger.Duration("remaining", decision.Remaining))
			d.log.Info("trigger dropped", fields...)
		} else {
			d.log.Debug("trigger dropped", fields...)
		}
		return pipeline.RunResult{}, decision
	}

	d.log.Info("trigger accepted", logger.String("source", string(ev.Source)))
	return d.runner.Run(ctx, ev), decision
}

// Unavailable wraps err as a transport failure of component
func Unavailable(err error, component string, category errors.ErrorCategory) error {
	return errors.New(errors.Join(ErrTransportUnavailable, err)).
		Component(component).
		Category(category).
		Build()
}
