package pipeline

import (
	"time"

	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
)

// DefaultPortLabel is written with every record unless overridden
const DefaultPortLabel = "CAM1"

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithArchiver enables image archival
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) {
		o.archiver = a
	}
}

// WithPublisher publishes every extracted number on topic after persisting
func WithPublisher(p Publisher, topic string) Option {
	return func(o *Orchestrator) {
		o.publisher = p
		o.topic = topic
	}
}

// WithPortLabel sets the port label of persisted records
func WithPortLabel(label string) Option {
	return func(o *Orchestrator) {
		if label != "" {
			o.portLabel = label
		}
	}
}

// WithAnnotate selects whether the annotated or the raw frame is archived
func WithAnnotate(annotate bool) Option {
	return func(o *Orchestrator) {
		o.annotate = annotate
	}
}

// WithSaveRaw additionally archives the raw frame as raw_{timestamp}
func WithSaveRaw(saveRaw bool) Option {
	return func(o *Orchestrator) {
		o.saveRaw = saveRaw
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock sets the clock used for capture timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithLogger replaces the module logger
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}
