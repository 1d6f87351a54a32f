// Package pipeline runs one capture from camera to record store and archive.
//
// A run moves Idle → Capturing → Extracting → Persisting → Archiving → Idle.
// Capture and OCR failures end the run early. Persist, publish and archive
// failures are reported in the result without stopping later stages.
package pipeline

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lanewatch/lanewatch/internal/datastore"
	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
	"github.com/lanewatch/lanewatch/internal/ocr"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

// FrameSource captures one still
type FrameSource interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Enhancer conditions a frame for OCR
type Enhancer interface {
	Enhance(img image.Image) (image.Image, error)
}

// Extractor recognizes numbers in input and marks them on base
type Extractor interface {
	ExtractOnto(ctx context.Context, input, base image.Image) (ocr.Extraction, error)
}

// Appender persists records
type Appender interface {
	Append(ctx context.Context, records ...datastore.Record) error
}

// Archiver names and writes archive images
type Archiver interface {
	FileName(prefix string, at time.Time) string
	NameFor(numbers []string, at time.Time) string
	Save(name string, img image.Image) (string, error)
}

// Publisher sends one message
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// RawPrefix names the unannotated copy kept with archive.saveraw
const RawPrefix = "raw"

// Orchestrator runs captures one at a time
type Orchestrator struct {
	source    FrameSource
	enhancer  Enhancer
	extractor Extractor
	store     Appender
	archiver  Archiver
	publisher Publisher
	topic     string

	portLabel string
	annotate  bool
	saveRaw   bool

	recorder metrics.Recorder
	now      func() time.Time
	log      logger.Logger

	runMu sync.Mutex
	state atomic.Int32
}

// New returns an orchestrator. A nil enhancer feeds the raw frame to OCR and
// a nil store skips persisting.
func New(source FrameSource, enhancer Enhancer, extractor Extractor, store Appender, opts ...Option) (*Orchestrator, error) {
	if source == nil || extractor == nil {
		return nil, errors.Newf("pipeline needs a frame source and an extractor").
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Build()
	}

	o := &Orchestrator{
		source:    source,
		enhancer:  enhancer,
		extractor: extractor,
		store:     store,
		portLabel: DefaultPortLabel,
		annotate:  true,
		recorder:  metrics.NopRecorder{},
		now:       time.Now,
		log:       logger.Global().Module("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current state
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Run executes one capture for ev. Concurrent calls are serialized so the
// camera is never opened twice. Run always returns to Idle.
func (o *Orchestrator) Run(ctx context.Context, ev trigger.Event) (res RunResult) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	start := time.Now()
	res = RunResult{RunID: uuid.NewString(), Source: ev.Source}
	ctx = logger.WithTraceID(ctx, res.RunID)
	log := o.log.WithContext(ctx).With(logger.String("source", string(ev.Source)))

	defer func() {
		o.setState(StateIdle)
		res.Duration = time.Since(start)
		o.recorder.RecordOperation(metrics.OpRun, string(res.Outcome))
		o.recorder.RecordDuration(metrics.OpRun, res.Duration.Seconds())
	}()

	log.Info("run started")

	// Capturing
	o.setState(StateCapturing)
	raw, err := timed(o, metrics.OpCapture, func() (image.Image, error) { return o.source.Capture(ctx) })
	if err != nil {
		res.Outcome = OutcomeNoFrame
		res.Errors = append(res.Errors, StageError{metrics.OpCapture, err})
		log.Error("capture failed", logger.Error(err))
		return res
	}
	res.CapturedAt = o.now()
	res.Capture.Raw = raw

	// Extracting
	o.setState(StateExtracting)
	processed := raw
	if o.enhancer != nil {
		enhanced, err := timed(o, metrics.OpEnhance, func() (image.Image, error) { return o.enhancer.Enhance(raw) })
		if err != nil {
			res.Errors = append(res.Errors, StageError{metrics.OpEnhance, err})
			log.Warn("enhancement failed, using raw frame", logger.Error(err))
		} else {
			processed = enhanced
		}
	}
	res.Capture.Processed = processed

	extraction, err := timed(o, metrics.OpExtract, func() (ocr.Extraction, error) {
		return o.extractor.ExtractOnto(ctx, processed, raw)
	})
	if err != nil {
		res.Outcome = OutcomeOCRFailed
		res.Errors = append(res.Errors, StageError{metrics.OpExtract, err})
		log.Error("text recognition failed", logger.Error(err))
		return res
	}
	res.Numbers = extraction.Numbers
	res.Capture.Numbers = extraction.Numbers
	res.Capture.Annotated = extraction.Annotated
	for range res.Numbers {
		o.recorder.RecordOperation(metrics.OpNumbers, metrics.StatusSuccess)
	}
	log.Info("numbers extracted", logger.Strings("numbers", res.Numbers))

	// Persisting
	o.setState(StatePersisting)
	o.persist(ctx, log, &res)
	o.publish(ctx, log, &res)

	// Archiving
	o.setState(StateArchiving)
	o.archive(log, &res)

	res.Outcome = OutcomeCompleted
	log.Info("run finished",
		logger.Int("numbers", len(res.Numbers)),
		logger.String("archived", res.ArchivedPath),
		logger.Int("errors", len(res.Errors)))
	return res
}

func (o *Orchestrator) persist(ctx context.Context, log logger.Logger, res *RunResult) {
	if o.store == nil || len(res.Numbers) == 0 {
		o.recorder.RecordOperation(metrics.OpPersist, metrics.StatusSkipped)
		return
	}

	records := datastore.NewRecords(o.portLabel, res.CapturedAt, res.Numbers...)
	_, err := timed(o, metrics.OpPersist, func() (struct{}, error) {
		return struct{}{}, o.store.Append(ctx, records...)
	})
	if err != nil {
		res.Errors = append(res.Errors, StageError{metrics.OpPersist, err})
		log.Error("failed to persist records", logger.Int("records", len(records)), logger.Error(err))
		return
	}
	res.Persisted = len(records)
}

// publish sends every number on its own message. Failures are counted, never retried.
func (o *Orchestrator) publish(ctx context.Context, log logger.Logger, res *RunResult) {
	if o.publisher == nil {
		return
	}
	for _, n := range res.Numbers {
		if err := o.publisher.Publish(ctx, o.topic, n); err != nil {
			o.recorder.RecordOperation(metrics.OpPublish, metrics.StatusError)
			o.recorder.RecordError(metrics.OpPublish, errorType(err))
			res.Errors = append(res.Errors, StageError{metrics.OpPublish, err})
			log.Warn("failed to publish number", logger.String("number", n), logger.Error(err))
			continue
		}
		o.recorder.RecordOperation(metrics.OpPublish, metrics.StatusSuccess)
		res.Published++
	}
}

func (o *Orchestrator) archive(log logger.Logger, res *RunResult) {
	if o.archiver == nil {
		o.recorder.RecordOperation(metrics.OpArchive, metrics.StatusSkipped)
		return
	}

	img := res.Capture.Raw
	if o.annotate && res.Capture.Annotated != nil {
		img = res.Capture.Annotated
	}

	path, err := timed(o, metrics.OpArchive, func() (string, error) {
		return o.archiver.Save(o.archiver.NameFor(res.Numbers, res.CapturedAt), img)
	})
	if err != nil {
		res.Errors = append(res.Errors, StageError{metrics.OpArchive, err})
		log.Error("failed to archive image", logger.Error(err))
	} else {
		res.ArchivedPath = path
	}

	if !o.saveRaw {
		return
	}
	path, err = timed(o, metrics.OpArchive, func() (string, error) {
		return o.archiver.Save(o.archiver.FileName(RawPrefix, res.CapturedAt), res.Capture.Raw)
	})
	if err != nil {
		res.Errors = append(res.Errors, StageError{metrics.OpArchive, err})
		log.Error("failed to archive raw frame", logger.Error(err))
		return
	}
	res.RawPath = path
}

// timed runs fn as stage op and records its status, duration and error type.
func timed[T any](o *Orchestrator, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	o.recorder.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		o.recorder.RecordOperation(op, metrics.StatusError)
		o.recorder.RecordError(op, errorType(err))
		return v, err
	}
	o.recorder.RecordOperation(op, metrics.StatusSuccess)
	return v, nil
}

func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
