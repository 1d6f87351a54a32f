package pipeline

import (
	"image"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

// State of the orchestrator
type State int32

const (
	StateIdle State = iota
	StateCapturing
	StateExtracting
	StatePersisting
	StateArchiving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateExtracting:
		return "extracting"
	case StatePersisting:
		return "persisting"
	case StateArchiving:
		return "archiving"
	default:
		return "unknown"
	}
}

// Outcome of a run
type Outcome string

const (
	// OutcomeCompleted means the run reached Archiving. Persist, publish and
	// archive failures are still reported in RunResult.Errors.
	OutcomeCompleted Outcome = "completed"
	OutcomeNoFrame   Outcome = "no_frame"
	OutcomeOCRFailed Outcome = "ocr_failed"
)

// CaptureResult holds the images and numbers of one run
type CaptureResult struct {
	Raw       image.Image
	Processed image.Image
	Annotated image.Image
	Numbers   []string
}

// StageError is a failure of one stage
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e StageError) Unwrap() error {
	return e.Err
}

// RunResult summarizes one run
type RunResult struct {
	RunID        string
	Source       trigger.Source
	Outcome      Outcome
	CapturedAt   time.Time
	Numbers      []string
	Persisted    int
	Published    int
	ArchivedPath string
	RawPath      string
	Capture      CaptureResult
	Errors       []StageError
	Duration     time.Duration
}

// Err joins the stage errors, nil for a clean run
func (r RunResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Failed reports whether stage recorded an error
func (r RunResult) Failed(stage string) bool {
	for _, e := range r.Errors {
		if e.Stage == stage {
			return true
		}
	}
	return false
}
