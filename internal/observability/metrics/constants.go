// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation names accepted by the Recorder implementations.
const (
	// OpRun is one complete pipeline run, status is the run outcome.
	OpRun = "run"
	// OpCapture is the camera capture stage.
	OpCapture = "capture"
	// OpEnhance is the image enhancement stage.
	OpEnhance = "enhance"
	// OpExtract is the OCR stage.
	OpExtract = "extract"
	// OpPersist is the record store stage.
	OpPersist = "persist"
	// OpArchive is the image archive stage.
	OpArchive = "archive"
	// OpPublish is one result publish.
	OpPublish = "publish"
	// OpGate is one trigger gate decision, status is the decision reason.
	OpGate = "gate"
	// OpNumbers counts extracted numbers, status is ignored.
	OpNumbers = "numbers"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Histogram buckets in seconds. Capture includes the camera warm-up.
var (
	stageBuckets   = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 20}
	requestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2}
)

const (
	// ShutdownTimeout is the timeout for graceful shutdown operations.
	ShutdownTimeout = 5 * time.Second
)
