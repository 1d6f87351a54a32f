// Package metrics provides the Prometheus collectors used by lanewatch.
package metrics

import "sync"

// Recorder defines a minimal interface for recording metrics.
// Components depend on it instead of concrete collectors so tests can pass a
// TestRecorder.
type Recorder interface {
	// RecordOperation records an operation and its status (e.g. "run", "archived").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type, usually the
	// error category.
	RecordError(operation, errorType string)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string) {}

// TestRecorder keeps every call in memory. It is safe for concurrent use.
type TestRecorder struct {
	mu         sync.Mutex
	operations map[string]int
	durations  map[string][]float64
	errors     map[string]int
}

// NewTestRecorder returns an empty TestRecorder
func NewTestRecorder() *TestRecorder {
	return &TestRecorder{
		operations: make(map[string]int),
		durations:  make(map[string][]float64),
		errors:     make(map[string]int),
	}
}

func (r *TestRecorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation+":"+status]++
}

func (r *TestRecorder) RecordDuration(operation string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] = append(r.durations[operation], seconds)
}

func (r *TestRecorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[operation+":"+errorType]++
}

// Operations returns how often operation was recorded with status
func (r *TestRecorder) Operations(operation, status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operations[operation+":"+status]
}

// Durations returns the recorded durations of operation
func (r *TestRecorder) Durations(operation string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.durations[operation]...)
}

// Errors returns how often an error of errorType was recorded for operation
func (r *TestRecorder) Errors(operation, errorType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[operation+":"+errorType]
}
