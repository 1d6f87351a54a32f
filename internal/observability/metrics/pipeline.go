package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains the Prometheus metrics of the capture pipeline and
// the trigger gate. It implements Recorder.
type PipelineMetrics struct {
	RunsTotal        *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	StageOperations  *prometheus.CounterVec
	StageErrors      *prometheus.CounterVec
	NumbersExtracted prometheus.Counter
	GateDecisions    *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers the pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lanewatch_pipeline_runs_total",
		Help: "Total number of capture runs by outcome",
	}, []string{"outcome"})

	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lanewatch_pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds",
		Buckets: stageBuckets,
	}, []string{"stage"})

	m.StageOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lanewatch_pipeline_stage_operations_total",
		Help: "Total number of pipeline stage executions by status",
	}, []string{"stage", "status"})

	m.StageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lanewatch_pipeline_stage_errors_total",
		Help: "Total number of pipeline stage errors by category",
	}, []string{"stage", "category"})

	m.NumbersExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lanewatch_numbers_extracted_total",
		Help: "Total number of numbers extracted from captured images",
	})

	m.GateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lanewatch_trigger_decisions_total",
		Help: "Total number of trigger gate decisions by reason",
	}, []string{"reason"})
}

// RecordOperation implements Recorder.
func (m *PipelineMetrics) RecordOperation(operation, status string) {
	switch operation {
	case OpRun:
		m.RunsTotal.WithLabelValues(status).Inc()
	case OpGate:
		m.GateDecisions.WithLabelValues(status).Inc()
	case OpNumbers:
		m.NumbersExtracted.Inc()
	default:
		m.StageOperations.WithLabelValues(operation, status).Inc()
	}
}

// RecordDuration implements Recorder.
func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	m.StageDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *PipelineMetrics) RecordError(operation, errorType string) {
	m.StageErrors.WithLabelValues(operation, errorType).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RunsTotal.Describe(ch)
	m.StageDuration.Describe(ch)
	m.StageOperations.Describe(ch)
	m.StageErrors.Describe(ch)
	m.NumbersExtracted.Describe(ch)
	m.GateDecisions.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RunsTotal.Collect(ch)
	m.StageDuration.Collect(ch)
	m.StageOperations.Collect(ch)
	m.StageErrors.Collect(ch)
	m.NumbersExtracted.Collect(ch)
	m.GateDecisions.Collect(ch)
}
