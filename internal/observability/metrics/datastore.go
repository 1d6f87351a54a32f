package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for record store operations
type DatastoreMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	RecordsWritten    *prometheus.CounterVec
}

// NewDatastoreMetrics creates and registers the datastore metrics.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanewatch_datastore_operations_total",
			Help: "Total number of record store operations by backend, operation and status",
		}, []string{"backend", "operation", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lanewatch_datastore_operation_duration_seconds",
			Help:    "Duration of record store operations in seconds",
			Buckets: requestBuckets,
		}, []string{"backend", "operation"}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanewatch_datastore_records_written_total",
			Help: "Total number of records committed to the store",
		}, []string{"backend"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

// ObserveOperation records one store operation. records is only counted on
// success.
func (m *DatastoreMetrics) ObserveOperation(backend, operation string, seconds float64, records int, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.OperationsTotal.WithLabelValues(backend, operation, status).Inc()
	m.OperationDuration.WithLabelValues(backend, operation).Observe(seconds)
	if err == nil && records > 0 {
		m.RecordsWritten.WithLabelValues(backend).Add(float64(records))
	}
}

// Describe implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.OperationsTotal.Describe(ch)
	m.OperationDuration.Describe(ch)
	m.RecordsWritten.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.OperationsTotal.Collect(ch)
	m.OperationDuration.Collect(ch)
	m.RecordsWritten.Collect(ch)
}
