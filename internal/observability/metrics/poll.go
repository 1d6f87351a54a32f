package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PollMetrics tracks requests made by the HTTP poll transport.
type PollMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
}

// NewPollMetrics creates and registers the poll metrics.
func NewPollMetrics(registry *prometheus.Registry) (*PollMetrics, error) {
	m := &PollMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanewatch_poll_requests_total",
			Help: "Total number of trigger poll requests by status (HTTP code or \"error\")",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lanewatch_poll_request_duration_seconds",
			Help:    "Duration of trigger poll requests in seconds",
			Buckets: requestBuckets,
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register poll metrics: %w", err)
	}
	return m, nil
}

// ObserveRequest records one finished request.
func (m *PollMetrics) ObserveRequest(status string, seconds float64) {
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.Observe(seconds)
}

// Describe implements the prometheus.Collector interface.
func (m *PollMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestsTotal.Describe(ch)
	ch <- m.RequestDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *PollMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestsTotal.Collect(ch)
	ch <- m.RequestDuration
}
