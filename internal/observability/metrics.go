// Package observability provides the Prometheus metrics endpoint for lanewatch.
// Sentry error telemetry is handled in the telemetry package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanewatch/lanewatch/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Pipeline  *metrics.PipelineMetrics
	MQTT      *metrics.MQTTMetrics
	Poll      *metrics.PollMetrics
	Datastore *metrics.DatastoreMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	pollMetrics, err := metrics.NewPollMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll metrics: %w", err)
	}

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Pipeline:  pipelineMetrics,
		MQTT:      mqttMetrics,
		Poll:      pollMetrics,
		Datastore: datastoreMetrics,
	}, nil
}

// Registry returns the registry all collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}
