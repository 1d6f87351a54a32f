package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/lanewatch/lanewatch/internal/logger"
	metricspkg "github.com/lanewatch/lanewatch/internal/observability/metrics"
)

// Endpoint serves /metrics over HTTP.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	log           logger.Logger
}

// NewEndpoint creates an endpoint listening on listenAddress.
func NewEndpoint(listenAddress string, metrics *Metrics) *Endpoint {
	mux := http.NewServeMux()
	metrics.RegisterHandlers(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
		log:           logger.Global().Module("telemetry"),
		server: &http.Server{
			Addr:              listenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the endpoint's HTTP handler
func (e *Endpoint) Handler() http.Handler {
	return e.server.Handler
}

// Run listens until ctx is cancelled and then shuts the server down
// gracefully. It returns nil after a clean shutdown.
func (e *Endpoint) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (e *Endpoint) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		e.log.Info("telemetry endpoint starting", logger.String("address", ln.Addr().String()))
		errCh <- e.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	e.log.Info("stopping telemetry server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(shutdownCtx); err != nil {
		e.log.Error("telemetry server shutdown error", logger.Error(err))
		return err
	}
	<-errCh
	return nil
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
