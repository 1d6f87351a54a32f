// Package poll asks an HTTP status endpoint for triggers.
package poll

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
	"github.com/lanewatch/lanewatch/internal/transport"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

// Defaults of the poll loop
const (
	DefaultInterval = 1 * time.Second
	DefaultBackoff  = 2 * time.Second

	// maxBodyBytes caps the status body, a trigger is a single word
	maxBodyBytes = 4 << 10
)

// Getter issues GET requests
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Config of the poll loop
type Config struct {
	URL      string
	Interval time.Duration // pause after every completed request
	Backoff  time.Duration // pause after a failed request
}

// Adapter runs one sequential request loop, there is never more than one
// request in flight.
type Adapter struct {
	cfg        Config
	client     Getter
	dispatcher *transport.Dispatcher
	metrics    *metrics.PollMetrics
	// repeated failures are logged at error level a few times, then throttled
	errLog rate.Sometimes
	log    logger.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithMetrics records every request
func WithMetrics(m *metrics.PollMetrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// New returns a poll adapter
func New(cfg Config, client Getter, dispatcher *transport.Dispatcher, opts ...Option) *Adapter {
	if cfg.Interval < 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = DefaultBackoff
	}
	a := &Adapter{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		errLog:     rate.Sometimes{First: 3, Interval: time.Minute},
		log:        logger.Global().Module("poll").With(logger.String("url", logger.RedactURL(cfg.URL))),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run polls until ctx is cancelled. No request or pipeline error ends the
// loop, and a run in progress finishes before Run returns.
func (a *Adapter) Run(ctx context.Context) error {
	a.log.Info("polling for triggers",
		logger.Duration("interval", a.cfg.Interval),
		logger.Duration("backoff", a.cfg.Backoff))

	runCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			a.log.Info("poll transport stopped")
			return nil
		}

		pause := a.cfg.Interval
		payload, err := a.fetch(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			continue
		case err != nil:
			a.reportFailure(err)
			pause = a.cfg.Backoff
		default:
			a.dispatcher.Handle(runCtx, trigger.NewEvent(trigger.SourcePoll, payload))
		}

		if !sleep(ctx, pause) {
			a.log.Info("poll transport stopped")
			return nil
		}
	}
}

// Poll performs a single request and dispatches its body.
func (a *Adapter) Poll(ctx context.Context) (trigger.Decision, error) {
	payload, err := a.fetch(ctx)
	if err != nil {
		return trigger.Decision{}, err
	}
	_, decision := a.dispatcher.Handle(context.WithoutCancel(ctx), trigger.NewEvent(trigger.SourcePoll, payload))
	return decision, nil
}

func (a *Adapter) fetch(ctx context.Context) (string, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if a.metrics != nil {
			a.metrics.ObserveRequest(status, time.Since(start).Seconds())
		}
	}()

	resp, err := a.client.Get(ctx, a.cfg.URL)
	if err != nil {
		return "", transport.Unavailable(err, "poll", errors.CategoryHTTP)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", transport.Unavailable(fmt.Errorf("unexpected status %s", resp.Status), "poll", errors.CategoryHTTP)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", transport.Unavailable(err, "poll", errors.CategoryNetwork)
	}
	return string(body), nil
}

func (a *Adapter) reportFailure(err error) {
	logged := false
	a.errLog.Do(func() {
		logged = true
		a.log.Error("trigger endpoint unavailable", logger.Error(err), logger.Duration("retry_in", a.cfg.Backoff))
	})
	if !logged {
		a.log.Debug("trigger endpoint unavailable", logger.Error(err))
	}
}

// sleep waits d or until ctx ends, reporting whether the full pause elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
