// Package telemetry reports categorized errors to Sentry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/lanewatch/lanewatch/internal/conf"
	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/privacy"
)

// FlushTimeout bounds the wait for queued events at shutdown
const FlushTimeout = 2 * time.Second

// Option adjusts the Sentry client options before Init
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = t
	}
}

// Init starts the Sentry client and installs it as the error reporter. It
// does nothing when sentry is disabled. The returned func flushes pending
// events and must be called before exit.
func Init(settings *conf.Settings, opts ...Option) (flush func(), err error) {
	flush = func() {}
	if !settings.Sentry.Enabled {
		return flush, nil
	}

	options := sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		Debug:            settings.Sentry.Debug,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("lanewatch@%s", settings.Version),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return flush, fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("node", settings.Main.Name)
		scope.SetTag("port", settings.Output.PortLabel)
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	logger.Global().Module("telemetry").Info("error reporting enabled",
		logger.String("release", options.Release))

	return func() {
		sentry.Flush(FlushTimeout)
	}, nil
}

// applyPrivacyFilters strips host identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	// camera, broker and controller URLs may carry credentials
	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	return event
}
