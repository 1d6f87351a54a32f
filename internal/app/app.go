// Package app wires settings into a running lanewatch process: record store,
// OCR engine, camera, pipeline and one trigger transport.
package app

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lanewatch/lanewatch/internal/archive"
	"github.com/lanewatch/lanewatch/internal/camera"
	"github.com/lanewatch/lanewatch/internal/conf"
	"github.com/lanewatch/lanewatch/internal/datastore"
	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/httpclient"
	"github.com/lanewatch/lanewatch/internal/imaging"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/mqtt"
	"github.com/lanewatch/lanewatch/internal/observability"
	"github.com/lanewatch/lanewatch/internal/ocr"
	"github.com/lanewatch/lanewatch/internal/ocr/tesseract"
	"github.com/lanewatch/lanewatch/internal/pipeline"
	"github.com/lanewatch/lanewatch/internal/transport"
	"github.com/lanewatch/lanewatch/internal/transport/poll"
	"github.com/lanewatch/lanewatch/internal/transport/push"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

// Broker is the MQTT client used by the push transport. Results are
// published through the same connection.
type Broker interface {
	push.Broker
	pipeline.Publisher
}

// App holds the components shared by every command
type App struct {
	settings *conf.Settings
	metrics  *observability.Metrics

	store     datastore.Store
	noStore   bool
	engine    ocr.Engine
	extractor *ocr.Extractor
	enhancer  pipeline.Enhancer
	archiver  pipeline.Archiver
	source    pipeline.FrameSource

	broker Broker
	getter poll.Getter

	closers []io.Closer
	log     logger.Logger
}

// Option configures an App
type Option func(*App)

// WithFrameSource replaces the camera
func WithFrameSource(s pipeline.FrameSource) Option {
	return func(a *App) {
		a.source = s
	}
}

// WithEngine replaces the Tesseract engine
func WithEngine(e ocr.Engine) Option {
	return func(a *App) {
		a.engine = e
	}
}

// WithStore replaces the store selected in settings
func WithStore(s datastore.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithoutPersistence runs the pipeline without a record store
func WithoutPersistence() Option {
	return func(a *App) {
		a.noStore = true
	}
}

// WithBroker replaces the MQTT client
func WithBroker(b Broker) Option {
	return func(a *App) {
		a.broker = b
	}
}

// WithGetter replaces the HTTP client of the poll transport
func WithGetter(g poll.Getter) Option {
	return func(a *App) {
		a.getter = g
	}
}

// WithMetrics uses m instead of a fresh metrics set
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// New builds the components for settings. The returned App must be closed.
func New(ctx context.Context, settings *conf.Settings, opts ...Option) (*App, error) {
	a := &App{
		settings: settings,
		log:      logger.Global().Module("app"),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.setup(ctx); err != nil {
		if cerr := a.Close(); cerr != nil {
			a.log.Warn("cleanup after failed setup", logger.Error(cerr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) setup(ctx context.Context) error {
	s := a.settings

	if a.metrics == nil {
		m, err := observability.NewMetrics()
		if err != nil {
			return errors.New(err).
				Component("app").
				Category(errors.CategorySystem).
				Context("operation", "metrics").
				Build()
		}
		a.metrics = m
	}

	if err := a.setupStore(ctx); err != nil {
		return err
	}
	if err := a.setupExtractor(); err != nil {
		return err
	}

	if s.Enhance.Enabled {
		enhancer, err := imaging.NewChainEnhancer(imaging.Params{
			BlurKernel:       s.Enhance.BlurKernel,
			BlockSize:        s.Enhance.BlockSize,
			C:                s.Enhance.C,
			DilateKernel:     s.Enhance.DilateKernel,
			DilateIterations: s.Enhance.DilateIterations,
			Scale:            s.Enhance.Scale,
		})
		if err != nil {
			return err
		}
		a.enhancer = enhancer
	}

	if s.Archive.Enabled {
		format, err := archive.ParseFormat(s.Archive.Format)
		if err != nil {
			return err
		}
		w, err := archive.NewWriter(archive.Config{
			Dir:          s.Archive.Path,
			Format:       format,
			Quality:      s.Archive.Quality,
			FallbackName: s.Archive.FallbackName,
		})
		if err != nil {
			return err
		}
		a.archiver = w
	}

	if a.source == nil {
		a.source = camera.NewFrameSource(camera.Config{
			Device:        s.Camera.Device,
			WarmUp:        s.Camera.WarmUp,
			DiscardFrames: s.Camera.DiscardFrames,
			Width:         s.Camera.Width,
			Height:        s.Camera.Height,
		})
	}
	return nil
}

func (a *App) setupStore(ctx context.Context) error {
	if a.noStore {
		a.store = nil
		return nil
	}
	if a.store == nil {
		store, err := datastore.Open(a.settings)
		if err != nil {
			return err
		}
		a.store = store
	}
	a.closers = append(a.closers, a.store)
	a.store = datastore.Instrument(a.store, a.metrics.Datastore)

	if err := a.store.EnsureSchema(ctx); err != nil {
		return err
	}
	a.log.Info("record store ready", logger.String("backend", a.store.Backend()))
	return nil
}

func (a *App) setupExtractor() error {
	s := a.settings
	if a.engine == nil {
		engine, err := tesseract.New(tesseract.Config{
			Language:    s.OCR.Language,
			PageSegMode: s.OCR.PageSegMode,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, engine)
		a.engine = engine
		a.log.Info("ocr engine ready", logger.String("tesseract", engine.Version()))
	}

	extractor, err := ocr.NewExtractor(a.engine,
		ocr.WithAnnotator(imaging.NewAnnotator()),
		ocr.WithMinConfidence(s.OCR.MinConfidence),
		ocr.WithCharset(s.OCR.Whitelist),
	)
	if err != nil {
		return err
	}
	a.extractor = extractor
	return nil
}

// Metrics returns the metrics the components record to
func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}

// Orchestrator returns a pipeline over the configured components
func (a *App) Orchestrator(extra ...pipeline.Option) (*pipeline.Orchestrator, error) {
	s := a.settings
	opts := []pipeline.Option{
		pipeline.WithPortLabel(s.Output.PortLabel),
		pipeline.WithAnnotate(s.Archive.Annotate),
		pipeline.WithSaveRaw(s.Archive.SaveRaw),
		pipeline.WithRecorder(a.metrics.Pipeline),
	}
	if a.archiver != nil {
		opts = append(opts, pipeline.WithArchiver(a.archiver))
	}
	opts = append(opts, extra...)

	var store pipeline.Appender
	if a.store != nil {
		store = a.store
	}
	return pipeline.New(a.source, a.enhancer, a.extractor, store, opts...)
}

func (a *App) dispatcher(runner transport.Runner) *transport.Dispatcher {
	gate := trigger.NewGate(a.settings.Trigger.Cooldown,
		trigger.WithAcceptLiteral(a.settings.Trigger.AcceptLiteral))
	return transport.NewDispatcher(gate, runner, transport.WithRecorder(a.metrics.Pipeline))
}

// Capture runs the pipeline once, bypassing the trigger gate.
func (a *App) Capture(ctx context.Context) (pipeline.RunResult, error) {
	orch, err := a.Orchestrator()
	if err != nil {
		return pipeline.RunResult{}, err
	}
	return orch.Run(ctx, trigger.NewEvent(trigger.SourceManual, a.settings.Trigger.AcceptLiteral)), nil
}

// RunPush serves MQTT triggers until ctx is cancelled.
func (a *App) RunPush(ctx context.Context) error {
	s := a.settings
	broker := a.broker
	if broker == nil {
		client, err := mqtt.NewClient(mqtt.ConfigFromSettings(s), a.metrics.MQTT)
		if err != nil {
			return err
		}
		broker = client
	}

	var extra []pipeline.Option
	if s.MQTT.PublishResults {
		extra = append(extra, pipeline.WithPublisher(broker, s.MQTT.ResultTopic))
	}
	orch, err := a.Orchestrator(extra...)
	if err != nil {
		return err
	}

	adapter := push.New(broker, s.MQTT.TriggerTopic, a.dispatcher(orch),
		push.WithQueueSize(s.MQTT.QueueSize),
		push.WithMetrics(a.metrics.MQTT))

	a.log.Info("push mode started",
		logger.String("broker", logger.RedactURL(s.MQTT.Broker)),
		logger.String("topic", s.MQTT.TriggerTopic))
	return a.serve(ctx, adapter.Run)
}

// RunPoll polls the controller until ctx is cancelled.
func (a *App) RunPoll(ctx context.Context) error {
	s := a.settings
	getter := a.getter
	if getter == nil {
		client := httpclient.New(&httpclient.Config{DefaultTimeout: s.Poll.Timeout})
		defer client.Close()
		getter = client
	}

	orch, err := a.Orchestrator()
	if err != nil {
		return err
	}

	adapter := poll.New(poll.Config{
		URL:      s.Poll.URL,
		Interval: s.Poll.Interval,
		Backoff:  s.Poll.Backoff,
	}, getter, a.dispatcher(orch), poll.WithMetrics(a.metrics.Poll))

	a.log.Info("poll mode started", logger.String("url", logger.RedactURL(s.Poll.URL)))
	return a.serve(ctx, adapter.Run)
}

// serve runs the transport next to the metrics endpoint. Either one failing
// stops the other.
func (a *App) serve(ctx context.Context, run func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.settings.Telemetry.Enabled {
		endpoint := observability.NewEndpoint(a.settings.Telemetry.Listen, a.metrics)
		g.Go(func() error {
			if err := endpoint.Run(gctx); err != nil {
				return errors.New(err).
					Component("app").
					Category(errors.CategoryNetwork).
					Context("listen", a.settings.Telemetry.Listen).
					Build()
			}
			return nil
		})
	}

	g.Go(func() error {
		return run(gctx)
	})

	start := time.Now()
	err := g.Wait()
	a.log.Info("stopped", logger.Duration("uptime", time.Since(start)))
	return err
}

// Close releases the record store and the OCR engine
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
