package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lanewatch/lanewatch/internal/buildinfo"
	"github.com/lanewatch/lanewatch/internal/conf"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/telemetry"
)

// Runtime is shared by the commands. Settings is set by Load, which the root
// command runs before any subcommand.
type Runtime struct {
	Build      *buildinfo.Context
	ConfigPath string
	Settings   *conf.Settings
}

// Load reads the configuration
func (r *Runtime) Load() error {
	settings, err := conf.Load(r.ConfigPath)
	if err != nil {
		return err
	}
	settings.Version = r.Build.Version()
	r.Settings = settings
	return nil
}

// Start installs the global logger and the error reporter. The returned stop
// func flushes both.
func (r *Runtime) Start() (stop func(), err error) {
	cfg := r.Settings.Logging
	if r.Settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}

	central, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(central)

	flush, err := telemetry.Init(r.Settings)
	if err != nil {
		// the process still works without error reporting
		central.Module("app").Warn("error telemetry disabled", logger.Error(err))
		flush = func() {}
	}

	central.Module("app").Info("lanewatch starting",
		logger.String("version", r.Build.Version()),
		logger.String("node", r.Settings.Main.Name),
		logger.String("config", r.Settings.ConfigFile))

	return func() {
		flush()
		_ = central.Close()
	}, nil
}

// Run builds an App and calls fn with it. The context passed to fn is
// cancelled on SIGINT or SIGTERM.
func (r *Runtime) Run(ctx context.Context, fn func(context.Context, *App) error, opts ...Option) error {
	stop, err := r.Start()
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, r.Settings, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.log.Warn("failed to release resources", logger.Error(cerr))
		}
	}()

	return fn(ctx, a)
}
