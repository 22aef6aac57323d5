package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/overlay/internal/artwork"
	"github.com/genricoloni/overlay/internal/capture"
	"github.com/genricoloni/overlay/internal/clock"
	"github.com/genricoloni/overlay/internal/config"
	"github.com/genricoloni/overlay/internal/control"
	"github.com/genricoloni/overlay/internal/domain"
	"github.com/genricoloni/overlay/internal/engine"
	"github.com/genricoloni/overlay/internal/monitor"
	"github.com/genricoloni/overlay/internal/notify"
	"github.com/genricoloni/overlay/internal/recorder"
	"github.com/genricoloni/overlay/internal/sink"
	"github.com/genricoloni/overlay/internal/stopwatch"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions is the full dependency graph of the daemon
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Infrastructure
	fx.Provide(
		newLogger,
		clock.New,
		fx.Annotate(capture.NewStdDisplay, fx.As(new(capture.Display))),
		capture.NewScreenResolution,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		fx.Annotate(config.NewRecordingSettings, fx.As(new(domain.SettingsStore))),
	),

	// Recording pipeline
	fx.Provide(
		fx.Annotate(capture.NewScreenSource, fx.As(new(domain.FrameSource))),
		fx.Annotate(sink.NewOpener, fx.As(new(domain.SinkOpener))),
		fx.Annotate(recorder.NewRecorder, fx.As(new(domain.Recorder))),
		fx.Annotate(stopwatch.New, fx.As(new(domain.Stopwatch))),
	),

	// Now playing and notifications
	fx.Provide(
		fx.Annotate(monitor.NewPlayerMonitor, fx.As(new(domain.Monitor)), fx.As(new(domain.PlayerController))),
		fx.Annotate(artwork.NewHTTPFetcher, fx.As(new(domain.Fetcher))),
		fx.Annotate(artwork.NewThumbnailer, fx.As(new(domain.Thumbnailer))),
		fx.Annotate(notify.NewNotifier, fx.As(new(domain.Notifier))),
		fx.Annotate(engine.NewEngine, fx.As(fx.Self()), fx.As(new(control.NowPlayingSource))),
	),

	// Control surface
	fx.Provide(
		control.NewService,
		control.NewServer,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	// Stopping finalizes any recording in progress
	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a production logger, or a development one when OVERLAY_DEBUG=1
func newLogger() (*zap.Logger, error) {
	if os.Getenv("OVERLAY_DEBUG") == "1" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// registerHooks sets up application lifecycle hooks. Optional desktop
// integrations (media player, control bus) only log when unavailable.
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	rec domain.Recorder,
	mon domain.Monitor,
	eng *engine.Engine,
	srv *control.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Overlay Daemon Started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			_ = logger.Sync()
			return nil
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start blocks until Stop, so it gets a context that outlives startup
			go func() {
				if err := mon.Start(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("Player monitor unavailable, now playing disabled", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: mon.Stop,
	})

	lc.Append(fx.Hook{
		OnStart: eng.Start,
		OnStop:  eng.Stop,
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if rec.State() != domain.StateIdle {
				logger.Info("Finalizing recording before exit")
			}
			return rec.Stop(ctx)
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := srv.Start(ctx); err != nil {
				logger.Warn("Control service unavailable", zap.Error(err))
			}
			return nil
		},
		OnStop: srv.Stop,
	})
}
