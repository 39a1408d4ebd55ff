package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalSmith/internal/handler/ws"
	"SignalSmith/internal/usecase"
	"SignalSmith/pkg/config"
	xhttp "SignalSmith/pkg/http"
	pkgkafka "SignalSmith/pkg/kafka"
	applogger "SignalSmith/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	server    *xhttp.Server
	consumer  *pkgkafka.Consumer
	generator *usecase.SignalGenerator
	hub       *ws.Hub
}

// New creates a new App. consumer is nil when the kafka request stream is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	server *xhttp.Server,
	consumer *pkgkafka.Consumer,
	generator *usecase.SignalGenerator,
	hub *ws.Hub,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		server:    server,
		consumer:  consumer,
		generator: generator,
		hub:       hub,
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	if err := a.server.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("signalsmith started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("journal", a.cfg.Journal.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then drains in-flight deliveries.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	var firstErr error
	if err := a.server.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.generator != nil {
		if err := a.generator.Wait(ctx); err != nil {
			a.log.Warn("pending notifications abandoned", applogger.Error(err))
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}

	a.log.Info("shutdown complete")
	return firstErr
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
