package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	conf "github.com/itemhub/action-analytics/config"
	"github.com/itemhub/action-analytics/internal/app"
	"github.com/itemhub/action-analytics/internal/model"
	transport "github.com/itemhub/action-analytics/internal/transport/http"
)

func main() {

	// Load configuration
	config, appErr := conf.LoadConfig()
	if appErr != nil {
		slog.Error("action_analytics.main.configuration_error", slog.String("error", appErr.Error()))
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With(
			slog.String("service", model.AppServiceName),
			slog.String("version", model.CurrentVersion),
		)
	slog.SetDefault(logger)

	// Initialize the application
	application, appErr := app.New(config)
	if appErr != nil {
		slog.Error("action_analytics.main.application_initialization_error", slog.String("error", appErr.Error()))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize signal handling for graceful shutdown
	initSignals(application, cancel)

	slog.Debug("action_analytics.main.configuration_loaded",
		slog.String("http_addr", config.Http.Addr),
		slog.String("redis_addr", config.Redis.Addr),
		slog.Int("export_workers", config.Export.Workers),
	)

	// Start the application
	slog.Info("action_analytics.main.starting_application")
	startErr := application.Start(ctx, transport.NewRouter)
	if startErr != nil {
		slog.Error("action_analytics.main.application_start_error", slog.String("error", startErr.Error()))
	} else {
		slog.Info("action_analytics.main.application_stopped")
	}
}

func initSignals(application *app.App, cancel context.CancelFunc) {
	slog.Info("action_analytics.main.initializing_stop_signals")
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		s := <-sigch
		slog.Info("action_analytics.main.received_stop_signal", slog.String("signal", s.String()))
		cancel()
		if err := application.Stop(); err != nil {
			slog.Error("action_analytics.main.stop_error", slog.String("error", err.Error()))
		}
	}()
}
