package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ponytojas/go-timescale-records/config"
	"github.com/ponytojas/go-timescale-records/internal/api"
	"github.com/ponytojas/go-timescale-records/internal/database"
	"github.com/ponytojas/go-timescale-records/internal/logging"
	"github.com/ponytojas/go-timescale-records/internal/metrics"
	"github.com/ponytojas/go-timescale-records/internal/records"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("starting record query service")

	m := metrics.NewDefault()

	gateway, err := database.NewGatewayFromConfig(cfg, logger, m)
	if err != nil {
		logger.Error("failed to create record gateway", "error", err)
		os.Exit(1)
	}

	svc := records.NewService(gateway,
		records.WithWindow(cfg.Statistics.Window),
		records.WithMode(cfg.Statistics.IncludeMode),
		records.WithLogger(logger),
		records.WithMetrics(m),
	)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(svc, cfg.HTTP, logger, m),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
