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
	"github.com/ponytojas/go-timescale-records/internal/database"
	"github.com/ponytojas/go-timescale-records/internal/logging"
	"github.com/ponytojas/go-timescale-records/internal/metrics"
	"github.com/ponytojas/go-timescale-records/internal/mqtt"
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
	logger.Info("starting MQTT to record table bridge")

	ctx := context.Background()
	m := metrics.NewDefault()

	// Initialize database connection
	store, err := database.NewStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("failed to close database connection", "error", err)
		}
	}()

	if err := store.InitializeTable(ctx); err != nil {
		logger.Error("failed to initialize record table", "error", err)
		os.Exit(1)
	}

	client, err := mqtt.NewClient(cfg, store, logger, m)
	if err != nil {
		logger.Error("failed to create MQTT client", "error", err)
		os.Exit(1)
	}

	if err := client.Connect(); err != nil {
		logger.Error("failed to connect to MQTT broker", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	if err := client.Subscribe(); err != nil {
		logger.Error("failed to subscribe to topic", "error", err)
		os.Exit(1)
	}

	srv := m.NewServer(cfg.MQTT.MetricsAddr, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
	go func() {
		logger.Info("serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics listener shutdown failed", "error", err)
	}
}
