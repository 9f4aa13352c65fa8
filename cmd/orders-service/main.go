package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftea/order-saga/orders-service/config"
	"github.com/draftea/order-saga/orders-service/handlers"
	"github.com/draftea/order-saga/orders-service/infrastructure/migrations"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := telemetry.NewLogger(cfg.Telemetry.LogLevel, cfg.ServiceName)
	logger.Info("starting service", "env", cfg.Env, "port", cfg.Port, "storage", cfg.Storage, "workers", cfg.Workers.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Storage == config.StoragePostgres {
		if _, err := migrations.Apply(ctx, cfg.GetDatabaseURL(), logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// Initialize dependencies
	deps, err := config.BuildDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps.Telemetry, deps.OrderHandlers, deps.DeadLetterHandlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})

	g.Go(func() error {
		return deps.Sweeper.Start(gctx)
	})

	if deps.EventSubscriber != nil {
		if err := deps.EventSubscriber.Start(gctx); err != nil {
			logger.Error("failed to start event subscriber", "error", err)
			stop()
		}
	}

	// Wait for interrupt signal or a failed component
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
		// stops the subscriber and drains in-flight saga runs
		return deps.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}
