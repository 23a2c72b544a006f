package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"famledger/internal/amqp"
	"famledger/internal/backend"
	"famledger/internal/config"
	applog "famledger/internal/log"
	"famledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentReconciler,
	})

	logger.Info("Starting ledger-reconciler")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	reconciler := worker.NewReconciler(result.Store)

	// One pass up front so a restart repairs drift immediately instead of
	// waiting for the first tick.
	if _, repaired, err := reconciler.Reconcile(ctx); err != nil {
		logger.Error("Startup reconciliation failed", "error", err)
	} else if repaired {
		logger.Info("Startup reconciliation repaired balance drift")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reconciler.Run(ctx, cfg.ReconcileInterval)
	})

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			return amqpClient.ConsumeLedgerEvents(ctx, reconciler.HandleLedgerEvent)
		})
		logger.Info("Event-triggered reconciliation enabled", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Event-triggered reconciliation disabled - no AMQP_URL provided")
	}

	logger.Info("Reconciler running", "interval", cfg.ReconcileInterval.String(), "backend", cfg.DataBackend)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Reconciler stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Reconciler stopped gracefully")
}
