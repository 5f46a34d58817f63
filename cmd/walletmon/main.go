package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"walletmon/internal/api"
	"walletmon/internal/config"
	"walletmon/internal/coordinator"
	"walletmon/internal/events"
	applog "walletmon/internal/log"
	"walletmon/internal/metrics"
	prommetrics "walletmon/internal/metrics/prometheus"
	"walletmon/internal/scheduler"
	"walletmon/internal/storage"
	"walletmon/internal/wallet"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting walletmon")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Metrics are optional; the no-op collector keeps call sites uniform.
	var collector metrics.Collector = metrics.NoOpCollector{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		promCollector := prommetrics.New("walletmon")
		if err := promCollector.Register(registry); err != nil {
			logger.Error("Failed to register metrics", "error", err)
			os.Exit(1)
		}
		collector = promCollector
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	client := wallet.NewClient(wallet.Config{
		BaseURL:   cfg.WalletBaseURL,
		Token:     cfg.WalletToken,
		PageLimit: cfg.PageLimit,
		Timeout:   cfg.HTTPTimeout,
	})

	coord := coordinator.New(client, coordinator.Config{
		ExcludedCategories:     cfg.ExcludedCategories,
		MaxExposedTransactions: cfg.MaxExposedTransactions,
		WindowDays:             cfg.WindowDays,
	}, collector)

	var notifiers []scheduler.Notifier

	if cfg.SQLiteDBPath != "" {
		store, err := storage.NewSnapshotStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open snapshot store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer store.Close()

		if snap, ok, err := store.Load(context.Background()); err != nil {
			logger.Warn("Failed to load stored snapshot", "error", err)
		} else if ok {
			coord.Restore(snap)
			logger.Info("Restored snapshot from store",
				"transactions", snap.TotalTransactions,
				"updated_at", snap.UpdatedAt)
		}

		notifiers = append(notifiers, store)
		logger.Info("Snapshot store enabled", "path", cfg.SQLiteDBPath)
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		notifiers = append(notifiers, publisher)
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	sched := scheduler.New(coord, scheduler.Config{Interval: cfg.ScanInterval}, collector, notifiers...)

	apiServer := api.NewServer(coord, sched, metricsHandler)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiServer.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sched.Stop(shutdownCtx)
	})

	g.Go(func() error {
		logger.Info("Starting sensor API server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Service stopped gracefully")
}
