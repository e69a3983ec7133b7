package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/amqp"
	"salesdash/internal/cache"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	apphttp "salesdash/internal/http"
	applog "salesdash/internal/log"
	"salesdash/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 10 * time.Minute
	// dialAttempts bounds the broker connection at startup.
	dialAttempts = 5
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Server failed", applog.FieldError, err)
		cancel()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, logger *applog.Logger, cfg *config.Config) error {
	be, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	datasets := services.NewDatasetService(be.Backend, services.DatasetOptions{TTL: cfg.CacheTTL, Logger: logger})
	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	caches.Register(datasets.Cache())

	var publisher services.Publisher
	if cfg.QueueEnabled() {
		client, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, dialAttempts)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		publisher = client
		logger.Info("Imports will be queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	opts := apphttp.Options{
		Datasets:       datasets,
		ImportLog:      be.Imports,
		Years:          apphttp.YearPair{Base: cfg.BaseYear, Compare: cfg.CompareYear},
		Logger:         logger,
		TrustedProxies: cfg.TrustedProxies,
	}
	if be.Writer != nil || publisher != nil {
		imports := services.NewImportService(be.Writer, services.ImportOptions{
			Publisher:   publisher,
			Invalidator: datasets,
			BaseDir:     cli.ImportDir(cfg),
			Logger:      logger,
		})
		defer imports.Close()
		opts.Imports = imports
		logger.Info("Imports enabled", "queued", imports.Queued(), "dir", cli.ImportDir(cfg))
	}

	srv := apphttp.NewServer(":"+cfg.Port, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting salesdash server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend,
			"imports", opts.Imports != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		caches.StartCleanup(cleanupInterval)
		<-gctx.Done()
		caches.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
