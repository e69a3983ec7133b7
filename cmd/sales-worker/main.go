package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/amqp"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	applog "salesdash/internal/log"
	"salesdash/internal/services"
	"salesdash/internal/worker"
)

const statsInterval = time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting sales-worker", applog.FieldBackend, cfg.DataBackend, "queue", cfg.AMQPQueue)
	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Worker failed", applog.FieldError, err)
		cancel()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, logger *applog.Logger, cfg *config.Config) error {
	if !cfg.QueueEnabled() {
		return errors.New("AMQP_URL is required to run the worker")
	}

	be, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer be.Close()
	if be.Writer == nil {
		return fmt.Errorf("backend %q does not accept imports", cfg.DataBackend)
	}

	imports := services.NewImportService(be.Writer, services.ImportOptions{
		BaseDir: cli.ImportDir(cfg),
		Logger:  logger,
	})

	dial := func(ctx context.Context) (worker.Consumer, error) {
		client, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 0)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	w := worker.NewImportWorker(dial, imports, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s := w.Stats()
				logger.Debug("Worker stats", "processed", s.Processed, "failed", s.Failed)
			}
		}
	})
	return g.Wait()
}
