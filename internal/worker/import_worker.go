// Package worker runs queued sales imports.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"salesdash/internal/amqp"
	applog "salesdash/internal/log"
)

// messageTimeout bounds a single import.
const messageTimeout = 5 * time.Minute

// Consumer delivers import messages until its context ends or the broker
// connection drops.
type Consumer interface {
	ConsumeImports(ctx context.Context, handler func(context.Context, *amqp.ImportMessage) error) error
	Close() error
}

// DialFunc opens a new Consumer.
type DialFunc func(ctx context.Context) (Consumer, error)

// MessageHandler runs one import.
type MessageHandler interface {
	HandleImportMessage(ctx context.Context, msg *amqp.ImportMessage) error
}

// ImportWorker consumes import messages and hands them to a MessageHandler,
// reconnecting when the consumer stops.
type ImportWorker struct {
	dial    DialFunc
	handler MessageHandler
	logger  *applog.Logger
	backoff func(attempt int) time.Duration

	processed int64
	failed    int64
}

// Stats counts handled messages.
type Stats struct {
	Processed int64
	Failed    int64
}

func NewImportWorker(dial DialFunc, handler MessageHandler, logger *applog.Logger) *ImportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ImportWorker{
		dial:    dial,
		handler: handler,
		logger:  logger.WithComponent(applog.ComponentWorker),
		backoff: amqp.Backoff,
	}
}

// Run consumes until ctx is done and returns nil on a clean shutdown. When the
// consumer stops on its own it is closed and redialed after a backoff; a
// failed dial is returned.
func (w *ImportWorker) Run(ctx context.Context) error {
	attempt := 0
	for {
		consumer, err := w.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connect consumer: %w", err)
		}

		started := time.Now()
		err = consumer.ConsumeImports(ctx, w.handle)
		if cerr := consumer.Close(); cerr != nil {
			w.logger.DebugContext(ctx, "Closing consumer failed", applog.FieldError, cerr)
		}
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "Import worker stopped", "processed", atomic.LoadInt64(&w.processed))
			return nil
		}

		// A consumer that ran for a while resets the backoff.
		if time.Since(started) > w.backoff(attempt) {
			attempt = 0
		}
		wait := w.backoff(attempt)
		attempt++
		w.logger.WarnContext(ctx, "Import consumer stopped, reconnecting",
			applog.FieldError, err,
			"attempt", attempt,
			"retry_in", wait.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (w *ImportWorker) handle(ctx context.Context, msg *amqp.ImportMessage) error {
	ctx, cancel := context.WithTimeout(ctx, messageTimeout)
	defer cancel()
	ctx = applog.WithLogger(ctx, w.logger.With(applog.FieldJobID, msg.JobID))

	if err := w.handler.HandleImportMessage(ctx, msg); err != nil {
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("import job %s: %w", msg.JobID, err)
	}
	atomic.AddInt64(&w.processed, 1)
	return nil
}

func (w *ImportWorker) Stats() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&w.processed),
		Failed:    atomic.LoadInt64(&w.failed),
	}
}
