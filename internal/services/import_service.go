package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/source"
	"salesdash/internal/source/csvfile"
)

var (
	// ErrPathNotAllowed is returned for import paths outside the import
	// directory.
	ErrPathNotAllowed = errors.New("import path not allowed")
	// ErrReadOnlyBackend is returned when the configured backend cannot store
	// imported rows.
	ErrReadOnlyBackend = errors.New("backend does not accept imports")
)

// Publisher queues import requests for a worker.
type Publisher interface {
	PublishImport(ctx context.Context, msg *amqp.ImportMessage) error
	Close() error
}

// Invalidator is notified after the stored dataset changes.
type Invalidator interface {
	Invalidate()
}

// ImportResult describes an import request. Queued results carry no row
// count; the worker reports it in its logs and the imports table.
type ImportResult struct {
	JobID  string `json:"job_id" yaml:"job_id"`
	Path   string `json:"path" yaml:"path"`
	Rows   int    `json:"rows" yaml:"rows"`
	Queued bool   `json:"queued" yaml:"queued"`
}

// ImportService loads CSV files into the writable backend, inline or through
// AMQP.
type ImportService struct {
	writer      source.RowWriter
	publisher   Publisher
	invalidator Invalidator
	baseDir     string
	load        func(ctx context.Context, path string) ([]core.SalesRow, error)
	log         *applog.StructuredLogger
}

// ImportOptions configures an ImportService. BaseDir, when set, confines
// import paths to that directory; relative paths resolve against it.
type ImportOptions struct {
	Publisher   Publisher
	Invalidator Invalidator
	BaseDir     string
	Logger      *applog.Logger
}

func NewImportService(writer source.RowWriter, opts ImportOptions) *ImportService {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ImportService{
		writer:      writer,
		publisher:   opts.Publisher,
		invalidator: opts.Invalidator,
		baseDir:     opts.BaseDir,
		load: func(ctx context.Context, path string) ([]core.SalesRow, error) {
			return csvfile.New(path).ReadRows(ctx)
		},
		log: applog.NewStructuredLogger(logger.WithComponent(applog.ComponentImport)),
	}
}

// Queued reports whether RequestImport publishes instead of importing inline.
func (s *ImportService) Queued() bool {
	return s.publisher != nil
}

// Import loads the CSV at path and replaces the stored dataset. Returns the
// number of rows stored.
func (s *ImportService) Import(ctx context.Context, path string) (int, error) {
	res, err := s.run(ctx, uuid.NewString(), path)
	return res.Rows, err
}

// RequestImport queues the import when a publisher is configured and runs it
// inline otherwise.
func (s *ImportService) RequestImport(ctx context.Context, path string) (ImportResult, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return ImportResult{}, err
	}
	if s.writer == nil && s.publisher == nil {
		return ImportResult{}, ErrReadOnlyBackend
	}

	if s.publisher == nil {
		return s.run(ctx, uuid.NewString(), resolved)
	}

	msg := amqp.NewImportMessage(resolved)
	if err := s.publisher.PublishImport(ctx, msg); err != nil {
		return ImportResult{}, fmt.Errorf("queue import: %w", err)
	}
	return ImportResult{JobID: msg.JobID, Path: resolved, Queued: true}, nil
}

// HandleImportMessage runs a queued import. Used as the worker's handler.
// Errors that a retry cannot fix wrap amqp.ErrPermanent so the message is
// dropped rather than redelivered.
func (s *ImportService) HandleImportMessage(ctx context.Context, msg *amqp.ImportMessage) error {
	_, err := s.run(ctx, msg.JobID, msg.Path)
	if err != nil && isPermanent(err) {
		return fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
	}
	return err
}

func isPermanent(err error) bool {
	for _, target := range []error{
		ErrPathNotAllowed,
		ErrReadOnlyBackend,
		fs.ErrNotExist,
		core.ErrMissingColumn,
		core.ErrInvalidAmount,
		core.ErrInvalidOrders,
		core.ErrInvalidMonth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *ImportService) run(ctx context.Context, jobID, path string) (ImportResult, error) {
	if s.writer == nil {
		return ImportResult{}, ErrReadOnlyBackend
	}
	resolved, err := s.resolve(path)
	if err != nil {
		return ImportResult{}, err
	}

	start := time.Now()
	rows, err := s.load(ctx, resolved)
	if err != nil {
		s.log.LogError(ctx, "Sales import failed", err, applog.OpParse, applog.NewFields().WithImport(jobID, resolved, 0))
		return ImportResult{}, fmt.Errorf("load %s: %w", resolved, err)
	}
	if err := s.writer.ReplaceRows(ctx, core.Import{JobID: jobID, Origin: resolved}, rows); err != nil {
		s.log.LogError(ctx, "Sales import failed", err, applog.OpImport, applog.NewFields().WithImport(jobID, resolved, len(rows)))
		return ImportResult{}, fmt.Errorf("store rows: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}

	s.log.LogImportCompleted(ctx, jobID, resolved, len(rows), time.Since(start))
	return ImportResult{JobID: jobID, Path: resolved, Rows: len(rows)}, nil
}

func (s *ImportService) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathNotAllowed)
	}
	if s.baseDir == "" {
		return filepath.Clean(path), nil
	}

	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve import dir: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
	}
	return path, nil
}

// Close releases the publisher.
func (s *ImportService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close import service: %w", err)
	}
	return nil
}
