package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/source"
)

var (
	_ source.RowReader = (*Store)(nil)
	_ source.RowWriter = (*Store)(nil)
	_ source.ImportLog = (*Store)(nil)
)

// Store keeps the dataset in memory. Used by tests and as the import target
// when no database is configured.
type Store struct {
	mu   sync.Mutex
	rows []core.SalesRow
	last core.Import
}

func New(rows []core.SalesRow) *Store {
	return &Store{rows: append([]core.SalesRow(nil), rows...)}
}

// ReadRows returns a copy of the stored rows.
func (s *Store) ReadRows(_ context.Context) ([]core.SalesRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SalesRow(nil), s.rows...), nil
}

// ReplaceRows swaps the dataset.
func (s *Store) ReplaceRows(ctx context.Context, imp core.Import, rows []core.SalesRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]core.SalesRow(nil), rows...)
	imp.Rows = len(rows)
	imp.ImportedAt = time.Now().UTC()
	s.last = imp
	slog.InfoContext(ctx, "Replaced in-memory dataset", "origin", imp.Origin, "job_id", imp.JobID, "rows", len(rows))
	return nil
}

// LastImport returns the most recent replacement; ok is false when the rows
// were only seeded through New.
func (s *Store) LastImport(_ context.Context) (core.Import, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last.Origin != "", nil
}
