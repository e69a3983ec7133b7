// Package csvfile reads the sales dataset from a CSV export, optionally
// gzip-compressed.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"salesdash/internal/core"
	"salesdash/internal/source"
)

var _ source.RowReader = (*Store)(nil)

// Store reads rows from a file on every call.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store reads.
func (s *Store) Path() string {
	return s.path
}

// ReadRows implements source.RowReader.
func (s *Store) ReadRows(ctx context.Context) ([]core.SalesRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open sales csv: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(s.path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	rows, err := Read(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	slog.DebugContext(ctx, "Loaded sales csv", "path", s.path, "rows", len(rows))
	return rows, nil
}

// Read parses a CSV stream whose first record is the header.
func Read(ctx context.Context, r io.Reader) ([]core.SalesRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: %w", core.ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := source.ParseHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []core.SalesRow
	line := 1
	undated := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(rec) {
			continue
		}
		row, err := cols.Parse(rec, line)
		if err != nil {
			return nil, err
		}
		if !row.Dated() {
			undated++
		}
		rows = append(rows, row)
	}

	if undated > 0 {
		slog.WarnContext(ctx, "Rows with unparseable month kept as undated", "count", undated)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
