package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
	"salesdash/internal/source"

	_ "modernc.org/sqlite"
)

// monthLayout is how SalesRow.Month is persisted.
const monthLayout = "2006-01-02"

var (
	_ source.RowReader = (*SQLiteRepository)(nil)
	_ source.RowWriter = (*SQLiteRepository)(nil)
	_ source.ImportLog = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadRows implements source.RowReader.
func (r *SQLiteRepository) ReadRows(ctx context.Context) ([]core.SalesRow, error) {
	records, err := r.queries.ListSalesRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales rows: %w", err)
	}

	rows := make([]core.SalesRow, 0, len(records))
	for _, rec := range records {
		row, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("sales row %d: %w", rec.ID, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReplaceRows implements source.RowWriter. The delete, the inserts and the
// import record commit together.
func (r *SQLiteRepository) ReplaceRows(ctx context.Context, imp core.Import, rows []core.SalesRow) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	q := r.queries.WithTx(tx)
	if err = q.DeleteSalesRows(ctx); err != nil {
		return fmt.Errorf("delete sales rows: %w", err)
	}
	for i, row := range rows {
		if err = q.InsertSalesRow(ctx, toParams(row)); err != nil {
			return fmt.Errorf("insert sales row %d: %w", i+1, err)
		}
	}
	if err = q.CreateImport(ctx, CreateImportParams{
		JobID:      imp.JobID,
		Origin:     imp.Origin,
		RowCount:   int64(len(rows)),
		ImportedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Sales dataset replaced",
		"job_id", imp.JobID,
		"origin", imp.Origin,
		"rows", len(rows))
	return nil
}

// LastImport implements source.ImportLog.
func (r *SQLiteRepository) LastImport(ctx context.Context) (core.Import, bool, error) {
	rec, err := r.queries.GetLastImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Import{}, false, nil
	}
	if err != nil {
		return core.Import{}, false, fmt.Errorf("get last import: %w", err)
	}
	return core.Import{
		JobID:      rec.JobID,
		Origin:     rec.Origin,
		Rows:       int(rec.RowCount),
		ImportedAt: rec.ImportedAt,
	}, true, nil
}

func toParams(row core.SalesRow) InsertSalesRowParams {
	month := ""
	if row.Dated() {
		month = row.Month.Format(monthLayout)
	}
	return InsertSalesRowParams{
		Branch:         row.Branch,
		Month:          month,
		NetSales:       row.NetSales.String(),
		DiscountAmount: row.Discount.String(),
		Orders:         row.Orders,
	}
}

func fromRecord(rec SalesRow) (core.SalesRow, error) {
	row := core.SalesRow{Branch: rec.Branch, Orders: rec.Orders}
	if rec.Month != "" {
		m, err := time.Parse(monthLayout, rec.Month)
		if err != nil {
			return row, fmt.Errorf("month %q: %w", rec.Month, err)
		}
		row.Month = m
	}
	var err error
	if row.NetSales, err = decimal.NewFromString(rec.NetSales); err != nil {
		return row, fmt.Errorf("%w: net_sales %q", core.ErrInvalidAmount, rec.NetSales)
	}
	if row.Discount, err = decimal.NewFromString(rec.DiscountAmount); err != nil {
		return row, fmt.Errorf("%w: discount_amount %q", core.ErrInvalidAmount, rec.DiscountAmount)
	}
	return row, nil
}
