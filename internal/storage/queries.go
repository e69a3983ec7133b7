package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// SalesRow mirrors a sales_rows record.
type SalesRow struct {
	ID             int64
	Branch         string
	Month          string
	NetSales       string
	DiscountAmount string
	Orders         int64
}

// ImportRecord mirrors an imports record.
type ImportRecord struct {
	ID         int64
	JobID      string
	Origin     string
	RowCount   int64
	ImportedAt time.Time
}

const listSalesRows = `SELECT id, branch, month, net_sales, discount_amount, orders
FROM sales_rows
ORDER BY id`

func (q *Queries) ListSalesRows(ctx context.Context) ([]SalesRow, error) {
	rows, err := q.db.QueryContext(ctx, listSalesRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SalesRow
	for rows.Next() {
		var i SalesRow
		if err := rows.Scan(&i.ID, &i.Branch, &i.Month, &i.NetSales, &i.DiscountAmount, &i.Orders); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSalesRows = `DELETE FROM sales_rows`

func (q *Queries) DeleteSalesRows(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteSalesRows)
	return err
}

const insertSalesRow = `INSERT INTO sales_rows (branch, month, net_sales, discount_amount, orders)
VALUES (?, ?, ?, ?, ?)`

type InsertSalesRowParams struct {
	Branch         string
	Month          string
	NetSales       string
	DiscountAmount string
	Orders         int64
}

func (q *Queries) InsertSalesRow(ctx context.Context, arg InsertSalesRowParams) error {
	_, err := q.db.ExecContext(ctx, insertSalesRow,
		arg.Branch,
		arg.Month,
		arg.NetSales,
		arg.DiscountAmount,
		arg.Orders,
	)
	return err
}

const createImport = `INSERT INTO imports (job_id, origin, row_count, imported_at)
VALUES (?, ?, ?, ?)`

type CreateImportParams struct {
	JobID      string
	Origin     string
	RowCount   int64
	ImportedAt time.Time
}

func (q *Queries) CreateImport(ctx context.Context, arg CreateImportParams) error {
	_, err := q.db.ExecContext(ctx, createImport,
		arg.JobID,
		arg.Origin,
		arg.RowCount,
		arg.ImportedAt,
	)
	return err
}

const getLastImport = `SELECT id, job_id, origin, row_count, imported_at
FROM imports
ORDER BY id DESC
LIMIT 1`

func (q *Queries) GetLastImport(ctx context.Context) (ImportRecord, error) {
	row := q.db.QueryRowContext(ctx, getLastImport)
	var i ImportRecord
	err := row.Scan(&i.ID, &i.JobID, &i.Origin, &i.RowCount, &i.ImportedAt)
	return i, err
}
