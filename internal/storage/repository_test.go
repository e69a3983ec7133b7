package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"salesdash/internal/core"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "sales.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryReplaceAndRead(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rows, err := repo.ReadRows(ctx)
	if err != nil || len(rows) != 0 {
		t.Fatalf("fresh db: rows=%v err=%v", rows, err)
	}
	if _, ok, err := repo.LastImport(ctx); ok || err != nil {
		t.Fatalf("fresh db should have no import, ok=%v err=%v", ok, err)
	}

	want := []core.SalesRow{
		{Branch: "Riyadh", Month: core.NewMonth(2024, 1), NetSales: decimal.RequireFromString("12500.55"), Discount: decimal.RequireFromString("500"), Orders: 120},
		{Branch: "Jeddah", Month: core.NewMonth(2025, 12), NetSales: decimal.RequireFromString("0.1"), Discount: decimal.Zero, Orders: 1},
		{Branch: "Dammam", NetSales: decimal.RequireFromString("42"), Discount: decimal.RequireFromString("2"), Orders: 4},
	}
	if err := repo.ReplaceRows(ctx, core.Import{JobID: "job-1", Origin: "sales.csv"}, want); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.ReadRows(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	last, ok, err := repo.LastImport(ctx)
	if err != nil || !ok {
		t.Fatalf("last import: ok=%v err=%v", ok, err)
	}
	if last.JobID != "job-1" || last.Origin != "sales.csv" || last.Rows != 3 || last.ImportedAt.IsZero() {
		t.Fatalf("unexpected import record: %+v", last)
	}
}

func TestRepositoryReplaceDropsPreviousRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := []core.SalesRow{
		{Branch: "A", Month: core.NewMonth(2024, 1), NetSales: decimal.NewFromInt(1), Discount: decimal.Zero},
		{Branch: "B", Month: core.NewMonth(2024, 2), NetSales: decimal.NewFromInt(2), Discount: decimal.Zero},
	}
	second := []core.SalesRow{
		{Branch: "C", Month: core.NewMonth(2025, 3), NetSales: decimal.NewFromInt(3), Discount: decimal.Zero},
	}
	if err := repo.ReplaceRows(ctx, core.Import{JobID: "1", Origin: "a.csv"}, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := repo.ReplaceRows(ctx, core.Import{JobID: "2", Origin: "b.csv"}, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := repo.ReadRows(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Branch != "C" {
		t.Fatalf("expected only the second dataset, got %+v", got)
	}
	last, _, _ := repo.LastImport(ctx)
	if last.JobID != "2" || last.Origin != "b.csv" {
		t.Fatalf("last import should be the second one: %+v", last)
	}
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sales.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows := []core.SalesRow{{Branch: "A", Month: core.NewMonth(2024, 6), NetSales: decimal.NewFromInt(10), Discount: decimal.Zero, Orders: 1}}
	if err := repo.ReplaceRows(ctx, core.Import{JobID: "1", Origin: "x"}, rows); err != nil {
		t.Fatalf("replace: %v", err)
	}
	repo.Close()

	// Migrations must be idempotent on an existing database.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	got, err := repo.ReadRows(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("reopen read: %v %v", got, err)
	}
}
