package csvfile

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
	"salesdash/internal/report"
)

func TestReadRowsPlainAndGzip(t *testing.T) {
	for _, name := range []string{"sales.csv", "sales.csv.gz"} {
		t.Run(name, func(t *testing.T) {
			rows, err := New(filepath.Join("testdata", name)).ReadRows(context.Background())
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(rows) != 9 {
				t.Fatalf("got %d rows, want 9", len(rows))
			}
			if rows[0].Branch != "Riyadh" || !rows[0].NetSales.Equal(decimal.RequireFromString("12500.50")) {
				t.Fatalf("first row = %+v", rows[0])
			}
			if rows[7].Orders != 40 {
				t.Fatalf("float orders not converted: %+v", rows[7])
			}
			if rows[8].Dated() {
				t.Fatalf("unparseable month should be undated: %+v", rows[8])
			}
			total := report.Totals(rows)
			if !total.NetSales.Equal(decimal.RequireFromString("80651.25")) {
				t.Fatalf("net total = %s", total.NetSales)
			}
		})
	}
}

func TestReadRowsMissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope.csv")).ReadRows(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", core.ErrMissingColumn},
		{"missing column", "Branch,Month,Net_Sales\nA,2024-01-01,1\n", core.ErrMissingColumn},
		{"bad amount", "Branch,Month,Net_Sales,Discount_Amount,Orders\nA,2024-01-01,x,0,1\n", core.ErrInvalidAmount},
		{"bad orders", "Branch,Month,Net_Sales,Discount_Amount,Orders\nA,2024-01-01,1,0,1.5\n", core.ErrInvalidOrders},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(context.Background(), strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadSkipsBlankLines(t *testing.T) {
	in := "Branch,Month,Net_Sales,Discount_Amount,Orders\nA,2024-01-01,1,0,1\n,,,,\nB,2024-01-01,2,0,2\n"
	rows, err := Read(context.Background(), strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}
