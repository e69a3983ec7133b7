// Package source defines the data ports the dashboard reads from, plus the
// record parser shared by the CSV and Google Sheets adapters.
package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
)

// Column names expected in the dataset header.
const (
	ColBranch   = "Branch"
	ColMonth    = "Month"
	ColNetSales = "Net_Sales"
	ColDiscount = "Discount_Amount"
	ColOrders   = "Orders"
)

var requiredColumns = []string{ColBranch, ColMonth, ColNetSales, ColDiscount, ColOrders}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"Jan 2006",
	"January 2006",
}

// Columns maps required column names to their position in a record.
type Columns struct {
	branch, month, netSales, discount, orders int
}

// ParseHeader locates the required columns. Extra columns are ignored.
func ParseHeader(header []string) (Columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		// Excel exports sometimes prefix the first cell with a BOM.
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Columns{}, fmt.Errorf("%w: %s; got headers=%v", core.ErrMissingColumn, strings.Join(missing, ","), header)
	}
	cols := Columns{
		branch:   idx[ColBranch],
		month:    idx[ColMonth],
		netSales: idx[ColNetSales],
		discount: idx[ColDiscount],
		orders:   idx[ColOrders],
	}
	return cols, nil
}

// Parse converts one record. line is 1-based and only used in errors.
func (c Columns) Parse(fields []string, line int) (core.SalesRow, error) {
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	net, err := ParseAmount(get(c.netSales))
	if err != nil {
		return core.SalesRow{}, fmt.Errorf("line %d: %s: %w", line, ColNetSales, err)
	}
	disc, err := ParseAmount(get(c.discount))
	if err != nil {
		return core.SalesRow{}, fmt.Errorf("line %d: %s: %w", line, ColDiscount, err)
	}
	orders, err := ParseOrders(get(c.orders))
	if err != nil {
		return core.SalesRow{}, fmt.Errorf("line %d: %s: %w", line, ColOrders, err)
	}
	return core.SalesRow{
		Branch:   get(c.branch),
		Month:    ParseMonth(get(c.month)),
		NetSales: net,
		Discount: disc,
		Orders:   orders,
	}, nil
}

// ParseMonth returns the first day of the month s falls in, or the zero time
// when s matches no known layout.
func ParseMonth(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewMonth(t.Year(), int(t.Month()))
		}
	}
	return time.Time{}
}

// ParseAmount accepts plain or thousands-separated decimals. Blank is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return v, nil
}

var (
	maxOrders = decimal.NewFromInt(math.MaxInt64)
	minOrders = decimal.NewFromInt(math.MinInt64)
)

// ParseOrders accepts integers, including float exports such as "12.0".
// Blank is zero.
func ParseOrders(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil || !v.Equal(v.Truncate(0)) || v.GreaterThan(maxOrders) || v.LessThan(minOrders) {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidOrders, s)
	}
	return v.IntPart(), nil
}
