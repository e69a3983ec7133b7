package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LabelLayout renders a month as "Jan 2024".
const LabelLayout = "Jan 2006"

type (
	// SalesRow is one branch/month line of the dataset.
	SalesRow struct {
		Branch string
		// Month is the first day of the month in UTC. Zero when the source
		// date could not be parsed.
		Month    time.Time
		NetSales decimal.Decimal
		Discount decimal.Decimal
		Orders   int64
	}

	// Measures holds the three summed columns.
	Measures struct {
		NetSales  decimal.Decimal
		Discounts decimal.Decimal
		Orders    int64
	}

	// YearMonth identifies a calendar month.
	YearMonth struct {
		Year  int
		Month int // 1-12
	}

	// Import records one replacement of the stored dataset.
	Import struct {
		JobID      string
		Origin     string
		Rows       int
		ImportedAt time.Time
	}

	Metric string
)

const (
	MetricNetSales  Metric = "net_sales"
	MetricDiscounts Metric = "discounts"
	MetricOrders    Metric = "orders"
)

// Metrics lists the measures in display order.
var Metrics = []Metric{MetricNetSales, MetricDiscounts, MetricOrders}

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidOrders = errors.New("invalid orders")
	ErrInvalidRange  = errors.New("invalid month range")
	ErrInvalidMonth  = errors.New("invalid month")
)

// Title returns the human name used in chart titles and buttons.
func (m Metric) Title() string {
	switch m {
	case MetricNetSales:
		return "Net Sales"
	case MetricDiscounts:
		return "Discounts"
	case MetricOrders:
		return "Orders"
	default:
		return string(m)
	}
}

// Dated reports whether the row carries a usable month.
func (r SalesRow) Dated() bool {
	return !r.Month.IsZero()
}

// Year returns the calendar year, or 0 for undated rows.
func (r SalesRow) Year() int {
	if !r.Dated() {
		return 0
	}
	return r.Month.Year()
}

// YearMonth returns the row's calendar month.
func (r SalesRow) YearMonth() YearMonth {
	if !r.Dated() {
		return YearMonth{}
	}
	return YearMonth{Year: r.Month.Year(), Month: int(r.Month.Month())}
}

// Label returns the display label, e.g. "Mar 2025".
func (r SalesRow) Label() string {
	if !r.Dated() {
		return ""
	}
	return r.Month.Format(LabelLayout)
}

// Measures returns the row's contribution to a sum.
func (r SalesRow) Measures() Measures {
	return Measures{NetSales: r.NetSales, Discounts: r.Discount, Orders: r.Orders}
}

// Add returns the element-wise sum of m and o.
func (m Measures) Add(o Measures) Measures {
	return Measures{
		NetSales:  m.NetSales.Add(o.NetSales),
		Discounts: m.Discounts.Add(o.Discounts),
		Orders:    m.Orders + o.Orders,
	}
}

// Value returns the given metric as a decimal.
func (m Measures) Value(metric Metric) decimal.Decimal {
	switch metric {
	case MetricDiscounts:
		return m.Discounts
	case MetricOrders:
		return decimal.NewFromInt(m.Orders)
	default:
		return m.NetSales
	}
}

// IsZero reports whether every measure is zero.
func (m Measures) IsZero() bool {
	return m.NetSales.IsZero() && m.Discounts.IsZero() && m.Orders == 0
}

// NewMonth returns the first day of year/month in UTC.
func NewMonth(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// Validate checks the month is within 1-12.
func (ym YearMonth) Validate() error {
	if ym.Month < 1 || ym.Month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, ym.Month)
	}
	return nil
}

// Index orders months across years.
func (ym YearMonth) Index() int {
	return ym.Year*12 + ym.Month - 1
}

// Time returns the first day of the month.
func (ym YearMonth) Time() time.Time {
	return NewMonth(ym.Year, ym.Month)
}

// AddYears shifts the month by n years.
func (ym YearMonth) AddYears(n int) YearMonth {
	return YearMonth{Year: ym.Year + n, Month: ym.Month}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// ParseYearMonth accepts "2024-03".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

// MonthName returns the full English month name, "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}
