package report

import (
	"fmt"

	"salesdash/internal/core"
)

// MonthRange is an inclusive span of calendar months.
type MonthRange struct {
	From core.YearMonth
	To   core.YearMonth
}

// NewMonthRange validates both ends and their order.
func NewMonthRange(from, to core.YearMonth) (MonthRange, error) {
	if err := from.Validate(); err != nil {
		return MonthRange{}, err
	}
	if err := to.Validate(); err != nil {
		return MonthRange{}, err
	}
	if from.Index() > to.Index() {
		return MonthRange{}, fmt.Errorf("%w: %s is after %s", core.ErrInvalidRange, from, to)
	}
	return MonthRange{From: from, To: to}, nil
}

// YearRange covers January through December of year.
func YearRange(year int) MonthRange {
	return MonthRange{From: core.YearMonth{Year: year, Month: 1}, To: core.YearMonth{Year: year, Month: 12}}
}

// IsZero reports an unset range.
func (r MonthRange) IsZero() bool {
	return r.From == (core.YearMonth{}) && r.To == (core.YearMonth{})
}

// Contains reports whether ym lies within the range.
func (r MonthRange) Contains(ym core.YearMonth) bool {
	i := ym.Index()
	return i >= r.From.Index() && i <= r.To.Index()
}

// Months returns the number of months covered.
func (r MonthRange) Months() int {
	return r.To.Index() - r.From.Index() + 1
}

func (r MonthRange) String() string {
	return r.From.String() + ".." + r.To.String()
}

// ShiftYears moves both ends by n years.
func ShiftYears(r MonthRange, n int) MonthRange {
	return MonthRange{From: r.From.AddYears(n), To: r.To.AddYears(n)}
}

// PriorYearWindow is the default baseline for a range.
func PriorYearWindow(r MonthRange) MonthRange {
	return ShiftYears(r, -1)
}

// FilterRange keeps rows whose month falls within r, in input order.
// Undated rows never match.
func FilterRange(rows []core.SalesRow, r MonthRange) []core.SalesRow {
	out := make([]core.SalesRow, 0)
	for _, row := range rows {
		if row.Dated() && r.Contains(row.YearMonth()) {
			out = append(out, row)
		}
	}
	return out
}

// Filter combines the user-selected dimensions. Zero fields match anything.
type Filter struct {
	Branch string
	Year   int
	Month  int
	Range  MonthRange
}

// Match reports whether row passes every set dimension.
func (f Filter) Match(row core.SalesRow) bool {
	if f.Branch != "" && row.Branch != f.Branch {
		return false
	}
	dated := f.Year != 0 || f.Month != 0 || !f.Range.IsZero()
	if !dated {
		return true
	}
	if !row.Dated() {
		return false
	}
	if f.Year != 0 && row.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(row.Month.Month()) != f.Month {
		return false
	}
	if !f.Range.IsZero() && !f.Range.Contains(row.YearMonth()) {
		return false
	}
	return true
}

// Apply returns the rows matching f, in input order.
func (f Filter) Apply(rows []core.SalesRow) []core.SalesRow {
	out := make([]core.SalesRow, 0)
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// WindowComparison compares two month ranges.
type WindowComparison struct {
	CurrentRange  MonthRange
	BaselineRange MonthRange
	Current       core.Measures
	Baseline      core.Measures
	Growth        GrowthRates
}

// CompareWindows sums each window for branch (empty = all) and computes the
// growth from baseline to current.
func CompareWindows(rows []core.SalesRow, current, baseline MonthRange, branch string) WindowComparison {
	cur := Totals(Filter{Branch: branch, Range: current}.Apply(rows))
	base := Totals(Filter{Branch: branch, Range: baseline}.Apply(rows))
	return WindowComparison{
		CurrentRange:  current,
		BaselineRange: baseline,
		Current:       cur,
		Baseline:      base,
		Growth:        GrowthOf(base, cur),
	}
}

// MonthPair holds one calendar month in two years.
type MonthPair struct {
	Month       int
	BaseYear    int
	CompareYear int
	Base        core.Measures
	Compare     core.Measures
	Growth      GrowthRates
}

// MonthComparison sums a single calendar month of branch in baseYear and
// compareYear.
func MonthComparison(rows []core.SalesRow, branch string, month, baseYear, compareYear int) MonthPair {
	base := Totals(Filter{Branch: branch, Year: baseYear, Month: month}.Apply(rows))
	cmp := Totals(Filter{Branch: branch, Year: compareYear, Month: month}.Apply(rows))
	return MonthPair{
		Month:       month,
		BaseYear:    baseYear,
		CompareYear: compareYear,
		Base:        base,
		Compare:     cmp,
		Growth:      GrowthOf(base, cmp),
	}
}
