// Package report holds the pure aggregation functions behind the dashboard:
// grouping, growth percentages, month-range filtering and comparison windows.
//
// Nothing here keeps state; every function works over the slice it is given.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
)

// BranchTotal is the aggregate of one branch.
type BranchTotal struct {
	Branch string
	core.Measures
}

// YearTotal is the aggregate of one calendar year.
type YearTotal struct {
	Year int
	core.Measures
}

// SeriesPoint is one month of a trend chart.
type SeriesPoint struct {
	Month core.YearMonth
	Label string
	core.Measures
}

// Totals sums the three measures over rows.
func Totals(rows []core.SalesRow) core.Measures {
	var m core.Measures
	for _, r := range rows {
		m = m.Add(r.Measures())
	}
	return m
}

// ByBranch groups rows by branch, sorted by branch name.
func ByBranch(rows []core.SalesRow) []BranchTotal {
	groups := make(map[string]core.Measures)
	for _, r := range rows {
		groups[r.Branch] = groups[r.Branch].Add(r.Measures())
	}
	out := make([]BranchTotal, 0, len(groups))
	for b, m := range groups {
		out = append(out, BranchTotal{Branch: b, Measures: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Branch < out[j].Branch })
	return out
}

// ByYear groups dated rows by calendar year, ascending.
func ByYear(rows []core.SalesRow) []YearTotal {
	groups := make(map[int]core.Measures)
	for _, r := range rows {
		if !r.Dated() {
			continue
		}
		groups[r.Year()] = groups[r.Year()].Add(r.Measures())
	}
	out := make([]YearTotal, 0, len(groups))
	for y, m := range groups {
		out = append(out, YearTotal{Year: y, Measures: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Branches returns the sorted unique branch names.
func Branches(rows []core.SalesRow) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range rows {
		if _, ok := seen[r.Branch]; ok {
			continue
		}
		seen[r.Branch] = struct{}{}
		out = append(out, r.Branch)
	}
	sort.Strings(out)
	return out
}

// Years returns the sorted unique years of dated rows.
func Years(rows []core.SalesRow) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, r := range rows {
		if !r.Dated() {
			continue
		}
		if _, ok := seen[r.Year()]; ok {
			continue
		}
		seen[r.Year()] = struct{}{}
		out = append(out, r.Year())
	}
	sort.Ints(out)
	return out
}

// MonthlySeries returns one point per month for branch, ascending.
// An empty branch aggregates every branch.
func MonthlySeries(rows []core.SalesRow, branch string) []SeriesPoint {
	groups := make(map[core.YearMonth]core.Measures)
	for _, r := range rows {
		if !r.Dated() || (branch != "" && r.Branch != branch) {
			continue
		}
		ym := r.YearMonth()
		groups[ym] = groups[ym].Add(r.Measures())
	}
	out := make([]SeriesPoint, 0, len(groups))
	for ym, m := range groups {
		out = append(out, SeriesPoint{Month: ym, Label: ym.Time().Format(core.LabelLayout), Measures: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Index() < out[j].Month.Index() })
	return out
}

// AvailableMonths returns the calendar months (1-12) present in any of the
// given row sets.
func AvailableMonths(sets ...[]core.SalesRow) []int {
	var present [13]bool
	for _, rows := range sets {
		for _, r := range rows {
			if r.Dated() {
				present[r.Month.Month()] = true
			}
		}
	}
	out := make([]int, 0, 12)
	for m := 1; m <= 12; m++ {
		if present[m] {
			out = append(out, m)
		}
	}
	return out
}

// Share is one branch's slice of total net sales.
type Share struct {
	Branch   string
	NetSales decimal.Decimal
	Percent  float64
}

// Contribution returns each branch's percentage of total net sales, largest
// first. All percentages are zero when the total is zero.
func Contribution(rows []core.SalesRow) []Share {
	branches := ByBranch(rows)
	total := decimal.Zero
	for _, b := range branches {
		total = total.Add(b.NetSales)
	}
	out := make([]Share, 0, len(branches))
	for _, b := range branches {
		s := Share{Branch: b.Branch, NetSales: b.NetSales}
		if !total.IsZero() {
			s.Percent = b.NetSales.Div(total).Mul(hundred).InexactFloat64()
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Branch < out[j].Branch
	})
	return out
}
