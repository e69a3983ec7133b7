package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Growth classes, matching the card styles the dashboard renders.
const (
	ClassPositive = "positive"
	ClassNegative = "negative"
	ClassNeutral  = "neutral"
)

// GrowthRates holds the percentage change of each measure.
type GrowthRates struct {
	NetSales  float64
	Discounts float64
	Orders    float64
}

// Value returns the rate for metric.
func (g GrowthRates) Value(metric core.Metric) float64 {
	switch metric {
	case core.MetricDiscounts:
		return g.Discounts
	case core.MetricOrders:
		return g.Orders
	default:
		return g.NetSales
	}
}

// Growth returns (current-base)/base*100. A zero base yields 0.
func Growth(base, current decimal.Decimal) float64 {
	if base.IsZero() {
		return 0
	}
	return current.Sub(base).Div(base).Mul(hundred).InexactFloat64()
}

// GrowthOf applies Growth to each measure.
func GrowthOf(base, current core.Measures) GrowthRates {
	return GrowthRates{
		NetSales:  Growth(base.NetSales, current.NetSales),
		Discounts: Growth(base.Discounts, current.Discounts),
		Orders:    Growth(decimal.NewFromInt(base.Orders), decimal.NewFromInt(current.Orders)),
	}
}

// Classify maps a percentage to its display class.
func Classify(pct float64) string {
	switch {
	case pct > 0:
		return ClassPositive
	case pct < 0:
		return ClassNegative
	default:
		return ClassNeutral
	}
}

// GrowthLine is one branch of a growth table.
type GrowthLine struct {
	Branch  string
	Base    core.Measures
	Current core.Measures
	Growth  GrowthRates
}

// GrowthTableResult merges two per-branch aggregates.
type GrowthTableResult struct {
	Lines []GrowthLine
	Total GrowthLine
}

// TotalBranch names the grand-total line of a growth table.
const TotalBranch = "Total"

// GrowthTable joins the per-branch totals of baseRows and currentRows on
// branch name. A branch missing from one side counts as zero there.
func GrowthTable(baseRows, currentRows []core.SalesRow) GrowthTableResult {
	merged := make(map[string]*GrowthLine)
	line := func(branch string) *GrowthLine {
		l, ok := merged[branch]
		if !ok {
			l = &GrowthLine{Branch: branch}
			merged[branch] = l
		}
		return l
	}
	for _, b := range ByBranch(baseRows) {
		line(b.Branch).Base = b.Measures
	}
	for _, b := range ByBranch(currentRows) {
		line(b.Branch).Current = b.Measures
	}

	res := GrowthTableResult{Lines: make([]GrowthLine, 0, len(merged))}
	res.Total.Branch = TotalBranch
	for _, l := range merged {
		l.Growth = GrowthOf(l.Base, l.Current)
		res.Lines = append(res.Lines, *l)
		res.Total.Base = res.Total.Base.Add(l.Base)
		res.Total.Current = res.Total.Current.Add(l.Current)
	}
	sort.Slice(res.Lines, func(i, j int) bool { return res.Lines[i].Branch < res.Lines[j].Branch })
	res.Total.Growth = GrowthOf(res.Total.Base, res.Total.Current)
	return res
}
