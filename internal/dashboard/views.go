// Package dashboard turns report aggregates into the view models a chart
// front end renders: KPI cards with display strings, chart traces and the
// metric buttons that toggle them.
package dashboard

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
	"salesdash/internal/report"
)

// Unit is the currency shown next to amounts.
const Unit = "SAR"

// Trace kinds.
const (
	KindLine = "line"
	KindBar  = "bar"
)

type (
	// KPICard is one headline figure. Value is already formatted.
	KPICard struct {
		Title string `json:"title" yaml:"title"`
		Value string `json:"value" yaml:"value"`
		Unit  string `json:"unit,omitempty" yaml:"unit,omitempty"`
		Class string `json:"class,omitempty" yaml:"class,omitempty"`
	}

	// Trace is one chart series.
	Trace struct {
		Name    string    `json:"name" yaml:"name"`
		Kind    string    `json:"kind" yaml:"kind"`
		X       []string  `json:"x" yaml:"x"`
		Y       []float64 `json:"y" yaml:"y"`
		Visible bool      `json:"visible" yaml:"visible"`
	}

	// MetricButton switches the chart to one metric: Visible has one entry
	// per trace and Title replaces the chart title.
	MetricButton struct {
		Label   string `json:"label" yaml:"label"`
		Title   string `json:"title" yaml:"title"`
		Visible []bool `json:"visible" yaml:"visible"`
	}

	Chart struct {
		Title   string         `json:"title" yaml:"title"`
		Traces  []Trace        `json:"traces" yaml:"traces"`
		Buttons []MetricButton `json:"buttons" yaml:"buttons"`
	}

	// OverviewView covers the whole dataset.
	OverviewView struct {
		Cards    []KPICard `json:"cards" yaml:"cards"`
		Branches []string  `json:"branches" yaml:"branches"`
		Branch   string    `json:"branch" yaml:"branch"`
		Chart    Chart     `json:"chart" yaml:"chart"`
	}

	// YearView is the overview restricted to one calendar year.
	YearView struct {
		Year     int       `json:"year" yaml:"year"`
		Cards    []KPICard `json:"cards" yaml:"cards"`
		Branches []string  `json:"branches" yaml:"branches"`
		Branch   string    `json:"branch" yaml:"branch"`
		Chart    Chart     `json:"chart" yaml:"chart"`
	}

	// ComparisonView compares two years: growth cards over every branch and a
	// bar chart of one month for the selected branch.
	ComparisonView struct {
		BaseYear    int       `json:"base_year" yaml:"base_year"`
		CompareYear int       `json:"compare_year" yaml:"compare_year"`
		Cards       []KPICard `json:"cards" yaml:"cards"`
		Branches    []string  `json:"branches" yaml:"branches"`
		Branch      string    `json:"branch" yaml:"branch"`
		Months      []int     `json:"months" yaml:"months"`
		Month       int       `json:"month" yaml:"month"`
		Chart       Chart     `json:"chart" yaml:"chart"`
	}

	// RangeView compares an arbitrary month window against a baseline.
	RangeView struct {
		Current  string    `json:"current" yaml:"current"`
		Baseline string    `json:"baseline" yaml:"baseline"`
		Branch   string    `json:"branch,omitempty" yaml:"branch,omitempty"`
		Branches []string  `json:"branches" yaml:"branches"`
		Cards    []KPICard `json:"cards" yaml:"cards"`
		Chart    Chart     `json:"chart" yaml:"chart"`
	}

	GrowthRow struct {
		Branch           string `json:"branch" yaml:"branch"`
		BaseNetSales     string `json:"base_net_sales" yaml:"base_net_sales"`
		CurrentNetSales  string `json:"current_net_sales" yaml:"current_net_sales"`
		NetSalesGrowth   string `json:"net_sales_growth" yaml:"net_sales_growth"`
		BaseDiscounts    string `json:"base_discounts" yaml:"base_discounts"`
		CurrentDiscounts string `json:"current_discounts" yaml:"current_discounts"`
		DiscountsGrowth  string `json:"discounts_growth" yaml:"discounts_growth"`
		BaseOrders       string `json:"base_orders" yaml:"base_orders"`
		CurrentOrders    string `json:"current_orders" yaml:"current_orders"`
		OrdersGrowth     string `json:"orders_growth" yaml:"orders_growth"`
		Class            string `json:"class" yaml:"class"`
	}

	GrowthTableView struct {
		BaseYear    int         `json:"base_year" yaml:"base_year"`
		CompareYear int         `json:"compare_year" yaml:"compare_year"`
		Rows        []GrowthRow `json:"rows" yaml:"rows"`
		Total       GrowthRow   `json:"total" yaml:"total"`
	}

	ShareRow struct {
		Branch   string  `json:"branch" yaml:"branch"`
		NetSales string  `json:"net_sales" yaml:"net_sales"`
		Percent  float64 `json:"percent" yaml:"percent"`
		Share    string  `json:"share" yaml:"share"`
	}

	// ContributionView splits net sales by branch. Year 0 covers all rows.
	ContributionView struct {
		Year   int        `json:"year,omitempty" yaml:"year,omitempty"`
		Total  string     `json:"total" yaml:"total"`
		Shares []ShareRow `json:"shares" yaml:"shares"`
	}
)

// Overview builds the all-time view. An empty or unknown branch selects the
// first branch.
func Overview(rows []core.SalesRow, branch string) OverviewView {
	branches := report.Branches(rows)
	selected := SelectBranch(branches, branch)
	return OverviewView{
		Cards:    TotalCards(report.Totals(rows)),
		Branches: branches,
		Branch:   selected,
		Chart:    trendChart(branchSeries(rows, selected), ""),
	}
}

// Year builds the overview for one calendar year. Only branches with rows in
// that year are offered.
func Year(rows []core.SalesRow, year int, branch string) YearView {
	yearRows := report.Filter{Year: year}.Apply(rows)
	branches := report.Branches(yearRows)
	selected := SelectBranch(branches, branch)
	return YearView{
		Year:     year,
		Cards:    TotalCards(report.Totals(yearRows)),
		Branches: branches,
		Branch:   selected,
		Chart:    trendChart(branchSeries(yearRows, selected), fmt.Sprintf(" (%d)", year)),
	}
}

// Comparison builds the year-over-year view. The growth cards cover every
// branch; the bar chart shows month for the selected branch. A month with no
// data in either year falls back to the first available one.
func Comparison(rows []core.SalesRow, baseYear, compareYear int, branch string, month int) ComparisonView {
	branches := report.Branches(rows)
	selected := SelectBranch(branches, branch)

	base := report.Totals(report.Filter{Year: baseYear}.Apply(rows))
	current := report.Totals(report.Filter{Year: compareYear}.Apply(rows))

	months := report.AvailableMonths(
		report.Filter{Branch: selected, Year: baseYear}.Apply(rows),
		report.Filter{Branch: selected, Year: compareYear}.Apply(rows),
	)
	month = selectMonth(months, month)

	v := ComparisonView{
		BaseYear:    baseYear,
		CompareYear: compareYear,
		Cards:       GrowthCards(report.GrowthOf(base, current)),
		Branches:    branches,
		Branch:      selected,
		Months:      months,
		Month:       month,
		Chart:       Chart{Traces: []Trace{}, Buttons: []MetricButton{}},
	}
	if month != 0 {
		v.Chart = monthBarChart(report.MonthComparison(rows, selected, month, baseYear, compareYear))
	}
	return v
}

// Range compares two month windows. A zero baseline defaults to the prior
// year; an empty branch aggregates every branch.
func Range(rows []core.SalesRow, current, baseline report.MonthRange, branch string) RangeView {
	if baseline.IsZero() {
		baseline = report.PriorYearWindow(current)
	}
	cmp := report.CompareWindows(rows, current, baseline, branch)

	cards := TotalCards(cmp.Current)
	cards = append(cards, GrowthCards(cmp.Growth)...)

	inRange := report.Filter{Branch: branch, Range: current}.Apply(rows)
	return RangeView{
		Current:  current.String(),
		Baseline: baseline.String(),
		Branch:   branch,
		Branches: report.Branches(rows),
		Cards:    cards,
		Chart:    trendChart(report.MonthlySeries(inRange, branch), " ("+current.String()+")"),
	}
}

// GrowthTable merges the per-branch totals of two years.
func GrowthTable(rows []core.SalesRow, baseYear, compareYear int) GrowthTableView {
	res := report.GrowthTable(
		report.Filter{Year: baseYear}.Apply(rows),
		report.Filter{Year: compareYear}.Apply(rows),
	)
	v := GrowthTableView{
		BaseYear:    baseYear,
		CompareYear: compareYear,
		Rows:        make([]GrowthRow, 0, len(res.Lines)),
		Total:       growthRow(res.Total),
	}
	for _, l := range res.Lines {
		v.Rows = append(v.Rows, growthRow(l))
	}
	return v
}

// Contribution splits net sales of year (0 = all rows) by branch.
func Contribution(rows []core.SalesRow, year int) ContributionView {
	if year != 0 {
		rows = report.Filter{Year: year}.Apply(rows)
	}
	shares := report.Contribution(rows)
	v := ContributionView{
		Year:   year,
		Total:  report.FormatAmount(report.Totals(rows).NetSales),
		Shares: make([]ShareRow, 0, len(shares)),
	}
	for _, s := range shares {
		v.Shares = append(v.Shares, ShareRow{
			Branch:   s.Branch,
			NetSales: report.FormatAmount(s.NetSales),
			Percent:  s.Percent,
			Share:    report.FormatPercent(s.Percent),
		})
	}
	return v
}

// TotalCards renders the three total cards.
func TotalCards(m core.Measures) []KPICard {
	return []KPICard{
		{Title: "Total Net Sales", Value: report.FormatAmount(m.NetSales), Unit: Unit},
		{Title: "Total Discounts", Value: report.FormatAmount(m.Discounts), Unit: Unit},
		{Title: "Total Orders", Value: report.FormatCount(m.Orders)},
	}
}

// GrowthCards renders the three growth cards with their display class.
func GrowthCards(g report.GrowthRates) []KPICard {
	cards := make([]KPICard, 0, len(core.Metrics))
	for _, m := range core.Metrics {
		pct := g.Value(m)
		cards = append(cards, KPICard{
			Title: m.Title() + " Growth",
			Value: report.FormatPercent(pct),
			Class: report.Classify(pct),
		})
	}
	return cards
}

// SelectBranch returns want when it is one of branches, else the first
// branch. Returns "" when there are none.
func SelectBranch(branches []string, want string) string {
	for _, b := range branches {
		if b == want {
			return b
		}
	}
	if len(branches) == 0 {
		return ""
	}
	return branches[0]
}

func selectMonth(months []int, want int) int {
	for _, m := range months {
		if m == want {
			return m
		}
	}
	if len(months) == 0 {
		return 0
	}
	return months[0]
}

// branchSeries is empty when no branch is selected, so a dataset without
// rows yields an empty chart rather than an all-branch one.
func branchSeries(rows []core.SalesRow, branch string) []report.SeriesPoint {
	if branch == "" {
		return nil
	}
	return report.MonthlySeries(rows, branch)
}

// trendChart draws one line per metric over points; only net sales starts
// visible.
func trendChart(points []report.SeriesPoint, suffix string) Chart {
	title := func(m core.Metric) string { return m.Title() + " by Month" + suffix }

	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Label
	}

	c := Chart{Title: title(core.MetricNetSales)}
	for i, m := range core.Metrics {
		y := make([]float64, len(points))
		for j, p := range points {
			y[j] = p.Value(m).InexactFloat64()
		}
		c.Traces = append(c.Traces, Trace{Name: m.Title(), Kind: KindLine, X: labels, Y: y, Visible: i == 0})
		c.Buttons = append(c.Buttons, MetricButton{Label: m.Title(), Title: title(m), Visible: onlyVisible(len(core.Metrics), i, 1)})
	}
	return c
}

// monthBarChart draws a base and a compare bar per metric, six traces in
// metric order.
func monthBarChart(p report.MonthPair) Chart {
	base, cmp := strconv.Itoa(p.BaseYear), strconv.Itoa(p.CompareYear)
	title := func(m core.Metric) string {
		return fmt.Sprintf("%s in %s (%s vs %s)", m.Title(), core.MonthName(p.Month), base, cmp)
	}

	n := len(core.Metrics)
	c := Chart{Title: title(core.MetricNetSales)}
	for i, m := range core.Metrics {
		c.Traces = append(c.Traces,
			barTrace(m.Title()+" "+base, base, p.Base.Value(m), i == 0),
			barTrace(m.Title()+" "+cmp, cmp, p.Compare.Value(m), i == 0),
		)
		c.Buttons = append(c.Buttons, MetricButton{Label: m.Title(), Title: title(m), Visible: onlyVisible(n, i, 2)})
	}
	return c
}

func barTrace(name, x string, y decimal.Decimal, visible bool) Trace {
	return Trace{Name: name, Kind: KindBar, X: []string{x}, Y: []float64{y.InexactFloat64()}, Visible: visible}
}

// onlyVisible marks the width traces of group i visible out of groups*width.
func onlyVisible(groups, i, width int) []bool {
	v := make([]bool, groups*width)
	for j := range v {
		v[j] = j/width == i
	}
	return v
}

func growthRow(l report.GrowthLine) GrowthRow {
	return GrowthRow{
		Branch:           l.Branch,
		BaseNetSales:     report.FormatAmount(l.Base.NetSales),
		CurrentNetSales:  report.FormatAmount(l.Current.NetSales),
		NetSalesGrowth:   report.FormatPercent(l.Growth.NetSales),
		BaseDiscounts:    report.FormatAmount(l.Base.Discounts),
		CurrentDiscounts: report.FormatAmount(l.Current.Discounts),
		DiscountsGrowth:  report.FormatPercent(l.Growth.Discounts),
		BaseOrders:       report.FormatCount(l.Base.Orders),
		CurrentOrders:    report.FormatCount(l.Current.Orders),
		OrdersGrowth:     report.FormatPercent(l.Growth.Orders),
		Class:            report.Classify(l.Growth.NetSales),
	}
}
