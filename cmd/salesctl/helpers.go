package main

import (
	"strconv"

	"salesdash/internal/dashboard"
)

// yearFlags fills unset --base/--current flags from the environment.
func yearFlags(base, current int) (int, int) {
	defBase, defCurrent := defaultYears()
	if base == 0 {
		base = defBase
	}
	if current == 0 {
		current = defCurrent
	}
	return base, current
}

// cardRows renders KPI cards as METRIC/VALUE/CLASS rows.
func cardRows(cards []dashboard.KPICard) [][]string {
	out := make([][]string, 0, len(cards))
	for _, c := range cards {
		value := c.Value
		if c.Unit != "" {
			value += " " + c.Unit
		}
		out = append(out, []string{c.Title, value, c.Class})
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
