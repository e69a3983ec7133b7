package google

import (
	"fmt"
	"strings"

	"salesdash/internal/core"
	"salesdash/internal/source"
)

// parseValues converts a values matrix (as returned by the Sheets API) into
// rows. The first row must be the header.
func parseValues(values [][]interface{}) ([]core.SalesRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	cols, err := source.ParseHeader(toStrings(values[0]))
	if err != nil {
		return nil, err
	}
	rows := make([]core.SalesRow, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		rec := toStrings(values[i])
		if isBlank(rec) {
			continue
		}
		// Sheet rows are 1-based and the header occupies row 1.
		row, err := cols.Parse(rec, i+1)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
