package dataset

import (
	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// Normalize drops identifier columns and columns that are empty in every row,
// then cleans each row: NaN becomes absent and absent fields are removed.
// It returns the surviving column names and one Record per row, in order.
func Normalize(t *Table, drop []string) ([]string, []Record) {
	deny := make(map[string]struct{}, len(drop))
	for _, c := range drop {
		deny[c] = struct{}{}
	}
	var cols []string
	for _, c := range t.Columns {
		if _, ok := deny[c]; ok {
			continue
		}
		if columnEmpty(t.Rows, c) {
			continue
		}
		cols = append(cols, c)
	}

	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		obj := make(value.Object, len(cols))
		for _, c := range cols {
			if v, ok := row[c]; ok {
				obj[c] = v
			}
		}
		out = append(out, value.Clean(obj).(value.Object))
	}
	return cols, out
}

func columnEmpty(rows []value.Object, col string) bool {
	for _, row := range rows {
		if !isMissing(row[col]) {
			return false
		}
	}
	return true
}

func isMissing(v value.Value) bool {
	switch x := v.(type) {
	case nil, value.Null:
		return true
	case value.Number:
		return x.IsNaN()
	default:
		return false
	}
}
