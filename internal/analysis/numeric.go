package analysis

import (
	"math"

	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// ColumnStats is the describe() row of one numeric column.
type ColumnStats struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	Q1     Float  `json:"q1"`
	Median Float  `json:"median"`
	Q3     Float  `json:"q3"`
	Max    Float  `json:"max"`
}

// OutlierStats counts values outside [Q1-1.5·IQR, Q3+1.5·IQR].
type OutlierStats struct {
	Column  string `json:"column"`
	Lower   Float  `json:"lower"`
	Upper   Float  `json:"upper"`
	Count   int    `json:"count"`
	Percent Float  `json:"percent"`
}

// NumericSummary describes every numeric column.
type NumericSummary struct {
	Columns  []string       `json:"columns"`
	Describe []ColumnStats  `json:"describe"`
	Outliers []OutlierStats `json:"outliers"`
	// Correlation is the Pearson matrix indexed like Columns.
	Correlation [][]Float `json:"correlation"`
}

// Numeric builds the numeric report. Booleans count as 0 and 1. Outlier
// percentages are relative to all records, not just the non-missing ones.
func Numeric(records []dataset.Record, opt Options) *NumericSummary {
	cols := columnsOf(records, opt.Columns)
	s := &NumericSummary{
		Columns:     cols,
		Describe:    make([]ColumnStats, 0, len(cols)),
		Outliers:    make([]OutlierStats, 0, len(cols)),
		Correlation: make([][]Float, len(cols)),
	}
	for _, c := range cols {
		vals := numbersOf(records, c)
		sorted := sortedCopy(vals)
		st := ColumnStats{
			Column: c,
			Count:  len(vals),
			Mean:   Float(mean(vals)),
			Std:    Float(sampleStd(vals)),
			Min:    Float(quantile(sorted, 0)),
			Q1:     Float(quantile(sorted, 0.25)),
			Median: Float(quantile(sorted, 0.5)),
			Q3:     Float(quantile(sorted, 0.75)),
			Max:    Float(quantile(sorted, 1)),
		}
		s.Describe = append(s.Describe, st)
		s.Outliers = append(s.Outliers, outliers(c, vals, float64(st.Q1), float64(st.Q3), len(records)))
	}
	for i, a := range cols {
		s.Correlation[i] = make([]Float, len(cols))
		for j, b := range cols {
			if j < i {
				s.Correlation[i][j] = s.Correlation[j][i]
				continue
			}
			xs, ys := pairs(records, a, b)
			s.Correlation[i][j] = Float(pearson(xs, ys))
		}
	}
	return s
}

func outliers(col string, vals []float64, q1, q3 float64, total int) OutlierStats {
	iqr := q3 - q1
	o := OutlierStats{
		Column: col,
		Lower:  Float(q1 - 1.5*iqr),
		Upper:  Float(q3 + 1.5*iqr),
	}
	for _, v := range vals {
		if v < float64(o.Lower) || v > float64(o.Upper) {
			o.Count++
		}
	}
	if total > 0 {
		o.Percent = Float(float64(o.Count) / float64(total) * 100)
	} else {
		o.Percent = Float(math.NaN())
	}
	return o
}

func numbersOf(records []dataset.Record, col string) []float64 {
	var out []float64
	for _, r := range records {
		if f, ok := numberAt(r, col); ok {
			out = append(out, f)
		}
	}
	return out
}

// pairs returns the observations where both columns are present.
func pairs(records []dataset.Record, a, b string) (xs, ys []float64) {
	for _, r := range records {
		x, okx := numberAt(r, a)
		y, oky := numberAt(r, b)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func numberAt(r dataset.Record, col string) (float64, bool) {
	v, ok := r[col]
	if !ok {
		return 0, false
	}
	f, ok := value.Float(v)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
