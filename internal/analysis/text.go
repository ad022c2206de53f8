package analysis

import (
	"math"
	"unicode/utf8"

	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// TextColumnStats profiles one text column. Lengths count characters and
// consider only string values; they are NaN when the column holds none.
type TextColumnStats struct {
	Column     string  `json:"column"`
	MeanLength Float   `json:"mean_length"`
	MaxLength  Float   `json:"max_length"`
	MinLength  Float   `json:"min_length"`
	Unique     int     `json:"unique"`
	Top        []Count `json:"top"`
}

// TextSummary profiles every text column.
type TextSummary struct {
	Columns []TextColumnStats `json:"columns"`
}

// Text builds the text report.
func Text(records []dataset.Record, opt Options) *TextSummary {
	k := opt.TopValues
	if k <= 0 {
		k = 5
	}
	cols := columnsOf(records, opt.Columns)
	s := &TextSummary{Columns: make([]TextColumnStats, 0, len(cols))}
	for _, c := range cols {
		cnt := newCounter()
		var lens []float64
		for _, r := range records {
			v, ok := r[c]
			if !ok {
				continue
			}
			cnt.add(value.Text(v))
			if str, ok := v.(value.String); ok {
				lens = append(lens, float64(utf8.RuneCountInString(string(str))))
			}
		}
		st := TextColumnStats{
			Column:     c,
			MeanLength: Float(mean(lens)),
			MaxLength:  Float(math.NaN()),
			MinLength:  Float(math.NaN()),
			Unique:     cnt.distinct(),
			Top:        cnt.top(k),
		}
		if len(lens) > 0 {
			sorted := sortedCopy(lens)
			st.MinLength = Float(sorted[0])
			st.MaxLength = Float(sorted[len(sorted)-1])
		}
		s.Columns = append(s.Columns, st)
	}
	return s
}
