package analysis

import (
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// DiagnosisSummary ranks diagnosis values and their comma-separated terms.
// Present is false, and the lists empty, when no record has the column.
type DiagnosisSummary struct {
	Column     string  `json:"column"`
	Present    bool    `json:"present"`
	Categories int     `json:"categories"`
	Top        []Count `json:"top"`
	TopTerms   []Count `json:"top_terms"`
}

// Diagnosis builds the diagnosis report from the configured column.
func Diagnosis(records []dataset.Record, opt Options) *DiagnosisSummary {
	col := opt.DiagnosisColumn
	if col == "" {
		col = DefaultDiagnosisColumn
	}
	topN, termN := opt.TopDiagnoses, opt.TopTokens
	if topN <= 0 {
		topN = 10
	}
	if termN <= 0 {
		termN = 20
	}
	s := &DiagnosisSummary{Column: col, Top: []Count{}, TopTerms: []Count{}}
	raw, terms := newCounter(), newCounter()
	for _, r := range records {
		v, ok := r[col]
		if !ok {
			continue
		}
		s.Present = true
		raw.add(value.Text(v))
		str, ok := v.(value.String)
		if !ok {
			continue
		}
		// empty terms from ",," are counted as-is
		for _, t := range strings.Split(string(str), ",") {
			terms.add(strings.TrimSpace(t))
		}
	}
	if !s.Present {
		return s
	}
	s.Categories = raw.distinct()
	s.Top = raw.top(topN)
	s.TopTerms = terms.top(termN)
	return s
}
