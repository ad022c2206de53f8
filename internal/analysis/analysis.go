// Package analysis computes descriptive reports over partitioned clinical
// records: numeric summaries, text profiles, diagnosis frequencies and
// date ranges.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
)

// DefaultDiagnosisColumn is the pathology diagnosis field of hospital exports.
const DefaultDiagnosisColumn = "病理诊断（病案首页）"

// Options controls the report builders.
type Options struct {
	// Columns fixes the column order of reports. Columns not listed come
	// after, in first-seen order.
	Columns []string
	// DiagnosisColumn names the free-text diagnosis field.
	DiagnosisColumn string
	// TopValues is the per-column value count kept for text columns.
	TopValues int
	// TopDiagnoses and TopTokens bound the diagnosis frequency lists.
	TopDiagnoses int
	TopTokens    int
}

// DefaultOptions returns the standard report settings.
func DefaultOptions() Options {
	return Options{
		DiagnosisColumn: DefaultDiagnosisColumn,
		TopValues:       5,
		TopDiagnoses:    10,
		TopTokens:       20,
	}
}

// Error reports a builder that could not produce its report.
type Error struct {
	Op     string
	Column string
	Err    error
}

func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: column %q: %v", e.Op, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Overview holds headline counts derived from the built reports.
type Overview struct {
	TotalRecords        int `json:"total_records"`
	NumericFeatures     int `json:"numeric_features"`
	TextFeatures        int `json:"text_features"`
	DiagnosisCategories int `json:"diagnosis_categories"`
}

// Analysis bundles every report for one dataset. A report whose builder
// failed is nil and its error is listed in Notes.
type Analysis struct {
	Name      string            `json:"name,omitempty"`
	Overview  Overview          `json:"overview"`
	Numeric   *NumericSummary   `json:"numeric"`
	Text      *TextSummary      `json:"text"`
	Diagnosis *DiagnosisSummary `json:"diagnosis"`
	Temporal  *TemporalSummary  `json:"temporal"`
	Notes     []string          `json:"notes,omitempty"`
}

// Analyze runs all builders over the two partitions of a dataset. Builders
// are independent: one failing does not stop the others, and the returned
// error joins every failure.
func Analyze(numeric, text []dataset.Record, opt Options) (*Analysis, error) {
	a := &Analysis{}
	var errs []error

	a.Numeric = Numeric(numeric, opt)
	a.Text = Text(text, opt)
	a.Diagnosis = Diagnosis(text, opt)
	tmp, err := Temporal(merge(numeric, text), opt)
	if err != nil {
		errs = append(errs, err)
		a.Notes = append(a.Notes, fmt.Sprintf("temporal report unavailable: %v", err))
	} else {
		a.Temporal = tmp
	}

	a.Overview = a.summarize(max(len(numeric), len(text)))
	slog.Debug("analysis complete",
		"records", a.Overview.TotalRecords,
		"numeric", a.Overview.NumericFeatures,
		"text", a.Overview.TextFeatures,
		"failures", len(errs))
	return a, errors.Join(errs...)
}

// AnalyzeDataset is Analyze over a processed dataset, keeping its column order.
func AnalyzeDataset(ds *dataset.Dataset, opt Options) (*Analysis, error) {
	if len(opt.Columns) == 0 {
		opt.Columns = ds.Columns
	}
	a, err := Analyze(ds.Numeric, ds.Text, opt)
	a.Name = ds.Name
	return a, err
}

func (a *Analysis) summarize(total int) Overview {
	o := Overview{TotalRecords: total}
	if a.Numeric != nil {
		o.NumericFeatures = len(a.Numeric.Columns)
	}
	if a.Text != nil {
		o.TextFeatures = len(a.Text.Columns)
	}
	if a.Diagnosis != nil {
		o.DiagnosisCategories = a.Diagnosis.Categories
	}
	return o
}

// merge rejoins the i-th numeric and text records.
func merge(numeric, text []dataset.Record) []dataset.Record {
	n := max(len(numeric), len(text))
	out := make([]dataset.Record, n)
	for i := 0; i < n; i++ {
		rec := dataset.Record{}
		if i < len(numeric) {
			for k, v := range numeric[i] {
				rec[k] = v
			}
		}
		if i < len(text) {
			for k, v := range text[i] {
				rec[k] = v
			}
		}
		out[i] = rec
	}
	return out
}

// columnsOf lists the keys present in records, ordered by hint first and
// then by first appearance (each record's keys taken sorted).
func columnsOf(records []dataset.Record, hint []string) []string {
	present := map[string]bool{}
	var seen []string
	for _, r := range records {
		for _, k := range r.SortedKeys() {
			if !present[k] {
				present[k] = true
				seen = append(seen, k)
			}
		}
	}
	out := make([]string, 0, len(seen))
	used := map[string]bool{}
	for _, c := range hint {
		if present[c] && !used[c] {
			used[c] = true
			out = append(out, c)
		}
	}
	for _, c := range seen {
		if !used[c] {
			out = append(out, c)
		}
	}
	return out
}
