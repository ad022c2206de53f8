// Package dataset loads clinical tables and turns them into clean, partitioned
// records ready for analysis.
package dataset

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// Record is one cleaned table row. Absent cells have no key.
type Record = value.Object

// Table is a loaded source table before normalization. Missing cells hold
// Number(NaN).
type Table struct {
	Name    string
	Columns []string
	Rows    []value.Object
}

// Options controls loading and normalization.
type Options struct {
	// Delimiter for delimited text. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// Encoding is one of auto, utf-8, gbk, gb18030.
	Encoding string
	// MissingValues are cell texts treated as not-a-number.
	MissingValues []string
	// DropColumns are identifier columns removed on load when present.
	DropColumns []string
	// SheetName selects an XLSX sheet by name; SheetIndex (1-based) is used otherwise.
	SheetName  string
	SheetIndex int
}

// DefaultDropColumns lists identifier columns found in hospital exports.
var DefaultDropColumns = []string{"病案号", "门诊号", "住院号", "就诊标识（医渡云计算）", "报告单号"}

// DefaultMissingValues mirrors the usual dataframe not-a-number markers.
var DefaultMissingValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Encoding:      "auto",
		MissingValues: append([]string(nil), DefaultMissingValues...),
		DropColumns:   append([]string(nil), DefaultDropColumns...),
		SheetIndex:    1,
	}
}

// Dataset is the output of the full load → normalize → partition pipeline.
type Dataset struct {
	Name    string
	Columns []string
	Records []Record
	Numeric []Record
	Text    []Record
}

// LoadError reports a file that could not be read or parsed as a table.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads the table at path, choosing a reader by extension.
func Load(path string, opt Options) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		t, err = loadXLSX(path, opt)
	case ".json":
		t, err = loadJSON(path)
	default:
		t, err = loadDelimited(path, opt)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	t.Name = filepath.Base(path)
	slog.Debug("table loaded", "file", t.Name, "columns", len(t.Columns), "rows", len(t.Rows))
	return t, nil
}

// Process runs the whole pipeline for the file at path.
func Process(path string, opt Options) (*Dataset, error) {
	t, err := Load(path, opt)
	if err != nil {
		return nil, err
	}
	cols, recs := Normalize(t, opt.DropColumns)
	num, txt := Partition(recs)
	slog.Debug("dataset partitioned", "records", len(recs), "columns", len(cols))
	return &Dataset{
		Name:    t.Name,
		Columns: cols,
		Records: recs,
		Numeric: num,
		Text:    txt,
	}, nil
}

// ModelSummaryData returns a deep copy of the text records, the snapshot
// handed to the language model.
func (d *Dataset) ModelSummaryData() []Record {
	out := make([]Record, len(d.Text))
	for i, r := range d.Text {
		out[i] = r.Clone()
	}
	return out
}
