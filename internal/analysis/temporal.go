package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// ErrNotDate is wrapped by the Error returned when a date column holds a
// value that does not parse as a date.
var ErrNotDate = errors.New("value is not a date")

// DateRange is the observed range of one date column.
type DateRange struct {
	Column   string    `json:"column"`
	Min      time.Time `json:"min"`
	Max      time.Time `json:"max"`
	SpanDays int       `json:"span_days"`
}

// TemporalSummary covers every column whose name mentions a date or time.
type TemporalSummary struct {
	Columns []DateRange `json:"columns"`
}

// IsTemporalColumn reports whether name looks like a date or time field.
func IsTemporalColumn(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "date") || strings.Contains(n, "time")
}

// Temporal builds the date-range report. Any value in a date column that is
// not a parseable date fails the whole report.
func Temporal(records []dataset.Record, opt Options) (*TemporalSummary, error) {
	s := &TemporalSummary{Columns: []DateRange{}}
	for _, c := range columnsOf(records, opt.Columns) {
		if !IsTemporalColumn(c) {
			continue
		}
		var dr DateRange
		n := 0
		for _, r := range records {
			v, ok := r[c]
			if !ok {
				continue
			}
			t, err := dateOf(v)
			if err != nil {
				return nil, &Error{Op: "temporal", Column: c, Err: err}
			}
			if n == 0 || t.Before(dr.Min) {
				dr.Min = t
			}
			if n == 0 || t.After(dr.Max) {
				dr.Max = t
			}
			n++
		}
		if n == 0 {
			continue
		}
		dr.Column = c
		// Sub saturates past ~292 years, so count in seconds
		dr.SpanDays = int((dr.Max.Unix() - dr.Min.Unix()) / 86400)
		s.Columns = append(s.Columns, dr)
	}
	return s, nil
}

func dateOf(v value.Value) (time.Time, error) {
	str, ok := v.(value.String)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotDate, value.Text(v))
	}
	t, ok := parseTimeMaybe(strings.TrimSpace(string(str)))
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNotDate, string(str))
	}
	return t, nil
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000", "2006/01/02 15:04:05", "2006/01/02 15:04",
	"1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006",
	"2006-1-2", "2006/1/2", "2006/1/2 15:04", "2006/1/2 15:04:05",
	"2006.01.02", "2006年1月2日", "20060102",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
