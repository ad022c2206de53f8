package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Markdown renders a compact report suitable for prompts or standalone docs.
func (a *Analysis) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if a.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", a.Name))
	}
	o := a.Overview
	b.WriteString(fmt.Sprintf("Records: %d\n", o.TotalRecords))
	b.WriteString(fmt.Sprintf("Numeric features: %d\n", o.NumericFeatures))
	b.WriteString(fmt.Sprintf("Text features: %d\n", o.TextFeatures))
	b.WriteString(fmt.Sprintf("Diagnosis categories: %d\n", o.DiagnosisCategories))

	if n := a.Numeric; n != nil && len(n.Describe) > 0 {
		b.WriteString("\n[NUMERIC COLUMNS]\n")
		for _, c := range n.Describe {
			b.WriteString(fmt.Sprintf("- %s: n=%d, mean %s, std %s, min %s, q1 %s, median %s, q3 %s, max %s\n",
				safeName(c.Column), c.Count, num(c.Mean), num(c.Std), num(c.Min), num(c.Q1), num(c.Median), num(c.Q3), num(c.Max)))
		}
		b.WriteString("\n[OUTLIERS]\n")
		listed := false
		for _, o := range n.Outliers {
			if o.Count == 0 {
				continue
			}
			listed = true
			b.WriteString(fmt.Sprintf("- %s: %d outside [%s, %s] (%.1f%%)\n",
				safeName(o.Column), o.Count, num(o.Lower), num(o.Upper), float64(o.Percent)))
		}
		if !listed {
			b.WriteString("- none\n")
		}
		if pairs := topPairs(n, 10); len(pairs) > 0 {
			b.WriteString("\n[CORRELATIONS]\n")
			for _, p := range pairs {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
			}
		}
	}

	if t := a.Text; t != nil && len(t.Columns) > 0 {
		b.WriteString("\n[TEXT COLUMNS]\n")
		for _, c := range t.Columns {
			b.WriteString(fmt.Sprintf("- %s: unique=%d, length mean %s (min %s, max %s)",
				safeName(c.Column), c.Unique, num(c.MeanLength), num(c.MinLength), num(c.MaxLength)))
			if len(c.Top) > 0 {
				b.WriteString(" — top: ")
				writeCounts(&b, c.Top)
			}
			b.WriteString("\n")
		}
	}

	if d := a.Diagnosis; d != nil && d.Present {
		b.WriteString("\n[DIAGNOSES]\n")
		b.WriteString(fmt.Sprintf("Column: %s (%d categories)\n", d.Column, d.Categories))
		b.WriteString("Top: ")
		writeCounts(&b, d.Top)
		b.WriteString("\nTerms: ")
		writeCounts(&b, d.TopTerms)
		b.WriteString("\n")
	}

	if tm := a.Temporal; tm != nil && len(tm.Columns) > 0 {
		b.WriteString("\n[TEMPORAL]\n")
		for _, c := range tm.Columns {
			b.WriteString(fmt.Sprintf("- %s: %s to %s (%d days)\n",
				safeName(c.Column), c.Min.Format("2006-01-02"), c.Max.Format("2006-01-02"), c.SpanDays))
		}
	}

	if len(a.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range a.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PairCorr is one off-diagonal correlation.
type PairCorr struct {
	A, B string
	R    float64
}

// topPairs lists the strongest correlations by |r|, skipping NaN.
func topPairs(n *NumericSummary, k int) []PairCorr {
	var pairs []PairCorr
	for i := range n.Columns {
		for j := i + 1; j < len(n.Columns); j++ {
			r := float64(n.Correlation[i][j])
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: n.Columns[i], B: n.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if len(pairs) > k {
		pairs = pairs[:k]
	}
	return pairs
}

func writeCounts(b *strings.Builder, counts []Count) {
	if len(counts) == 0 {
		b.WriteString("(none)")
		return
	}
	for i, c := range counts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s(%d)", safeVal(c.Value), c.Count))
	}
}

func num(f Float) string {
	if f.IsNaN() {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", float64(f))
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
	if s == "" {
		return `""`
	}
	if r := []rune(s); len(r) > 60 {
		s = string(r[:57]) + "..."
	}
	return s
}
