package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/clinsight-cli/internal/value"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func loadDelimited(path string, opt Options) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	rd, err := DecodeReader(raw, opt.Encoding)
	if err != nil {
		return nil, err
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(rd)
	r.Comma = delim
	r.FieldsPerRecord = -1
	// TrimLeadingSpace would swallow empty fields between tabs.
	r.TrimLeadingSpace = delim != '\t'
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no columns to parse from file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", len(rows)+1, len(header), len(rec))
		}
		rows = append(rows, append([]string(nil), rec...))
	}
	return buildTable(header, rows, opt.MissingValues), nil
}

// DecodeReader wraps raw bytes in a decoder for the requested encoding.
// "auto" keeps valid UTF-8 and falls back to GB18030, a superset of GBK.
func DecodeReader(raw []byte, encoding string) (io.Reader, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "auto":
		if utf8.Valid(raw) {
			return bytes.NewReader(raw), nil
		}
		return transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GB18030.NewDecoder()), nil
	case "utf-8", "utf8":
		return bytes.NewReader(raw), nil
	case "gbk":
		return transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GBK.NewDecoder()), nil
	case "gb18030":
		return transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GB18030.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s (use auto|utf-8|gbk|gb18030)", encoding)
	}
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

type columnKind int

const (
	colEmpty columnKind = iota
	colBool
	colNumber
	colString
)

// buildTable types every column as a whole: a column is boolean or numeric
// only when all of its non-missing cells are; otherwise every cell is text.
func buildTable(header []string, rows [][]string, missing []string) *Table {
	miss := make(map[string]struct{}, len(missing))
	for _, m := range missing {
		miss[m] = struct{}{}
	}
	isMissing := func(s string) bool {
		_, ok := miss[strings.TrimSpace(s)]
		return ok
	}

	cols := uniqueHeaders(header)
	kinds := make([]columnKind, len(cols))
	for j := range cols {
		kinds[j] = inferColumn(rows, j, isMissing)
	}

	out := &Table{Columns: cols, Rows: make([]value.Object, 0, len(rows))}
	for _, rec := range rows {
		obj := make(value.Object, len(cols))
		for j, name := range cols {
			cell := ""
			if j < len(rec) {
				cell = rec[j]
			}
			if isMissing(cell) {
				obj[name] = value.Number(math.NaN())
				continue
			}
			obj[name] = typedCell(cell, kinds[j])
		}
		out.Rows = append(out.Rows, obj)
	}
	return out
}

func inferColumn(rows [][]string, j int, isMissing func(string) bool) columnKind {
	kind := colEmpty
	for _, rec := range rows {
		if j >= len(rec) || isMissing(rec[j]) {
			continue
		}
		cell := strings.TrimSpace(rec[j])
		switch {
		case isBoolText(cell):
			if kind == colEmpty {
				kind = colBool
			} else if kind != colBool {
				return colString
			}
		case isNumberText(cell):
			if kind == colEmpty {
				kind = colNumber
			} else if kind != colNumber {
				return colString
			}
		default:
			return colString
		}
	}
	return kind
}

func typedCell(cell string, kind columnKind) value.Value {
	s := strings.TrimSpace(cell)
	switch kind {
	case colBool:
		return value.Bool(strings.EqualFold(s, "true"))
	case colNumber:
		f, _ := strconv.ParseFloat(s, 64)
		return value.Number(f)
	default:
		return value.String(cell)
	}
}

func isBoolText(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

func isNumberText(s string) bool {
	if s == "" || strings.ContainsAny(s, "xX_") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// uniqueHeaders trims and NFC-normalizes header names, names blank ones
// "Unnamed: i" and suffixes repeats with ".1", ".2", ...
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := norm.NFC.String(strings.TrimSpace(h))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := seen[name]; dup {
			base := name
			n := seen[base]
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
