package dataset

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/KaramelBytes/clinsight-cli/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const patientsCSV = "病案号,年龄,性别,吸烟,病理诊断（病案首页）,入院date,备注,空列\n" +
	"1001,61,男,True,\"肺腺癌, 骨转移\",2021-01-01,,\n" +
	"1002,,女,False,肺腺癌,2021-03-02,复查,\n" +
	"1003,47.5,男,,鳞癌,2021-02-10,,NA\n"

func TestProcessCSV(t *testing.T) {
	p := writeFile(t, "patients.csv", patientsCSV)

	ds, err := Process(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "patients.csv", ds.Name)
	assert.Equal(t, []string{"年龄", "性别", "吸烟", "病理诊断（病案首页）", "入院date", "备注"}, ds.Columns)
	require.Len(t, ds.Records, 3)

	assert.Equal(t, Record{
		"年龄":         value.Number(61),
		"性别":         value.String("男"),
		"吸烟":         value.Bool(true),
		"病理诊断（病案首页）": value.String("肺腺癌, 骨转移"),
		"入院date":     value.String("2021-01-01"),
	}, ds.Records[0])

	// missing age is absent, not null
	_, ok := ds.Records[1]["年龄"]
	assert.False(t, ok)
	assert.Equal(t, value.String("复查"), ds.Records[1]["备注"])
	assert.Equal(t, value.Number(47.5), ds.Records[2]["年龄"])
}

func TestNormalizeDropsEmptyAndDeniedColumns(t *testing.T) {
	p := writeFile(t, "patients.csv", patientsCSV)
	tbl, err := Load(p, DefaultOptions())
	require.NoError(t, err)

	cols, recs := Normalize(tbl, DefaultDropColumns)
	assert.NotContains(t, cols, "空列")
	assert.NotContains(t, cols, "病案号")
	for _, r := range recs {
		assert.NotContains(t, r, "空列")
		assert.NotContains(t, r, "病案号")
	}
}

func TestNormalizeIgnoresUnknownDenyColumns(t *testing.T) {
	tbl := &Table{
		Columns: []string{"a"},
		Rows:    []value.Object{{"a": value.Number(1)}},
	}
	cols, recs := Normalize(tbl, []string{"not-there"})
	assert.Equal(t, []string{"a"}, cols)
	assert.Equal(t, []Record{{"a": value.Number(1)}}, recs)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	tbl := &Table{
		Columns: []string{"a", "b"},
		Rows: []value.Object{
			{"a": value.Number(math.NaN()), "b": value.String("x")},
			{"a": value.Number(2), "b": value.Number(math.NaN())},
		},
	}
	cols, once := Normalize(tbl, nil)
	again := &Table{Columns: cols, Rows: once}
	_, twice := Normalize(again, nil)
	assert.Equal(t, once, twice)
}

func TestPartitionInvariants(t *testing.T) {
	p := writeFile(t, "patients.csv", patientsCSV)
	ds, err := Process(p, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, ds.Numeric, len(ds.Records))
	require.Len(t, ds.Text, len(ds.Records))

	for i, rec := range ds.Records {
		num, txt := ds.Numeric[i], ds.Text[i]
		var union []string
		for k := range num {
			_, dup := txt[k]
			assert.False(t, dup, "key %q in both partitions", k)
			assert.True(t, IsNumeric(num[k]))
			union = append(union, k)
		}
		for k := range txt {
			assert.False(t, IsNumeric(txt[k]))
			union = append(union, k)
		}
		sort.Strings(union)
		assert.Equal(t, rec.SortedKeys(), union)
	}
	assert.Equal(t, value.Bool(true), ds.Numeric[0]["吸烟"])
}

func TestColumnTypingIsPerColumn(t *testing.T) {
	p := writeFile(t, "mixed.csv", "code,flag\n12,true\nA7,1\n")
	tbl, err := Load(p, DefaultOptions())
	require.NoError(t, err)
	// a single non-numeric cell turns the whole column into text
	assert.Equal(t, value.String("12"), tbl.Rows[0]["code"])
	assert.Equal(t, value.String("true"), tbl.Rows[0]["flag"])
}

func TestLoadGBK(t *testing.T) {
	enc, err := simplifiedchinese.GBK.NewEncoder().String("姓名,年龄\n张三,40\n")
	require.NoError(t, err)
	p := writeFile(t, "gbk.csv", enc)

	for _, encoding := range []string{"auto", "gbk", "gb18030"} {
		opt := DefaultOptions()
		opt.Encoding = encoding
		tbl, err := Load(p, opt)
		require.NoError(t, err, encoding)
		assert.Equal(t, []string{"姓名", "年龄"}, tbl.Columns, encoding)
		assert.Equal(t, value.String("张三"), tbl.Rows[0]["姓名"], encoding)
	}
}

func TestLoadUnsupportedEncoding(t *testing.T) {
	p := writeFile(t, "a.csv", "a\n1\n")
	opt := DefaultOptions()
	opt.Encoding = "latin9"
	_, err := Load(p, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")
}

func TestLoadFailures(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions())
	var le *LoadError
	require.ErrorAs(t, err, &le)

	empty := writeFile(t, "empty.csv", "")
	_, err = Load(empty, DefaultOptions())
	require.ErrorAs(t, err, &le)

	ragged := writeFile(t, "ragged.csv", "a,b\n1,2,3\n")
	_, err = Load(ragged, DefaultOptions())
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "expected 2 fields, saw 3")
}

func TestLoadTSVAndDuplicateHeaders(t *testing.T) {
	p := writeFile(t, "dups.tsv", "x\tx\t\n1\t2\t3\n")
	tbl, err := Load(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x.1", "Unnamed: 2"}, tbl.Columns)
	assert.Equal(t, value.Number(2), tbl.Rows[0]["x.1"])
}

func TestZeroRowTable(t *testing.T) {
	p := writeFile(t, "header.csv", "a,b\n")
	ds, err := Process(p, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, ds.Records)
	assert.Empty(t, ds.Numeric)
	assert.Empty(t, ds.Text)
}

func TestLoadEmptyJSONArray(t *testing.T) {
	p := writeFile(t, "empty.json", "[]")
	ds, err := Process(p, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, ds.Columns)
	assert.Empty(t, ds.Records)
	assert.Empty(t, ds.Numeric)
	assert.Empty(t, ds.Text)
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "records.json", `[
		{"age": 50, "dx": "A", "labs": {"hb": 120}},
		{"age": null, "dx": "B", "extra": true}
	]`)
	ds, err := Process(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "dx", "labs", "extra"}, ds.Columns)
	assert.Equal(t, Record{"dx": value.String("B"), "extra": value.Bool(true)}, ds.Records[1])
	assert.Equal(t, value.Object{"hb": value.Number(120)}, ds.Text[0]["labs"])
}

func TestModelSummaryDataIsCopy(t *testing.T) {
	p := writeFile(t, "patients.csv", patientsCSV)
	ds, err := Process(p, DefaultOptions())
	require.NoError(t, err)

	data := ds.ModelSummaryData()
	require.Equal(t, ds.Text, data)
	data[0]["性别"] = value.String("changed")
	assert.Equal(t, value.String("男"), ds.Text[0]["性别"])
	assert.True(t, strings.HasPrefix(string(ds.Text[0]["病理诊断（病案首页）"].(value.String)), "肺腺癌"))
}
