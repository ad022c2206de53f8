package dataset

import "github.com/KaramelBytes/clinsight-cli/internal/value"

// Partition splits each record into its numeric fields (numbers and
// booleans) and its remaining fields. The i-th outputs come from the i-th
// input, so positional joins between the two stay valid.
func Partition(records []Record) (numeric, text []Record) {
	numeric = make([]Record, len(records))
	text = make([]Record, len(records))
	for i, rec := range records {
		num := Record{}
		txt := Record{}
		for k, v := range rec {
			if IsNumeric(v) {
				num[k] = v
			} else {
				txt[k] = v
			}
		}
		numeric[i] = num
		text[i] = txt
	}
	return numeric, text
}

// IsNumeric reports whether v belongs in the numeric partition.
func IsNumeric(v value.Value) bool {
	switch v.Kind() {
	case value.KindBool, value.KindNumber:
		return true
	default:
		return false
	}
}
