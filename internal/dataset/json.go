package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// loadJSON reads an array of objects. Column order follows first appearance,
// with each object's own keys taken in sorted order.
func loadJSON(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}
	// an empty array is a valid dataset with no columns
	t := &Table{Rows: make([]value.Object, 0, len(items))}
	seen := map[string]bool{}
	for i, item := range items {
		v, err := value.FromAny(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		obj := v.(value.Object)
		for _, k := range obj.SortedKeys() {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Rows = append(t.Rows, obj)
	}
	// Every row carries every column, as a dataframe would.
	for _, row := range t.Rows {
		for _, c := range t.Columns {
			if v, ok := row[c]; !ok || v.Kind() == value.KindNull {
				row[c] = value.Number(math.NaN())
			}
		}
	}
	return t, nil
}
