// Package value defines the tagged cell value used by every record in a
// dataset, plus a generic visitor for rewriting nested values.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a sealed interface. Only Null, Bool, Number, String, Array and
// Object implement it.
type Value interface {
	Kind() Kind
	value()
}

// Null marks an absent value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// MarshalJSON implements json.Marshaler.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Bool is a boolean cell.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Number is a numeric cell. NaN is the tabular "not a number" marker.
type Number float64

func (Number) Kind() Kind { return KindNumber }
func (Number) value()     {}

// IsNaN reports whether n is the not-a-number marker.
func (n Number) IsNaN() bool { return math.IsNaN(float64(n)) }

// MarshalJSON renders NaN and infinities as null; JSON has no encoding for them.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// String is a text cell.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Array is an ordered list of values.
type Array []Value

func (Array) Kind() Kind { return KindArray }
func (Array) value()     {}

// Object maps field names to values.
type Object map[string]Value

func (Object) Kind() Kind { return KindObject }
func (Object) value()     {}

// SortedKeys returns the object's keys in byte order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of o.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	return Map(o, func(v Value) Value { return v }).(Object)
}

// Float returns the numeric interpretation of v. Bool maps to 0/1.
func Float(v Value) (float64, bool) {
	switch x := v.(type) {
	case Number:
		return float64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Text renders a scalar the way it would appear in a table cell. Containers
// are rendered as compact JSON.
func Text(v Value) string {
	switch x := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(x)
	case Bool:
		return strconv.FormatBool(bool(x))
	case Number:
		if x.IsNaN() {
			return "NaN"
		}
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	default:
		b, err := MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// MarshalCanonical renders v as JSON with sorted object keys and without
// HTML escaping, so that the same data always yields the same bytes.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FromAny converts a decoded JSON value (as produced by encoding/json with
// UseNumber) into a Value.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", x.String(), err)
		}
		return Number(f), nil
	case float64:
		return Number(x), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case []any:
		arr := make(Array, len(x))
		for i, elem := range x {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(x))
		for k, elem := range x {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
