package value

// Map rebuilds v bottom-up: containers are rebuilt from their mapped
// children first, then fn is applied to every node, containers included.
// The input is never mutated.
func Map(v Value, fn func(Value) Value) Value {
	switch x := v.(type) {
	case Array:
		out := make(Array, len(x))
		for i, elem := range x {
			out[i] = Map(elem, fn)
		}
		return fn(out)
	case Object:
		out := make(Object, len(x))
		for k, elem := range x {
			out[k] = Map(elem, fn)
		}
		return fn(out)
	default:
		return fn(v)
	}
}

// NaNToNull replaces every NaN number inside v with Null.
func NaNToNull(v Value) Value {
	return Map(v, func(n Value) Value {
		if num, ok := n.(Number); ok && num.IsNaN() {
			return Null{}
		}
		return n
	})
}

// DropNulls removes every object field whose value is Null, at any depth.
// Array elements keep their positions.
func DropNulls(v Value) Value {
	return Map(v, func(n Value) Value {
		obj, ok := n.(Object)
		if !ok {
			return n
		}
		for k, elem := range obj {
			if isNull(elem) {
				delete(obj, k)
			}
		}
		return obj
	})
}

// Clean applies NaNToNull then DropNulls. It is idempotent.
func Clean(v Value) Value {
	return DropNulls(NaNToNull(v))
}

func isNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
