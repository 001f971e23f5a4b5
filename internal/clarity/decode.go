package clarity

import "encoding/json"

// Decode flattens a Value into plain Go data: tagged leaves become their
// rendered form, maps and lists are decoded element-wise, primitives pass
// through and nil stays nil. Integral numbers are returned as int64; numbers
// that do not fit are kept as json.Number so no precision is lost.
func Decode(v Value) any {
	switch typed := v.(type) {
	case nil:
		return nil
	case Tagged:
		return typed.Repr
	case Map:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Decode(item)
		}
		return out
	case List:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, Decode(item))
		}
		return out
	case Primitive:
		return decodePrimitive(typed.V)
	default:
		return nil
	}
}

func decodePrimitive(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	return n
}

// DecodeJSON parses and decodes a JSON document in one step.
func DecodeJSON(data []byte) (any, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Decode(v), nil
}
