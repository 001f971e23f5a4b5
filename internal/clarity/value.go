package clarity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Value is one node of a decoded Clarity value as delivered by the chainhook
// service. The concrete types are Tagged, Map, List and Primitive; an absent
// value is a nil Value.
type Value interface {
	isValue()
}

// Tagged is a leaf carrying the consensus serialization and its rendering.
type Tagged struct {
	Hex  string
	Repr string
}

// Map is a nested mapping of values, usually a Clarity tuple.
type Map map[string]Value

// List is a JSON array of values.
type List []Value

// Primitive wraps a JSON string, number or boolean. Numbers are json.Number.
type Primitive struct {
	V any
}

func (Tagged) isValue()    {}
func (Map) isValue()       {}
func (List) isValue()      {}
func (Primitive) isValue() {}

// Parse builds a Value tree from a JSON document.
func Parse(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse clarity value: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parse clarity value: trailing data")
	}
	return FromJSON(raw)
}

// FromJSON converts the output of encoding/json (decoded with UseNumber) into a Value.
func FromJSON(raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if tagged, ok := asTagged(typed); ok {
			return tagged, nil
		}
		out := make(Map, len(typed))
		for key, item := range typed {
			v, err := FromJSON(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			out[key] = v
		}
		return out, nil
	case []any:
		out := make(List, 0, len(typed))
		for i, item := range typed {
			v, err := FromJSON(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case string, bool, json.Number:
		return Primitive{V: typed}, nil
	case float64:
		return Primitive{V: json.Number(fmt.Sprint(typed))}, nil
	default:
		return nil, fmt.Errorf("unsupported json type %T", raw)
	}
}

func asTagged(m map[string]any) (Tagged, bool) {
	hex, ok := m["hex"].(string)
	if !ok || hex == "" {
		return Tagged{}, false
	}
	repr, ok := m["repr"].(string)
	if !ok || repr == "" {
		return Tagged{}, false
	}
	return Tagged{Hex: hex, Repr: repr}, true
}

// Bytes returns the consensus serialization.
func (t Tagged) Bytes() ([]byte, error) {
	data, err := hexutil.Decode(t.Hex)
	if err != nil {
		return nil, fmt.Errorf("invalid clarity hex: %w", err)
	}
	return data, nil
}

var typeNames = map[byte]string{
	0x00: "int",
	0x01: "uint",
	0x02: "buffer",
	0x03: "bool",
	0x04: "bool",
	0x05: "principal",
	0x06: "principal",
	0x07: "response",
	0x08: "response",
	0x09: "optional",
	0x0a: "optional",
	0x0b: "list",
	0x0c: "tuple",
	0x0d: "string-ascii",
	0x0e: "string-utf8",
}

// TypeName names the Clarity type from the serialization prefix byte.
func (t Tagged) TypeName() string {
	data, err := t.Bytes()
	if err != nil || len(data) == 0 {
		return "unknown"
	}
	if name, ok := typeNames[data[0]]; ok {
		return name
	}
	return "unknown"
}

// FieldTypes maps each tagged entry of a Map to its Clarity type name. It
// returns nil for anything else or when no entry is tagged.
func FieldTypes(v Value) map[string]string {
	m, ok := v.(Map)
	if !ok {
		return nil
	}
	var out map[string]string
	for key, item := range m {
		tagged, ok := item.(Tagged)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[key] = tagged.TypeName()
	}
	return out
}

// KindOf describes a node for diagnostics.
func KindOf(v Value) string {
	switch typed := v.(type) {
	case nil:
		return "null"
	case Tagged:
		return typed.TypeName()
	case Map:
		return "map"
	case List:
		return "list"
	case Primitive:
		return fmt.Sprintf("%T", typed.V)
	default:
		return "unknown"
	}
}
