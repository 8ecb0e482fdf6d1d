package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FromJSON decodes data into a Value, distinguishing integers from
// floats (json.Number) the way the rest of this package's numeric kinds
// expect. Object keys are not kept in source order (see fromAny). Used
// by cmd/tera to load a render context from a JSON file.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("value: invalid JSON: %w", err)
	}
	return fromAny(raw), nil
}

func fromAny(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		f, _ := v.Float64()
		return Float(f)
	case string:
		return String(v)
	case []interface{}:
		out := make([]Value, len(v))
		for i, e := range v {
			out[i] = fromAny(e)
		}
		return Array(out)
	case map[string]interface{}:
		obj := NewObject()
		// encoding/json doesn't preserve key order in a map[string]any
		// decode; re-decode through json.RawMessage pairs is overkill for
		// a CLI context loader, so keys land in Go's map iteration order.
		for k, e := range v {
			obj.Set(k, fromAny(e))
		}
		return ObjectValue(obj)
	default:
		return Null()
	}
}
