// Package value implements the JSON-like dynamic value model that backs
// template variables, context data, and expression results.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindI64
	KindU64
	KindF64
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
	case KindI64:
		return "integer"
	case KindU64:
		return "unsigned integer"
	case KindF64:
		return "float"
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

// Value is a tagged union over Null, Bool, I64, U64, F64, String,
// Array<Value>, and Object (an ordered string->Value mapping).
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	arr  []Value
	obj  *Object
}

// Object is an ordered mapping from string keys to Value, preserving
// insertion order the way a Jinja/Tera context renders `[object]` but a
// `keys()`-style iteration would need a stable order.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject creates an empty ordered object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Set inserts or updates key, preserving first-insertion order.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len reports the number of entries.
func (o *Object) Len() int {
	return len(o.keys)
}

// Clone copies the key list and entry map, so setting a key on the clone
// never affects the original; the entry values themselves are shared
// (used by merge()).
func (o *Object) Clone() *Object {
	n := &Object{keys: append([]string(nil), o.keys...), values: make(map[string]Value, len(o.values))}
	for k, v := range o.values {
		n.values[k] = v
	}
	return n
}

// SortedKeys returns keys sorted lexicographically; iteration order
// elsewhere follows Keys.
func (o *Object) SortedKeys() []string {
	out := o.Keys()
	sort.Strings(out)
	return out
}

// Constructors.

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindI64, i: i} }
func Uint(u uint64) Value        { return Value{kind: KindU64, u: u} }
func Float(f float64) Value      { return Value{kind: KindF64, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Array(vs []Value) Value     { return Value{kind: KindArray, arr: vs} }
func ObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsString() (string, bool)  { return v.s, v.kind == KindString }
func (v Value) AsArray() ([]Value, bool)  { return v.arr, v.kind == KindArray }
func (v Value) AsObject() (*Object, bool) { return v.obj, v.kind == KindObject }

// AsF64 projects any numeric kind to float64; ok is false for non-numbers.
func (v Value) AsF64() (float64, bool) {
	switch v.kind {
	case KindI64:
		return float64(v.i), true
	case KindU64:
		return float64(v.u), true
	case KindF64:
		return v.f, true
	default:
		return 0, false
	}
}

// IsNumber reports whether the value is I64, U64, or F64.
func (v Value) IsNumber() bool {
	return v.kind == KindI64 || v.kind == KindU64 || v.kind == KindF64
}

// Truthy implements §3's truthiness table.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindI64:
		return v.i != 0
	case KindU64:
		return v.u != 0
	case KindF64:
		return v.f != 0 && !math.IsNaN(v.f)
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) > 0
	case KindObject:
		return v.obj != nil && v.obj.Len() > 0
	default:
		return false
	}
}

// Equal implements structural equality with numeric cross-kind comparison.
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		af, _ := a.AsF64()
		bf, _ := b.AsF64()
		return af == bf
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for _, k := range a.obj.Keys() {
			av, _ := a.obj.Get(k)
			bv, ok := b.obj.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Render converts v to its canonical textual form (§3): scalars print
// canonically, arrays as "[v1, v2, …]", objects as "[object]".
func (v Value) Render() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindI64:
		return strconv.FormatInt(v.i, 10)
	case KindU64:
		return strconv.FormatUint(v.u, 10)
	case KindF64:
		if math.IsNaN(v.f) {
			return "NaN"
		}
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.Render()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		return "[object]"
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

// String implements fmt.Stringer for debugging (not used for rendering).
func (v Value) String() string {
	return fmt.Sprintf("Value(%s: %s)", v.kind, v.Render())
}
