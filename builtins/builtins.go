// Package builtins defines the Filter/Function/Tester plugin interfaces
// (spec §6) and the minimal set of built-ins the spec's own worked
// examples (§8) exercise: safe, default, merge, range, and a small
// upper/lower/title trio. The full filter/tester/function library of
// the original project is out of scope (spec §1); callers register
// their own via Registry.RegisterFilter/Function/Tester.
package builtins

import (
	"fmt"

	"github.com/corewald/tera/value"
)

// FilterFunc implements a filter's transform; args are keyword
// arguments already evaluated to Values (spec §6).
type FilterFunc func(v value.Value, args map[string]value.Value) (value.Value, error)

// Filter pairs a transform with its safety declaration.
type Filter struct {
	Fn   FilterFunc
	Safe bool
}

func (f Filter) Call(v value.Value, args map[string]value.Value) (value.Value, error) {
	return f.Fn(v, args)
}

// FunctionFunc implements a global function call (spec §6).
type FunctionFunc func(args map[string]value.Value) (value.Value, error)

type Function struct {
	Fn   FunctionFunc
	Safe bool
}

func (fn Function) Call(args map[string]value.Value) (value.Value, error) {
	return fn.Fn(args)
}

// TesterFunc implements an `is name(args)` test. v is nil when the
// tested identifier resolved to nothing (spec §6's Option<&Value>).
type TesterFunc func(v *value.Value, args []value.Value) (bool, error)

type Tester struct {
	Fn TesterFunc
}

func (t Tester) Call(v *value.Value, args []value.Value) (bool, error) {
	return t.Fn(v, args)
}

// Registry is the minimal read/write surface the renderer and the
// template registry need over the plugin tables.
type Registry struct {
	Filters   map[string]Filter
	Functions map[string]Function
	Testers   map[string]Tester
}

// Default returns a Registry seeded with the handful of built-ins the
// spec's worked examples require.
func Default() *Registry {
	r := &Registry{
		Filters:   map[string]Filter{},
		Functions: map[string]Function{},
		Testers:   map[string]Tester{},
	}
	registerDefaults(r)
	return r
}

func (r *Registry) RegisterFilter(name string, f Filter)     { r.Filters[name] = f }
func (r *Registry) RegisterFunction(name string, f Function) { r.Functions[name] = f }
func (r *Registry) RegisterTester(name string, t Tester)     { r.Testers[name] = t }

func registerDefaults(r *Registry) {
	// `safe` is a pass-through filter (spec §4.4): the renderer calls it
	// like any other filter, and because it is registered with Safe set,
	// the expression's result is then treated as not needing escape.
	r.RegisterFilter("safe", Filter{Fn: func(v value.Value, _ map[string]value.Value) (value.Value, error) {
		return v, nil
	}, Safe: true})

	// `default` is consumed by the ident-evaluation rule when the ident is
	// undefined, without calling this function. On a defined value it is
	// called like any other filter: a Null input is replaced by the
	// `value` argument and any other input passes through unchanged.
	r.RegisterFilter("default", Filter{Fn: func(v value.Value, args map[string]value.Value) (value.Value, error) {
		if v.IsNull() {
			if d, ok := args["value"]; ok {
				return d, nil
			}
		}
		return v, nil
	}})

	r.RegisterFilter("merge", Filter{Fn: filterMerge})
	r.RegisterFilter("upper", Filter{Fn: filterUpper})
	r.RegisterFilter("lower", Filter{Fn: filterLower})
	r.RegisterFilter("title", Filter{Fn: filterTitle})

	r.RegisterFunction("range", Function{Fn: functionRange})
}

func filterMerge(v value.Value, args map[string]value.Value) (value.Value, error) {
	obj, ok := v.AsObject()
	if !ok {
		return value.Value{}, fmt.Errorf("merge: value is not an object")
	}
	other, ok := args["other"]
	if !ok {
		return value.Value{}, fmt.Errorf("merge: missing required argument 'other'")
	}
	otherObj, ok := other.AsObject()
	if !ok {
		return value.Value{}, fmt.Errorf("merge: 'other' is not an object")
	}
	merged := obj.Clone()
	for _, k := range otherObj.Keys() {
		ov, _ := otherObj.Get(k)
		merged.Set(k, ov)
	}
	return value.ObjectValue(merged), nil
}

const rangeDefaultLimit = 500

func functionRange(args map[string]value.Value) (value.Value, error) {
	start := int64(0)
	if s, ok := args["start"]; ok {
		f, ok := s.AsF64()
		if !ok {
			return value.Value{}, fmt.Errorf("range: 'start' must be numeric")
		}
		start = int64(f)
	}
	endV, ok := args["end"]
	if !ok {
		return value.Value{}, fmt.Errorf("range: missing required argument 'end'")
	}
	endF, ok := endV.AsF64()
	if !ok {
		return value.Value{}, fmt.Errorf("range: 'end' must be numeric")
	}
	end := int64(endF)
	step := int64(1)
	if s, ok := args["step_by"]; ok {
		f, ok := s.AsF64()
		if !ok {
			return value.Value{}, fmt.Errorf("range: 'step_by' must be numeric")
		}
		step = int64(f)
	}
	if step <= 0 {
		return value.Value{}, fmt.Errorf("range: 'step_by' must be positive")
	}
	if end < start {
		return value.Array(nil), nil
	}
	n := (end - start + step - 1) / step
	if n > rangeDefaultLimit {
		return value.Value{}, fmt.Errorf("range: would produce %d elements, exceeding the %d limit", n, rangeDefaultLimit)
	}
	out := make([]value.Value, 0, n)
	for i := start; i < end; i += step {
		out = append(out, value.Int(i))
	}
	return value.Array(out), nil
}
