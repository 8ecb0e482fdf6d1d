package exec

import (
	"math"
	"strings"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/internal/terrors"
	"github.com/corewald/tera/value"
)

// evalExpr evaluates e, applying its filter chain and unary negation
// (spec §3's {val, negated, filters} shape), and reports whether the
// result should bypass autoescaping (the `safe` filter was applied
// anywhere in the chain, or the value came from rendering a macro/
// block/filter-section body, which already escaped internally).
func (r *Renderer) evalExpr(e *ast.Expr) (value.Value, bool, error) {
	var v value.Value
	var safe bool
	var err error

	if e.Val.Kind == ast.ExprIdent {
		v, safe, err = r.evalIdentChain(e)
		if err != nil {
			if e.Negated {
				if terr, ok := err.(*terrors.Error); ok && terr.Kind == terrors.KindVariableNotFound {
					// An undefined ident is falsy, so `not undefined` is true.
					return value.Bool(true), false, nil
				}
			}
			return value.Value{}, false, err
		}
	} else {
		v, safe, err = r.evalBase(e)
		if err != nil {
			return value.Value{}, false, err
		}
		v, safe, err = r.applyFilters(e.Filters, v, safe, 0)
	}
	if err != nil {
		return value.Value{}, false, err
	}
	if e.Negated {
		v = value.Bool(!v.Truthy())
	}
	return v, safe, nil
}

// evalIdentChain resolves an identifier path, rescuing a missing
// lookup via a leading `| default(value=...)` filter exactly as the
// ident-evaluation rule in spec §4.4 describes.
func (r *Renderer) evalIdentChain(e *ast.Expr) (value.Value, bool, error) {
	if v, ok := r.lookupDebugContext(e.Val.Ident); ok {
		return r.applyFilters(e.Filters, v, false, 0)
	}
	v, found := r.stack.Lookup(e.Val.Ident)
	if !found {
		if len(e.Filters) > 0 && e.Filters[0].Name == "default" {
			dv, err := r.evalDefaultArg(e.Filters[0])
			if err != nil {
				return value.Value{}, false, err
			}
			return r.applyFilters(e.Filters, dv, false, 1)
		}
		return value.Value{}, false, terrors.Newf(terrors.KindVariableNotFound, "variable %q is undefined", e.Val.Ident)
	}
	return r.applyFilters(e.Filters, v, false, 0)
}

func (r *Renderer) evalDefaultArg(call *ast.FnCall) (value.Value, error) {
	argE, ok := call.Args["value"]
	if !ok {
		return value.Null(), nil
	}
	v, _, err := r.evalExpr(argE)
	return v, err
}

// applyFilters runs e.Filters[from:] over v in order, looking each up
// in the plugin table; safe becomes (and stays) true once any applied
// filter is registered Safe.
func (r *Renderer) applyFilters(filters []*ast.FnCall, v value.Value, safe bool, from int) (value.Value, bool, error) {
	for i := from; i < len(filters); i++ {
		call := filters[i]
		f, ok := r.store.Filters()[call.Name]
		if !ok {
			return value.Value{}, false, terrors.Newf(terrors.KindFilter, "unknown filter %q", call.Name)
		}
		args, err := r.evalKwargs(call.Args)
		if err != nil {
			return value.Value{}, false, err
		}
		out, err := f.Call(v, args)
		if err != nil {
			return value.Value{}, false, terrors.Wrap(terrors.KindFilter, "filter "+call.Name+" failed", err)
		}
		v = out
		if f.Safe {
			safe = true
		}
	}
	return v, safe, nil
}

func (r *Renderer) evalKwargs(args map[string]*ast.Expr) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(args))
	for k, e := range args {
		v, _, err := r.evalExpr(e)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// evalBase computes the value for every ExprKind except ExprIdent,
// which evalIdentChain handles separately (it needs the raw Filters
// list to implement the `default` rescue rule). The bool result is
// true when the value is already safe for autoescaping purposes (a
// macro/block render, or a function/filter that declares itself safe).
func (r *Renderer) evalBase(e *ast.Expr) (value.Value, bool, error) {
	val := e.Val
	switch val.Kind {
	case ast.ExprString:
		return value.String(val.Str), false, nil
	case ast.ExprInt:
		return value.Int(val.Int), false, nil
	case ast.ExprFloat:
		return value.Float(val.Float), false, nil
	case ast.ExprBool:
		return value.Bool(val.Bool), false, nil
	case ast.ExprArray:
		v, err := r.evalArray(val.Items)
		return v, false, err
	case ast.ExprMath:
		v, err := r.evalMath(val)
		return v, false, err
	case ast.ExprLogic:
		v, err := r.evalLogic(val)
		return v, false, err
	case ast.ExprTest:
		v, err := r.evalTest(val)
		return v, false, err
	case ast.ExprIn:
		v, err := r.evalIn(val)
		return v, false, err
	case ast.ExprStringConcat:
		v, err := r.evalConcat(val.ConcatValues)
		return v, false, err
	case ast.ExprFunctionCall:
		return r.evalFunctionCall(val)
	case ast.ExprMacroCall:
		return r.evalMacroCall(val)
	default:
		return value.Value{}, false, terrors.Newf(terrors.KindTypeMismatch, "unsupported expression kind")
	}
}

func (r *Renderer) evalArray(items []*ast.Expr) (value.Value, error) {
	if len(items) > r.limits.ArrayLiteralLimit {
		return value.Value{}, terrors.Newf(terrors.KindLimitExceeded, "array literal exceeds %d elements", r.limits.ArrayLiteralLimit)
	}
	out := make([]value.Value, 0, len(items))
	for _, it := range items {
		v, _, err := r.evalExpr(it)
		if err != nil {
			return value.Value{}, err
		}
		out = append(out, v)
	}
	return value.Array(out), nil
}

func (r *Renderer) evalConcat(parts []*ast.Expr) (value.Value, error) {
	var sb strings.Builder
	for _, p := range parts {
		v, _, err := r.evalExpr(p)
		if err != nil {
			return value.Value{}, err
		}
		sb.WriteString(v.Render())
	}
	return value.String(sb.String()), nil
}

func (r *Renderer) evalMath(val ast.ExprVal) (value.Value, error) {
	lv, _, err := r.evalExpr(val.LHS)
	if err != nil {
		return value.Value{}, err
	}
	rv, _, err := r.evalExpr(val.RHS)
	if err != nil {
		return value.Value{}, err
	}
	if !lv.IsNumber() || !rv.IsNumber() {
		return value.Value{}, terrors.Newf(terrors.KindTypeMismatch, "arithmetic requires numeric operands, got %s and %s", lv.Kind(), rv.Kind())
	}

	bothInt := (lv.Kind() == value.KindI64 || lv.Kind() == value.KindU64) && (rv.Kind() == value.KindI64 || rv.Kind() == value.KindU64)
	lf, _ := lv.AsF64()
	rf, _ := rv.AsF64()

	switch val.MathOp {
	case ast.OpAdd, ast.OpSub, ast.OpMul:
		if bothInt {
			li, ri := int64(lf), int64(rf)
			res, overflow := checkedOp(li, ri, val.MathOp)
			if !overflow {
				return value.Int(res), nil
			}
		}
		switch val.MathOp {
		case ast.OpAdd:
			return value.Float(lf + rf), nil
		case ast.OpSub:
			return value.Float(lf - rf), nil
		default:
			return value.Float(lf * rf), nil
		}
	case ast.OpDiv:
		if rf == 0 {
			if bothInt {
				return value.Value{}, terrors.New(terrors.KindTypeMismatch, "division by zero")
			}
			return value.Float(math.NaN()), nil
		}
		return value.Float(lf / rf), nil
	case ast.OpMod:
		if rf == 0 {
			return value.Value{}, terrors.New(terrors.KindTypeMismatch, "modulo by zero")
		}
		if bothInt {
			return value.Int(int64(lf) % int64(rf)), nil
		}
		return value.Float(math.Mod(lf, rf)), nil
	}
	return value.Value{}, terrors.New(terrors.KindTypeMismatch, "unknown math operator")
}

// checkedOp performs i64 add/sub/mul, reporting overflow so the caller
// can fall back to float arithmetic rather than silently wrapping.
func checkedOp(a, b int64, op ast.MathOp) (int64, bool) {
	switch op {
	case ast.OpAdd:
		res := a + b
		if (res-b) != a {
			return 0, true
		}
		return res, false
	case ast.OpSub:
		res := a - b
		if (res+b) != a {
			return 0, true
		}
		return res, false
	case ast.OpMul:
		if a == 0 || b == 0 {
			return 0, false
		}
		res := a * b
		if res/b != a {
			return 0, true
		}
		return res, false
	}
	return 0, true
}

func (r *Renderer) evalLogic(val ast.ExprVal) (value.Value, error) {
	switch val.LogicOp {
	case ast.OpAnd:
		lv, _, err := r.evalExpr(val.LHS)
		if err != nil {
			return value.Value{}, err
		}
		if !lv.Truthy() {
			return value.Bool(false), nil
		}
		rv, _, err := r.evalExpr(val.RHS)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(rv.Truthy()), nil
	case ast.OpOr:
		lv, _, err := r.evalExpr(val.LHS)
		if err != nil {
			return value.Value{}, err
		}
		if lv.Truthy() {
			return value.Bool(true), nil
		}
		rv, _, err := r.evalExpr(val.RHS)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(rv.Truthy()), nil
	}

	lv, _, err := r.evalExpr(val.LHS)
	if err != nil {
		return value.Value{}, err
	}
	rv, _, err := r.evalExpr(val.RHS)
	if err != nil {
		return value.Value{}, err
	}

	switch val.LogicOp {
	case ast.OpEq:
		return value.Bool(value.Equal(lv, rv)), nil
	case ast.OpNeq:
		return value.Bool(!value.Equal(lv, rv)), nil
	}

	// Ordering comparisons: numeric cross-kind, or same-kind string.
	if lv.IsNumber() && rv.IsNumber() {
		lf, _ := lv.AsF64()
		rf, _ := rv.AsF64()
		return value.Bool(compareF64(lf, rf, val.LogicOp)), nil
	}
	ls, lok := lv.AsString()
	rs, rok := rv.AsString()
	if lok && rok {
		return value.Bool(compareString(ls, rs, val.LogicOp)), nil
	}
	return value.Value{}, terrors.Newf(terrors.KindTypeMismatch, "cannot compare %s and %s", lv.Kind(), rv.Kind())
}

func compareF64(l, r float64, op ast.LogicOp) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLte:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGte:
		return l >= r
	}
	return false
}

func compareString(l, r string, op ast.LogicOp) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLte:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGte:
		return l >= r
	}
	return false
}

func (r *Renderer) evalTest(val ast.ExprVal) (value.Value, error) {
	if val.TestName == "defined" || val.TestName == "undefined" {
		var found bool
		if val.TestIdent.Val.Kind == ast.ExprIdent {
			_, found = r.stack.Lookup(val.TestIdent.Val.Ident)
		} else {
			_, _, err := r.evalExpr(val.TestIdent)
			found = err == nil
		}
		result := found
		if val.TestName == "undefined" {
			result = !found
		}
		if val.TestNegated {
			result = !result
		}
		return value.Bool(result), nil
	}

	v, _, err := r.evalExpr(val.TestIdent)
	if err != nil {
		return value.Value{}, err
	}
	tester, ok := r.store.Testers()[val.TestName]
	if !ok {
		return value.Value{}, terrors.Newf(terrors.KindTester, "unknown test %q", val.TestName)
	}
	args := make([]value.Value, 0, len(val.TestArgs))
	for _, a := range val.TestArgs {
		av, _, err := r.evalExpr(a)
		if err != nil {
			return value.Value{}, err
		}
		args = append(args, av)
	}
	ok2, err := tester.Call(&v, args)
	if err != nil {
		return value.Value{}, terrors.Wrap(terrors.KindTester, "test "+val.TestName+" failed", err)
	}
	if val.TestNegated {
		ok2 = !ok2
	}
	return value.Bool(ok2), nil
}

func (r *Renderer) evalIn(val ast.ExprVal) (value.Value, error) {
	lv, _, err := r.evalExpr(val.LHS)
	if err != nil {
		return value.Value{}, err
	}
	rv, _, err := r.evalExpr(val.RHS)
	if err != nil {
		return value.Value{}, err
	}

	var found bool
	switch rv.Kind() {
	case value.KindArray:
		arr, _ := rv.AsArray()
		for _, el := range arr {
			if value.Equal(lv, el) {
				found = true
				break
			}
		}
	case value.KindObject:
		key, ok := lv.AsString()
		if !ok {
			return value.Value{}, terrors.New(terrors.KindTypeMismatch, "`in` on an object requires a string left-hand side")
		}
		obj, _ := rv.AsObject()
		_, found = obj.Get(key)
	case value.KindString:
		needle, ok := lv.AsString()
		if !ok {
			return value.Value{}, terrors.New(terrors.KindTypeMismatch, "`in` on a string requires a string left-hand side")
		}
		s, _ := rv.AsString()
		found = strings.Contains(s, needle)
	default:
		return value.Value{}, terrors.Newf(terrors.KindTypeMismatch, "`in` requires an array, object, or string, got %s", rv.Kind())
	}
	if val.InNegated {
		found = !found
	}
	return value.Bool(found), nil
}

func (r *Renderer) evalFunctionCall(val ast.ExprVal) (value.Value, bool, error) {
	if val.FnName == "super" {
		s, err := r.renderSuper()
		return value.String(s), true, err
	}
	fn, ok := r.store.Functions()[val.FnName]
	if !ok {
		return value.Value{}, false, terrors.Newf(terrors.KindFunction, "unknown function %q", val.FnName)
	}
	args, err := r.evalKwargs(val.FnArgs)
	if err != nil {
		return value.Value{}, false, err
	}
	out, err := fn.Call(args)
	if err != nil {
		return value.Value{}, false, terrors.Wrap(terrors.KindFunction, "function "+val.FnName+" failed", err)
	}
	return out, fn.Safe, nil
}
