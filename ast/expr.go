package ast

// MathOp enumerates arithmetic operators (§4.1 precedence level 5/4).
type MathOp int

const (
	OpAdd MathOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// LogicOp enumerates boolean/comparison operators (§4.1 levels 1-3).
type LogicOp int

const (
	OpAnd LogicOp = iota
	OpOr
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// FnCall is a named call with keyword arguments, used for both
// `|filter(arg=expr)` and `function(arg=expr)` call sites.
type FnCall struct {
	Name string
	// ArgNames preserves source order even though lookup (Args) is by
	// name.
	ArgNames []string
	Args     map[string]*Expr
}

// ExprVal is the sum of all expression value-producing forms (§3).
type ExprVal struct {
	// Exactly one of the following is populated, tagged by Kind.
	Kind ExprKind

	// Literals.
	Str   string
	Int   int64
	Float float64
	Bool  bool

	// Ident: dotted/bracket path, e.g. "a.b[0].c".
	Ident string

	// Array: literal array of expressions.
	Items []*Expr

	// Math / Logic.
	LHS     *Expr
	RHS     *Expr
	MathOp  MathOp
	LogicOp LogicOp

	// Test: `ident is [not] name(args)`.
	TestIdent   *Expr
	TestName    string
	TestNegated bool
	TestArgs    []*Expr

	// In: `lhs in rhs` / `lhs not in rhs`.
	InNegated bool

	// StringConcat: `a ~ b ~ c`.
	ConcatValues []*Expr

	// FunctionCall.
	FnName string
	FnArgNames []string
	FnArgs     map[string]*Expr

	// MacroCall: `ns::name(args)`.
	MacroNamespace string
	MacroName      string
	MacroArgNames  []string
	MacroArgs      map[string]*Expr
}

// ExprKind tags which fields of ExprVal are meaningful.
type ExprKind int

const (
	ExprString ExprKind = iota
	ExprInt
	ExprFloat
	ExprBool
	ExprIdent
	ExprArray
	ExprMath
	ExprLogic
	ExprTest
	ExprIn
	ExprStringConcat
	ExprFunctionCall
	ExprMacroCall
)

// Expr wraps an ExprVal with negation and a left-to-right filter chain,
// exactly as spec §3 describes: {val, negated, filters}.
type Expr struct {
	Val     ExprVal
	Negated bool
	Filters []*FnCall
	P       Position
}

func Str(s string) *Expr   { return &Expr{Val: ExprVal{Kind: ExprString, Str: s}} }
func IntLit(i int64) *Expr { return &Expr{Val: ExprVal{Kind: ExprInt, Int: i}} }
func FloatLit(f float64) *Expr { return &Expr{Val: ExprVal{Kind: ExprFloat, Float: f}} }
func BoolLit(b bool) *Expr { return &Expr{Val: ExprVal{Kind: ExprBool, Bool: b}} }
func Ident(path string) *Expr  { return &Expr{Val: ExprVal{Kind: ExprIdent, Ident: path}} }
