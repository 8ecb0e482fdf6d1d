package parser_test

import (
	"testing"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleVariable(t *testing.T) {
	tmpl, err := parser.Parse("t", "hello {{ name }}")
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 2)
	_, ok := tmpl.Nodes[0].(*ast.Text)
	assert.True(t, ok)
	vb, ok := tmpl.Nodes[1].(*ast.VariableBlock)
	require.True(t, ok)
	assert.Equal(t, ast.ExprIdent, vb.Expr.Val.Kind)
	assert.Equal(t, "name", vb.Expr.Val.Ident)
}

func TestParseMathPrecedence(t *testing.T) {
	tmpl, err := parser.Parse("t", "{{ 2 + 1 * 2 }}")
	require.NoError(t, err)
	vb := tmpl.Nodes[0].(*ast.VariableBlock)
	require.Equal(t, ast.ExprMath, vb.Expr.Val.Kind)
	assert.Equal(t, ast.OpAdd, vb.Expr.Val.MathOp)
	rhs := vb.Expr.Val.RHS
	assert.Equal(t, ast.ExprMath, rhs.Val.Kind)
	assert.Equal(t, ast.OpMul, rhs.Val.MathOp)
}

func TestParseWhitespaceControl(t *testing.T) {
	tmpl, err := parser.Parse("t", "  {%- if true -%} x {%- endif -%}  ")
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 1)
	ifNode, ok := tmpl.Nodes[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifNode.Branches[0].Body, 1)
	text := ifNode.Branches[0].Body[0].(*ast.Text)
	assert.Equal(t, "x", text.Value)
}

func TestParseExtendsMustBeFirst(t *testing.T) {
	_, err := parser.Parse("t", "hi {% extends \"base\" %}")
	require.Error(t, err)
}

func TestParseDuplicateBlock(t *testing.T) {
	_, err := parser.Parse("t", "{% block a %}1{% endblock %}{% block a %}2{% endblock %}")
	require.Error(t, err)
}

func TestParseDuplicateMacro(t *testing.T) {
	_, err := parser.Parse("t", "{% macro a() %}1{% endmacro %}{% macro a() %}2{% endmacro %}")
	require.Error(t, err)
}

func TestParseForLoopWithKeyValue(t *testing.T) {
	tmpl, err := parser.Parse("t", "{% for k, v in obj %}{{ k }}{{ v }}{% endfor %}")
	require.NoError(t, err)
	fl := tmpl.Nodes[0].(*ast.ForLoop)
	assert.True(t, fl.HasKey)
	assert.Equal(t, "k", fl.Key)
	assert.Equal(t, "v", fl.Value)
}

func TestParseForLoopEmptyBranch(t *testing.T) {
	tmpl, err := parser.Parse("t", "{% for v in items %}{{ v }}{% else %}none{% endfor %}")
	require.NoError(t, err)
	fl := tmpl.Nodes[0].(*ast.ForLoop)
	assert.True(t, fl.HasEmpty)
	require.Len(t, fl.Empty, 1)
}

func TestParseMacroDefinitionWithDefaults(t *testing.T) {
	tmpl, err := parser.Parse("t", `{% macro hi(n=1) %}hi{{n}}{% endmacro %}`)
	require.NoError(t, err)
	require.Contains(t, tmpl.Macros, "hi")
	require.Len(t, tmpl.Macros["hi"].Args, 1)
	assert.Equal(t, "n", tmpl.Macros["hi"].Args[0].Name)
	assert.NotNil(t, tmpl.Macros["hi"].Args[0].Default)
}

func TestParseFilterChainAndMacroCall(t *testing.T) {
	tmpl, err := parser.Parse("t", `{{ m::hi(n=2) | upper }}`)
	require.NoError(t, err)
	vb := tmpl.Nodes[0].(*ast.VariableBlock)
	assert.Equal(t, ast.ExprMacroCall, vb.Expr.Val.Kind)
	assert.Equal(t, "m", vb.Expr.Val.MacroNamespace)
	assert.Equal(t, "hi", vb.Expr.Val.MacroName)
	require.Len(t, vb.Expr.Filters, 1)
	assert.Equal(t, "upper", vb.Expr.Filters[0].Name)
}

func TestParseBracketIdentifier(t *testing.T) {
	tmpl, err := parser.Parse("t", `{{ a["b/c"].d }}`)
	require.NoError(t, err)
	vb := tmpl.Nodes[0].(*ast.VariableBlock)
	assert.Equal(t, `a["b/c"].d`, vb.Expr.Val.Ident)
}

func TestParseNotInAndIsTest(t *testing.T) {
	tmpl, err := parser.Parse("t", `{{ x not in y }}{{ x is defined }}`)
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 2)
	in := tmpl.Nodes[0].(*ast.VariableBlock)
	assert.Equal(t, ast.ExprIn, in.Expr.Val.Kind)
	assert.True(t, in.Expr.Val.InNegated)
	test := tmpl.Nodes[1].(*ast.VariableBlock)
	assert.Equal(t, ast.ExprTest, test.Expr.Val.Kind)
	assert.Equal(t, "defined", test.Expr.Val.TestName)
}
