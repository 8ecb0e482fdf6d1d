package exec_test

import (
	"testing"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/builtins"
	"github.com/corewald/tera/exec"
	"github.com/corewald/tera/internal/terrors"
	"github.com/corewald/tera/parser"
	"github.com/corewald/tera/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	templates  map[string]*ast.Linked
	autoescape bool
	limits     exec.Limits
	reg        *builtins.Registry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates:  map[string]*ast.Linked{},
		autoescape: true,
		limits:     exec.DefaultLimits(),
		reg:        builtins.Default(),
	}
}

func (s *fakeStore) GetLinked(name string) (*ast.Linked, bool) {
	t, ok := s.templates[name]
	return t, ok
}
func (s *fakeStore) ShouldEscape(string) bool                { return s.autoescape }
func (s *fakeStore) EscapeFn() func(string) string           { return nil }
func (s *fakeStore) Filters() map[string]builtins.Filter     { return s.reg.Filters }
func (s *fakeStore) Functions() map[string]builtins.Function { return s.reg.Functions }
func (s *fakeStore) Testers() map[string]builtins.Tester     { return s.reg.Testers }
func (s *fakeStore) Limits() exec.Limits                     { return s.limits }

func mustLink(t *testing.T, name, src string) *ast.Linked {
	t.Helper()
	p, err := parser.Parse(name, src)
	require.NoError(t, err)
	return &ast.Linked{
		Name:              name,
		Parsed:            p,
		BlocksDefinitions: map[string][]ast.BlockDef{},
		Namespaces:        map[string]ast.NamespaceEntry{},
	}
}

func ctxWith(kv map[string]value.Value) *exec.Context {
	c := exec.NewContext()
	for k, v := range kv {
		c.Insert(k, v)
	}
	return c
}

func TestAutoescapeAndSafe(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ bio }}|{{ bio | safe }}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(map[string]value.Value{"bio": value.String("<script>")}))
	require.NoError(t, err)
	assert.Equal(t, "&lt;script&gt;|<script>", out)
}

func TestMathPrecedence(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ 2 + 1 * 2 }}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "4", out)
}

func TestRangeForLoop(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{% for i in range(end=3) %}{{ i }}{% endfor %}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "012", out)
}

func TestDefaultFilterRescuesMissingVariable(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ missing | default(value=5) }}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "5", out)
}

func TestMissingVariableErrors(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ missing }}`)
	r := exec.New(store, nil)
	_, err := r.Render("t", ctxWith(nil))
	assert.Error(t, err)
}

func TestBlockInheritanceWithSuper(t *testing.T) {
	store := newFakeStore()
	parent := mustLink(t, "parent.html", `P-{% block content %}base{% endblock %}-L`)
	child := mustLink(t, "child.html", `{% extends "parent.html" %}{% block content %}C-{{ super() }}-S{% endblock %}`)
	child.Parents = []string{"parent.html"}
	child.BlocksDefinitions["content"] = []ast.BlockDef{
		{Owner: "child.html", Block: child.Parsed.Blocks["content"]},
		{Owner: "parent.html", Block: parent.Parsed.Blocks["content"]},
	}
	store.templates["parent.html"] = parent
	store.templates["child.html"] = child

	r := exec.New(store, nil)
	out, err := r.Render("child.html", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "P-C-base-S-L", out)
}

func TestMacroNamespaceCall(t *testing.T) {
	store := newFakeStore()
	macros := mustLink(t, "macros.html", `{% macro hi(name) %}hi{{ name }}{% endmacro %}`)
	main := mustLink(t, "main.html", `{{ m::hi(name=1) }}|{{ m::hi(name=2) }}`)
	main.Namespaces["m"] = ast.NamespaceEntry{Owner: "macros.html", Macros: macros.Parsed.Macros}
	store.templates["macros.html"] = macros
	store.templates["main.html"] = main

	r := exec.New(store, nil)
	out, err := r.Render("main.html", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "hi1|hi2", out)
}

func TestIncludeSharesContext(t *testing.T) {
	store := newFakeStore()
	store.templates["inc.html"] = mustLink(t, "inc.html", `included:{{ name }}`)
	store.templates["main.html"] = mustLink(t, "main.html", `{% include "inc.html" %}`)

	r := exec.New(store, nil)
	out, err := r.Render("main.html", ctxWith(map[string]value.Value{"name": value.String("bob")}))
	require.NoError(t, err)
	assert.Equal(t, "included:bob", out)
}

func TestForLoopBreakAndContinue(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{% for i in range(end=5) %}{% if i == 1 %}{% continue %}{% endif %}{% if i == 3 %}{% break %}{% endif %}{{ i }}{% endfor %}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "02", out)
}

func TestArrayLiteralLimitExceeded(t *testing.T) {
	store := newFakeStore()
	store.limits.ArrayLiteralLimit = 2
	store.templates["t"] = mustLink(t, "t", `{{ [1, 2, 3] }}`)
	r := exec.New(store, nil)
	_, err := r.Render("t", ctxWith(nil))
	assert.Error(t, err)
}

func TestTeraContextDebugVariable(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ __tera_context.name }}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(map[string]value.Value{"name": value.String("ada")}))
	require.NoError(t, err)
	assert.Equal(t, "ada", out)
}

func TestRenderIDAttachedToError(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ missing }}`)
	r := exec.New(store, nil)
	_, err := r.Render("t", ctxWith(nil))
	require.Error(t, err)
	terr, ok := err.(*terrors.Error)
	require.True(t, ok)
	assert.NotEmpty(t, terr.RenderID)
}

func TestNegatedUndefinedIsTrue(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ not missing }}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "true", out)
}

func TestMacroMissingRequiredArgumentErrors(t *testing.T) {
	store := newFakeStore()
	macros := mustLink(t, "macros.html", `{% macro hi(name) %}hi{{ name }}{% endmacro %}`)
	main := mustLink(t, "main.html", `{{ m::hi() }}`)
	main.Namespaces["m"] = ast.NamespaceEntry{Owner: "macros.html", Macros: macros.Parsed.Macros}
	store.templates["macros.html"] = macros
	store.templates["main.html"] = main

	r := exec.New(store, nil)
	_, err := r.Render("main.html", ctxWith(nil))
	require.Error(t, err)
	terr, ok := err.(*terrors.Error)
	require.True(t, ok)
	assert.Equal(t, terrors.KindMacro, terr.Kind)
}

func TestFloatDivisionByZeroYieldsNaN(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ 1.5 / 0.0 }}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "NaN", out)
}

func TestIntegerDivisionByZeroErrors(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{{ 3 / 0 }}`)
	r := exec.New(store, nil)
	_, err := r.Render("t", ctxWith(nil))
	assert.Error(t, err)
}

func TestFilterSection(t *testing.T) {
	store := newFakeStore()
	store.templates["t"] = mustLink(t, "t", `{% filter upper %}hello{% endfilter %}`)
	r := exec.New(store, nil)
	out, err := r.Render("t", ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out)
}
