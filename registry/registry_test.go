package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corewald/tera/exec"
	"github.com/corewald/tera/registry"
	"github.com/corewald/tera/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTemplateAndRender(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.AddTemplate("hello.txt", "Hi {{ name }}!"))

	ctx := exec.NewContext()
	ctx.Insert("name", value.String("Ada"))
	out, err := r.Render("hello.txt", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada!", out)
}

func TestBlockInheritanceEndToEnd(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.AddTemplates(map[string]string{
		"base.html":  `<h1>{% block title %}default{% endblock %}</h1>`,
		"child.html": `{% extends "base.html" %}{% block title %}Hi {{ super() }}!{% endblock %}`,
	}))
	out, err := r.Render("child.html", exec.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hi default!</h1>", out)
}

func TestMissingParentErrors(t *testing.T) {
	r := registry.New()
	err := r.AddTemplate("child.html", `{% extends "missing.html" %}`)
	assert.Error(t, err)
}

func TestCircularExtendErrors(t *testing.T) {
	r := registry.New()
	err := r.AddTemplates(map[string]string{
		"a.html": `{% extends "b.html" %}`,
		"b.html": `{% extends "a.html" %}`,
	})
	assert.Error(t, err)
}

func TestExtendMergesWithoutOverwriting(t *testing.T) {
	base := registry.New()
	require.NoError(t, base.AddTemplate("shared.html", "base:{{ x }}"))

	other := registry.New()
	require.NoError(t, other.AddTemplate("shared.html", "other:{{ x }}"))
	require.NoError(t, other.AddTemplate("only_other.html", "only other"))

	require.NoError(t, base.Extend(other))

	ctx := exec.NewContext()
	ctx.Insert("x", value.Int(1))
	out, err := base.Render("shared.html", ctx)
	require.NoError(t, err)
	assert.Equal(t, "base:1", out, "Extend must not overwrite a name the receiver already has")

	out, err = base.Render("only_other.html", exec.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "only other", out)
}

func TestOneOffDoesNotMutateSharedAutoescape(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.AddTemplate("page.html", "{{ bio }}"))

	ctx := exec.NewContext()
	ctx.Insert("bio", value.String("<b>"))

	out, err := r.OneOff("{{ bio }}", ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "<b>", out, "OneOff(autoescape=false) must not escape")

	out, err = r.Render("page.html", ctx)
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;", out, "registered .html templates must keep autoescaping after a OneOff call")
}

func TestNewFromGlobLoadsNestedTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "partials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("{% include \"partials/greeting.html\" %}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partials", "greeting.html"), []byte("hi"), 0o644))

	r, err := registry.NewFromGlob(filepath.Join(dir, "**", "*"))
	require.NoError(t, err)

	out, err := r.Render("index.html", exec.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}
