package tera_test

import (
	"testing"

	"github.com/corewald/tera"
	"github.com/corewald/tera/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStringAutoescapes(t *testing.T) {
	ctx := tera.NewContext()
	ctx.Insert("name", value.String("<b>Bob</b>"))
	out, err := tera.RenderString("Hello {{ name }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello &lt;b&gt;Bob&lt;/b&gt;", out)
}

func TestAddTemplateAndRender(t *testing.T) {
	r := tera.New()
	require.NoError(t, r.AddTemplate("greeting.html", "Hi {{ name }}!"))

	ctx := tera.NewContext()
	ctx.Insert("name", value.String("Ada"))
	out, err := r.Render("greeting.html", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada!", out)
}

func TestRenderMissingTemplateErrors(t *testing.T) {
	r := tera.New()
	_, err := r.Render("missing.html", tera.NewContext())
	require.Error(t, err)
	var terr *tera.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, tera.ErrorTemplateNotFound, terr.Kind)
}
