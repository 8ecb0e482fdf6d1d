package value_test

import (
	"testing"

	"github.com/corewald/tera/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"null", value.Null(), false},
		{"false", value.Bool(false), false},
		{"true", value.Bool(true), true},
		{"zero int", value.Int(0), false},
		{"nonzero int", value.Int(1), true},
		{"nan float", value.Float(nanValue()), false},
		{"empty string", value.String(""), false},
		{"nonempty string", value.String("x"), true},
		{"empty array", value.Array(nil), false},
		{"nonempty array", value.Array([]value.Value{value.Int(1)}), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.v.Truthy())
		})
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestEqualNumericCrossKind(t *testing.T) {
	assert.True(t, value.Equal(value.Int(2), value.Float(2.0)))
	assert.True(t, value.Equal(value.Uint(2), value.Int(2)))
	assert.False(t, value.Equal(value.Int(2), value.String("2")))
}

func TestRenderArray(t *testing.T) {
	arr := value.Array([]value.Value{value.Int(1), value.String("a")})
	assert.Equal(t, "[1, a]", arr.Render())
}

func TestObjectOrderPreserved(t *testing.T) {
	o := value.NewObject()
	o.Set("b", value.Int(1))
	o.Set("a", value.Int(2))
	assert.Equal(t, []string{"b", "a"}, o.Keys())
}

func TestParsePointerAndResolve(t *testing.T) {
	root := value.NewObject()
	inner := value.NewObject()
	inner.Set("c", value.String("deep"))
	arr := value.Array([]value.Value{value.Int(10), value.ObjectValue(inner)})
	root.Set("a", arr)
	segs, err := value.ParsePointer("a.1.c")
	require.NoError(t, err)
	got, ok := value.Resolve(value.ObjectValue(root), segs, func(string) (value.Value, bool) { return value.Value{}, false })
	require.True(t, ok)
	s, _ := got.AsString()
	assert.Equal(t, "deep", s)
}

func TestParsePointerBracketSlashKey(t *testing.T) {
	root := value.NewObject()
	root.Set("b/c", value.Int(7))
	segs, err := value.ParsePointer(`["b/c"]`)
	require.NoError(t, err)
	got, ok := value.Resolve(value.ObjectValue(root), segs, nil)
	require.True(t, ok)
	f, _ := got.AsF64()
	assert.Equal(t, float64(7), f)
}
