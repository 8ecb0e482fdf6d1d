package builtins_test

import (
	"testing"

	"github.com/corewald/tera/builtins"
	"github.com/corewald/tera/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeIsNoOp(t *testing.T) {
	r := builtins.Default()
	out, err := r.Filters["safe"].Call(value.String("<b>"), nil)
	require.NoError(t, err)
	s, _ := out.AsString()
	assert.Equal(t, "<b>", s)
}

func TestDefaultOnlyAppliesToNull(t *testing.T) {
	r := builtins.Default()
	out, err := r.Filters["default"].Call(value.Null(), map[string]value.Value{"value": value.Int(5)})
	require.NoError(t, err)
	f, _ := out.AsF64()
	assert.Equal(t, float64(5), f)

	out2, err := r.Filters["default"].Call(value.Int(9), map[string]value.Value{"value": value.Int(5)})
	require.NoError(t, err)
	f2, _ := out2.AsF64()
	assert.Equal(t, float64(9), f2)
}

func TestMergeOverlaysKeys(t *testing.T) {
	r := builtins.Default()
	a := value.NewObject()
	a.Set("x", value.Int(1))
	a.Set("y", value.Int(2))
	b := value.NewObject()
	b.Set("y", value.Int(20))
	b.Set("z", value.Int(3))

	out, err := r.Filters["merge"].Call(value.ObjectValue(a), map[string]value.Value{"other": value.ObjectValue(b)})
	require.NoError(t, err)
	obj, ok := out.AsObject()
	require.True(t, ok)
	y, _ := obj.Get("y")
	yf, _ := y.AsF64()
	assert.Equal(t, float64(20), yf)
	z, _ := obj.Get("z")
	zf, _ := z.AsF64()
	assert.Equal(t, float64(3), zf)
}

func TestRangeProducesHalfOpenInterval(t *testing.T) {
	r := builtins.Default()
	out, err := r.Functions["range"].Call(map[string]value.Value{"end": value.Int(3)})
	require.NoError(t, err)
	arr, ok := out.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 3)
	f0, _ := arr[0].AsF64()
	f2, _ := arr[2].AsF64()
	assert.Equal(t, float64(0), f0)
	assert.Equal(t, float64(2), f2)
}

func TestRangeRejectsOverLimit(t *testing.T) {
	r := builtins.Default()
	_, err := r.Functions["range"].Call(map[string]value.Value{"end": value.Int(10000)})
	assert.Error(t, err)
}

func TestUpperLowerTitle(t *testing.T) {
	r := builtins.Default()
	up, _ := r.Filters["upper"].Call(value.String("hello world"), nil)
	lo, _ := r.Filters["lower"].Call(value.String("HELLO"), nil)
	ti, _ := r.Filters["title"].Call(value.String("hello world"), nil)
	us, _ := up.AsString()
	ls, _ := lo.AsString()
	ts, _ := ti.AsString()
	assert.Equal(t, "HELLO WORLD", us)
	assert.Equal(t, "hello", ls)
	assert.Equal(t, "Hello World", ts)
}
