package value_test

import (
	"testing"

	"github.com/corewald/tera/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONScalars(t *testing.T) {
	v, err := value.FromJSON([]byte(`{"name": "Ada", "age": 36, "ratio": 1.5, "active": true, "tags": ["a","b"]}`))
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok)

	name, _ := obj.Get("name")
	assert.Equal(t, "Ada", name.Render())

	age, _ := obj.Get("age")
	assert.Equal(t, value.KindI64, age.Kind())
	assert.Equal(t, "36", age.Render())

	ratio, _ := obj.Get("ratio")
	assert.Equal(t, value.KindF64, ratio.Kind())

	tags, _ := obj.Get("tags")
	arr, ok := tags.AsArray()
	require.True(t, ok)
	assert.Len(t, arr, 2)
}

func TestFromJSONInvalid(t *testing.T) {
	_, err := value.FromJSON([]byte(`{not json`))
	assert.Error(t, err)
}
