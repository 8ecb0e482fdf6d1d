package callstack_test

import (
	"testing"

	"github.com/corewald/tera/callstack"
	"github.com/corewald/tera/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCtx map[string]value.Value

func (m mapCtx) Lookup(path string) (value.Value, bool) {
	v, ok := m[path]
	return v, ok
}

func TestLookupFallsThroughToContext(t *testing.T) {
	s := callstack.New(mapCtx{"name": value.String("ada")})
	s.PushOrigin("t")
	v, ok := s.Lookup("name")
	require.True(t, ok)
	str, _ := v.AsString()
	assert.Equal(t, "ada", str)
}

func TestForLoopSyntheticVars(t *testing.T) {
	s := callstack.New(mapCtx{})
	s.PushOrigin("t")
	loop := &callstack.ForLoop{ValueName: "v", Values: []value.Value{value.Int(10), value.Int(20)}, Index: 1}
	s.PushForLoop("for", "t", loop)

	v, ok := s.Lookup("v")
	require.True(t, ok)
	i, _ := v.AsF64()
	assert.Equal(t, float64(20), i)

	idx, ok := s.Lookup("loop.index")
	require.True(t, ok)
	f, _ := idx.AsF64()
	assert.Equal(t, float64(2), f)

	last, ok := s.Lookup("loop.last")
	require.True(t, ok)
	b, _ := last.AsBool()
	assert.True(t, b)
}

func TestMacroFrameIsOpaque(t *testing.T) {
	s := callstack.New(mapCtx{"outer": value.String("visible-to-origin-only")})
	s.PushOrigin("t")
	s.AddAssignment("leaked", value.Int(1), false)
	s.PushMacro("ns", "m", "t", map[string]value.Value{"arg": value.Int(7)})

	_, ok := s.Lookup("outer")
	assert.False(t, ok, "macro frames must not see the user context")
	_, ok = s.Lookup("leaked")
	assert.False(t, ok, "macro frames must not see caller locals")
	v, ok := s.Lookup("arg")
	require.True(t, ok)
	f, _ := v.AsF64()
	assert.Equal(t, float64(7), f)
}

func TestSetGlobalWritesToNearestNonForLoopFrame(t *testing.T) {
	s := callstack.New(mapCtx{})
	s.PushOrigin("t")
	loop := &callstack.ForLoop{ValueName: "v", Values: []value.Value{value.Int(1)}}
	s.PushForLoop("for", "t", loop)
	s.AddAssignment("g", value.String("global"), true)
	s.Pop()
	v, ok := s.Lookup("g")
	require.True(t, ok)
	str, _ := v.AsString()
	assert.Equal(t, "global", str)
}

func TestBreakContinuePropagation(t *testing.T) {
	s := callstack.New(mapCtx{})
	s.PushOrigin("t")
	loop := &callstack.ForLoop{ValueName: "v", Values: []value.Value{value.Int(1)}}
	f := s.PushForLoop("for", "t", loop)
	assert.True(t, s.BreakForLoop())
	assert.Equal(t, callstack.LoopBreak, f.Loop.State)
	assert.True(t, s.ContinueForLoop())
	assert.Equal(t, callstack.LoopContinue, f.Loop.State)
}
