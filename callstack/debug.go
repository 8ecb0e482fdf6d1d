package callstack

import (
	"strconv"

	"github.com/corewald/tera/value"
)

// CurrentContextCloned materializes the merged scope visible at the top
// of the stack for the magical `__tera_context` debug variable (spec
// §4.4 design notes): the user Context overlaid by every frame's
// bindings, outermost frame first (the order of one frame's own bindings
// is not fixed), including for-loop synthetic variables.
// If a Macro frame is on the ascent path, only that macro's own
// bindings (and anything pushed above it) are included, since macros
// are isolated from caller scope.
func (s *Stack) CurrentContextCloned(userContext *value.Object) *value.Object {
	boundary := 0
	includeUserContext := true
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Kind == KindMacro {
			boundary = i
			includeUserContext = false
			break
		}
		if s.frames[i].Kind == KindOrigin {
			boundary = i
			break
		}
	}

	out := value.NewObject()
	if includeUserContext && userContext != nil {
		for _, k := range userContext.Keys() {
			v, _ := userContext.Get(k)
			out.Set(k, v)
		}
	}
	for i := boundary; i < len(s.frames); i++ {
		f := s.frames[i]
		for k, v := range f.Locals {
			out.Set(k, v)
		}
		if f.Kind == KindForLoop && f.Loop != nil && f.Loop.Index >= 0 && f.Loop.Index < len(f.Loop.Values) {
			out.Set(f.Loop.ValueName, f.Loop.Values[f.Loop.Index])
			if f.Loop.HasKey {
				out.Set(f.Loop.KeyName, value.String(f.Loop.Keys[f.Loop.Index]))
			}
			loopObj := value.NewObject()
			loopObj.Set("index", value.Int(int64(f.Loop.Index+1)))
			loopObj.Set("index0", value.Int(int64(f.Loop.Index)))
			loopObj.Set("first", value.Bool(f.Loop.Index == 0))
			loopObj.Set("last", value.Bool(f.Loop.Index == len(f.Loop.Values)-1))
			out.Set("loop", value.ObjectValue(loopObj))
		}
	}
	return out
}

// debugIndexKey renders an integer index as an object key.
func debugIndexKey(i int) string { return strconv.Itoa(i) }
