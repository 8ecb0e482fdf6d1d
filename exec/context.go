package exec

import (
	"strings"

	"github.com/corewald/tera/value"
)

// Context is the user-supplied render-time data (spec §3's Context):
// an ordered mapping from top-level variable names to Values, with
// dotted/bracket lookup delegated to value.Resolve.
type Context struct {
	obj *value.Object
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{obj: value.NewObject()}
}

// ContextFromObject wraps an already-built Object, taking ownership.
func ContextFromObject(o *value.Object) *Context {
	if o == nil {
		o = value.NewObject()
	}
	return &Context{obj: o}
}

// Insert binds a top-level variable.
func (c *Context) Insert(key string, v value.Value) {
	c.obj.Set(key, v)
}

// Extend copies other's top-level keys into c, overwriting any of c's
// own keys with the same name (spec §3's Context::extend semantics).
func (c *Context) Extend(other *Context) {
	if other == nil {
		return
	}
	for _, k := range other.obj.Keys() {
		v, _ := other.obj.Get(k)
		c.obj.Set(k, v)
	}
}

// AsObject exposes the underlying ordered map, e.g. for __tera_context.
func (c *Context) AsObject() *value.Object { return c.obj }

// Lookup resolves a dotted/bracketed path against the top-level map.
// It implements callstack.ContextLookup.
func (c *Context) Lookup(path string) (value.Value, bool) {
	root, rest := splitRootSegment(path)
	v, ok := c.obj.Get(root)
	if !ok {
		return value.Value{}, false
	}
	if rest == "" {
		return v, true
	}
	segs, err := value.ParsePointer(rest)
	if err != nil {
		return value.Value{}, false
	}
	return value.Resolve(v, segs, nil)
}

// splitRootSegment splits "a.b[0]" into ("a", "b[0]") and "a" into
// ("a", "").
func splitRootSegment(path string) (string, string) {
	for i, ch := range path {
		if ch == '.' || ch == '[' {
			return path[:i], strings.TrimPrefix(path[i:], ".")
		}
	}
	return path, ""
}
