package exec

import (
	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/builtins"
)

// Limits implements the resource caps of spec §5. The registry package
// constructs these (with defaults) and the renderer enforces them.
type Limits struct {
	// MaxBlockDepth bounds the length of an extends chain.
	MaxBlockDepth int
	// MaxRecursionDepth bounds nested include/macro-call/for-loop-body
	// evaluation depth.
	MaxRecursionDepth int
	// MaxBindingsPerFrame bounds `set` calls within a single frame.
	MaxBindingsPerFrame int
	// MaxBytesPerFrame bounds the cumulative bytes a single frame's
	// output may contribute before it is considered runaway.
	MaxBytesPerFrame int
	// RangeLimit is carried through configuration but not enforced: the
	// built-in range() applies its own fixed cap of 500 elements and
	// does not read this field.
	RangeLimit int
	// ArrayLiteralLimit bounds the element count of an array literal.
	ArrayLiteralLimit int
}

// DefaultLimits returns the spec §5 defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxBlockDepth:       5,
		MaxRecursionDepth:   20,
		MaxBindingsPerFrame: 50,
		MaxBytesPerFrame:    4 * 1024 * 1024,
		RangeLimit:          500,
		ArrayLiteralLimit:   100,
	}
}

// TemplateStore is the read-only view of the template registry the
// Renderer needs: linked templates, escaping policy, and the plugin
// tables. registry.Tera implements this; exec never imports registry,
// keeping the dependency graph one-directional (spec design note).
type TemplateStore interface {
	GetLinked(name string) (*ast.Linked, bool)
	ShouldEscape(name string) bool
	EscapeFn() func(string) string
	Filters() map[string]builtins.Filter
	Functions() map[string]builtins.Function
	Testers() map[string]builtins.Tester
	Limits() Limits
}
