// Package tera is the thin root facade over the template engine: it
// re-exports the registry, execution, value and error types under one
// import path, "github.com/corewald/tera/tera", in the style of the
// teacher's root gojinja2 package.
package tera

import (
	"github.com/corewald/tera/builtins"
	"github.com/corewald/tera/exec"
	"github.com/corewald/tera/internal/terrors"
	"github.com/corewald/tera/registry"
	"github.com/corewald/tera/value"
	"github.com/sirupsen/logrus"
)

// Tera is the template registry and render entry point.
type Tera = registry.Tera

// Option configures a Tera instance at construction time.
type Option = registry.Option

// Context is the render-time variable bag passed to Render/OneOff.
type Context = exec.Context

// Limits are the resource caps of spec §5 (block depth, recursion
// depth, frame bindings/bytes, range and array-literal size).
type Limits = exec.Limits

// Value is the tagged-union template value type.
type Value = value.Value

// Filter, Function, and Tester are the plugin hook signatures.
type Filter = builtins.Filter
type Function = builtins.Function
type Tester = builtins.Tester

// Error is the tagged error type returned by parse/link/render failures.
type Error = terrors.Error

// ErrorKind enumerates Error.Kind values.
type ErrorKind = terrors.Kind

const (
	ErrorParse            = terrors.KindParse
	ErrorTemplateNotFound = terrors.KindTemplateNotFound
	ErrorCircularExtend   = terrors.KindCircularExtend
	ErrorDuplicateBlock   = terrors.KindDuplicateBlock
	ErrorDuplicateMacro   = terrors.KindDuplicateMacro
	ErrorVariableNotFound = terrors.KindVariableNotFound
	ErrorTypeMismatch     = terrors.KindTypeMismatch
	ErrorFilter           = terrors.KindFilter
	ErrorFunction         = terrors.KindFunction
	ErrorTester           = terrors.KindTester
	ErrorMacro            = terrors.KindMacro
	ErrorLimitExceeded    = terrors.KindLimitExceeded
	ErrorIO               = terrors.KindIO
)

// New creates an empty registry, seeded with the built-in filters and
// functions (registry.New).
func New(opts ...Option) *Tera {
	return registry.New(opts...)
}

// NewFromGlob walks pattern and parses+links every matching file into a
// new registry (registry.NewFromGlob).
func NewFromGlob(pattern string, opts ...Option) (*Tera, error) {
	return registry.NewFromGlob(pattern, opts...)
}

// WithLimits overrides the default resource limits.
func WithLimits(l Limits) Option { return registry.WithLimits(l) }

// WithAutoescapeExtensions overrides the default autoescape suffix list.
func WithAutoescapeExtensions(exts []string) Option {
	return registry.WithAutoescapeExtensions(exts)
}

// WithLogger attaches a logrus entry for registry lifecycle and
// render-time diagnostics.
func WithLogger(logger *logrus.Entry) Option { return registry.WithLogger(logger) }

// DefaultLimits returns the spec §5 resource-limit defaults.
func DefaultLimits() Limits { return exec.DefaultLimits() }

// NewContext creates an empty render context.
func NewContext() *Context { return exec.NewContext() }

// ContextFromObject wraps an already-built Object as a Context.
func ContextFromObject(o *value.Object) *Context { return exec.ContextFromObject(o) }

// RenderString is a convenience one-off render: it parses source,
// renders it against ctx with autoescape on, and discards the parsed
// template (Tera.OneOff against a fresh, builtins-only registry).
func RenderString(source string, ctx *Context) (string, error) {
	return New().OneOff(source, ctx, true)
}
