// Package terrors defines the tagged error model shared by the parser,
// registry, and renderer (spec §7).
package terrors

import "fmt"

// Kind enumerates the error categories carried by *Error.
type Kind string

const (
	KindParse            Kind = "parse_error"
	KindTemplateNotFound Kind = "template_not_found"
	KindCircularExtend   Kind = "circular_extend"
	KindDuplicateBlock   Kind = "duplicate_block"
	KindDuplicateMacro   Kind = "duplicate_macro"
	KindVariableNotFound Kind = "variable_not_found"
	KindTypeMismatch     Kind = "type_mismatch"
	KindFilter           Kind = "filter_error"
	KindFunction         Kind = "function_error"
	KindTester           Kind = "tester_error"
	KindMacro            Kind = "macro_error"
	KindLimitExceeded    Kind = "limit_exceeded"
	KindIO               Kind = "io_error"
)

// Error is the tagged error carried across the engine. The renderer sets
// Template on a render-time error to the name of the template whose
// render was requested, also when the failure happened inside an
// included template or an imported macro, and it leaves In empty. In
// describes an enclosing construct (block name, "ns::macro", or include
// file) only when a caller of WithTemplate supplies one.
type Error struct {
	Kind     Kind
	Message  string
	Template string
	In       string
	Line     int
	Column   int
	Cause    error
	RenderID string
}

func (e *Error) Error() string {
	loc := ""
	if e.Template != "" {
		loc = fmt.Sprintf(" in %q", e.Template)
		if e.In != "" {
			loc += fmt.Sprintf(" (%s)", e.In)
		}
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s%s at line %d, column %d: %s", e.Kind, loc, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s%s: %s", e.Kind, loc, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with no position/cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/message to an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithTemplate returns a copy of e annotated with a template name and
// enclosing construct, keeping any value already set. The renderer calls
// it once per failed render, with the requested template name and an
// empty construct; block, macro and include frames add nothing.
func (e *Error) WithTemplate(template, in string) *Error {
	cp := *e
	if cp.Template == "" {
		cp.Template = template
	}
	if cp.In == "" {
		cp.In = in
	}
	return &cp
}

// WithRenderID tags e with the UUID of the render invocation that
// raised it, if it isn't already tagged (e.g. by a nested include).
func (e *Error) WithRenderID(id string) *Error {
	cp := *e
	if cp.RenderID == "" {
		cp.RenderID = id
	}
	return &cp
}

// WithPosition attaches a source location if one isn't already set.
func (e *Error) WithPosition(line, column int) *Error {
	cp := *e
	if cp.Line == 0 {
		cp.Line = line
		cp.Column = column
	}
	return &cp
}

// Is lets errors.Is(err, &terrors.Error{Kind: terrors.KindX}) match any
// *Error of the same Kind; kept minimal since callers mostly switch on
// (*Error).Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
