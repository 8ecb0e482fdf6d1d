// Package callstack implements the frame stack that backs variable
// scoping for macros, for-loops, and includes (spec §4.3).
package callstack

import (
	"strings"

	"github.com/corewald/tera/value"
)

// FrameKind tags the four frame shapes spec §3/§4.3 describe.
type FrameKind int

const (
	KindOrigin FrameKind = iota
	KindMacro
	KindForLoop
	KindInclude
)

// LoopKind distinguishes value-only iteration from key/value iteration.
type LoopKind int

const (
	LoopValue LoopKind = iota
	LoopKeyValue
)

// LoopState tracks whether a for-loop body is running normally or has
// been asked to break/continue by a nested {% break %}/{% continue %}.
type LoopState int

const (
	LoopNormal LoopState = iota
	LoopBreak
	LoopContinue
)

// ForLoop is the extra state carried by a KindForLoop frame.
type ForLoop struct {
	KeyName   string
	HasKey    bool
	ValueName string
	Index     int
	Values    []value.Value
	Keys      []string // parallel to Values when Kind == LoopKeyValue
	Kind      LoopKind
	State     LoopState
}

func (f *ForLoop) Len() int { return len(f.Values) }

// Frame is one call-stack entry (spec §3).
type Frame struct {
	Kind     FrameKind
	Name     string
	Template string
	Locals   map[string]value.Value
	Loop     *ForLoop // only set for KindForLoop
	Macro    string   // "namespace::name" for KindMacro, for error messages
}

func newFrame(kind FrameKind, name, template string) *Frame {
	return &Frame{Kind: kind, Name: name, Template: template, Locals: map[string]value.Value{}}
}

// ContextLookup is satisfied by the renderer's user-supplied Context and
// is consulted once the call stack is exhausted.
type ContextLookup interface {
	Lookup(path string) (value.Value, bool)
}

// Stack is the ordered sequence of active frames, top = current.
type Stack struct {
	frames []*Frame
	ctx    ContextLookup
}

// New creates a stack backed by the given context fallback.
func New(ctx ContextLookup) *Stack {
	return &Stack{ctx: ctx}
}

func (s *Stack) Len() int { return len(s.frames) }

func (s *Stack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *Stack) PushOrigin(template string) *Frame {
	f := newFrame(KindOrigin, template, template)
	s.frames = append(s.frames, f)
	return f
}

func (s *Stack) PushMacro(namespace, name, template string, args map[string]value.Value) *Frame {
	f := newFrame(KindMacro, namespace+"::"+name, template)
	f.Macro = namespace + "::" + name
	for k, v := range args {
		f.Locals[k] = v
	}
	s.frames = append(s.frames, f)
	return f
}

func (s *Stack) PushForLoop(name, template string, loop *ForLoop) *Frame {
	f := newFrame(KindForLoop, name, template)
	f.Loop = loop
	s.frames = append(s.frames, f)
	return f
}

func (s *Stack) PushInclude(name, template string) *Frame {
	f := newFrame(KindInclude, name, template)
	s.frames = append(s.frames, f)
	return f
}

// Pop removes the top frame.
func (s *Stack) Pop() {
	if len(s.frames) == 0 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Lookup resolves key by walking frames top to bottom, falling through
// to the user Context when no frame (or loop/synthetic binding)
// satisfies it. Ascent stops at the first Macro or Origin frame
// encountered (Origin is the bottom). A Macro frame is opaque: it also
// hides the user Context, so a macro body sees only its own bindings.
func (s *Stack) Lookup(key string) (value.Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if v, ok := f.Locals[key]; ok {
			return v, true
		}
		if f.Kind == KindForLoop && f.Loop != nil {
			if v, ok := lookupLoopVar(f.Loop, key); ok {
				return v, true
			}
		}
		if f.Kind == KindMacro {
			return value.Value{}, false
		}
		if f.Kind == KindOrigin {
			break
		}
	}
	if s.ctx != nil {
		return s.ctx.Lookup(key)
	}
	return value.Value{}, false
}

func lookupLoopVar(fl *ForLoop, key string) (value.Value, bool) {
	if fl.Index < 0 || fl.Index >= len(fl.Values) {
		return value.Value{}, false
	}
	if key == fl.ValueName {
		return fl.Values[fl.Index], true
	}
	if fl.HasKey && key == fl.KeyName {
		return value.String(fl.Keys[fl.Index]), true
	}
	if rest, ok := strings.CutPrefix(key, "loop."); ok {
		switch rest {
		case "index":
			return value.Int(int64(fl.Index + 1)), true
		case "index0":
			return value.Int(int64(fl.Index)), true
		case "first":
			return value.Bool(fl.Index == 0), true
		case "last":
			return value.Bool(fl.Index == len(fl.Values)-1), true
		}
		return value.Value{}, false
	}
	if rest, ok := strings.CutPrefix(key, fl.ValueName+"."); ok {
		segs, err := value.ParsePointer(rest)
		if err != nil {
			return value.Value{}, false
		}
		return value.Resolve(fl.Values[fl.Index], segs, nil)
	}
	return value.Value{}, false
}

// AddAssignment implements `set`/`set_global`: global writes land in the
// nearest non-ForLoop frame (Macro/Include/Origin); non-global writes
// land in the top frame.
func (s *Stack) AddAssignment(key string, v value.Value, global bool) {
	if len(s.frames) == 0 {
		return
	}
	if !global {
		s.Top().Locals[key] = v
		return
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Kind != KindForLoop {
			s.frames[i].Locals[key] = v
			return
		}
	}
	s.frames[0].Locals[key] = v
}

// nearestForLoop returns the top-most ForLoop frame, or nil.
func (s *Stack) nearestForLoop() *Frame {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Kind == KindForLoop {
			return s.frames[i]
		}
	}
	return nil
}

// BreakForLoop sets the nearest for-loop's state to Break; ok is false
// if there is no active for-loop.
func (s *Stack) BreakForLoop() bool {
	f := s.nearestForLoop()
	if f == nil {
		return false
	}
	f.Loop.State = LoopBreak
	return true
}

// ContinueForLoop sets the nearest for-loop's state to Continue.
func (s *Stack) ContinueForLoop() bool {
	f := s.nearestForLoop()
	if f == nil {
		return false
	}
	f.Loop.State = LoopContinue
	return true
}

// BindingCount returns the number of local bindings in the top frame,
// used to enforce the per-frame bindings resource limit (spec §5).
func (s *Stack) BindingCount() int {
	t := s.Top()
	if t == nil {
		return 0
	}
	return len(t.Locals)
}
