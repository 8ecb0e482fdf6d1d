// Package exec implements the tree-walking renderer (spec §4): node
// dispatch, expression evaluation, block/macro/include resolution, and
// the resource limits of spec §5.
package exec

import (
	"strings"
	"unicode"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/callstack"
	"github.com/corewald/tera/internal/terrors"
	"github.com/corewald/tera/value"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

type loopControl int

const (
	ctrlNone loopControl = iota
	ctrlBreak
	ctrlContinue
)

type superFrame struct {
	defs []ast.BlockDef
	idx  int
}

// Renderer walks a linked template's node tree and produces output. A
// Renderer is not safe for concurrent reuse across Render calls; the
// registry creates a fresh one per render (spec §4's per-render state).
type Renderer struct {
	store  TemplateStore
	logger *logrus.Entry

	ctx        *Context
	stack      *callstack.Stack
	limits     Limits
	depth      int
	ctrl       loopControl
	superStack []superFrame
	frameBytes []int

	// curLeaf is the originally requested template: block overrides
	// always resolve against its BlocksDefinitions, regardless of which
	// ancestor's node tree is currently executing (spec §3).
	curLeaf *ast.Linked
	// curOwner is whichever template lexically owns the node list being
	// executed right now; macro-namespace lookups consult its Namespaces.
	curOwner *ast.Linked

	// renderID stamps this invocation, surfaced via the __tera_context
	// debug variable's __render_id key and attached to every *terrors.Error
	// this render raises, so concurrent renders against a shared registry
	// can be correlated in logs.
	renderID string
}

// New creates a Renderer backed by store, logging through logger (may
// be nil).
func New(store TemplateStore, logger *logrus.Entry) *Renderer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Renderer{store: store, logger: logger}
}

// Render executes name against ctx and returns its full output.
func (r *Renderer) Render(name string, ctx *Context) (string, error) {
	linked, ok := r.store.GetLinked(name)
	if !ok {
		return "", terrors.Newf(terrors.KindTemplateNotFound, "template %q not found", name)
	}

	r.limits = r.store.Limits()
	r.ctx = ctx
	r.stack = callstack.New(ctx)
	r.ctrl = ctrlNone
	r.superStack = nil
	r.depth = 0
	r.frameBytes = nil
	r.renderID = uuid.NewString()

	root := r.resolveRoot(linked)
	r.curLeaf = linked
	r.curOwner = root

	r.stack.PushOrigin(name)
	r.pushFrameBytes()
	var sb strings.Builder
	err := r.execNodes(root.Parsed.Nodes, &sb)
	r.popFrameBytes()
	r.stack.Pop()

	log := r.logger.WithField("template", name).WithField("render_id", r.renderID)
	if err != nil {
		log.WithError(err).Debug("render failed")
		if te, ok := err.(*terrors.Error); ok {
			return "", te.WithTemplate(name, "").WithRenderID(r.renderID)
		}
		return "", err
	}
	log.Debug("render complete")
	return sb.String(), nil
}

// debugContextValue builds the `__tera_context` debug variable: the
// merged scope visible at the current point of execution, plus a
// __render_id key correlating it to this invocation's logs and errors.
func (r *Renderer) debugContextValue() value.Value {
	obj := r.stack.CurrentContextCloned(r.ctx.AsObject())
	obj.Set("__render_id", value.String(r.renderID))
	return value.ObjectValue(obj)
}

// lookupDebugContext resolves ident as a path rooted at the magical
// `__tera_context` debug variable (e.g. "__tera_context.__render_id"),
// reporting ok=false for any other identifier.
func (r *Renderer) lookupDebugContext(ident string) (value.Value, bool) {
	const root = "__tera_context"
	if ident != root && !strings.HasPrefix(ident, root+".") && !strings.HasPrefix(ident, root+"[") {
		return value.Value{}, false
	}
	base := r.debugContextValue()
	rest := strings.TrimPrefix(ident, root)
	rest = strings.TrimPrefix(rest, ".")
	if rest == "" {
		return base, true
	}
	segs, err := value.ParsePointer(rest)
	if err != nil {
		return value.Value{}, false
	}
	return value.Resolve(base, segs, nil)
}

func (r *Renderer) resolveRoot(linked *ast.Linked) *ast.Linked {
	if len(linked.Parents) == 0 {
		return linked
	}
	rootName := linked.Parents[len(linked.Parents)-1]
	if rl, ok := r.store.GetLinked(rootName); ok {
		return rl
	}
	return linked
}

func (r *Renderer) escapeFn() func(string) string {
	if fn := r.store.EscapeFn(); fn != nil {
		return fn
	}
	return htmlEscape
}

func (r *Renderer) pushFrameBytes() { r.frameBytes = append(r.frameBytes, 0) }

func (r *Renderer) popFrameBytes() {
	if len(r.frameBytes) > 0 {
		r.frameBytes = r.frameBytes[:len(r.frameBytes)-1]
	}
}

func (r *Renderer) writeString(sb *strings.Builder, s string) error {
	if len(r.frameBytes) > 0 {
		top := len(r.frameBytes) - 1
		r.frameBytes[top] += len(s)
		if r.frameBytes[top] > r.limits.MaxBytesPerFrame {
			return terrors.Newf(terrors.KindLimitExceeded, "frame output exceeds %d bytes", r.limits.MaxBytesPerFrame)
		}
	}
	sb.WriteString(s)
	return nil
}

func (r *Renderer) execNodes(nodes []ast.Node, sb *strings.Builder) error {
	for _, n := range nodes {
		if r.ctrl != ctrlNone {
			return nil
		}
		if err := r.execNode(n, sb); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) execNode(n ast.Node, sb *strings.Builder) error {
	switch node := n.(type) {
	case *ast.Text:
		return r.writeString(sb, node.Value)
	case *ast.Raw:
		return r.writeString(sb, node.Value)
	case *ast.Comment:
		return nil
	case *ast.VariableBlock:
		return r.execVariableBlock(node, sb)
	case *ast.Set:
		return r.execSet(node)
	case *ast.If:
		return r.execIf(node, sb)
	case *ast.ForLoop:
		return r.execForLoop(node, sb)
	case *ast.Block:
		return r.renderBlock(node, sb)
	case *ast.MacroDefinition:
		return nil
	case *ast.Include:
		return r.execInclude(node, sb)
	case *ast.Extends:
		return nil
	case *ast.ImportMacro:
		return nil
	case *ast.Super:
		s, err := r.renderSuper()
		if err != nil {
			return err
		}
		return r.writeString(sb, s)
	case *ast.Break:
		if !r.stack.BreakForLoop() {
			return terrors.New(terrors.KindTypeMismatch, "break used outside a for loop")
		}
		r.ctrl = ctrlBreak
		return nil
	case *ast.Continue:
		if !r.stack.ContinueForLoop() {
			return terrors.New(terrors.KindTypeMismatch, "continue used outside a for loop")
		}
		r.ctrl = ctrlContinue
		return nil
	case *ast.FilterSection:
		return r.execFilterSection(node, sb)
	default:
		return nil
	}
}

func (r *Renderer) execVariableBlock(n *ast.VariableBlock, sb *strings.Builder) error {
	v, safe, err := r.evalExpr(n.Expr)
	if err != nil {
		return err
	}
	s := v.Render()
	if !safe && r.store.ShouldEscape(r.curLeaf.Name) {
		s = r.escapeFn()(s)
	}
	return r.writeString(sb, s)
}

func (r *Renderer) execSet(n *ast.Set) error {
	v, _, err := r.evalExpr(n.Expr)
	if err != nil {
		return err
	}
	if !n.Global && r.stack.BindingCount() >= r.limits.MaxBindingsPerFrame {
		return terrors.Newf(terrors.KindLimitExceeded, "frame exceeds %d bindings", r.limits.MaxBindingsPerFrame)
	}
	r.stack.AddAssignment(n.Key, v, n.Global)
	return nil
}

func (r *Renderer) execIf(n *ast.If, sb *strings.Builder) error {
	for _, br := range n.Branches {
		v, _, err := r.evalExpr(br.Cond)
		if err != nil {
			return err
		}
		if v.Truthy() {
			return r.execNodes(br.Body, sb)
		}
	}
	if n.HasElse {
		return r.execNodes(n.Else, sb)
	}
	return nil
}

func (r *Renderer) execForLoop(n *ast.ForLoop, sb *strings.Builder) error {
	containerV, _, err := r.evalExpr(n.Container)
	if err != nil {
		return err
	}

	var values []value.Value
	var keys []string
	hasKey := n.HasKey

	switch containerV.Kind() {
	case value.KindArray:
		values, _ = containerV.AsArray()
		if hasKey {
			return terrors.New(terrors.KindTypeMismatch, "for loop with a key requires an object, not an array")
		}
	case value.KindObject:
		obj, _ := containerV.AsObject()
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			keys = append(keys, k)
			values = append(values, v)
		}
	case value.KindString:
		if hasKey {
			return terrors.New(terrors.KindTypeMismatch, "for loop with a key requires an object, not a string")
		}
		s, _ := containerV.AsString()
		for _, ch := range iterateGraphemesApprox(s) {
			values = append(values, value.String(ch))
		}
	default:
		return terrors.Newf(terrors.KindTypeMismatch, "for loop requires an array, object, or string, got %s", containerV.Kind())
	}

	if len(values) == 0 {
		if n.HasEmpty {
			return r.execNodes(n.Empty, sb)
		}
		return nil
	}

	loop := &callstack.ForLoop{ValueName: n.Value, Values: values, Kind: callstack.LoopValue}
	if hasKey {
		loop.HasKey = true
		loop.KeyName = n.Key
		loop.Keys = keys
		loop.Kind = callstack.LoopKeyValue
	}

	r.depth++
	if r.depth > r.limits.MaxRecursionDepth {
		r.depth--
		return terrors.Newf(terrors.KindLimitExceeded, "render recursion exceeds depth %d", r.limits.MaxRecursionDepth)
	}
	r.stack.PushForLoop(n.Value, r.curOwner.Name, loop)
	r.pushFrameBytes()

	for i := 0; i < len(values); i++ {
		loop.Index = i
		if err := r.execNodes(n.Body, sb); err != nil {
			r.popFrameBytes()
			r.stack.Pop()
			r.depth--
			return err
		}
		if r.ctrl == ctrlBreak {
			r.ctrl = ctrlNone
			break
		}
		if r.ctrl == ctrlContinue {
			r.ctrl = ctrlNone
			continue
		}
	}

	r.popFrameBytes()
	r.stack.Pop()
	r.depth--
	return nil
}

// iterateGraphemesApprox splits s into user-perceptible-ish units: NFC
// normalization composes decomposed accents into single runes first,
// then any remaining combining marks are folded onto the preceding
// base rune. This is an approximation of full UAX #29 segmentation
// (see DESIGN.md for why no full grapheme library is used).
func iterateGraphemesApprox(s string) []string {
	composed := norm.NFC.String(s)
	var out []string
	for _, r := range composed {
		if unicode.Is(unicode.Mn, r) && len(out) > 0 {
			out[len(out)-1] += string(r)
			continue
		}
		out = append(out, string(r))
	}
	return out
}

func (r *Renderer) renderBlock(n *ast.Block, sb *strings.Builder) error {
	defs := r.curLeaf.BlocksDefinitions[n.Name]
	if len(defs) == 0 {
		defs = []ast.BlockDef{{Owner: r.curOwner.Name, Block: n}}
	}
	if len(defs) > r.limits.MaxBlockDepth {
		return terrors.Newf(terrors.KindLimitExceeded, "block inheritance chain exceeds depth %d", r.limits.MaxBlockDepth)
	}
	return r.renderBlockChain(defs, 0, sb)
}

func (r *Renderer) renderBlockChain(defs []ast.BlockDef, idx int, sb *strings.Builder) error {
	if idx >= len(defs) {
		return nil
	}
	def := defs[idx]
	owner := r.curLeaf
	if def.Owner != r.curLeaf.Name {
		if ol, ok := r.store.GetLinked(def.Owner); ok {
			owner = ol
		}
	}

	prevOwner := r.curOwner
	r.curOwner = owner
	r.superStack = append(r.superStack, superFrame{defs: defs, idx: idx})

	err := r.execNodes(def.Block.Body, sb)

	r.superStack = r.superStack[:len(r.superStack)-1]
	r.curOwner = prevOwner
	return err
}

func (r *Renderer) renderSuper() (string, error) {
	if len(r.superStack) == 0 {
		return "", terrors.New(terrors.KindMacro, "super() called outside a block")
	}
	top := r.superStack[len(r.superStack)-1]
	if top.idx+1 >= len(top.defs) {
		return "", nil
	}
	var sb strings.Builder
	err := r.renderBlockChain(top.defs, top.idx+1, &sb)
	return sb.String(), err
}

func (r *Renderer) execInclude(n *ast.Include, sb *strings.Builder) error {
	for _, cand := range n.Candidates {
		linked, ok := r.store.GetLinked(cand)
		if !ok {
			continue
		}
		root := r.resolveRoot(linked)

		r.depth++
		if r.depth > r.limits.MaxRecursionDepth {
			r.depth--
			return terrors.Newf(terrors.KindLimitExceeded, "render recursion exceeds depth %d", r.limits.MaxRecursionDepth)
		}

		prevLeaf, prevOwner := r.curLeaf, r.curOwner
		r.curLeaf, r.curOwner = linked, root
		r.stack.PushInclude(cand, cand)
		r.pushFrameBytes()

		err := r.execNodes(root.Parsed.Nodes, sb)

		r.popFrameBytes()
		r.stack.Pop()
		r.curLeaf, r.curOwner = prevLeaf, prevOwner
		r.depth--
		return err
	}
	if n.IgnoreMissing {
		r.logger.WithField("candidates", n.Candidates).Warn("include skipped: none of the candidates exist")
		return nil
	}
	return terrors.Newf(terrors.KindTemplateNotFound, "none of the include candidates exist")
}

func (r *Renderer) execFilterSection(n *ast.FilterSection, sb *strings.Builder) error {
	var inner strings.Builder
	if err := r.execNodes(n.Body, &inner); err != nil {
		return err
	}
	f, ok := r.store.Filters()[n.Filter.Name]
	if !ok {
		return terrors.Newf(terrors.KindFilter, "unknown filter %q", n.Filter.Name)
	}
	args, err := r.evalKwargs(n.Filter.Args)
	if err != nil {
		return err
	}
	out, err := f.Call(value.String(inner.String()), args)
	if err != nil {
		return terrors.Wrap(terrors.KindFilter, "filter "+n.Filter.Name+" failed", err)
	}
	return r.writeString(sb, out.Render())
}

func (r *Renderer) evalMacroCall(val ast.ExprVal) (value.Value, bool, error) {
	ns, ok := r.curOwner.Namespaces[val.MacroNamespace]
	if !ok {
		return value.Value{}, false, terrors.Newf(terrors.KindMacro, "unknown macro namespace %q", val.MacroNamespace)
	}
	def, ok := ns.Macros[val.MacroName]
	if !ok {
		return value.Value{}, false, terrors.Newf(terrors.KindMacro, "unknown macro %q::%q", val.MacroNamespace, val.MacroName)
	}

	args := map[string]value.Value{}
	for _, a := range def.Args {
		if e, has := val.MacroArgs[a.Name]; has {
			v, _, err := r.evalExpr(e)
			if err != nil {
				return value.Value{}, false, err
			}
			args[a.Name] = v
		} else if a.Default != nil {
			v, _, err := r.evalExpr(a.Default)
			if err != nil {
				return value.Value{}, false, err
			}
			args[a.Name] = v
		} else {
			return value.Value{}, false, terrors.Newf(terrors.KindMacro, "macro %q::%q is missing the argument %q", val.MacroNamespace, val.MacroName, a.Name)
		}
	}

	owner, ok := r.store.GetLinked(ns.Owner)
	if !ok {
		return value.Value{}, false, terrors.Newf(terrors.KindTemplateNotFound, "macro owner template %q not found", ns.Owner)
	}

	r.depth++
	if r.depth > r.limits.MaxRecursionDepth {
		r.depth--
		return value.Value{}, false, terrors.Newf(terrors.KindLimitExceeded, "render recursion exceeds depth %d", r.limits.MaxRecursionDepth)
	}

	prevLeaf, prevOwner := r.curLeaf, r.curOwner
	r.curLeaf, r.curOwner = owner, owner
	r.stack.PushMacro(val.MacroNamespace, val.MacroName, ns.Owner, args)
	r.pushFrameBytes()

	var sb strings.Builder
	err := r.execNodes(def.Body, &sb)

	r.popFrameBytes()
	r.stack.Pop()
	r.curLeaf, r.curOwner = prevLeaf, prevOwner
	r.depth--

	if err != nil {
		return value.Value{}, false, err
	}
	return value.String(sb.String()), true, nil
}
