// Package registry implements the template registry (spec §3): parsing
// and storing templates, linking `extends`/`block`/`import` metadata
// into ast.Linked records, and rendering through the exec package.
// Grounded on the teacher's glob-driven, eagerly-parsed-at-construction
// style and on the original Rust Tera::new/build_inheritance_chains.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/builtins"
	"github.com/corewald/tera/exec"
	"github.com/corewald/tera/internal/terrors"
	"github.com/corewald/tera/parser"
	"github.com/sirupsen/logrus"
)

// Tera is the template registry and render entry point. The zero value
// is not usable; construct with New or NewFromGlob.
type Tera struct {
	mu sync.RWMutex

	parsed map[string]*ast.ParsedTemplate
	linked map[string]*ast.Linked

	autoescapeExt []string
	escapeFn      func(string) string

	registry *builtins.Registry
	limits   exec.Limits

	logger *logrus.Entry
}

// Option configures a Tera instance at construction time (spec's
// ambient configuration layer).
type Option func(*Tera)

// WithLimits overrides the default resource limits (spec §5).
func WithLimits(l exec.Limits) Option {
	return func(t *Tera) { t.limits = l }
}

// WithAutoescapeExtensions overrides the default autoescape suffix
// list (".html", ".htm", ".xml").
func WithAutoescapeExtensions(exts []string) Option {
	return func(t *Tera) { t.autoescapeExt = exts }
}

// WithLogger attaches a logrus entry used for render/link diagnostics.
func WithLogger(logger *logrus.Entry) Option {
	return func(t *Tera) { t.logger = logger }
}

// New creates an empty registry.
func New(opts ...Option) *Tera {
	t := &Tera{
		parsed:        map[string]*ast.ParsedTemplate{},
		linked:        map[string]*ast.Linked{},
		autoescapeExt: []string{".html", ".htm", ".xml"},
		registry:      builtins.Default(),
		limits:        exec.DefaultLimits(),
		logger:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewFromGlob walks pattern (a doublestar glob, e.g. "templates/**/*")
// and parses every matching file, then links the whole set.
func NewFromGlob(pattern string, opts ...Option) (*Tera, error) {
	if !strings.Contains(pattern, "*") {
		return nil, fmt.Errorf("tera: NewFromGlob expects a glob, no '*' found in %q", pattern)
	}
	t := New(opts...)

	base := pattern[:strings.IndexByte(pattern, '*')]
	matches, err := globRecursive(pattern, base)
	if err != nil {
		return nil, fmt.Errorf("tera: invalid glob %q: %w", pattern, err)
	}

	var errs []string
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		name := strings.TrimPrefix(filepath.ToSlash(path), filepath.ToSlash(base))
		if err := t.addRawParsed(name, string(content)); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("tera: failed to load templates:\n* %s", strings.Join(errs, "\n* "))
	}
	if err := t.BuildInheritanceChains(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tera) addRawParsed(name, content string) error {
	p, err := parser.Parse(name, content)
	if err != nil {
		if pe, ok := err.(interface{ AsTerror(string) *terrors.Error }); ok {
			return pe.AsTerror(name)
		}
		return err
	}
	t.mu.Lock()
	t.parsed[name] = p
	t.mu.Unlock()
	return nil
}

// AddTemplate registers one template's raw source and relinks the
// whole set, erroring if the inheritance chain can no longer be built.
func (t *Tera) AddTemplate(name, content string) error {
	if err := t.addRawParsed(name, content); err != nil {
		return err
	}
	return t.BuildInheritanceChains()
}

// AddTemplates registers several templates atomically (spec's
// add_raw_templates): all parse before any relinking happens, and a
// parse failure leaves the registry untouched.
func (t *Tera) AddTemplates(templates map[string]string) error {
	parsedBatch := make(map[string]*ast.ParsedTemplate, len(templates))
	for name, content := range templates {
		p, err := parser.Parse(name, content)
		if err != nil {
			if pe, ok := err.(interface{ AsTerror(string) *terrors.Error }); ok {
				return pe.AsTerror(name)
			}
			return err
		}
		parsedBatch[name] = p
	}
	t.mu.Lock()
	for name, p := range parsedBatch {
		t.parsed[name] = p
	}
	t.mu.Unlock()
	return t.BuildInheritanceChains()
}

// AddTemplateFile reads path and registers it as name (or path itself
// when name is empty).
func (t *Tera) AddTemplateFile(path, name string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return terrors.Wrap(terrors.KindIO, "couldn't read template file "+path, err)
	}
	if name == "" {
		name = path
	}
	return t.AddTemplate(name, string(content))
}

// Extend merges other's templates and plugin registrations into t,
// without overwriting names t already has (spec's Tera::extend), then
// relinks.
func (t *Tera) Extend(other *Tera) error {
	other.mu.RLock()
	defer other.mu.RUnlock()
	t.mu.Lock()
	for name, p := range other.parsed {
		if _, exists := t.parsed[name]; !exists {
			t.parsed[name] = p
		}
	}
	for name, f := range other.registry.Filters {
		if _, exists := t.registry.Filters[name]; !exists {
			t.registry.Filters[name] = f
		}
	}
	for name, f := range other.registry.Functions {
		if _, exists := t.registry.Functions[name]; !exists {
			t.registry.Functions[name] = f
		}
	}
	for name, tt := range other.registry.Testers {
		if _, exists := t.registry.Testers[name]; !exists {
			t.registry.Testers[name] = tt
		}
	}
	t.mu.Unlock()
	return t.BuildInheritanceChains()
}

// FullReload re-links every currently-parsed template, useful after
// mutating t.parsed directly or picking up filesystem changes that
// were already re-read into AddTemplate calls.
func (t *Tera) FullReload() error {
	return t.BuildInheritanceChains()
}

// RegisterFilter/Function/Tester add or overwrite a plugin entry.
func (t *Tera) RegisterFilter(name string, f builtins.Filter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry.Filters[name] = f
}

func (t *Tera) RegisterFunction(name string, f builtins.Function) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry.Functions[name] = f
}

func (t *Tera) RegisterTester(name string, tt builtins.Tester) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry.Testers[name] = tt
}

// AutoescapeOn replaces the list of filename suffixes that trigger
// autoescaping; pass nil to disable autoescaping entirely.
func (t *Tera) AutoescapeOn(extensions []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoescapeExt = extensions
}

// SetEscapeFn overrides the escape function applied to unsafe output.
func (t *Tera) SetEscapeFn(fn func(string) string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.escapeFn = fn
}

// ResetEscapeFn restores the built-in HTML escaper.
func (t *Tera) ResetEscapeFn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.escapeFn = nil
}

// SetLogger replaces the logger used for render/link diagnostics.
func (t *Tera) SetLogger(logger *logrus.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger = logger
}

// Render renders template name against ctx.
func (t *Tera) Render(name string, ctx *exec.Context) (string, error) {
	r := exec.New(t, t.loggerEntry())
	return r.Render(name, ctx)
}

// OneOff parses input as a standalone template named "one_off" and
// renders it immediately against ctx (spec's Tera::one_off: no custom
// filters/testers beyond whatever this registry already has
// registered). It never mutates t, so it's safe to call concurrently
// with Render and other OneOff calls against the same registry.
func (t *Tera) OneOff(input string, ctx *exec.Context, autoescape bool) (string, error) {
	const oneOffName = "one_off"
	p, err := parser.Parse(oneOffName, input)
	if err != nil {
		if pe, ok := err.(interface{ AsTerror(string) *terrors.Error }); ok {
			return "", pe.AsTerror(oneOffName)
		}
		return "", err
	}

	linked := &ast.Linked{
		Name:              oneOffName,
		Parsed:            p,
		BlocksDefinitions: map[string][]ast.BlockDef{},
		Namespaces:        map[string]ast.NamespaceEntry{},
	}

	store := &oneOffStore{Tera: t, name: oneOffName, linked: linked, autoescape: autoescape}
	r := exec.New(store, t.loggerEntry())
	out, err := r.Render(oneOffName, ctx)
	if err != nil {
		return "", terrors.Wrap(terrors.KindIO, "one_off render failed", err).WithTemplate(oneOffName, "")
	}
	return out, nil
}

// oneOffStore overlays a single throwaway linked template and autoescape
// decision on top of a Tera's otherwise-shared template/plugin state.
type oneOffStore struct {
	*Tera
	name       string
	linked     *ast.Linked
	autoescape bool
}

func (s *oneOffStore) GetLinked(name string) (*ast.Linked, bool) {
	if name == s.name {
		return s.linked, true
	}
	return s.Tera.GetLinked(name)
}

func (s *oneOffStore) ShouldEscape(name string) bool {
	if name == s.name {
		return s.autoescape
	}
	return s.Tera.ShouldEscape(name)
}

func (t *Tera) loggerEntry() *logrus.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.logger
}

// GetLinked implements exec.TemplateStore.
func (t *Tera) GetLinked(name string) (*ast.Linked, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.linked[name]
	return l, ok
}

// ShouldEscape implements exec.TemplateStore: true when name ends in
// one of the configured autoescape suffixes.
func (t *Tera) ShouldEscape(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ext := range t.autoescapeExt {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// EscapeFn implements exec.TemplateStore.
func (t *Tera) EscapeFn() func(string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.escapeFn
}

func (t *Tera) Filters() map[string]builtins.Filter     { return t.registry.Filters }
func (t *Tera) Functions() map[string]builtins.Function { return t.registry.Functions }
func (t *Tera) Testers() map[string]builtins.Tester     { return t.registry.Testers }
func (t *Tera) Limits() exec.Limits                     { return t.limits }
