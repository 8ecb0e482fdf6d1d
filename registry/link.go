package registry

import (
	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/internal/terrors"
)

// BuildInheritanceChains relinks every currently-parsed template: it
// resolves each `extends` chain (detecting missing parents and
// circular extends), builds each block's ancestor-ordered
// BlocksDefinitions list, and resolves each template's macro-namespace
// table from its own and its ancestors' `import` statements. Grounded
// on the original Tera::build_inheritance_chains algorithm (spec §3).
func (t *Tera) BuildInheritanceChains() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	linked := make(map[string]*ast.Linked, len(t.parsed))
	for name, p := range t.parsed {
		l := &ast.Linked{
			Name:              name,
			Parsed:            p,
			BlocksDefinitions: map[string][]ast.BlockDef{},
			Namespaces:        map[string]ast.NamespaceEntry{},
		}
		if p.Extends != nil {
			l.ParentName = p.Extends
			l.FromExtend = true
		}
		linked[name] = l
	}

	for name, l := range linked {
		if l.ParentName == nil {
			continue
		}
		parents, err := buildParentChain(t.parsed, name, *l.ParentName)
		if err != nil {
			return err
		}
		l.Parents = parents
	}

	for name, l := range linked {
		for blockName, block := range l.Parsed.Blocks {
			defs := []ast.BlockDef{{Owner: name, Block: block}}
			for _, pname := range l.Parents {
				pt, ok := t.parsed[pname]
				if !ok {
					return terrors.Newf(terrors.KindTemplateNotFound, "template %q inherits from %q, which doesn't exist or isn't loaded", name, pname)
				}
				if pb, ok := pt.Blocks[blockName]; ok {
					defs = append(defs, ast.BlockDef{Owner: pname, Block: pb})
				}
			}
			l.BlocksDefinitions[blockName] = defs
		}

		ns, err := t.resolveNamespaces(l)
		if err != nil {
			return err
		}
		l.Namespaces = ns
	}

	t.linked = linked
	if t.logger != nil {
		t.logger.WithField("templates", len(linked)).Debug("templates linked")
	}
	return nil
}

// buildParentChain walks template start's extends chain, returning
// ancestors ordered from closest to root, erroring on a missing parent
// or a cycle.
func buildParentChain(parsedAll map[string]*ast.ParsedTemplate, start, parentName string) ([]string, error) {
	var parents []string
	seen := map[string]bool{start: true}
	current := parentName
	for {
		if seen[current] {
			chain := append(append([]string(nil), parents...), current)
			return nil, terrors.Newf(terrors.KindCircularExtend, "circular extend detected for template %q, inheritance chain: %v", start, chain)
		}
		pt, ok := parsedAll[current]
		if !ok {
			return nil, terrors.Newf(terrors.KindTemplateNotFound, "template %q is inheriting from %q, which doesn't exist or isn't loaded", start, current)
		}
		parents = append(parents, current)
		seen[current] = true
		if pt.Extends == nil {
			return parents, nil
		}
		current = *pt.Extends
	}
}

// resolveNamespaces builds l's macro-namespace table: ancestors'
// imports apply first (root-most first), then l's own imports
// override any namespace name they reuse (spec §4.5).
func (t *Tera) resolveNamespaces(l *ast.Linked) (map[string]ast.NamespaceEntry, error) {
	full := map[string]ast.NamespaceEntry{}
	for i := len(l.Parents) - 1; i >= 0; i-- {
		pt, ok := t.parsed[l.Parents[i]]
		if !ok {
			continue
		}
		own, err := t.ownImports(pt)
		if err != nil {
			return nil, err
		}
		for k, v := range own {
			full[k] = v
		}
	}
	own, err := t.ownImports(l.Parsed)
	if err != nil {
		return nil, err
	}
	for k, v := range own {
		full[k] = v
	}
	return full, nil
}

func (t *Tera) ownImports(pt *ast.ParsedTemplate) (map[string]ast.NamespaceEntry, error) {
	out := map[string]ast.NamespaceEntry{}
	for _, imp := range pt.Imports {
		owner, ok := t.parsed[imp.File]
		if !ok {
			return nil, terrors.Newf(terrors.KindTemplateNotFound, "template %q imports %q, which doesn't exist or isn't loaded", pt.Name, imp.File)
		}
		macros := make(map[string]*ast.MacroDefinition, len(owner.Macros))
		for mn, md := range owner.Macros {
			macros[mn] = md
		}
		out[imp.Namespace] = ast.NamespaceEntry{Owner: imp.File, Macros: macros}
	}
	return out, nil
}
