// Package parser builds an *ast.ParsedTemplate from template source,
// implementing the grammar, operator precedence, and whitespace-control
// pass of spec §4.1.
package parser

import (
	"fmt"
	"strings"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/internal/terrors"
	"github.com/corewald/tera/lexer"
)

// Error is a parse-time failure carrying source position (spec §4.1).
type Error struct {
	Line, Column int
	Message      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// AsTerror converts a parser error to the shared terrors.Error shape.
func (e *Error) AsTerror(template string) *terrors.Error {
	return (&terrors.Error{Kind: terrors.KindParse, Message: e.Message}).WithTemplate(template, "").WithPosition(e.Line, e.Column)
}

type parser struct {
	ts   *lexer.Stream
	name string
}

// Parse lexes and parses source into a template AST, then applies the
// whitespace-control pass.
func Parse(name, source string) (*ast.ParsedTemplate, error) {
	toks, err := lexer.New().Tokenize(source)
	if err != nil {
		if le, ok := err.(*lexer.Error); ok {
			return nil, &Error{Line: le.Line, Column: le.Column, Message: le.Message}
		}
		return nil, &Error{Message: err.Error()}
	}
	p := &parser{ts: lexer.NewStream(toks), name: name}
	nodes, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if !p.ts.Eof() {
		tok := p.ts.Peek()
		return nil, &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("unexpected token %s", tok.Type)}
	}

	nodes = applyWhitespace(nodes)

	tmpl := &ast.ParsedTemplate{
		Name:   name,
		Nodes:  nodes,
		Macros: map[string]*ast.MacroDefinition{},
		Blocks: map[string]*ast.Block{},
	}
	if err := collectMetadata(tmpl, nodes, true); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// collectMetadata walks the node list, recursing into block, if, for and
// filter-section bodies (not macro bodies), gathering blocks/macros/imports
// and enforcing the uniqueness and extends-must-be-first invariants; an
// extends below the top level is rejected (spec §3, §4.1).
func collectMetadata(tmpl *ast.ParsedTemplate, nodes []ast.Node, top bool) error {
	for i, n := range nodes {
		switch v := n.(type) {
		case *ast.Extends:
			if !top {
				return &Error{Message: "extends may only appear at the top level of a template, not inside a block or control-flow body"}
			}
			for _, prior := range nodes[:i] {
				if _, isComment := prior.(*ast.Comment); !isComment {
					if txt, isText := prior.(*ast.Text); isText && strings.TrimSpace(txt.Value) == "" {
						continue
					}
					return &Error{Message: "{% extends %} must be the first non-comment, non-whitespace node in the template"}
				}
			}
			name := v.Name
			tmpl.Extends = &name
		case *ast.Block:
			if _, dup := tmpl.Blocks[v.Name]; dup {
				return &Error{Message: fmt.Sprintf("duplicate block name %q", v.Name)}
			}
			tmpl.Blocks[v.Name] = v
			if err := collectMetadata(tmpl, v.Body, false); err != nil {
				return err
			}
		case *ast.MacroDefinition:
			if _, dup := tmpl.Macros[v.Name]; dup {
				return &Error{Message: fmt.Sprintf("duplicate macro name %q", v.Name)}
			}
			tmpl.Macros[v.Name] = v
		case *ast.ImportMacro:
			tmpl.Imports = append(tmpl.Imports, *v)
		case *ast.If:
			for _, br := range v.Branches {
				if err := collectMetadata(tmpl, br.Body, false); err != nil {
					return err
				}
			}
			if err := collectMetadata(tmpl, v.Else, false); err != nil {
				return err
			}
		case *ast.ForLoop:
			if err := collectMetadata(tmpl, v.Body, false); err != nil {
				return err
			}
			if err := collectMetadata(tmpl, v.Empty, false); err != nil {
				return err
			}
		case *ast.FilterSection:
			if err := collectMetadata(tmpl, v.Body, false); err != nil {
				return err
			}
		}
	}
	return nil
}
