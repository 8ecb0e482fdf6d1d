package parser

import (
	"fmt"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/lexer"
)

// parseNodes parses a sequence of nodes until EOF or until the next tag
// name is a member of stop (in which case the tag is left unconsumed
// for the caller, which is responsible for validating/consuming it).
func (p *parser) parseNodes(stop map[string]bool) ([]ast.Node, error) {
	var nodes []ast.Node
	for {
		tok := p.ts.Peek()
		switch tok.Type {
		case lexer.TokenEOF:
			if stop != nil {
				return nil, &Error{Line: tok.Line, Column: tok.Column, Message: "unexpected end of template, unterminated tag"}
			}
			return nodes, nil
		case lexer.TokenText:
			p.ts.Next()
			nodes = append(nodes, &ast.Text{Value: tok.Value})
		case lexer.TokenCommentText:
			p.ts.Next()
			nodes = append(nodes, &ast.Comment{WS: ast.WS{Left: tok.TrimLeft, Right: tok.TrimRight}, Text: tok.Value})
		case lexer.TokenVariableStart:
			n, err := p.parseVariableBlock()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		case lexer.TokenBlockStart:
			name, peekErr := p.peekTagName()
			if peekErr != nil {
				return nil, peekErr
			}
			if stop != nil && stop[name] {
				return nodes, nil
			}
			n, err := p.parseTag()
			if err != nil {
				return nil, err
			}
			if n != nil {
				nodes = append(nodes, n)
			}
		default:
			return nil, &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("unexpected token %s", tok.Type)}
		}
	}
}

// peekTagName looks past an unconsumed BlockStart to find the tag
// keyword without advancing the stream.
func (p *parser) peekTagName() (string, error) {
	n := p.ts.PeekN(1)
	if n.Type != lexer.TokenName {
		return "", &Error{Line: n.Line, Column: n.Column, Message: "expected a tag name after '{%'"}
	}
	return n.Value, nil
}

func (p *parser) parseVariableBlock() (ast.Node, error) {
	start, err := p.expect(lexer.TokenVariableStart)
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.TokenVariableEnd)
	if err != nil {
		return nil, err
	}
	return &ast.VariableBlock{WS: ast.WS{Left: start.TrimLeft, Right: end.TrimRight}, Expr: expr}, nil
}

// parseTag dispatches on the tag keyword following an unconsumed
// BlockStart.
func (p *parser) parseTag() (ast.Node, error) {
	start, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	switch nameTok.Value {
	case "if":
		return p.parseIf(start)
	case "for":
		return p.parseFor(start)
	case "block":
		return p.parseBlock(start)
	case "macro":
		return p.parseMacro(start)
	case "filter":
		return p.parseFilterSection(start)
	case "set":
		return p.parseSet(start, false)
	case "set_global":
		return p.parseSet(start, true)
	case "include":
		return p.parseInclude(start)
	case "extends":
		return p.parseExtends(start)
	case "import":
		return p.parseImport(start)
	case "raw":
		return p.parseRaw(start)
	case "break":
		end, err := p.expect(lexer.TokenBlockEnd)
		if err != nil {
			return nil, err
		}
		return &ast.Break{WS: ast.WS{Left: start.TrimLeft, Right: end.TrimRight}}, nil
	case "continue":
		end, err := p.expect(lexer.TokenBlockEnd)
		if err != nil {
			return nil, err
		}
		return &ast.Continue{WS: ast.WS{Left: start.TrimLeft, Right: end.TrimRight}}, nil
	default:
		return nil, &Error{Line: nameTok.Line, Column: nameTok.Column, Message: fmt.Sprintf("unknown tag %q", nameTok.Value)}
	}
}

func (p *parser) parseRaw(start lexer.Token) (ast.Node, error) {
	openEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	var body string
	if p.peekType(lexer.TokenText) {
		body = p.ts.Next().Value
	}
	closeStart, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("endraw"); err != nil {
		return nil, err
	}
	closeEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Raw{
		WSOpen:  ast.WS{Left: start.TrimLeft, Right: openEnd.TrimRight},
		Value:   body,
		WSClose: ast.WS{Left: closeStart.TrimLeft, Right: closeEnd.TrimRight},
	}, nil
}

func (p *parser) expectKeyword(kw string) (lexer.Token, error) {
	tok := p.ts.Peek()
	if tok.Type != lexer.TokenName || tok.Value != kw {
		return tok, &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("expected %q, got %q", kw, tok.Value)}
	}
	return p.ts.Next(), nil
}

func (p *parser) parseIf(start lexer.Token) (ast.Node, error) {
	node := &ast.If{}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	headEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes(map[string]bool{"elif": true, "else": true, "endif": true})
	if err != nil {
		return nil, err
	}
	node.Branches = append(node.Branches, ast.IfBranch{WS: ast.WS{Left: start.TrimLeft, Right: headEnd.TrimRight}, Cond: cond, Body: body})

	for {
		tagStart, err := p.expect(lexer.TokenBlockStart)
		if err != nil {
			return nil, err
		}
		tok := p.ts.Peek()
		switch {
		case tok.Type == lexer.TokenName && tok.Value == "elif":
			p.ts.Next()
			cond, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			end, err := p.expect(lexer.TokenBlockEnd)
			if err != nil {
				return nil, err
			}
			body, err := p.parseNodes(map[string]bool{"elif": true, "else": true, "endif": true})
			if err != nil {
				return nil, err
			}
			node.Branches = append(node.Branches, ast.IfBranch{WS: ast.WS{Left: tagStart.TrimLeft, Right: end.TrimRight}, Cond: cond, Body: body})
		case tok.Type == lexer.TokenName && tok.Value == "else":
			p.ts.Next()
			end, err := p.expect(lexer.TokenBlockEnd)
			if err != nil {
				return nil, err
			}
			body, err := p.parseNodes(map[string]bool{"endif": true})
			if err != nil {
				return nil, err
			}
			node.HasElse = true
			node.ElseWS = ast.WS{Left: tagStart.TrimLeft, Right: end.TrimRight}
			node.Else = body
			endStart, err := p.expect(lexer.TokenBlockStart)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectKeyword("endif"); err != nil {
				return nil, err
			}
			endEnd, err := p.expect(lexer.TokenBlockEnd)
			if err != nil {
				return nil, err
			}
			node.EndWS = ast.WS{Left: endStart.TrimLeft, Right: endEnd.TrimRight}
			return node, nil
		case tok.Type == lexer.TokenName && tok.Value == "endif":
			p.ts.Next()
			end, err := p.expect(lexer.TokenBlockEnd)
			if err != nil {
				return nil, err
			}
			node.EndWS = ast.WS{Left: tagStart.TrimLeft, Right: end.TrimRight}
			return node, nil
		default:
			return nil, &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("expected elif/else/endif, got %q", tok.Value)}
		}
	}
}

func (p *parser) parseFor(start lexer.Token) (ast.Node, error) {
	first, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	node := &ast.ForLoop{}
	if p.peekType(lexer.TokenComma) {
		p.ts.Next()
		second, err := p.expect(lexer.TokenName)
		if err != nil {
			return nil, err
		}
		node.HasKey = true
		node.Key = first.Value
		node.Value = second.Value
	} else {
		node.Value = first.Value
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	container, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	node.Container = container
	headEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	node.WS = ast.WS{Left: start.TrimLeft, Right: headEnd.TrimRight}

	body, err := p.parseNodes(map[string]bool{"else": true, "endfor": true})
	if err != nil {
		return nil, err
	}
	node.Body = body

	tagStart, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	tok := p.ts.Peek()
	if tok.Type == lexer.TokenName && tok.Value == "else" {
		p.ts.Next()
		end, err := p.expect(lexer.TokenBlockEnd)
		if err != nil {
			return nil, err
		}
		node.HasEmpty = true
		node.EmptyWS = ast.WS{Left: tagStart.TrimLeft, Right: end.TrimRight}
		empty, err := p.parseNodes(map[string]bool{"endfor": true})
		if err != nil {
			return nil, err
		}
		node.Empty = empty
		tagStart, err = p.expect(lexer.TokenBlockStart)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKeyword("endfor"); err != nil {
		return nil, err
	}
	endEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	node.EndWS = ast.WS{Left: tagStart.TrimLeft, Right: endEnd.TrimRight}
	return node, nil
}

func (p *parser) parseBlock(start lexer.Token) (ast.Node, error) {
	nameTok, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	headEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes(map[string]bool{"endblock": true})
	if err != nil {
		return nil, err
	}
	tagStart, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("endblock"); err != nil {
		return nil, err
	}
	if p.peekType(lexer.TokenName) && p.ts.Peek().Value != "" {
		echo := p.ts.Peek()
		if echo.Value == nameTok.Value {
			p.ts.Next()
		} else if echo.Type == lexer.TokenName {
			return nil, &Error{Line: echo.Line, Column: echo.Column, Message: fmt.Sprintf("endblock name %q does not match block name %q", echo.Value, nameTok.Value)}
		}
	}
	endEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Block{
		WS:    ast.WS{Left: start.TrimLeft, Right: headEnd.TrimRight},
		Name:  nameTok.Value,
		Body:  body,
		EndWS: ast.WS{Left: tagStart.TrimLeft, Right: endEnd.TrimRight},
	}, nil
}

func (p *parser) parseMacro(start lexer.Token) (ast.Node, error) {
	nameTok, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var args []ast.MacroArg
	for !p.peekType(lexer.TokenRParen) {
		argTok, err := p.expect(lexer.TokenName)
		if err != nil {
			return nil, err
		}
		arg := ast.MacroArg{Name: argTok.Value}
		if p.peekType(lexer.TokenAssign) {
			p.ts.Next()
			def, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			arg.Default = def
		}
		args = append(args, arg)
		if p.peekType(lexer.TokenComma) {
			p.ts.Next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	headEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes(map[string]bool{"endmacro": true})
	if err != nil {
		return nil, err
	}
	tagStart, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("endmacro"); err != nil {
		return nil, err
	}
	endEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.MacroDefinition{
		WS:    ast.WS{Left: start.TrimLeft, Right: headEnd.TrimRight},
		Name:  nameTok.Value,
		Args:  args,
		Body:  body,
		EndWS: ast.WS{Left: tagStart.TrimLeft, Right: endEnd.TrimRight},
	}, nil
}

func (p *parser) parseFilterSection(start lexer.Token) (ast.Node, error) {
	nameTok, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	call := &ast.FnCall{Name: nameTok.Value, Args: map[string]*ast.Expr{}}
	if p.peekType(lexer.TokenLParen) {
		p.ts.Next()
		if err := p.parseKwargsInto(call); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
	}
	headEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes(map[string]bool{"endfilter": true})
	if err != nil {
		return nil, err
	}
	tagStart, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("endfilter"); err != nil {
		return nil, err
	}
	endEnd, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.FilterSection{
		WS:     ast.WS{Left: start.TrimLeft, Right: headEnd.TrimRight},
		Filter: call,
		Body:   body,
		EndWS:  ast.WS{Left: tagStart.TrimLeft, Right: endEnd.TrimRight},
	}, nil
}

func (p *parser) parseSet(start lexer.Token, global bool) (ast.Node, error) {
	nameTok, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenAssign); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Set{WS: ast.WS{Left: start.TrimLeft, Right: end.TrimRight}, Key: nameTok.Value, Expr: val, Global: global}, nil
}

func (p *parser) parseInclude(start lexer.Token) (ast.Node, error) {
	var candidates []string
	if p.peekType(lexer.TokenLBracket) {
		p.ts.Next()
		for !p.peekType(lexer.TokenRBracket) {
			s, err := p.expect(lexer.TokenString)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, s.Value)
			if p.peekType(lexer.TokenComma) {
				p.ts.Next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.TokenRBracket); err != nil {
			return nil, err
		}
	} else {
		s, err := p.expect(lexer.TokenString)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, s.Value)
	}
	ignoreMissing := false
	if p.peekIsKeyword("ignore") {
		p.ts.Next()
		if _, err := p.expectKeyword("missing"); err != nil {
			return nil, err
		}
		ignoreMissing = true
	}
	end, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Include{WS: ast.WS{Left: start.TrimLeft, Right: end.TrimRight}, Candidates: candidates, IgnoreMissing: ignoreMissing}, nil
}

func (p *parser) parseExtends(start lexer.Token) (ast.Node, error) {
	s, err := p.expect(lexer.TokenString)
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Extends{WS: ast.WS{Left: start.TrimLeft, Right: end.TrimRight}, Name: s.Value}, nil
}

func (p *parser) parseImport(start lexer.Token) (ast.Node, error) {
	s, err := p.expect(lexer.TokenString)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	ns, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.ImportMacro{WS: ast.WS{Left: start.TrimLeft, Right: end.TrimRight}, File: s.Value, Namespace: ns.Value}, nil
}
