package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corewald/tera/ast"
	"github.com/corewald/tera/lexer"
)

// parseExpr is the entry point for expression parsing, implementing the
// precedence table of spec §4.1 (lowest to highest: or, and, comparison/
// is/in, +-, */%~, filters, atoms), with unary `not` binding tighter
// than and/or but looser than comparisons.
func (p *parser) parseExpr() (*ast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (*ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekIsKeyword("or") {
		p.ts.Next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicExpr(left, ast.OpOr, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (*ast.Expr, error) {
	left, err := p.parseNotOperand()
	if err != nil {
		return nil, err
	}
	for p.peekIsKeyword("and") {
		p.ts.Next()
		right, err := p.parseNotOperand()
		if err != nil {
			return nil, err
		}
		left = logicExpr(left, ast.OpAnd, right)
	}
	return left, nil
}

func (p *parser) parseNotOperand() (*ast.Expr, error) {
	negated := false
	for p.peekIsKeyword("not") {
		p.ts.Next()
		negated = !negated
	}
	e, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if negated {
		e.Negated = !e.Negated
	}
	return e, nil
}

func (p *parser) parseComparison() (*ast.Expr, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := p.ts.Peek()
	switch {
	case tok.Type == lexer.TokenName && tok.Value == "in":
		p.ts.Next()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprIn, LHS: lhs, RHS: rhs}}, nil
	case tok.Type == lexer.TokenName && tok.Value == "not" && p.ts.PeekN(1).Type == lexer.TokenName && p.ts.PeekN(1).Value == "in":
		p.ts.Next()
		p.ts.Next()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprIn, LHS: lhs, RHS: rhs, InNegated: true}}, nil
	case tok.Type == lexer.TokenName && tok.Value == "is":
		p.ts.Next()
		testNegated := false
		if p.peekIsKeyword("not") {
			p.ts.Next()
			testNegated = true
		}
		nameTok, err := p.expect(lexer.TokenName)
		if err != nil {
			return nil, err
		}
		var args []*ast.Expr
		if p.peekType(lexer.TokenLParen) {
			p.ts.Next()
			args, err = p.parsePositionalArgs()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokenRParen); err != nil {
				return nil, err
			}
		}
		return &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprTest, TestIdent: lhs, TestName: nameTok.Value, TestNegated: testNegated, TestArgs: args}}, nil
	case tok.Type == lexer.TokenOp && isComparisonOp(tok.Value):
		p.ts.Next()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprLogic, LHS: lhs, RHS: rhs, LogicOp: comparisonLogicOp(tok.Value)}}, nil
	}
	return lhs, nil
}

func isComparisonOp(v string) bool {
	switch v {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func comparisonLogicOp(v string) ast.LogicOp {
	switch v {
	case "==":
		return ast.OpEq
	case "!=":
		return ast.OpNeq
	case "<":
		return ast.OpLt
	case "<=":
		return ast.OpLte
	case ">":
		return ast.OpGt
	case ">=":
		return ast.OpGte
	}
	return ast.OpEq
}

func (p *parser) parseAdditive() (*ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peekType(lexer.TokenOp) && (p.ts.Peek().Value == "+" || p.ts.Peek().Value == "-") {
		op := p.ts.Next().Value
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		mop := ast.OpAdd
		if op == "-" {
			mop = ast.OpSub
		}
		left = &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprMath, LHS: left, RHS: right, MathOp: mop}}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*ast.Expr, error) {
	left, err := p.parseFilterExpr()
	if err != nil {
		return nil, err
	}
	var concat []*ast.Expr
	for p.peekType(lexer.TokenOp) && isMulOrConcat(p.ts.Peek().Value) {
		op := p.ts.Next().Value
		right, err := p.parseFilterExpr()
		if err != nil {
			return nil, err
		}
		if op == "~" {
			if concat == nil {
				concat = []*ast.Expr{left}
			}
			concat = append(concat, right)
			continue
		}
		if concat != nil {
			left = &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprStringConcat, ConcatValues: concat}}
			concat = nil
		}
		left = &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprMath, LHS: left, RHS: right, MathOp: mulOp(op)}}
	}
	if concat != nil {
		left = &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprStringConcat, ConcatValues: concat}}
	}
	return left, nil
}

func isMulOrConcat(v string) bool {
	switch v {
	case "*", "/", "%", "~":
		return true
	}
	return false
}

func mulOp(v string) ast.MathOp {
	switch v {
	case "*":
		return ast.OpMul
	case "/":
		return ast.OpDiv
	case "%":
		return ast.OpMod
	}
	return ast.OpMul
}

func (p *parser) parseFilterExpr() (*ast.Expr, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peekType(lexer.TokenPipe) {
		p.ts.Next()
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
		atom.Filters = append(atom.Filters, call)
	}
	return atom, nil
}

func (p *parser) parseAtom() (*ast.Expr, error) {
	tok := p.ts.Peek()
	switch tok.Type {
	case lexer.TokenString:
		p.ts.Next()
		return ast.Str(tok.Value), nil
	case lexer.TokenInt:
		p.ts.Next()
		i, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, &Error{Line: tok.Line, Column: tok.Column, Message: "malformed integer literal"}
		}
		return ast.IntLit(i), nil
	case lexer.TokenFloat:
		p.ts.Next()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, &Error{Line: tok.Line, Column: tok.Column, Message: "malformed float literal"}
		}
		return ast.FloatLit(f), nil
	case lexer.TokenLBracket:
		return p.parseArrayLiteral()
	case lexer.TokenLParen:
		p.ts.Next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.TokenName:
		return p.parseIdentOrCall()
	}
	return nil, &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("unexpected token %s in expression", tok.Type)}
}

func (p *parser) parseArrayLiteral() (*ast.Expr, error) {
	if _, err := p.expect(lexer.TokenLBracket); err != nil {
		return nil, err
	}
	var items []*ast.Expr
	for !p.peekType(lexer.TokenRBracket) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
		if p.peekType(lexer.TokenComma) {
			p.ts.Next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.TokenRBracket); err != nil {
		return nil, err
	}
	return &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprArray, Items: items}}, nil
}

func (p *parser) parseIdentOrCall() (*ast.Expr, error) {
	nameTok, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(nameTok.Value)
	if lower == "true" || lower == "false" {
		return ast.BoolLit(lower == "true"), nil
	}

	if p.peekType(lexer.TokenOp) && p.ts.Peek().Value == "::" {
		p.ts.Next()
		macroTok, err := p.expect(lexer.TokenName)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenLParen); err != nil {
			return nil, err
		}
		call := &ast.FnCall{Name: macroTok.Value, Args: map[string]*ast.Expr{}}
		if err := p.parseKwargsInto(call); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return &ast.Expr{Val: ast.ExprVal{
			Kind: ast.ExprMacroCall, MacroNamespace: nameTok.Value, MacroName: macroTok.Value,
			MacroArgNames: call.ArgNames, MacroArgs: call.Args,
		}}, nil
	}

	var path strings.Builder
	path.WriteString(nameTok.Value)
	for {
		if p.peekType(lexer.TokenDot) {
			p.ts.Next()
			seg, err := p.expect(lexer.TokenName)
			if err != nil {
				return nil, err
			}
			path.WriteByte('.')
			path.WriteString(seg.Value)
			continue
		}
		if p.peekType(lexer.TokenLBracket) {
			p.ts.Next()
			switch p.ts.Peek().Type {
			case lexer.TokenString:
				s := p.ts.Next()
				path.WriteString("[\"" + s.Value + "\"]")
			case lexer.TokenInt:
				n := p.ts.Next()
				path.WriteString("[" + n.Value + "]")
			case lexer.TokenName:
				id := p.ts.Next()
				path.WriteString("[" + id.Value + "]")
			default:
				tok := p.ts.Peek()
				return nil, &Error{Line: tok.Line, Column: tok.Column, Message: "expected string, integer, or identifier inside brackets"}
			}
			if _, err := p.expect(lexer.TokenRBracket); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if p.peekType(lexer.TokenLParen) && !strings.ContainsAny(path.String(), ".[") {
		p.ts.Next()
		call := &ast.FnCall{Name: path.String(), Args: map[string]*ast.Expr{}}
		if err := p.parseKwargsInto(call); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprFunctionCall, FnName: call.Name, FnArgNames: call.ArgNames, FnArgs: call.Args}}, nil
	}

	return ast.Ident(path.String()), nil
}

// parseKwargsInto parses a comma-separated `name=expr` list (the
// parenthesized portion has already had its opening paren consumed) up
// to, but not including, the closing paren.
func (p *parser) parseKwargsInto(call *ast.FnCall) error {
	for !p.peekType(lexer.TokenRParen) {
		nameTok, err := p.expect(lexer.TokenName)
		if err != nil {
			return err
		}
		if _, err := p.expect(lexer.TokenAssign); err != nil {
			return err
		}
		val, err := p.parseExpr()
		if err != nil {
			return err
		}
		call.ArgNames = append(call.ArgNames, nameTok.Value)
		call.Args[nameTok.Value] = val
		if p.peekType(lexer.TokenComma) {
			p.ts.Next()
			continue
		}
		break
	}
	return nil
}

func (p *parser) parsePositionalArgs() ([]*ast.Expr, error) {
	var args []*ast.Expr
	for !p.peekType(lexer.TokenRParen) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.peekType(lexer.TokenComma) {
			p.ts.Next()
			continue
		}
		break
	}
	return args, nil
}

func logicExpr(l *ast.Expr, op ast.LogicOp, r *ast.Expr) *ast.Expr {
	return &ast.Expr{Val: ast.ExprVal{Kind: ast.ExprLogic, LHS: l, RHS: r, LogicOp: op}}
}

func (p *parser) peekIsKeyword(kw string) bool {
	t := p.ts.Peek()
	return t.Type == lexer.TokenName && t.Value == kw
}

func (p *parser) peekType(tt lexer.TokenType) bool {
	return p.ts.Peek().Type == tt
}

func (p *parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	tok := p.ts.Peek()
	if tok.Type != tt {
		return tok, &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("expected %s, got %s", tt, tok.Type)}
	}
	return p.ts.Next(), nil
}
