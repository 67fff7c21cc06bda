package parser

import (
	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/token"
)

// parseExpr parses the full expression grammar (§6): or_expr down to
// primary, in precedence order from lowest to highest: or, and, a single
// optional comparison, + -, * / %, unary/postfix, primary.
func (p *parser) parseExpr() ast.Node {
	return p.parseOr()
}

func (p *parser) parseOr() ast.Node {
	x := p.parseAnd()
	for p.tok.Kind == token.OR {
		op, pos := p.tok.Kind, p.tok.Pos
		p.advance()
		y := p.parseAnd()
		x = &ast.BinOp{Op: op, OpPos: pos, X: x, Y: y}
	}
	return x
}

func (p *parser) parseAnd() ast.Node {
	x := p.parseCmp()
	for p.tok.Kind == token.AND {
		op, pos := p.tok.Kind, p.tok.Pos
		p.advance()
		y := p.parseCmp()
		x = &ast.BinOp{Op: op, OpPos: pos, X: x, Y: y}
	}
	return x
}

var cmpOps = map[token.Token]bool{
	token.LT: true, token.LE: true, token.GT: true, token.GE: true,
	token.EQU: true, token.NE: true,
}

// parseCmp parses a single, non-chaining comparison per the grammar
// (`cmp_expr = add_expr [ (...) add_expr ]`): "a < b < c" is a syntax
// error, not a chained comparison.
func (p *parser) parseCmp() ast.Node {
	x := p.parseAdd()
	if cmpOps[p.tok.Kind] {
		op, pos := p.tok.Kind, p.tok.Pos
		p.advance()
		y := p.parseAdd()
		x = &ast.BinOp{Op: op, OpPos: pos, X: x, Y: y}
	}
	return x
}

func (p *parser) parseAdd() ast.Node {
	x := p.parseMul()
	for p.tok.Kind == token.ADD || p.tok.Kind == token.SUB {
		op, pos := p.tok.Kind, p.tok.Pos
		p.advance()
		y := p.parseMul()
		x = &ast.BinOp{Op: op, OpPos: pos, X: x, Y: y}
	}
	return x
}

func (p *parser) parseMul() ast.Node {
	x := p.parseUnary()
	for p.tok.Kind == token.MUL || p.tok.Kind == token.DIV || p.tok.Kind == token.MOD {
		op, pos := p.tok.Kind, p.tok.Pos
		p.advance()
		y := p.parseUnary()
		x = &ast.BinOp{Op: op, OpPos: pos, X: x, Y: y}
	}
	return x
}

// parseUnary handles a list literal, or a primary followed by any number
// of "[idx]" postfix index operations.
func (p *parser) parseUnary() ast.Node {
	if p.tok.Kind == token.LBRACK {
		return p.parseListLit()
	}

	x := p.parsePrimary()
	for p.tok.Kind == token.LBRACK {
		pos := p.expect(token.LBRACK)
		idx := p.parseExpr()
		p.expect(token.RBRACK)
		x = &ast.ListAt{LBrackPos: pos, Obj: x, Idx: idx}
	}
	return x
}

func (p *parser) parseListLit() *ast.ListLit {
	pos := p.expect(token.LBRACK)
	var elems []ast.Node
	if p.tok.Kind != token.RBRACK {
		elems = append(elems, p.parseExpr())
		for p.tok.Kind == token.COMMA {
			p.advance()
			elems = append(elems, p.parseExpr())
		}
	}
	p.expect(token.RBRACK)
	return &ast.ListLit{LBrackPos: pos, Elems: elems}
}

func (p *parser) parsePrimary() ast.Node {
	switch p.tok.Kind {
	case token.IDENT:
		pos, name := p.tok.Pos, p.tok.Lit
		p.advance()
		if p.tok.Kind == token.LPAREN {
			return p.parseCallArgs(pos, name)
		}
		return &ast.VarExpr{NamePos: pos, Name: name}
	case token.INT_LIT:
		pos, v := p.tok.Pos, p.tok.Int
		p.advance()
		return &ast.IntLit{LitPos: pos, Value: v}
	case token.CHAR_LIT:
		pos, v := p.tok.Pos, p.tok.Int
		p.advance()
		return &ast.CharLit{LitPos: pos, Value: v}
	case token.STR_LIT:
		pos, v := p.tok.Pos, p.tok.Str
		p.advance()
		return &ast.StrLit{LitPos: pos, Value: v}
	case token.LPAREN:
		p.advance()
		x := p.parseExpr()
		p.expect(token.RPAREN)
		return x
	default:
		p.errorExpected(p.tok.Pos, "expression")
		panic(errPanicMode)
	}
}

func (p *parser) parseCallArgs(pos token.Pos, name string) *ast.Call {
	p.expect(token.LPAREN)
	var args []ast.Node
	if p.tok.Kind != token.RPAREN {
		args = append(args, p.parseExpr())
		for p.tok.Kind == token.COMMA {
			p.advance()
			args = append(args, p.parseExpr())
		}
	}
	p.expect(token.RPAREN)
	return &ast.Call{NamePos: pos, Name: name, Args: args}
}
