package parser

import (
	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/token"
)

// stmtSync is the token set parseStmt resynchronizes to after a panic-mode
// error inside a statement.
var stmtSync = []token.Token{token.SEMI, token.RBRACE, token.EOF}

func (p *parser) parseStmt() (stmt ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			p.sync(stmtSync...)
			if p.tok.Kind == token.SEMI {
				p.advance()
			}
			stmt = nil
		}
	}()

	switch p.tok.Kind {
	case token.IF:
		return p.parseIfElse()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.RETURN:
		return p.parseReturn()
	case token.PASS:
		pos := p.expect(token.PASS)
		p.expect(token.SEMI)
		return &ast.Pass{PassPos: pos}
	default:
		return p.parseSimpleStmt()
	}
}

// parseSimpleStmt handles the three statement forms that start with an
// expression: assign, assign_at, and a bare call.
func (p *parser) parseSimpleStmt() ast.Node {
	expr := p.parseUnary()

	if p.tok.Kind == token.EQ {
		p.advance()
		rhs := p.parseExpr()
		p.expect(token.SEMI)
		switch lhs := expr.(type) {
		case *ast.VarExpr:
			return &ast.Assign{NamePos: lhs.NamePos, Name: lhs.Name, Expr: rhs}
		case *ast.ListAt:
			return &ast.AssignAt{LBrackPos: lhs.LBrackPos, Obj: lhs.Obj, Idx: lhs.Idx, Expr: rhs}
		default:
			p.error(expr.Pos(), "invalid assignment target")
			return nil
		}
	}

	if call, ok := expr.(*ast.Call); ok {
		p.expect(token.SEMI)
		return call
	}

	p.errorExpected(expr.Pos(), "assignment or call")
	p.expect(token.SEMI)
	return nil
}

func (p *parser) parseIfElse() *ast.IfElse {
	pos := p.expect(token.IF)
	var arms []ast.IfArm

	cond := p.parseExpr()
	body := p.parseBlock()
	arms = append(arms, ast.IfArm{Cond: cond, Body: body})

	var elseBlock *ast.Block
	for p.tok.Kind == token.ELSE {
		p.advance()
		if p.tok.Kind == token.IF {
			p.advance()
			cond := p.parseExpr()
			body := p.parseBlock()
			arms = append(arms, ast.IfArm{Cond: cond, Body: body})
			continue
		}
		elseBlock = p.parseBlock()
		break
	}

	return &ast.IfElse{IfPos: pos, Arms: arms, Else: elseBlock}
}

func (p *parser) parseWhile() *ast.While {
	pos := p.expect(token.WHILE)
	cond := p.parseExpr()
	body := p.parseBlock()
	return &ast.While{WhilePos: pos, Cond: cond, Body: body}
}

func (p *parser) parseDoWhile() *ast.DoWhile {
	pos := p.expect(token.DO)
	body := p.parseBlock()
	p.expect(token.WHILE)
	cond := p.parseExpr()
	p.expect(token.SEMI)
	return &ast.DoWhile{DoPos: pos, Body: body, Cond: cond}
}

func (p *parser) parseFor() *ast.For {
	pos := p.expect(token.FOR)
	p.expect(token.LPAREN)

	var init ast.Node
	if p.tok.Kind != token.COMMA {
		init = p.parseAssignNoSemi()
	}
	p.expect(token.COMMA)

	cond := p.parseExpr()
	p.expect(token.COMMA)

	var step ast.Node
	if p.tok.Kind != token.RPAREN {
		step = p.parseAssignNoSemi()
	}
	p.expect(token.RPAREN)

	body := p.parseBlock()
	return &ast.For{ForPos: pos, Init: init, Cond: cond, Step: step, Body: body}
}

// parseAssignNoSemi parses a bare "name = expr" with no trailing semicolon,
// for use in a for-loop's init/step clauses.
func (p *parser) parseAssignNoSemi() ast.Node {
	namePos, name := p.expectIdent()
	p.expect(token.EQ)
	rhs := p.parseExpr()
	return &ast.Assign{NamePos: namePos, Name: name, Expr: rhs}
}

func (p *parser) parseReturn() *ast.Return {
	pos := p.expect(token.RETURN)
	var expr ast.Node
	if p.tok.Kind != token.SEMI {
		expr = p.parseExpr()
	}
	p.expect(token.SEMI)
	return &ast.Return{ReturnPos: pos, Expr: expr}
}
