package parser

import (
	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/token"
)

// declStart is the set of tokens that can legally begin a new top-level
// declaration or statement, used to resynchronize after a parse error.
var declStart = []token.Token{
	token.GLOBAL, token.FN, token.PROC,
	token.IF, token.WHILE, token.DO, token.FOR, token.RETURN, token.PASS,
	token.IDENT, token.SEMI,
}

func (p *parser) parseProgram() *ast.Program {
	var prog ast.Program
	for p.tok.Kind != token.EOF {
		decl := p.parseDecl()
		if decl != nil {
			prog.Decls = append(prog.Decls, decl)
		}
	}
	return &prog
}

func (p *parser) parseDecl() (decl ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			p.sync(declStart...)
			decl = nil
		}
	}()

	switch p.tok.Kind {
	case token.GLOBAL:
		return p.parseGlobal()
	case token.FN, token.PROC:
		return p.parseFunction()
	default:
		return p.parseStmt()
	}
}

func (p *parser) parseGlobal() *ast.Global {
	p.expect(token.GLOBAL)
	namePos, name := p.expectIdent()
	p.expect(token.SEMI)
	return &ast.Global{NamePos: namePos, Name: name}
}

func (p *parser) parseFunction() *ast.Function {
	pos := p.tok.Pos
	kind := "proc"
	if p.tok.Kind == token.FN {
		kind = "fn"
	}
	p.advance() // consume fn|proc

	_, name := p.expectIdent()

	p.expect(token.LPAREN)
	var args []string
	if p.tok.Kind != token.RPAREN {
		_, arg := p.expectIdent()
		args = append(args, arg)
		for p.tok.Kind == token.COMMA {
			p.advance()
			_, arg := p.expectIdent()
			args = append(args, arg)
		}
	}
	p.expect(token.RPAREN)

	var retType string
	if p.tok.Kind == token.ARROW {
		p.advance()
		_, retType = p.expectIdent()
	}

	body := p.parseBlock()
	return &ast.Function{
		FnPos:   pos,
		Name:    name,
		Kind:    kind,
		Args:    args,
		RetType: retType,
		Body:    body,
	}
}

func (p *parser) parseBlock() *ast.Block {
	pos := p.expect(token.LBRACE)
	var block ast.Block
	block.LBracePos = pos
	for p.tok.Kind != token.RBRACE && p.tok.Kind != token.EOF {
		if stmt := p.parseStmt(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	p.expect(token.RBRACE)
	return &block
}
