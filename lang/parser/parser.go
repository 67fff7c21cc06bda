// Package parser implements a recursive-descent parser that turns nox
// source text into the AST (package ast) the compiler lowers. It follows
// the teacher's shape (a parser struct wrapping a scanner, panic/recover
// error synchronization at statement boundaries, accumulated error list)
// adapted to this language's much smaller grammar (§4.G/§6).
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/scanner"
	"github.com/noxlang/nox/lang/token"
)

// maxErrors caps the number of errors recorded, so a badly malformed file
// doesn't produce an unbounded error list. Parsing still continues to EOF;
// errors past the cap are dropped.
const maxErrors = 50

// Error is a single parse error with its source position.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string {
	line, col := e.Pos.LineCol()
	return fmt.Sprintf("%d:%d: %s", line, col, e.Msg)
}

// ErrorList is a non-empty list of parse errors.
type ErrorList []*Error

func (el ErrorList) Error() string {
	var sb strings.Builder
	for i, e := range el {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Parse tokenizes and parses src, returning the program AST. The returned
// error, if non-nil, is an ErrorList.
func Parse(src []byte) (*ast.Program, error) {
	var p parser
	p.s = scanner.New(src, p.scanError)
	p.advance()

	prog := p.parseProgram()
	if len(p.errs) > 0 {
		return prog, p.errs
	}
	return prog, nil
}

type parser struct {
	s    *scanner.Scanner
	tok  scanner.Tok
	errs ErrorList
}

func (p *parser) scanError(pos token.Pos, msg string) {
	p.error(pos, msg)
}

func (p *parser) advance() {
	p.tok = p.s.Scan()
}

// errPanicMode is recovered at statement/declaration boundaries, mirroring
// the teacher's parser: a single malformed construct shouldn't abort the
// whole parse.
var errPanicMode = errors.New("panic mode")

func (p *parser) error(pos token.Pos, msg string) {
	if len(p.errs) >= maxErrors {
		return
	}
	p.errs = append(p.errs, &Error{Pos: pos, Msg: msg})
}

func (p *parser) errorExpected(pos token.Pos, want string) {
	p.error(pos, fmt.Sprintf("expected %s, found %s", want, p.tok.Kind))
}

// expect consumes the current token if it matches kind, else records an
// error and panics with errPanicMode.
func (p *parser) expect(kind token.Token) token.Pos {
	pos := p.tok.Pos
	if p.tok.Kind != kind {
		p.errorExpected(pos, kind.String())
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

// expectIdent is like expect(token.IDENT) but also returns the identifier
// text.
func (p *parser) expectIdent() (token.Pos, string) {
	pos, lit := p.tok.Pos, p.tok.Lit
	if p.tok.Kind != token.IDENT {
		p.errorExpected(pos, "identifier")
		panic(errPanicMode)
	}
	p.advance()
	return pos, lit
}

// sync skips tokens until one of the given kinds (or EOF) is the current
// token, used to resynchronize after a panic-mode error.
func (p *parser) sync(kinds ...token.Token) {
	for {
		if p.tok.Kind == token.EOF {
			return
		}
		for _, k := range kinds {
			if p.tok.Kind == k {
				return
			}
		}
		p.advance()
	}
}
