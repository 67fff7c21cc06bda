package scanner_test

import (
	"testing"

	"github.com/noxlang/nox/lang/scanner"
	"github.com/noxlang/nox/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]scanner.Tok, []string) {
	t.Helper()
	var errs []string
	s := scanner.New([]byte(src), func(pos token.Pos, msg string) {
		errs = append(errs, msg)
	})
	var toks []scanner.Tok
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, errs
}

func kinds(toks []scanner.Tok) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScan_KeywordsAndIdents(t *testing.T) {
	toks, errs := scanAll(t, "fn proc global counter")
	require.Empty(t, errs)
	assert.Equal(t, []token.Token{token.FN, token.PROC, token.GLOBAL, token.IDENT, token.EOF}, kinds(toks))
	assert.Equal(t, "counter", toks[3].Lit)
}

func TestScan_IntLiteral(t *testing.T) {
	toks, errs := scanAll(t, "42")
	require.Empty(t, errs)
	assert.Equal(t, token.INT_LIT, toks[0].Kind)
	assert.EqualValues(t, 42, toks[0].Int)
}

func TestScan_StringLiteralWithEscapes(t *testing.T) {
	toks, errs := scanAll(t, `"a\nb\"c"`)
	require.Empty(t, errs)
	assert.Equal(t, token.STR_LIT, toks[0].Kind)
	assert.Equal(t, "a\nb\"c", toks[0].Str)
}

func TestScan_CharLiteral(t *testing.T) {
	toks, errs := scanAll(t, `'a'`)
	require.Empty(t, errs)
	assert.Equal(t, token.CHAR_LIT, toks[0].Kind)
	assert.EqualValues(t, 'a', toks[0].Int)
}

func TestScan_OperatorsAndArrow(t *testing.T) {
	toks, errs := scanAll(t, "<= >= == != -> and or")
	require.Empty(t, errs)
	assert.Equal(t, []token.Token{
		token.LE, token.GE, token.EQU, token.NE, token.ARROW, token.AND, token.OR, token.EOF,
	}, kinds(toks))
}

func TestScan_SkipsLineAndBlockComments(t *testing.T) {
	toks, errs := scanAll(t, "1 // trailing\n/* block\ncomment */ 2")
	require.Empty(t, errs)
	assert.Equal(t, []token.Token{token.INT_LIT, token.INT_LIT, token.EOF}, kinds(toks))
	assert.EqualValues(t, 1, toks[0].Int)
	assert.EqualValues(t, 2, toks[1].Int)
}

func TestScan_UnterminatedStringIsAnError(t *testing.T) {
	_, errs := scanAll(t, `"abc`)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "not terminated")
}

func TestScan_IllegalCharacter(t *testing.T) {
	_, errs := scanAll(t, "@")
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "illegal character")
}
