package compiler_test

import (
	"testing"

	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLit(n int64) *ast.IntLit { return &ast.IntLit{Value: n} }

func TestLower_AssignIntroducesLocal(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Node{
		&ast.Assign{Name: "x", Expr: intLit(42)},
	}}
	source, err := compiler.Lower(prog)
	require.NoError(t, err)

	p, err := compiler.Build(source)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, p.Functions["main"].Locals)
}

func TestLower_GlobalAssignUsesGStore(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Node{
		&ast.Global{Name: "total"},
		&ast.Assign{Name: "total", Expr: intLit(1)},
	}}
	source, err := compiler.Lower(prog)
	require.NoError(t, err)

	var sawGStore bool
	for _, ins := range source {
		if ins.Op == compiler.GSTORE && ins.NameArg == "total" {
			sawGStore = true
		}
	}
	assert.True(t, sawGStore, "assignment to a declared global must lower to GSTORE, not STORE")
}

func TestLower_ProcCannotReturnValue(t *testing.T) {
	fn := &ast.Function{
		Name: "p",
		Kind: "proc",
		Body: &ast.Block{Stmts: []ast.Node{
			&ast.Return{Expr: intLit(1)},
		}},
	}
	prog := &ast.Program{Decls: []ast.Node{fn}}
	_, err := compiler.Lower(prog)
	assert.Error(t, err)
}

func TestLower_FnMustReturnOnEveryPath(t *testing.T) {
	fn := &ast.Function{
		Name: "f",
		Kind: "fn",
		Body: &ast.Block{Stmts: []ast.Node{
			&ast.Assign{Name: "x", Expr: intLit(1)},
		}},
	}
	prog := &ast.Program{Decls: []ast.Node{fn}}
	_, err := compiler.Lower(prog)
	assert.Error(t, err)
}

func TestLower_FnReturningOnEveryIfElseArmNeedsNoTrailingReturn(t *testing.T) {
	fn := &ast.Function{
		Name: "fact",
		Kind: "fn",
		Args: []string{"n"},
		Body: &ast.Block{Stmts: []ast.Node{
			&ast.IfElse{
				Arms: []ast.IfArm{
					{Cond: intLit(1), Body: &ast.Block{Stmts: []ast.Node{&ast.Return{Expr: intLit(1)}}}},
				},
				Else: &ast.Block{Stmts: []ast.Node{&ast.Return{Expr: intLit(2)}}},
			},
		}},
	}
	prog := &ast.Program{Decls: []ast.Node{fn}}
	_, err := compiler.Lower(prog)
	assert.NoError(t, err, "an if/else that returns on every arm must count as returning on every path")
}

func TestLower_FnMustReturnOnEveryPathEvenWithIfElseMissingAnElse(t *testing.T) {
	fn := &ast.Function{
		Name: "f",
		Kind: "fn",
		Body: &ast.Block{Stmts: []ast.Node{
			&ast.IfElse{
				Arms: []ast.IfArm{
					{Cond: intLit(1), Body: &ast.Block{Stmts: []ast.Node{&ast.Return{Expr: intLit(1)}}}},
				},
			},
		}},
	}
	prog := &ast.Program{Decls: []ast.Node{fn}}
	_, err := compiler.Lower(prog)
	assert.Error(t, err, "an if with no else leaves a path that falls through")
}

func TestLower_CallDispatchesSyscallByName(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Node{
		&ast.Call{Name: "print", Args: []ast.Node{intLit(7)}},
	}}
	source, err := compiler.Lower(prog)
	require.NoError(t, err)

	var sawSyscall bool
	for _, ins := range source {
		if ins.Op == compiler.SYSCALL && ins.SysNum == 100 {
			sawSyscall = true
		}
	}
	assert.True(t, sawSyscall, `call to "print" must lower to SYSCALL 100, not CALL`)
}

func TestLower_StringLiteralDesugarsToListOps(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Node{
		&ast.Assign{Name: "s", Expr: &ast.StrLit{Value: "hi"}},
	}}
	source, err := compiler.Lower(prog)
	require.NoError(t, err)

	var listAllocs, pushes int
	for _, ins := range source {
		if ins.Op == compiler.SYSCALL {
			switch ins.SysNum {
			case 20:
				listAllocs++
			case 23:
				pushes++
			}
		}
	}
	assert.Equal(t, 1, listAllocs)
	assert.Equal(t, len("hi"), pushes)
}

func TestLower_IfElseChain(t *testing.T) {
	prog := &ast.Program{Decls: []ast.Node{
		&ast.IfElse{
			Arms: []ast.IfArm{
				{Cond: intLit(1), Body: &ast.Block{Stmts: []ast.Node{&ast.Assign{Name: "x", Expr: intLit(1)}}}},
			},
			Else: &ast.Block{Stmts: []ast.Node{&ast.Assign{Name: "x", Expr: intLit(2)}}},
		},
	}}
	source, err := compiler.Lower(prog)
	require.NoError(t, err)

	_, err = compiler.Build(source)
	require.NoError(t, err, "a well-formed if/else chain must resolve cleanly")
}
