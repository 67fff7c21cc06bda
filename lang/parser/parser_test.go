package parser_test

import (
	"testing"

	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/parser"
	"github.com/noxlang/nox/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_GlobalAndAssign(t *testing.T) {
	prog, err := parser.Parse([]byte(`global c; c = 0;`))
	require.NoError(t, err)
	require.Len(t, prog.Decls, 2)
	g, ok := prog.Decls[0].(*ast.Global)
	require.True(t, ok)
	assert.Equal(t, "c", g.Name)
	a, ok := prog.Decls[1].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "c", a.Name)
}

func TestParse_FunctionWithReturnType(t *testing.T) {
	prog, err := parser.Parse([]byte(`
fn fact(n) -> int {
    if n <= 1 {
        return 1;
    } else {
        return n * fact(n - 1);
    }
}
`))
	require.NoError(t, err)
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.Function)
	require.True(t, ok)
	assert.Equal(t, "fn", fn.Kind)
	assert.Equal(t, "fact", fn.Name)
	assert.Equal(t, []string{"n"}, fn.Args)
	assert.Equal(t, "int", fn.RetType)

	ifElse, ok := fn.Body.Stmts[0].(*ast.IfElse)
	require.True(t, ok)
	require.Len(t, ifElse.Arms, 1)
	require.NotNil(t, ifElse.Else)
}

func TestParse_WhileLoop(t *testing.T) {
	prog, err := parser.Parse([]byte(`
proc main() {
    s = 0; i = 1;
    while i <= 5 {
        s = s + i;
        i = i + 1;
    }
}
`))
	require.NoError(t, err)
	fn := prog.Decls[0].(*ast.Function)
	assert.Equal(t, "proc", fn.Kind)
	w, ok := fn.Body.Stmts[2].(*ast.While)
	require.True(t, ok)
	cmp, ok := w.Cond.(*ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, token.LE, cmp.Op)
}

func TestParse_DoWhile(t *testing.T) {
	prog, err := parser.Parse([]byte(`
proc main() {
    do {
        pass;
    } while 0;
}
`))
	require.NoError(t, err)
	fn := prog.Decls[0].(*ast.Function)
	dw, ok := fn.Body.Stmts[0].(*ast.DoWhile)
	require.True(t, ok)
	_, ok = dw.Body.Stmts[0].(*ast.Pass)
	assert.True(t, ok)
}

func TestParse_ForLoop(t *testing.T) {
	prog, err := parser.Parse([]byte(`
proc main() {
    for (i = 0, i < 10, i = i + 1) {
        print(i);
    }
}
`))
	require.NoError(t, err)
	fn := prog.Decls[0].(*ast.Function)
	f, ok := fn.Body.Stmts[0].(*ast.For)
	require.True(t, ok)
	require.NotNil(t, f.Init)
	require.NotNil(t, f.Step)
	call, ok := f.Body.Stmts[0].(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "print", call.Name)
}

func TestParse_ListLitAndIndexAssign(t *testing.T) {
	prog, err := parser.Parse([]byte(`
proc main() {
    l = [1, 2, 3];
    l[0] = 9;
}
`))
	require.NoError(t, err)
	fn := prog.Decls[0].(*ast.Function)
	assign, ok := fn.Body.Stmts[0].(*ast.Assign)
	require.True(t, ok)
	lit, ok := assign.Expr.(*ast.ListLit)
	require.True(t, ok)
	assert.Len(t, lit.Elems, 3)

	assignAt, ok := fn.Body.Stmts[1].(*ast.AssignAt)
	require.True(t, ok)
	obj, ok := assignAt.Obj.(*ast.VarExpr)
	require.True(t, ok)
	assert.Equal(t, "l", obj.Name)
}

func TestParse_OperatorPrecedence(t *testing.T) {
	prog, err := parser.Parse([]byte(`proc main() { x = 1 + 2 * 3; }`))
	require.NoError(t, err)
	fn := prog.Decls[0].(*ast.Function)
	assign := fn.Body.Stmts[0].(*ast.Assign)
	top, ok := assign.Expr.(*ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, token.ADD, top.Op)
	_, ok = top.Y.(*ast.BinOp)
	assert.True(t, ok, "the * should bind tighter, nesting under the +'s right operand")
}

func TestParse_UnterminatedBlockIsAnError(t *testing.T) {
	_, err := parser.Parse([]byte(`proc main() { x = 1;`))
	require.Error(t, err)
	var el parser.ErrorList
	require.ErrorAs(t, err, &el)
	assert.NotEmpty(t, el)
}
