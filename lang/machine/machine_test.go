package machine_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/noxlang/nox/lang/compiler"
	"github.com/noxlang/nox/lang/machine"
	"github.com/noxlang/nox/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSource parses and lowers nox source (as opposed to build's
// hand-written §4.D assembly text), exercising the full parser + compiler
// front end.
func buildSource(t *testing.T, src string) *compiler.Program {
	t.Helper()
	prog, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	source, err := compiler.Lower(prog)
	require.NoError(t, err)
	out, err := compiler.Build(source)
	require.NoError(t, err)
	return out
}

func build(t *testing.T, src string) *compiler.Program {
	t.Helper()
	source, err := compiler.Parse([]byte(src))
	require.NoError(t, err)
	prog, err := compiler.Build(source)
	require.NoError(t, err)
	return prog
}

func TestRun_ExitCode(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const 7
    const 35
    add
    syscall exit
    leave
`)
	code, err := machine.Run(&machine.Thread{}, prog)
	require.NoError(t, err)
	assert.EqualValues(t, 42, code)
}

func TestRun_DivModTruncateTowardZero(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const -7
    const 2
    div
    syscall exit
    leave
`)
	code, err := machine.Run(&machine.Thread{}, prog)
	require.NoError(t, err)
	assert.EqualValues(t, -3, code) // truncated, not floored (-4)
}

func TestRun_ModTruncateTowardZero(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const -7
    const 2
    mod
    syscall exit
    leave
`)
	code, err := machine.Run(&machine.Thread{}, prog)
	require.NoError(t, err)
	assert.EqualValues(t, -1, code) // Go's %, matching idiv, not Python's floor-mod (1)
}

func TestRun_DivisionByZeroIsFatal(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const 1
    const 0
    div
    syscall exit
    leave
`)
	_, err := machine.Run(&machine.Thread{}, prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestRun_PrintWritesToStdout(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const 99
    syscall print
    const 0
    syscall exit
    leave
`)
	var out bytes.Buffer
	code, err := machine.Run(&machine.Thread{Stdout: &out}, prog)
	require.NoError(t, err)
	assert.EqualValues(t, 0, code)
	assert.Equal(t, "99\n", out.String())
}

func TestRun_ListBuiltins(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    syscall list
    store l
    const 10
    load l
    syscall push
    const 20
    load l
    syscall push
    load l
    syscall len
    syscall exit
    leave
`)
	code, err := machine.Run(&machine.Thread{}, prog)
	require.NoError(t, err)
	assert.EqualValues(t, 2, code)
}

func TestRun_ListGetOutOfRangeIsFatal(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    syscall list
    store l
    const 0
    load l
    syscall list_get
    syscall exit
    leave
`)
	_, err := machine.Run(&machine.Thread{}, prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestRun_FunctionCallAndReturn(t *testing.T) {
	prog := build(t, `
double:
    enter fn(n)
    load n
    load n
    add
    ret
    leave
main:
    enter proc()
    const 21
    call double
    syscall exit
    leave
`)
	code, err := machine.Run(&machine.Thread{}, prog)
	require.NoError(t, err)
	assert.EqualValues(t, 42, code)
}

func TestRun_MultiArgFunctionBindsParamsInDeclarationOrder(t *testing.T) {
	prog := buildSource(t, `
fn sub(a, b) -> int {
    return a - b;
}

print(sub(10, 3));
`)
	var out bytes.Buffer
	_, err := machine.Run(&machine.Thread{Stdout: &out}, prog)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out.String(), "first call argument must bind to the first parameter (a=10, b=3), not reversed")
}

func TestRun_RecursiveFnReturningOnEveryIfElseArm(t *testing.T) {
	prog := buildSource(t, `
fn fact(n) -> int {
    if n <= 1 {
        return 1;
    } else {
        return n * fact(n - 1);
    }
}

print(fact(5));
`)
	var out bytes.Buffer
	_, err := machine.Run(&machine.Thread{Stdout: &out}, prog)
	require.NoError(t, err)
	assert.Equal(t, "120\n", out.String())
}

func TestRun_MaxStepsExceeded(t *testing.T) {
	prog := build(t, `
loop:
main:
    enter proc()
    jmp loop
    leave
`)
	th := &machine.Thread{Limits: machine.Limits{MaxSteps: 10}}
	_, err := machine.Run(th, prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max steps")
}

func TestRun_InputReadsFromStdin(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    syscall input
    syscall exit
    leave
`)
	th := &machine.Thread{Stdin: strings.NewReader("123\n")}
	code, err := machine.Run(th, prog)
	require.NoError(t, err)
	assert.EqualValues(t, 123, code)
}
