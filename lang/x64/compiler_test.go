package x64_test

import (
	"strings"
	"testing"

	"github.com/noxlang/nox/lang/compiler"
	"github.com/noxlang/nox/lang/x64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, src string) *compiler.Program {
	t.Helper()
	source, err := compiler.Parse([]byte(src))
	require.NoError(t, err)
	prog, err := compiler.Build(source)
	require.NoError(t, err)
	return prog
}

func TestCompile_HeaderAndGlobals(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const 1
    gstore counter
    const 0
    syscall exit
    leave
`)
	listing, err := x64.Compile(prog)
	require.NoError(t, err)

	assert.Contains(t, listing, "global main")
	assert.Contains(t, listing, "extern sys_setup")
	assert.Contains(t, listing, "extern sys_exit")
	assert.Contains(t, listing, "section .data")
	assert.Contains(t, listing, "counter: dq 0")
	assert.Contains(t, listing, "section .text")
	assert.Contains(t, listing, "main:")
}

func TestCompile_FunctionPrologueAndEpilogue(t *testing.T) {
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
	listing, err := x64.Compile(prog)
	require.NoError(t, err)

	assert.Contains(t, listing, "double:")
	assert.Contains(t, listing, "push    rbp")
	assert.Contains(t, listing, "mov     rbp, rsp")
	assert.Contains(t, listing, "sub     rsp, double_stackframe")
	assert.Contains(t, listing, "double_epilogue:")
	assert.Contains(t, listing, "double_stackframe EQU")
	assert.Contains(t, listing, "call    double")
}

func TestCompile_DivModUsesIdivNoCorrection(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const 7
    const 2
    div
    syscall exit
    leave
`)
	listing, err := x64.Compile(prog)
	require.NoError(t, err)
	assert.Contains(t, listing, "cqo")
	assert.Contains(t, listing, "idiv")
	assert.NotContains(t, listing, "adjust", "DIV/MOD lowering must not emit a sign-correction sequence")
}

func TestCompile_TooManyArgsIsAnError(t *testing.T) {
	prog := build(t, `
f:
    enter fn(a, b, c, d, e)
    load a
    ret
    leave
main:
    enter proc()
    const 0
    syscall exit
    leave
`)
	_, err := x64.Compile(prog)
	assert.Error(t, err)
}

func TestCompile_JumpTargetsGetLabels(t *testing.T) {
	prog := build(t, `
main:
    enter proc()
    const 1
loop:
    const 0
    jnz loop
    syscall exit
    leave
`)
	listing, err := x64.Compile(prog)
	require.NoError(t, err)
	// the jump-target instruction must be preceded by a generated label
	// distinct from the source-level "loop" name (which the resolved
	// program no longer carries).
	assert.True(t, strings.Contains(listing, "jnz"), "expected a conditional jump in the listing")
	// "loop" resolves to instruction index 2 (ENTER=0, CONST 1=1, CONST 0=2).
	assert.Contains(t, listing, "L2:\n")
	assert.Contains(t, listing, "jnz     L2")
	assert.NotContains(t, listing, "loop")
}
