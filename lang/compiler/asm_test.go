package compiler_test

import (
	"testing"

	"github.com/noxlang/nox/lang/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Render_RoundTrip(t *testing.T) {
	src := `
main:
    enter proc()
    const 2
    const 3
    add
    store x
    load x
    syscall exit
    leave
`
	insns, err := compiler.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, insns, 9) // 1 label + 8 instructions

	rendered := compiler.Render(insns)
	reparsed, err := compiler.Parse(rendered)
	require.NoError(t, err)
	assert.Equal(t, insns, reparsed)
}

func TestParse_LabelPrefixedToInstruction(t *testing.T) {
	src := "loop: jmp loop\n"
	insns, err := compiler.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, insns, 2)
	assert.Equal(t, compiler.Label("loop"), insns[0].Lbl)
	assert.Equal(t, compiler.JMP, insns[1].Op)
	assert.Equal(t, compiler.Label("loop"), insns[1].Target)
}

func TestParse_EnterFn(t *testing.T) {
	insns, err := compiler.Parse([]byte("double:\nenter fn(n)\nload n\nload n\nadd\nret\nleave\n"))
	require.NoError(t, err)
	require.Len(t, insns, 7)
	enter := insns[1]
	assert.Equal(t, compiler.ENTER, enter.Op)
	assert.Equal(t, compiler.KindFn, enter.EnterKind)
	assert.Equal(t, []string{"n"}, enter.EnterArgs)
}

func TestParse_UnknownOpcodeIsAnError(t *testing.T) {
	_, err := compiler.Parse([]byte("bogus 1\n"))
	assert.Error(t, err)
}

func TestParse_SyscallByNumberFallsBack(t *testing.T) {
	insns, err := compiler.Parse([]byte("syscall 100\n"))
	require.NoError(t, err)
	require.Len(t, insns, 1)
	assert.EqualValues(t, 100, insns[0].SysNum)
}

func TestParse_CommentsAndBlankLinesIgnored(t *testing.T) {
	src := "# a comment\n\nconst 1 # trailing comment\n"
	insns, err := compiler.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, insns, 1)
	assert.Equal(t, compiler.CONST, insns[0].Op)
	assert.EqualValues(t, 1, insns[0].IntArg)
}
