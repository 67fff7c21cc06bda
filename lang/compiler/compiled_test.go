package compiler_test

import (
	"testing"

	"github.com/noxlang/nox/lang/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// label/insn are small constructors to keep the hand-built streams below
// readable.
func label(name string) compiler.Instruction { return compiler.Instruction{Lbl: compiler.Label(name)} }

func insn(op compiler.Op) compiler.Instruction { return compiler.Instruction{Op: op} }

func constI(n int64) compiler.Instruction { return compiler.Instruction{Op: compiler.CONST, IntArg: n} }

func local(op compiler.Op, name string) compiler.Instruction {
	return compiler.Instruction{Op: op, NameArg: name}
}

func jump(op compiler.Op, target string) compiler.Instruction {
	return compiler.Instruction{Op: op, Target: compiler.Label(target)}
}

func enter(kind compiler.FnKind, args ...string) compiler.Instruction {
	return compiler.Instruction{Op: compiler.ENTER, EnterKind: kind, EnterArgs: args}
}

// a minimal but complete program: proc main() computes x = 2+3, stores it
// in a local, and exits with that value.
func minimalMain() []compiler.Instruction {
	return []compiler.Instruction{
		label("main"),
		enter(compiler.KindProc),
		constI(2),
		constI(3),
		insn(compiler.ADD),
		local(compiler.STORE, "x"),
		local(compiler.LOAD, "x"),
		compiler.Instruction{Op: compiler.SYSCALL, SysNum: 0},
		insn(compiler.LEAVE),
	}
}

func TestBuild_Minimal(t *testing.T) {
	prog, err := compiler.Build(minimalMain())
	require.NoError(t, err)

	assert.Equal(t, 0, prog.Entry)
	require.Contains(t, prog.Functions, "main")
	main := prog.Functions["main"]
	assert.Equal(t, []string{"x"}, main.Locals)
	assert.Equal(t, 0, main.NumArgs())
	assert.Equal(t, 1, main.NumLocals())

	require.Len(t, prog.Instructions, 8)
	assert.Equal(t, compiler.ENTER, prog.Instructions[0].Op)
	assert.Equal(t, 1, prog.Instructions[0].EnterNLocals)
	assert.Equal(t, compiler.STORE, prog.Instructions[4].Op)
	assert.EqualValues(t, 0, prog.Instructions[4].IntArg) // slot 0 = first local
}

func TestBuild_Globals(t *testing.T) {
	source := []compiler.Instruction{
		label("main"),
		enter(compiler.KindProc),
		constI(1),
		local(compiler.GSTORE, "counter"),
		local(compiler.GLOAD, "counter"),
		local(compiler.STORE, "x"),
		constI(0),
		compiler.Instruction{Op: compiler.SYSCALL, SysNum: 0},
		insn(compiler.LEAVE),
	}
	prog, err := compiler.Build(source)
	require.NoError(t, err)
	assert.Equal(t, []string{"counter"}, prog.Globals)
}

func TestBuild_CallsAndFunctions(t *testing.T) {
	source := []compiler.Instruction{
		label("double"),
		enter(compiler.KindFn, "n"),
		local(compiler.LOAD, "n"),
		local(compiler.LOAD, "n"),
		insn(compiler.ADD),
		insn(compiler.RET),
		insn(compiler.LEAVE),

		label("main"),
		enter(compiler.KindProc),
		constI(21),
		jump(compiler.CALL, "double"),
		local(compiler.STORE, "x"),
		constI(0),
		compiler.Instruction{Op: compiler.SYSCALL, SysNum: 0},
		insn(compiler.LEAVE),
	}
	prog, err := compiler.Build(source)
	require.NoError(t, err)

	require.Contains(t, prog.Functions, "double")
	double := prog.Functions["double"]
	assert.Equal(t, []string{"n"}, double.Args)
	assert.True(t, double.ReturnsValue)

	assert.Equal(t, []string{"double", "main"}, prog.SortedFnNames())

	callIdx := double.End + 2 // main's ENTER, CONST, then CALL
	assert.Equal(t, compiler.CALL, prog.Instructions[callIdx].Op)
	assert.EqualValues(t, double.Start, prog.Instructions[callIdx].IntArg)
}

func TestBuild_UndefinedLocalIsAnError(t *testing.T) {
	source := []compiler.Instruction{
		label("main"),
		enter(compiler.KindProc),
		local(compiler.LOAD, "never_stored"),
		insn(compiler.LEAVE),
	}
	_, err := compiler.Build(source)
	assert.Error(t, err)
}

func TestBuild_MissingMainIsAnError(t *testing.T) {
	source := []compiler.Instruction{
		label("helper"),
		enter(compiler.KindProc),
		insn(compiler.LEAVE),
	}
	_, err := compiler.Build(source)
	assert.Error(t, err)
}

func TestMarshalBinary_RoundTripsHeader(t *testing.T) {
	prog, err := compiler.Build(minimalMain())
	require.NoError(t, err)

	data, err := prog.MarshalBinary()
	require.NoError(t, err)

	img, err := compiler.UnmarshalBinary(data)
	require.NoError(t, err)
	assert.Equal(t, prog.Entry, img.Entry)
	assert.Equal(t, len(prog.Globals), img.NGlobals)
	require.Equal(t, len(prog.Instructions), len(img.Instructions))
	for i, want := range prog.Instructions {
		assert.Equal(t, want.Op, img.Instructions[i].Op, "instruction %d", i)
	}
}
