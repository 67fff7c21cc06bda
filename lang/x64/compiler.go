package x64

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noxlang/nox/lang/compiler"
)

// CompileError is a fatal error raised while lowering a Program to x64: an
// unsupported call shape (more than four parameters) or an internal
// inconsistency in the resolved program.
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string { return "x64: " + e.Msg }

// Compiler holds one Compile call's state: the program being lowered, the
// function whose body is currently being emitted, that function's virtual
// operand-stack allocator, and the accumulated listing text.
type Compiler struct {
	prog      *compiler.Program
	fnByStart map[int]*compiler.Fn
	targets   map[int]bool

	buf *strings.Builder
	cur *compiler.Fn
	alc *allocator
}

// Compile lowers prog to a NASM-syntax listing targeting the Windows x64
// ABI (§4.F). The listing references an external runtime object (sys_setup
// plus one sys_<name> trampoline per syscall the program actually uses) and
// is not itself assembled or linked.
func Compile(prog *compiler.Program) (string, error) {
	c := &Compiler{
		prog:      prog,
		fnByStart: make(map[int]*compiler.Fn, len(prog.Functions)),
		targets:   collectJumpTargets(prog.Instructions),
	}
	for _, fn := range prog.Functions {
		c.fnByStart[fn.Start] = fn
	}

	var buf strings.Builder
	c.buf = &buf

	c.line("global main")
	c.line("extern sys_setup")
	for _, n := range sortedInts(collectSyscalls(prog.Instructions)) {
		c.line("extern sys_" + compiler.Syscalls[n].Name)
	}
	c.line("")

	if len(prog.Globals) > 0 {
		c.line("section .data")
		for _, g := range prog.Globals {
			c.line(g + ": dq 0")
		}
		c.line("")
	}

	c.line("section .text")
	for _, name := range prog.SortedFnNames() {
		if err := c.emitFn(prog.Functions[name]); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// emitFn lowers one function's whole [Start, End) instruction range,
// starting a fresh virtual operand stack scoped to that function (§4.F
// "Virtual operand stack").
func (c *Compiler) emitFn(fn *compiler.Fn) error {
	if fn.NumArgs() > len(argRegs) {
		return &CompileError{Msg: fmt.Sprintf("function %q: more than %d parameters is not supported", fn.Name, len(argRegs))}
	}

	c.cur = fn
	c.alc = newAllocator(fn.NumArgs() + fn.NumLocals())
	c.line(fn.Name + ":")

	for i := fn.Start; i < fn.End; i++ {
		if c.targets[i] {
			c.line(labelName(i) + ":")
		}
		if err := c.emitInsn(i, c.prog.Instructions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) emitInsn(i int, ins compiler.ResolvedInstruction) error {
	switch ins.Op {
	case compiler.CONST:
		d := c.alc.allocate()
		c.instr("mov", d.asm(), strconv.FormatInt(ins.IntArg, 10))

	case compiler.LOAD:
		loc := c.localLoc(int(ins.IntArg))
		d := c.alc.allocate()
		c.instr("mov", d.asm(), loc.asm())

	case compiler.STORE:
		top := c.alc.pop()
		loc := c.localLoc(int(ins.IntArg))
		c.storeTo(loc, top)

	case compiler.GLOAD:
		d := c.alc.allocate()
		c.instr("mov", d.asm(), "[rel "+c.global(ins.IntArg)+"]")

	case compiler.GSTORE:
		top := c.alc.pop()
		name := "[rel " + c.global(ins.IntArg) + "]"
		if _, ok := isReg(top); ok {
			c.instr("mov", name, top.asm())
		} else {
			c.instr("mov", scratchReg.String(), top.asm())
			c.instr("mov", name, scratchReg.String())
		}

	case compiler.ADD, compiler.SUB, compiler.MUL:
		c.emitArith(ins.Op)
	case compiler.DIV, compiler.MOD:
		c.emitDivMod(ins.Op)
	case compiler.LT, compiler.LE, compiler.GT, compiler.GE, compiler.EQ, compiler.NE:
		c.emitCompare(ins.Op)
	case compiler.AND, compiler.OR:
		c.emitLogical(ins.Op)

	case compiler.JMP:
		c.instr("jmp", labelName(int(ins.IntArg)))

	case compiler.JZ, compiler.JNZ:
		v := c.alc.pop()
		reg := scratchReg
		if r, ok := isReg(v); ok {
			reg = r
		} else {
			c.instr("mov", scratchReg.String(), v.asm())
		}
		c.instr("test", reg.asm(), reg.asm())
		if ins.Op == compiler.JZ {
			c.instr("jz", labelName(int(ins.IntArg)))
		} else {
			c.instr("jnz", labelName(int(ins.IntArg)))
		}

	case compiler.CALL:
		fn, ok := c.fnByStart[int(ins.IntArg)]
		if !ok {
			return &CompileError{Msg: fmt.Sprintf("call target %d names no function", ins.IntArg)}
		}
		return c.compileCall(fn.Name, fn.NumArgs(), fn.ReturnsValue)

	case compiler.SYSCALL:
		s := compiler.Syscalls[int(ins.IntArg)]
		return c.compileCall("sys_"+s.Name, len(s.Params), s.ReturnsValue)

	case compiler.ENTER:
		if c.cur.Name == "main" {
			c.instr("call", "sys_setup")
		}
		c.instr("push", "rbp")
		c.instr("mov", "rbp", "rsp")
		c.instr("sub", "rsp", c.cur.Name+"_stackframe")

	case compiler.RET:
		if c.cur.ReturnsValue {
			v := c.alc.pop()
			c.instr("mov", "rax", v.asm())
		}
		c.instr("jmp", c.cur.Name+"_epilogue")

	case compiler.LEAVE:
		c.line(c.cur.Name + "_epilogue:")
		c.instr("add", "rsp", c.cur.Name+"_stackframe")
		c.instr("pop", "rbp")
		c.instr("ret")
		c.line(fmt.Sprintf("%s_stackframe EQU %d", c.cur.Name, c.alc.maxSlot*wordSize))

	default:
		return &CompileError{Msg: fmt.Sprintf("unhandled opcode %s at instruction %d", ins.Op, i)}
	}
	return nil
}

// storeTo writes src into loc, routing through the scratch register when
// both sides are memory (no x86 instruction moves memory to memory
// directly).
func (c *Compiler) storeTo(loc, src operand) {
	if _, srcIsReg := isReg(src); srcIsReg {
		c.instr("mov", loc.asm(), src.asm())
		return
	}
	if _, locIsReg := isReg(loc); locIsReg {
		c.instr("mov", loc.asm(), src.asm())
		return
	}
	c.instr("mov", scratchReg.String(), src.asm())
	c.instr("mov", loc.asm(), scratchReg.String())
}

// localLoc resolves local slot i to its storage location (§4.F "LOAD i /
// STORE i"): an argument register for the first NumArgs() slots, a frame
// slot beyond that.
func (c *Compiler) localLoc(i int) operand {
	if i < c.cur.NumArgs() {
		return argRegs[i]
	}
	return memSlot{i}
}

func (c *Compiler) global(idx int64) string { return c.prog.Globals[idx] }

func (c *Compiler) line(s string) { c.buf.WriteString(s + "\n") }

// instr emits one indented assembly instruction, right-padding the
// mnemonic the way the teacher's own assembler formatter does.
func (c *Compiler) instr(mnemonic string, operands ...string) {
	c.buf.WriteString(fmt.Sprintf("    %-7s %s\n", mnemonic, strings.Join(operands, ", ")))
}

func labelName(instructionIndex int) string { return fmt.Sprintf("L%d", instructionIndex) }

func collectJumpTargets(ins []compiler.ResolvedInstruction) map[int]bool {
	set := make(map[int]bool)
	for _, i := range ins {
		switch i.Op {
		case compiler.JMP, compiler.JZ, compiler.JNZ:
			set[int(i.IntArg)] = true
		}
	}
	return set
}

func collectSyscalls(ins []compiler.ResolvedInstruction) map[int]bool {
	set := make(map[int]bool)
	for _, i := range ins {
		if i.Op == compiler.SYSCALL {
			set[int(i.IntArg)] = true
		}
	}
	return set
}

func sortedInts(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
