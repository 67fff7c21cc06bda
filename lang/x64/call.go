package x64

import (
	"strconv"

	"github.com/noxlang/nox/lang/compiler"
)

// compileCall lowers both CALL and SYSCALL (§4.F "CALL f / SYSCALL n"):
// save every live register the call would otherwise clobber, move the
// top nargs virtual-stack operands into the argument registers in
// parameter order, call target, capture a return value if any, then
// restore the save set.
func (c *Compiler) compileCall(target string, nargs int, returnsValue bool) error {
	if nargs > len(argRegs) {
		return &CompileError{Msg: "call to " + target + ": more than " + strconv.Itoa(len(argRegs)) + " arguments is not supported"}
	}

	saveSet := c.alc.registersOnStack(nargs)
	saveSet = append(saveSet, callerArgRegs(c.cur)...)
	for _, r := range saveSet {
		c.instr("push", r.asm())
	}

	args := make([]operand, nargs)
	for i := 0; i < nargs; i++ {
		args[i] = c.alc.pop()
	}
	for i := 0; i < nargs; i++ {
		c.instr("mov", argRegs[i].asm(), args[i].asm())
	}

	c.instr("call", target)

	if returnsValue {
		d := c.alc.allocate()
		c.instr("mov", d.asm(), "rax")
	}

	for i := len(saveSet) - 1; i >= 0; i-- {
		c.instr("pop", saveSet[i].asm())
	}
	return nil
}

// callerArgRegs returns the argument registers holding fn's own incoming
// parameters, which a nested call would otherwise clobber.
func callerArgRegs(fn *compiler.Fn) []Reg {
	n := fn.NumArgs()
	if n > len(argRegs) {
		n = len(argRegs)
	}
	return append([]Reg(nil), argRegs[:n]...)
}
