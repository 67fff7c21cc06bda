package x64

import "github.com/noxlang/nox/lang/compiler"

// lowByte maps a 64-bit register to the 8-bit name setCC writes into.
var lowByte = map[Reg]string{
	RAX: "al", RCX: "cl", RDX: "dl", RBX: "bl",
	RSI: "sil", RDI: "dil", RSP: "spl", RBP: "bpl",
	R8: "r8b", R9: "r9b", R10: "r10b", R11: "r11b",
	R12: "r12b", R13: "r13b", R14: "r14b", R15: "r15b",
}

var arithMnemonic = map[compiler.Op]string{
	compiler.ADD: "add",
	compiler.SUB: "sub",
	compiler.MUL: "imul",
}

var compareSet = map[compiler.Op]string{
	compiler.LT: "setl",
	compiler.LE: "setle",
	compiler.GT: "setg",
	compiler.GE: "setge",
	compiler.EQ: "sete",
	compiler.NE: "setne",
}

// emitArith lowers ADD/SUB/MUL (§4.F): pop r then l; if l is a register,
// operate in place; otherwise route through the scratch register since
// neither add/sub/imul accepts a memory destination with a memory source.
func (c *Compiler) emitArith(op compiler.Op) {
	r := c.alc.pop()
	l := c.alc.pop()
	mnemonic := arithMnemonic[op]

	if lr, ok := isReg(l); ok {
		c.instr(mnemonic, lr.asm(), r.asm())
		c.alc.push(l)
		return
	}
	c.instr("mov", scratchReg.String(), l.asm())
	c.instr(mnemonic, scratchReg.String(), r.asm())
	c.instr("mov", l.asm(), scratchReg.String())
	c.alc.push(l)
}

// emitDivMod lowers DIV/MOD (§4.F): both truncate toward zero, matching
// idiv exactly, so no sign correction is ever emitted.
func (c *Compiler) emitDivMod(op compiler.Op) {
	r := c.alc.pop()
	l := c.alc.pop()

	c.instr("mov", "rax", l.asm())
	c.instr("cqo")
	c.instr("idiv", r.asm())

	result := "rax"
	if op == compiler.MOD {
		result = "rdx"
	}
	c.instr("mov", l.asm(), result)
	c.alc.push(l)
}

// emitCompare lowers the six comparison opcodes, each yielding 0 or 1
// (§4.F "Comparisons").
func (c *Compiler) emitCompare(op compiler.Op) {
	r := c.alc.pop()
	l := c.alc.pop()
	setcc := compareSet[op]

	if lr, ok := isReg(l); ok {
		c.instr("cmp", lr.asm(), r.asm())
		c.instr(setcc, lowByte[lr])
		c.instr("and", lr.asm(), "1")
		c.alc.push(l)
		return
	}
	c.instr("mov", scratchReg.String(), l.asm())
	c.instr("cmp", scratchReg.String(), r.asm())
	c.instr(setcc, lowByte[scratchReg])
	c.instr("and", scratchReg.String(), "1")
	c.instr("mov", l.asm(), scratchReg.String())
	c.alc.push(l)
}

// emitLogical lowers AND/OR (§4.F): booleanise each operand independently,
// then combine bitwise and mask back to 0/1.
func (c *Compiler) emitLogical(op compiler.Op) {
	r := c.alc.pop()
	l := c.alc.pop()
	c.booleanize(r)
	c.booleanize(l)

	mnemonic := "and"
	if op == compiler.OR {
		mnemonic = "or"
	}

	if lr, ok := isReg(l); ok {
		c.instr(mnemonic, lr.asm(), r.asm())
		c.instr("and", lr.asm(), "1")
		c.alc.push(l)
		return
	}
	c.instr("mov", scratchReg.String(), l.asm())
	c.instr(mnemonic, scratchReg.String(), r.asm())
	c.instr("and", scratchReg.String(), "1")
	c.instr("mov", l.asm(), scratchReg.String())
	c.alc.push(l)
}

// booleanize overwrites op in place with 1 if it is nonzero, 0 otherwise.
func (c *Compiler) booleanize(op operand) {
	if r, ok := isReg(op); ok {
		c.instr("test", r.asm(), r.asm())
		c.instr("setne", lowByte[r])
		c.instr("and", r.asm(), "1")
		return
	}
	c.instr("mov", scratchReg.String(), op.asm())
	c.instr("test", scratchReg.String(), scratchReg.String())
	c.instr("setne", lowByte[scratchReg])
	c.instr("and", scratchReg.String(), "1")
	c.instr("mov", op.asm(), scratchReg.String())
}
