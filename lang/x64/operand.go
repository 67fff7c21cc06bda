package x64

import "fmt"

// operand is a location on the virtual operand stack: either a register or
// a spill slot in the current function's frame.
type operand interface {
	asm() string
}

func (r Reg) asm() string { return r.String() }

// memSlot is a frame slot at index i, addressed as [rbp-(i+1)*8] (§4.F
// "LOAD i / STORE i"). Local slots and spilled virtual-stack operands share
// this one indexing scheme: locals occupy slots [0, nslots), spills occupy
// slots [nslots, ...) as the virtual stack grows past the register pool.
type memSlot struct{ i int }

func (m memSlot) asm() string { return fmt.Sprintf("[rbp-%d]", (m.i+1)*wordSize) }

// isReg reports whether op is a register operand, returning it if so.
func isReg(op operand) (Reg, bool) {
	r, ok := op.(Reg)
	return r, ok
}
