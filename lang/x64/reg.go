// Package x64 lowers a resolved *compiler.Program to Windows x64 NASM
// assembly (§4.F): a per-function virtual-operand-stack register allocator
// feeding a fixed set of per-opcode lowering rules.
package x64

// Reg is one of the 16 general-purpose x86-64 registers, referred to by
// their 64-bit name, except where a setCC writes the low byte (see lowByte
// in arith.go).
type Reg int

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

var regNames = [...]string{
	RAX: "rax", RCX: "rcx", RDX: "rdx", RBX: "rbx",
	RSP: "rsp", RBP: "rbp", RSI: "rsi", RDI: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11",
	R12: "r12", R13: "r13", R14: "r14", R15: "r15",
}

func (r Reg) String() string { return regNames[r] }

const wordSize = 8

// argRegs holds the four Windows x64 integer argument registers, in
// parameter order (§4.F "register model").
var argRegs = [4]Reg{RCX, RDX, R8, R9}

// scratchReg is "tmp": the register reserved for the case where both
// operands of a binary op are memory and one side must be loaded before the
// op can execute.
const scratchReg = R10

// poolRegs are the stack-scheduler's working set: every register that is
// not an argument register, a fixed special (rax/rbp/rsp), or the scratch
// register.
var poolRegs = []Reg{RBX, RSI, RDI, R11, R12, R13, R14, R15}
