package compiler

// Syscall numbers, stable per §4.B/§4.E. The lowering (compiler.go) uses
// these to decide whether a call expression is a SYSCALL or a CALL; the
// interpreter (package machine) and the x64 backend (package x64) use the
// same table to decode arity and return kind.
const (
	syscallExit  = 0
	syscallOpen  = 1
	syscallClose = 2
	syscallRead  = 3
	syscallWrite = 4

	syscallList      = 20
	syscallListGet   = 21
	syscallListSet   = 22
	syscallPush      = 23
	syscallLen       = 24
	syscallClear     = 25
	syscallSlice     = 26
	syscallListRef   = 27
	syscallListUnref = 28

	syscallPrint = 100
	syscallInput = 101
)

// Syscall describes one entry of the syscall table: its name, parameter
// names (in pop order; see §4.E "first pop → first parameter"), and
// whether the handler pushes a result.
type Syscall struct {
	Number       int
	Name         string
	Params       []string
	ReturnsValue bool
}

// Syscalls is the full table, indexed by number.
var Syscalls = map[int]Syscall{
	syscallExit:  {syscallExit, "exit", []string{"code"}, false},
	syscallOpen:  {syscallOpen, "open", []string{"filename"}, true},
	syscallClose: {syscallClose, "close", []string{"fd"}, true},
	syscallRead:  {syscallRead, "read", []string{"fd", "n"}, true},
	syscallWrite: {syscallWrite, "write", []string{"fd", "data"}, true},

	syscallList:      {syscallList, "list", nil, true},
	syscallListGet:   {syscallListGet, "list_get", []string{"list", "i"}, true},
	syscallListSet:   {syscallListSet, "list_set", []string{"list", "i", "val"}, false},
	syscallPush:      {syscallPush, "push", []string{"list", "val"}, false},
	syscallLen:       {syscallLen, "len", []string{"list"}, true},
	syscallClear:     {syscallClear, "clear", []string{"list"}, false},
	syscallSlice:     {syscallSlice, "slice", []string{"list", "lo", "hi"}, true},
	syscallListRef:   {syscallListRef, "list_ref", []string{"list"}, false},
	syscallListUnref: {syscallListUnref, "list_unref", []string{"list"}, false},

	syscallPrint: {syscallPrint, "print", []string{"val"}, false},
	syscallInput: {syscallInput, "input", nil, true},
}

var syscallNumberByName = func() map[string]int {
	m := make(map[string]int, len(Syscalls))
	for n, s := range Syscalls {
		m[s.Name] = n
	}
	return m
}()

// syscallByName reports the syscall number for a call-expression name, used
// by the lowering to pick SYSCALL over CALL.
func syscallByName(name string) (int, bool) {
	n, ok := syscallNumberByName[name]
	return n, ok
}

// SyscallArity returns the number of operand-stack arguments syscall n
// consumes and whether it pushes a result. ok is false for an unknown
// syscall number (a VM error per §7.2).
func SyscallArity(n int64) (arity int, returnsValue bool, ok bool) {
	s, ok := Syscalls[int(n)]
	if !ok {
		return 0, false, false
	}
	return len(s.Params), s.ReturnsValue, true
}
