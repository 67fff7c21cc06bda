package machine

import (
	"bufio"
	"fmt"

	"github.com/noxlang/nox/lang/compiler"
)

// RuntimeError is a fatal VM error (§7.2): division by zero, a syscall
// argument mismatch, stack underflow, or an unknown opcode. A program
// encountering one terminates the run with this error rather than
// continuing; it is never recovered from mid-run.
type RuntimeError struct {
	IP  int
	Msg string
}

func (e *RuntimeError) Error() string {
	if e.IP != 0 {
		return fmt.Sprintf("runtime error at ip=%d: %s", e.IP, e.Msg)
	}
	return "runtime error: " + e.Msg
}

// state is one Run call's live machine state (§4.E "Machine state"): the
// instruction pointer, operand stack, call stack of return addresses,
// fixed-size globals vector, and stack of locals frames. It does not
// outlive a single Run call.
type state struct {
	prog *compiler.Program
	th   *Thread

	ip        int
	stack     []int64
	callStack []int
	globals   []int64
	locals    []frame
	heap      *heap
	fds       *fdTable

	stdinReader *bufio.Reader
	steps       int64
}

// Run executes prog to completion (normal exit via the "exit" syscall, or
// a fatal RuntimeError) and returns the exit code passed to "exit".
//
// Determinism (§8): given the same Program and the same Thread.Stdin
// content, Run produces the same stdout bytes and exit code on every
// call, since the only external input is th.Stdin and the only external
// output is th.Stdout.
func Run(th *Thread, prog *compiler.Program) (exitCode int64, err error) {
	st := &state{
		prog:    prog,
		th:      th,
		ip:      prog.Entry,
		globals: make([]int64, len(prog.Globals)),
		heap:    newHeap(),
		fds:     newFDTable(),
	}
	defer st.heap.releaseAll()

	return st.run()
}

func (st *state) run() (int64, error) {
	limits := st.th.Limits
	instructions := st.prog.Instructions

	for {
		if limits.MaxSteps > 0 && st.steps >= limits.MaxSteps {
			return 0, &RuntimeError{IP: st.ip, Msg: "exceeded max steps"}
		}
		st.steps++

		select {
		case <-st.th.context().Done():
			return 0, &RuntimeError{IP: st.ip, Msg: st.th.context().Err().Error()}
		default:
		}

		if st.ip < 0 || st.ip >= len(instructions) {
			return 0, &RuntimeError{IP: st.ip, Msg: "instruction pointer out of range"}
		}
		ins := instructions[st.ip]

		switch ins.Op {
		case compiler.CONST:
			if err := st.push(ins.IntArg); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.LOAD:
			v, err := st.loadLocal(int(ins.IntArg))
			if err != nil {
				return 0, err
			}
			if err := st.push(v); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.STORE:
			v, err := st.pop()
			if err != nil {
				return 0, err
			}
			if err := st.storeLocal(int(ins.IntArg), v); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.GLOAD:
			v, err := st.loadGlobal(int(ins.IntArg))
			if err != nil {
				return 0, err
			}
			if err := st.push(v); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.GSTORE:
			v, err := st.pop()
			if err != nil {
				return 0, err
			}
			if err := st.storeGlobal(int(ins.IntArg), v); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
			if err := st.arith(ins.Op); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.LT, compiler.LE, compiler.GT, compiler.GE, compiler.EQ, compiler.NE:
			if err := st.compare(ins.Op); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.AND, compiler.OR:
			if err := st.logical(ins.Op); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.JMP:
			st.ip = int(ins.IntArg)

		case compiler.JZ:
			v, err := st.pop()
			if err != nil {
				return 0, err
			}
			if v == 0 {
				st.ip = int(ins.IntArg)
			} else {
				st.ip++
			}

		case compiler.JNZ:
			v, err := st.pop()
			if err != nil {
				return 0, err
			}
			if v != 0 {
				st.ip = int(ins.IntArg)
			} else {
				st.ip++
			}

		case compiler.CALL:
			if limits.MaxCallDepth > 0 && len(st.callStack) >= limits.MaxCallDepth {
				return 0, &RuntimeError{IP: st.ip, Msg: "exceeded max call depth"}
			}
			st.callStack = append(st.callStack, st.ip+1)
			st.ip = int(ins.IntArg)

		case compiler.ENTER:
			if err := st.enter(ins); err != nil {
				return 0, err
			}
			st.ip++

		case compiler.RET:
			ip, err := st.ret()
			if err != nil {
				return 0, err
			}
			st.ip = ip

		case compiler.SYSCALL:
			code, exited, err := st.syscall(int(ins.IntArg))
			if err != nil {
				return 0, err
			}
			if exited {
				return code, nil
			}
			st.ip++

		case compiler.LEAVE:
			return 0, &RuntimeError{IP: st.ip, Msg: "LEAVE reached during execution"}

		default:
			return 0, &RuntimeError{IP: st.ip, Msg: fmt.Sprintf("unknown opcode %d", ins.Op)}
		}
	}
}

func (st *state) push(v int64) error {
	limit := st.th.Limits.MaxOperandStack
	if limit > 0 && len(st.stack) >= limit {
		return &RuntimeError{IP: st.ip, Msg: "exceeded max operand stack"}
	}
	st.stack = append(st.stack, v)
	return nil
}

func (st *state) pop() (int64, error) {
	n := len(st.stack)
	if n == 0 {
		return 0, &RuntimeError{IP: st.ip, Msg: "operand stack underflow"}
	}
	v := st.stack[n-1]
	st.stack = st.stack[:n-1]
	return v, nil
}

func (st *state) curFrame() (*frame, error) {
	if len(st.locals) == 0 {
		return nil, &RuntimeError{IP: st.ip, Msg: "no active call frame"}
	}
	return &st.locals[len(st.locals)-1], nil
}

func (st *state) loadLocal(i int) (int64, error) {
	fr, err := st.curFrame()
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(fr.slots) {
		return 0, &RuntimeError{IP: st.ip, Msg: "local slot out of range"}
	}
	return fr.slots[i], nil
}

func (st *state) storeLocal(i int, v int64) error {
	fr, err := st.curFrame()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(fr.slots) {
		return &RuntimeError{IP: st.ip, Msg: "local slot out of range"}
	}
	fr.slots[i] = v
	return nil
}

func (st *state) loadGlobal(i int) (int64, error) {
	if i < 0 || i >= len(st.globals) {
		return 0, &RuntimeError{IP: st.ip, Msg: "global slot out of range"}
	}
	return st.globals[i], nil
}

func (st *state) storeGlobal(i int, v int64) error {
	if i < 0 || i >= len(st.globals) {
		return &RuntimeError{IP: st.ip, Msg: "global slot out of range"}
	}
	st.globals[i] = v
	return nil
}

// arith pops r then l and pushes l op r. DIV/MOD are truncated toward
// zero, matching Go's native int64 operators (see DESIGN.md's Open
// Question resolution).
func (st *state) arith(op compiler.Op) error {
	r, err := st.pop()
	if err != nil {
		return err
	}
	l, err := st.pop()
	if err != nil {
		return err
	}
	var result int64
	switch op {
	case compiler.ADD:
		result = l + r
	case compiler.SUB:
		result = l - r
	case compiler.MUL:
		result = l * r
	case compiler.DIV:
		if r == 0 {
			return &RuntimeError{IP: st.ip, Msg: "division by zero"}
		}
		result = l / r
	case compiler.MOD:
		if r == 0 {
			return &RuntimeError{IP: st.ip, Msg: "division by zero"}
		}
		result = l % r
	}
	return st.push(result)
}

func (st *state) compare(op compiler.Op) error {
	r, err := st.pop()
	if err != nil {
		return err
	}
	l, err := st.pop()
	if err != nil {
		return err
	}
	var ok bool
	switch op {
	case compiler.LT:
		ok = l < r
	case compiler.LE:
		ok = l <= r
	case compiler.GT:
		ok = l > r
	case compiler.GE:
		ok = l >= r
	case compiler.EQ:
		ok = l == r
	case compiler.NE:
		ok = l != r
	}
	return st.push(boolToInt(ok))
}

func (st *state) logical(op compiler.Op) error {
	r, err := st.pop()
	if err != nil {
		return err
	}
	l, err := st.pop()
	if err != nil {
		return err
	}
	lb, rb := l != 0, r != 0
	var result bool
	if op == compiler.AND {
		result = lb && rb
	} else {
		result = lb || rb
	}
	return st.push(boolToInt(result))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// enter pops nargs operands in index order and pushes a new locals frame
// (§4.E "ENTER").
func (st *state) enter(ins compiler.ResolvedInstruction) error {
	nargs := ins.EnterNArgs
	nlocals := ins.EnterNLocals
	slots := make([]int64, nargs+nlocals)
	for i := 0; i < nargs; i++ {
		v, err := st.pop()
		if err != nil {
			return err
		}
		slots[i] = v
	}
	st.locals = append(st.locals, frame{slots: slots})
	return nil
}

// ret pops the current locals frame and returns the resolved return
// address from the call stack (§4.E "RET").
func (st *state) ret() (int, error) {
	if len(st.locals) == 0 {
		return 0, &RuntimeError{IP: st.ip, Msg: "RET without an active call frame"}
	}
	st.locals = st.locals[:len(st.locals)-1]
	n := len(st.callStack)
	if n == 0 {
		return 0, &RuntimeError{IP: st.ip, Msg: "RET without a call stack entry"}
	}
	ip := st.callStack[n-1]
	st.callStack = st.callStack[:n-1]
	return ip, nil
}
