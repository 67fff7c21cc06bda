package machine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/noxlang/nox/lang/compiler"
)

// syscall pops the numbered syscall's declared arity (first pop → first
// parameter, §4.E) and invokes its handler. exited reports that the
// "exit" syscall ran; code is then the program's exit code.
func (st *state) syscall(n int) (code int64, exited bool, err error) {
	arity, returnsValue, ok := compiler.SyscallArity(int64(n))
	if !ok {
		return 0, false, &RuntimeError{IP: st.ip, Msg: fmt.Sprintf("unknown syscall %d", n)}
	}

	args := make([]int64, arity)
	for i := 0; i < arity; i++ {
		v, err := st.pop()
		if err != nil {
			return 0, false, err
		}
		args[i] = v
	}

	var result int64
	switch n {
	case 0: // exit
		return args[0], true, nil
	case 1: // open
		result, err = st.sysOpen(args[0])
	case 2: // close
		result, err = st.sysClose(args[0])
	case 3: // read
		result, err = st.sysRead(args[0], args[1])
	case 4: // write
		result, err = st.sysWrite(args[0], args[1])
	case 20: // list
		result = st.heap.alloc()
	case 21: // list_get
		result, err = st.sysListGet(args[0], args[1])
	case 22: // list_set
		err = st.sysListSet(args[0], args[1], args[2])
	case 23: // push
		err = st.sysPush(args[0], args[1])
	case 24: // len
		result, err = st.sysLen(args[0])
	case 25: // clear
		err = st.sysClear(args[0])
	case 26: // slice
		result, err = st.sysSlice(args[0], args[1], args[2])
	case 27: // list_ref
		err = st.heap.ref(args[0])
	case 28: // list_unref
		err = st.heap.unref(args[0])
	case 100: // print
		err = st.sysPrint(args[0])
	case 101: // input
		result, err = st.sysInput()
	default:
		return 0, false, &RuntimeError{IP: st.ip, Msg: fmt.Sprintf("unimplemented syscall %d", n)}
	}
	if err != nil {
		return 0, false, err
	}
	if returnsValue {
		if err := st.push(result); err != nil {
			return 0, false, err
		}
	}
	return 0, false, nil
}

// --- file IO (§4.E 1-4: optional, best-effort; file descriptors are the
// host's *os.File, indexed by a small integer handle allocated the same
// way list handles are) ---

func (st *state) sysOpen(nameHandle int64) (int64, error) {
	name, err := st.heapString(nameHandle)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(name)
	if err != nil {
		return -1, nil //nolint:nilerr // VM-level failure is reported as -1, not a fatal error
	}
	return st.fds.add(f), nil
}

func (st *state) sysClose(fd int64) (int64, error) {
	f, err := st.fds.get(fd)
	if err != nil {
		return -1, nil //nolint:nilerr
	}
	st.fds.remove(fd)
	if err := f.Close(); err != nil {
		return -1, nil //nolint:nilerr
	}
	return 0, nil
}

func (st *state) sysRead(fd, n int64) (int64, error) {
	r, err := st.reader(fd)
	if err != nil {
		return -1, nil //nolint:nilerr // VM-level failure reported as -1
	}
	buf := make([]byte, n)
	nread, _ := r.Read(buf)
	handle := st.heap.alloc()
	l, _ := st.heap.get(handle)
	for i := 0; i < nread; i++ {
		l.elems = append(l.elems, int64(buf[i]))
	}
	return handle, nil
}

func (st *state) sysWrite(fd, dataHandle int64) (int64, error) {
	w, err := st.writer(fd)
	if err != nil {
		return -1, nil //nolint:nilerr
	}
	data, err := st.heapBytes(dataHandle)
	if err != nil {
		return 0, err
	}
	n, werr := w.Write(data)
	if werr != nil {
		return -1, nil //nolint:nilerr
	}
	return int64(n), nil
}

// reader/writer resolve a syscall-level fd to a host stream: 0/1/2 are the
// thread's own stdin/stdout/stderr, anything else must have come from a
// prior "open".
func (st *state) reader(fd int64) (io.Reader, error) {
	if fd == 0 {
		return st.th.stdin(), nil
	}
	return st.fds.get(fd)
}

func (st *state) writer(fd int64) (io.Writer, error) {
	switch fd {
	case 1:
		return st.th.stdout(), nil
	case 2:
		return st.th.stderr(), nil
	default:
		return st.fds.get(fd)
	}
}

// --- list builtins (§4.E 20-28) ---

func (st *state) sysListGet(handle, i int64) (int64, error) {
	l, err := st.heap.get(handle)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= int64(len(l.elems)) {
		return 0, &RuntimeError{IP: st.ip, Msg: "list index out of range"}
	}
	return l.elems[i], nil
}

func (st *state) sysListSet(handle, i, v int64) error {
	l, err := st.heap.get(handle)
	if err != nil {
		return err
	}
	if i < 0 || i >= int64(len(l.elems)) {
		return &RuntimeError{IP: st.ip, Msg: "list index out of range"}
	}
	l.elems[i] = v
	return nil
}

func (st *state) sysPush(handle, v int64) error {
	l, err := st.heap.get(handle)
	if err != nil {
		return err
	}
	l.elems = append(l.elems, v)
	return nil
}

func (st *state) sysLen(handle int64) (int64, error) {
	l, err := st.heap.get(handle)
	if err != nil {
		return 0, err
	}
	return int64(len(l.elems)), nil
}

func (st *state) sysClear(handle int64) error {
	l, err := st.heap.get(handle)
	if err != nil {
		return err
	}
	l.elems = l.elems[:0]
	return nil
}

// sysSlice returns a fresh list containing handle[lo:hi]; -1 means
// open-ended on either bound (§4.E row 26).
func (st *state) sysSlice(handle, lo, hi int64) (int64, error) {
	l, err := st.heap.get(handle)
	if err != nil {
		return 0, err
	}
	n := int64(len(l.elems))
	if lo == -1 {
		lo = 0
	}
	if hi == -1 {
		hi = n
	}
	if lo < 0 || hi > n || lo > hi {
		return 0, &RuntimeError{IP: st.ip, Msg: "slice bounds out of range"}
	}
	out := st.heap.alloc()
	ol, _ := st.heap.get(out)
	ol.elems = append(ol.elems, l.elems[lo:hi]...)
	return out, nil
}

// --- console (§4.E 100-101) ---

func (st *state) sysPrint(v int64) error {
	_, err := fmt.Fprintf(st.th.stdout(), "%d\n", v)
	return err
}

func (st *state) sysInput() (int64, error) {
	if st.stdinReader == nil {
		st.stdinReader = bufio.NewReader(st.th.stdin())
	}
	line, err := st.stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return 0, &RuntimeError{IP: st.ip, Msg: "input: " + err.Error()}
	}
	line = trimNewline(line)
	n, perr := strconv.ParseInt(line, 10, 64)
	if perr != nil {
		return 0, &RuntimeError{IP: st.ip, Msg: "input: " + perr.Error()}
	}
	return n, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// heapString/heapBytes read a list's elements back out as a Go string or
// byte slice (used by open/write, which address a filename/data list the
// same way string literals are lowered into lists, §4.C).
func (st *state) heapString(handle int64) (string, error) {
	b, err := st.heapBytes(handle)
	return string(b), err
}

func (st *state) heapBytes(handle int64) ([]byte, error) {
	l, err := st.heap.get(handle)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(l.elems))
	for i, e := range l.elems {
		b[i] = byte(e)
	}
	return b, nil
}
