package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// magic is the 8-byte prefix of the binary program image.
const magic = ".noxbc--"

// FnKind distinguishes a function that may return a value (fn) from one
// that may not (proc).
type FnKind int

const (
	KindProc FnKind = iota
	KindFn
)

func (k FnKind) String() string {
	if k == KindFn {
		return "fn"
	}
	return "proc"
}

// Label is a named jump target interleaved with instructions in the
// pre-resolution stream. Labels are either compiler-generated (unique
// within the compilation) or user-given (function names; "main" is
// mandatory).
type Label string

// Instruction is one entry of the pre-resolution source stream: either a
// bare label, or an opcode with its opcode-specific argument. IsLabel
// reports which.
type Instruction struct {
	Lbl Label // non-empty for a label marker

	Op      Op
	IntArg  int64  // CONST
	NameArg string // LOAD/STORE/GLOAD/GSTORE local or global name
	Target  Label  // JMP/JZ/JNZ/CALL target label
	SysNum  int64  // SYSCALL number

	// ENTER only
	EnterKind FnKind
	EnterArgs []string // parameter names, in declaration order
}

// IsLabel reports whether ins is a label marker rather than an opcode.
func (ins Instruction) IsLabel() bool { return ins.Lbl != "" }

// Fn describes one function's shape after Build: its parameter and local
// names in slot order, whether it may return a value, and the half-open
// [Start, End) range it occupies in the resolved instruction vector.
type Fn struct {
	Name         string
	Args         []string
	Locals       []string
	ReturnsValue bool
	Start, End   int
}

func (f *Fn) NumArgs() int   { return len(f.Args) }
func (f *Fn) NumLocals() int { return len(f.Locals) }

// ResolvedInstruction is one entry of the resolved instruction vector:
// labels are gone, LOAD/STORE/GLOAD/GSTORE name a slot/global index
// instead of a name, and JMP/JZ/JNZ/CALL target an instruction index
// instead of a label.
type ResolvedInstruction struct {
	Op     Op
	IntArg int64 // CONST literal; LOAD/STORE/GLOAD/GSTORE slot or global index; JMP/JZ/JNZ/CALL target index; SYSCALL number.

	EnterReturnsValue bool
	EnterNArgs        int
	EnterNLocals      int
}

// Program is the immutable result of building an instruction stream: the
// original source retained for reflection/rendering, the resolved
// instructions actually run or assembled, the sorted global name table,
// the per-function metadata, and the entry point.
type Program struct {
	Source       []Instruction
	Instructions []ResolvedInstruction
	Globals      []string // sorted
	Functions    map[string]*Fn
	Entry        int
}

// BuildError is a fatal error raised while building a Program from a
// source instruction stream: an undefined label, an undefined variable, a
// duplicate label, or inconsistent ENTER metadata.
type BuildError struct {
	Msg string
}

func (e *BuildError) Error() string { return "build: " + e.Msg }

// Build runs the §4.A resolution procedure over a pre-resolution
// instruction stream (normally produced by Lower) and returns an immutable
// Program, or a *BuildError.
func Build(source []Instruction) (*Program, error) {
	globals := scanGlobals(source)
	globalIndex := make(map[string]int, len(globals))
	for i, g := range globals {
		globalIndex[g] = i
	}

	functions, err := discoverFunctions(source)
	if err != nil {
		return nil, err
	}

	labelIndex, err := indexLabels(source)
	if err != nil {
		return nil, err
	}

	resolved, err := resolveStream(source, functions, globalIndex, labelIndex)
	if err != nil {
		return nil, err
	}

	for name, fn := range functions {
		start, ok := labelIndex[Label(name)]
		if !ok {
			return nil, &BuildError{Msg: fmt.Sprintf("function %q has no label", name)}
		}
		fn.Start = start
		fn.End = findFunctionEnd(resolved, start)
	}

	entry, ok := labelIndex["main"]
	if !ok {
		return nil, &BuildError{Msg: `no "main" label`}
	}

	return &Program{
		Source:       source,
		Instructions: resolved,
		Globals:      globals,
		Functions:    functions,
		Entry:        entry,
	}, nil
}

// scanGlobals collects the operand of every GLOAD/GSTORE into the sorted
// globals list (§4.A step 1).
func scanGlobals(source []Instruction) []string {
	set := make(map[string]struct{})
	for _, ins := range source {
		if !ins.IsLabel() && (ins.Op == GLOAD || ins.Op == GSTORE) {
			set[ins.NameArg] = struct{}{}
		}
	}
	names := maps.Keys(set)
	slices.Sort(names)
	return names
}

// discoverFunctions walks the stream (§4.A step 2): the function name is
// the label immediately preceding ENTER, and locals are recorded in
// first-STORE order until LEAVE.
func discoverFunctions(source []Instruction) (map[string]*Fn, error) {
	functions := make(map[string]*Fn)

	var curName string
	var curFn *Fn
	var firstIndex map[string]int
	var order []string
	var lastLabel Label

	for _, ins := range source {
		if ins.IsLabel() {
			lastLabel = ins.Lbl
			continue
		}
		switch ins.Op {
		case ENTER:
			if curFn != nil {
				return nil, &BuildError{Msg: fmt.Sprintf("function %q: ENTER nested inside function %q", lastLabel, curName)}
			}
			if lastLabel == "" {
				return nil, &BuildError{Msg: "ENTER without a preceding label"}
			}
			curName = string(lastLabel)
			if _, dup := functions[curName]; dup {
				return nil, &BuildError{Msg: fmt.Sprintf("duplicate label %q", curName)}
			}
			curFn = &Fn{
				Name:         curName,
				Args:         append([]string(nil), ins.EnterArgs...),
				ReturnsValue: ins.EnterKind == KindFn,
			}
			firstIndex = make(map[string]int)
			order = nil
		case STORE:
			if curFn == nil {
				return nil, &BuildError{Msg: fmt.Sprintf("STORE %q outside any function", ins.NameArg)}
			}
			if isArg(curFn.Args, ins.NameArg) {
				continue
			}
			if _, seen := firstIndex[ins.NameArg]; !seen {
				firstIndex[ins.NameArg] = len(order)
				order = append(order, ins.NameArg)
			}
		case LEAVE:
			if curFn == nil {
				return nil, &BuildError{Msg: "LEAVE without a matching ENTER"}
			}
			curFn.Locals = order
			functions[curName] = curFn
			curFn = nil
			curName = ""
		}
	}
	if curFn != nil {
		return nil, &BuildError{Msg: fmt.Sprintf("function %q: missing LEAVE", curName)}
	}
	return functions, nil
}

func isArg(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

// indexLabels maps each label name to the resolved index it will occupy:
// its position in the stream minus the count of labels preceding it.
func indexLabels(source []Instruction) (map[Label]int, error) {
	index := make(map[Label]int)
	resolvedIdx := 0
	for _, ins := range source {
		if ins.IsLabel() {
			if _, dup := index[ins.Lbl]; dup {
				return nil, &BuildError{Msg: fmt.Sprintf("duplicate label %q", ins.Lbl)}
			}
			index[ins.Lbl] = resolvedIdx
			continue
		}
		resolvedIdx++
	}
	return index, nil
}

// resolveStream produces the label-free resolved vector (§4.A steps 3-4),
// rewriting LOAD/STORE/GLOAD/GSTORE names to slot/global indices and
// JMP/JZ/JNZ/CALL targets to resolved instruction indices.
func resolveStream(source []Instruction, functions map[string]*Fn, globalIndex map[string]int, labelIndex map[Label]int) ([]ResolvedInstruction, error) {
	resolved := make([]ResolvedInstruction, 0, len(source))

	var curFn *Fn
	var lastLabel Label
	for _, ins := range source {
		if ins.IsLabel() {
			lastLabel = ins.Lbl
			continue
		}

		r := ResolvedInstruction{Op: ins.Op}
		switch ins.Op {
		case CONST:
			r.IntArg = ins.IntArg
		case SYSCALL:
			r.IntArg = ins.SysNum
		case ENTER:
			fn, ok := functions[string(lastLabel)]
			if !ok {
				return nil, &BuildError{Msg: fmt.Sprintf("ENTER for undiscovered function %q", lastLabel)}
			}
			curFn = fn
			r.EnterReturnsValue = ins.EnterKind == KindFn
			r.EnterNArgs = len(ins.EnterArgs)
			r.EnterNLocals = len(fn.Locals)
		case LEAVE:
			curFn = nil
		case LOAD, STORE:
			slot, err := localSlot(curFn, ins.NameArg)
			if err != nil {
				return nil, err
			}
			r.IntArg = int64(slot)
		case GLOAD, GSTORE:
			idx, ok := globalIndex[ins.NameArg]
			if !ok {
				return nil, &BuildError{Msg: fmt.Sprintf("undeclared global %q", ins.NameArg)}
			}
			r.IntArg = int64(idx)
		case JMP, JZ, JNZ, CALL:
			idx, ok := labelIndex[ins.Target]
			if !ok {
				return nil, &BuildError{Msg: fmt.Sprintf("undefined label %q", ins.Target)}
			}
			r.IntArg = int64(idx)
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

func localSlot(fn *Fn, name string) (int, error) {
	if fn == nil {
		return 0, &BuildError{Msg: fmt.Sprintf("LOAD/STORE %q outside any function", name)}
	}
	for i, a := range fn.Args {
		if a == name {
			return i, nil
		}
	}
	for i, l := range fn.Locals {
		if l == name {
			return len(fn.Args) + i, nil
		}
	}
	return 0, &BuildError{Msg: fmt.Sprintf("undeclared local %q in function %q", name, fn.Name)}
}

// findFunctionEnd returns the resolved index one past the function's body:
// the next ENTER after start, or the end of the vector.
func findFunctionEnd(resolved []ResolvedInstruction, start int) int {
	for i := start + 1; i < len(resolved); i++ {
		if resolved[i].Op == ENTER {
			return i
		}
	}
	return len(resolved)
}

// MarshalBinary serializes p per §4.A: 8-byte magic, u32 n_globals, u32
// entry, then one 16-byte record per resolved instruction.
func (p *Program) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(magic)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(p.Globals))); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(p.Entry)); err != nil {
		return nil, err
	}
	for _, ins := range p.Instructions {
		var rec [16]byte
		rec[0] = byte(ins.Op)
		var arg uint64
		if ins.Op == ENTER {
			arg = uint64(uint32(ins.EnterNLocals))<<32 | uint64(uint32(ins.EnterNArgs))
		} else {
			arg = uint64(ins.IntArg)
		}
		binary.LittleEndian.PutUint64(rec[8:], arg)
		buf.Write(rec[:])
	}
	return buf.Bytes(), nil
}

// BinaryImage is the decoded shape of a §4.A binary program image: the
// resolved instructions plus the header fields. It omits Source and
// Functions, which exist only pre-resolution; a caller needing those
// should instead keep the Program that produced the image, or round-trip
// through the text format (§4.D), which retains Source.
type BinaryImage struct {
	Instructions []ResolvedInstruction
	NGlobals     int
	Entry        int
}

// UnmarshalBinary parses the §4.A binary format.
func UnmarshalBinary(data []byte) (*BinaryImage, error) {
	if len(data) < 16 || string(data[:8]) != magic {
		return nil, fmt.Errorf("compiler: bad magic")
	}
	img := &BinaryImage{
		NGlobals: int(binary.LittleEndian.Uint32(data[8:12])),
		Entry:    int(binary.LittleEndian.Uint32(data[12:16])),
	}
	rest := data[16:]
	if len(rest)%16 != 0 {
		return nil, fmt.Errorf("compiler: truncated instruction record")
	}
	for i := 0; i < len(rest); i += 16 {
		rec := rest[i : i+16]
		op := Op(rec[0])
		arg := binary.LittleEndian.Uint64(rec[8:])
		ri := ResolvedInstruction{Op: op}
		if op == ENTER {
			ri.EnterNArgs = int(int32(uint32(arg)))
			ri.EnterNLocals = int(int32(uint32(arg >> 32)))
		} else {
			ri.IntArg = int64(arg)
		}
		img.Instructions = append(img.Instructions, ri)
	}
	return img, nil
}

// SortedFnNames returns the program's function names in Start order, the
// order the x64 backend emits them in (§4.F "Emitted layout").
func (p *Program) SortedFnNames() []string {
	names := maps.Keys(p.Functions)
	sort.Slice(names, func(i, j int) bool {
		return p.Functions[names[i]].Start < p.Functions[names[j]].Start
	})
	return names
}
