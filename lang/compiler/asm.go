package compiler

// This file implements the §4.D textual form of a program's source
// (pre-resolution) instruction stream: one instruction per line, a
// lower-case opcode mnemonic, space-separated operands, labels as
// "name:" alone on a line or prefixed to an instruction line. It exists so
// bytecode can be written and inspected by hand without going through the
// source-language front end (package scanner/parser), and so a Program
// built from it can be disassembled back to the same text.
//
// Render followed by Parse reproduces the original source stream
// structurally (the round-trip property in §8): Render prints every label,
// generated or user-given, verbatim, and Parse reads each one back as the
// same string, so no renumbering step is needed for the round trip to hold.

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ParseError is a textual-format syntax error, carrying the 1-based source
// line it was found on.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("asm:%d: %s", e.Line, e.Msg) }

// Parse reads the §4.D text format and returns the pre-resolution
// instruction stream (suitable for Build).
func Parse(src []byte) ([]Instruction, error) {
	var out []Instruction
	sc := bufio.NewScanner(bytes.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// A bare label: "name:" with nothing after it.
		if strings.HasSuffix(line, ":") && !strings.Contains(line[:len(line)-1], " ") {
			name := strings.TrimSuffix(line, ":")
			if name == "" {
				return nil, &ParseError{lineNo, "empty label"}
			}
			out = append(out, Instruction{Lbl: Label(name)})
			continue
		}

		// A label prefixed to an instruction: "name: op args".
		if idx := strings.Index(line, ":"); idx >= 0 {
			maybeLabel := line[:idx]
			if !strings.ContainsAny(maybeLabel, " \t") && maybeLabel != "" {
				out = append(out, Instruction{Lbl: Label(maybeLabel)})
				line = strings.TrimSpace(line[idx+1:])
			}
		}
		if line == "" {
			continue
		}

		ins, err := parseInsn(line, lineNo)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func parseInsn(line string, lineNo int) (Instruction, error) {
	fields := strings.Fields(line)
	mnemonic := strings.ToLower(fields[0])

	if mnemonic == "enter" {
		return parseEnter(line, lineNo)
	}

	op, ok := lookupOp(mnemonic)
	if !ok {
		return Instruction{}, &ParseError{lineNo, fmt.Sprintf("unknown opcode %q", fields[0])}
	}

	if !op.hasArg() {
		if len(fields) != 1 {
			return Instruction{}, &ParseError{lineNo, fmt.Sprintf("%s takes no operand", mnemonic)}
		}
		return Instruction{Op: op}, nil
	}

	if len(fields) != 2 {
		return Instruction{}, &ParseError{lineNo, fmt.Sprintf("%s requires exactly one operand", mnemonic)}
	}
	arg := fields[1]

	switch op {
	case CONST:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Instruction{}, &ParseError{lineNo, fmt.Sprintf("bad integer operand %q", arg)}
		}
		return Instruction{Op: CONST, IntArg: n}, nil
	case LOAD, STORE, GLOAD, GSTORE:
		return Instruction{Op: op, NameArg: arg}, nil
	case JMP, JZ, JNZ, CALL:
		return Instruction{Op: op, Target: Label(arg)}, nil
	case SYSCALL:
		if n, ok := syscallByName(arg); ok {
			return Instruction{Op: SYSCALL, SysNum: int64(n)}, nil
		}
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Instruction{}, &ParseError{lineNo, fmt.Sprintf("unknown syscall %q", arg)}
		}
		return Instruction{Op: SYSCALL, SysNum: n}, nil
	default:
		return Instruction{}, &ParseError{lineNo, fmt.Sprintf("unexpected opcode %s with operand", mnemonic)}
	}
}

// parseEnter parses "enter fn(a, b, c)" or "enter proc(a)" or "enter proc()".
func parseEnter(line string, lineNo int) (Instruction, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "enter"))
	open := strings.IndexByte(rest, '(')
	shut := strings.LastIndexByte(rest, ')')
	if open < 0 || shut < open {
		return Instruction{}, &ParseError{lineNo, "malformed enter: expected kind(args)"}
	}
	kindStr := strings.TrimSpace(rest[:open])
	var kind FnKind
	switch kindStr {
	case "fn":
		kind = KindFn
	case "proc":
		kind = KindProc
	default:
		return Instruction{}, &ParseError{lineNo, fmt.Sprintf("enter kind must be fn or proc, got %q", kindStr)}
	}
	argsStr := strings.TrimSpace(rest[open+1 : shut])
	var args []string
	if argsStr != "" {
		for _, a := range strings.Split(argsStr, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}
	return Instruction{Op: ENTER, EnterKind: kind, EnterArgs: args}, nil
}

// Render writes the §4.D text form of source (normally Program.Source),
// printing every label — generated or user-given — verbatim.
func Render(source []Instruction) []byte {
	var b strings.Builder
	for _, ins := range source {
		if ins.IsLabel() {
			fmt.Fprintf(&b, "%s:\n", ins.Lbl)
			continue
		}
		renderInsn(&b, ins)
	}
	return []byte(b.String())
}

// RenderResolved writes a disassembly of a resolved instruction vector
// (normally decoded from the binary image via UnmarshalBinary). Unlike
// Render, it has no names or user labels to work with — BinaryImage
// retains only indices — so locals/globals print as slot/global indices
// and jump targets are synthesized labels at each instruction index a
// JMP/JZ/JNZ/CALL targets, in the same "L<idx>" style the x64 backend uses
// for its own generated labels.
func RenderResolved(img *BinaryImage) []byte {
	targets := map[int]bool{}
	for _, ins := range img.Instructions {
		switch ins.Op {
		case JMP, JZ, JNZ, CALL:
			targets[int(ins.IntArg)] = true
		}
	}

	var b strings.Builder
	for i, ins := range img.Instructions {
		if targets[i] {
			fmt.Fprintf(&b, "L%d:\n", i)
		}
		renderResolvedInsn(&b, ins)
	}
	return []byte(b.String())
}

func renderResolvedInsn(b *strings.Builder, ins ResolvedInstruction) {
	switch ins.Op {
	case CONST:
		fmt.Fprintf(b, "const %d\n", ins.IntArg)
	case LOAD, STORE:
		fmt.Fprintf(b, "%s %%%d\n", ins.Op, ins.IntArg)
	case GLOAD, GSTORE:
		fmt.Fprintf(b, "%s g%d\n", ins.Op, ins.IntArg)
	case JMP, JZ, JNZ, CALL:
		fmt.Fprintf(b, "%s L%d\n", ins.Op, ins.IntArg)
	case SYSCALL:
		if s, ok := Syscalls[int(ins.IntArg)]; ok {
			fmt.Fprintf(b, "syscall %s\n", s.Name)
		} else {
			fmt.Fprintf(b, "syscall %d\n", ins.IntArg)
		}
	case ENTER:
		kind := "proc"
		if ins.EnterReturnsValue {
			kind = "fn"
		}
		fmt.Fprintf(b, "enter %s(%d args, %d locals)\n", kind, ins.EnterNArgs, ins.EnterNLocals)
	default:
		fmt.Fprintf(b, "%s\n", ins.Op)
	}
}

func renderInsn(b *strings.Builder, ins Instruction) {
	switch ins.Op {
	case CONST:
		fmt.Fprintf(b, "const %d\n", ins.IntArg)
	case LOAD, STORE, GLOAD, GSTORE:
		fmt.Fprintf(b, "%s %s\n", ins.Op, ins.NameArg)
	case JMP, JZ, JNZ, CALL:
		fmt.Fprintf(b, "%s %s\n", ins.Op, ins.Target)
	case SYSCALL:
		if s, ok := Syscalls[int(ins.SysNum)]; ok {
			fmt.Fprintf(b, "syscall %s\n", s.Name)
		} else {
			fmt.Fprintf(b, "syscall %d\n", ins.SysNum)
		}
	case ENTER:
		fmt.Fprintf(b, "enter %s(%s)\n", ins.EnterKind, strings.Join(ins.EnterArgs, ", "))
	default:
		fmt.Fprintf(b, "%s\n", ins.Op)
	}
}
