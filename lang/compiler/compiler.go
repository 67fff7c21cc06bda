// Package compiler takes a parsed AST (package ast) and lowers it to a
// symbolic bytecode instruction stream, then resolves that stream into an
// immutable Program (see compiled.go) ready for the interpreter (package
// machine) or the x64 backend (package x64). It also provides a
// pseudo-assembly text format (asm.go) that a Program's source stream can
// round-trip through.
package compiler

import (
	"fmt"

	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/token"
)

// LowerError is a compile-time error raised while lowering an AST: an
// undefined name, a value returned from a proc, or a fn that can fall off
// the end without returning.
type LowerError struct {
	Pos token.Pos
	Msg string
}

func (e *LowerError) Error() string {
	line, col := e.Pos.LineCol()
	return fmt.Sprintf("%d:%d: %s", line, col, e.Msg)
}

// Lower walks prog and returns the symbolic instruction stream §4.C
// describes: globals, function definitions (each under its name as a
// label), and an implicit main collecting the top-level free statements.
// The result is ready for Build.
func Lower(prog *ast.Program) ([]Instruction, error) {
	lc := &lowerer{globals: map[string]bool{}, labelSeq: map[string]int{}}

	var mainBody []ast.Node
	var out []Instruction
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.Global:
			lc.globals[d.Name] = true
		case *ast.Function:
			insns, err := lc.lowerFunction(d)
			if err != nil {
				return nil, err
			}
			out = append(out, insns...)
		default:
			mainBody = append(mainBody, decl)
		}
	}

	mainInsns, err := lc.lowerMain(mainBody)
	if err != nil {
		return nil, err
	}
	return append(out, mainInsns...), nil
}

// lowerer holds lowering state for one program: the declared-global set
// and a per-prefix counter for generating unique label names.
type lowerer struct {
	globals  map[string]bool
	labelSeq map[string]int
}

func (lc *lowerer) label(prefix string) Label {
	n := lc.labelSeq[prefix]
	lc.labelSeq[prefix] = n + 1
	return Label(fmt.Sprintf("%s_%d", prefix, n))
}

// fcomp holds per-function lowering state: the set of names already known
// to be local to this function (§4.C's "current local set").
type fcomp struct {
	*lowerer
	locals map[string]bool
	kind   FnKind
}

func (lc *lowerer) lowerMain(stmts []ast.Node) ([]Instruction, error) {
	fc := &fcomp{lowerer: lc, locals: map[string]bool{}, kind: KindProc}
	var out []Instruction
	out = append(out, Instruction{Lbl: "main"})
	out = append(out, Instruction{Op: ENTER, EnterKind: KindProc})
	for _, s := range stmts {
		ins, err := fc.stmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ins...)
	}
	out = append(out,
		Instruction{Op: CONST, IntArg: 0},
		Instruction{Op: SYSCALL, SysNum: syscallExit},
		Instruction{Op: LEAVE},
	)
	return out, nil
}

func (lc *lowerer) lowerFunction(fn *ast.Function) ([]Instruction, error) {
	kind := KindProc
	if fn.Kind == "fn" {
		kind = KindFn
	}
	fc := &fcomp{lowerer: lc, locals: map[string]bool{}, kind: kind}
	for _, a := range fn.Args {
		fc.locals[a] = true
	}

	var out []Instruction
	out = append(out, Instruction{Lbl: Label(fn.Name)})
	out = append(out, Instruction{Op: ENTER, EnterKind: kind, EnterArgs: fn.Args})

	bodyInsns, fellThrough, err := fc.block(fn.Body)
	if err != nil {
		return nil, err
	}
	out = append(out, bodyInsns...)

	if fellThrough {
		if kind == KindFn {
			return nil, &LowerError{Pos: fn.Pos(), Msg: fmt.Sprintf("function %q must return a value on every path", fn.Name)}
		}
		out = append(out, Instruction{Op: RET})
	}
	out = append(out, Instruction{Op: LEAVE})
	return out, nil
}

// block lowers each statement in sequence. fellThrough reports whether
// control can reach the end of the block without having executed a
// RETURN: false when the block's last statement always returns, either
// directly (a Return) or through every branch of an IfElse that has an
// else arm (see terminates).
func (fc *fcomp) block(b *ast.Block) (insns []Instruction, fellThrough bool, err error) {
	fellThrough = true
	for _, s := range b.Stmts {
		ins, err := fc.stmt(s)
		if err != nil {
			return nil, false, err
		}
		insns = append(insns, ins...)
		fellThrough = !terminates(s)
	}
	return insns, fellThrough, nil
}

// terminates reports whether s always returns from its enclosing
// function: a Return does, directly; an IfElse does only if it has an
// else arm and every arm body and the else body terminate. Any other
// statement, or an IfElse missing its else arm, leaves a path that falls
// through.
func terminates(n ast.Node) bool {
	switch s := n.(type) {
	case *ast.Return:
		return true
	case *ast.IfElse:
		if s.Else == nil || !blockTerminates(s.Else) {
			return false
		}
		for _, arm := range s.Arms {
			if !blockTerminates(arm.Body) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func blockTerminates(b *ast.Block) bool {
	if b == nil || len(b.Stmts) == 0 {
		return false
	}
	return terminates(b.Stmts[len(b.Stmts)-1])
}

func (fc *fcomp) stmt(n ast.Node) ([]Instruction, error) {
	switch s := n.(type) {
	case *ast.Assign:
		return fc.assign(s)
	case *ast.AssignAt:
		return fc.assignAt(s)
	case *ast.IfElse:
		return fc.ifElse(s)
	case *ast.While:
		return fc.while(s)
	case *ast.DoWhile:
		return fc.doWhile(s)
	case *ast.For:
		return fc.forStmt(s)
	case *ast.Return:
		return fc.ret(s)
	case *ast.Pass:
		return nil, nil
	case *ast.Call:
		return fc.call(s)
	default:
		return nil, &LowerError{Pos: n.Pos(), Msg: fmt.Sprintf("unsupported statement %T", n)}
	}
}

func (fc *fcomp) assign(a *ast.Assign) ([]Instruction, error) {
	exprInsns, err := fc.expr(a.Expr)
	if err != nil {
		return nil, err
	}
	var store Instruction
	switch {
	case fc.locals[a.Name]:
		store = Instruction{Op: STORE, NameArg: a.Name}
	case fc.globals[a.Name]:
		store = Instruction{Op: GSTORE, NameArg: a.Name}
	default:
		fc.locals[a.Name] = true
		store = Instruction{Op: STORE, NameArg: a.Name}
	}
	return append(exprInsns, store), nil
}

func (fc *fcomp) assignAt(a *ast.AssignAt) ([]Instruction, error) {
	valueInsns, err := fc.expr(a.Expr)
	if err != nil {
		return nil, err
	}
	idxInsns, err := fc.expr(a.Idx)
	if err != nil {
		return nil, err
	}
	objInsns, err := fc.expr(a.Obj)
	if err != nil {
		return nil, err
	}
	out := append(valueInsns, idxInsns...)
	out = append(out, objInsns...)
	out = append(out, Instruction{Op: SYSCALL, SysNum: syscallListSet})
	return out, nil
}

func (fc *fcomp) ifElse(n *ast.IfElse) ([]Instruction, error) {
	end := fc.label("if_end")
	var out []Instruction
	for _, arm := range n.Arms {
		next := fc.label("if_false")
		condInsns, err := fc.expr(arm.Cond)
		if err != nil {
			return nil, err
		}
		bodyInsns, _, err := fc.block(arm.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, condInsns...)
		out = append(out, Instruction{Op: JZ, Target: next})
		out = append(out, bodyInsns...)
		out = append(out, Instruction{Op: JMP, Target: end})
		out = append(out, Instruction{Lbl: next})
	}
	if n.Else != nil {
		elseInsns, _, err := fc.block(n.Else)
		if err != nil {
			return nil, err
		}
		out = append(out, elseInsns...)
	}
	out = append(out, Instruction{Lbl: end})
	return out, nil
}

func (fc *fcomp) while(n *ast.While) ([]Instruction, error) {
	body := fc.label("while_body")
	cond := fc.label("while_cond")
	bodyInsns, _, err := fc.block(n.Body)
	if err != nil {
		return nil, err
	}
	condInsns, err := fc.expr(n.Cond)
	if err != nil {
		return nil, err
	}
	var out []Instruction
	out = append(out, Instruction{Op: JMP, Target: cond})
	out = append(out, Instruction{Lbl: body})
	out = append(out, bodyInsns...)
	out = append(out, Instruction{Lbl: cond})
	out = append(out, condInsns...)
	out = append(out, Instruction{Op: JNZ, Target: body})
	return out, nil
}

func (fc *fcomp) doWhile(n *ast.DoWhile) ([]Instruction, error) {
	start := fc.label("do_start")
	bodyInsns, _, err := fc.block(n.Body)
	if err != nil {
		return nil, err
	}
	condInsns, err := fc.expr(n.Cond)
	if err != nil {
		return nil, err
	}
	var out []Instruction
	out = append(out, Instruction{Lbl: start})
	out = append(out, bodyInsns...)
	out = append(out, condInsns...)
	out = append(out, Instruction{Op: JNZ, Target: start})
	return out, nil
}

func (fc *fcomp) forStmt(n *ast.For) ([]Instruction, error) {
	body := fc.label("for_body")
	cond := fc.label("for_cond")

	var initInsns []Instruction
	var err error
	if n.Init != nil {
		initInsns, err = fc.stmt(n.Init)
		if err != nil {
			return nil, err
		}
	}
	bodyInsns, _, err := fc.block(n.Body)
	if err != nil {
		return nil, err
	}
	var stepInsns []Instruction
	if n.Step != nil {
		stepInsns, err = fc.stmt(n.Step)
		if err != nil {
			return nil, err
		}
	}
	condInsns, err := fc.expr(n.Cond)
	if err != nil {
		return nil, err
	}

	var out []Instruction
	out = append(out, initInsns...)
	out = append(out, Instruction{Op: JMP, Target: cond})
	out = append(out, Instruction{Lbl: body})
	out = append(out, bodyInsns...)
	out = append(out, stepInsns...)
	out = append(out, Instruction{Lbl: cond})
	out = append(out, condInsns...)
	out = append(out, Instruction{Op: JNZ, Target: body})
	return out, nil
}

func (fc *fcomp) ret(n *ast.Return) ([]Instruction, error) {
	if n.Expr == nil {
		if fc.kind == KindFn {
			return nil, &LowerError{Pos: n.Pos(), Msg: "fn must return a value"}
		}
		return []Instruction{{Op: RET}}, nil
	}
	if fc.kind != KindFn {
		return nil, &LowerError{Pos: n.Pos(), Msg: "proc cannot return a value"}
	}
	insns, err := fc.expr(n.Expr)
	if err != nil {
		return nil, err
	}
	return append(insns, Instruction{Op: RET}), nil
}

// call lowers both a statement-position and expression-position call:
// arguments pushed in reverse order, then SYSCALL if the name is a known
// syscall, else CALL.
func (fc *fcomp) call(n *ast.Call) ([]Instruction, error) {
	var out []Instruction
	for i := len(n.Args) - 1; i >= 0; i-- {
		insns, err := fc.expr(n.Args[i])
		if err != nil {
			return nil, err
		}
		out = append(out, insns...)
	}
	if num, ok := syscallByName(n.Name); ok {
		out = append(out, Instruction{Op: SYSCALL, SysNum: int64(num)})
	} else {
		out = append(out, Instruction{Op: CALL, Target: Label(n.Name)})
	}
	return out, nil
}

var binOpTable = map[token.Token]Op{
	token.ADD: ADD, token.SUB: SUB, token.MUL: MUL, token.DIV: DIV, token.MOD: MOD,
	token.LT: LT, token.LE: LE, token.GT: GT, token.GE: GE, token.EQU: EQ, token.NE: NE,
	token.AND: AND, token.OR: OR,
}

// expr lowers n to post-order instructions leaving exactly one value on
// the operand stack.
func (fc *fcomp) expr(n ast.Node) ([]Instruction, error) {
	switch e := n.(type) {
	case *ast.BinOp:
		xInsns, err := fc.expr(e.X)
		if err != nil {
			return nil, err
		}
		yInsns, err := fc.expr(e.Y)
		if err != nil {
			return nil, err
		}
		op, ok := binOpTable[e.Op]
		if !ok {
			return nil, &LowerError{Pos: e.Pos(), Msg: fmt.Sprintf("unsupported operator %s", e.Op)}
		}
		out := append(xInsns, yInsns...)
		return append(out, Instruction{Op: op}), nil

	case *ast.IntLit:
		return []Instruction{{Op: CONST, IntArg: e.Value}}, nil

	case *ast.CharLit:
		return []Instruction{{Op: CONST, IntArg: e.Value}}, nil

	case *ast.VarExpr:
		if fc.locals[e.Name] {
			return []Instruction{{Op: LOAD, NameArg: e.Name}}, nil
		}
		if fc.globals[e.Name] {
			return []Instruction{{Op: GLOAD, NameArg: e.Name}}, nil
		}
		return nil, &LowerError{Pos: e.Pos(), Msg: fmt.Sprintf("undefined name %q", e.Name)}

	case *ast.Call:
		return fc.call(e)

	case *ast.ListAt:
		idxInsns, err := fc.expr(e.Idx)
		if err != nil {
			return nil, err
		}
		objInsns, err := fc.expr(e.Obj)
		if err != nil {
			return nil, err
		}
		out := append(idxInsns, objInsns...)
		return append(out, Instruction{Op: SYSCALL, SysNum: syscallListGet}), nil

	case *ast.ListLit:
		return fc.listLike(e.Pos(), e.Elems)

	case *ast.StrLit:
		elems := make([]ast.Node, len(e.Value))
		for i, r := range []byte(e.Value) {
			elems[i] = &ast.CharLit{LitPos: e.LitPos, Value: int64(r)}
		}
		return fc.listLike(e.Pos(), elems)

	default:
		return nil, &LowerError{Pos: n.Pos(), Msg: fmt.Sprintf("unsupported expression %T", n)}
	}
}

// listLike lowers a list or string literal: allocate an empty list, store
// it to a compiler-generated temporary local, push each element via the
// "push" syscall, then reload the temporary (§4.C).
func (fc *fcomp) listLike(pos token.Pos, elems []ast.Node) ([]Instruction, error) {
	tmp := fmt.Sprintf("%%tmp_list_%d", fc.labelSeq["tmp_list"])
	fc.labelSeq["tmp_list"]++
	fc.locals[tmp] = true

	var out []Instruction
	out = append(out,
		Instruction{Op: SYSCALL, SysNum: syscallList},
		Instruction{Op: STORE, NameArg: tmp},
	)
	for _, el := range elems {
		elInsns, err := fc.expr(el)
		if err != nil {
			return nil, err
		}
		out = append(out, elInsns...)
		out = append(out,
			Instruction{Op: LOAD, NameArg: tmp},
			Instruction{Op: SYSCALL, SysNum: syscallPush},
		)
	}
	out = append(out, Instruction{Op: LOAD, NameArg: tmp})
	return out, nil
}
