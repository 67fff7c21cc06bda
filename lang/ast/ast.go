// Package ast defines the node types of the parsed program tree that forms
// the contract between the source-language parser and the compiler. The AST
// shape is fixed by that contract (see the node kinds below); the parser
// that builds it and the compiler that consumes it are separate packages so
// that either can be replaced independently, so long as the shape described
// here is preserved.
package ast

import "github.com/noxlang/nox/lang/token"

// Node is implemented by every AST node. Pos returns the position of the
// node's first token, used for diagnostics during lowering.
type Node interface {
	Pos() token.Pos
}

// Program is the root node: an ordered sequence of top-level declarations
// and statements (globals, function definitions, and free statements that
// become the body of the implicit main).
type Program struct {
	Decls []Node
}

func (p *Program) Pos() token.Pos {
	if len(p.Decls) == 0 {
		return 0
	}
	return p.Decls[0].Pos()
}

// Global declares a name as belonging to the program's global table.
type Global struct {
	NamePos token.Pos
	Name    string
}

func (g *Global) Pos() token.Pos { return g.NamePos }

// Function is a top-level function definition. Kind is "proc" or "fn";
// RetType is the optional "-> type" annotation, which the parser accepts on
// either kind (its presence is purely documentary, the lowering does not
// type-check it).
type Function struct {
	FnPos   token.Pos
	Name    string
	Kind    string // "proc" | "fn"
	Args    []string
	RetType string // "" when no "-> type" annotation is given
	Body    *Block
}

func (f *Function) Pos() token.Pos { return f.FnPos }

// Block is a brace-delimited sequence of statements.
type Block struct {
	LBracePos token.Pos
	Stmts     []Node
}

func (b *Block) Pos() token.Pos { return b.LBracePos }

// Assign is `name = expr`.
type Assign struct {
	NamePos token.Pos
	Name    string
	Expr    Node
}

func (a *Assign) Pos() token.Pos { return a.NamePos }

// AssignAt is `obj[idx] = expr` (index write).
type AssignAt struct {
	LBrackPos token.Pos
	Obj       Node
	Idx       Node
	Expr      Node
}

func (a *AssignAt) Pos() token.Pos { return a.LBrackPos }

// IfArm is one `if`/`else if` arm: a condition and the block run when it is
// truthy.
type IfArm struct {
	Cond Node
	Body *Block
}

// IfElse is `if c {T} else if c2 {T2} ... else {E}`. Else is nil when there
// is no trailing else clause.
type IfElse struct {
	IfPos token.Pos
	Arms  []IfArm
	Else  *Block
}

func (n *IfElse) Pos() token.Pos { return n.IfPos }

// While is `while c {B}`.
type While struct {
	WhilePos token.Pos
	Cond     Node
	Body     *Block
}

func (n *While) Pos() token.Pos { return n.WhilePos }

// DoWhile is `do {B} while c`.
type DoWhile struct {
	DoPos token.Pos
	Body  *Block
	Cond  Node
}

func (n *DoWhile) Pos() token.Pos { return n.DoPos }

// For is `for init, c, step { B }`. Init and Step are statement nodes
// (typically *Assign); either may be nil.
type For struct {
	ForPos token.Pos
	Init   Node
	Cond   Node
	Step   Node
	Body   *Block
}

func (n *For) Pos() token.Pos { return n.ForPos }

// Return is `return expr` or bare `return`. Expr is nil for the bare form.
type Return struct {
	ReturnPos token.Pos
	Expr      Node
}

func (n *Return) Pos() token.Pos { return n.ReturnPos }

// Pass is a no-op statement.
type Pass struct {
	PassPos token.Pos
}

func (n *Pass) Pos() token.Pos { return n.PassPos }

// Call is `name(args...)`, used both as a statement and as an expression.
type Call struct {
	NamePos token.Pos
	Name    string
	Args    []Node
}

func (n *Call) Pos() token.Pos { return n.NamePos }

// BinOp is a binary operator application. Op.Type is one of the token kinds
// ADD, SUB, MUL, DIV, MOD, LT, LE, GT, GE, EQU, NE, AND, OR and names the
// opcode the lowering emits.
type BinOp struct {
	Op    token.Token
	OpPos token.Pos
	X, Y  Node
}

func (n *BinOp) Pos() token.Pos { return n.OpPos }

// IntLit is an integer literal.
type IntLit struct {
	LitPos token.Pos
	Value  int64
}

func (n *IntLit) Pos() token.Pos { return n.LitPos }

// CharLit is a character literal; Value is its ordinal.
type CharLit struct {
	LitPos token.Pos
	Value  int64
}

func (n *CharLit) Pos() token.Pos { return n.LitPos }

// ListLit is `[e1, e2, ...]`.
type ListLit struct {
	LBrackPos token.Pos
	Elems     []Node
}

func (n *ListLit) Pos() token.Pos { return n.LBrackPos }

// StrLit is a string literal, lowered the same way as a list literal of
// character ordinals.
type StrLit struct {
	LitPos token.Pos
	Value  string
}

func (n *StrLit) Pos() token.Pos { return n.LitPos }

// ListAt is `a[i]` (index read).
type ListAt struct {
	LBrackPos token.Pos
	Obj       Node
	Idx       Node
}

func (n *ListAt) Pos() token.Pos { return n.LBrackPos }

// VarExpr is a bare identifier used in an expression context.
type VarExpr struct {
	NamePos token.Pos
	Name    string
}

func (n *VarExpr) Pos() token.Pos { return n.NamePos }
