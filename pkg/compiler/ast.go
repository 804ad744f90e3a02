package compiler

import (
	"fmt"
	"strings"
)

// Node is implemented by every syntax tree node.
type Node interface {
	String() string
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
// The node set is closed: only types in this package implement it.
type Expr interface {
	Node
	exprNode()
}

// IntLit is an integer constant. Value keeps the source spelling and is
// copied verbatim into the emitted assembly.
//
//	int x = 10;
//	        ^^  IntLit{Value: "10"}
type IntLit struct {
	Value string
}

func (*IntLit) exprNode()        {}
func (l *IntLit) String() string { return l.Value }

// Ident is a read of a named variable.
type Ident struct {
	Name string
}

func (*Ident) exprNode()        {}
func (v *Ident) String() string { return v.Name }

// BinaryExpr represents Left Op Right. Op is one of PLUS, MINUS, STAR,
// SLASH, PERCENT, AND_LOGICAL, OR_LOGICAL or a comparison token.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, opSymbol(b.Op), b.Right)
}

// UnaryOp selects the operation of a UnaryExpr.
type UnaryOp int

const (
	Neg UnaryOp = iota
	AddrOf
	Deref
	PreInc
	PostInc
	PreDec
	PostDec
)

var unaryOpNames = [...]string{
	Neg:     "Neg",
	AddrOf:  "AddrOf",
	Deref:   "Deref",
	PreInc:  "PreInc",
	PostInc: "PostInc",
	PreDec:  "PreDec",
	PostDec: "PostDec",
}

func (op UnaryOp) String() string {
	if int(op) >= 0 && int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// UnaryExpr represents -x, &x, *p, ++x, x++, --x and x--.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}
func (u *UnaryExpr) String() string {
	switch u.Op {
	case Neg:
		return fmt.Sprintf("(-%s)", u.Operand)
	case AddrOf:
		return fmt.Sprintf("(&%s)", u.Operand)
	case Deref:
		return fmt.Sprintf("(*%s)", u.Operand)
	case PreInc:
		return fmt.Sprintf("(++%s)", u.Operand)
	case PostInc:
		return fmt.Sprintf("(%s++)", u.Operand)
	case PreDec:
		return fmt.Sprintf("(--%s)", u.Operand)
	case PostDec:
		return fmt.Sprintf("(%s--)", u.Operand)
	}
	return fmt.Sprintf("(%s %s)", u.Op, u.Operand)
}

// CallExpr represents name(args).
type CallExpr struct {
	Name string
	Args []Expr
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	Node
	stmtNode()
}

// VarDecl represents  int name = expr;  Init may be nil.
type VarDecl struct {
	Name         string
	Init         Expr
	PointerLevel int
}

func (*VarDecl) stmtNode() {}
func (d *VarDecl) String() string {
	typeStr := "int" + strings.Repeat("*", d.PointerLevel)
	if d.Init == nil {
		return fmt.Sprintf("VarDecl(%s %s)", typeStr, d.Name)
	}
	return fmt.Sprintf("VarDecl(%s %s = %s)", typeStr, d.Name, d.Init)
}

// Assign represents  Target = Value;  Target is an Ident or a Deref.
type Assign struct {
	Target Expr
	Value  Expr
}

func (*Assign) stmtNode() {}
func (a *Assign) String() string {
	return fmt.Sprintf("Assign(%s = %s)", a.Target, a.Value)
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	X Expr
}

func (*ExprStmt) stmtNode() {}
func (e *ExprStmt) String() string {
	return fmt.Sprintf("ExprStmt(%s)", e.X)
}

// Return represents  return [expr];
type Return struct {
	Value Expr // may be nil
}

func (*Return) stmtNode() {}
func (r *Return) String() string {
	if r.Value == nil {
		return "Return"
	}
	return fmt.Sprintf("Return(%s)", r.Value)
}

// Block represents { statement; ... }. It introduces no scope.
type Block struct {
	Stmts []Stmt
}

func (*Block) stmtNode() {}
func (b *Block) String() string {
	return fmt.Sprintf("Block(len=%d)", len(b.Stmts))
}

// If represents if (cond) then [else els].
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt // may be nil
}

func (*If) stmtNode() {}
func (i *If) String() string {
	if i.Else != nil {
		return fmt.Sprintf("If(%s then %s else %s)", i.Cond, i.Then, i.Else)
	}
	return fmt.Sprintf("If(%s then %s)", i.Cond, i.Then)
}

type While struct {
	Cond Expr
	Body Stmt
}

func (*While) stmtNode() {}
func (w *While) String() string {
	return fmt.Sprintf("While(%s do %s)", w.Cond, w.Body)
}

// For represents for (init; cond; post) body. Every clause may be nil.
type For struct {
	Init Stmt
	Cond Expr
	Post Stmt
	Body Stmt
}

func (*For) stmtNode() {}
func (f *For) String() string {
	return fmt.Sprintf("For(init=%v, cond=%v, post=%v, body=%s)", f.Init, f.Cond, f.Post, f.Body)
}

type Break struct {
	Line int
}

func (*Break) stmtNode()        {}
func (s *Break) String() string { return "Break" }

type Continue struct {
	Line int
}

func (*Continue) stmtNode()        {}
func (s *Continue) String() string { return "Continue" }

//  Top level

// TopLevel is a function definition or a stray statement at file scope.
type TopLevel interface {
	Node
	topLevelNode()
}

// Param is one declared function parameter.
type Param struct {
	Type string // "int", "int*", ...
	Name string
}

// FuncDef represents  int name(params) { body }.
type FuncDef struct {
	ReturnType string
	Name       string
	Params     []Param
	Body       *Block
}

func (*FuncDef) topLevelNode() {}
func (f *FuncDef) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type + " " + p.Name
	}
	return fmt.Sprintf("FuncDef(%s %s(%s))", f.ReturnType, f.Name, strings.Join(params, ", "))
}

// TopLevelStmt wraps a statement found outside any function. Code
// generation ignores it.
type TopLevelStmt struct {
	Stmt Stmt
}

func (*TopLevelStmt) topLevelNode() {}
func (t *TopLevelStmt) String() string {
	return fmt.Sprintf("TopLevelStmt(%s)", t.Stmt)
}

// Program is the root of a parsed translation unit.
type Program struct {
	Decls []TopLevel
}

func (p *Program) String() string {
	return fmt.Sprintf("Program(len=%d)", len(p.Decls))
}

// Funcs returns the function definitions in declaration order.
func (p *Program) Funcs() []*FuncDef {
	var fns []*FuncDef
	for _, d := range p.Decls {
		if fn, ok := d.(*FuncDef); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func opSymbol(op TokenType) string {
	switch op {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case AND_LOGICAL:
		return "&&"
	case OR_LOGICAL:
		return "||"
	case EQUALS:
		return "=="
	case NOT_EQ:
		return "!="
	case LESS:
		return "<"
	case GREATER:
		return ">"
	case LESS_EQ:
		return "<="
	case GREATER_EQ:
		return ">="
	}
	return op.String()
}

// Dump renders n and its children as an indented tree, one node per line.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *Program:
		fmt.Fprintf(sb, "%sProgram\n", indent)
		for _, d := range n.Decls {
			dump(sb, d, depth+1)
		}
	case *FuncDef:
		fmt.Fprintf(sb, "%s%s\n", indent, n)
		if n.Body != nil {
			dump(sb, n.Body, depth+1)
		}
	case *TopLevelStmt:
		fmt.Fprintf(sb, "%sTopLevelStmt\n", indent)
		dump(sb, n.Stmt, depth+1)
	case *Block:
		fmt.Fprintf(sb, "%sBlock\n", indent)
		for _, s := range n.Stmts {
			dump(sb, s, depth+1)
		}
	case *If:
		fmt.Fprintf(sb, "%sIf %s\n", indent, n.Cond)
		dump(sb, n.Then, depth+1)
		if n.Else != nil {
			fmt.Fprintf(sb, "%sElse\n", indent)
			dump(sb, n.Else, depth+1)
		}
	case *While:
		fmt.Fprintf(sb, "%sWhile %s\n", indent, n.Cond)
		dump(sb, n.Body, depth+1)
	case *For:
		fmt.Fprintf(sb, "%sFor\n", indent)
		if n.Init != nil {
			fmt.Fprintf(sb, "%s  init: %s\n", indent, n.Init)
		}
		if n.Cond != nil {
			fmt.Fprintf(sb, "%s  cond: %s\n", indent, n.Cond)
		}
		if n.Post != nil {
			fmt.Fprintf(sb, "%s  post: %s\n", indent, n.Post)
		}
		dump(sb, n.Body, depth+1)
	case nil:
		fmt.Fprintf(sb, "%s<nil>\n", indent)
	default:
		fmt.Fprintf(sb, "%s%s\n", indent, n)
	}
}
