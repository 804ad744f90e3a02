package compiler

import (
	"fmt"
	"strings"
)

const (
	// SlotSize is the width of one parameter or local slot.
	SlotSize = 4
	// RegisterParams is how many leading parameters arrive in r5..r7.
	RegisterParams = 3
)

// LocKind classifies where a name lives.
type LocKind int

const (
	Unresolved LocKind = iota // not a param or local: a global, addressed by label
	RegisterParam
	StackParam
	Local
)

func (k LocKind) String() string {
	switch k {
	case RegisterParam:
		return "RegisterParam"
	case StackParam:
		return "StackParam"
	case Local:
		return "Local"
	}
	return "Unresolved"
}

// Location is the resolved storage of a name. Index is the parameter
// index for params and the local index for locals.
type Location struct {
	Kind  LocKind
	Index int
}

func (l Location) String() string {
	if l.Kind == Unresolved {
		return "Unresolved"
	}
	return fmt.Sprintf("%s(%d)", l.Kind, l.Index)
}

// Frame is the layout of one function's activation record.
//
// Relative to bp after the prologue:
//
//	bp+4+4(i-3)   stack parameter i (i >= 3), pushed by the caller
//	bp            saved bp
//	bp-4(i+1)     register parameter i (i < 3), spilled from r5+i
//	bp-4(P+i+1)   local i, P = len(Params)
//
// Locals always start below every parameter slot, so parameter and local
// offsets never alias.
type Frame struct {
	Params []string
	Locals []string
}

// NewFrame lays out fn's parameters and every local declared in its body.
func NewFrame(fn *FuncDef) *Frame {
	f := &Frame{}
	for _, p := range fn.Params {
		f.Params = append(f.Params, p.Name)
	}
	if fn.Body != nil {
		f.Locals = CollectLocals(fn.Body)
	}
	return f
}

// Size is the number of bytes the prologue reserves below bp.
func (f *Frame) Size() int {
	return (len(f.Params) + len(f.Locals)) * SlotSize
}

// Resolve looks name up among the parameters, then the locals. The first
// match wins.
func (f *Frame) Resolve(name string) Location {
	for i, p := range f.Params {
		if p == name {
			if i < RegisterParams {
				return Location{Kind: RegisterParam, Index: i}
			}
			return Location{Kind: StackParam, Index: i}
		}
	}
	for i, l := range f.Locals {
		if l == name {
			return Location{Kind: Local, Index: i}
		}
	}
	return Location{Kind: Unresolved}
}

// Offset returns the bp-relative byte offset of loc. Unresolved names have
// no frame slot and report 0.
func (f *Frame) Offset(loc Location) int {
	switch loc.Kind {
	case RegisterParam:
		return -(SlotSize + SlotSize*loc.Index)
	case StackParam:
		return SlotSize + SlotSize*(loc.Index-RegisterParams)
	case Local:
		return -SlotSize * (len(f.Params) + loc.Index + 1)
	}
	return 0
}

// String returns a dump of the layout in slot order.
func (f *Frame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Frame (size %d):\n", f.Size())
	for i, p := range f.Params {
		loc := f.Resolve(p)
		if loc.Index != i {
			fmt.Fprintf(&sb, "  %-20s  shadowed by param %d\n", p, loc.Index)
			continue
		}
		fmt.Fprintf(&sb, "  %-20s  %-18s bp%+d\n", p, loc, f.Offset(loc))
	}
	for i, l := range f.Locals {
		loc := Location{Kind: Local, Index: i}
		fmt.Fprintf(&sb, "  %-20s  %-18s bp%+d\n", l, loc, f.Offset(loc))
	}
	return sb.String()
}

// CollectLocals returns the names of every variable declared in body, in
// depth-first, first-encountered order. One entry per declaration, so a
// name declared twice occupies two slots (only the first is reachable).
func CollectLocals(body *Block) []string {
	var names []string
	var visit func(s Stmt)
	visit = func(s Stmt) {
		switch n := s.(type) {
		case *VarDecl:
			names = append(names, n.Name)
		case *Block:
			if n == nil {
				return
			}
			for _, st := range n.Stmts {
				visit(st)
			}
		case *If:
			visit(n.Then)
			if n.Else != nil {
				visit(n.Else)
			}
		case *While:
			visit(n.Body)
		case *For:
			if n.Init != nil {
				visit(n.Init)
			}
			visit(n.Body)
			if n.Post != nil {
				visit(n.Post)
			}
		}
	}
	visit(body)
	return names
}
