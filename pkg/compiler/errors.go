package compiler

import (
	"errors"
	"fmt"
)

// Fatal error categories. Generate wraps them in a *FatalError, so callers
// test with errors.Is.
var (
	ErrUnknownNode      = errors.New("unknown node")
	ErrAddrOfNonIdent   = errors.New("address-of requires an identifier")
	ErrBadAssignTarget  = errors.New("invalid assignment target")
	ErrUnsupportedOp    = errors.New("unsupported operator")
	ErrBadIncDecOperand = errors.New("increment/decrement requires an identifier")
	ErrLoopControl      = errors.New("loop control outside of loop")
)

// FatalError aborts code generation. Func names the function being
// lowered, or is empty at module level.
type FatalError struct {
	Func   string
	Node   string
	Reason error
}

func (e *FatalError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("codegen: %v: %s", e.Reason, e.Node)
	}
	return fmt.Sprintf("codegen: in %s: %v: %s", e.Func, e.Reason, e.Node)
}

func (e *FatalError) Unwrap() error { return e.Reason }

func (cg *CodeGen) fatal(reason error, n Node) error {
	return &FatalError{Func: cg.fn, Node: fmt.Sprint(n), Reason: reason}
}

// Diagnostic is a non-fatal problem reported during generation. The
// emitted assembly carries a matching "; error:" comment.
type Diagnostic struct {
	Func    string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", d.Func, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Func, d.Message)
}
