package compiler

// isLeaf reports whether e can be lowered into a register without touching
// any other register. Leaves never need the left operand saved around them.
func isLeaf(e Expr) bool {
	switch n := e.(type) {
	case *IntLit, *Ident:
		return true
	case *UnaryExpr:
		switch n.Op {
		case AddrOf:
			_, ok := n.Operand.(*Ident)
			return ok
		case Deref:
			return isLeaf(n.Operand)
		}
	}
	return false
}

// containsCall reports whether evaluating e performs a call, which
// clobbers the argument registers.
func containsCall(e Expr) bool {
	switch n := e.(type) {
	case *CallExpr:
		return true
	case *BinaryExpr:
		return containsCall(n.Left) || containsCall(n.Right)
	case *UnaryExpr:
		return containsCall(n.Operand)
	}
	return false
}

func (cg *CodeGen) moveTo(target, src string) {
	if target != src {
		cg.line("mov %s, %s", target, src)
	}
}

// genAddress leaves the address of the named variable in target.
func (cg *CodeGen) genAddress(name string, target string) {
	loc := cg.frame.Resolve(name)
	if loc.Kind == Unresolved {
		cg.line("movi %s, %s", target, cg.globalLabel(name))
		return
	}
	cg.line("mov %s, bp", target)
	cg.line("addis %s, %d", target, cg.frame.Offset(loc))
}

// genExpr lowers e so that its value ends up in target. Registers other
// than target may be clobbered, except that leaves only ever touch target.
func (cg *CodeGen) genExpr(e Expr, target string) error {
	switch n := e.(type) {
	case *IntLit:
		cg.line("movi %s, %s", target, n.Value)
		return nil

	case *Ident:
		cg.genAddress(n.Name, target)
		cg.line("load %s, %s", target, target)
		return nil

	case *UnaryExpr:
		return cg.genUnary(n, target)

	case *BinaryExpr:
		return cg.genBinary(n, target)

	case *CallExpr:
		return cg.genCall(n, target)
	}
	return cg.fatal(ErrUnknownNode, e)
}

func (cg *CodeGen) genUnary(n *UnaryExpr, target string) error {
	switch n.Op {
	case AddrOf:
		id, ok := n.Operand.(*Ident)
		if !ok {
			return cg.fatal(ErrAddrOfNonIdent, n)
		}
		cg.genAddress(id.Name, target)
		return nil

	case Deref:
		if err := cg.genExpr(n.Operand, target); err != nil {
			return err
		}
		cg.line("load %s, %s", target, target)
		return nil

	case Neg:
		if err := cg.genExpr(n.Operand, regResult); err != nil {
			return err
		}
		cg.line("movi %s, 0", regLeft)
		cg.line("sub %s, %s", regLeft, regResult)
		cg.moveTo(target, regLeft)
		return nil

	case PreInc, PostInc, PreDec, PostDec:
		id, ok := n.Operand.(*Ident)
		if !ok {
			return cg.fatal(ErrBadIncDecOperand, n)
		}
		step := 1
		if n.Op == PreDec || n.Op == PostDec {
			step = -1
		}
		cg.genAddress(id.Name, regRight)
		cg.line("load %s, %s", regResult, regRight)
		cg.line("addis %s, %d", regResult, step)
		cg.line("store %s, %s", regRight, regResult)
		if n.Op == PostInc || n.Op == PostDec {
			// Yield the value from before the update.
			cg.line("addis %s, %d", regResult, -step)
		}
		cg.moveTo(target, regResult)
		return nil
	}
	return cg.fatal(ErrUnsupportedOp, n)
}

// genOperands leaves Left in r2 and Right in r1.
func (cg *CodeGen) genOperands(n *BinaryExpr) error {
	if err := cg.genExpr(n.Left, regLeft); err != nil {
		return err
	}
	if isLeaf(n.Right) {
		return cg.genExpr(n.Right, regResult)
	}
	cg.line("push %s", regLeft)
	if err := cg.genExpr(n.Right, regResult); err != nil {
		return err
	}
	cg.line("pop %s", regLeft)
	return nil
}

func (cg *CodeGen) genBinary(n *BinaryExpr, target string) error {
	switch n.Op {
	case AND_LOGICAL:
		return cg.genAnd(n, target)
	case OR_LOGICAL:
		return cg.genOr(n, target)
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		return cg.genCompareValue(n, target)
	case PLUS, MINUS, STAR, SLASH, PERCENT:
	default:
		return cg.fatal(ErrUnsupportedOp, n)
	}

	if err := cg.genOperands(n); err != nil {
		return err
	}

	switch n.Op {
	case PLUS:
		cg.line("add %s, %s", regResult, regLeft)
	case MINUS:
		cg.line("sub %s, %s", regLeft, regResult)
		cg.line("mov %s, %s", regResult, regLeft)
	case STAR:
		cg.genMulLoop()
	case SLASH:
		cg.genDivLoop(LabelDiv, "div", regRight)
	case PERCENT:
		cg.genDivLoop(LabelMod, "mod", regLeft)
	}
	cg.moveTo(target, regResult)
	return nil
}

// genMulLoop multiplies r2 by r1 through repeated addition into r3. The
// result lands in r1. A negative r1 is not handled.
func (cg *CodeGen) genMulLoop() {
	begin, end := cg.labels.pair(LabelMul, "mul", "begin", "end")
	cg.line("movi %s, 0", regRight)
	cg.label(begin)
	cg.line("cmp %s, 0", regResult)
	cg.line("jz %s", end)
	cg.line("add %s, %s", regRight, regLeft)
	cg.line("addis %s, -1", regResult)
	cg.line("jmp %s", begin)
	cg.label(end)
	cg.line("mov %s, %s", regResult, regRight)
}

// genDivLoop divides r2 by r1 through repeated subtraction. The quotient
// accumulates in r3 and the remainder is what is left of r2; result picks
// which one lands in r1. Negative operands and a zero divisor are not
// handled.
func (cg *CodeGen) genDivLoop(kind LabelKind, prefix, result string) {
	begin, end := cg.labels.pair(kind, prefix, "begin", "end")
	cg.line("movi %s, 0", regRight)
	cg.label(begin)
	cg.line("cmp %s, %s", regLeft, regResult)
	cg.line("jl %s", end)
	cg.line("sub %s, %s", regLeft, regResult)
	cg.line("addis %s, 1", regRight)
	cg.line("jmp %s", begin)
	cg.label(end)
	cg.line("mov %s, %s", regResult, result)
}

// genAnd evaluates Right only when Left is non-zero. The result is 0 or 1.
func (cg *CodeGen) genAnd(n *BinaryExpr, target string) error {
	falseL, end := cg.labels.pair(LabelAnd, "and", "false", "end")
	if err := cg.genExpr(n.Left, regResult); err != nil {
		return err
	}
	cg.line("cmp %s, 0", regResult)
	cg.line("jz %s", falseL)
	if err := cg.genExpr(n.Right, regResult); err != nil {
		return err
	}
	cg.line("cmp %s, 0", regResult)
	cg.line("jz %s", falseL)
	cg.line("movi %s, 1", regResult)
	cg.line("jmp %s", end)
	cg.label(falseL)
	cg.line("movi %s, 0", regResult)
	cg.label(end)
	cg.moveTo(target, regResult)
	return nil
}

// genOr evaluates Right only when Left is zero. The result is 0 or 1.
func (cg *CodeGen) genOr(n *BinaryExpr, target string) error {
	trueL, end := cg.labels.pair(LabelOr, "or", "true", "end")
	if err := cg.genExpr(n.Left, regResult); err != nil {
		return err
	}
	cg.line("cmp %s, 0", regResult)
	cg.line("jnz %s", trueL)
	if err := cg.genExpr(n.Right, regResult); err != nil {
		return err
	}
	cg.line("cmp %s, 0", regResult)
	cg.line("jnz %s", trueL)
	cg.line("movi %s, 0", regResult)
	cg.line("jmp %s", end)
	cg.label(trueL)
	cg.line("movi %s, 1", regResult)
	cg.label(end)
	cg.moveTo(target, regResult)
	return nil
}

// genCompareValue materialises a comparison as 0 or 1.
func (cg *CodeGen) genCompareValue(n *BinaryExpr, target string) error {
	l := cg.labels.newCmp()
	if err := cg.genCompareJump(n, l.isTrue, l.isFalse); err != nil {
		return err
	}
	cg.label(l.isFalse)
	cg.line("movi %s, 0", regResult)
	cg.line("jmp %s", l.end)
	cg.label(l.isTrue)
	cg.line("movi %s, 1", regResult)
	cg.label(l.end)
	cg.moveTo(target, regResult)
	return nil
}

// genCall passes arguments 0-2 in r5..r7 and the rest on the stack, where
// argument i sits at sp+4(i-3) when the call executes. Stack arguments
// are evaluated first, left to right, then the register arguments.
func (cg *CodeGen) genCall(n *CallExpr, target string) error {
	cg.line("push lr")

	stackArgs := 0
	if len(n.Args) > RegisterParams {
		stackArgs = len(n.Args) - RegisterParams
		cg.line("addis sp, -%d", stackArgs*SlotSize)
		for i := RegisterParams; i < len(n.Args); i++ {
			if err := cg.genExpr(n.Args[i], regResult); err != nil {
				return err
			}
			cg.line("mov %s, sp", regLeft)
			cg.line("addis %s, %d", regLeft, SlotSize*(i-RegisterParams))
			cg.line("store %s, %s", regLeft, regResult)
		}
	}

	regArgs := n.Args
	if len(regArgs) > RegisterParams {
		regArgs = regArgs[:RegisterParams]
	}

	// A call inside a later argument would overwrite argument registers
	// that are already loaded, so park the values on the stack instead.
	nested := false
	for i := 1; i < len(regArgs); i++ {
		if containsCall(regArgs[i]) {
			nested = true
		}
	}

	if nested {
		for _, a := range regArgs {
			if err := cg.genExpr(a, regResult); err != nil {
				return err
			}
			cg.line("push %s", regResult)
		}
		for i := len(regArgs) - 1; i >= 0; i-- {
			cg.line("pop %s", argRegs[i])
		}
	} else {
		for i, a := range regArgs {
			if err := cg.genExpr(a, argRegs[i]); err != nil {
				return err
			}
		}
	}

	cg.line("call %s", funcLabel(n.Name))
	if stackArgs > 0 {
		cg.line("addis sp, %d", stackArgs*SlotSize)
	}
	cg.line("pop lr")
	cg.moveTo(target, regResult)
	return nil
}
