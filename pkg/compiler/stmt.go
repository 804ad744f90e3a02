package compiler

func isComparison(op TokenType) bool {
	switch op {
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		return true
	}
	return false
}

// genCompareJump compares Left with Right and jumps to trueL or falseL.
// It always ends in a jump.
//
//	==  jz  true        <=  jg false, jmp true
//	!=  jnz true        >=  jl false, jmp true
//	<   jl  true
//	>   jg  true
func (cg *CodeGen) genCompareJump(n *BinaryExpr, trueL, falseL string) error {
	if err := cg.genExpr(n.Left, regLeft); err != nil {
		return err
	}
	if isLeaf(n.Right) {
		if err := cg.genExpr(n.Right, regRight); err != nil {
			return err
		}
	} else {
		cg.line("push %s", regLeft)
		if err := cg.genExpr(n.Right, regRight); err != nil {
			return err
		}
		cg.line("pop %s", regLeft)
	}
	cg.line("cmp %s, %s", regLeft, regRight)

	switch n.Op {
	case EQUALS:
		cg.line("jz %s", trueL)
		cg.line("jmp %s", falseL)
	case NOT_EQ:
		cg.line("jnz %s", trueL)
		cg.line("jmp %s", falseL)
	case LESS:
		cg.line("jl %s", trueL)
		cg.line("jmp %s", falseL)
	case GREATER:
		cg.line("jg %s", trueL)
		cg.line("jmp %s", falseL)
	case LESS_EQ:
		cg.line("jg %s", falseL)
		cg.line("jmp %s", trueL)
	case GREATER_EQ:
		cg.line("jl %s", falseL)
		cg.line("jmp %s", trueL)
	default:
		return cg.fatal(ErrUnsupportedOp, n)
	}
	return nil
}

// genCond branches on cond. A direct comparison jumps on the flags;
// anything else is evaluated and tested against zero.
func (cg *CodeGen) genCond(cond Expr, trueL, falseL string) error {
	if b, ok := cond.(*BinaryExpr); ok && isComparison(b.Op) {
		return cg.genCompareJump(b, trueL, falseL)
	}
	if err := cg.genExpr(cond, regResult); err != nil {
		return err
	}
	cg.line("cmp %s, 0", regResult)
	cg.line("jnz %s", trueL)
	cg.line("jmp %s", falseL)
	return nil
}

// genStore writes r1 to the variable name.
func (cg *CodeGen) genStore(name string) {
	cg.genAddress(name, regRight)
	cg.line("store %s, %s", regRight, regResult)
}

func (cg *CodeGen) genStmt(s Stmt, loop loopLabels) error {
	switch n := s.(type) {
	case *VarDecl:
		if n.Init == nil {
			return nil
		}
		if err := cg.genExpr(n.Init, regResult); err != nil {
			return err
		}
		cg.genStore(n.Name)
		return nil

	case *Assign:
		return cg.genAssign(n)

	case *ExprStmt:
		return cg.genExpr(n.X, regResult)

	case *Return:
		if err := cg.genReturnValue(n); err != nil {
			return err
		}
		cg.line("jmp %s", cg.retLabel)
		return nil

	case *Block:
		if n == nil {
			return nil
		}
		for _, st := range n.Stmts {
			if err := cg.genStmt(st, loop); err != nil {
				return err
			}
		}
		return nil

	case *If:
		return cg.genIf(n, loop)

	case *While:
		return cg.genWhile(n)

	case *For:
		return cg.genFor(n)

	case *Break:
		if loop.inLoop() {
			cg.line("jmp %s", loop.breakTo)
			return nil
		}
		return cg.loopControlOutside(n, n.Line, "break outside of loop")

	case *Continue:
		if loop.inLoop() {
			cg.line("jmp %s", loop.continueTo)
			return nil
		}
		return cg.loopControlOutside(n, n.Line, "continue outside of loop")
	}
	return cg.fatal(ErrUnknownNode, s)
}

func (cg *CodeGen) loopControlOutside(n Stmt, line int, msg string) error {
	if cg.opts.Strict {
		return cg.fatal(ErrLoopControl, n)
	}
	cg.diagnose(line, msg)
	return nil
}

func (cg *CodeGen) genReturnValue(n *Return) error {
	cg.comment("return")
	if n.Value == nil {
		return nil
	}
	return cg.genExpr(n.Value, regResult)
}

func (cg *CodeGen) genAssign(n *Assign) error {
	switch t := n.Target.(type) {
	case *Ident:
		if err := cg.genExpr(n.Value, regResult); err != nil {
			return err
		}
		cg.genStore(t.Name)
		return nil

	case *UnaryExpr:
		if t.Op != Deref {
			break
		}
		if err := cg.genExpr(n.Value, regResult); err != nil {
			return err
		}
		if isLeaf(t.Operand) {
			if err := cg.genExpr(t.Operand, regRight); err != nil {
				return err
			}
		} else {
			cg.line("push %s", regResult)
			if err := cg.genExpr(t.Operand, regRight); err != nil {
				return err
			}
			cg.line("pop %s", regResult)
		}
		cg.line("store %s, %s", regRight, regResult)
		return nil
	}
	return cg.fatal(ErrBadAssignTarget, n)
}

func (cg *CodeGen) genIf(n *If, loop loopLabels) error {
	l := cg.labels.newIf()
	elseTarget := l.end
	if n.Else != nil {
		elseTarget = l.els
	}

	if err := cg.genCond(n.Cond, l.then, elseTarget); err != nil {
		return err
	}

	cg.label(l.then)
	if err := cg.genStmt(n.Then, loop); err != nil {
		return err
	}
	cg.line("jmp %s", l.end)

	if n.Else != nil {
		cg.label(l.els)
		if err := cg.genStmt(n.Else, loop); err != nil {
			return err
		}
	}
	cg.label(l.end)
	return nil
}

func (cg *CodeGen) genWhile(n *While) error {
	l := cg.labels.newWhile()

	cg.label(l.cond)
	if err := cg.genCond(n.Cond, l.body, l.end); err != nil {
		return err
	}
	cg.label(l.body)
	if err := cg.genStmt(n.Body, loopLabels{breakTo: l.end, continueTo: l.cond}); err != nil {
		return err
	}
	cg.line("jmp %s", l.cond)
	cg.label(l.end)
	return nil
}

func (cg *CodeGen) genFor(n *For) error {
	l := cg.labels.newFor()

	if n.Init != nil {
		if err := cg.genStmt(n.Init, loopLabels{}); err != nil {
			return err
		}
	}

	cg.label(l.cond)
	if n.Cond != nil {
		if err := cg.genCond(n.Cond, l.body, l.end); err != nil {
			return err
		}
	}
	cg.label(l.body)
	if err := cg.genStmt(n.Body, loopLabels{breakTo: l.end, continueTo: l.inc}); err != nil {
		return err
	}
	cg.label(l.inc)
	if n.Post != nil {
		if err := cg.genStmt(n.Post, loopLabels{}); err != nil {
			return err
		}
	}
	cg.line("jmp %s", l.cond)
	cg.label(l.end)
	return nil
}
