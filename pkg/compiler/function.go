package compiler

// genFunction emits one function. The entry function is labelled
// EntryLabel and halts instead of returning.
func (cg *CodeGen) genFunction(fn *FuncDef, entry bool) error {
	cg.fn = fn.Name
	cg.frame = NewFrame(fn)
	cg.retLabel = cg.labels.newRet()
	size := cg.frame.Size()

	if entry {
		cg.label(EntryLabel)
	} else {
		cg.label(funcLabel(fn.Name))
	}
	cg.comment("%s: %d params, %d locals, frame %d bytes", fn.Name, len(cg.frame.Params), len(cg.frame.Locals), size)

	cg.line("push bp")
	cg.line("mov bp, sp")
	if size > 0 {
		cg.line("addis sp, -%d", size)
	}

	for i := 0; i < len(fn.Params) && i < RegisterParams; i++ {
		off := cg.frame.Offset(Location{Kind: RegisterParam, Index: i})
		cg.line("mov %s, bp", regSpare)
		cg.line("addis %s, %d", regSpare, off)
		cg.line("store %s, %s", regSpare, argRegs[i])
	}

	if fn.Body != nil {
		stmts := fn.Body.Stmts
		for i, s := range stmts {
			// A trailing return falls straight into the return label.
			if r, ok := s.(*Return); ok && i == len(stmts)-1 {
				if err := cg.genReturnValue(r); err != nil {
					return err
				}
				continue
			}
			if err := cg.genStmt(s, loopLabels{}); err != nil {
				return err
			}
		}
	}

	cg.label(cg.retLabel)
	if entry {
		cg.line("halt")
		return nil
	}
	if size > 0 {
		cg.line("addis sp, %d", size)
	}
	cg.line("pop bp")
	cg.line("ret")
	return nil
}
