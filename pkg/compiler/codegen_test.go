package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/nalgeon/be"

	"minicc/pkg/asm"
	"minicc/pkg/cpu"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return prog
}

func generate(t *testing.T, src string, opts *Options) (*Output, error) {
	t.Helper()
	if opts == nil {
		opts = &Options{Entry: "main"}
	}
	return GenerateWithOptions(mustParse(t, src), opts)
}

func mustGenerate(t *testing.T, src string) *Output {
	t.Helper()
	out, err := generate(t, src, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return out
}

func containsLine(text, want string) bool {
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}

// assertInOrder checks that each wanted line appears as a whole line of
// text, after the previous one.
func assertInOrder(t *testing.T, text string, want ...string) {
	t.Helper()
	lines := strings.Split(text, "\n")
	i := 0
	for _, w := range want {
		found := false
		for i < len(lines) {
			l := strings.TrimSpace(lines[i])
			i++
			if l == w {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %q (in order) in:\n%s", w, text)
		}
	}
}

func TestGenerate_ReturnSum(t *testing.T) {
	asmText, err := Generate(mustParse(t, "int main(){ return 1+2; }"))
	be.Err(t, err, nil)

	want := `__START__:
    ; main: 0 params, 0 locals, frame 0 bytes
    push bp
    mov bp, sp
    ; return
    movi r2, 1
    movi r1, 2
    add r1, r2
L_ret_0:
    halt
`
	be.Equal(t, asmText, want)
	be.True(t, !strings.Contains(asmText, "ret\n"))
	be.True(t, !strings.Contains(asmText, "pop bp"))
}

func TestGenerate_CallAndSpill(t *testing.T) {
	out := mustGenerate(t, `
int add(int a, int b) { return a + b; }
int main() { return add(3, 4); }
`)
	assertInOrder(t, out.Asm,
		"__START__:",
		"push lr",
		"movi r5, 3",
		"movi r6, 4",
		"call f_add",
		"pop lr",
		"halt",
		"f_add:",
		"; add: 2 params, 0 locals, frame 8 bytes",
		"push bp",
		"mov bp, sp",
		"addis sp, -8",
		"mov r4, bp",
		"addis r4, -4",
		"store r4, r5",
		"mov r4, bp",
		"addis r4, -8",
		"store r4, r6",
		"; return",
		"add r1, r2",
		"L_ret_1:",
		"addis sp, 8",
		"pop bp",
		"ret",
	)
}

func TestGenerate_IfElse(t *testing.T) {
	out := mustGenerate(t, `
int main() {
    int x;
    if (x == 0) { x = 1; } else { x = 2; }
}`)
	assertInOrder(t, out.Asm,
		"mov r2, bp",
		"addis r2, -4",
		"load r2, r2",
		"movi r3, 0",
		"cmp r2, r3",
		"jz L_if_then_0",
		"jmp L_if_else_0",
		"L_if_then_0:",
		"movi r1, 1",
		"store r3, r1",
		"jmp L_if_end_0",
		"L_if_else_0:",
		"movi r1, 2",
		"store r3, r1",
		"L_if_end_0:",
	)
	be.Equal(t, strings.Count(out.Asm, "cmp "), 1)
}

func TestGenerate_IfWithoutElse(t *testing.T) {
	out := mustGenerate(t, `int main() { int x = 1; if (x) x = 2; return x; }`)
	assertInOrder(t, out.Asm,
		"cmp r1, 0",
		"jnz L_if_then_0",
		"jmp L_if_end_0",
		"L_if_then_0:",
		"jmp L_if_end_0",
		"L_if_end_0:",
	)
	be.True(t, !strings.Contains(out.Asm, "L_if_else_0"))
}

func TestGenerate_ForLoop(t *testing.T) {
	out := mustGenerate(t, `
int main() {
    for (int i = 0; i < 3; i = i + 1) { }
}`)
	assertInOrder(t, out.Asm,
		"; main: 0 params, 1 locals, frame 4 bytes",
		"movi r1, 0",
		"store r3, r1",
		"L_for_cond_0:",
		"movi r3, 3",
		"cmp r2, r3",
		"jl L_for_body_0",
		"jmp L_for_end_0",
		"L_for_body_0:",
		"L_for_inc_0:",
		"movi r1, 1",
		"add r1, r2",
		"store r3, r1",
		"jmp L_for_cond_0",
		"L_for_end_0:",
	)
}

func TestGenerate_WhileLoop(t *testing.T) {
	out := mustGenerate(t, `int main() { int n = 3; while (n > 0) n--; return n; }`)
	assertInOrder(t, out.Asm,
		"L_while_cond_0:",
		"jg L_while_body_0",
		"jmp L_while_end_0",
		"L_while_body_0:",
		"jmp L_while_cond_0",
		"L_while_end_0:",
	)
}

func TestGenerate_CompareJumpTable(t *testing.T) {
	tests := []struct {
		op    string
		first string
		then  string
	}{
		{"==", "jz L_if_then_0", "jmp L_if_end_0"},
		{"!=", "jnz L_if_then_0", "jmp L_if_end_0"},
		{"<", "jl L_if_then_0", "jmp L_if_end_0"},
		{">", "jg L_if_then_0", "jmp L_if_end_0"},
		{"<=", "jg L_if_end_0", "jmp L_if_then_0"},
		{">=", "jl L_if_end_0", "jmp L_if_then_0"},
	}
	for _, tc := range tests {
		t.Run(tc.op, func(t *testing.T) {
			out := mustGenerate(t, fmt.Sprintf("int main() { int a; if (a %s 1) a = 0; }", tc.op))
			assertInOrder(t, out.Asm, "cmp r2, r3", tc.first, tc.then, "L_if_then_0:")
		})
	}
}

func TestGenerate_MultiplyLoopRuns(t *testing.T) {
	out := mustGenerate(t, `
int main() {
    int a = 3;
    int b = 4;
    return a * b;
}`)
	assertInOrder(t, out.Asm,
		"movi r3, 0",
		"L_mul_begin_0:",
		"cmp r1, 0",
		"jz L_mul_end_0",
		"add r3, r2",
		"addis r1, -1",
		"jmp L_mul_begin_0",
		"L_mul_end_0:",
		"mov r1, r3",
	)

	prog, err := asm.Assemble(out.Asm)
	be.Err(t, err, nil)

	vm := cpu.NewCPU()
	be.Err(t, vm.Load(prog.Image, prog.Entry), nil)
	begin := prog.Labels["L_mul_begin_0"]
	visits := 0
	for !vm.Halted && vm.Steps < 10_000 {
		if vm.Regs[cpu.PC] == begin {
			visits++
		}
		vm.Step()
	}
	be.Err(t, vm.Fault, nil)
	// Four iterations plus the final check.
	be.Equal(t, visits, 5)
	be.Equal(t, vm.Regs[cpu.R1], int32(12))
}

func TestGenerate_DivModLabels(t *testing.T) {
	out := mustGenerate(t, `int main() { int a = 7; return a / 2 + a % 2 + a / 3; }`)
	for _, l := range []string{"L_div_begin_0:", "L_div_end_0:", "L_mod_begin_0:", "L_mod_end_0:", "L_div_begin_1:"} {
		be.True(t, containsLine(out.Asm, l))
	}
	be.True(t, !containsLine(out.Asm, "L_mod_begin_1:"))
}

func TestGenerate_ShortCircuitLabels(t *testing.T) {
	out := mustGenerate(t, `int main() { int a; int b; return (a && b) + (a || b); }`)
	assertInOrder(t, out.Asm,
		"jz L_and_false_0",
		"jz L_and_false_0",
		"movi r1, 1",
		"jmp L_and_end_0",
		"L_and_false_0:",
		"movi r1, 0",
		"L_and_end_0:",
		"jnz L_or_true_0",
		"jnz L_or_true_0",
		"movi r1, 0",
		"jmp L_or_end_0",
		"L_or_true_0:",
		"movi r1, 1",
		"L_or_end_0:",
	)
}

func TestGenerate_BreakOutsideLoop(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	out, err := generate(t, `
int main() {
    break;
    continue;
    return 4;
}`, &Options{Entry: "main", Logger: logger})
	be.Err(t, err, nil)

	be.True(t, containsLine(out.Asm, "; error: break outside of loop"))
	be.True(t, containsLine(out.Asm, "; error: continue outside of loop"))
	be.True(t, containsLine(out.Asm, "halt"))
	be.Equal(t, len(out.Diagnostics), 2)
	be.Equal(t, out.Diagnostics[0], Diagnostic{Func: "main", Line: 3, Message: "break outside of loop"})
	be.Equal(t, out.Diagnostics[1].Line, 4)
	be.True(t, strings.Contains(buf.String(), "break outside of loop"))
	be.True(t, strings.Contains(buf.String(), "continue outside of loop"))
}

func TestGenerate_BreakOutsideLoopStrict(t *testing.T) {
	_, err := generate(t, "int main() { break; }", &Options{Entry: "main", Strict: true})
	be.Err(t, err, ErrLoopControl)

	var fe *FatalError
	be.True(t, errors.As(err, &fe))
	be.Equal(t, fe.Func, "main")
}

func TestGenerate_BreakInsideIfInsideLoop(t *testing.T) {
	out, err := generate(t, `
int main() {
    while (1) {
        if (1) { break; }
    }
}`, &Options{Entry: "main", Strict: true})
	be.Err(t, err, nil)
	be.True(t, containsLine(out.Asm, "jmp L_while_end_0"))
	be.Equal(t, len(out.Diagnostics), 0)
}

func TestGenerate_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"address of expression", "int main() { int a; int *p = &(a + 1); }", ErrAddrOfNonIdent},
		{"address of literal", "int main() { return &5; }", ErrAddrOfNonIdent},
		{"assign to literal", "int main() { 1 = 2; }", ErrBadAssignTarget},
		{"assign to sum", "int main() { int a; a + 1 = 2; }", ErrBadAssignTarget},
		{"increment expression", "int main() { int a; (a + 1)++; }", ErrBadIncDecOperand},
		{"decrement literal", "int main() { --3; }", ErrBadIncDecOperand},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := generate(t, tc.src, nil)
			be.Err(t, err, tc.want)

			var fe *FatalError
			be.True(t, errors.As(err, &fe))
			be.Equal(t, fe.Func, "main")
			be.True(t, strings.HasPrefix(err.Error(), "codegen: in main: "))
		})
	}
}

type bogusExpr struct{}

func (bogusExpr) exprNode()      {}
func (bogusExpr) String() string { return "bogus" }

type bogusStmt struct{}

func (bogusStmt) stmtNode()      {}
func (bogusStmt) String() string { return "bogus" }

type bogusTop struct{}

func (bogusTop) topLevelNode()  {}
func (bogusTop) String() string { return "bogus" }

func mainWith(stmts ...Stmt) *Program {
	return &Program{Decls: []TopLevel{
		&FuncDef{ReturnType: "int", Name: "main", Body: &Block{Stmts: stmts}},
	}}
}

func TestGenerate_MalformedTree(t *testing.T) {
	tests := []struct {
		name string
		prog *Program
		want error
	}{
		{"unknown expression", mainWith(&ExprStmt{X: bogusExpr{}}), ErrUnknownNode},
		{"unknown statement", mainWith(bogusStmt{}), ErrUnknownNode},
		{"unknown top level", &Program{Decls: []TopLevel{bogusTop{}}}, ErrUnknownNode},
		{"unsupported operator", mainWith(&Return{Value: &BinaryExpr{Op: ASSIGN, Left: &IntLit{Value: "1"}, Right: &IntLit{Value: "2"}}}), ErrUnsupportedOp},
		{"unsupported condition operator", mainWith(&If{Cond: &BinaryExpr{Op: COMMA, Left: &IntLit{Value: "1"}, Right: &IntLit{Value: "2"}}, Then: &Block{}}), ErrUnsupportedOp},
		{"unsupported unary", mainWith(&Return{Value: &UnaryExpr{Op: UnaryOp(99), Operand: &IntLit{Value: "1"}}}), ErrUnsupportedOp},
		{"nil program", nil, ErrUnknownNode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateWithOptions(tc.prog, &Options{Entry: "main"})
			be.Err(t, err, tc.want)
		})
	}
}

func TestGenerate_LabelsUnique(t *testing.T) {
	out := mustGenerate(t, `
int f(int a, int b) {
    int r = 0;
    if (a < b) r = a * b; else r = a / b;
    while (a > 0) { a--; if (a == 2) continue; r = r + a % 3; }
    for (int i = 0; i < 2; i++) { if (i && r || b) r++; }
    return r > 1;
}

int main() {
    int s = 0;
    for (int i = 0; i < 3; i++) {
        if (i != 1) s = s + f(i, 4) * 2;
        while (s > 100) s = s / 2;
    }
    return s % 7 && s || 0;
}`)

	seen := map[string]bool{}
	for _, l := range strings.Split(out.Asm, "\n") {
		if l == "" || strings.HasPrefix(l, " ") || strings.HasPrefix(l, ";") {
			continue
		}
		name, _, _ := strings.Cut(l, ":")
		if seen[name] {
			t.Errorf("duplicate label %q", name)
		}
		seen[name] = true
	}
	be.True(t, seen["L_if_then_0"])
	be.True(t, seen["L_if_then_3"])
	be.True(t, seen["L_for_cond_1"])
	be.True(t, seen["L_while_cond_1"])
	be.True(t, seen["L_ret_1"])

	// The assembler rejects duplicates as well.
	_, err := asm.Assemble(out.Asm)
	be.Err(t, err, nil)
}

func TestGenerate_LabelsResetPerRun(t *testing.T) {
	src := `int main() { int i = 0; while (i < 3) i++; return i; }`
	first := mustGenerate(t, src)
	second := mustGenerate(t, src)
	be.Equal(t, first.Asm, second.Asm)
	be.True(t, containsLine(second.Asm, "L_while_cond_0:"))
}

func TestGenerate_LiteralRoundTrip(t *testing.T) {
	for _, v := range []string{"0", "42", "2147483647", "0x1F", "-5"} {
		out, err := GenerateWithOptions(mainWith(&Return{Value: &IntLit{Value: v}}), &Options{Entry: "main"})
		be.Err(t, err, nil)

		var imm string
		for _, l := range strings.Split(out.Asm, "\n") {
			if rest, ok := strings.CutPrefix(strings.TrimSpace(l), "movi r1, "); ok {
				imm = rest
			}
		}
		be.Equal(t, imm, v)
	}
}

func TestGenerate_FrameSize(t *testing.T) {
	for p := 0; p <= 5; p++ {
		for l := 0; l <= 5; l++ {
			params := make([]string, p)
			for i := range params {
				params[i] = fmt.Sprintf("int p%d", i)
			}
			var body strings.Builder
			for i := 0; i < l; i++ {
				fmt.Fprintf(&body, "int l%d; ", i)
			}
			src := fmt.Sprintf("int f(%s) { %s}", strings.Join(params, ", "), body.String())
			out := mustGenerate(t, src)

			size := (p + l) * 4
			be.True(t, containsLine(out.Asm, fmt.Sprintf("; f: %d params, %d locals, frame %d bytes", p, l, size)))
			be.Equal(t, containsLine(out.Asm, fmt.Sprintf("addis sp, -%d", size)), size > 0)
			be.Equal(t, containsLine(out.Asm, fmt.Sprintf("addis sp, %d", size)), size > 0)
			be.Equal(t, strings.Count(out.Asm, "store r4, r"), min(p, RegisterParams))
		}
	}
}

func TestGenerate_NestedLocalsCounted(t *testing.T) {
	out := mustGenerate(t, `
int main() {
    int a;
    if (a) { int b; } else { int c; }
    while (a) { int d; }
    for (int e = 0; e < 1; e++) { int f; }
}`)
	be.True(t, containsLine(out.Asm, "; main: 0 params, 6 locals, frame 24 bytes"))
}

func TestGenerate_Globals(t *testing.T) {
	out := mustGenerate(t, `
int main() { total = total + seed; return total; }
int other() { return seed; }
`)
	be.Equal(t, out.Globals, []string{"total", "seed"})
	assertInOrder(t, out.Asm,
		"movi r2, g_total",
		"; globals",
		"g_total: .word 0",
		"g_seed: .word 0",
	)
	be.Equal(t, strings.Count(out.Asm, "g_seed: .word 0"), 1)
}

func TestGenerate_EntryFirst(t *testing.T) {
	out := mustGenerate(t, `
int a() { return 1; }
int main() { return a() + b(); }
int b() { return 2; }
`)
	assertInOrder(t, out.Asm, "__START__:", "f_a:", "f_b:")
	be.True(t, strings.HasPrefix(out.Asm, "__START__:"))
	be.True(t, !containsLine(out.Asm, "f_main:"))
}

func TestGenerate_CustomEntry(t *testing.T) {
	out, err := generate(t, `
int main() { return 1; }
int boot() { return 2; }
`, &Options{Entry: "boot"})
	be.Err(t, err, nil)
	assertInOrder(t, out.Asm, "__START__:", "; boot: 0 params, 0 locals, frame 0 bytes", "f_main:")
}

func TestGenerate_MissingEntry(t *testing.T) {
	out := mustGenerate(t, "int helper() { return 1; }")
	be.True(t, !strings.Contains(out.Asm, EntryLabel))
	be.True(t, containsLine(out.Asm, "f_helper:"))

	out = mustGenerate(t, "")
	be.Equal(t, out.Asm, "")
}

func TestGenerate_TopLevelStatementsIgnored(t *testing.T) {
	out := mustGenerate(t, `
int x = 5;
int main() { return 0; }
`)
	be.True(t, !strings.Contains(out.Asm, "movi r1, 5"))
	be.Equal(t, len(out.Globals), 0)
}

func TestGenerate_DefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	be.Equal(t, opts.Entry, "main")
	be.True(t, opts.Logger != nil)
	be.True(t, !opts.Strict)

	// A zero Entry falls back to main without touching the caller's options.
	custom := &Options{}
	out, err := GenerateWithOptions(mustParse(t, "int main() { return 3; }"), custom)
	be.Err(t, err, nil)
	be.True(t, strings.HasPrefix(out.Asm, "__START__:"))
	be.Equal(t, custom.Entry, "")
}

func TestGenerate_TrailingReturnElided(t *testing.T) {
	out := mustGenerate(t, `
int f(int x) {
    if (x) return 1;
    return 2;
}`)
	be.Equal(t, strings.Count(out.Asm, "jmp L_ret_0"), 1)
	be.Equal(t, strings.Count(out.Asm, "; return"), 2)
}

func TestFatalError(t *testing.T) {
	err := &FatalError{Func: "f", Node: "(&1)", Reason: ErrAddrOfNonIdent}
	be.Equal(t, err.Error(), "codegen: in f: address-of requires an identifier: (&1)")
	be.True(t, errors.Is(err, ErrAddrOfNonIdent))

	err = &FatalError{Node: "bogus", Reason: ErrUnknownNode}
	be.Equal(t, err.Error(), "codegen: unknown node: bogus")

	be.Equal(t, Diagnostic{Func: "main", Line: 2, Message: "m"}.String(), "main (line 2): m")
	be.Equal(t, Diagnostic{Func: "main", Message: "m"}.String(), "main: m")
}
