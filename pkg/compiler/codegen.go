package compiler

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Fixed register roles. There is no register allocator: every construct
// uses the same small set of scratch registers.
const (
	regResult = "r1" // expression results, return value
	regLeft   = "r2" // left operand of a binary operator
	regRight  = "r3" // right operand, address scratch, loop accumulator
	regSpare  = "r4" // prologue spill scratch
)

// argRegs carry the first RegisterParams call arguments.
var argRegs = [RegisterParams]string{"r5", "r6", "r7"}

// EntryLabel is the label of the entry function.
const EntryLabel = "__START__"

// Options configures code generation.
type Options struct {
	// Strict turns break/continue outside of a loop into a fatal error
	// instead of an "; error:" comment plus a diagnostic.
	Strict bool
	// Entry names the function emitted first under EntryLabel.
	Entry string
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
}

// DefaultOptions logs warnings to stderr and uses "main" as the entry.
func DefaultOptions() *Options {
	return &Options{
		Entry: "main",
		Logger: log.NewWithOptions(os.Stderr, log.Options{
			Level:  log.WarnLevel,
			Prefix: "codegen",
		}),
	}
}

// Output is the result of one generation run.
type Output struct {
	Asm         string
	Diagnostics []Diagnostic
	// Globals lists the referenced names that resolved to no parameter or
	// local, in first-reference order.
	Globals []string
}

// CodeGen walks a Program and emits assembly source text. It lives for one
// generation run, so label numbering starts at zero on every run.
type CodeGen struct {
	opts   *Options
	out    strings.Builder
	labels Labels

	// Per-function state.
	fn       string
	frame    *Frame
	retLabel string

	globals    []string
	globalSeen map[string]bool
	diags      []Diagnostic
}

func newCodeGen(opts *Options) *CodeGen {
	return &CodeGen{
		opts:       opts,
		globalSeen: make(map[string]bool),
	}
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, "    "+format+"\n", args...)
}

func (cg *CodeGen) label(name string) {
	fmt.Fprintf(&cg.out, "%s:\n", name)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("; "+format, args...)
}

// diagnose records a non-fatal problem in the output, the log and the
// diagnostics list.
func (cg *CodeGen) diagnose(line int, msg string) {
	cg.comment("error: %s", msg)
	d := Diagnostic{Func: cg.fn, Line: line, Message: msg}
	cg.diags = append(cg.diags, d)
	if cg.opts.Logger != nil {
		cg.opts.Logger.Warn(msg, "func", cg.fn, "line", line)
	}
}

func (cg *CodeGen) globalLabel(name string) string {
	if !cg.globalSeen[name] {
		cg.globalSeen[name] = true
		cg.globals = append(cg.globals, name)
	}
	return "g_" + name
}

func funcLabel(name string) string {
	return "f_" + name
}

// Generate lowers prog to assembly with DefaultOptions.
func Generate(prog *Program) (string, error) {
	out, err := GenerateWithOptions(prog, DefaultOptions())
	if err != nil {
		return "", err
	}
	return out.Asm, nil
}

// GenerateWithOptions lowers prog to assembly. The entry function comes
// first, then the remaining functions in declaration order, then one
// zero-initialised word per referenced global.
func GenerateWithOptions(prog *Program, opts *Options) (*Output, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Entry == "" {
		o.Entry = "main"
	}
	opts = &o
	cg := newCodeGen(opts)

	if prog == nil {
		return nil, cg.fatal(ErrUnknownNode, nil)
	}

	var entry *FuncDef
	var rest []*FuncDef
	for _, d := range prog.Decls {
		switch n := d.(type) {
		case *FuncDef:
			if n.Name == opts.Entry && entry == nil {
				entry = n
			} else {
				rest = append(rest, n)
			}
		case *TopLevelStmt:
			// File-scope statements have no storage or code.
		default:
			return nil, cg.fatal(ErrUnknownNode, d)
		}
	}

	if entry != nil {
		if err := cg.genFunction(entry, true); err != nil {
			return nil, err
		}
	} else if opts.Logger != nil {
		opts.Logger.Debug("no entry function", "entry", opts.Entry)
	}

	for _, fn := range rest {
		cg.out.WriteByte('\n')
		if err := cg.genFunction(fn, false); err != nil {
			return nil, err
		}
	}

	if len(cg.globals) > 0 {
		cg.out.WriteString("\n; globals\n")
		for _, name := range cg.globals {
			fmt.Fprintf(&cg.out, "g_%s: .word 0\n", name)
		}
	}

	return &Output{
		Asm:         cg.out.String(),
		Diagnostics: cg.diags,
		Globals:     cg.globals,
	}, nil
}
