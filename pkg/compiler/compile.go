package compiler

import (
	"fmt"

	"minicc/pkg/asm"
)

// Result holds every stage of one compilation.
type Result struct {
	Program *Program
	Output  *Output
	Asm     *asm.Program
}

// Compile runs the whole pipeline on src. baseDir resolves #include
// directives. opts may be nil.
func Compile(src string, baseDir string, opts *Options) (*Result, error) {
	src, err := Preprocess(src, baseDir)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	tokens, err := Lex(src)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}

	prog, err := Parse(tokens, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	out, err := GenerateWithOptions(prog, opts)
	if err != nil {
		return &Result{Program: prog}, err
	}

	image, err := asm.Assemble(out.Asm)
	if err != nil {
		return &Result{Program: prog, Output: out}, fmt.Errorf("assemble: %w", err)
	}

	return &Result{Program: prog, Output: out, Asm: image}, nil
}
