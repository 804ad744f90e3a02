//go:build !js

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"minicc/pkg/asm"
	"minicc/pkg/compiler"
	"minicc/pkg/cpu"
	"minicc/pkg/utils"
)

func main() {
	inPath := flag.String("in", "", "input file: .c is compiled, anything else is assembled")
	outPath := flag.String("out", "", "output binary file path (default: input with .bin extension)")
	runProgram := flag.Bool("run", false, "run the generated program on the virtual CPU")
	runBinPath := flag.String("run-bin", "", "run an existing binary file on the virtual CPU")
	entry := flag.String("entry", "main", "name of the entry function")
	strict := flag.Bool("strict", false, "treat break/continue outside of a loop as fatal")
	showAsm := flag.Bool("show-asm", false, "print the generated assembly")
	asmOut := flag.Bool("S", false, "write the generated assembly next to the binary (.asm)")
	steps := flag.Int("steps", 10_000_000, "instruction limit for -run and -run-bin")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if *runProgram && *runBinPath != "" {
		logger.Error("use either -run or -run-bin, not both")
		os.Exit(2)
	}
	if *inPath == "" && *runBinPath == "" {
		logger.Error("nothing to do: provide -in to build, -run to also run it, or -run-bin <file> to run an existing binary")
		flag.Usage()
		os.Exit(2)
	}
	if *runProgram && *inPath == "" {
		logger.Error("-run requires -in, or use -run-bin <file>")
		os.Exit(2)
	}

	var prog *asm.Program
	if *inPath != "" {
		opts := &compiler.Options{
			Strict: *strict,
			Entry:  *entry,
			Logger: logger.WithPrefix("codegen"),
		}
		var asmText string
		var err error
		prog, asmText, err = build(*inPath, opts, logger)
		if err != nil {
			logger.Fatal("build failed", "in", *inPath, "err", err)
		}
		if *showAsm {
			fmt.Print(asmText)
		}

		output := *outPath
		if output == "" {
			output = utils.SwapExt(*inPath, ".bin")
		}
		if err := os.WriteFile(output, prog.Image, 0o644); err != nil {
			logger.Fatal("failed to write binary", "path", output, "err", err)
		}
		if *asmOut {
			asmPath := utils.SwapExt(output, ".asm")
			if err := os.WriteFile(asmPath, []byte(asmText), 0o644); err != nil {
				logger.Fatal("failed to write assembly", "path", asmPath, "err", err)
			}
		}
		logger.Info("assembled", "bytes", len(prog.Image), "out", output)
		if !prog.HasEntry() {
			logger.Warn("program has no entry label", "label", asm.EntryLabel)
		}
	}

	switch {
	case *runBinPath != "":
		image, err := os.ReadFile(*runBinPath)
		if err != nil {
			logger.Fatal("failed to read binary", "path", *runBinPath, "err", err)
		}
		// Raw images carry no symbols; the entry function is emitted first.
		if err := run(image, 0, *steps, *runBinPath); err != nil {
			logger.Fatal("run failed", "path", *runBinPath, "err", err)
		}
	case *runProgram:
		if err := run(prog.Image, prog.Entry, *steps, *inPath); err != nil {
			logger.Fatal("run failed", "path", *inPath, "err", err)
		}
	}
}

// build compiles or assembles the file at path and returns the program
// together with its assembly text.
func build(path string, opts *compiler.Options, logger *log.Logger) (*asm.Program, string, error) {
	fullPath, baseDir, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, "", err
	}
	source, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read input file %q: %w", path, err)
	}

	if !utils.IsCSource(path) {
		prog, err := asm.Assemble(string(source))
		if err != nil {
			return nil, "", fmt.Errorf("assembly failed: %w", err)
		}
		return prog, string(source), nil
	}

	logger.Debug("compiling", "file", fullPath, "baseDir", baseDir)
	res, err := compiler.Compile(string(source), baseDir, opts)
	if err != nil {
		var fatal *compiler.FatalError
		if errors.As(err, &fatal) {
			logger.Error("code generation aborted", "func", fatal.Func, "node", fatal.Node)
		}
		return nil, "", err
	}
	for _, d := range res.Output.Diagnostics {
		logger.Debug("diagnostic", "detail", d)
	}
	return res.Asm, res.Output.Asm, nil
}

func run(image []byte, entry int32, limit int, name string) error {
	vm := cpu.NewCPU()
	if err := vm.Load(image, entry); err != nil {
		return err
	}
	if err := vm.RunFor(limit); err != nil {
		return err
	}

	var regs strings.Builder
	for r := cpu.R0; r <= cpu.R7; r++ {
		fmt.Fprintf(&regs, " %s=%d", cpu.RegName(r), vm.Regs[r])
	}
	fmt.Printf(
		"run complete (%s): steps=%d PC=0x%04X SP=0x%04X Z=%t N=%t%s\n",
		name,
		vm.Steps,
		uint32(vm.Regs[cpu.PC]),
		uint32(vm.Regs[cpu.SP]),
		vm.Z,
		vm.N,
		regs.String(),
	)
	return nil
}
