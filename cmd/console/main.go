package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"minicc/pkg/asm"
	"minicc/pkg/compiler"
	"minicc/pkg/cpu"
	"minicc/pkg/utils"
)

// console runs a program headless and reports the final machine state.
// With -trace every executed instruction is printed next to its source
// line.
func main() {
	trace := flag.Bool("trace", false, "print every executed instruction")
	steps := flag.Int("steps", 1_000_000, "instruction limit")
	stack := flag.Int("stack", 8, "number of stack words to show")
	strict := flag.Bool("strict", false, "treat break/continue outside of a loop as fatal")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "console"})
	if flag.NArg() != 1 {
		logger.Fatal("usage: console [flags] <file.c|file.asm>")
	}

	fullPath, baseDir, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		logger.Fatal("bad path", "err", err)
	}
	source, err := os.ReadFile(fullPath)
	if err != nil {
		logger.Fatal("failed to read source file", "err", err)
	}

	var prog *asm.Program
	if utils.IsCSource(fullPath) {
		res, err := compiler.Compile(string(source), baseDir, &compiler.Options{
			Strict: *strict,
			Entry:  "main",
			Logger: logger.WithPrefix("codegen"),
		})
		if err != nil {
			logger.Fatal("compilation failed", "err", err)
		}
		prog = res.Asm
	} else {
		prog, err = asm.Assemble(string(source))
		if err != nil {
			logger.Fatal("assembly failed", "err", err)
		}
	}

	vm := cpu.NewCPU()
	if err := vm.Load(prog.Image, prog.Entry); err != nil {
		logger.Fatal("load failed", "err", err)
	}

	for !vm.Halted && vm.Steps < *steps {
		if *trace {
			pc := vm.Regs[cpu.PC]
			fmt.Printf("0x%04X  %s\n", uint32(pc), sourceLine(prog, pc))
		}
		vm.Step()
	}

	switch {
	case vm.Fault != nil:
		logger.Error("machine fault", "err", vm.Fault)
	case !vm.Halted:
		logger.Warn("step limit reached", "steps", *steps)
	}

	printState(vm, prog, *stack)
}

func sourceLine(prog *asm.Program, pc int32) string {
	line, ok := prog.SourceMap[pc]
	if !ok || line-1 >= len(prog.Lines) {
		return "?"
	}
	return fmt.Sprintf("%4d  %s", line, strings.TrimSpace(prog.Lines[line-1]))
}

func printState(vm *cpu.CPU, prog *asm.Program, stackWords int) {
	fmt.Printf("steps=%d halted=%t Z=%t N=%t\n", vm.Steps, vm.Halted, vm.Z, vm.N)
	for r := uint8(0); r < cpu.NumRegs; r++ {
		fmt.Printf("  %-3s = %d\n", cpu.RegName(r), vm.Regs[r])
	}

	if words := vm.StackWords(stackWords); len(words) > 0 {
		fmt.Println("stack (top first):")
		for i, w := range words {
			fmt.Printf("  sp+%-3d %d\n", i*cpu.WordSize, w)
		}
	}

	var globals []string
	for name := range prog.Labels {
		if strings.HasPrefix(name, "g_") {
			globals = append(globals, name)
		}
	}
	sort.Strings(globals)
	if len(globals) > 0 {
		fmt.Println("globals:")
	}
	for _, name := range globals {
		val, err := vm.ReadWord(prog.Labels[name])
		if err != nil {
			continue
		}
		fmt.Printf("  %-16s %d\n", strings.TrimPrefix(name, "g_"), val)
	}
}
