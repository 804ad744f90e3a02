package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"minicc/pkg/compiler"
	"minicc/pkg/utils"
)

const testSource = `int add(int a, int b) {
    return a + b;
}

int main() {
    int x = 10;
    int y = 20;
    return add(x, y);
}
`

// ccompiler prints every stage of the pipeline for one source file.
func main() {
	strict := flag.Bool("strict", false, "treat break/continue outside of a loop as fatal")
	entry := flag.String("entry", "main", "name of the entry function")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "ccompiler"})

	src := testSource
	baseDir := "."
	if flag.NArg() > 0 {
		fullPath, dir, err := utils.GetPathInfo(flag.Arg(0))
		if err != nil {
			logger.Fatal("bad path", "err", err)
		}
		data, err := os.ReadFile(fullPath)
		if err != nil {
			logger.Fatal("read error", "err", err)
		}
		src = string(data)
		baseDir = dir
	}

	src, err := compiler.Preprocess(src, baseDir)
	if err != nil {
		logger.Fatal("preprocess error", "err", err)
	}
	fmt.Printf("Source:\n%s\n\n", src)

	tokens, err := compiler.Lex(src)
	if err != nil {
		logger.Fatal("lex error", "err", err)
	}
	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	prog, err := compiler.Parse(tokens, src)
	if err != nil {
		logger.Fatal("parse error", "err", err)
	}
	fmt.Println("AST")
	fmt.Print(compiler.Dump(prog))
	fmt.Println()

	for _, fn := range prog.Funcs() {
		fmt.Printf("%s ", fn.Name)
		fmt.Print(compiler.NewFrame(fn))
	}
	fmt.Println()

	out, err := compiler.GenerateWithOptions(prog, &compiler.Options{
		Strict: *strict,
		Entry:  *entry,
		Logger: logger.WithPrefix("codegen"),
	})
	if err != nil {
		logger.Fatal("codegen error", "err", err)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(out.Asm)
	if len(out.Globals) > 0 {
		fmt.Printf("\nGlobals: %v\n", out.Globals)
	}
	for _, d := range out.Diagnostics {
		fmt.Println("diagnostic:", d)
	}
}
