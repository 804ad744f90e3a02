package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPreprocess_Passthrough(t *testing.T) {
	src := "int main() {\n    return 1;\n}"
	out, err := Preprocess(src, ".")
	be.Err(t, err, nil)
	be.Equal(t, out, src)
}

func TestPreprocess_Define(t *testing.T) {
	src := `#define N 10
#define TWICE_N N + N
#define EMPTY
int main() { return TWICE_N * N_MAX + N + 'N' + 0x1N; } // N stays
EMPTY`
	out, err := Preprocess(src, ".")
	be.Err(t, err, nil)
	be.Equal(t, out, "\n\n\nint main() { return 10 + 10 * N_MAX + 10 + 'N' + 0x1N; } // N stays\n")
}

func TestPreprocess_DefineErrors(t *testing.T) {
	_, err := Preprocess("#define", ".")
	be.Err(t, err, "line 1: #define without a name")

	_, err = Preprocess("int x;\n#define MAX(a, b) a", ".")
	be.Err(t, err, "line 2: function-like macro \"MAX\"")
}

func TestPreprocess_OtherDirectivesBlanked(t *testing.T) {
	out, err := Preprocess("#pragma once\n#ifdef X\nint x;\n#endif", ".")
	be.Err(t, err, nil)
	be.Equal(t, out, "\n\nint x;\n")
}

func TestPreprocess_Include(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math.h", "#define SCALE 3\nint triple(int x) { return x * SCALE; }")
	writeFile(t, dir, "again.h", "#include \"math.h\"")

	src := "#include \"math.h\"\n#include \"again.h\"\nint main() { return triple(SCALE); }"
	out, err := Preprocess(src, dir)
	be.Err(t, err, nil)
	be.Equal(t, out, "\nint triple(int x) { return x * 3; }\n\nint main() { return triple(3); }")

	res, err := Compile(src, dir, &Options{Entry: "main"})
	be.Err(t, err, nil)
	be.True(t, containsLine(res.Output.Asm, "f_triple:"))
}

func TestPreprocess_IncludeErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.h", "#include \"b.h\"")
	writeFile(t, dir, "b.h", "#include \"a.h\"")

	_, err := Preprocess("#include \"a.h\"", dir)
	be.Err(t, err, "circular include detected")

	_, err = Preprocess("#include \"missing.h\"", dir)
	be.Err(t, err, "failed to read included file missing.h")

	_, err = Preprocess("#include <stdio.h>", dir)
	be.Err(t, err, "invalid include directive")
}
