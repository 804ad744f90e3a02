package utils

import (
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestGetPathInfo(t *testing.T) {
	full, dir, err := GetPathInfo(filepath.Join("a", "..", "prog.c"))
	be.Err(t, err, nil)
	be.True(t, filepath.IsAbs(full))
	be.Equal(t, filepath.Base(full), "prog.c")
	be.Equal(t, filepath.Dir(full), dir)
}

func TestSwapExt(t *testing.T) {
	be.Equal(t, SwapExt("prog.c", ".bin"), "prog.bin")
	be.Equal(t, SwapExt("dir/prog.asm", ".bin"), "dir/prog.bin")
	be.Equal(t, SwapExt("prog", ".bin"), "prog.bin")
}

func TestIsCSource(t *testing.T) {
	be.True(t, IsCSource("x.c"))
	be.True(t, IsCSource("X.C"))
	be.True(t, !IsCSource("x.asm"))
	be.True(t, !IsCSource("c"))
}
