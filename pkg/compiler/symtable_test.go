package compiler

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func parseFunc(t *testing.T, src string) *FuncDef {
	t.Helper()
	fns := mustParse(t, src).Funcs()
	if len(fns) != 1 {
		t.Fatalf("expected one function, got %d", len(fns))
	}
	return fns[0]
}

func TestCollectLocals(t *testing.T) {
	fn := parseFunc(t, `
int f(int p) {
    int a = 1;
    {
        int b;
        if (a) { int c; } else { int d; }
    }
    while (a) { int e; }
    for (int i = 0; i < 3; i++) { int g, h; }
    int a;
}`)
	be.Equal(t, CollectLocals(fn.Body), []string{"a", "b", "c", "d", "e", "i", "g", "h", "a"})
	be.Equal(t, len(CollectLocals(nil)), 0)
	be.Equal(t, len(CollectLocals(&Block{})), 0)
}

func TestFrame_Resolve(t *testing.T) {
	fn := parseFunc(t, `
int f(int a, int b, int c, int d, int e) {
    int x;
    int y;
    int a;
}`)
	frame := NewFrame(fn)
	be.Equal(t, frame.Size(), (5+3)*SlotSize)

	tests := []struct {
		name   string
		loc    Location
		offset int
	}{
		{"a", Location{RegisterParam, 0}, -4},
		{"b", Location{RegisterParam, 1}, -8},
		{"c", Location{RegisterParam, 2}, -12},
		{"d", Location{StackParam, 3}, 4},
		{"e", Location{StackParam, 4}, 8},
		{"x", Location{Local, 0}, -24},
		{"y", Location{Local, 1}, -28},
		{"nowhere", Location{Unresolved, 0}, 0},
	}
	for _, tc := range tests {
		loc := frame.Resolve(tc.name)
		be.Equal(t, loc, tc.loc)
		be.Equal(t, frame.Offset(loc), tc.offset)
	}
}

func TestFrame_NoAliasing(t *testing.T) {
	for p := 0; p <= 6; p++ {
		for l := 0; l <= 6; l++ {
			frame := &Frame{}
			for i := 0; i < p; i++ {
				frame.Params = append(frame.Params, "p"+strings.Repeat("x", i))
			}
			for i := 0; i < l; i++ {
				frame.Locals = append(frame.Locals, "l"+strings.Repeat("x", i))
			}

			seen := map[int]string{}
			for _, name := range append(append([]string{}, frame.Params...), frame.Locals...) {
				off := frame.Offset(frame.Resolve(name))
				if prev, ok := seen[off]; ok {
					t.Fatalf("P=%d L=%d: %s and %s share offset %d", p, l, prev, name, off)
				}
				seen[off] = name
				if off < 0 {
					be.True(t, -off <= frame.Size())
				}
			}
		}
	}
}

func TestFrame_NilBody(t *testing.T) {
	frame := NewFrame(&FuncDef{Name: "proto", Params: []Param{{Type: "int", Name: "a"}}})
	be.Equal(t, frame.Size(), 4)
	be.Equal(t, len(frame.Locals), 0)
}

func TestFrame_String(t *testing.T) {
	frame := &Frame{Params: []string{"a", "a"}, Locals: []string{"n"}}
	dump := frame.String()
	be.True(t, strings.HasPrefix(dump, "Frame (size 12):"))
	be.True(t, strings.Contains(dump, "RegisterParam(0)"))
	be.True(t, strings.Contains(dump, "shadowed by param 0"))
	be.True(t, strings.Contains(dump, "Local(0)"))
	be.True(t, strings.Contains(dump, "bp-12"))
}

func TestLocation_String(t *testing.T) {
	be.Equal(t, Location{Kind: StackParam, Index: 4}.String(), "StackParam(4)")
	be.Equal(t, Location{}.String(), "Unresolved")
	be.Equal(t, Local.String(), "Local")
}
