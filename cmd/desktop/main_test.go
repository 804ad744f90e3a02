package main

import (
	"strings"
	"testing"

	"minicc/pkg/compiler"
	"minicc/pkg/cpu"
)

const demo = `int main() {
    int s = 0;
    for (int i = 1; i <= 3; i++) s += i;
    return s;
}`

func newDemoGame(t *testing.T) *Game {
	t.Helper()
	res, err := compiler.Compile(demo, ".", &compiler.Options{Entry: "main"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	g, err := newGame(res.Asm)
	if err != nil {
		t.Fatalf("newGame failed: %v", err)
	}
	return g
}

func TestGameStepAndReset(t *testing.T) {
	g := newDemoGame(t)

	if err := g.apply(actionStep); err != nil {
		t.Fatal(err)
	}
	if g.vm.Steps != 1 {
		t.Errorf("expected 1 step, got %d", g.vm.Steps)
	}

	if err := g.apply(actionToggleRun); err != nil {
		t.Fatal(err)
	}
	if !g.running {
		t.Fatal("expected running after toggle")
	}
	g.speed = 1000
	g.tick()
	if !g.vm.Halted || g.running {
		t.Fatalf("expected program to finish, halted=%t running=%t", g.vm.Halted, g.running)
	}
	if got := g.vm.Regs[cpu.R1]; got != 6 {
		t.Errorf("expected r1=6, got %d", got)
	}

	if err := g.apply(actionReset); err != nil {
		t.Fatal(err)
	}
	if g.vm.Steps != 0 || g.vm.Halted {
		t.Errorf("reset did not restore the machine")
	}
}

func TestGameSpeed(t *testing.T) {
	g := newDemoGame(t)
	g.apply(actionSlower)
	if g.speed != 1 {
		t.Errorf("speed should not drop below 1, got %d", g.speed)
	}
	g.apply(actionFaster)
	g.apply(actionFaster)
	if g.speed != 4 {
		t.Errorf("expected speed 4, got %d", g.speed)
	}
}

func TestListingWindow(t *testing.T) {
	g := newDemoGame(t)

	rows, current := listingWindow(g.prog, g.vm.Regs[cpu.PC], 10)
	if current < 0 {
		t.Fatal("entry address not found in listing")
	}
	if !strings.HasPrefix(rows[current], "0000  ") {
		t.Errorf("expected the current row at address 0, got %q", rows[current])
	}
	if len(rows) > 10 {
		t.Errorf("window too large: %d rows", len(rows))
	}

	_, current = listingWindow(g.prog, 0x7FFF, 10)
	if current != -1 {
		t.Errorf("expected no current row for an unmapped pc, got %d", current)
	}
}

func TestStatusLines(t *testing.T) {
	g := newDemoGame(t)
	lines := statusLines(g.vm, 2)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"r1", "sp", "Z=false N=false", "stack", "sp+0"} {
		if !strings.Contains(joined, want) {
			t.Errorf("status is missing %q:\n%s", want, joined)
		}
	}
}
