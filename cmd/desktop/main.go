package main

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"minicc/pkg/asm"
	"minicc/pkg/compiler"
	"minicc/pkg/cpu"
	"minicc/pkg/utils"
)

const (
	screenWidth  = 800
	screenHeight = 600
	lineHeight   = 16
	listingRows  = 34
	listingWidth = 520
)

var (
	colorBackground = color.RGBA{0x18, 0x1a, 0x20, 0xff}
	colorText       = color.RGBA{0xd8, 0xd8, 0xd8, 0xff}
	colorDim        = color.RGBA{0x80, 0x80, 0x88, 0xff}
	colorCurrent    = color.RGBA{0x30, 0x50, 0x80, 0xff}
	colorFault      = color.RGBA{0xe0, 0x50, 0x50, 0xff}
)

type action int

const (
	actionNone action = iota
	actionStep
	actionToggleRun
	actionReset
	actionFaster
	actionSlower
)

// Game steps one assembled program and shows the listing next to the
// machine state.
type Game struct {
	vm      *cpu.CPU
	prog    *asm.Program
	face    text.Face
	running bool
	// speed is the number of instructions executed per frame while running.
	speed int
}

func newGame(prog *asm.Program) (*Game, error) {
	g := &Game{
		prog:  prog,
		face:  text.NewGoXFace(basicfont.Face7x13),
		speed: 1,
	}
	return g, g.reset()
}

func (g *Game) reset() error {
	g.vm = cpu.NewCPU()
	g.running = false
	return g.vm.Load(g.prog.Image, g.prog.Entry)
}

func (g *Game) apply(a action) error {
	switch a {
	case actionStep:
		g.running = false
		g.vm.Step()
	case actionToggleRun:
		g.running = !g.running && !g.vm.Halted
	case actionReset:
		return g.reset()
	case actionFaster:
		g.speed = min(g.speed*2, 1<<16)
	case actionSlower:
		g.speed = max(g.speed/2, 1)
	}
	return nil
}

func readAction() action {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace), inpututil.IsKeyJustPressed(ebiten.KeyS):
		return actionStep
	case inpututil.IsKeyJustPressed(ebiten.KeyR), inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		return actionToggleRun
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		return actionReset
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		return actionFaster
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		return actionSlower
	}
	return actionNone
}

func (g *Game) Update() error {
	if err := g.apply(readAction()); err != nil {
		return err
	}
	g.tick()
	return nil
}

// tick runs one frame's worth of instructions while the program runs.
func (g *Game) tick() {
	if !g.running {
		return
	}
	for i := 0; i < g.speed; i++ {
		if g.vm.Halted {
			g.running = false
			return
		}
		g.vm.Step()
	}
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = lineHeight
	text.Draw(screen, s, g.face, op)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)

	rows, current := listingWindow(g.prog, g.vm.Regs[cpu.PC], listingRows)
	for i, row := range rows {
		y := float64(8 + i*lineHeight)
		if i == current {
			vector.DrawFilledRect(screen, 4, float32(y)-2, listingWidth-8, lineHeight, colorCurrent, false)
		}
		g.drawText(screen, row, 8, y, colorText)
	}

	status := statusLines(g.vm, 8)
	g.drawText(screen, strings.Join(status, "\n"), listingWidth+8, 8, colorText)
	if g.vm.Fault != nil {
		g.drawText(screen, g.vm.Fault.Error(), 8, screenHeight-40, colorFault)
	}

	mode := "paused"
	if g.running {
		mode = fmt.Sprintf("running x%d", g.speed)
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s  [space] step  [r] run  [bksp] reset  [up/down] speed  %.0f fps", mode, ebiten.ActualFPS()), 8, screenHeight-20)
	g.drawText(screen, fmt.Sprintf("steps %d", g.vm.Steps), listingWidth+8, screenHeight-40, colorDim)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// listingWindow returns up to rows source lines centred on the line that
// holds pc, each prefixed with its address when it emits code, and the
// index of that line within the window (-1 when pc maps to no line).
func listingWindow(prog *asm.Program, pc int32, rows int) ([]string, int) {
	addrOf := make(map[int]int32, len(prog.SourceMap))
	for addr, line := range prog.SourceMap {
		addrOf[line] = addr
	}

	currentLine, ok := prog.SourceMap[pc]
	start := 1
	if ok {
		start = max(currentLine-rows/2, 1)
	}
	end := min(start+rows, len(prog.Lines)+1)

	var out []string
	current := -1
	for line := start; line < end; line++ {
		prefix := "      "
		if addr, ok := addrOf[line]; ok {
			prefix = fmt.Sprintf("%04X  ", uint32(addr))
		}
		if ok && line == currentLine {
			current = len(out)
		}
		out = append(out, prefix+strings.TrimRight(prog.Lines[line-1], " \t\r"))
	}
	return out, current
}

// statusLines formats the registers, flags and the top stack words.
func statusLines(vm *cpu.CPU, stackWords int) []string {
	var lines []string
	for r := uint8(0); r < cpu.NumRegs; r++ {
		lines = append(lines, fmt.Sprintf("%-3s %11d", cpu.RegName(r), vm.Regs[r]))
	}
	lines = append(lines, "", fmt.Sprintf("Z=%t N=%t", vm.Z, vm.N))
	if vm.Halted {
		lines = append(lines, "halted")
	}
	lines = append(lines, "", "stack")
	for i, w := range vm.StackWords(stackWords) {
		lines = append(lines, fmt.Sprintf("sp+%-3d %11d", i*cpu.WordSize, w))
	}
	return lines
}

func load(path string) (*asm.Program, error) {
	fullPath, baseDir, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if !utils.IsCSource(fullPath) {
		return asm.Assemble(string(source))
	}
	res, err := compiler.Compile(string(source), baseDir, compiler.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return res.Asm, nil
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: desktop <file.c|file.asm>")
	}

	prog, err := load(os.Args[1])
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}

	game, err := newGame(prog)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("minicc stepper")

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
