package cpu

import (
	"testing"
)

// BenchmarkCPU_NOP measures the raw dispatch overhead of the Step loop by
// running a tight block of NOP instructions followed by HLT.
func BenchmarkCPU_NOP(b *testing.B) {
	const nopCount = 1000

	prog := make([]Instruction, 0, nopCount+1)
	for j := 0; j < nopCount; j++ {
		prog = append(prog, Instruction{Op: OpNOP})
	}
	prog = append(prog, Instruction{Op: OpHLT})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := NewCPU()
		loadProgram(c, prog...)
		c.Run()
	}
}

// BenchmarkCPU_CountdownLoop runs the compare/branch/add pattern that the
// multiply and divide loops are built from.
func BenchmarkCPU_CountdownLoop(b *testing.B) {
	prog := []Instruction{
		{Op: OpMOVI, A: R1, Imm: 1000},
		{Op: OpMOVI, A: R3, Imm: 0},
		{Op: OpMOVI, A: R2, Imm: 3},
		{Op: OpCMP, A: R1, Mode: ModeImm, Imm: 0}, // 0x18
		{Op: OpJZ, Imm: 0x40},
		{Op: OpADD, A: R3, B: R2},
		{Op: OpADDIS, A: R1, Imm: -1},
		{Op: OpJMP, Imm: 0x18},
		{Op: OpHLT}, // 0x40
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := NewCPU()
		loadProgram(c, prog...)
		c.Run()
		if c.Regs[R3] != 3000 {
			b.Fatalf("r3 = %d, want 3000", c.Regs[R3])
		}
	}
}

// BenchmarkCPU_CallRet measures a call with a frame setup and teardown.
func BenchmarkCPU_CallRet(b *testing.B) {
	const calls = 500

	var prog []Instruction
	for j := 0; j < calls; j++ {
		prog = append(prog,
			Instruction{Op: OpPUSH, A: LR},
			Instruction{Op: OpCALL, Imm: int32((calls*3 + 1) * InstrSize)},
			Instruction{Op: OpPOP, A: LR},
		)
	}
	prog = append(prog,
		Instruction{Op: OpHLT},
		Instruction{Op: OpPUSH, A: BP},
		Instruction{Op: OpMOV, A: BP, B: SP},
		Instruction{Op: OpADDIS, A: SP, Imm: -8},
		Instruction{Op: OpADDIS, A: SP, Imm: 8},
		Instruction{Op: OpPOP, A: BP},
		Instruction{Op: OpRET},
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := NewCPU()
		loadProgram(c, prog...)
		c.Run()
		if c.Fault != nil {
			b.Fatal(c.Fault)
		}
	}
}
