package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	OpHLT   uint8 = 0x00
	OpNOP   uint8 = 0x01
	OpMOVI  uint8 = 0x02
	OpMOV   uint8 = 0x03
	OpLOAD  uint8 = 0x04
	OpSTORE uint8 = 0x05
	OpADD   uint8 = 0x06
	OpSUB   uint8 = 0x07
	OpADDIS uint8 = 0x08
	OpCMP   uint8 = 0x09
	OpJMP   uint8 = 0x0A
	OpJZ    uint8 = 0x0B
	OpJNZ   uint8 = 0x0C
	OpJL    uint8 = 0x0D
	OpJG    uint8 = 0x0E
	OpPUSH  uint8 = 0x0F
	OpPOP   uint8 = 0x10
	OpCALL  uint8 = 0x11
	OpRET   uint8 = 0x12
)

// Operand modes for instructions that accept either a register or an
// immediate as their second operand (currently only CMP).
const (
	ModeReg uint8 = 0
	ModeImm uint8 = 1
)

// Register indices. r0..r7 are general purpose; the compiler uses r1 as the
// result register, r2/r3 as operand scratch and r5..r7 for arguments.
const (
	R0 uint8 = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	BP
	SP
	LR
	PC
	NumRegs
)

var regNames = [NumRegs]string{"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", "bp", "sp", "lr", "pc"}

// RegName returns the assembly spelling of register idx.
func RegName(idx uint8) string {
	if idx < NumRegs {
		return regNames[idx]
	}
	return fmt.Sprintf("reg%d", idx)
}

const (
	// MemorySize is the size of the flat, byte addressed memory.
	MemorySize = 1 << 16
	// WordSize is the width of registers, stack slots and memory words.
	WordSize = 4
	// InstrSize is the encoded width of every instruction.
	InstrSize = 8
	// StackTop is the initial stack pointer; the stack grows down.
	StackTop = MemorySize
)

var (
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrBadAddress     = errors.New("memory access out of range")
	ErrIllegalOpcode  = errors.New("illegal opcode")
	ErrProgramTooLong = errors.New("program too large for memory")
)

// Instruction is a decoded 8-byte instruction word.
//
//	byte 0    opcode
//	byte 1    register A
//	byte 2    register B
//	byte 3    operand mode
//	byte 4-7  signed 32-bit immediate (little endian)
type Instruction struct {
	Op   uint8
	A    uint8
	B    uint8
	Mode uint8
	Imm  int32
}

// Encode returns the 8-byte little-endian encoding of in.
func (in Instruction) Encode() []byte {
	buf := make([]byte, InstrSize)
	buf[0] = in.Op
	buf[1] = in.A
	buf[2] = in.B
	buf[3] = in.Mode
	binary.LittleEndian.PutUint32(buf[4:], uint32(in.Imm))
	return buf
}

// Decode reads one instruction from the first InstrSize bytes of b.
func Decode(b []byte) Instruction {
	return Instruction{
		Op:   b[0],
		A:    b[1],
		B:    b[2],
		Mode: b[3],
		Imm:  int32(binary.LittleEndian.Uint32(b[4:])),
	}
}

// CPU is the virtual machine executing assembled programs.
type CPU struct {
	Regs [NumRegs]int32

	// Z is set when the last compare found equal operands (or an arithmetic
	// result was zero); N when the left operand was less (or the result
	// negative).
	Z bool
	N bool

	Memory [MemorySize]byte

	Halted bool
	Steps  int

	// Fault records the error that stopped the machine, if any.
	Fault error
}

// NewCPU creates a machine with an empty memory and the stack pointer at
// the top of memory.
func NewCPU() *CPU {
	c := &CPU{}
	c.Regs[SP] = StackTop
	c.Regs[BP] = StackTop
	return c
}

// Load copies an assembled image to address 0 and points PC at entry.
func (c *CPU) Load(image []byte, entry int32) error {
	if len(image) > MemorySize {
		return fmt.Errorf("%w: %d bytes > %d bytes", ErrProgramTooLong, len(image), MemorySize)
	}
	copy(c.Memory[:], image)
	c.Regs[PC] = entry
	return nil
}

// checkAddr rejects accesses that fall outside memory. The bound is
// written as MemorySize-width so a high addr cannot wrap past it.
func (c *CPU) checkAddr(addr int32, width int32) error {
	if addr < 0 || addr > MemorySize-width {
		return fmt.Errorf("%w: 0x%X", ErrBadAddress, uint32(addr))
	}
	return nil
}

// ReadWord reads a little-endian 32-bit word.
func (c *CPU) ReadWord(addr int32) (int32, error) {
	if err := c.checkAddr(addr, WordSize); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(c.Memory[addr:])), nil
}

// WriteWord writes a little-endian 32-bit word.
func (c *CPU) WriteWord(addr int32, val int32) error {
	if err := c.checkAddr(addr, WordSize); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(c.Memory[addr:], uint32(val))
	return nil
}

func (c *CPU) updateFlags(result int32) {
	c.Z = result == 0
	c.N = result < 0
}

func (c *CPU) compare(a, b int32) {
	c.Z = a == b
	c.N = a < b
}

func (c *CPU) push(val int32) error {
	c.Regs[SP] -= WordSize
	return c.WriteWord(c.Regs[SP], val)
}

func (c *CPU) pop() (int32, error) {
	val, err := c.ReadWord(c.Regs[SP])
	if err != nil {
		return 0, err
	}
	c.Regs[SP] += WordSize
	return val, nil
}

func (c *CPU) fault(err error) {
	c.Fault = fmt.Errorf("pc=0x%04X: %w", uint32(c.Regs[PC]), err)
	c.Halted = true
}

// Step executes a single instruction.
func (c *CPU) Step() {
	if c.Halted {
		return
	}

	pc := c.Regs[PC]
	if err := c.checkAddr(pc, InstrSize); err != nil {
		c.fault(err)
		return
	}
	in := Decode(c.Memory[pc : pc+InstrSize])
	if in.A >= NumRegs || in.B >= NumRegs {
		c.fault(fmt.Errorf("%w: register out of range", ErrIllegalOpcode))
		return
	}
	c.Regs[PC] = pc + InstrSize
	c.Steps++

	switch in.Op {
	case OpHLT:
		c.Halted = true

	case OpNOP:
		// No operation.

	case OpMOVI:
		c.Regs[in.A] = in.Imm

	case OpMOV:
		c.Regs[in.A] = c.Regs[in.B]

	case OpLOAD:
		val, err := c.ReadWord(c.Regs[in.B])
		if err != nil {
			c.fault(err)
			return
		}
		c.Regs[in.A] = val

	case OpSTORE:
		if err := c.WriteWord(c.Regs[in.A], c.Regs[in.B]); err != nil {
			c.fault(err)
			return
		}

	case OpADD:
		c.Regs[in.A] += c.Regs[in.B]
		c.updateFlags(c.Regs[in.A])

	case OpSUB:
		c.Regs[in.A] -= c.Regs[in.B]
		c.updateFlags(c.Regs[in.A])

	case OpADDIS:
		c.Regs[in.A] += in.Imm
		c.updateFlags(c.Regs[in.A])

	case OpCMP:
		rhs := c.Regs[in.B]
		if in.Mode == ModeImm {
			rhs = in.Imm
		}
		c.compare(c.Regs[in.A], rhs)

	case OpJMP:
		c.Regs[PC] = in.Imm

	case OpJZ:
		if c.Z {
			c.Regs[PC] = in.Imm
		}

	case OpJNZ:
		if !c.Z {
			c.Regs[PC] = in.Imm
		}

	case OpJL:
		if c.N {
			c.Regs[PC] = in.Imm
		}

	case OpJG:
		if !c.Z && !c.N {
			c.Regs[PC] = in.Imm
		}

	case OpPUSH:
		if err := c.push(c.Regs[in.A]); err != nil {
			c.fault(err)
			return
		}

	case OpPOP:
		val, err := c.pop()
		if err != nil {
			c.fault(err)
			return
		}
		c.Regs[in.A] = val

	case OpCALL:
		c.Regs[LR] = c.Regs[PC]
		c.Regs[PC] = in.Imm

	case OpRET:
		c.Regs[PC] = c.Regs[LR]

	default:
		c.fault(fmt.Errorf("%w: 0x%02X", ErrIllegalOpcode, in.Op))
	}
}

// Run executes until the machine halts.
func (c *CPU) Run() error {
	for !c.Halted {
		c.Step()
	}
	return c.Fault
}

// RunFor executes at most limit instructions. It returns ErrStepLimit when
// the program is still running afterwards.
func (c *CPU) RunFor(limit int) error {
	for i := 0; i < limit; i++ {
		if c.Halted {
			return c.Fault
		}
		c.Step()
	}
	if c.Halted {
		return c.Fault
	}
	return fmt.Errorf("%w: %d instructions", ErrStepLimit, limit)
}

// StackWords returns up to n words starting at the current stack pointer.
func (c *CPU) StackWords(n int) []int32 {
	var words []int32
	for addr := c.Regs[SP]; addr >= 0 && addr <= MemorySize-WordSize && len(words) < n; addr += WordSize {
		w, _ := c.ReadWord(addr)
		words = append(words, w)
	}
	return words
}
