package asm

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"minicc/pkg/cpu"
)

// EntryLabel marks the first instruction executed by the machine.
const EntryLabel = "__START__"

var zeroOperandOps = map[string]uint8{
	"HALT": cpu.OpHLT,
	"HLT":  cpu.OpHLT,
	"NOP":  cpu.OpNOP,
	"RET":  cpu.OpRET,
}

var oneRegisterOps = map[string]uint8{
	"PUSH": cpu.OpPUSH,
	"POP":  cpu.OpPOP,
}

var twoRegisterOps = map[string]uint8{
	"MOV":   cpu.OpMOV,
	"LOAD":  cpu.OpLOAD,
	"STORE": cpu.OpSTORE,
	"ADD":   cpu.OpADD,
	"SUB":   cpu.OpSUB,
}

var regAndImmediateOps = map[string]uint8{
	"MOVI":  cpu.OpMOVI,
	"ADDIS": cpu.OpADDIS,
}

// regAndEitherOps take a register followed by a register or an immediate.
var regAndEitherOps = map[string]uint8{
	"CMP": cpu.OpCMP,
}

var immediateOnlyOps = map[string]uint8{
	"JMP":  cpu.OpJMP,
	"JZ":   cpu.OpJZ,
	"JNZ":  cpu.OpJNZ,
	"JL":   cpu.OpJL,
	"JG":   cpu.OpJG,
	"CALL": cpu.OpCALL,
}

var registers = map[string]uint8{
	"R0": cpu.R0, "R1": cpu.R1, "R2": cpu.R2, "R3": cpu.R3,
	"R4": cpu.R4, "R5": cpu.R5, "R6": cpu.R6, "R7": cpu.R7,
	"BP": cpu.BP, "SP": cpu.SP, "LR": cpu.LR, "PC": cpu.PC,
}

// Program is the result of assembling one source text.
type Program struct {
	Image []byte
	// Entry is the address of EntryLabel, or 0 when the label is absent.
	Entry  int32
	Labels map[string]int32
	// SourceMap maps the address of every emitted item to its 1-based
	// source line.
	SourceMap map[int32]int
	// Lines holds the raw source lines, for tools that display them.
	Lines []string
}

// HasEntry reports whether the source defined EntryLabel.
func (p *Program) HasEntry() bool {
	_, ok := p.Labels[EntryLabel]
	return ok
}

type Assembler struct {
	labels map[string]int32
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int32),
	}
}

func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	image, sourceMap, err := a.pass2(lines)
	if err != nil {
		return nil, err
	}

	return &Program{
		Image:     image,
		Entry:     a.labels[EntryLabel],
		Labels:    a.labels,
		SourceMap: sourceMap,
		Lines:     lines,
	}, nil
}

func (a *Assembler) pass1(lines []string) error {
	var address int64

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = int32(address)
		}

		if p.mnemonic == "" {
			continue
		}

		length, ok := itemLength(p.mnemonic)
		if !ok {
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}
		if address+int64(length) > cpu.MemorySize {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += int64(length)
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[int32]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[int32]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		sourceMap[int32(len(program))] = lineNo

		mnemonic := p.mnemonic
		ops := p.operands

		if mnemonic == ".WORD" {
			if len(ops) != 1 {
				return nil, nil, fmt.Errorf(".WORD expects exactly one operand on line %d", lineNo)
			}
			val, err := a.parseImmediate(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			program = binary.LittleEndian.AppendUint32(program, uint32(val))
			continue
		}

		in, err := a.encode(mnemonic, ops, lineNo)
		if err != nil {
			return nil, nil, err
		}
		program = append(program, in.Encode()...)
	}

	return program, sourceMap, nil
}

func (a *Assembler) encode(mnemonic string, ops []string, lineNo int) (cpu.Instruction, error) {
	if opcode, ok := zeroOperandOps[mnemonic]; ok {
		if len(ops) != 0 {
			return cpu.Instruction{}, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
		}
		return cpu.Instruction{Op: opcode}, nil
	}

	if opcode, ok := oneRegisterOps[mnemonic]; ok {
		if len(ops) != 1 {
			return cpu.Instruction{}, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
		}
		regA, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		return cpu.Instruction{Op: opcode, A: regA}, nil
	}

	if opcode, ok := twoRegisterOps[mnemonic]; ok {
		if len(ops) != 2 {
			return cpu.Instruction{}, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
		}
		regA, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		regB, err := parseRegister(ops[1], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		return cpu.Instruction{Op: opcode, A: regA, B: regB}, nil
	}

	if opcode, ok := regAndImmediateOps[mnemonic]; ok {
		if len(ops) != 2 {
			return cpu.Instruction{}, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
		}
		regA, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		imm, err := a.parseImmediate(ops[1], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		return cpu.Instruction{Op: opcode, A: regA, Mode: cpu.ModeImm, Imm: imm}, nil
	}

	if opcode, ok := regAndEitherOps[mnemonic]; ok {
		if len(ops) != 2 {
			return cpu.Instruction{}, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
		}
		regA, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		if regB, ok := registers[strings.ToUpper(ops[1])]; ok {
			return cpu.Instruction{Op: opcode, A: regA, B: regB, Mode: cpu.ModeReg}, nil
		}
		imm, err := a.parseImmediate(ops[1], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		return cpu.Instruction{Op: opcode, A: regA, Mode: cpu.ModeImm, Imm: imm}, nil
	}

	if opcode, ok := immediateOnlyOps[mnemonic]; ok {
		if len(ops) != 1 {
			return cpu.Instruction{}, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
		}
		imm, err := a.parseImmediate(ops[0], lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		return cpu.Instruction{Op: opcode, Mode: cpu.ModeImm, Imm: imm}, nil
	}

	return cpu.Instruction{}, fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	line = normalizeInstructionText(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	replacer := strings.NewReplacer(",", " ", "[", " ", "]", " ")
	return replacer.Replace(line)
}

func parseRegister(token string, lineNo int) (uint8, error) {
	if reg, ok := registers[strings.ToUpper(token)]; ok {
		return reg, nil
	}
	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

func (a *Assembler) parseImmediate(token string, lineNo int) (int32, error) {
	if value, err := strconv.ParseInt(token, 0, 64); err == nil {
		if value < -(1<<31) || value > 1<<32-1 {
			return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
		}
		return int32(value), nil
	}

	if addr, ok := a.labels[token]; ok {
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

// itemLength returns the byte length of an instruction or data directive.
func itemLength(mnemonic string) (int, bool) {
	mnemonic = strings.ToUpper(mnemonic)

	if mnemonic == ".WORD" {
		return cpu.WordSize, true
	}
	for _, table := range []map[string]uint8{
		zeroOperandOps, oneRegisterOps, twoRegisterOps,
		regAndImmediateOps, regAndEitherOps, immediateOnlyOps,
	} {
		if _, ok := table[mnemonic]; ok {
			return cpu.InstrSize, true
		}
	}
	return 0, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
