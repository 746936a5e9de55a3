// Package isa implements the RV32I/RV32M (plus Zicsr/Zifencei decode-only)
// instruction model: a tagged representation of every supported mnemonic,
// a pure decoder from a 32-bit encoded word, and a disassembler.
package isa

import "fmt"

// Mnemonic tags which instruction case a decoded Instruction holds. Dispatch
// on Mnemonic in Decode, Disassemble, and the processor's Execute must be
// exhaustive.
type Mnemonic uint8

// The complete set of supported mnemonics.
const (
	LUI Mnemonic = iota
	AUIPC
	JAL
	JALR

	BEQ
	BNE
	BLT
	BGE
	BLTU
	BGEU

	LB
	LH
	LW
	LBU
	LHU

	SB
	SH
	SW

	ADDI
	SLTI
	SLTIU
	XORI
	ORI
	ANDI
	SLLI
	SRLI
	SRAI

	ADD
	SUB
	SLL
	SLT
	SLTU
	XOR
	SRL
	SRA
	OR
	AND

	FENCE
	FENCETSO
	FENCEI

	ECALL
	EBREAK

	CSRRW
	CSRRS
	CSRRC
	CSRRWI
	CSRRSI
	CSRRCI

	MUL
	MULH
	MULHSU
	MULHU
	DIV
	DIVU
	REM
	REMU
)

var mnemonicNames = map[Mnemonic]string{
	LUI: "lui", AUIPC: "auipc", JAL: "jal", JALR: "jalr",
	BEQ: "beq", BNE: "bne", BLT: "blt", BGE: "bge", BLTU: "bltu", BGEU: "bgeu",
	LB: "lb", LH: "lh", LW: "lw", LBU: "lbu", LHU: "lhu",
	SB: "sb", SH: "sh", SW: "sw",
	ADDI: "addi", SLTI: "slti", SLTIU: "sltiu", XORI: "xori", ORI: "ori", ANDI: "andi",
	SLLI: "slli", SRLI: "srli", SRAI: "srai",
	ADD: "add", SUB: "sub", SLL: "sll", SLT: "slt", SLTU: "sltu",
	XOR: "xor", SRL: "srl", SRA: "sra", OR: "or", AND: "and",
	FENCE: "fence", FENCETSO: "fence.tso", FENCEI: "fence.i",
	ECALL: "ecall", EBREAK: "ebreak",
	CSRRW: "csrrw", CSRRS: "csrrs", CSRRC: "csrrc",
	CSRRWI: "csrrwi", CSRRSI: "csrrsi", CSRRCI: "csrrci",
	MUL: "mul", MULH: "mulh", MULHSU: "mulhsu", MULHU: "mulhu",
	DIV: "div", DIVU: "divu", REM: "rem", REMU: "remu",
}

// String returns the canonical lowercase mnemonic name.
func (m Mnemonic) String() string {
	if name, ok := mnemonicNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mnemonic(%d)", uint8(m))
}

// FenceKind is the predecessor/successor ordering set carried by FENCE.
type FenceKind uint8

// The three valid fence orderings. Any other 2-bit pattern is invalid.
const (
	FenceW  FenceKind = 0b01
	FenceR  FenceKind = 0b10
	FenceRW FenceKind = 0b11
)

// String renders the fence ordering the way the original simulator's
// Display implementation does ("r", "w", "rw").
func (k FenceKind) String() string {
	switch k {
	case FenceR:
		return "r"
	case FenceW:
		return "w"
	case FenceRW:
		return "rw"
	default:
		return fmt.Sprintf("fence(%#b)", uint8(k))
	}
}

// Instruction is a decoded instruction: a closed sum type tagged by
// Mnemonic, carrying only the fields each case needs. Fields unused by a
// given Mnemonic are left at their zero value.
type Instruction struct {
	Mnemonic Mnemonic

	Rd  uint32
	Rs1 uint32
	Rs2 uint32

	// Imm holds the sign-extended immediate for I/S/B/U/J forms. For U/J
	// forms it is the full 32-bit value; for I/S/B forms it fits in 12 or
	// 13 signed bits.
	Imm int32

	Shamt uint32 // 5-bit shift amount (SLLI/SRLI/SRAI)

	Pred FenceKind
	Succ FenceKind

	Csr  uint32 // 12-bit CSR index
	Uimm uint32 // 5-bit unsigned immediate (CSR*I variants, from the rs1 slot)
}
