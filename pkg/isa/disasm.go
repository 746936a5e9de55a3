package isa

import (
	"fmt"

	"github.com/leonardohn/yars/pkg/register"
)

// Disassemble renders a decoded instruction as textual RISC-V assembly:
// destination first, then sources, load/store displacement as imm(rs1),
// and branch/jump displacements as signed PC-relative offsets.
func Disassemble(in Instruction) string {
	r := register.Name
	switch in.Mnemonic {
	case LUI:
		return fmt.Sprintf("%-7s %s,%#x", in.Mnemonic, r(in.Rd), uint32(in.Imm)>>12)
	case AUIPC:
		return fmt.Sprintf("%-7s %s,%#x", in.Mnemonic, r(in.Rd), uint32(in.Imm)>>12)
	case JAL:
		return fmt.Sprintf("%-7s %s,%d", in.Mnemonic, r(in.Rd), in.Imm)
	case JALR:
		return fmt.Sprintf("%-7s %s,%d(%s)", in.Mnemonic, r(in.Rd), in.Imm, r(in.Rs1))

	case BEQ, BNE, BLT, BGE, BLTU, BGEU:
		return fmt.Sprintf("%-7s %s,%s,%d", in.Mnemonic, r(in.Rs1), r(in.Rs2), in.Imm)

	case LB, LH, LW, LBU, LHU:
		return fmt.Sprintf("%-7s %s,%d(%s)", in.Mnemonic, r(in.Rd), in.Imm, r(in.Rs1))
	case SB, SH, SW:
		return fmt.Sprintf("%-7s %s,%d(%s)", in.Mnemonic, r(in.Rs2), in.Imm, r(in.Rs1))

	case SLLI, SRLI, SRAI:
		return fmt.Sprintf("%-7s %s,%s,%d", in.Mnemonic, r(in.Rd), r(in.Rs1), in.Shamt)

	case ADDI, SLTI, SLTIU, XORI, ORI, ANDI:
		return fmt.Sprintf("%-7s %s,%s,%d", in.Mnemonic, r(in.Rd), r(in.Rs1), in.Imm)

	case ADD, SUB, SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND,
		MUL, MULH, MULHSU, MULHU, DIV, DIVU, REM, REMU:
		return fmt.Sprintf("%-7s %s,%s,%s", in.Mnemonic, r(in.Rd), r(in.Rs1), r(in.Rs2))

	case FENCE:
		return fmt.Sprintf("%-7s %s,%s", in.Mnemonic, in.Pred, in.Succ)
	case FENCETSO, FENCEI, ECALL, EBREAK:
		return in.Mnemonic.String()

	case CSRRW, CSRRS, CSRRC:
		return fmt.Sprintf("%-7s %s,%#x,%s", in.Mnemonic, r(in.Rd), in.Csr, r(in.Rs1))
	case CSRRWI, CSRRSI, CSRRCI:
		return fmt.Sprintf("%-7s %s,%#x,%d", in.Mnemonic, r(in.Rd), in.Csr, in.Uimm)

	default:
		return fmt.Sprintf("<unknown mnemonic %d>", in.Mnemonic)
	}
}
