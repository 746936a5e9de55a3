// Package cpu implements the fetch/execute engine: it owns the memory, the
// register file and the program counter, and applies each decoded
// instruction to architectural state exactly as RV32I/RV32M require.
package cpu

import (
	"errors"
	"fmt"
	"math"

	"github.com/leonardohn/yars/pkg/isa"
	"github.com/leonardohn/yars/pkg/memory"
	"github.com/leonardohn/yars/pkg/register"
)

// The following errors are produced by Fetch and Execute. Ecall and Ebreak
// are not faults: the run loop treats them as clean termination.
var (
	ErrIllegalFetch   = errors.New("cpu: pc outside memory")
	ErrMisalignedFetch = errors.New("cpu: pc not word-aligned")
	ErrIllegalAccess  = errors.New("cpu: memory access outside bounds")
	ErrEcall          = errors.New("cpu: ecall")
	ErrEbreak         = errors.New("cpu: ebreak")
)

// Processor is the RV32I/RV32M fetch/execute engine. The zero value is not
// usable; construct one with New.
type Processor struct {
	mem   *memory.Memory
	regs  register.File
	pc    uint32
	cycles uint64
}

// New constructs a Processor over mem. The stack pointer is seeded to
// mem.Size()-1 and PC starts at zero; callers typically override PC
// immediately after construction with SetPC.
func New(mem *memory.Memory) *Processor {
	p := &Processor{mem: mem}
	p.regs.Write(register.SP, mem.Size()-1)
	return p
}

// PC returns the current program counter.
func (p *Processor) PC() uint32 { return p.pc }

// SetPC overrides the program counter, e.g. from an ELF entry point or a
// CLI --pc override.
func (p *Processor) SetPC(pc uint32) { p.pc = pc }

// Cycles returns the number of retired (or trapped) execute invocations.
func (p *Processor) Cycles() uint64 { return p.cycles }

// Memory returns the processor's backing memory.
func (p *Processor) Memory() *memory.Memory { return p.mem }

// Registers returns the processor's register file.
func (p *Processor) Registers() *register.File { return &p.regs }

// Fetch reads and decodes the instruction at PC without modifying any
// state.
func (p *Processor) Fetch() (isa.Instruction, error) {
	if p.pc >= p.mem.Size() {
		return isa.Instruction{}, fmt.Errorf("%w: pc=%#x", ErrIllegalFetch, p.pc)
	}
	if p.pc%4 != 0 {
		return isa.Instruction{}, fmt.Errorf("%w: pc=%#x", ErrMisalignedFetch, p.pc)
	}
	word, err := p.mem.ReadWord(p.pc)
	if err != nil {
		return isa.Instruction{}, fmt.Errorf("%w: pc=%#x", ErrIllegalFetch, p.pc)
	}
	in, err := isa.Decode(word)
	if err != nil {
		return isa.Instruction{}, err
	}
	return in, nil
}

// Execute applies a decoded instruction to architectural state. It
// increments the cycle counter exactly once per invocation, including
// invocations that return ErrEcall/ErrEbreak. Execute writes PC itself
// only for taken branches and jumps; the caller (Step) is responsible for
// the normal +4 advance otherwise.
func (p *Processor) Execute(in isa.Instruction) error {
	defer func() { p.cycles++ }()

	switch in.Mnemonic {
	case isa.LUI:
		p.regs.Write(in.Rd, uint32(in.Imm))
	case isa.AUIPC:
		p.regs.Write(in.Rd, p.pc+uint32(in.Imm))

	case isa.LB, isa.LH, isa.LW, isa.LBU, isa.LHU:
		return p.execLoad(in)
	case isa.SB, isa.SH, isa.SW:
		return p.execStore(in)

	case isa.ADDI:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)+uint32(in.Imm))
	case isa.SLTI:
		p.setBool(in.Rd, int32(p.regs.Read(in.Rs1)) < in.Imm)
	case isa.SLTIU:
		p.setBool(in.Rd, p.regs.Read(in.Rs1) < uint32(in.Imm))
	case isa.XORI:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)^uint32(in.Imm))
	case isa.ORI:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)|uint32(in.Imm))
	case isa.ANDI:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)&uint32(in.Imm))

	case isa.SLLI:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)<<in.Shamt)
	case isa.SRLI:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)>>in.Shamt)
	case isa.SRAI:
		p.regs.Write(in.Rd, uint32(int32(p.regs.Read(in.Rs1))>>in.Shamt))

	case isa.ADD:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)+p.regs.Read(in.Rs2))
	case isa.SUB:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)-p.regs.Read(in.Rs2))
	case isa.SLL:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)<<(p.regs.Read(in.Rs2)&0x1F))
	case isa.SLT:
		p.setBool(in.Rd, int32(p.regs.Read(in.Rs1)) < int32(p.regs.Read(in.Rs2)))
	case isa.SLTU:
		p.setBool(in.Rd, p.regs.Read(in.Rs1) < p.regs.Read(in.Rs2))
	case isa.XOR:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)^p.regs.Read(in.Rs2))
	case isa.SRL:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)>>(p.regs.Read(in.Rs2)&0x1F))
	case isa.SRA:
		p.regs.Write(in.Rd, uint32(int32(p.regs.Read(in.Rs1))>>(p.regs.Read(in.Rs2)&0x1F)))
	case isa.OR:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)|p.regs.Read(in.Rs2))
	case isa.AND:
		p.regs.Write(in.Rd, p.regs.Read(in.Rs1)&p.regs.Read(in.Rs2))

	case isa.BEQ:
		p.branch(in, p.regs.Read(in.Rs1) == p.regs.Read(in.Rs2))
	case isa.BNE:
		p.branch(in, p.regs.Read(in.Rs1) != p.regs.Read(in.Rs2))
	case isa.BLT:
		p.branch(in, int32(p.regs.Read(in.Rs1)) < int32(p.regs.Read(in.Rs2)))
	case isa.BGE:
		p.branch(in, int32(p.regs.Read(in.Rs1)) >= int32(p.regs.Read(in.Rs2)))
	case isa.BLTU:
		p.branch(in, p.regs.Read(in.Rs1) < p.regs.Read(in.Rs2))
	case isa.BGEU:
		p.branch(in, p.regs.Read(in.Rs1) >= p.regs.Read(in.Rs2))

	case isa.JAL:
		p.regs.Write(in.Rd, p.pc+4)
		p.pc = p.pc + uint32(in.Imm)
	case isa.JALR:
		target := (p.regs.Read(in.Rs1) + uint32(in.Imm)) &^ 1
		p.regs.Write(in.Rd, p.pc+4)
		p.pc = target

	case isa.FENCE, isa.FENCETSO, isa.FENCEI:
		// Single hart, program-order execution, no instruction cache: all
		// fence variants are no-ops.

	case isa.CSRRW, isa.CSRRS, isa.CSRRC, isa.CSRRWI, isa.CSRRSI, isa.CSRRCI:
		// No CSR file is modelled; CSR instructions decode but do not
		// affect architectural state.

	case isa.ECALL:
		return ErrEcall
	case isa.EBREAK:
		return ErrEbreak

	case isa.MUL:
		p.regs.Write(in.Rd, uint32(int32(p.regs.Read(in.Rs1))*int32(p.regs.Read(in.Rs2))))
	case isa.MULH:
		a := int64(int32(p.regs.Read(in.Rs1)))
		b := int64(int32(p.regs.Read(in.Rs2)))
		p.regs.Write(in.Rd, uint32(uint64(a*b)>>32))
	case isa.MULHSU:
		a := int64(int32(p.regs.Read(in.Rs1)))
		b := int64(p.regs.Read(in.Rs2)) // zero-extended
		p.regs.Write(in.Rd, uint32(uint64(a*b)>>32))
	case isa.MULHU:
		a := uint64(p.regs.Read(in.Rs1))
		b := uint64(p.regs.Read(in.Rs2))
		p.regs.Write(in.Rd, uint32((a*b)>>32))

	case isa.DIV:
		p.regs.Write(in.Rd, execDiv(p.regs.Read(in.Rs1), p.regs.Read(in.Rs2)))
	case isa.DIVU:
		p.regs.Write(in.Rd, execDivu(p.regs.Read(in.Rs1), p.regs.Read(in.Rs2)))
	case isa.REM:
		p.regs.Write(in.Rd, execRem(p.regs.Read(in.Rs1), p.regs.Read(in.Rs2)))
	case isa.REMU:
		p.regs.Write(in.Rd, execRemu(p.regs.Read(in.Rs1), p.regs.Read(in.Rs2)))

	default:
		return fmt.Errorf("%w: unhandled mnemonic %s", isa.ErrInvalidOpcode, in.Mnemonic)
	}
	return nil
}

func (p *Processor) setBool(rd uint32, v bool) {
	if v {
		p.regs.Write(rd, 1)
	} else {
		p.regs.Write(rd, 0)
	}
}

func (p *Processor) branch(in isa.Instruction, taken bool) {
	if taken {
		p.pc = p.pc + uint32(in.Imm)
	}
}

func (p *Processor) execLoad(in isa.Instruction) error {
	addr := p.regs.Read(in.Rs1) + uint32(in.Imm)
	switch in.Mnemonic {
	case isa.LB:
		v, err := p.mem.ReadByte(addr)
		if err != nil {
			return illegalAccess(addr, err)
		}
		p.regs.Write(in.Rd, uint32(int32(int8(v))))
	case isa.LH:
		v, err := p.mem.ReadHalfword(addr)
		if err != nil {
			return illegalAccess(addr, err)
		}
		p.regs.Write(in.Rd, uint32(int32(int16(v))))
	case isa.LW:
		v, err := p.mem.ReadWord(addr)
		if err != nil {
			return illegalAccess(addr, err)
		}
		p.regs.Write(in.Rd, v)
	case isa.LBU:
		v, err := p.mem.ReadByte(addr)
		if err != nil {
			return illegalAccess(addr, err)
		}
		p.regs.Write(in.Rd, uint32(v))
	case isa.LHU:
		v, err := p.mem.ReadHalfword(addr)
		if err != nil {
			return illegalAccess(addr, err)
		}
		p.regs.Write(in.Rd, uint32(v))
	}
	return nil
}

func (p *Processor) execStore(in isa.Instruction) error {
	addr := p.regs.Read(in.Rs1) + uint32(in.Imm)
	v := p.regs.Read(in.Rs2)
	switch in.Mnemonic {
	case isa.SB:
		if err := p.mem.WriteByte(addr, uint8(v)); err != nil {
			return illegalAccess(addr, err)
		}
	case isa.SH:
		if err := p.mem.WriteHalfword(addr, uint16(v)); err != nil {
			return illegalAccess(addr, err)
		}
	case isa.SW:
		if err := p.mem.WriteWord(addr, v); err != nil {
			return illegalAccess(addr, err)
		}
	}
	return nil
}

func illegalAccess(addr uint32, cause error) error {
	return fmt.Errorf("%w: address %#x: %v", ErrIllegalAccess, addr, cause)
}

func execDiv(a, b uint32) uint32 {
	sa, sb := int32(a), int32(b)
	switch {
	case sb == 0:
		return 0xFFFFFFFF
	case sa == math.MinInt32 && sb == -1:
		return 0x80000000
	default:
		return uint32(sa / sb)
	}
}

func execDivu(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

func execRem(a, b uint32) uint32 {
	sa, sb := int32(a), int32(b)
	switch {
	case sb == 0:
		return a
	case sa == math.MinInt32 && sb == -1:
		return 0
	default:
		return uint32(sa % sb)
	}
}

func execRemu(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
