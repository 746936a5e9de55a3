package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardohn/yars/pkg/cpu"
	"github.com/leonardohn/yars/pkg/isa"
	"github.com/leonardohn/yars/pkg/memory"
	"github.com/leonardohn/yars/pkg/register"
)

func step(t *testing.T, p *cpu.Processor) error {
	t.Helper()
	in, err := p.Fetch()
	require.NoError(t, err)
	pcBefore := p.PC()
	execErr := p.Execute(in)
	if execErr == nil && p.PC() == pcBefore {
		p.SetPC(pcBefore + 4)
	}
	return execErr
}

func TestAddiThenEcall(t *testing.T) {
	mem := memory.New(64)
	require.NoError(t, mem.WriteWord(0, 0x00500093)) // addi x1, x0, 5
	require.NoError(t, mem.WriteWord(4, 0x00000073)) // ecall

	p := cpu.New(mem)
	require.NoError(t, step(t, p))
	err := step(t, p)
	assert.ErrorIs(t, err, cpu.ErrEcall)

	assert.Equal(t, uint32(5), p.Registers().Read(register.RA))
	assert.Equal(t, uint64(2), p.Cycles())
	assert.Equal(t, uint32(4), p.PC())
}

func TestJalForward(t *testing.T) {
	mem := memory.New(64)
	require.NoError(t, mem.WriteWord(0, 0x008000EF)) // jal x1, +8

	p := cpu.New(mem)
	require.NoError(t, step(t, p))

	assert.Equal(t, uint32(4), p.Registers().Read(register.RA))
	assert.Equal(t, uint32(8), p.PC())
	assert.Equal(t, uint64(1), p.Cycles())
}

func TestLuiSingleShift(t *testing.T) {
	mem := memory.New(64)
	require.NoError(t, mem.WriteWord(0, 0x123452B7)) // lui x5, 0x12345

	p := cpu.New(mem)
	require.NoError(t, step(t, p))

	assert.Equal(t, uint32(0x12345000), p.Registers().Read(5))
}

func TestBranchSignedComparisonIsCorrect(t *testing.T) {
	// blt x1, x2, +8 ; x1 = -1, x2 = 1: signed -1 < 1 must be taken.
	mem := memory.New(64)
	require.NoError(t, mem.WriteWord(0, 0x0020c463)) // blt x1, x2, +8

	p := cpu.New(mem)
	p.Registers().Write(1, 0xFFFFFFFF) // -1
	p.Registers().Write(2, 1)

	require.NoError(t, step(t, p))
	assert.Equal(t, uint32(8), p.PC())
}

func TestStoreThenLoadRoundTrip(t *testing.T) {
	mem := memory.New(64)
	// sw x2, 16(x0) ; lw x3, 16(x0)
	require.NoError(t, mem.WriteWord(0, 0x00202823))
	require.NoError(t, mem.WriteWord(4, 0x01002183))

	p := cpu.New(mem)
	p.Registers().Write(2, 0xDEADBEEF)

	require.NoError(t, step(t, p))
	require.NoError(t, step(t, p))

	assert.Equal(t, uint32(0xDEADBEEF), p.Registers().Read(3))
}

func TestDivideByZeroIsSafe(t *testing.T) {
	mem := memory.New(64)
	p := cpu.New(mem)
	p.Registers().Write(1, 7)
	p.Registers().Write(2, 0)

	assert.Equal(t, uint32(0xFFFFFFFF), divu(p, 1, 2))
	assert.Equal(t, uint32(0xFFFFFFFF), div(p, 1, 2))
	assert.Equal(t, uint32(7), remu(p, 1, 2))
	assert.Equal(t, uint32(7), rem(p, 1, 2))
}

func TestDivideOverflowIsSafe(t *testing.T) {
	mem := memory.New(64)
	p := cpu.New(mem)
	p.Registers().Write(1, 0x80000000) // math.MinInt32
	p.Registers().Write(2, 0xFFFFFFFF) // -1

	assert.Equal(t, uint32(0x80000000), div(p, 1, 2))
	assert.Equal(t, uint32(0), rem(p, 1, 2))
}

func TestMulhuHighBitsOfUnsignedProduct(t *testing.T) {
	mem := memory.New(64)
	p := cpu.New(mem)
	p.Registers().Write(1, 0xFFFFFFFF)
	p.Registers().Write(2, 0xFFFFFFFF)

	assert.Equal(t, uint32(0xFFFFFFFE), mulhu(p, 1, 2))
}

func TestMulhHighBitsOfSignedProduct(t *testing.T) {
	mem := memory.New(64)
	p := cpu.New(mem)

	p.Registers().Write(1, 0x40000000)
	p.Registers().Write(2, 0x40000000)
	assert.Equal(t, uint32(0x10000000), mulh(p, 1, 2))

	p.Registers().Write(1, 0x80000000) // -2^31
	p.Registers().Write(2, 0x80000000) // -2^31
	assert.Equal(t, uint32(0x40000000), mulh(p, 1, 2))
}

func TestMulhsuHighBitsOfSignedUnsignedProduct(t *testing.T) {
	mem := memory.New(64)
	p := cpu.New(mem)
	p.Registers().Write(1, 0x80000000) // -2^31 signed
	p.Registers().Write(2, 0xFFFFFFFF) // 2^32-1 unsigned

	assert.Equal(t, uint32(0x80000000), mulhsu(p, 1, 2))
}

func TestZeroRegisterNeverChanges(t *testing.T) {
	mem := memory.New(64)
	require.NoError(t, mem.WriteWord(0, 0x00100013)) // addi x0, x0, 1

	p := cpu.New(mem)
	require.NoError(t, step(t, p))
	assert.Equal(t, uint32(0), p.Registers().Read(register.Zero))
}

func TestCsrInstructionsAreNoOps(t *testing.T) {
	mem := memory.New(64)
	p := cpu.New(mem)
	p.Registers().Write(1, 0xFFFFFFFF)
	p.Registers().Write(3, 0x1234)

	in := isa.Instruction{Mnemonic: isa.CSRRW, Rd: 3, Rs1: 1, Csr: 0x305}
	require.NoError(t, p.Execute(in))
	assert.Equal(t, uint32(0x1234), p.Registers().Read(3))
	assert.Equal(t, uint32(0), p.PC())
}

func TestFetchOutOfBoundsIsIllegal(t *testing.T) {
	mem := memory.New(8)
	p := cpu.New(mem)
	p.SetPC(1 << 20)
	_, err := p.Fetch()
	assert.ErrorIs(t, err, cpu.ErrIllegalFetch)
}

func TestFetchMisalignedIsRejected(t *testing.T) {
	mem := memory.New(64)
	p := cpu.New(mem)
	p.SetPC(2)
	_, err := p.Fetch()
	assert.ErrorIs(t, err, cpu.ErrMisalignedFetch)
}

func div(p *cpu.Processor, rs1, rs2 uint32) uint32 {
	in := isa.Instruction{Mnemonic: isa.DIV, Rd: 3, Rs1: rs1, Rs2: rs2}
	_ = p.Execute(in)
	return p.Registers().Read(3)
}

func divu(p *cpu.Processor, rs1, rs2 uint32) uint32 {
	in := isa.Instruction{Mnemonic: isa.DIVU, Rd: 3, Rs1: rs1, Rs2: rs2}
	_ = p.Execute(in)
	return p.Registers().Read(3)
}

func rem(p *cpu.Processor, rs1, rs2 uint32) uint32 {
	in := isa.Instruction{Mnemonic: isa.REM, Rd: 3, Rs1: rs1, Rs2: rs2}
	_ = p.Execute(in)
	return p.Registers().Read(3)
}

func remu(p *cpu.Processor, rs1, rs2 uint32) uint32 {
	in := isa.Instruction{Mnemonic: isa.REMU, Rd: 3, Rs1: rs1, Rs2: rs2}
	_ = p.Execute(in)
	return p.Registers().Read(3)
}

func mulh(p *cpu.Processor, rs1, rs2 uint32) uint32 {
	in := isa.Instruction{Mnemonic: isa.MULH, Rd: 3, Rs1: rs1, Rs2: rs2}
	_ = p.Execute(in)
	return p.Registers().Read(3)
}

func mulhsu(p *cpu.Processor, rs1, rs2 uint32) uint32 {
	in := isa.Instruction{Mnemonic: isa.MULHSU, Rd: 3, Rs1: rs1, Rs2: rs2}
	_ = p.Execute(in)
	return p.Registers().Read(3)
}

func mulhu(p *cpu.Processor, rs1, rs2 uint32) uint32 {
	in := isa.Instruction{Mnemonic: isa.MULHU, Rd: 3, Rs1: rs1, Rs2: rs2}
	_ = p.Execute(in)
	return p.Registers().Read(3)
}
