// Package trace formats and emits the per-instruction execution log, and
// wraps zap for the simulator's diagnostic/fatal logging.
package trace

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leonardohn/yars/pkg/cpu"
	"github.com/leonardohn/yars/pkg/isa"
	"github.com/leonardohn/yars/pkg/register"
	"github.com/leonardohn/yars/pkg/sim"
)

// Logger wraps a zap.Logger for the simulator's own diagnostics (load
// failures, CLI errors) as distinct from the per-step execution trace,
// which is written as plain text via Step.
type Logger struct {
	z *zap.Logger
}

// NewLogger builds a console-encoded logger writing to w at the given
// level ("debug", "info", "warn", "error"); an unrecognized level falls
// back to "info".
func NewLogger(w io.Writer, level string) (*Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		lvl,
	)
	return &Logger{z: zap.New(core)}, nil
}

// Fatal logs a fatal diagnostic and returns it wrapped, so callers can
// decide whether to exit.
func (l *Logger) Fatal(msg string, err error) error {
	l.z.Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error { return l.z.Sync() }

// Step renders one per-instruction trace line in the format:
//
//	[PC=XXXXXXXX] [IIIIIIII] [<rd>=VVVVVVVV] [<rs1>=VVVVVVVV] [<rs2>=VVVVVVVV] <asm>
//
// Each register field is labelled with the register's ABI name (e.g.
// "ra", "zero") and appears only when the instruction writes rd or reads
// rs1/rs2; fields for register slots the instruction does not use are not
// printed. Register values are read from proc after the step has retired,
// so a written rd shows its new value, and a source register that is also
// the rd shows that new value rather than the one the instruction consumed.
func Step(w io.Writer, proc *cpu.Processor, res sim.StepResult) {
	fmt.Fprintf(w, "[PC=%08X] [%08X]%s %s\n", res.PC, res.Word, regFields(proc, res.Instr), res.Asm)
}

func regFields(proc *cpu.Processor, in isa.Instruction) string {
	s := ""
	if writesRd(in.Mnemonic) {
		s += fmt.Sprintf(" [%s=%08X]", register.Name(in.Rd), proc.Registers().Read(in.Rd))
	}
	if readsRs1(in.Mnemonic) {
		s += fmt.Sprintf(" [%s=%08X]", register.Name(in.Rs1), proc.Registers().Read(in.Rs1))
	}
	if readsRs2(in.Mnemonic) {
		s += fmt.Sprintf(" [%s=%08X]", register.Name(in.Rs2), proc.Registers().Read(in.Rs2))
	}
	return s
}

func writesRd(m isa.Mnemonic) bool {
	switch m {
	case isa.FENCE, isa.FENCETSO, isa.FENCEI, isa.ECALL, isa.EBREAK,
		isa.SB, isa.SH, isa.SW,
		isa.BEQ, isa.BNE, isa.BLT, isa.BGE, isa.BLTU, isa.BGEU:
		return false
	default:
		return true
	}
}

func readsRs1(m isa.Mnemonic) bool {
	switch m {
	case isa.LUI, isa.AUIPC, isa.JAL, isa.FENCE, isa.FENCETSO, isa.FENCEI, isa.ECALL, isa.EBREAK,
		isa.CSRRWI, isa.CSRRSI, isa.CSRRCI:
		return false
	default:
		return true
	}
}

func readsRs2(m isa.Mnemonic) bool {
	switch m {
	case isa.ADD, isa.SUB, isa.SLL, isa.SLT, isa.SLTU, isa.XOR, isa.SRL, isa.SRA, isa.OR, isa.AND,
		isa.MUL, isa.MULH, isa.MULHSU, isa.MULHU, isa.DIV, isa.DIVU, isa.REM, isa.REMU,
		isa.BEQ, isa.BNE, isa.BLT, isa.BGE, isa.BLTU, isa.BGEU,
		isa.SB, isa.SH, isa.SW:
		return true
	default:
		return false
	}
}
