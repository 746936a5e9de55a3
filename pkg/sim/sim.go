// Package sim ties memory, loading and the processor together into the
// user-facing simulator: load a program, then Step or Run it to
// completion.
package sim

import (
	"errors"
	"fmt"

	"github.com/leonardohn/yars/pkg/cpu"
	"github.com/leonardohn/yars/pkg/isa"
	"github.com/leonardohn/yars/pkg/loader"
	"github.com/leonardohn/yars/pkg/memory"
)

// StepResult describes the outcome of a single Step call: the PC the
// instruction was fetched from, its raw encoding, the decoded instruction,
// its disassembly, and whether it halted the run (with the trap in Cause).
type StepResult struct {
	PC     uint32
	Word   uint32
	Instr  isa.Instruction
	Asm    string
	Halted bool
	Cause  error
}

// Simulator wires a Processor over a freshly loaded program image.
type Simulator struct {
	proc *cpu.Processor
}

// New allocates memSize bytes of memory and loads program into it.
// If pcOverride is non-nil, it replaces the ELF entry point as the
// starting PC.
func New(memSize uint32, program []byte, pcOverride *uint32) (*Simulator, error) {
	mem := memory.New(memSize)
	res, err := loader.Load(mem, program)
	if err != nil {
		return nil, err
	}
	proc := cpu.New(mem)
	if pcOverride != nil {
		proc.SetPC(*pcOverride)
	} else {
		proc.SetPC(res.Entry)
	}
	return &Simulator{proc: proc}, nil
}

// Processor exposes the underlying Processor for callers (e.g. a CLI) that
// need direct register/memory access.
func (s *Simulator) Processor() *cpu.Processor { return s.proc }

// Cycles returns the number of instructions retired so far.
func (s *Simulator) Cycles() uint64 { return s.proc.Cycles() }

// Step fetches and executes exactly one instruction, advancing PC by 4
// unless Execute already redirected it (taken branches, jumps) or the
// instruction trapped or faulted. Step returns Halted=true with the trap
// in Cause when the instruction was ECALL or EBREAK; a fault is returned
// as the error and stops the run.
func (s *Simulator) Step() (StepResult, error) {
	pc := s.proc.PC()
	word, _ := s.proc.Memory().ReadWord(pc)
	in, err := s.proc.Fetch()
	if err != nil {
		return StepResult{PC: pc, Word: word}, err
	}

	res := StepResult{PC: pc, Word: word, Instr: in, Asm: isa.Disassemble(in)}

	execErr := s.proc.Execute(in)
	if execErr == nil && s.proc.PC() == pc {
		s.proc.SetPC(pc + 4)
	}

	switch {
	case errors.Is(execErr, cpu.ErrEcall), errors.Is(execErr, cpu.ErrEbreak):
		res.Halted = true
		res.Cause = execErr
		return res, nil
	case execErr != nil:
		return res, execErr
	}
	return res, nil
}

// Run executes instructions via Step until a halt (ECALL/EBREAK) or a
// fault occurs. onStep, if non-nil, is invoked after every successful
// step (including the halting one) for logging/tracing purposes.
func (s *Simulator) Run(onStep func(StepResult)) (StepResult, error) {
	for {
		res, err := s.Step()
		if err != nil {
			return res, fmt.Errorf("sim: run faulted at pc=%#x: %w", res.PC, err)
		}
		if onStep != nil {
			onStep(res)
		}
		if res.Halted {
			return res, nil
		}
	}
}
