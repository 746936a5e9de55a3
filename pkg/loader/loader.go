// Package loader loads a 32-bit little-endian RISC-V ELF executable into a
// Memory image, following PT_LOAD segments and zeroing BSS.
package loader

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/leonardohn/yars/pkg/memory"
)

// Errors returned by Load. They correspond to the error kinds a CLI front
// end surfaces to the user.
var (
	ErrUnsupportedBinary = errors.New("loader: unsupported binary")
	ErrMalformed         = errors.New("loader: malformed elf")
	ErrOutOfMemory       = errors.New("loader: segment exceeds memory")
)

// Result carries everything the simulator needs to start execution after a
// successful Load.
type Result struct {
	Entry uint32
}

// Load parses the ELF32 image in data, validates that it targets
// EM_RISCV/ELFCLASS32/ELFDATA2LSB and is an executable (not a relocatable
// object or shared library), and copies every PT_LOAD segment into mem.
func Load(mem *memory.Memory, data []byte) (Result, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return Result{}, fmt.Errorf("%w: class %s, want ELFCLASS32", ErrUnsupportedBinary, f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return Result{}, fmt.Errorf("%w: data encoding %s, want little-endian", ErrUnsupportedBinary, f.Data)
	}
	if f.Machine != elf.EM_RISCV {
		return Result{}, fmt.Errorf("%w: machine %s, want EM_RISCV", ErrUnsupportedBinary, f.Machine)
	}
	if f.Type != elf.ET_EXEC {
		return Result{}, fmt.Errorf("%w: type %s, want ET_EXEC", ErrUnsupportedBinary, f.Type)
	}

	loaded := 0
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Vaddr > uint64(^uint32(0)) || prog.Memsz > uint64(^uint32(0)) {
			return Result{}, fmt.Errorf("%w: segment address exceeds 32 bits", ErrOutOfMemory)
		}
		segData := make([]byte, prog.Filesz)
		if prog.Filesz > 0 {
			if _, err := prog.ReadAt(segData, 0); err != nil {
				return Result{}, fmt.Errorf("%w: reading segment: %v", ErrMalformed, err)
			}
		}
		if err := mem.LoadSegment(uint32(prog.Vaddr), uint32(prog.Memsz), segData); err != nil {
			return Result{}, fmt.Errorf("%w: vaddr=%#x memsz=%#x: %v", ErrOutOfMemory, prog.Vaddr, prog.Memsz, err)
		}
		loaded++
	}
	if loaded == 0 {
		return Result{}, fmt.Errorf("%w: no PT_LOAD segments", ErrMalformed)
	}
	if f.Entry > uint64(^uint32(0)) {
		return Result{}, fmt.Errorf("%w: entry point exceeds 32 bits", ErrOutOfMemory)
	}

	return Result{Entry: uint32(f.Entry)}, nil
}
