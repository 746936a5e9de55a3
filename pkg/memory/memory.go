// Package memory implements the flat byte-addressable memory of the
// simulated machine: a fixed-size zeroed buffer with little-endian
// multi-byte accessors and bounds checking on every access.
package memory

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds indicates that an access window falls outside [0, Size()).
var ErrOutOfBounds = errors.New("memory: out of bounds")

// Memory is a flat, fixed-size byte buffer. The zero value is not usable;
// construct one with New. Memory is not goroutine safe.
type Memory struct {
	bytes []byte
}

// New allocates a zero-filled buffer of size bytes.
func New(size uint32) *Memory {
	return &Memory{bytes: make([]byte, size)}
}

// Size reports the number of addressable bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.bytes))
}

func (m *Memory) checkWindow(addr uint32, width uint32) error {
	if width > m.Size() || addr > m.Size()-width {
		return fmt.Errorf("%w: address %#x width %d size %#x", ErrOutOfBounds, addr, width, m.Size())
	}
	return nil
}

// ReadByte reads a single byte at addr.
func (m *Memory) ReadByte(addr uint32) (uint8, error) {
	if err := m.checkWindow(addr, 1); err != nil {
		return 0, err
	}
	return m.bytes[addr], nil
}

// ReadHalfword reads a little-endian 16-bit value at addr.
func (m *Memory) ReadHalfword(addr uint32) (uint16, error) {
	if err := m.checkWindow(addr, 2); err != nil {
		return 0, err
	}
	return uint16(m.bytes[addr]) | uint16(m.bytes[addr+1])<<8, nil
}

// ReadWord reads a little-endian 32-bit value at addr.
func (m *Memory) ReadWord(addr uint32) (uint32, error) {
	if err := m.checkWindow(addr, 4); err != nil {
		return 0, err
	}
	return uint32(m.bytes[addr]) |
		uint32(m.bytes[addr+1])<<8 |
		uint32(m.bytes[addr+2])<<16 |
		uint32(m.bytes[addr+3])<<24, nil
}

// WriteByte writes a single byte at addr.
func (m *Memory) WriteByte(addr uint32, v uint8) error {
	if err := m.checkWindow(addr, 1); err != nil {
		return err
	}
	m.bytes[addr] = v
	return nil
}

// WriteHalfword writes a little-endian 16-bit value at addr.
func (m *Memory) WriteHalfword(addr uint32, v uint16) error {
	if err := m.checkWindow(addr, 2); err != nil {
		return err
	}
	m.bytes[addr] = byte(v)
	m.bytes[addr+1] = byte(v >> 8)
	return nil
}

// WriteWord writes a little-endian 32-bit value at addr.
func (m *Memory) WriteWord(addr uint32, v uint32) error {
	if err := m.checkWindow(addr, 4); err != nil {
		return err
	}
	m.bytes[addr] = byte(v)
	m.bytes[addr+1] = byte(v >> 8)
	m.bytes[addr+2] = byte(v >> 16)
	m.bytes[addr+3] = byte(v >> 24)
	return nil
}

// LoadSegment zeroes the destination range [vaddr, vaddr+memsz) and then
// copies data into its prefix. It is the primitive the ELF loader uses to
// place a single PT_LOAD segment; it fails with ErrOutOfBounds when the
// segment does not fit inside the allocated buffer.
func (m *Memory) LoadSegment(vaddr uint32, memsz uint32, data []byte) error {
	if err := m.checkWindow(vaddr, memsz); err != nil {
		return err
	}
	for i := uint32(0); i < memsz; i++ {
		m.bytes[vaddr+i] = 0
	}
	copy(m.bytes[vaddr:vaddr+memsz], data)
	return nil
}
