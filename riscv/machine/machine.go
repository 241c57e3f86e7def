// Package machine models the RV32I machine state: a 32-word register file
// and a word-addressed memory.
package machine

import (
	"fmt"
	"slices"
)

// NumRegisters is the number of general-purpose registers.
const NumRegisters = 32

// Register ABI indices used by the executor and the CLI.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegA0   = 10
	RegA1   = 11
)

// DefaultStackPointer is the conventional "top of memory" sentinel this
// spec prescribes for x2 (sp) at reset (spec.md §9).
const DefaultStackPointer = 0xFFFFFFFF

// Registers is a 32-word RV32I register file. Register 0 is hard-wired to
// zero: writes to it are discarded.
type Registers struct {
	regs [NumRegisters]uint32
}

// Read returns the value of register i.
func (r *Registers) Read(i uint8) uint32 {
	return r.regs[i]
}

// Write sets register i to v. Writing to register 0 is a no-op.
func (r *Registers) Write(i uint8, v uint32) {
	if i == RegZero {
		return
	}
	r.regs[i] = v
}

// ErrUnmapped is returned by Memory.Read when the requested address has
// no entry in the image.
type ErrUnmapped struct {
	Addr uint32
}

func (e *ErrUnmapped) Error() string {
	return fmt.Sprintf("machine: unmapped memory read at 0x%08x", e.Addr)
}

// Memory is a word-addressed mapping from word-aligned 32-bit addresses to
// 32-bit words.
type Memory struct {
	words map[uint32]uint32
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{words: make(map[uint32]uint32)}
}

// Read returns the word at addr, or *ErrUnmapped if addr has never been
// written.
func (m *Memory) Read(addr uint32) (uint32, error) {
	w, ok := m.words[addr]
	if !ok {
		return 0, &ErrUnmapped{Addr: addr}
	}
	return w, nil
}

// Write inserts or replaces the word at addr.
func (m *Memory) Write(addr, v uint32) {
	m.words[addr] = v
}

// Len reports how many words are currently mapped.
func (m *Memory) Len() int {
	return len(m.words)
}

// Addrs returns the mapped addresses, for deterministic iteration by
// callers that need one (e.g. loading an image into another address
// space); order is not semantically meaningful.
func (m *Memory) Addrs() []uint32 {
	addrs := make([]uint32, 0, len(m.words))
	for a := range m.words {
		addrs = append(addrs, a)
	}
	slices.Sort(addrs)
	return addrs
}

// Machine bundles a register file and memory with the reset defaults this
// spec prescribes.
type Machine struct {
	Regs *Registers
	Mem  *Memory
}

// Option configures a new Machine.
type Option func(*Machine)

// WithStackPointer overrides the initial value written to x2 (sp).
func WithStackPointer(sp uint32) Option {
	return func(m *Machine) {
		m.Regs.Write(RegSP, sp)
	}
}

// WithMemory preloads the machine with an existing memory image (e.g. one
// produced by the ELF loader) instead of starting empty.
func WithMemory(mem *Memory) Option {
	return func(m *Machine) {
		m.Mem = mem
	}
}

// New returns a Machine with sp = DefaultStackPointer and all other
// registers (including ra) at zero, per spec.md §9.
func New(opts ...Option) *Machine {
	m := &Machine{
		Regs: &Registers{},
		Mem:  NewMemory(),
	}
	m.Regs.Write(RegSP, DefaultStackPointer)
	for _, opt := range opts {
		opt(m)
	}
	return m
}
