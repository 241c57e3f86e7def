// Package loader parses a 32-bit little-endian RISC-V executable ELF and
// produces a word-addressed program image, the way loader.Load does for
// ARM64 in the teacher this package is adapted from — but built directly
// against debug/elf's low-level header access, since RV32I's image is a
// word map rather than a list of byte segments.
package loader

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// wordSize is the RV32I word size in bytes.
const wordSize = 4

// maxSegments is the maximum number of program headers this loader accepts.
const maxSegments = 256

// Error reports a specific loader failure, keeping the discriminant spec.md
// §7 enumerates available to callers via errors.Is against the Err*
// sentinels below.
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("loader: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors, one per row of spec.md §7's ELF-loader taxonomy.
var (
	ErrNot32Bit        = fmt.Errorf("not a 32-bit ELF")
	ErrNotRiscV        = fmt.Errorf("not a RISC-V ELF")
	ErrNotExecutable   = fmt.Errorf("ELF is not executable")
	ErrInvalidEntry    = fmt.Errorf("entry point is misaligned or out of range")
	ErrNoSegments      = fmt.Errorf("ELF has no program headers")
	ErrTooManySegments = fmt.Errorf("ELF has too many segments")
	ErrSizeOverflow    = fmt.Errorf("segment size does not fit in 32 bits")
	ErrOffsetOverflow  = fmt.Errorf("segment offset does not fit in 32 bits")
	ErrAddrOverflow    = fmt.Errorf("segment address does not fit in 32 bits")
	ErrUnalignedVAddr  = fmt.Errorf("segment virtual address is not word-aligned")
	ErrInvalidOffset   = fmt.Errorf("segment data lies outside the input bytes")
)

// Program is the output of a successful Load: an entry address and a
// word-addressed memory image.
type Program struct {
	EntryPoint uint32
	Image      map[uint32]uint32
}

// LoadBytes parses an in-memory ELF image. Load(path) delegates here after
// reading the file.
func LoadBytes(data []byte) (*Program, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: "parse", Err: err}
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, &Error{Kind: "class", Err: ErrNot32Bit}
	}
	if f.Machine != elf.EM_RISCV {
		return nil, &Error{Kind: "machine", Err: ErrNotRiscV}
	}
	if f.Type != elf.ET_EXEC {
		return nil, &Error{Kind: "type", Err: ErrNotExecutable}
	}

	entry := f.Entry
	if entry > 0xFFFFFFFF || uint32(entry)%wordSize != 0 {
		return nil, &Error{Kind: "entry", Err: ErrInvalidEntry}
	}
	entryPoint := uint32(entry)

	if len(f.Progs) == 0 {
		return nil, &Error{Kind: "segments", Err: ErrNoSegments}
	}
	if len(f.Progs) > maxSegments {
		return nil, &Error{Kind: "segments", Err: ErrTooManySegments}
	}

	loadable := make([]*elf.Prog, 0, len(f.Progs))
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			loadable = append(loadable, p)
		}
	}

	image := make(map[uint32]uint32)
	for _, p := range loadable {
		if err := loadSegment(image, data, p); err != nil {
			return nil, err
		}
	}

	return &Program{EntryPoint: entryPoint, Image: image}, nil
}

// loadSegment materializes one PT_LOAD segment's words into image, per
// spec.md §4.3: every word-aligned address in [vaddr, vaddr+memsz) gets a
// little-endian word, either from the file (possibly a zero-padded partial
// tail) or zero (BSS). Overlapping segments overwrite earlier keys because
// map insertion already has that semantics.
func loadSegment(image map[uint32]uint32, data []byte, p *elf.Prog) error {
	if p.Filesz > 0xFFFFFFFF {
		return &Error{Kind: "filesz", Err: ErrSizeOverflow}
	}
	if p.Memsz > 0xFFFFFFFF {
		return &Error{Kind: "memsz", Err: ErrSizeOverflow}
	}
	if p.Vaddr > 0xFFFFFFFF {
		return &Error{Kind: "vaddr", Err: ErrAddrOverflow}
	}
	if p.Off > 0xFFFFFFFF {
		return &Error{Kind: "offset", Err: ErrOffsetOverflow}
	}

	fileSize := uint32(p.Filesz)
	memSize := uint32(p.Memsz)
	vaddr := uint32(p.Vaddr)
	offset := uint32(p.Off)

	if vaddr%wordSize != 0 {
		return &Error{Kind: "vaddr", Err: ErrUnalignedVAddr}
	}

	for i := uint32(0); i < memSize; i += wordSize {
		addr := vaddr + i
		if i >= fileSize {
			image[addr] = 0
			continue
		}
		var word uint32
		length := fileSize - i
		if length > wordSize {
			length = wordSize
		}
		for j := uint32(0); j < length; j++ {
			off := int64(offset) + int64(i) + int64(j)
			if off < 0 || off >= int64(len(data)) {
				return &Error{Kind: "offset", Err: ErrInvalidOffset}
			}
			word |= uint32(data[off]) << (j * 8)
		}
		image[addr] = word
	}
	return nil
}
