// Package loader provides ELF binary loading for RV64IMC executables.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/riscv-emu/rvemu/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultStackSize is the default stack reservation (8MB) subtracted from
// the top of memory when computing InitialSP.
const DefaultStackSize = 8 * 1024 * 1024

// stackAlign is the byte alignment the RISC-V calling convention expects
// of sp at a function call boundary.
const stackAlign = 16

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded ELF program ready for execution.
type Program struct {
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint64
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
	// InitialSP is the initial stack pointer value.
	InitialSP uint64
}

// Load parses an RV64 ELF binary and returns a Program ready for copying
// into a Bus's backing Memory. memSize is the size of that backing
// Memory; InitialSP is placed stackAlign-aligned near its top, leaving
// DefaultStackSize of headroom (or less, if memSize itself is smaller).
func Load(path string, memSize uint64) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{
		EntryPoint: f.Entry,
		InitialSP:  initialStackPointer(memSize),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}
		if phdr.Vaddr < emu.MemoryBase {
			return nil, fmt.Errorf("segment at 0x%x lies below the memory base 0x%x", phdr.Vaddr, emu.MemoryBase)
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	return prog, nil
}

// initialStackPointer places sp DefaultStackSize below the top of a
// memSize-byte window starting at emu.MemoryBase, clamping to the window
// itself when it is smaller than the reservation, then aligns down.
func initialStackPointer(memSize uint64) uint64 {
	top := emu.MemoryBase + memSize
	reserve := uint64(DefaultStackSize)
	if reserve > memSize {
		reserve = memSize
	}
	sp := top - reserve
	return sp &^ (stackAlign - 1)
}
