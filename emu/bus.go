package emu

// MemoryBase is the reset vector and the lowest architectural address
// the Bus will forward to Memory.
const MemoryBase uint64 = 0x8000_0000

// Bus maps architectural addresses onto a backing Memory, rejecting
// anything below MemoryBase or that would overrun the buffer. It is the
// sole path from a Hart to memory, so a future MMIO device would branch
// on address range here.
type Bus struct {
	memory *Memory

	// icache, when non-nil, observes instruction fetches for hit/miss
	// statistics. It never alters what Read returns.
	icache interface{ Observe(addr uint64) bool }
}

// NewBus creates a Bus fronting the given Memory.
func NewBus(memory *Memory) *Bus {
	return &Bus{memory: memory}
}

// AttachICache wires an instruction-cache observer into the fetch path.
// Passing nil detaches it.
func (b *Bus) AttachICache(icache interface{ Observe(addr uint64) bool }) {
	b.icache = icache
}

func (b *Bus) inRange(addr uint64, size int) bool {
	if addr < MemoryBase {
		return false
	}
	offset := addr - MemoryBase
	return offset+uint64(size) <= b.memory.Size()
}

// Read reads size bytes at addr, failing with InvalidMemoryAccessError
// if any part of the span lies outside [MemoryBase, MemoryBase+len).
func (b *Bus) Read(addr uint64, size int) (uint64, error) {
	if !b.inRange(addr, size) {
		return 0, &InvalidMemoryAccessError{Addr: addr}
	}
	return b.memory.Read(addr-MemoryBase, size), nil
}

// Write writes the low size bytes of value at addr, subject to the same
// range check as Read.
func (b *Bus) Write(addr uint64, value uint64, size int) error {
	if !b.inRange(addr, size) {
		return &InvalidMemoryAccessError{Addr: addr}
	}
	b.memory.Write(addr-MemoryBase, value, size)
	return nil
}

// Fetch reads size instruction bytes at addr, mirroring the access
// through the attached icache (if any) for statistics before returning
// the same result Read would.
func (b *Bus) Fetch(addr uint64, size int) (uint64, error) {
	if b.icache != nil {
		b.icache.Observe(addr)
	}
	return b.Read(addr, size)
}
