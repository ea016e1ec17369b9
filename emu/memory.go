package emu

// Memory is a contiguous, zero-initialized byte buffer addressed from 0.
// Bounds checking is the Bus's job: an out-of-range Read or Write here is
// a programming error and panics, matching the spec's fatal-not-graceful
// treatment of that case.
type Memory struct {
	data []byte
}

// NewMemory allocates a zero-initialized Memory of the given size.
func NewMemory(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the buffer's size in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Read assembles size consecutive bytes at addr into the low bits of a
// 64-bit result, little-endian. size must be 1, 2, 4, or 8.
func (m *Memory) Read(addr uint64, size int) uint64 {
	var value uint64
	for i := 0; i < size; i++ {
		value |= uint64(m.data[addr+uint64(i)]) << (uint(i) * 8)
	}
	return value
}

// Write spills the low size bytes of value into consecutive locations
// starting at addr, little-endian. size must be 1, 2, 4, or 8.
func (m *Memory) Write(addr uint64, value uint64, size int) {
	for i := 0; i < size; i++ {
		m.data[addr+uint64(i)] = byte(value >> (uint(i) * 8))
	}
}

// Read8 reads a single byte.
func (m *Memory) Read8(addr uint64) uint8 { return uint8(m.Read(addr, 1)) }

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint64) uint16 { return uint16(m.Read(addr, 2)) }

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint64) uint32 { return uint32(m.Read(addr, 4)) }

// Read64 reads a little-endian doubleword.
func (m *Memory) Read64(addr uint64) uint64 { return m.Read(addr, 8) }

// Write8 writes a single byte.
func (m *Memory) Write8(addr uint64, value uint8) { m.Write(addr, uint64(value), 1) }

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint64, value uint16) { m.Write(addr, uint64(value), 2) }

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint64, value uint32) { m.Write(addr, uint64(value), 4) }

// Write64 writes a little-endian doubleword.
func (m *Memory) Write64(addr uint64, value uint64) { m.Write(addr, value, 8) }
