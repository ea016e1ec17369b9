// Package emu provides RV64IMC hart emulation: the register file, CSR
// file, address-decoding bus, physical memory, and the fetch/decode/
// execute cycle that ties them together.
package emu

// RegFile holds the 32 architectural general registers. X[0] is
// hard-wired to zero: ReadReg returns 0 regardless of what was last
// written, and WriteReg silently discards writes to it.
type RegFile struct {
	X [32]uint64
}

// ReadReg reads a register value. Register 0 always reads 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are discarded.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 {
		return
	}
	r.X[reg] = value
}
