package emu

import (
	"errors"
	"fmt"
)

// UnknownInstructionError is returned by Hart.Step when no decoder table
// row matches the fetched parcel, carrying the raw value that failed to
// decode (a 16-bit compressed parcel or a 32-bit instruction word).
type UnknownInstructionError struct {
	Parcel uint32
}

func (e *UnknownInstructionError) Error() string {
	return fmt.Sprintf("unknown instruction: 0x%08x", e.Parcel)
}

// InvalidMemoryAccessError is returned by Bus.Read/Write when the
// address lies below the memory base or the access span overruns the
// backing buffer.
type InvalidMemoryAccessError struct {
	Addr uint64
}

func (e *InvalidMemoryAccessError) Error() string {
	return fmt.Sprintf("invalid memory access at 0x%016x", e.Addr)
}

// InvalidCsrAccessError is returned by Csr.Read when the address falls
// outside the 12-bit CSR address space. Csr.Write ignores such addresses.
type InvalidCsrAccessError struct {
	Addr uint16
}

func (e *InvalidCsrAccessError) Error() string {
	return fmt.Sprintf("invalid CSR access at 0x%03x", e.Addr)
}

// ErrBreakpoint is returned (unwrapped) by Hart.Step when the executed
// instruction was EBREAK. It is not a fault: errors.Is(err, ErrBreakpoint)
// lets a driver distinguish a requested halt from a real failure.
var ErrBreakpoint = errors.New("ebreak")
