// Package latency provides an instruction timing model layered on top of
// the functional RV64IMC emulator: a per-category cycle-cost lookup,
// configurable via TimingConfig, that a caller can use to accumulate a
// cycle count alongside Hart.Step without the emulator itself tracking
// timing.
package latency

import (
	"github.com/riscv-emu/rvemu/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with the model's default values.
func NewTable() *Table {
	return &Table{config: DefaultTimingConfig()}
}

// NewTableWithConfig creates a new latency table with a custom configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{config: config}
}

// GetLatency returns the execution latency in cycles for inst. For
// variable-latency operations (divide, remainder) it returns the typical
// expected latency; use GetMinLatency/GetMaxLatency for the bounds.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpADD, insts.OpSUB, insts.OpSLL, insts.OpSLT, insts.OpSLTU,
		insts.OpXOR, insts.OpSRL, insts.OpSRA, insts.OpOR, insts.OpAND,
		insts.OpADDW, insts.OpSUBW, insts.OpSLLW, insts.OpSRLW, insts.OpSRAW,
		insts.OpADDI, insts.OpSLTI, insts.OpSLTIU, insts.OpXORI, insts.OpORI,
		insts.OpANDI, insts.OpSLLI, insts.OpSRLI, insts.OpSRAI,
		insts.OpADDIW, insts.OpSLLIW, insts.OpSRLIW, insts.OpSRAIW,
		insts.OpLUI, insts.OpAUIPC:
		return t.config.ALULatency

	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU,
		insts.OpJAL, insts.OpJALR:
		return t.config.BranchLatency

	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU, insts.OpLWU, insts.OpLD:
		return t.config.LoadLatency

	case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD:
		return t.config.StoreLatency

	case insts.OpMUL, insts.OpMULH, insts.OpMULHSU, insts.OpMULHU, insts.OpMULW:
		return t.config.MultiplyLatency

	case insts.OpDIV, insts.OpDIVU, insts.OpREM, insts.OpREMU,
		insts.OpDIVW, insts.OpDIVUW, insts.OpREMW, insts.OpREMUW:
		return (t.config.DivideLatencyMin + t.config.DivideLatencyMax) / 2

	case insts.OpECALL, insts.OpEBREAK,
		insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC,
		insts.OpCSRRWI, insts.OpCSRRSI, insts.OpCSRRCI:
		return t.config.SystemLatency

	default:
		return 1
	}
}

// GetMinLatency returns the fastest-case latency for variable-latency
// operations (currently DIV/REM and their W/U forms); every other
// instruction has a fixed cost, so it matches GetLatency.
func (t *Table) GetMinLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}
	if t.IsDivideOp(inst) {
		return t.config.DivideLatencyMin
	}
	return t.GetLatency(inst)
}

// GetMaxLatency returns the slowest-case latency for variable-latency
// operations.
func (t *Table) GetMaxLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}
	if t.IsDivideOp(inst) {
		return t.config.DivideLatencyMax
	}
	return t.GetLatency(inst)
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU, insts.OpLWU, insts.OpLD:
		return true
	default:
		return false
	}
}

// IsStoreOp returns true if the instruction is a store.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD:
		return true
	default:
		return false
	}
}

// IsBranchOp returns true if the instruction is a branch or jump.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU,
		insts.OpJAL, insts.OpJALR:
		return true
	default:
		return false
	}
}

// IsDivideOp returns true if the instruction is a divide or remainder.
func (t *Table) IsDivideOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpDIV, insts.OpDIVU, insts.OpREM, insts.OpREMU,
		insts.OpDIVW, insts.OpDIVUW, insts.OpREMW, insts.OpREMUW:
		return true
	default:
		return false
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
