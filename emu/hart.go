package emu

import (
	"github.com/riscv-emu/rvemu/insts"
)

// Hart is a single RV64IMC hardware thread: a register file, a PC, a CSR
// bank, and the execution units that carry out one fetch/decode/execute
// cycle per Step call.
type Hart struct {
	PC   uint64
	Regs RegFile

	Bus *Bus
	Csr *Csr

	decoder *insts.Decoder
	alu     *ALU
	branch  *BranchUnit
	lsu     *LoadStoreUnit

	// pcWritten is set by executeB (taken), executeJ, and executeI's
	// JALR case to mark that PC already holds the instruction's target.
	// Step consults this flag, not whether PC's value changed, since a
	// control transfer to the current PC (e.g. "jal x0, 0") writes a
	// value identical to pcBefore and would otherwise go unnoticed.
	pcWritten bool
}

// NewHart creates a Hart wired to bus for memory/instruction traffic and
// csr for its control-and-status registers. PC starts at MemoryBase.
func NewHart(bus *Bus, csr *Csr) *Hart {
	h := &Hart{
		PC:      MemoryBase,
		Bus:     bus,
		Csr:     csr,
		decoder: insts.NewDecoder(),
	}
	h.alu = NewALU(&h.Regs)
	h.branch = NewBranchUnit(&h.Regs)
	h.lsu = NewLoadStoreUnit(&h.Regs, bus)
	return h
}

// ReadReg reads register reg, returning 0 for x0.
func (h *Hart) ReadReg(reg uint8) uint64 { return h.Regs.ReadReg(reg) }

// WriteReg writes value to register reg; writes to x0 are discarded.
func (h *Hart) WriteReg(reg uint8, value uint64) { h.Regs.WriteReg(reg, value) }

// Step fetches, decodes, and executes a single instruction, advancing PC.
// It returns ErrBreakpoint on EBREAK/C.EBREAK, *UnknownInstructionError on
// an unrecognized parcel, or whatever error the memory or CSR access
// raised.
func (h *Hart) Step() error {
	half, err := h.Bus.Fetch(h.PC, 2)
	if err != nil {
		return err
	}

	var (
		inst Instruction
		ok   bool
		size uint64
	)

	if half&0x3 == 0x3 {
		word, err := h.Bus.Fetch(h.PC, 4)
		if err != nil {
			return err
		}
		inst, ok = h.decoder.Decode32(uint32(word))
		size = 4
		if !ok {
			return &UnknownInstructionError{Parcel: uint32(word)}
		}
	} else {
		inst, ok = h.decoder.Decode16(uint16(half))
		size = 2
		if !ok {
			return &UnknownInstructionError{Parcel: uint32(half)}
		}
	}

	h.pcWritten = false
	if err := h.execute(inst, size); err != nil {
		return err
	}
	if !h.pcWritten {
		h.PC += size
	}
	return nil
}

// Instruction is a local alias so execute's signature reads naturally
// without importing insts in every call site.
type Instruction = insts.Instruction

func (h *Hart) execute(inst Instruction, size uint64) error {
	switch inst.Format {
	case insts.FormatR:
		return h.executeR(inst)
	case insts.FormatIShift:
		h.executeIShift(inst)
	case insts.FormatI:
		return h.executeI(inst, size)
	case insts.FormatS:
		return h.executeS(inst)
	case insts.FormatB:
		h.executeB(inst)
	case insts.FormatU:
		h.executeU(inst)
	case insts.FormatJ:
		h.executeJ(inst, size)
	case insts.FormatSystem:
		return h.executeSystem(inst)
	case insts.FormatCsr:
		return h.executeCsr(inst)
	}
	return nil
}

func (h *Hart) executeR(inst Instruction) error {
	switch inst.Op {
	case insts.OpADD:
		h.alu.Add(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSUB:
		h.alu.Sub(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLL:
		h.alu.Sll(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLT:
		h.alu.Slt(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLTU:
		h.alu.Sltu(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpXOR:
		h.alu.Xor(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSRL:
		h.alu.Srl(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSRA:
		h.alu.Sra(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpOR:
		h.alu.Or(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpAND:
		h.alu.And(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMUL:
		h.alu.Mul(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMULH:
		h.alu.Mulh(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMULHSU:
		h.alu.Mulhsu(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMULHU:
		h.alu.Mulhu(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpDIV:
		h.alu.Div(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpDIVU:
		h.alu.Divu(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpREM:
		h.alu.Rem(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpREMU:
		h.alu.Remu(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpADDW:
		h.alu.AddW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSUBW:
		h.alu.SubW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLLW:
		h.alu.SllW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSRLW:
		h.alu.SrlW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSRAW:
		h.alu.SraW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMULW:
		h.alu.MulW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpDIVW:
		h.alu.DivW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpDIVUW:
		h.alu.DivUW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpREMW:
		h.alu.RemW(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpREMUW:
		h.alu.RemUW(inst.Rd, inst.Rs1, inst.Rs2)
	default:
		return &UnknownInstructionError{}
	}
	return nil
}

func (h *Hart) executeIShift(inst Instruction) {
	switch inst.Op {
	case insts.OpSLLI:
		h.alu.SllI(inst.Rd, inst.Rs1, inst.Shamt)
	case insts.OpSRLI:
		h.alu.SrlI(inst.Rd, inst.Rs1, inst.Shamt)
	case insts.OpSRAI:
		h.alu.SraI(inst.Rd, inst.Rs1, inst.Shamt)
	case insts.OpSLLIW:
		h.alu.SlliW(inst.Rd, inst.Rs1, inst.Shamt)
	case insts.OpSRLIW:
		h.alu.SrliW(inst.Rd, inst.Rs1, inst.Shamt)
	case insts.OpSRAIW:
		h.alu.SraiW(inst.Rd, inst.Rs1, inst.Shamt)
	}
}

func (h *Hart) executeI(inst Instruction, size uint64) error {
	switch inst.Op {
	case insts.OpADDI:
		h.alu.AddI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSLTI:
		h.alu.SltI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSLTIU:
		h.alu.SltIU(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpXORI:
		h.alu.XorI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpORI:
		h.alu.OrI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpANDI:
		h.alu.AndI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpADDIW:
		h.alu.AddIW(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpLB:
		return h.lsu.LB(inst.Rd, h.loadAddr(inst))
	case insts.OpLH:
		return h.lsu.LH(inst.Rd, h.loadAddr(inst))
	case insts.OpLW:
		return h.lsu.LW(inst.Rd, h.loadAddr(inst))
	case insts.OpLBU:
		return h.lsu.LBU(inst.Rd, h.loadAddr(inst))
	case insts.OpLHU:
		return h.lsu.LHU(inst.Rd, h.loadAddr(inst))
	case insts.OpLWU:
		return h.lsu.LWU(inst.Rd, h.loadAddr(inst))
	case insts.OpLD:
		return h.lsu.LD(inst.Rd, h.loadAddr(inst))
	case insts.OpJALR:
		target := (h.Regs.ReadReg(inst.Rs1) + uint64(inst.Imm)) &^ 1
		link := h.PC + size
		h.WriteReg(inst.Rd, link)
		h.PC = target
		h.pcWritten = true
	}
	return nil
}

func (h *Hart) loadAddr(inst Instruction) uint64 {
	return h.Regs.ReadReg(inst.Rs1) + uint64(inst.Imm)
}

func (h *Hart) executeS(inst Instruction) error {
	addr := h.Regs.ReadReg(inst.Rs1) + uint64(inst.Imm)
	switch inst.Op {
	case insts.OpSB:
		return h.lsu.SB(inst.Rs2, addr)
	case insts.OpSH:
		return h.lsu.SH(inst.Rs2, addr)
	case insts.OpSW:
		return h.lsu.SW(inst.Rs2, addr)
	case insts.OpSD:
		return h.lsu.SD(inst.Rs2, addr)
	}
	return nil
}

func (h *Hart) executeB(inst Instruction) {
	if h.branch.Taken(inst.Op, inst.Rs1, inst.Rs2) {
		h.PC = uint64(int64(h.PC) + inst.Imm)
		h.pcWritten = true
	}
}

func (h *Hart) executeU(inst Instruction) {
	switch inst.Op {
	case insts.OpLUI:
		h.WriteReg(inst.Rd, uint64(inst.Imm))
	case insts.OpAUIPC:
		h.WriteReg(inst.Rd, uint64(int64(h.PC)+inst.Imm))
	}
}

func (h *Hart) executeJ(inst Instruction, size uint64) {
	link := h.PC + size
	target := uint64(int64(h.PC) + inst.Imm)
	h.WriteReg(inst.Rd, link)
	h.PC = target
	h.pcWritten = true
}

func (h *Hart) executeSystem(inst Instruction) error {
	switch inst.Op {
	case insts.OpEBREAK:
		return ErrBreakpoint
	case insts.OpECALL:
		// No trap semantics: ECALL is observable only via the registers
		// a caller's environment-call convention already uses.
		return nil
	}
	return nil
}

func (h *Hart) executeCsr(inst Instruction) error {
	old, err := h.Csr.Read(inst.Csr)
	if err != nil {
		return err
	}

	switch inst.Op {
	case insts.OpCSRRW:
		h.WriteReg(inst.Rd, old)
		h.Csr.Write(inst.Csr, h.Regs.ReadReg(inst.Rs1))
	case insts.OpCSRRS:
		h.WriteReg(inst.Rd, old)
		if inst.Rs1 != 0 {
			h.Csr.Write(inst.Csr, old|h.Regs.ReadReg(inst.Rs1))
		}
	case insts.OpCSRRC:
		h.WriteReg(inst.Rd, old)
		if inst.Rs1 != 0 {
			h.Csr.Write(inst.Csr, old&^h.Regs.ReadReg(inst.Rs1))
		}
	case insts.OpCSRRWI:
		h.WriteReg(inst.Rd, old)
		h.Csr.Write(inst.Csr, uint64(inst.Imm))
	case insts.OpCSRRSI:
		h.WriteReg(inst.Rd, old)
		if inst.Imm != 0 {
			h.Csr.Write(inst.Csr, old|uint64(inst.Imm))
		}
	case insts.OpCSRRCI:
		h.WriteReg(inst.Rd, old)
		if inst.Imm != 0 {
			h.Csr.Write(inst.Csr, old&^uint64(inst.Imm))
		}
	}
	return nil
}
