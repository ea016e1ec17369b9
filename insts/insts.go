// Package insts provides RV64IMC instruction definitions and decoding.
//
// This package decodes RISC-V machine code — both the 32-bit base
// encoding and the 16-bit compressed (C) encoding — into a single typed
// Instruction representation. Compressed forms are expanded at decode
// time into the same Op space as their 32-bit equivalents, so nothing
// downstream ever needs to know which encoding produced a value.
//
// Usage:
//
//	dec := insts.NewDecoder()
//	inst, ok := dec.Decode32(0x00a58593) // ADDI a1, a1, 10
//	inst, ok := dec.Decode16(0x4505)     // C.LI a0, 1 -> ADDI a0, x0, 1
package insts

// Op names one of the architectural operations the decoder can produce.
type Op uint16

// RV64IMC operations. Compressed encodings decode into these same values.
const (
	OpUnknown Op = iota

	// Integer register-register (RV64I + M extension).
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// 32-bit-word register-register forms (RV64I/M "W" variants).
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW
	OpMULW
	OpDIVW
	OpDIVUW
	OpREMW
	OpREMUW

	// Integer register-immediate.
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// 32-bit-word register-immediate forms.
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	// Loads.
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpLD
	OpLWU

	// Stores.
	OpSB
	OpSH
	OpSW
	OpSD

	// Branches.
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Upper-immediate.
	OpLUI
	OpAUIPC

	// Jumps.
	OpJAL
	OpJALR

	// System.
	OpECALL
	OpEBREAK

	// CSR.
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI
)

// Format names the instruction encoding family, which determines which
// Instruction fields are meaningful.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // register-register: Rd, Rs1, Rs2
	FormatIShift         // register-immediate shift: Rd, Rs1, Shamt
	FormatI              // register-immediate / JALR: Rd, Rs1, Imm
	FormatS              // store: Rs1, Rs2, Imm
	FormatB              // branch: Rs1, Rs2, Imm (offset)
	FormatU              // upper-immediate: Rd, Imm
	FormatJ              // jump: Rd, Imm (offset)
	FormatSystem         // ECALL/EBREAK: no operands
	FormatCsr            // CSR ops: Rd, Rs1 or Imm (uimm), Csr
)
