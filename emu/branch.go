package emu

import "github.com/riscv-emu/rvemu/insts"

// BranchUnit evaluates RV64 branch conditions. Every branch compares two
// registers directly, so there is no condition-code state to hold here.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a BranchUnit reading operands from regFile.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Taken evaluates whether the branch identified by op is taken, comparing
// rs1 and rs2 per op's signed or unsigned rule.
func (b *BranchUnit) Taken(op insts.Op, rs1, rs2 uint8) bool {
	x1 := b.regFile.ReadReg(rs1)
	x2 := b.regFile.ReadReg(rs2)

	switch op {
	case insts.OpBEQ:
		return x1 == x2
	case insts.OpBNE:
		return x1 != x2
	case insts.OpBLT:
		return int64(x1) < int64(x2)
	case insts.OpBGE:
		return int64(x1) >= int64(x2)
	case insts.OpBLTU:
		return x1 < x2
	case insts.OpBGEU:
		return x1 >= x2
	}
	return false
}
