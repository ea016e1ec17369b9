package emu

// LoadStoreUnit implements the RV64I load and store family. Every access
// goes through the Bus so out-of-range addresses surface as
// InvalidMemoryAccessError instead of panicking.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     *Bus
}

// NewLoadStoreUnit creates a LoadStoreUnit connected to the given
// register file and bus.
func NewLoadStoreUnit(regFile *RegFile, bus *Bus) *LoadStoreUnit {
	return &LoadStoreUnit{regFile: regFile, bus: bus}
}

// LB loads a sign-extended byte: Xd = sign_extend(mem[addr]).
func (l *LoadStoreUnit) LB(rd uint8, addr uint64) error {
	v, err := l.bus.Read(addr, 1)
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, uint64(int64(int8(v))))
	return nil
}

// LH loads a sign-extended halfword.
func (l *LoadStoreUnit) LH(rd uint8, addr uint64) error {
	v, err := l.bus.Read(addr, 2)
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, uint64(int64(int16(v))))
	return nil
}

// LW loads a sign-extended word.
func (l *LoadStoreUnit) LW(rd uint8, addr uint64) error {
	v, err := l.bus.Read(addr, 4)
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, uint64(int64(int32(v))))
	return nil
}

// LBU loads a zero-extended byte.
func (l *LoadStoreUnit) LBU(rd uint8, addr uint64) error {
	v, err := l.bus.Read(addr, 1)
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, v)
	return nil
}

// LHU loads a zero-extended halfword.
func (l *LoadStoreUnit) LHU(rd uint8, addr uint64) error {
	v, err := l.bus.Read(addr, 2)
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, v)
	return nil
}

// LWU loads a zero-extended word.
func (l *LoadStoreUnit) LWU(rd uint8, addr uint64) error {
	v, err := l.bus.Read(addr, 4)
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, v)
	return nil
}

// LD loads a doubleword.
func (l *LoadStoreUnit) LD(rd uint8, addr uint64) error {
	v, err := l.bus.Read(addr, 8)
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, v)
	return nil
}

// SB stores the low byte of Xrs2.
func (l *LoadStoreUnit) SB(rs2 uint8, addr uint64) error {
	return l.bus.Write(addr, l.regFile.ReadReg(rs2), 1)
}

// SH stores the low halfword of Xrs2.
func (l *LoadStoreUnit) SH(rs2 uint8, addr uint64) error {
	return l.bus.Write(addr, l.regFile.ReadReg(rs2), 2)
}

// SW stores the low word of Xrs2.
func (l *LoadStoreUnit) SW(rs2 uint8, addr uint64) error {
	return l.bus.Write(addr, l.regFile.ReadReg(rs2), 4)
}

// SD stores the doubleword in Xrs2.
func (l *LoadStoreUnit) SD(rs2 uint8, addr uint64) error {
	return l.bus.Write(addr, l.regFile.ReadReg(rs2), 8)
}
