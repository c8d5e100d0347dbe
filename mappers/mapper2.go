package mappers

import "github.com/rkirby42/nescore/nesrom"

func init() {
	RegisterMapper(2, newMapper2())
}

// mapper2 implements UxROM: PRG ROM is divided into 16KiB banks; the
// low half of the program window ($8000-$BFFF) is a switchable bank
// selected by any write into $8000-$FFFF, and the high half
// ($C000-$FFFF) is pinned to the last bank. CHR is always RAM (UxROM
// boards ship no CHR ROM).
type mapper2 struct {
	*baseMapper
	currentBank uint8
	numBanks    uint8
	chrRAM      [CHR_RAM_SIZE]uint8
}

func newMapper2() *mapper2 {
	return &mapper2{baseMapper: newBaseMapper(2, "UxROM")}
}

func (m *mapper2) Init(r *nesrom.ROM) {
	m.baseMapper.Init(r)
	m.numBanks = r.NumPrgBlocks()
	m.currentBank = 0
}

func (m *mapper2) PrgRead(addr uint16) uint8 {
	const bankSize = 0x4000
	if addr >= 0xC000 {
		fixed := uint16(m.numBanks-1) * bankSize
		return m.rom.PrgRead(fixed + (addr & 0x3FFF))
	}
	base := uint16(m.currentBank) * bankSize
	return m.rom.PrgRead(base + (addr & 0x3FFF))
}

// PrgWrite selects the switchable bank; the whole $8000-$FFFF window
// is the bank-select register, not just a sub-range of it.
func (m *mapper2) PrgWrite(addr uint16, val uint8) {
	m.currentBank = (val & 0x0F) % m.numBanks
}

func (m *mapper2) ChrRead(addr uint16) uint8 {
	return m.chrRAM[addr]
}

func (m *mapper2) ChrWrite(addr uint16, val uint8) {
	m.chrRAM[addr] = val
}
