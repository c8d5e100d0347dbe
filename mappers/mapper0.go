package mappers

import "github.com/rkirby42/nescore/nesrom"

const CHR_RAM_SIZE = 8192

func init() {
	RegisterMapper(0, newMapper0())
}

// mapper0 implements NROM: no bank switching. PRG ROM is either
// 16KiB (mirrored into both halves of $8000-$FFFF) or 32KiB (mapped
// directly); CHR is either 8KiB of ROM or, if the cartridge ships
// none, 8KiB of CHR RAM.
type mapper0 struct {
	*baseMapper
	chrRAM []uint8
}

func newMapper0() *mapper0 {
	return &mapper0{baseMapper: newBaseMapper(0, "NROM")}
}

func (m *mapper0) Init(r *nesrom.ROM) {
	m.baseMapper.Init(r)
	if r.NumChrBlocks() == 0 {
		m.chrRAM = make([]uint8, CHR_RAM_SIZE)
	}
}

func (m *mapper0) PrgRead(addr uint16) uint8 {
	a := addr - 0x8000
	if m.rom.NumPrgBlocks() == 1 {
		a %= 0x4000
	}
	return m.rom.PrgRead(a)
}

// PrgWrite is a no-op: NROM carries no PRG RAM and no bank registers.
func (m *mapper0) PrgWrite(addr uint16, val uint8) {}

func (m *mapper0) ChrRead(addr uint16) uint8 {
	if m.chrRAM != nil {
		return m.chrRAM[addr]
	}
	return m.rom.ChrRead(addr)
}

func (m *mapper0) ChrWrite(addr uint16, val uint8) {
	if m.chrRAM != nil {
		m.chrRAM[addr] = val
	}
	// Writes against actual CHR ROM are ignored.
}
