// Package mos6502 implements the MOS Technologies 6502 processor
// https://en.wikipedia.org/wiki/MOS_Technology_6502
package mos6502

import (
	"errors"
	"fmt"
	"math"

	"github.com/rkirby42/nescore/neserr"
)

const (
	MAX_ADDRESS = math.MaxUint16
	MEM_SIZE    = MAX_ADDRESS + 1
)

// 6502 Interrupt Vectors
// https://en.wikipedia.org/wiki/Interrupts_in_65xx_processors
const (
	INT_NMI   = 0xFFFA
	INT_RESET = 0xFFFC
	INT_IRQ   = 0xFFFE
	INT_BRK   = INT_IRQ
)

// 6502 Processor Status Flags
// https://www.nesdev.org/obelisk-6502-guide/registers.html
const (
	STATUS_FLAG_CARRY             = 1 << 0 // C
	STATUS_FLAG_ZERO              = 1 << 1 // Z
	STATUS_FLAG_INTERRUPT_DISABLE = 1 << 2 // I
	STATUS_FLAG_DECIMAL           = 1 << 3 // D
	STATUS_FLAG_BREAK             = 1 << 4 // B
	UNUSED_STATUS_FLAG            = 1 << 5 // This is never used but is always on
	STATUS_FLAG_OVERFLOW          = 1 << 6 // V
	STATUS_FLAG_NEGATIVE          = 1 << 7 // N
)

var flagMap = []struct {
	mask uint8
	c    byte
}{
	{STATUS_FLAG_NEGATIVE, 'N'}, {STATUS_FLAG_OVERFLOW, 'V'}, {UNUSED_STATUS_FLAG, '-'},
	{STATUS_FLAG_BREAK, 'B'}, {STATUS_FLAG_DECIMAL, 'D'}, {STATUS_FLAG_INTERRUPT_DISABLE, 'I'},
	{STATUS_FLAG_ZERO, 'Z'}, {STATUS_FLAG_CARRY, 'C'},
}

func statusString(p uint8) string {
	b := make([]byte, len(flagMap))
	for i, f := range flagMap {
		if p&f.mask != 0 {
			b[i] = f.c
		} else {
			b[i] = '.'
		}
	}
	return string(b)
}

var invalidInstruction = errors.New("invalid instruction")

// Bus is the address-decoded memory the CPU reads instructions and
// operands from. The console wires its Bus implementation in here so
// the CPU never needs to know about RAM mirroring, PPU registers or
// cartridge mappers directly.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
}

// CPU models the 2A03's 6502 core: registers, flags, the instruction
// dispatch table and the NMI/IRQ/BRK interrupt priority chain.
type CPU struct {
	acc, x, y uint8  // main and index registers
	status    uint8  // processor status flags
	sp        uint8  // stack pointer (stack lives at 0x0100-0x01FF)
	pc        uint16 // program counter
	bus       Bus

	cycles int    // cycles left to account for before the next fetch
	total  uint64 // cumulative cycle count, used for DMA/scheduler bookkeeping

	nmiPending bool // latched by TriggerNMI, edge triggered
	irqLine    bool // level asserted by a mapper/APU IRQ source

	halted  bool  // set by JAM; only a Reset clears it
	haltErr error // records the JAM opcode's address for diagnostics
}

// New constructs a CPU wired to bus and brings it up in the documented
// power-on state.
// https://nesdev-wiki.nes.science/wikipages/CPU_ALL.xhtml#Power_up_state
func New(bus Bus) *CPU {
	c := &CPU{
		bus:    bus,
		sp:     0xFD,
		status: UNUSED_STATUS_FLAG | STATUS_FLAG_BREAK | STATUS_FLAG_INTERRUPT_DISABLE,
	}
	c.pc = c.memRead16(INT_RESET)
	return c
}

func (c *CPU) String() string {
	op, _ := c.getInst()
	return fmt.Sprintf("A,X,Y: %3d, %3d, %3d; PC: 0x%04x, SP: 0x%02x, P: %s; OP: %s", c.acc, c.x, c.y, c.pc, c.sp, statusString(c.status), op)
}

func (c *CPU) PC() uint16      { return c.pc }
func (c *CPU) SetPC(pc uint16) { c.pc = pc }
func (c *CPU) Halted() bool    { return c.halted }
func (c *CPU) HaltErr() error  { return c.haltErr }

// TotalCycles returns the cumulative CPU cycle count since the last
// Reset, used by the scheduler to compute credit/debt across quanta.
func (c *CPU) TotalCycles() uint64 { return c.total }

// TriggerNMI latches a non-maskable interrupt; the PPU calls this when
// it enters vblank with NMI generation enabled.
func (c *CPU) TriggerNMI() {
	c.nmiPending = true
}

// SetIRQLine is used by IRQ sources (mapper IRQ counters, the APU
// frame sequencer) to assert or clear the shared, level-triggered IRQ
// line.
func (c *CPU) SetIRQLine(asserted bool) {
	c.irqLine = asserted
}

// AddDMACycles stalls the CPU for the duration of an OAM DMA
// transfer. Real hardware takes 513 cycles (514 if the transfer
// starts on an odd CPU cycle); we use the simpler, constant figure.
func (c *CPU) AddDMACycles() {
	c.cycles += 513
}

func (c *CPU) getInst() (opcode, error) {
	m := c.memRead(c.pc)
	op, ok := opcodes[m]
	if !ok {
		return opcode{}, fmt.Errorf("pc: %d, inst: 0x%02x - %w", c.pc, m, invalidInstruction)
	}

	return op, nil
}

// Inst renders the instruction at the current PC, for the BIOS
// debugger.
func (c *CPU) Inst() string {
	op, err := c.getInst()
	if err != nil {
		return err.Error()
	}
	return op.String()
}

func (c *CPU) memRead(addr uint16) uint8 {
	return c.bus.Read(addr)
}

func (c *CPU) memWrite(addr uint16, val uint8) {
	c.bus.Write(addr, val)
}

func (c *CPU) memRead16(addr uint16) uint16 {
	lsb := uint16(c.memRead(addr))
	msb := uint16(c.memRead(addr + 1))
	return (msb << 8) | lsb
}

func (c *CPU) memWrite16(addr, val uint16) {
	c.memWrite(addr, uint8(val&0x00FF))
	c.memWrite(addr+1, uint8(val>>8))
}

// memRange returns a slice of memory addresses from low to high,
// inclusive. Mostly useful for debugging.
func (c *CPU) memRange(low, high uint16) []uint8 {
	ret := make([]uint8, 0, int(high-low)+1)
	for i := low; ; i++ {
		ret = append(ret, c.memRead(i))
		if i == high || i == math.MaxUint16 {
			break
		}
	}
	return ret
}

// Read, Write, Read16 and Write16 expose the same address space to
// callers outside the package (tests, the BIOS debugger).
func (c *CPU) Read(addr uint16) uint8          { return c.memRead(addr) }
func (c *CPU) Write(addr uint16, val uint8)    { c.memWrite(addr, val) }
func (c *CPU) Read16(addr uint16) uint16       { return c.memRead16(addr) }
func (c *CPU) Write16(addr uint16, val uint16) { c.memWrite16(addr, val) }

// LoadMem copies data into memory starting at addr, one byte at a
// time through Write so mapper-backed regions work too.
func (c *CPU) LoadMem(addr uint16, data []uint8) {
	for i, b := range data {
		c.Write(addr+uint16(i), b)
	}
}

// getOperandAddr takes a mode and returns an address for the operand
// referenced by the program counter. It assumes that the counter was
// incremented past the actual instruction itself.
func (c *CPU) getOperandAddr(mode uint8) uint16 {
	var addr uint16
	switch mode {
	case ACCUMULATOR:
		panic("ACCUMULATOR Address mode should never use this method")
	case IMPLICIT:
		panic("IMPLICIT Address mode should never use this method")
	case IMMEDIATE:
		addr = c.pc
	case ZERO_PAGE:
		addr = uint16(c.memRead(c.pc))
	case ZERO_PAGE_X:
		return uint16(c.memRead(c.pc) + c.x)
	case ZERO_PAGE_X_BUT_Y:
		// Undocumented SAX $97 addresses zero page,X encoding but
		// indexes with Y. https://www.nesdev.org/6502_cpu.txt
		return uint16(c.memRead(c.pc) + c.y)
	case ZERO_PAGE_Y:
		return uint16(c.memRead(c.pc) + c.y)
	case ABSOLUTE:
		return c.memRead16(c.pc)
	case ABSOLUTE_X:
		a := c.memRead16(c.pc)
		addr = a + uint16(c.x)
		c.cycles += int(extraCycles(a, addr))
	case ABSOLUTE_Y:
		a := c.memRead16(c.pc)
		addr = a + uint16(c.y)
		c.cycles += int(extraCycles(a, addr))
	case INDIRECT:
		// JMP (IND) famously fails to cross a page boundary when
		// fetching the high byte of the target: if the pointer sits
		// at $xxFF, the high byte is read from $xx00, not $(xx+1)00.
		ptr := c.memRead16(c.pc)
		hi := (ptr & 0xFF00) | uint16(uint8(ptr)+1)
		lsb := uint16(c.memRead(ptr))
		msb := uint16(c.memRead(hi))
		return (msb << 8) | lsb
	case INDIRECT_X:
		zp := c.memRead(c.pc) + c.x
		lsb := uint16(c.memRead(uint16(zp)))
		msb := uint16(c.memRead(uint16(zp + 1)))
		return (msb << 8) | lsb
	case INDIRECT_Y:
		zp := c.memRead(c.pc)
		lsb := uint16(c.memRead(uint16(zp)))
		msb := uint16(c.memRead(uint16(zp + 1)))
		a := (msb << 8) | lsb
		addr = a + uint16(c.y)
		c.cycles += int(extraCycles(a, addr))
	case RELATIVE:
		// Relative from PC at time of instruction
		// execution. We advance pc as soon as we eat the byte
		// from memory to decode the instruction, so we need
		// to account for that here and step over the relative
		// argument while calculating the new target address.
		addr = (c.pc + 1) + uint16(int8(c.memRead(c.pc)))
	default:
		panic("Invalid addressing mode")
	}

	return addr
}

// Reset returns the CPU to its post-reset state, matching a real
// console reset button: it sets interrupt disable, reloads PC from the
// reset vector, clears any halted/JAM state and pending NMI, and
// restarts the cumulative cycle count at 0.
func (c *CPU) Reset() {
	c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE | UNUSED_STATUS_FLAG)
	c.pc = c.memRead16(INT_RESET)
	c.halted = false
	c.haltErr = nil
	c.nmiPending = false
	c.total = 0
}

// interrupt pushes PC and status (with B clear) onto the stack and
// transfers control to the handler at vector, the same sequence BRK
// uses but without setting the B flag in the pushed copy.
func (c *CPU) interrupt(vector uint16) {
	c.pushAddress(c.pc)
	c.pushStack((c.status &^ STATUS_FLAG_BREAK) | UNUSED_STATUS_FLAG)
	c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)
	c.pc = c.memRead16(vector)
	c.cycles = 7
}

// Step unconditionally executes exactly one instruction (dispatching
// a pending NMI or IRQ first, in that priority order, if one is
// outstanding) and returns the number of cycles it cost. It ignores
// any cycle-wait state left over from a previous Step, which makes it
// suitable for single-instruction debugging and for tests that don't
// care about cycle-exact pacing between instructions.
func (c *CPU) Step() int {
	if c.halted {
		return 0
	}

	if c.nmiPending {
		c.nmiPending = false
		c.interrupt(INT_NMI)
		c.total += uint64(c.cycles)
		return int(c.cycles)
	}
	if c.irqLine && c.status&STATUS_FLAG_INTERRUPT_DISABLE == 0 {
		c.interrupt(INT_IRQ)
		c.total += uint64(c.cycles)
		return int(c.cycles)
	}

	op, err := c.getInst()
	if err != nil {
		panic(err)
	}

	c.cycles = int(op.cycles)
	c.pc += 1
	opc := c.pc

	handlers[op.inst](c, op.mode)

	// If we didn't branch, move the PC beyond the full width of
	// the instruction. We consumed the first byte for the
	// instruction code, so only skip over the remaining argument
	// bytes.
	if c.pc == opc {
		c.pc += uint16(op.bytes) - 1
	}

	if op.inst == JAM {
		c.halted = true
		c.haltErr = neserr.NewHaltError(opc-1, fmt.Errorf("cpu jammed at pc 0x%04x: %w", opc-1, neserr.ErrHalted))
	}

	c.total += uint64(c.cycles)
	return int(c.cycles)
}

// Tick advances the CPU by a single clock cycle. Instructions that
// cost more than one cycle are spread over that many Tick calls; the
// scheduler drives the CPU this way to interleave it cycle-accurately
// with the PPU and APU.
func (c *CPU) Tick() {
	if c.halted {
		return
	}

	if c.cycles > 0 {
		c.cycles -= 1
		c.total += 1
		return
	}

	if c.nmiPending {
		c.nmiPending = false
		c.interrupt(INT_NMI)
		c.cycles -= 1
		c.total += 1
		return
	}
	if c.irqLine && c.status&STATUS_FLAG_INTERRUPT_DISABLE == 0 {
		c.interrupt(INT_IRQ)
		c.cycles -= 1
		c.total += 1
		return
	}

	op, err := c.getInst()
	if err != nil {
		panic(err)
	}

	c.cycles = int(op.cycles)
	c.pc += 1
	opc := c.pc

	handlers[op.inst](c, op.mode)

	if c.pc == opc {
		c.pc += uint16(op.bytes) - 1
	}

	if op.inst == JAM {
		c.halted = true
		c.haltErr = neserr.NewHaltError(opc-1, fmt.Errorf("cpu jammed at pc 0x%04x: %w", opc-1, neserr.ErrHalted))
	}

	c.cycles -= 1
	c.total += 1
}

// setNegativeAndZeroFlags sets the STATUS_FLAG_NEGATIVE and
// STATUS_FLAG_ZERO bits of the status register accordingly for the
// value specified in n.
func (c *CPU) setNegativeAndZeroFlags(n uint8) {
	if n == 0 {
		c.flagsOn(STATUS_FLAG_ZERO)
	} else {
		c.flagsOff(STATUS_FLAG_ZERO)
	}

	if n&0b1000_0000 != 0 {
		c.flagsOn(STATUS_FLAG_NEGATIVE)
	} else {
		c.flagsOff(STATUS_FLAG_NEGATIVE)
	}
}

func (c *CPU) getStackAddr() uint16 {
	return STACK_PAGE + uint16(c.sp)
}

// StackAddr returns the current top-of-stack address, for debugging.
func (c *CPU) StackAddr() uint16 {
	return c.getStackAddr()
}

func (c *CPU) pushStack(val uint8) {
	c.memWrite(c.getStackAddr(), val)
	c.sp -= 1
}

func (c *CPU) popStack() uint8 {
	c.sp += 1
	return c.memRead(c.getStackAddr())
}

func (c *CPU) pushAddress(addr uint16) {
	c.pushStack(uint8(addr >> 8))     // high
	c.pushStack(uint8(addr & 0x00FF)) // low
}

func (c *CPU) popAddress() uint16 {
	return uint16(c.popStack()) | (uint16(c.popStack()) << 8)
}

// flagsOn forces the flags in mask (STATUS_FLAG_XXX|STATUS_FLAG_YYY)
// on in the status register.
func (c *CPU) flagsOn(mask uint8) {
	c.status = c.status | mask
}

// flagsOff forces the flags in mask (STATUS_FLAG_XXX|STATUS_FLAG_YYY)
// off in the status register.
func (c *CPU) flagsOff(mask uint8) {
	c.status = c.status &^ mask
}

// extraCycles returns 0 if addr1 and add2 are in the same page, 1
// otherwise. This is useful for instructions that take a variable
// number of cycles, depending on whether or not a page boundary is
// crossed.
func extraCycles(addr1, addr2 uint16) uint8 {
	if addr1&0xFF00 != addr2&0xFF00 {
		return 1
	}
	return 0
}

// branch will adjust the PC conditionally based on whether the mask
// bits are set and the resulting comparison is expected to be true or
// false. This allows you to check for STATUS_FLAG being set or
// cleared by: branch(STATUS_FLAG_OVERFLOW, false) -> branch
// when OVERFLOW not set.
func (c *CPU) branch(mask uint8, predicate bool) {
	if (c.status&mask > 0) == predicate {
		a := c.getOperandAddr(RELATIVE)
		// Branching instructions take an extra cycle if they
		// cause a page break pc-1 because we increment it
		// right after reading the op, but that's where we
		// branch from so that's where we compare for page
		// break
		c.cycles += int(extraCycles(a, c.pc-1))
		c.cycles += 1 // successful branches take an extra cycle
		c.pc = a
	}
}

// addWithOverflow adds b to c.acc handling overflow, carry and ZN
// flag setting as appropriate.
func (c *CPU) addWithOverflow(b uint8) {
	res16 := uint16(c.acc) + uint16(b) + uint16(c.status&STATUS_FLAG_CARRY)
	res := uint8(res16)

	var mask uint8
	if (res16 & 0x100) != 0 {
		mask = mask | STATUS_FLAG_CARRY
	}
	if (c.acc^res)&(b^res)&0x80 != 0 {
		mask = mask | STATUS_FLAG_OVERFLOW
	}

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_OVERFLOW | STATUS_FLAG_NEGATIVE | STATUS_FLAG_ZERO)
	c.flagsOn(mask)

	c.acc = res
	c.setNegativeAndZeroFlags(c.acc)
}

// encodeBCD returns d (0-99) as packed binary-coded decimal, tens in
// the high nibble. ADC and SBC do not use it: they ignore the Decimal
// flag.
func encodeBCD(d uint8) uint8 {
	return (d/10)<<4 | d%10
}

// decodeBCD is the inverse of encodeBCD.
func decodeBCD(b uint8) uint8 {
	return (b>>4)*10 + b&0x0F
}

// baseCMP does comparison operations on a and b, setting flags
// accordingly.
func (c *CPU) baseCMP(a, b uint8) {
	c.setNegativeAndZeroFlags(a - b)
	c.flagsOff(STATUS_FLAG_CARRY)
	if a >= b {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
}

func (c *CPU) ADC(mode uint8) {
	c.addWithOverflow(c.memRead(c.getOperandAddr(mode)))
}

func (c *CPU) AND(mode uint8) {
	c.acc = c.acc & c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) ASL(mode uint8) {
	var ov, nv uint8 // old value, new value
	switch mode {
	case ACCUMULATOR:
		ov = c.acc
		c.acc = c.acc << 1
		nv = c.acc
	default:
		addr := c.getOperandAddr(mode)
		ov = c.memRead(addr)
		nv = ov << 1
		c.memWrite(addr, nv)
	}

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_NEGATIVE | STATUS_FLAG_ZERO)
	c.setNegativeAndZeroFlags(nv)
	if ov&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
}

func (c *CPU) BCC(mode uint8) {
	c.branch(STATUS_FLAG_CARRY, false)
}

func (c *CPU) BCS(mode uint8) {
	c.branch(STATUS_FLAG_CARRY, true)
}

func (c *CPU) BEQ(mode uint8) {
	c.branch(STATUS_FLAG_ZERO, true)
}

func (c *CPU) BIT(mode uint8) {
	o := c.memRead(c.getOperandAddr(mode))

	c.flagsOff(STATUS_FLAG_NEGATIVE | STATUS_FLAG_OVERFLOW | STATUS_FLAG_ZERO)
	var flags uint8
	if (o & c.acc) == 0 {
		flags = flags | STATUS_FLAG_ZERO
	}
	flags = flags | (o & (STATUS_FLAG_NEGATIVE | STATUS_FLAG_OVERFLOW))

	c.flagsOn(flags)
}

func (c *CPU) BMI(mode uint8) {
	c.branch(STATUS_FLAG_NEGATIVE, true)
}

func (c *CPU) BNE(mode uint8) {
	c.branch(STATUS_FLAG_ZERO, false)
}

func (c *CPU) BPL(mode uint8) {
	c.branch(STATUS_FLAG_NEGATIVE, false)
}

func (c *CPU) BRK(mode uint8) {
	// BRK is 2 bytes
	c.pushAddress(c.pc + 1)
	c.pushStack(c.status | STATUS_FLAG_BREAK)
	c.pc = c.memRead16(INT_BRK)
	c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)
}

func (c *CPU) BVC(mode uint8) {
	c.branch(STATUS_FLAG_OVERFLOW, false)
}

func (c *CPU) BVS(mode uint8) {
	c.branch(STATUS_FLAG_OVERFLOW, true)
}

func (c *CPU) CLC(mode uint8) {
	c.flagsOff(STATUS_FLAG_CARRY)
}

func (c *CPU) CLD(mode uint8) {
	c.flagsOff(STATUS_FLAG_DECIMAL)
}

func (c *CPU) CLI(mode uint8) {
	c.flagsOff(STATUS_FLAG_INTERRUPT_DISABLE)
}

func (c *CPU) CLV(mode uint8) {
	c.flagsOff(STATUS_FLAG_OVERFLOW)
}

func (c *CPU) CMP(mode uint8) {
	c.baseCMP(c.acc, c.memRead(c.getOperandAddr(mode)))
}

func (c *CPU) CPX(mode uint8) {
	c.baseCMP(c.x, c.memRead(c.getOperandAddr(mode)))
}

func (c *CPU) CPY(mode uint8) {
	c.baseCMP(c.y, c.memRead(c.getOperandAddr(mode)))
}

func (c *CPU) DEC(mode uint8) {
	a := c.getOperandAddr(mode)
	c.memWrite(a, c.memRead(a)-1)
	c.setNegativeAndZeroFlags(c.memRead(a))
}

func (c *CPU) DEX(mode uint8) {
	c.x -= 1
	c.setNegativeAndZeroFlags(c.x)
}

func (c *CPU) DEY(mode uint8) {
	c.y -= 1
	c.setNegativeAndZeroFlags(c.y)
}

func (c *CPU) EOR(mode uint8) {
	c.acc = c.acc ^ c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) INC(mode uint8) {
	a := c.getOperandAddr(mode)
	c.memWrite(a, c.memRead(a)+1)
	c.setNegativeAndZeroFlags(c.memRead(a))
}

func (c *CPU) INX(mode uint8) {
	c.x += 1
	c.setNegativeAndZeroFlags(c.x)
}

func (c *CPU) INY(mode uint8) {
	c.y += 1
	c.setNegativeAndZeroFlags(c.y)
}

func (c *CPU) JMP(mode uint8) {
	c.pc = c.getOperandAddr(mode)
}

func (c *CPU) JSR(mode uint8) {
	c.pushAddress(c.pc + 1) // this is the second byte of the JSR argument
	c.pc = c.getOperandAddr(mode)
}

func (c *CPU) LDA(mode uint8) {
	c.acc = c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) LDX(mode uint8) {
	c.x = c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.x)
}

func (c *CPU) LDY(mode uint8) {
	c.y = c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.y)
}

func (c *CPU) LSR(mode uint8) {
	var ov, nv uint8
	switch mode {
	case ACCUMULATOR:
		ov = c.acc
		c.acc = c.acc >> 1
		nv = c.acc
	default:
		addr := c.getOperandAddr(mode)
		ov = c.memRead(addr)
		nv = ov >> 1
		c.memWrite(addr, nv)
	}

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_NEGATIVE | STATUS_FLAG_ZERO)
	c.setNegativeAndZeroFlags(nv)
	if ov&STATUS_FLAG_CARRY != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
}

func (c *CPU) NOP(mode uint8) {
	return
}

func (c *CPU) ORA(mode uint8) {
	c.acc = c.acc | c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) PHA(mode uint8) {
	c.pushStack(c.acc)
}

func (c *CPU) PHP(mode uint8) {
	// 6502 always sets BREAK when pushing the status register to
	// the stack
	c.pushStack(c.status | STATUS_FLAG_BREAK)
}

func (c *CPU) PLA(mode uint8) {
	c.acc = c.popStack()
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) PLP(mode uint8) {
	// B and the unused bit aren't real storage: B never reads back
	// as set except immediately after a push, and bit 5 always
	// reads as 1.
	c.status = (c.popStack() &^ STATUS_FLAG_BREAK) | UNUSED_STATUS_FLAG
}

func (c *CPU) ROL(mode uint8) {
	var ov, nv uint8 // old value, new value
	switch mode {
	case ACCUMULATOR:
		ov = c.acc
		c.acc = ov<<1 | (c.status & STATUS_FLAG_CARRY)
		nv = c.acc
	default:
		addr := c.getOperandAddr(mode)
		ov = c.memRead(addr)
		c.memWrite(addr, ov<<1|(c.status&STATUS_FLAG_CARRY))
		nv = c.memRead(addr)
	}

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_NEGATIVE | STATUS_FLAG_ZERO)
	c.setNegativeAndZeroFlags(nv)
	if ov&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
}

func (c *CPU) ROR(mode uint8) {
	var ov, nv uint8 // old value, new value
	switch mode {
	case ACCUMULATOR:
		ov = c.acc
		c.acc = ov>>1 | ((c.status & STATUS_FLAG_CARRY) << 7)
		nv = c.acc
	default:
		addr := c.getOperandAddr(mode)
		ov = c.memRead(addr)
		c.memWrite(addr, ov>>1|((c.status&STATUS_FLAG_CARRY)<<7))
		nv = c.memRead(addr)
	}

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_NEGATIVE | STATUS_FLAG_ZERO)
	c.setNegativeAndZeroFlags(nv)
	if ov&STATUS_FLAG_CARRY != 0 { // was carry bit set in the old _value_?
		c.flagsOn(STATUS_FLAG_CARRY)
	}
}

func (c *CPU) RTI(mode uint8) {
	// Same B/unused masking as PLP: the pulled status never leaves
	// BREAK set and always reads bit 5 back as 1.
	c.status = (c.popStack() &^ STATUS_FLAG_BREAK) | UNUSED_STATUS_FLAG
	c.pc = c.popAddress()
}

func (c *CPU) RTS(mode uint8) {
	c.pc = c.popAddress() + 1
}

func (c *CPU) SBC(mode uint8) {
	c.addWithOverflow(^c.memRead(c.getOperandAddr(mode)))
}

func (c *CPU) SEC(mode uint8) {
	c.flagsOn(STATUS_FLAG_CARRY)
}

func (c *CPU) SED(mode uint8) {
	c.flagsOn(STATUS_FLAG_DECIMAL)
}

func (c *CPU) SEI(mode uint8) {
	c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)
}

func (c *CPU) STA(mode uint8) {
	c.memWrite(c.getOperandAddr(mode), c.acc)
}

func (c *CPU) STX(mode uint8) {
	c.memWrite(c.getOperandAddr(mode), c.x)
}

func (c *CPU) STY(mode uint8) {
	c.memWrite(c.getOperandAddr(mode), c.y)
}

func (c *CPU) TAX(mode uint8) {
	c.x = c.acc
	c.setNegativeAndZeroFlags(c.x)
}

func (c *CPU) TAY(mode uint8) {
	c.y = c.acc
	c.setNegativeAndZeroFlags(c.y)
}

func (c *CPU) TSX(mode uint8) {
	c.x = c.sp
	c.setNegativeAndZeroFlags(c.x)
}

func (c *CPU) TXA(mode uint8) {
	c.acc = c.x
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) TXS(mode uint8) {
	c.sp = c.x
}

func (c *CPU) TYA(mode uint8) {
	c.acc = c.y
	c.setNegativeAndZeroFlags(c.acc)
}

// --- Undocumented opcodes ---
// https://www.nesdev.org/6502_cpu.txt / https://www.masswerk.at/6502/6502_instruction_set.html#undoc

func (c *CPU) LAX(mode uint8) {
	v := c.memRead(c.getOperandAddr(mode))
	c.acc = v
	c.x = v
	c.setNegativeAndZeroFlags(v)
}

func (c *CPU) SAX(mode uint8) {
	c.memWrite(c.getOperandAddr(mode), c.acc&c.x)
}

// DCM (aka DCP): DEC the operand, then CMP it against the
// accumulator.
func (c *CPU) DCM(mode uint8) {
	addr := c.getOperandAddr(mode)
	v := c.memRead(addr) - 1
	c.memWrite(addr, v)
	c.baseCMP(c.acc, v)
}

// ISB (aka ISC): INC the operand, then SBC it from the accumulator.
func (c *CPU) ISB(mode uint8) {
	addr := c.getOperandAddr(mode)
	v := c.memRead(addr) + 1
	c.memWrite(addr, v)
	c.addWithOverflow(^v)
}

func (c *CPU) SLO(mode uint8) {
	addr := c.getOperandAddr(mode)
	v := c.memRead(addr)
	nv := v << 1
	c.memWrite(addr, nv)
	c.flagsOff(STATUS_FLAG_CARRY)
	if v&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	c.acc |= nv
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) RLA(mode uint8) {
	addr := c.getOperandAddr(mode)
	v := c.memRead(addr)
	nv := v<<1 | (c.status & STATUS_FLAG_CARRY)
	c.memWrite(addr, nv)
	c.flagsOff(STATUS_FLAG_CARRY)
	if v&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	c.acc &= nv
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) SRE(mode uint8) {
	addr := c.getOperandAddr(mode)
	v := c.memRead(addr)
	nv := v >> 1
	c.memWrite(addr, nv)
	c.flagsOff(STATUS_FLAG_CARRY)
	if v&0x01 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	c.acc ^= nv
	c.setNegativeAndZeroFlags(c.acc)
}

func (c *CPU) RRA(mode uint8) {
	addr := c.getOperandAddr(mode)
	v := c.memRead(addr)
	nv := v>>1 | ((c.status & STATUS_FLAG_CARRY) << 7)
	c.memWrite(addr, nv)
	c.flagsOff(STATUS_FLAG_CARRY)
	if v&0x01 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	c.addWithOverflow(nv)
}

// ANC: AND the accumulator with the operand, then copy the resulting
// negative flag into carry (used to get carry from bit 7 cheaply).
func (c *CPU) ANC(mode uint8) {
	c.acc &= c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.acc)
	c.flagsOff(STATUS_FLAG_CARRY)
	if c.acc&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
}

func (c *CPU) ALR(mode uint8) {
	c.acc &= c.memRead(c.getOperandAddr(mode))
	c.flagsOff(STATUS_FLAG_CARRY)
	if c.acc&0x01 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	c.acc >>= 1
	c.setNegativeAndZeroFlags(c.acc)
}

// ARR: AND then ROR, with carry/overflow derived from bits 5 and 6 of
// the result rather than the usual ROR rule.
func (c *CPU) ARR(mode uint8) {
	c.acc &= c.memRead(c.getOperandAddr(mode))
	c.acc = c.acc>>1 | ((c.status & STATUS_FLAG_CARRY) << 7)
	c.setNegativeAndZeroFlags(c.acc)
	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_OVERFLOW)
	if c.acc&0x40 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	if (c.acc>>6)&1 != (c.acc>>5)&1 {
		c.flagsOn(STATUS_FLAG_OVERFLOW)
	}
}

// ANE is notoriously unstable on real hardware; we model it with the
// commonly cited magic constant.
func (c *CPU) ANE(mode uint8) {
	c.acc = (c.acc | 0xEE) & c.x & c.memRead(c.getOperandAddr(mode))
	c.setNegativeAndZeroFlags(c.acc)
}

// LXA is ANE's load-both-registers sibling; equally unstable.
func (c *CPU) LXA(mode uint8) {
	v := (c.acc | 0xEE) & c.memRead(c.getOperandAddr(mode))
	c.acc = v
	c.x = v
	c.setNegativeAndZeroFlags(v)
}

func (c *CPU) LAS(mode uint8) {
	v := c.memRead(c.getOperandAddr(mode)) & c.sp
	c.acc = v
	c.x = v
	c.sp = v
	c.setNegativeAndZeroFlags(v)
}

// SBX (aka AXS): X = (ACC & X) - operand, setting carry like CMP.
func (c *CPU) SBX(mode uint8) {
	v := c.memRead(c.getOperandAddr(mode))
	t := c.acc & c.x
	c.flagsOff(STATUS_FLAG_CARRY)
	if t >= v {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	c.x = t - v
	c.setNegativeAndZeroFlags(c.x)
}

func (c *CPU) SHA(mode uint8) {
	addr := c.getOperandAddr(mode)
	c.memWrite(addr, c.acc&c.x&(uint8(addr>>8)+1))
}

func (c *CPU) SHX(mode uint8) {
	addr := c.getOperandAddr(mode)
	c.memWrite(addr, c.x&(uint8(addr>>8)+1))
}

func (c *CPU) SHY(mode uint8) {
	addr := c.getOperandAddr(mode)
	c.memWrite(addr, c.y&(uint8(addr>>8)+1))
}

func (c *CPU) TAS(mode uint8) {
	c.sp = c.acc & c.x
	addr := c.getOperandAddr(mode)
	c.memWrite(addr, c.sp&(uint8(addr>>8)+1))
}

// JAM locks the CPU up; it never fetches another instruction until
// Reset is called.
func (c *CPU) JAM(mode uint8) {
	c.halted = true
}
