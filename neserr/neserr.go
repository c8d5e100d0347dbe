// Package neserr defines the sentinel error kinds shared across the
// bus, CPU, PPU, and cartridge loader so callers can branch on error
// kind (via errors.Is) instead of matching strings.
package neserr

import "errors"

var (
	// ErrAddressRange is returned when an access falls outside every
	// mapped device's window and is not covered by open-bus fallback.
	ErrAddressRange = errors.New("address outside any mapped device window")

	// ErrIllegalState is returned when a subsystem detects a
	// configuration inconsistency at construction time, such as a
	// mirror window larger than its backing region.
	ErrIllegalState = errors.New("illegal subsystem configuration")

	// ErrStackOverflow names a push/pop that moves the stack pointer
	// past either end of the $01xx page. The CPU does not return it:
	// SP wraps modulo 256 without any report.
	ErrStackOverflow = errors.New("stack pointer left page one")

	// ErrHalted is returned when the CPU executes JAM or an
	// explicitly unimplemented illegal opcode.
	ErrHalted = errors.New("cpu halted")

	// ErrUnsupportedConfig is returned at cartridge build time for a
	// mapper id or console type the core cannot execute.
	ErrUnsupportedConfig = errors.New("unsupported cartridge configuration")

	// ErrUnimplemented marks an illegal opcode the core chose not to
	// emulate; logged and treated as a no-op unless running strict.
	ErrUnimplemented = errors.New("unimplemented illegal opcode")
)

// HaltError carries the PC at which the CPU halted, alongside
// ErrHalted so errors.Is(err, ErrHalted) still matches.
type HaltError struct {
	PC  uint16
	Err error
}

func (e *HaltError) Error() string {
	return e.Err.Error()
}

func (e *HaltError) Unwrap() error {
	return e.Err
}

func NewHaltError(pc uint16, err error) *HaltError {
	return &HaltError{PC: pc, Err: err}
}
