package console

import (
	"context"
	"fmt"
	"time"
)

// CREDITS_PER_QUANTUM is the nominal CPU-cycle budget handed to the
// CPU/PPU/APU each step_frame() iteration: one NTSC scanline is 341
// PPU dots, i.e. ~113.67 CPU cycles, rounded to the conventional 114.
const CREDITS_PER_QUANTUM = 114

// resetCycles reflects the reset sequence's implicit CPU cycles,
// matching the bookkeeping convention real hardware (and this core's
// cycle-accurate ancestor) starts its counters from rather than 0.
const resetCycles = 7

// Frame is one step_frame() result: a rendered video frame paired with
// the audio samples accumulated while producing it.
type Frame struct {
	Pixels  []uint8
	Samples []float32
}

// Scheduler drives a Bus's CPU, PPU, and APU in 114-CPU-cycle quanta,
// carrying a cycle-debt accumulator so a long CPU instruction that
// overruns one quantum is paid back out of the next one rather than
// silently desynchronising the PPU/APU from the CPU's actual cycle
// count.
type Scheduler struct {
	bus *Bus

	cyclesCounter         uint64
	previousCyclesCounter uint64
	cyclesDebt            int
}

func NewScheduler(bus *Bus) *Scheduler {
	return &Scheduler{
		bus:                   bus,
		cyclesCounter:         resetCycles,
		previousCyclesCounter: resetCycles,
	}
}

// Reset resets CPU, PPU, and APU, in that order, and reloads PC from
// the reset vector (done by CPU.Reset itself).
func (s *Scheduler) Reset() {
	s.bus.cpu.Reset()
	s.bus.ppu.Reset()
	s.bus.apu.Reset()
	s.cyclesCounter = resetCycles
	s.previousCyclesCounter = resetCycles
	s.cyclesDebt = 0
}

// StepFrame runs CPU/PPU/APU forward until the PPU reports a completed
// frame, granting each subsystem a shrinking or growing credit budget
// every quantum depending on how much the previous quantum's CPU
// instructions overshot their own budget.
func (s *Scheduler) StepFrame() (*Frame, error) {
	var samples []float32

	for {
		granted := CREDITS_PER_QUANTUM - s.cyclesDebt

		used := 0
		for used < granted {
			if s.bus.cpu.Halted() {
				return nil, fmt.Errorf("cpu halted: %w", s.bus.cpu.HaltErr())
			}
			used += s.bus.cpu.Step()
		}
		newCPU := s.bus.cpu.TotalCycles()
		elapsed := int(newCPU - s.previousCyclesCounter)

		s.cyclesDebt = elapsed - granted

		frameComplete := s.bus.ppu.Run(3 * elapsed)
		samples = append(samples, s.bus.apu.Run(elapsed)...)

		s.previousCyclesCounter = newCPU
		s.cyclesCounter = newCPU

		if frameComplete {
			break
		}
	}

	return &Frame{Pixels: s.bus.ppu.GetPixels(), Samples: samples}, nil
}

// Run drives StepFrame in a loop paced by a ticker, matching the
// reference program's split between an emulation goroutine and
// ebiten's own render-loop goroutine (console.Bus implements
// ebiten.Game directly and is driven by ebiten.RunGame separately).
// frames, if non-nil, receives each completed Frame; a full channel
// drops the frame rather than blocking the emulation goroutine.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, frames chan<- *Frame) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f, err := s.StepFrame()
			if err != nil {
				return err
			}
			if frames != nil {
				select {
				case frames <- f:
				default:
				}
			}
		}
	}
}
