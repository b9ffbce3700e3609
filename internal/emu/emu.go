// Package emu wires together the CPU, PPU, APU, timer and DMA engines
// behind a single memory bus and exposes the host-facing Machine API: load
// a cartridge, feed it button state, step it forward, and pull out video
// and audio.
package emu

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/nilhelm/gogbcore/internal/bus"
	"github.com/nilhelm/gogbcore/internal/cart"
	"github.com/nilhelm/gogbcore/internal/cgb"
	"github.com/nilhelm/gogbcore/internal/cpu"
)

// Buttons is the full set of Game Boy input lines, A/B/Start/Select plus
// the D-pad.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	return m
}

// Machine is a complete, runnable console: one cartridge loaded into one
// bus driving one CPU.
type Machine struct {
	cfg    Config
	bus    *bus.Bus
	cpu    *cpu.CPU
	header *cart.Header

	speedSwitchStall int
}

// New constructs a Machine with no cartridge loaded yet. Call LoadROM
// before stepping.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// NewDMG constructs a Machine targeting original Game Boy hardware.
func NewDMG() *Machine {
	return New(Config{Model: ModelDMG})
}

// NewCGB constructs a Machine targeting Game Boy Color hardware.
func NewCGB() *Machine {
	return New(Config{Model: ModelCGB})
}

// LoadROM parses and installs a cartridge image. sourceTag is an optional
// label (e.g. a file path) kept only for diagnostics; it has no effect on
// emulation. On a parse error the Machine is left exactly as it was before
// the call, with its previous cartridge (if any) still installed.
func (m *Machine) LoadROM(rom []byte, sourceTag string) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return fmt.Errorf("emu: load ROM %q: %w", sourceTag, err)
	}
	c, err := cart.New(rom)
	if err != nil {
		return fmt.Errorf("emu: load ROM %q: %w", sourceTag, err)
	}

	isCGB := m.cfg.Model == ModelCGB
	b := bus.NewWithCartridge(c, isCGB)
	if m.cfg.BootROM != nil {
		b.SetBootROM(m.cfg.BootROM)
	}

	cp := cpu.New(b)
	if m.cfg.BootROM != nil {
		cp.SetPC(0x0000)
	} else if isCGB {
		cp.ResetNoBootCGB()
	} else {
		cp.ResetNoBoot()
	}

	m.bus = b
	m.cpu = cp
	m.header = h
	m.speedSwitchStall = 0

	if isCGB && !h.CGBAware() {
		set := cgb.PaletteSets[cgb.AutoCompatPaletteFromHeader(h)]
		b.PPU().LoadCompatPalette(set.BG, set.OBJ0, set.OBJ1)
	}
	return nil
}

// LoadROMFromFile reads path and installs it as the cartridge, using path
// itself as the diagnostic source tag.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("emu: read %q: %w", path, err)
	}
	return m.LoadROM(data, path)
}

// SetSerialWriter routes bytes written to the serial port (SB/SC) to w,
// used by test ROMs that report pass/fail over the link cable.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// SetControllerState replaces the full button state. Calling it more than
// once with the same state before the next Step is a no-op beyond the
// first call: only a released-to-pressed transition raises the joypad
// interrupt, and re-applying an already-applied state produces no new
// transition.
func (m *Machine) SetControllerState(b Buttons) {
	if m.bus != nil {
		m.bus.SetJoypadState(b.mask())
	}
}

// Step advances emulation by exactly one CPU instruction's worth of
// M-cycles, giving an in-progress CGB speed switch priority over ordinary
// CPU execution.
//
// General-purpose HDMA has no tier of its own here: the bus runs a GDMA
// burst synchronously the instant FF55 is written, so by the time Step is
// next called the transfer has already completed.
func (m *Machine) Step() int {
	if m.cpu.Stopped() {
		if m.speedSwitchStall == 0 {
			if armed := m.bus.ConsumeSpeedSwitch(); armed {
				m.speedSwitchStall = cgb.SpeedSwitchStallMCycles
			} else {
				// STOP with no speed switch armed acts as a one-byte NOP:
				// spend one M-cycle and resume normal execution.
				m.cpu.ClearStop()
				m.bus.TickT()
				m.bus.TickT()
				m.bus.TickT()
				m.bus.TickT()
				return 1
			}
		}
		m.speedSwitchStall--
		m.bus.TickT()
		m.bus.TickT()
		m.bus.TickT()
		m.bus.TickT()
		if m.speedSwitchStall == 0 {
			m.cpu.SetDoubleSpeed(m.bus.DoubleSpeed())
			m.cpu.ClearStop()
		}
		return 1
	}

	if m.cfg.Trace {
		c := m.cpu
		fmt.Fprintf(os.Stderr, "PC=%04X SP=%04X A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X\n",
			c.PC, c.SP, c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L)
	}
	return m.cpu.Step()
}

// RunUntilBoot steps the Machine until the boot ROM has unmapped itself
// (or returns immediately if no boot ROM was configured). It bounds the
// loop generously rather than looping forever against a malformed boot
// ROM that never disables itself.
func (m *Machine) RunUntilBoot() {
	if m.cfg.BootROM == nil {
		return
	}
	const maxInstructions = 10_000_000
	for i := 0; i < maxInstructions && m.bus.BootROMActive(); i++ {
		m.Step()
	}
}

// FrontBuffer returns the PPU's pixel buffer as 160x144 RGBA8888,
// row-major, owned by the PPU. The PPU draws into this same buffer, so it
// holds one complete frame only from VBlank until the next frame's first
// line is drawn; callers must copy it before stepping into the next frame.
func (m *Machine) FrontBuffer() []byte {
	return m.bus.PPU().Framebuffer()
}

// PullAudioSamples drains exactly n stereo frames from the APU's ring,
// returned as interleaved float32 pairs in [-1, 1]. Missing samples (ring
// underrun) are zero-filled rather than causing a short read, so callers
// can always index 2*n-1 into the result.
func (m *Machine) PullAudioSamples(n int) []float32 {
	raw := m.bus.APU().PullStereo(n)
	out := make([]float32, n*2)
	for i := 0; i < len(raw) && i < n*2; i++ {
		out[i] = float32(raw[i]) / 32768
	}
	return out
}

// SaveSaveState serializes the entire Machine (CPU, bus, and every
// subsystem behind it) into an opaque blob suitable for LoadSaveState,
// including on a later run of the program. Cartridge ROM contents
// themselves are never included; the caller must reload the same ROM
// before calling LoadSaveState.
func (m *Machine) SaveSaveState() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(m.cpu.SaveState()); err != nil {
		return nil, fmt.Errorf("emu: save state: %w", err)
	}
	if err := enc.Encode(m.bus.SaveState()); err != nil {
		return nil, fmt.Errorf("emu: save state: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadSaveState restores a blob produced by SaveSaveState onto the
// currently loaded cartridge. On error the Machine is left unchanged.
func (m *Machine) LoadSaveState(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var cpuBlob, busBlob []byte
	if err := dec.Decode(&cpuBlob); err != nil {
		return fmt.Errorf("emu: load state: %w", err)
	}
	if err := dec.Decode(&busBlob); err != nil {
		return fmt.Errorf("emu: load state: %w", err)
	}
	m.cpu.LoadState(cpuBlob)
	m.bus.LoadState(busBlob)
	return nil
}

// Header returns the parsed cartridge header of the currently loaded ROM,
// or nil if none is loaded.
func (m *Machine) Header() *cart.Header { return m.header }

// SaveBattery returns the cartridge's battery-backed RAM contents, distinct
// from a full save state, for persisting to a .sav file alongside the ROM.
// ok is false when no cartridge is loaded.
func (m *Machine) SaveBattery() (data []byte, ok bool) {
	if m.bus == nil {
		return nil, false
	}
	return m.bus.Cart().SaveRAM(), true
}

// LoadBattery restores battery-backed RAM saved by SaveBattery. ok is false
// when no cartridge is loaded.
func (m *Machine) LoadBattery(data []byte) (ok bool) {
	if m.bus == nil {
		return false
	}
	m.bus.Cart().LoadRAM(data)
	return true
}

// Bus exposes the underlying bus for callers that need direct subsystem
// access (battery RAM persistence, trace hooks); most callers should
// prefer the higher-level Machine methods.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// CPU exposes the underlying CPU for trace/diagnostic tooling (register
// dumps in a headless test runner); most callers should prefer Step.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }
