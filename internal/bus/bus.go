// Package bus wires the CPU-visible address space together: cartridge,
// WRAM/HRAM, the PPU, APU, timer, and both DMA engines. It implements
// cpu.Bus, so every memory access the CPU makes also advances every other
// subsystem by the same number of T-states.
package bus

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/nilhelm/gogbcore/internal/apu"
	"github.com/nilhelm/gogbcore/internal/cart"
	"github.com/nilhelm/gogbcore/internal/dma"
	"github.com/nilhelm/gogbcore/internal/ppu"
	"github.com/nilhelm/gogbcore/internal/timer"
)

// Joypad button bitmasks for SetJoypadState; set bits mean "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// Bus is the CPU's entire memory map plus the subsystems hung off it.
type Bus struct {
	cgb bool

	cart cart.Cartridge
	ppu  *ppu.PPU
	apu  *apu.APU
	tim  *timer.Timer

	oamDMA *dma.OAM
	hdma   *dma.HDMA

	wram0 [0x1000]byte    // C000-CFFF, fixed
	wramX [7][0x1000]byte // D000-DFFF, banks 1-7 selected by SVBK (CGB)
	svbk  byte

	hram [0x7F]byte

	ie    byte
	ifReg byte

	joypSelect byte
	joypad     byte
	joypLower4 byte

	sb byte
	sc byte
	sw io.Writer

	key1 byte // FF4D: bit7 current speed, bit0 prepare-switch armed

	bootROM     []byte
	bootEnabled bool

	prevPPUMode ppu.Mode
}

// New constructs a DMG Bus around the cartridge type that rom's header
// names (cart.New picks the MBC).
func New(rom []byte) (*Bus, error) {
	c, err := cart.New(rom)
	if err != nil {
		return nil, err
	}
	return NewWithCartridge(c, false), nil
}

// NewWithCartridge wires a provided cartridge implementation, as either a
// DMG or CGB machine.
func NewWithCartridge(c cart.Cartridge, cgb bool) *Bus {
	b := &Bus{cart: c, cgb: cgb, oamDMA: &dma.OAM{}, hdma: &dma.HDMA{}}
	b.ppu = ppu.New(func(bit int) { b.ifReg |= 1 << bit }, cgb)
	b.tim = timer.New(func(bit int) { b.ifReg |= 1 << bit })
	b.apu = apu.New(48000)
	return b
}

func (b *Bus) PPU() *ppu.PPU        { return b.ppu }
func (b *Bus) APU() *apu.APU        { return b.apu }
func (b *Bus) Cart() cart.Cartridge { return b.cart }
func (b *Bus) CGB() bool            { return b.cgb }

func (b *Bus) wramBank() int {
	sel := int(b.svbk & 0x07)
	if sel == 0 {
		sel = 1
	}
	return sel - 1
}

func (b *Bus) readWRAM(addr uint16) byte {
	if addr <= 0xCFFF {
		return b.wram0[addr-0xC000]
	}
	return b.wramX[b.wramBank()][addr-0xD000]
}

func (b *Bus) writeWRAM(addr uint16, v byte) {
	if addr <= 0xCFFF {
		b.wram0[addr-0xC000] = v
		return
	}
	b.wramX[b.wramBank()][addr-0xD000] = v
}

// oamDMABlocked reports whether addr is off-limits to the CPU while OAM DMA
// is copying: every region except HRAM and the DMA trigger register itself
// is blocked, matching real hardware rather than just the OAM window the
// transfer is writing into.
func (b *Bus) oamDMABlocked(addr uint16) bool {
	if !b.oamDMA.Copying() {
		return false
	}
	if addr >= 0xFF80 && addr <= 0xFFFE {
		return false
	}
	return addr != 0xFF46
}

func (b *Bus) Read(addr uint16) byte {
	if b.oamDMABlocked(addr) {
		return 0xFF
	}
	return b.read(addr)
}

// dmaSource reads for the OAM-DMA engine itself, which is not subject to
// the CPU lockout its own transfer imposes.
type dmaSource struct{ b *Bus }

func (s dmaSource) Read(addr uint16) byte { return s.b.read(addr) }

// read is the memory map without the OAM-DMA lockout.
func (b *Bus) read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 && len(b.bootROM) >= 0x100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr <= 0xDFFF:
		return b.readWRAM(addr)
	case addr <= 0xFDFF:
		return b.readWRAM(addr - 0x2000)
	case addr <= 0xFE9F:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.ie
	default:
		return b.readIO(addr)
	}
}

func (b *Bus) readIO(addr uint16) byte {
	switch addr {
	case 0xFF00:
		return b.readJoyp()
	case 0xFF01:
		return b.sb
	case 0xFF02:
		return 0x7E | (b.sc & 0x81)
	case 0xFF04:
		return b.tim.DIV()
	case 0xFF05:
		return b.tim.TIMA()
	case 0xFF06:
		return b.tim.TMA()
	case 0xFF07:
		return b.tim.TAC()
	case 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case 0xFF10, 0xFF11, 0xFF12, 0xFF13, 0xFF14,
		0xFF16, 0xFF17, 0xFF18, 0xFF19,
		0xFF1A, 0xFF1B, 0xFF1C, 0xFF1D, 0xFF1E,
		0xFF20, 0xFF21, 0xFF22, 0xFF23, 0xFF24, 0xFF25, 0xFF26,
		0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		return b.apu.CPURead(addr)
	case 0xFF40, 0xFF41, 0xFF42, 0xFF43, 0xFF44, 0xFF45,
		0xFF47, 0xFF48, 0xFF49, 0xFF4A, 0xFF4B,
		0xFF68, 0xFF69, 0xFF6A, 0xFF6B:
		return b.ppu.CPURead(addr)
	case 0xFF46:
		return 0xFF
	case 0xFF4D:
		if !b.cgb {
			return 0xFF
		}
		return 0x7E | (b.key1 & 0x81)
	case 0xFF4F:
		return b.ppu.VRAMBank()
	case 0xFF50:
		return 0xFF
	case 0xFF51, 0xFF52, 0xFF53, 0xFF54:
		return 0xFF
	case 0xFF55:
		return b.hdma.ReadHDMA5()
	case 0xFF70:
		if !b.cgb {
			return 0xFF
		}
		return 0xF8 | (b.svbk & 0x07)
	default:
		return 0xFF
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	if b.oamDMABlocked(addr) {
		return
	}
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr <= 0xDFFF:
		b.writeWRAM(addr, value)
	case addr <= 0xFDFF:
		b.writeWRAM(addr-0x2000, value)
	case addr <= 0xFE9F:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		b.ie = value
	default:
		b.writeIO(addr, value)
	}
}

func (b *Bus) writeIO(addr uint16, value byte) {
	switch addr {
	case 0xFF00:
		b.joypSelect = value & 0x30
		b.updateJoypadIRQ()
	case 0xFF01:
		b.sb = value
	case 0xFF02:
		b.sc = value & 0x81
		if b.sc&0x80 != 0 {
			if b.sw != nil {
				_, _ = b.sw.Write([]byte{b.sb})
			}
			b.ifReg |= 1 << 3
			b.sc &^= 0x80
		}
	case 0xFF04:
		b.tim.WriteDIV()
	case 0xFF05:
		b.tim.WriteTIMA(value)
	case 0xFF06:
		b.tim.WriteTMA(value)
	case 0xFF07:
		b.tim.WriteTAC(value)
	case 0xFF0F:
		b.ifReg = value & 0x1F
	case 0xFF10, 0xFF11, 0xFF12, 0xFF13, 0xFF14,
		0xFF16, 0xFF17, 0xFF18, 0xFF19,
		0xFF1A, 0xFF1B, 0xFF1C, 0xFF1D, 0xFF1E,
		0xFF20, 0xFF21, 0xFF22, 0xFF23, 0xFF24, 0xFF25, 0xFF26,
		0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		b.apu.CPUWrite(addr, value)
	case 0xFF40, 0xFF41, 0xFF42, 0xFF43, 0xFF45,
		0xFF47, 0xFF48, 0xFF49, 0xFF4A, 0xFF4B,
		0xFF68, 0xFF69, 0xFF6A, 0xFF6B:
		b.ppu.CPUWrite(addr, value)
	case 0xFF44:
		// LY is read-only; ignore.
	case 0xFF46:
		b.oamDMA.Start(value)
	case 0xFF4D:
		if b.cgb {
			b.key1 = (b.key1 & 0x80) | (value & 0x01)
		}
	case 0xFF4F:
		b.ppu.SetVRAMBank(value)
	case 0xFF50:
		if value != 0x00 {
			b.bootEnabled = false
		}
	case 0xFF51:
		b.hdma.WriteSourceHigh(value)
	case 0xFF52:
		b.hdma.WriteSourceLow(value)
	case 0xFF53:
		b.hdma.WriteDestHigh(value)
	case 0xFF54:
		b.hdma.WriteDestLow(value)
	case 0xFF55:
		if !b.cgb {
			return
		}
		if t := b.hdma.WriteHDMA5(value); t != nil {
			b.runGeneralPurposeHDMA(t)
		}
	case 0xFF70:
		if b.cgb {
			b.svbk = value & 0x07
		}
	}
}

func (b *Bus) readJoyp() byte {
	res := byte(0xC0 | (b.joypSelect & 0x30) | 0x0F)
	if b.joypSelect&0x10 == 0 {
		if b.joypad&JoypRight != 0 {
			res &^= 0x01
		}
		if b.joypad&JoypLeft != 0 {
			res &^= 0x02
		}
		if b.joypad&JoypUp != 0 {
			res &^= 0x04
		}
		if b.joypad&JoypDown != 0 {
			res &^= 0x08
		}
	}
	if b.joypSelect&0x20 == 0 {
		if b.joypad&JoypA != 0 {
			res &^= 0x01
		}
		if b.joypad&JoypB != 0 {
			res &^= 0x02
		}
		if b.joypad&JoypSelectBtn != 0 {
			res &^= 0x04
		}
		if b.joypad&JoypStart != 0 {
			res &^= 0x08
		}
	}
	return res
}

// SetJoypadState sets which buttons are currently pressed (Joyp* masks,
// set bits mean pressed) and raises the joypad interrupt on any button's
// 1->0 (pressed) transition, matching real hardware's wired-AND quirk.
func (b *Bus) SetJoypadState(mask byte) {
	b.joypad = mask
	b.updateJoypadIRQ()
}

func (b *Bus) updateJoypadIRQ() {
	newLower := byte(0x0F)
	if b.joypSelect&0x10 == 0 {
		if b.joypad&JoypRight != 0 {
			newLower &^= 0x01
		}
		if b.joypad&JoypLeft != 0 {
			newLower &^= 0x02
		}
		if b.joypad&JoypUp != 0 {
			newLower &^= 0x04
		}
		if b.joypad&JoypDown != 0 {
			newLower &^= 0x08
		}
	}
	if b.joypSelect&0x20 == 0 {
		if b.joypad&JoypA != 0 {
			newLower &^= 0x01
		}
		if b.joypad&JoypB != 0 {
			newLower &^= 0x02
		}
		if b.joypad&JoypSelectBtn != 0 {
			newLower &^= 0x04
		}
		if b.joypad&JoypStart != 0 {
			newLower &^= 0x08
		}
	}
	if b.joypLower4&^newLower != 0 {
		b.ifReg |= 1 << 4
	}
	b.joypLower4 = newLower
}

// SetSerialWriter sets a sink that receives bytes written via the serial
// port (SB, once SC starts and completes a transfer).
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// SetBootROM loads a boot ROM to be mapped at 0x0000-0x00FF until a
// non-zero write to FF50 disables it.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
	}
}

// BootROMActive reports whether boot ROM reads are still overlaid onto
// 0x0000-0x00FF (true until a non-zero write to FF50 disables it, or
// always false if no boot ROM was ever installed).
func (b *Bus) BootROMActive() bool { return b.bootEnabled }

// TickT advances every subsystem but the CPU by one T-state: the timer,
// PPU, APU, and both DMA engines. This is the method the CPU package's
// Bus interface calls once per M-cycle sub-step.
func (b *Bus) TickT() {
	b.tim.Tick()
	b.ppu.Tick()
	b.apu.Tick(1)
	b.oamDMA.Tick(dmaSource{b}, b.ppu)

	if b.cgb {
		b.stepHDMAOnHBlankEntry()
	}
}

func (b *Bus) stepHDMAOnHBlankEntry() {
	mode := b.ppu.Mode()
	enteredHBlank := mode == ppu.ModeHBlank && b.prevPPUMode != ppu.ModeHBlank
	b.prevPPUMode = mode
	if !enteredHBlank || !b.hdma.Active() {
		return
	}
	t := b.hdma.Step()
	if t == nil {
		return
	}
	b.copyHDMATransfer(t)
	// Every 16-byte row stalls the CPU for roughly 8 M-cycles; the other
	// subsystems keep running across that stall the same way TickT would
	// drive them from the CPU side.
	for i := 0; i < 8*4; i++ {
		b.tim.Tick()
		b.ppu.Tick()
		b.apu.Tick(1)
	}
}

// runGeneralPurposeHDMA executes a general-purpose transfer immediately,
// in one shot, stalling every subsystem for the transfer's duration the
// same way real hardware halts the CPU until a GDMA completes.
func (b *Bus) runGeneralPurposeHDMA(t *dma.Transfer) {
	b.copyHDMATransfer(t)
	rows := t.Length / 16
	for i := 0; i < rows*8*4; i++ {
		b.tim.Tick()
		b.ppu.Tick()
		b.apu.Tick(1)
	}
}

func (b *Bus) copyHDMATransfer(t *dma.Transfer) {
	for i := 0; i < t.Length; i++ {
		v := b.Read(t.Source + uint16(i))
		b.ppu.WriteVRAMByte((t.Destination+uint16(i))&0x1FFF, v)
	}
}

// ConsumeSpeedSwitch reports whether a KEY1 speed-switch request was
// armed, clearing the prepare bit and flipping the recorded speed if so.
// The orchestrator calls this when it observes the CPU has executed STOP,
// then runs the ~2050 M-cycle stall and toggles the CPU's own double-speed
// flag to match.
func (b *Bus) ConsumeSpeedSwitch() bool {
	if !b.cgb || b.key1&0x01 == 0 {
		return false
	}
	b.key1 = (b.key1 &^ 0x01) ^ 0x80
	return true
}

// DoubleSpeed reports KEY1 bit 7, the currently active CPU speed.
func (b *Bus) DoubleSpeed() bool { return b.key1&0x80 != 0 }

type busState struct {
	WRAM0   [0x1000]byte
	WRAMX   [7][0x1000]byte
	SVBK    byte
	HRAM    [0x7F]byte
	IE, IF  byte
	JoypSel byte
	Joypad  byte
	JoypL4  byte
	SB, SC  byte
	Key1    byte
	BootEn  bool
}

// SaveState serializes WRAM/HRAM, interrupt and joypad/serial registers,
// then the PPU/APU/timer/cart/DMA substates in sequence, each self-length
// prefixed by gob.
func (b *Bus) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	s := busState{
		WRAM0: b.wram0, WRAMX: b.wramX, SVBK: b.svbk, HRAM: b.hram,
		IE: b.ie, IF: b.ifReg,
		JoypSel: b.joypSelect, Joypad: b.joypad, JoypL4: b.joypLower4,
		SB: b.sb, SC: b.sc, Key1: b.key1, BootEn: b.bootEnabled,
	}
	_ = enc.Encode(s)
	_ = enc.Encode(b.ppu.SaveState())
	_ = enc.Encode(b.apu.SaveState())
	_ = enc.Encode(b.tim.SaveState())
	_ = enc.Encode(b.oamDMA.SaveState())
	_ = enc.Encode(b.hdma.SaveState())
	_ = enc.Encode(b.cart.SaveState())
	return buf.Bytes()
}

func (b *Bus) LoadState(data []byte) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var s busState
	if err := dec.Decode(&s); err != nil {
		return
	}
	b.wram0, b.wramX, b.svbk, b.hram = s.WRAM0, s.WRAMX, s.SVBK, s.HRAM
	b.ie, b.ifReg = s.IE, s.IF
	b.joypSelect, b.joypad, b.joypLower4 = s.JoypSel, s.Joypad, s.JoypL4
	b.sb, b.sc, b.key1, b.bootEnabled = s.SB, s.SC, s.Key1, s.BootEn

	var ppuState []byte
	if err := dec.Decode(&ppuState); err == nil {
		b.ppu.LoadState(ppuState)
	}
	var apuState []byte
	if err := dec.Decode(&apuState); err == nil {
		b.apu.LoadState(apuState)
	}
	var timerState timer.State
	if err := dec.Decode(&timerState); err == nil {
		b.tim.LoadState(timerState)
	}
	var oamState dma.State
	if err := dec.Decode(&oamState); err == nil {
		b.oamDMA.LoadState(oamState)
	}
	var hdmaState []byte
	if err := dec.Decode(&hdmaState); err == nil {
		b.hdma.LoadState(hdmaState)
	}
	var cartState []byte
	if err := dec.Decode(&cartState); err == nil {
		b.cart.LoadState(cartState)
	}
}
