// Package ppu models the pixel-FIFO picture processing unit: VRAM/OAM
// storage, the HBlank/VBlank/OamScan/Draw mode state machine, background
// and window tile fetching mixed with sprite pixels through two FIFOs, and
// (on CGB) a second VRAM bank plus BG/OBJ color-palette RAM.
package ppu

// InterruptRequester is a callback signature to request IF bits
// (0:VBlank, 1:STAT).
type InterruptRequester func(bit int)

// Mode is the four-state PPU mode exposed in STAT bits 0-1.
type Mode byte

const (
	ModeHBlank Mode = 0
	ModeVBlank Mode = 1
	ModeOAM    Mode = 2
	ModeDraw   Mode = 3
)

const (
	screenW = 160
	screenH = 144

	oamScanCycles  = 80
	fullLineCycles = 456
	vblankLastLine = 153
)

// fetcherMode tracks whether the background fetcher is currently supplying
// background tiles or window tiles for the rest of the scanline.
type fetcherMode byte

const (
	fetchBackground fetcherMode = iota
	fetchWindow
)

// PPU is ticked once per T-state by the orchestrator alongside the timer
// and DMA engines.
type PPU struct {
	cgb           bool
	compatPalette bool // true once LoadCompatPalette has run (DMG cart on CGB hardware)

	vramBank0 [0x2000]byte
	vramBank1 [0x2000]byte // CGB only
	vramBank  byte         // VBK, 0 or 1

	oam [0xA0]byte

	lcdc byte // FF40
	stat byte // FF41
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	bgColor  colorRAM // CGB BCPS/BCPD
	objColor colorRAM // CGB OCPS/OCPD

	mode Mode

	// cycle counts down T-states until the next mode transition; when it
	// hits zero the FSM advances (grounded on the cycle-countdown pattern
	// common to cycle-accurate PPU implementations rather than the
	// teacher's flat dot-counter, since this shape lets Draw mode vary in
	// length with sprite/window fetch cost the way real hardware does).
	cycle              int
	scanlineCycleStart int
	ranCycles          int

	statIRQ bool

	fetcherMode  fetcherMode
	currentPixel byte
	windowLine   byte
	currentTile  byte

	sprites []sprite
	fifoBG  []pixel
	fifoOBJ []pixel

	frame       uint64
	frontBuffer []byte // RGBA, 160x144x4

	req InterruptRequester
}

func New(req InterruptRequester, cgb bool) *PPU {
	return &PPU{
		req:         req,
		cgb:         cgb,
		mode:        ModeOAM,
		windowLine:  0xFF,
		frontBuffer: make([]byte, screenW*screenH*4),
	}
}

// Framebuffer returns the PPU's pixel buffer as packed RGBA bytes
// (160x144x4), matching the host's WritePixels convention. There is one
// buffer, written pixel by pixel during Draw mode: it holds a complete
// frame from VBlank until the next frame's first line is drawn, and a mix
// of the current and previous frame at other times.
func (p *PPU) Framebuffer() []byte { return p.frontBuffer }

// Frame returns the number of completed frames, useful for frame-pacing or
// headless step-N-frames loops.
func (p *PPU) Frame() uint64 { return p.frame }

func (p *PPU) Mode() Mode { return p.mode }

// LoadCompatPalette seeds BG color RAM palette 0 and OBJ color RAM
// palettes 0/1 with fixed BGR555 colors, then point every background/
// window/sprite draw at those palettes regardless of what BGP/OBP0/OBP1
// the cartridge itself writes. This is a no-op on DMG, where the plain
// register-indexed dmgShadeOf path is always used instead.
func (p *PPU) LoadCompatPalette(bg, obj0, obj1 [4]uint16) {
	if !p.cgb {
		return
	}
	p.bgColor.loadPalette(0, bg)
	p.objColor.loadPalette(0, obj0)
	p.objColor.loadPalette(1, obj1)
	p.compatPalette = true
}

// SetVRAMBank selects bank 0/1 for the CPU-facing VRAM window (VBK, CGB
// only; ignored on DMG).
func (p *PPU) SetVRAMBank(v byte) {
	if p.cgb {
		p.vramBank = v & 1
	}
}

func (p *PPU) VRAMBank() byte {
	if !p.cgb {
		return 0xFE
	}
	return 0xFE | p.vramBank
}

func (p *PPU) activeVRAM() *[0x2000]byte {
	if p.vramBank == 1 {
		return &p.vramBank1
	}
	return &p.vramBank0
}

// CPURead returns bytes for VRAM, OAM, and the PPU's IO registers.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.mode == ModeDraw {
			return 0xFF
		}
		return p.activeVRAM()[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if p.mode == ModeOAM || p.mode == ModeDraw {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	case addr == 0xFF68:
		return p.bgColor.readSpec()
	case addr == 0xFF69:
		return p.bgColor.readData()
	case addr == 0xFF6A:
		return p.objColor.readSpec()
	case addr == 0xFF6B:
		return p.objColor.readData()
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and the PPU's IO registers.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.mode == ModeDraw {
			return
		}
		p.activeVRAM()[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if p.mode == ModeOAM || p.mode == ModeDraw {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		p.writeLCDC(value)
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// LY is read-only on real hardware; writes are ignored.
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYCAndIRQ()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	case addr == 0xFF68:
		p.bgColor.writeSpec(value)
	case addr == 0xFF69:
		p.bgColor.writeData(value, p.mode)
	case addr == 0xFF6A:
		p.objColor.writeSpec(value)
	case addr == 0xFF6B:
		p.objColor.writeData(value, p.mode)
	}
}

// WriteOAMByte is the OAM-DMA engine's direct write path, bypassing the
// CPU-access gating applied to CPUWrite (OAM-DMA is exempt from the mode-2/3
// block since the PPU itself isn't the one reading OAM during the copy).
func (p *PPU) WriteOAMByte(index int, value byte) { p.oam[index] = value }

// WriteVRAMByte is the GDMA/HDMA engine's direct write path into the
// currently VBK-selected bank, bypassing the Draw-mode gating CPUWrite
// applies (the H-blank DMA only ever runs during HBlank, so gating would
// never trigger in practice, but general-purpose DMA can run while the
// PPU is anywhere in its cycle).
func (p *PPU) WriteVRAMByte(offset uint16, value byte) {
	p.activeVRAM()[offset] = value
}

func (p *PPU) writeLCDC(value byte) {
	wasOn := p.lcdc&0x80 != 0
	p.lcdc = value
	isOn := p.lcdc&0x80 != 0

	if wasOn && !isOn {
		p.ly = 0
		p.cycle = 0
		p.setMode(ModeHBlank)
		p.updateLYCAndIRQ()
	} else if !wasOn && isOn {
		p.ly = 0
		p.currentPixel = 0
		p.cycle = oamScanCycles - 1
		p.scanlineCycleStart = p.ranCycles
		p.setMode(ModeOAM)
		p.updateLYCAndIRQ()
	}
}

func (p *PPU) displayEnabled() bool  { return p.lcdc&0x80 != 0 }
func (p *PPU) winEnabled() bool      { return p.lcdc&0x21 == 0x21 } // BIT5 window + BIT0 bg
func (p *PPU) bgEnabled() bool       { return p.lcdc&0x01 != 0 }
func (p *PPU) objEnabled() bool      { return p.lcdc&0x02 != 0 }
func (p *PPU) objDoubleHeight() bool { return p.lcdc&0x04 != 0 }

func (p *PPU) addressingSigned() bool { return p.lcdc&0x10 == 0 }

func (p *PPU) tileMapOffset(mode fetcherMode) uint16 {
	var bit byte
	if mode == fetchWindow {
		bit = 0x40
	} else {
		bit = 0x08
	}
	if p.lcdc&bit != 0 {
		return 0x1C00
	}
	return 0x1800
}

// updateLYCAndIRQ recomputes the LYC==LY flag and re-evaluates the combined
// STAT interrupt line.
func (p *PPU) updateLYCAndIRQ() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
	} else {
		p.stat &^= 1 << 2
	}
	p.updateStatIRQ()
}

// updateStatIRQ ORs together the four STAT interrupt sources (mode-0/1/2 and
// LYC==LY) plus the OAM-scan-at-LY=144 quirk, and raises the interrupt only
// on the combined signal's rising edge (spec §4.3's STAT-IRQ edge-trigger
// requirement; real hardware glitches on rapid retriggering from any source,
// which this models as a single OR'd line rather than four independent
// edge-triggered sources the way the teacher's ad hoc per-source requests
// did).
func (p *PPU) updateStatIRQ() {
	modeBit := func(b byte) bool { return p.stat&b != 0 }
	modeInt := false
	switch p.mode {
	case ModeHBlank:
		modeInt = modeBit(1 << 3)
	case ModeVBlank:
		modeInt = modeBit(1 << 4)
	case ModeOAM:
		modeInt = modeBit(1 << 5)
	}
	// The OAM-scan source also fires once when VBlank begins (LY==144),
	// matching the real hardware quirk.
	modeInt = modeInt || (modeBit(1<<5) && p.ly == 144)

	lycInt := p.stat&(1<<2) != 0 && p.stat&(1<<6) != 0

	newLevel := modeInt || lycInt
	rising := !p.statIRQ && newLevel
	p.statIRQ = newLevel

	if rising && p.req != nil {
		p.req(1)
	}
}

func (p *PPU) setMode(m Mode) {
	p.mode = m
	p.stat = (p.stat &^ 0x03) | byte(m)
	if !p.displayEnabled() {
		return
	}
	p.updateStatIRQ()
	if m == ModeVBlank && p.req != nil {
		p.req(0)
	}
}

// Tick advances the PPU by one T-state.
func (p *PPU) Tick() {
	if !p.displayEnabled() {
		return
	}

	p.updateLYCAndIRQ()

	p.ranCycles++
	if p.cycle > 0 {
		p.cycle--
		return
	}

	switch p.mode {
	case ModeHBlank:
		p.ly++
		if p.ly < screenH {
			p.cycle = oamScanCycles - 1
			p.scanlineCycleStart = p.ranCycles
			p.setMode(ModeOAM)
		} else {
			p.cycle = fullLineCycles - 1
			p.windowLine = 0xFF
			p.setMode(ModeVBlank)
		}
	case ModeVBlank:
		if p.ly < vblankLastLine {
			p.cycle = fullLineCycles - 1
			p.ly++
		} else {
			p.ly = 0
			p.cycle = oamScanCycles - 1
			p.frame++
			p.scanlineCycleStart = p.ranCycles
			p.setMode(ModeOAM)
		}
	case ModeOAM:
		p.cycle = 11
		p.startScanline()
		p.setMode(ModeDraw)
	case ModeDraw:
		p.stepFIFO()
		if p.currentPixel == screenW {
			elapsed := p.ranCycles - p.scanlineCycleStart
			remaining := fullLineCycles - elapsed
			if remaining < 1 {
				remaining = 1
			}
			p.cycle = remaining - 1
			p.setMode(ModeHBlank)
		}
	}
}

// SaveState/LoadState are defined in state.go alongside the gob-encoded
// snapshot type, matching the rest of the module's save-state convention.
