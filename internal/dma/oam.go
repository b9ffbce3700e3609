// Package dma models the Game Boy's two DMA engines: OAM-DMA (FF46, DMG and
// CGB) and CGB general-purpose/H-blank VRAM DMA (HDMA1-5).
package dma

// BusReader is the source side of an OAM-DMA transfer: the full 16-bit
// address space as the CPU would see it (so DMA from ROM, WRAM, or even
// looping back through OAM itself all work the way the hardware does).
type BusReader interface {
	Read(addr uint16) byte
}

// OAMWriter is the destination side of an OAM-DMA transfer.
type OAMWriter interface {
	WriteOAMByte(index int, value byte)
}

// OAM drives the FF46 OAM-DMA transfer: a 2-M-cycle start delay followed by
// a 160-M-cycle active phase that copies one byte per M-cycle, with the
// high source byte above 0xDF remapped down into echo/WRAM space since
// cartridge RAM and the top of address space are not valid DMA sources
// (spec §5.1).
type OAM struct {
	active     bool
	startDelay int // T-states remaining before the copy phase begins
	source     uint16
	byteIndex  int
	subCycle   int // 0-3, counts T-states within the current M-cycle
}

// Start begins a transfer from (value<<8) to OAM (0xFE00-0xFE9F).
func (o *OAM) Start(value byte) {
	if value > 0xDF {
		value -= 0x20
	}
	o.source = uint16(value) << 8
	o.startDelay = 2 * 4
	o.byteIndex = 0
	o.subCycle = 0
	o.active = true
}

// Active reports whether a transfer (including its start delay) is in
// flight at all.
func (o *OAM) Active() bool { return o.active }

// Copying reports whether the transfer is in its active copy phase, past
// the 2-M-cycle start delay. Only HRAM and the FF46 register are
// CPU-accessible while this is true
// (spec §5.1).
func (o *OAM) Copying() bool { return o.active && o.startDelay == 0 }

// Tick advances the transfer by one T-state.
func (o *OAM) Tick(bus BusReader, oam OAMWriter) {
	if !o.active {
		return
	}
	if o.startDelay > 0 {
		o.startDelay--
		return
	}
	o.subCycle++
	if o.subCycle < 4 {
		return
	}
	o.subCycle = 0

	v := bus.Read(o.source + uint16(o.byteIndex))
	oam.WriteOAMByte(o.byteIndex, v)
	o.byteIndex++
	if o.byteIndex >= 0xA0 {
		o.active = false
	}
}

// State is the serializable snapshot for save-states.
type State struct {
	Active     bool
	StartDelay int
	Source     uint16
	ByteIndex  int
	SubCycle   int
}

func (o *OAM) SaveState() State {
	return State{o.active, o.startDelay, o.source, o.byteIndex, o.subCycle}
}

func (o *OAM) LoadState(s State) {
	o.active, o.startDelay, o.source, o.byteIndex, o.subCycle = s.Active, s.StartDelay, s.Source, s.ByteIndex, s.SubCycle
}
