package ppu

import (
	"bytes"
	"encoding/gob"
)

type snapshot struct {
	VRAMBank0 [0x2000]byte
	VRAMBank1 [0x2000]byte
	VRAMBank  byte
	OAM       [0xA0]byte

	LCDC, STAT, SCY, SCX, LY, LYC byte
	BGP, OBP0, OBP1, WY, WX       byte

	BGColorIndex, BGColorInc byte
	BGColorData              [32]uint16
	OBJColorIndex, OBJColorInc byte
	OBJColorData               [32]uint16

	Mode                          Mode
	Cycle, ScanlineCycleStart, RanCycles int
	StatIRQ                        bool
	FetcherMode                    fetcherMode
	CurrentPixel, WindowLine, CurrentTile byte
	Frame                          uint64
}

// SaveState serializes all PPU state needed to resume mid-frame: VRAM,
// OAM, registers, CGB color RAM, and the in-progress FIFO position. The
// front buffer itself is not included (it's regenerated as rendering
// continues).
func (p *PPU) SaveState() []byte {
	s := snapshot{
		VRAMBank0: p.vramBank0, VRAMBank1: p.vramBank1, VRAMBank: p.vramBank,
		OAM:  p.oam,
		LCDC: p.lcdc, STAT: p.stat, SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1, WY: p.wy, WX: p.wx,
		BGColorIndex: p.bgColor.index, BGColorInc: boolByte(p.bgColor.increment), BGColorData: p.bgColor.data,
		OBJColorIndex: p.objColor.index, OBJColorInc: boolByte(p.objColor.increment), OBJColorData: p.objColor.data,
		Mode: p.mode, Cycle: p.cycle, ScanlineCycleStart: p.scanlineCycleStart, RanCycles: p.ranCycles,
		StatIRQ: p.statIRQ, FetcherMode: p.fetcherMode,
		CurrentPixel: p.currentPixel, WindowLine: p.windowLine, CurrentTile: p.currentTile,
		Frame: p.frame,
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vramBank0, p.vramBank1, p.vramBank = s.VRAMBank0, s.VRAMBank1, s.VRAMBank
	p.oam = s.OAM
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = s.LCDC, s.STAT, s.SCY, s.SCX, s.LY, s.LYC
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = s.BGP, s.OBP0, s.OBP1, s.WY, s.WX
	p.bgColor.index, p.bgColor.increment, p.bgColor.data = s.BGColorIndex, s.BGColorInc != 0, s.BGColorData
	p.objColor.index, p.objColor.increment, p.objColor.data = s.OBJColorIndex, s.OBJColorInc != 0, s.OBJColorData
	for i := range p.bgColor.colors {
		p.bgColor.updateColor(i)
	}
	for i := range p.objColor.colors {
		p.objColor.updateColor(i)
	}
	p.mode, p.cycle, p.scanlineCycleStart, p.ranCycles = s.Mode, s.Cycle, s.ScanlineCycleStart, s.RanCycles
	p.statIRQ, p.fetcherMode = s.StatIRQ, s.FetcherMode
	p.currentPixel, p.windowLine, p.currentTile = s.CurrentPixel, s.WindowLine, s.CurrentTile
	p.frame = s.Frame
	p.fifoBG = p.fifoBG[:0]
	p.fifoOBJ = p.fifoOBJ[:0]
	p.sprites = nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
