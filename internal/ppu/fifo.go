package ppu

// pixel is one FIFO entry: a 2-bit color index plus enough metadata to
// resolve it against the right palette and to arbitrate BG/OBJ priority
// when the two FIFOs are mixed.
type pixel struct {
	color      byte
	palette    byte
	priority   int // OAM index for sprite pixels; lower wins when mixing
	bgPriority bool
}

func transparentPixel() pixel {
	return pixel{color: 0, priority: 40}
}

// tileFetch names a tile to decode: an absolute VRAM offset into bank 0
// (tile data is always addressed relative to bank 0 regardless of which
// bank supplies the pixel data) plus the CGB attribute byte from bank 1,
// when present.
type tileFetch struct {
	dataAddr uint16
	attrs    byte
	hasAttrs bool
}

func (p *PPU) inWindow() bool {
	inView := int(p.currentPixel)+7 >= int(p.wx) && p.ly >= p.wy
	return inView && p.winEnabled()
}

func (p *PPU) startWindow() {
	p.fifoBG = p.fifoBG[:0]
	p.fetcherMode = fetchWindow
	p.currentTile = 0
	p.windowLine++
	p.populateBGFifo()
}

// startScanline resets per-line fetch state, scans OAM for this line's
// sprites, and primes the BG FIFO, discarding SCX's fractional-tile pixels
// and drawing any sprites that start at or before pixel 0.
func (p *PPU) startScanline() {
	p.fetcherMode = fetchBackground
	p.fifoBG = p.fifoBG[:0]
	p.fifoOBJ = p.fifoOBJ[:0]
	p.currentTile = p.scx / 8
	p.sprites = p.fetchScanlineSprites()

	p.populateBGFifo()
	discard := int(p.scx % 8)
	if discard > len(p.fifoBG) {
		discard = len(p.fifoBG)
	}
	p.fifoBG = p.fifoBG[discard:]

	for i := byte(0); i < 8; i++ {
		for len(p.sprites) > 0 && p.sprites[len(p.sprites)-1].x <= i {
			s := p.sprites[len(p.sprites)-1]
			p.sprites = p.sprites[:len(p.sprites)-1]
			p.drawSprite(s)
		}
		if len(p.fifoOBJ) > 0 {
			p.fifoOBJ = p.fifoOBJ[:len(p.fifoOBJ)-1]
		}
	}
}

func (p *PPU) stepSpriteFIFO() {
	for len(p.sprites) > 0 {
		next := p.sprites[len(p.sprites)-1]
		if next.x != p.currentPixel+8 {
			return
		}
		p.sprites = p.sprites[:len(p.sprites)-1]
		p.drawSprite(next)
	}
}

func (p *PPU) stepFIFO() {
	if p.fetcherMode == fetchBackground && p.inWindow() {
		p.startWindow()
	}

	p.stepSpriteFIFO()
	p.pushPixel()

	if len(p.fifoBG) <= 8 {
		p.populateBGFifo()
	}
}

// pushPixel pops one BG pixel and, if present, one OBJ pixel, mixes them
// per the OBJ-to-BG priority rules, and writes the resolved color into the
// front buffer.
func (p *PPU) pushPixel() {
	if len(p.fifoBG) == 0 {
		return
	}
	bg := p.fifoBG[0]
	p.fifoBG = p.fifoBG[1:]

	x := p.currentPixel
	y := p.ly
	p.currentPixel++

	var out rgba
	if len(p.fifoOBJ) > 0 {
		fg := p.fifoOBJ[len(p.fifoOBJ)-1]
		p.fifoOBJ = p.fifoOBJ[:len(p.fifoOBJ)-1]

		bgOver := (fg.bgPriority || bg.bgPriority) && bg.color != 0 && p.bgEnabled()
		bgOver = bgOver || fg.color == 0

		if bgOver {
			out = p.resolveBG(bg)
		} else {
			out = p.resolveOBJ(fg)
		}
	} else {
		out = p.resolveBG(bg)
	}

	if int(x) < screenW && int(y) < screenH {
		i := (int(y)*screenW + int(x)) * 4
		p.frontBuffer[i+0] = out.r
		p.frontBuffer[i+1] = out.g
		p.frontBuffer[i+2] = out.b
		p.frontBuffer[i+3] = out.a
	}
}

func (p *PPU) resolveBG(px pixel) rgba {
	if p.cgb {
		return p.bgColor.colorOf(px.palette, px.color)
	}
	if !p.bgEnabled() {
		return dmgShades[0]
	}
	return dmgShadeOf(p.bgp, px.color)
}

func (p *PPU) resolveOBJ(px pixel) rgba {
	if p.cgb {
		return p.objColor.colorOf(px.palette, px.color)
	}
	reg := p.obp0
	if px.palette == 1 {
		reg = p.obp1
	}
	return dmgShadeOf(reg, px.color)
}

func (p *PPU) drawSprite(s sprite) {
	if !p.objEnabled() {
		return
	}

	localY := p.ly + 16 - s.y // 0 on the sprite's top line
	var tileIndex byte
	if p.objDoubleHeight() {
		// Rows 8-15 come from the odd tile; a vertical flip swaps the halves.
		bottomTile := (localY >= 8) != s.flipY
		if bottomTile {
			tileIndex = s.tileIndex | 0x01
		} else {
			tileIndex = s.tileIndex &^ 0x01
		}
	} else {
		tileIndex = s.tileIndex
	}
	localY &= 7

	fetch := tileFetch{dataAddr: uint16(tileIndex) * 16}
	pixels := p.tileRow(fetch, localY, s.flipX, s.flipY, s.bgPriority, s.palette, s.cgbBank, int(s.oamIndex))
	p.pushSpritePixels(pixels)
}

// pushSpritePixels mixes newly fetched sprite pixels into the OBJ FIFO,
// keeping whichever pixel at each slot has the higher priority (lower OAM
// index) among the non-transparent candidates. pushPixel pops the OBJ FIFO
// from its tail, so the sprite's leftmost pixel goes into the last slot.
func (p *PPU) pushSpritePixels(pixels [8]pixel) {
	for len(p.fifoOBJ) < 8 {
		p.fifoOBJ = append([]pixel{transparentPixel()}, p.fifoOBJ...)
	}
	for i, px := range pixels {
		other := &p.fifoOBJ[len(p.fifoOBJ)-1-i]
		if (px.color != 0 && px.priority < other.priority) || other.color == 0 {
			*other = px
		}
	}
}

func (p *PPU) populateBGFifo() {
	var tileY byte
	if p.fetcherMode == fetchBackground {
		tileY = (p.ly + p.scy) >> 3
	} else {
		tileY = p.windowLine >> 3
	}
	tileX := p.currentTile
	p.currentTile = (p.currentTile + 1) % 32
	mapOffset := p.tileMapOffset(p.fetcherMode)

	mapIndex := uint16(tileX) + uint16(tileY)*32 + mapOffset
	tileRow := (p.ly + p.scy) % 8

	fetch := p.tileDataFor(mapIndex)
	pixels := p.tileRow(fetch, tileRow, false, false, false, 0, 0, 0)
	p.fifoBG = append(p.fifoBG, pixels[:]...)
}

// tileDataFor resolves a tile-map entry into the tile-data address and (on
// CGB) its attribute byte, applying LCDC's signed/unsigned addressing mode.
func (p *PPU) tileDataFor(mapIndex uint16) tileFetch {
	tileNumber := p.vramBank0[mapIndex]

	var addr uint16
	if p.addressingSigned() {
		addr = 0x1000 + uint16(16*int32(int8(tileNumber)))
	} else {
		addr = 16 * uint16(tileNumber)
	}

	if !p.cgb {
		return tileFetch{dataAddr: addr}
	}
	return tileFetch{dataAddr: addr, attrs: p.vramBank1[mapIndex], hasAttrs: true}
}

// tileRow decodes one 8-pixel row of a tile, honoring CGB per-tile
// horizontal/vertical flip, palette, and VRAM bank when attrs are present,
// or the explicit sprite flip/palette/priority arguments otherwise.
func (p *PPU) tileRow(fetch tileFetch, row byte, flipX, flipY, bgPriority bool, palette, bank byte, priority int) [8]pixel {
	row &= 7

	if fetch.hasAttrs {
		if fetch.attrs&0x40 != 0 {
			row = 7 - row
		}
		flipX = fetch.attrs&0x20 != 0
		bgPriority = fetch.attrs&0x80 != 0
		palette = fetch.attrs & 0x07
		bank = (fetch.attrs >> 3) & 0x01
	} else if flipY {
		row = 7 - row
	}

	var src *[0x2000]byte
	if bank == 1 && p.cgb {
		src = &p.vramBank1
	} else {
		src = &p.vramBank0
	}

	base := int(fetch.dataAddr) + int(row)*2
	low, high := src[base], src[base+1]
	interleaved := interleave(low, high)

	var out [8]pixel
	for i := range out {
		out[i].palette = palette
		out[i].priority = priority
		out[i].bgPriority = bgPriority
		var shift uint
		if flipX {
			shift = uint(i * 2)
		} else {
			shift = uint((7 - i) * 2)
		}
		out[i].color = byte((interleaved >> shift) & 0x03)
	}
	return out
}

// interleave spreads a tile's low/high bitplanes into 2-bit color indices
// packed 2 bits per source bit, matching the classic Game Boy tile format.
func interleave(low, high byte) uint16 {
	var out uint16
	for i := 0; i < 8; i++ {
		l := (low >> i) & 1
		h := (high >> i) & 1
		out |= uint16(l|h<<1) << (i * 2)
	}
	return out
}
