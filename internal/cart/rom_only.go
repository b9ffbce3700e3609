package cart

// romOnly implements a cartridge with no banking and no battery RAM.
type romOnly struct {
	rom   []byte
	title string
	cgb   bool
}

func newROMOnly(rom []byte, h *Header) *romOnly {
	return &romOnly{rom: rom, title: h.Title, cgb: h.CGBAware()}
}

func (c *romOnly) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if int(addr) < len(c.rom) {
			return c.rom[addr]
		}
		return 0xFF
	default: // 0xA000-0xBFFF: no external RAM
		return 0xFF
	}
}

func (c *romOnly) Write(addr uint16, value byte) {}

func (c *romOnly) SaveState() []byte     { return nil }
func (c *romOnly) LoadState(data []byte) {}
func (c *romOnly) SaveRAM() []byte       { return nil }
func (c *romOnly) LoadRAM(data []byte)   {}
func (c *romOnly) Title() string         { return c.title }
func (c *romOnly) CGBAware() bool        { return c.cgb }
