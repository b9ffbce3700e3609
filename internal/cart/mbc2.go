package cart

import (
	"bytes"
	"encoding/gob"
)

// mbc2 implements MBC2 banking: a single combined control register spanning
// 0x0000-0x3FFF where address bit 8 distinguishes a RAM-enable write from a
// ROM-bank-select write, plus 512x4-bit built-in RAM (spec §4.5).
type mbc2 struct {
	rom []byte
	ram [512]byte // nibbles, one per byte for simplicity

	title string
	cgb   bool

	romBank    byte // 0 -> 1
	ramEnabled bool

	romBanks int
}

func newMBC2(rom []byte, h *Header) *mbc2 {
	return &mbc2{rom: rom, title: h.Title, cgb: h.CGBAware(), romBank: 1, romBanks: h.ROMBanks}
}

func (m *mbc2) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank)
		if m.romBanks > 0 {
			bank %= m.romBanks
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return 0xF0 | (m.ram[int(addr-0xA000)%len(m.ram)] & 0x0F)
	default:
		return 0xFF
	}
}

func (m *mbc2) Write(addr uint16, value byte) {
	switch {
	case addr < 0x4000:
		if addr&0x0100 == 0 {
			m.ramEnabled = (value & 0x0F) == 0x0A
		} else {
			m.romBank = value & 0x0F
			if m.romBank == 0 {
				m.romBank = 1
			}
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		m.ram[int(addr-0xA000)%len(m.ram)] = value & 0x0F
	}
}

type mbc2State struct {
	RAM        [512]byte
	ROMBank    byte
	RAMEnabled bool
}

func (m *mbc2) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc2State{m.ram, m.romBank, m.ramEnabled})
	return buf.Bytes()
}

func (m *mbc2) LoadState(data []byte) {
	var s mbc2State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.ram, m.romBank, m.ramEnabled = s.RAM, s.ROMBank, s.RAMEnabled
}

func (m *mbc2) SaveRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram[:])
	return out
}

func (m *mbc2) LoadRAM(data []byte) {
	if len(data) == 0 {
		return
	}
	copy(m.ram[:], data)
}

func (m *mbc2) Title() string  { return m.title }
func (m *mbc2) CGBAware() bool { return m.cgb }
