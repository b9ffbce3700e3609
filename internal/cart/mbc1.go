package cart

import (
	"bytes"
	"encoding/gob"
)

// mbc1 implements MBC1 banking: up to 2MB ROM (125 usable banks) and up to
// 32KB RAM, with the simple/complex (0x6000-0x7FFF) banking-mode switch that
// trades ROM-bank range for RAM-bank range (spec §4.5).
type mbc1 struct {
	rom []byte
	ram []byte

	title string
	cgb   bool

	romBankLow5 byte // bits 0-4 of the ROM bank, 0 -> 1
	bankHigh2   byte // RAM bank (simple mode) or ROM bank bits 5-6 (complex mode)
	ramEnabled  bool
	complexMode bool // false: simple (mode 0), true: complex (mode 1)

	romBanks int
}

func newMBC1(rom []byte, h *Header) *mbc1 {
	m := &mbc1{rom: rom, title: h.Title, cgb: h.CGBAware(), romBankLow5: 1, romBanks: h.ROMBanks}
	if h.RAMSizeBytes > 0 {
		m.ram = make([]byte, h.RAMSizeBytes)
	}
	if m.romBanks == 0 {
		m.romBanks = len(rom) / 0x4000
	}
	return m
}

func (m *mbc1) zeroBankHigh() int {
	if !m.complexMode {
		return 0
	}
	return int(m.bankHigh2&0x03) << 5
}

func (m *mbc1) switchableBank() int {
	bank := int(m.romBankLow5&0x1F) | (int(m.bankHigh2&0x03) << 5)
	if m.romBanks > 0 {
		bank %= m.romBanks
	}
	return bank
}

func (m *mbc1) ramBank() int {
	if !m.complexMode {
		return 0
	}
	return int(m.bankHigh2 & 0x03)
}

func (m *mbc1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		off := m.zeroBankHigh()*0x4000 + int(addr)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr < 0x8000:
		off := m.switchableBank()*0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		off := m.ramBank()*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *mbc1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		m.romBankLow5 = value & 0x1F
		if m.romBankLow5 == 0 {
			m.romBankLow5 = 1
		}
	case addr < 0x6000:
		m.bankHigh2 = value & 0x03
	case addr < 0x8000:
		m.complexMode = value&0x01 != 0
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		off := m.ramBank()*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

type mbc1State struct {
	RAM                   []byte
	RomLow5, High2        byte
	RAMEnabled, ComplexOn bool
}

func (m *mbc1) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc1State{m.ram, m.romBankLow5, m.bankHigh2, m.ramEnabled, m.complexMode})
	return buf.Bytes()
}

func (m *mbc1) LoadState(data []byte) {
	var s mbc1State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	if len(s.RAM) == len(m.ram) {
		copy(m.ram, s.RAM)
	}
	m.romBankLow5, m.bankHigh2, m.ramEnabled, m.complexMode = s.RomLow5, s.High2, s.RAMEnabled, s.ComplexOn
}

func (m *mbc1) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *mbc1) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

func (m *mbc1) Title() string  { return m.title }
func (m *mbc1) CGBAware() bool { return m.cgb }
