package cart

import (
	"bytes"
	"encoding/gob"
)

// mbc5 implements MBC5 banking: a 9-bit ROM bank (no bank-0 remap, unlike
// MBC1/2/3) and a 4-bit RAM bank, plus optional rumble-motor bit aliasing on
// the RAM-bank register for cartridges that have one (spec §4.5 treats
// rumble as a stub — bit 3 of the RAM-bank write is simply masked away from
// the addressable bank rather than driving anything).
type mbc5 struct {
	rom []byte
	ram []byte

	title string
	cgb   bool

	romBank    uint16 // 9 bits
	ramBank    byte   // 0-15 (rumble carts use bit 3 as the motor line)
	ramEnabled bool
	hasRumble  bool

	romBanks int
}

func newMBC5(rom []byte, h *Header) *mbc5 {
	m := &mbc5{rom: rom, title: h.Title, cgb: h.CGBAware(), romBank: 1, romBanks: h.ROMBanks}
	if h.RAMSizeBytes > 0 {
		m.ram = make([]byte, h.RAMSizeBytes)
	}
	m.hasRumble = h.CartType == 0x1C || h.CartType == 0x1D || h.CartType == 0x1E
	return m
}

func (m *mbc5) ramBankMask() byte {
	if m.hasRumble {
		return 0x07 // bit 3 drives the rumble motor, not the bank
	}
	return 0x0F
}

func (m *mbc5) Read(addr uint16) byte {
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
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		off := int(m.ramBank&m.ramBankMask())*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *mbc5) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x3000:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case addr < 0x4000:
		if value&0x01 != 0 {
			m.romBank |= 0x100
		} else {
			m.romBank &^= 0x100
		}
	case addr < 0x6000:
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		off := int(m.ramBank&m.ramBankMask())*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

type mbc5State struct {
	RAM        []byte
	ROMBank    uint16
	RAMBank    byte
	RAMEnabled bool
}

func (m *mbc5) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc5State{m.ram, m.romBank, m.ramBank, m.ramEnabled})
	return buf.Bytes()
}

func (m *mbc5) LoadState(data []byte) {
	var s mbc5State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	if len(s.RAM) == len(m.ram) {
		copy(m.ram, s.RAM)
	}
	m.romBank, m.ramBank, m.ramEnabled = s.ROMBank, s.RAMBank, s.RAMEnabled
}

func (m *mbc5) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *mbc5) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

func (m *mbc5) Title() string  { return m.title }
func (m *mbc5) CGBAware() bool { return m.cgb }
