package cart

import (
	"bytes"
	"encoding/gob"
)

// rtc is a latched-register stub for MBC3's real-time clock: it tracks the
// seconds/minutes/hours/day-counter registers selectable at 0x4000-0x5FFF
// (values 0x08-0x0C) but never advances them against wall-clock time — spec
// §4.5 calls this out explicitly as "omitted beyond a register stub".
type rtc struct {
	Seconds, Minutes, Hours byte
	DayLow, DayHigh         byte
	Latched                 bool
}

// mbc3 implements MBC3 banking plus RAM-bank/RTC-register selection and the
// latch-clock stub at 0x6000-0x7FFF (spec §4.5).
type mbc3 struct {
	rom []byte
	ram []byte
	rtc rtc

	title string
	cgb   bool

	ramRTCEnabled bool
	romBank       byte // 7 bits, 0 -> 1
	ramOrRTCSel   byte // 0-3: RAM bank; 8-C: RTC register
	lastLatch     byte

	romBanks int
}

func newMBC3(rom []byte, h *Header) *mbc3 {
	m := &mbc3{rom: rom, title: h.Title, cgb: h.CGBAware(), romBank: 1, romBanks: h.ROMBanks}
	if h.RAMSizeBytes > 0 {
		m.ram = make([]byte, h.RAMSizeBytes)
	}
	return m
}

func (m *mbc3) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank & 0x7F)
		if bank == 0 {
			bank = 1
		}
		if m.romBanks > 0 {
			bank %= m.romBanks
			if bank == 0 {
				bank = 1
			}
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramRTCEnabled {
			return 0xFF
		}
		if m.ramOrRTCSel >= 0x08 && m.ramOrRTCSel <= 0x0C {
			return m.readRTC()
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		off := int(m.ramOrRTCSel&0x03)*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *mbc3) readRTC() byte {
	switch m.ramOrRTCSel {
	case 0x08:
		return m.rtc.Seconds
	case 0x09:
		return m.rtc.Minutes
	case 0x0A:
		return m.rtc.Hours
	case 0x0B:
		return m.rtc.DayLow
	case 0x0C:
		return m.rtc.DayHigh
	default:
		return 0xFF
	}
}

func (m *mbc3) writeRTC(value byte) {
	switch m.ramOrRTCSel {
	case 0x08:
		m.rtc.Seconds = value
	case 0x09:
		m.rtc.Minutes = value
	case 0x0A:
		m.rtc.Hours = value
	case 0x0B:
		m.rtc.DayLow = value
	case 0x0C:
		m.rtc.DayHigh = value
	}
}

func (m *mbc3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramRTCEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		m.ramOrRTCSel = value
	case addr < 0x8000:
		// Latch: a 0->1 transition on the latch register sets the Latched
		// flag. The stub clock keeps a single register set, so nothing is
		// copied.
		if m.lastLatch == 0x00 && value == 0x01 {
			m.rtc.Latched = true
		}
		m.lastLatch = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramRTCEnabled {
			return
		}
		if m.ramOrRTCSel >= 0x08 && m.ramOrRTCSel <= 0x0C {
			m.writeRTC(value)
			return
		}
		if len(m.ram) == 0 {
			return
		}
		off := int(m.ramOrRTCSel&0x03)*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

type mbc3State struct {
	RAM                    []byte
	RTC                    rtc
	RAMEnabled             bool
	ROMBank, Sel, LastLatch byte
}

func (m *mbc3) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc3State{m.ram, m.rtc, m.ramRTCEnabled, m.romBank, m.ramOrRTCSel, m.lastLatch})
	return buf.Bytes()
}

func (m *mbc3) LoadState(data []byte) {
	var s mbc3State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	if len(s.RAM) == len(m.ram) {
		copy(m.ram, s.RAM)
	}
	m.rtc, m.ramRTCEnabled, m.romBank, m.ramOrRTCSel, m.lastLatch = s.RTC, s.RAMEnabled, s.ROMBank, s.Sel, s.LastLatch
}

func (m *mbc3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *mbc3) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

func (m *mbc3) Title() string  { return m.title }
func (m *mbc3) CGBAware() bool { return m.cgb }
