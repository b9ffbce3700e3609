package cart

import "testing"

func TestMBC3_RAMBanking(t *testing.T) {
	h := &Header{ROMBanks: 4, RAMSizeBytes: 4 * 0x2000}
	m := newMBC3(markedROM(4), h)

	m.Write(0x0000, 0x0A) // enable RAM/RTC
	m.Write(0x4000, 0x02) // select RAM bank 2
	m.Write(0xA000, 0x77)

	if got := m.Read(0xA000); got != 0x77 {
		t.Fatalf("RAM bank 2 round-trip: got %#x", got)
	}

	m.Write(0x4000, 0x00)
	if got := m.Read(0xA000); got == 0x77 {
		t.Fatalf("RAM bank 0 should be distinct from bank 2")
	}
}

func TestMBC3_RTCRegisterSelectAndReadWrite(t *testing.T) {
	h := &Header{ROMBanks: 2}
	m := newMBC3(markedROM(2), h)

	m.Write(0x0000, 0x0A) // enable

	m.Write(0x4000, 0x08) // select seconds register
	m.Write(0xA000, 42)
	if got := m.Read(0xA000); got != 42 {
		t.Fatalf("seconds register round-trip: got %d, want 42", got)
	}

	m.Write(0x4000, 0x0B) // day-low register
	m.Write(0xA000, 0xAB)
	if got := m.Read(0xA000); got != 0xAB {
		t.Fatalf("day-low register round-trip: got %#x", got)
	}

	// Switching back to seconds should still read the earlier value.
	m.Write(0x4000, 0x08)
	if got := m.Read(0xA000); got != 42 {
		t.Fatalf("seconds register not preserved across register switches: got %d", got)
	}
}

func TestMBC3_LatchTransition(t *testing.T) {
	h := &Header{ROMBanks: 2}
	m := newMBC3(markedROM(2), h)

	m.Write(0x6000, 0x00)
	if m.rtc.Latched {
		t.Fatalf("writing 0 alone must not latch")
	}
	m.Write(0x6000, 0x01)
	if !m.rtc.Latched {
		t.Fatalf("0->1 transition on the latch register should latch")
	}
}

func TestMBC3_RAMRTCDisabledReadsFF(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 0x2000}
	m := newMBC3(markedROM(2), h)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM/RTC should read 0xFF, got %#x", got)
	}
}

func TestMBC3_SaveLoadStateRoundTrip(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 0x2000}
	m := newMBC3(markedROM(2), h)
	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x09) // minutes
	m.Write(0xA000, 30)

	state := m.SaveState()

	m2 := newMBC3(markedROM(2), h)
	m2.LoadState(state)

	if got := m2.Read(0xA000); got != 30 {
		t.Fatalf("restored minutes register = %d, want 30", got)
	}
}
