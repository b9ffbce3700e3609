package cart

import "testing"

func markedROM(banks int) []byte {
	rom := make([]byte, banks*0x4000)
	for b := 0; b < banks; b++ {
		off := b * 0x4000
		rom[off] = byte(b)
		rom[off+1] = byte(b >> 8)
	}
	return rom
}

func TestMBC1_ROMBanking(t *testing.T) {
	rom := markedROM(32) // 512KB, 5-bit range
	h := &Header{ROMBanks: 32}
	m := newMBC1(rom, h)

	if got := m.Read(0x4000); got != 1 {
		t.Fatalf("default bank = %d, want 1", got)
	}

	m.Write(0x2000, 5)
	if got := m.Read(0x4000); got != 5 {
		t.Fatalf("after select 5: got %d, want 5", got)
	}

	// Writing 0 remaps to 1 (bank 0 is never selectable for the switchable window).
	m.Write(0x2000, 0)
	if got := m.Read(0x4000); got != 1 {
		t.Fatalf("select 0 should remap to 1: got %d", got)
	}
}

func TestMBC1_RAMBanking_Mode1(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 4 * 0x2000}
	m := newMBC1(markedROM(2), h)

	m.Write(0x0000, 0x0A) // enable RAM
	m.Write(0x6000, 0x01) // complex/mode 1: bankHigh2 selects RAM bank

	m.Write(0x4000, 0x02) // RAM bank 2
	m.Write(0xA000, 0x42)
	if got := m.Read(0xA000); got != 0x42 {
		t.Fatalf("RAM bank 2 round-trip: got %#x", got)
	}

	m.Write(0x4000, 0x00) // switch back to bank 0
	if got := m.Read(0xA000); got == 0x42 {
		t.Fatalf("RAM bank 0 should be independent of bank 2, got %#x", got)
	}
}

func TestMBC1_RAMDisabledReadsFF(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 0x2000}
	m := newMBC1(markedROM(2), h)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("RAM disabled should read 0xFF, got %#x", got)
	}
}

func TestMBC1_SaveLoadStateRoundTrip(t *testing.T) {
	h := &Header{ROMBanks: 4, RAMSizeBytes: 0x2000}
	m := newMBC1(markedROM(4), h)
	m.Write(0x0000, 0x0A)
	m.Write(0x2000, 0x03)
	m.Write(0xA000, 0x99)

	state := m.SaveState()

	m2 := newMBC1(markedROM(4), h)
	m2.LoadState(state)

	if got := m2.Read(0x4000); got != 3 {
		t.Fatalf("restored ROM bank = %d, want 3", got)
	}
	if got := m2.Read(0xA000); got != 0x99 {
		t.Fatalf("restored RAM byte = %#x, want 0x99", got)
	}
}
