package cart

import "testing"

func TestMBC5_ROMBanking9Bit(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 0x2000}
	rom := markedROM(2)
	m := newMBC5(rom, h)

	if got := m.Read(0x4000); got != 1 {
		t.Fatalf("default bank = %d, want 1", got)
	}

	// Unlike MBC1/2/3, selecting bank 0 is honored as-is (no +1 remap).
	m.Write(0x2000, 0x00)
	if m.romBank != 0 {
		t.Fatalf("MBC5 should allow bank 0, got %d", m.romBank)
	}

	m.Write(0x2000, 0xFF)
	m.Write(0x3000, 0x01) // high bit -> bank 0x1FF
	if m.romBank != 0x1FF {
		t.Fatalf("9-bit bank assembly failed: got %#x", m.romBank)
	}
}

func TestMBC5_RAMBanking(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 4 * 0x2000}
	m := newMBC5(markedROM(2), h)

	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x03)
	m.Write(0xA000, 0x5A)

	if got := m.Read(0xA000); got != 0x5A {
		t.Fatalf("RAM bank 3 round-trip: got %#x", got)
	}
}

func TestMBC5_RumbleMasksBankBit3(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 2 * 0x2000, CartType: 0x1C}
	m := newMBC5(markedROM(2), h)

	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x08) // bit 3 set -> would be bank 8 without rumble masking
	m.Write(0xA000, 0x11)

	m.Write(0x4000, 0x00) // bit 3 cleared, same low 3 bits
	if got := m.Read(0xA000); got != 0x11 {
		t.Fatalf("rumble cart should mask bit 3 out of the RAM bank select, got %#x", got)
	}
}

func TestMBC5_SaveLoadStateRoundTrip(t *testing.T) {
	h := &Header{ROMBanks: 2, RAMSizeBytes: 0x2000}
	m := newMBC5(markedROM(2), h)
	m.Write(0x0000, 0x0A)
	m.Write(0x2000, 0x01)
	m.Write(0xA000, 0x88)

	state := m.SaveState()
	m2 := newMBC5(markedROM(2), h)
	m2.LoadState(state)

	if got := m2.Read(0xA000); got != 0x88 {
		t.Fatalf("restored RAM byte = %#x, want 0x88", got)
	}
}
