// Package cart models the Game Boy cartridge: header parsing and the MBC
// variants that paginate ROM/RAM into the CPU's address space.
package cart

import "errors"

// Cartridge is the interface the bus needs for ROM (0x0000-0x7FFF) and
// external RAM (0xA000-0xBFFF) access, plus save-state round-tripping.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)

	// SaveState/LoadState serialize banking registers and RAM. ROM banks are
	// never part of the save state (spec §6: reloaded from the ROM source).
	SaveState() []byte
	LoadState(data []byte)

	// SaveRAM/LoadRAM expose battery-backed RAM for persistence, independent
	// of full save states.
	SaveRAM() []byte
	LoadRAM(data []byte)

	// Title is the cartridge's ROM header title, used both for the CGB
	// compatibility-palette heuristic and for save-state InvalidGame checks.
	Title() string
	// CGBAware reports whether the header's CGB flag marks the cartridge as
	// color-aware (spec §6).
	CGBAware() bool
}

// mbcKind identifies which MBC family a header's cartridge-type byte selects.
type mbcKind int

const (
	kindROM mbcKind = iota
	kindMBC1
	kindMBC2
	kindMBC3
	kindMBC5
)

func mbcKindOf(cartType byte) (mbcKind, bool) {
	switch cartType {
	case 0x00, 0x08, 0x09:
		return kindROM, true
	case 0x01, 0x02, 0x03:
		return kindMBC1, true
	case 0x05, 0x06:
		return kindMBC2, true
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return kindMBC3, true
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return kindMBC5, true
	default:
		return 0, false
	}
}

// New picks an MBC implementation from the ROM header (spec §4.5, §6). It
// returns an error if the header cannot be parsed, matching load_rom's
// contract of refusing the cartridge rather than guessing.
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	kind, ok := mbcKindOf(h.CartType)
	if !ok {
		return nil, errors.New("cart: unsupported MBC type")
	}
	switch kind {
	case kindROM:
		return newROMOnly(rom, h), nil
	case kindMBC1:
		return newMBC1(rom, h), nil
	case kindMBC2:
		return newMBC2(rom, h), nil
	case kindMBC3:
		return newMBC3(rom, h), nil
	case kindMBC5:
		return newMBC5(rom, h), nil
	default:
		return newROMOnly(rom, h), nil
	}
}
