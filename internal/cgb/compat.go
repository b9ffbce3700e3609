// Package cgb holds Game Boy Color hardware details that are pure data or
// pure policy, independent of the bus/PPU wiring that uses them: the boot
// ROM's built-in DMG-compatibility color palettes and the KEY1 speed-switch
// stall duration.
package cgb

import (
	"strings"

	"github.com/nilhelm/gogbcore/internal/cart"
)

func rgb5(r, g, b byte) uint16 {
	return uint16(r&0x1F) | uint16(g&0x1F)<<5 | uint16(b&0x1F)<<10
}

// SpeedSwitchStallMCycles is how long the CPU halts while CGB double-speed
// mode takes effect after a STOP with KEY1 bit 0 armed (~2050 cycles on real
// hardware).
const SpeedSwitchStallMCycles = 2050

// PaletteSet is one of the CGB boot ROM's built-in color sets applied to a
// DMG-only cartridge, seeding BG color RAM palette 0 and OBJ color RAM
// palettes 0/1 before the game itself ever writes BGP/OBP0/OBP1.
type PaletteSet struct {
	BG, OBJ0, OBJ1 [4]uint16
}

// SetNames indexes the same sets TitleExact/TitleContains point into; kept
// for debug/trace output.
var SetNames = [...]string{"Green", "Sepia", "Blue", "Red", "Pastel", "Grey"}

// PaletteSets is the fixed table of built-in compatibility palettes, indexed
// by AutoCompatPaletteFromHeader's return value.
var PaletteSets = [...]PaletteSet{
	{ // 0: Green — the classic Zelda/DMG-green-tinted look
		BG:   [4]uint16{rgb5(31, 31, 31), rgb5(21, 27, 10), rgb5(10, 18, 4), rgb5(2, 6, 2)},
		OBJ0: [4]uint16{rgb5(31, 31, 31), rgb5(31, 20, 0), rgb5(21, 10, 0), rgb5(4, 2, 0)},
		OBJ1: [4]uint16{rgb5(31, 31, 31), rgb5(0, 20, 31), rgb5(0, 10, 21), rgb5(0, 2, 4)},
	},
	{ // 1: Sepia — warm browns (Donkey Kong/Wario family)
		BG:   [4]uint16{rgb5(31, 29, 24), rgb5(26, 19, 11), rgb5(16, 10, 4), rgb5(6, 3, 1)},
		OBJ0: [4]uint16{rgb5(31, 31, 31), rgb5(28, 20, 8), rgb5(18, 11, 2), rgb5(5, 2, 0)},
		OBJ1: [4]uint16{rgb5(31, 31, 31), rgb5(16, 24, 10), rgb5(8, 14, 4), rgb5(2, 5, 1)},
	},
	{ // 2: Blue — Tetris/Mega Man family
		BG:   [4]uint16{rgb5(31, 31, 31), rgb5(16, 20, 31), rgb5(6, 10, 21), rgb5(1, 2, 6)},
		OBJ0: [4]uint16{rgb5(31, 31, 31), rgb5(31, 26, 10), rgb5(20, 16, 4), rgb5(5, 4, 0)},
		OBJ1: [4]uint16{rgb5(31, 31, 31), rgb5(10, 31, 16), rgb5(4, 20, 8), rgb5(0, 6, 2)},
	},
	{ // 3: Red — Mario/Metroid family
		BG:   [4]uint16{rgb5(31, 31, 31), rgb5(31, 16, 12), rgb5(21, 6, 4), rgb5(6, 1, 1)},
		OBJ0: [4]uint16{rgb5(31, 31, 31), rgb5(31, 31, 10), rgb5(20, 20, 4), rgb5(5, 5, 0)},
		OBJ1: [4]uint16{rgb5(31, 31, 31), rgb5(10, 16, 31), rgb5(4, 8, 20), rgb5(0, 2, 5)},
	},
	{ // 4: Pastel — Kirby/Pokemon family
		BG:   [4]uint16{rgb5(31, 31, 31), rgb5(26, 24, 31), rgb5(17, 14, 24), rgb5(7, 5, 10)},
		OBJ0: [4]uint16{rgb5(31, 31, 31), rgb5(31, 22, 26), rgb5(22, 12, 16), rgb5(8, 3, 5)},
		OBJ1: [4]uint16{rgb5(31, 31, 31), rgb5(22, 31, 26), rgb5(12, 22, 16), rgb5(3, 8, 5)},
	},
	{ // 5: Grey — neutral fallback
		BG:   [4]uint16{rgb5(31, 31, 31), rgb5(21, 21, 21), rgb5(11, 11, 11), rgb5(2, 2, 2)},
		OBJ0: [4]uint16{rgb5(31, 31, 31), rgb5(21, 21, 21), rgb5(11, 11, 11), rgb5(2, 2, 2)},
		OBJ1: [4]uint16{rgb5(31, 31, 31), rgb5(21, 21, 21), rgb5(11, 11, 11), rgb5(2, 2, 2)},
	},
}

// TitleExact maps exact, normalized titles to a preferred palette ID
// (indexing PaletteSets/SetNames).
var TitleExact = map[string]int{
	"TETRIS":              2,
	"TETRIS DX":           2,
	"SUPER MARIO LAND":    3,
	"SUPER MARIO LAND 2":  3,
	"DR. MARIO":           4,
	"DONKEY KONG":         1,
	"THE LEGEND OF ZELDA": 0,
	"ZELDA":               0,
	"METROID II":          3,
	"KIRBY'S DREAM LAND":  4,
	"MEGA MAN":            2,
	"MEGAMAN":             2,
	"WARIO LAND":          1,
	"POKEMON YELLOW":      4,
	"POKEMON RED":         4,
	"POKEMON BLUE":        4,
	"POCKET MONSTERS":     4,
}

// ContainsRule is one substring-family fallback rule in TitleContains.
type ContainsRule struct {
	Substr string
	ID     int
}

// TitleContains applies broader substring heuristics for families.
var TitleContains = []ContainsRule{
	{"TETRIS", 2},
	{"MARIO", 3},
	{"ZELDA", 0},
	{"KIRBY", 4},
	{"DONKEY KONG", 1},
	{"METROID", 3},
	{"MEGA MAN", 2},
	{"MEGAMAN", 2},
	{"WARIO", 1},
	{"POKEMON", 4},
	{"POCKET MONSTERS", 4},
}

// AutoCompatPaletteFromHeader picks a built-in palette set for a DMG-only
// cartridge running on CGB hardware: an exact title match, then a substring
// family match, then (for Nintendo-published titles) a checksum-derived
// fallback that is at least stable across sessions, then plain grey.
func AutoCompatPaletteFromHeader(h *cart.Header) int {
	if h == nil {
		return len(PaletteSets) - 1
	}
	t := strings.ToUpper(strings.TrimSpace(strings.TrimRight(h.Title, "\x00")))
	if id, ok := TitleExact[t]; ok {
		return id
	}
	for _, r := range TitleContains {
		if strings.Contains(t, r.Substr) {
			return r.ID
		}
	}
	nintendo := h.OldLicensee == 0x01
	if h.OldLicensee == 0x33 {
		nintendo = strings.ToUpper(h.NewLicensee) == "01"
	}
	if nintendo {
		return int(h.HeaderChecksum) % len(PaletteSets)
	}
	return len(PaletteSets) - 1
}
