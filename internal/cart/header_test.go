package cart

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildROM makes a synthetic ROM with a valid header and checksum. size
// should match the ROM size code (e.g. 64*1024 for code 0x01).
func buildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)
	copy(rom[0x0104:0x0104+len(nintendoLogo)], nintendoLogo[:])

	tbytes := []byte(title)
	if len(tbytes) > 16 {
		tbytes = tbytes[:16]
	}
	copy(rom[0x0134:0x0144], tbytes)

	rom[0x0143] = 0x00
	rom[0x0144], rom[0x0145] = '0', '1'
	rom[0x0146] = 0x00
	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = ramSizeCode
	rom[0x014A] = 0x00
	rom[0x014B] = 0x33
	rom[0x014C] = 0x01

	var hsum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[0x014D] = hsum
	return rom
}

func TestParseHeader_MBC1(t *testing.T) {
	rom := buildROM("ZELDA", 0x01, 0x01, 0x02, 64*1024)
	h, err := ParseHeader(rom)
	require.NoError(t, err)
	require.Equal(t, "ZELDA", h.Title)
	require.Equal(t, byte(0x01), h.CartType)
	require.Equal(t, 4, h.ROMBanks)
	require.Equal(t, 8*1024, h.RAMSizeBytes)
	require.True(t, HeaderChecksumOK(rom))
}

func TestParseHeader_TooSmall(t *testing.T) {
	_, err := ParseHeader(make([]byte, 16))
	require.Error(t, err)
}

func TestParseHeader_UnrecognizedSize(t *testing.T) {
	rom := buildROM("BAD", 0x00, 0xFE, 0x00, 64*1024)
	_, err := ParseHeader(rom)
	require.Error(t, err)
}

func TestNew_PicksMBCByCartType(t *testing.T) {
	cases := []struct {
		cartType byte
		want     string
	}{
		{0x00, "*cart.romOnly"},
		{0x01, "*cart.mbc1"},
		{0x06, "*cart.mbc2"},
		{0x10, "*cart.mbc3"},
		{0x1A, "*cart.mbc5"},
	}
	for _, c := range cases {
		rom := buildROM("TESTROM", c.cartType, 0x00, 0x00, 32*1024)
		got, err := New(rom)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, c.want, fmt.Sprintf("%T", got))
	}
}
