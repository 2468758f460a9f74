package lcd

import "github.com/dmgcore/gbcore/bit"

// VRAMBus is the read-only view of video RAM the renderer is handed at
// construction. Bank selects VRAM bank 0 or 1 (CGB only; DMG always passes
// bank 0).
type VRAMBus interface {
	ReadVRAM(bank int, address uint16) byte
}

// TileRow is one 8-pixel row of a tile, stored as the two bit-plane bytes
// hardware uses directly.
type TileRow struct {
	Low, High byte
}

// ColorIndex extracts the 2-bit color index (0-3) of pixel x (0 = leftmost).
func (t TileRow) ColorIndex(x int) byte {
	bitIndex := uint8(7 - x)
	var c byte
	if bit.IsSet(bitIndex, t.Low) {
		c |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		c |= 2
	}
	return c
}

// ColorIndexFlipped is ColorIndex with the row read right-to-left, used for
// BG/window tiles with the x-flip attribute set and for sprites.
func (t TileRow) ColorIndexFlipped(x int) byte {
	return t.ColorIndex(7 - x)
}

// FetchTileRow reads the tile row at tileRowAddr (already resolved to the
// correct 16-byte tile base plus 2*rowWithinTile, possibly y-flipped by the
// caller) from the given VRAM bank.
func FetchTileRow(vram VRAMBus, bank int, tileRowAddr uint16) TileRow {
	return TileRow{
		Low:  vram.ReadVRAM(bank, tileRowAddr),
		High: vram.ReadVRAM(bank, tileRowAddr+1),
	}
}

// TileDataAddress resolves a tile id to its 16-byte tile pattern base
// address, honoring LCDC.4's two addressing modes: unsigned against 0x8000
// when set, signed against 0x9000 when clear.
func TileDataAddress(tileID byte, unsignedAddressing bool) uint16 {
	if unsignedAddressing {
		return 0x8000 + uint16(tileID)*16
	}
	return uint16(0x9000 + int16(int8(tileID))*16)
}
