package lcd

import "github.com/dmgcore/gbcore/bit"

// LCDC is the decoded LCD control register (0xFF40), snapshotted once per
// line so that the rest of the renderer deals with named booleans instead
// of re-testing bits.
type LCDC struct {
	raw byte
}

func (l LCDC) Raw() byte { return l.raw }

// BGWindowEnable is bit 0: on DMG it disables BG and window entirely
// (rendered as color 0); on CGB it instead forces BG/window under all
// sprites (the master-priority override used by the line renderer's sprite
// mask rule).
func (l LCDC) BGWindowEnable() bool { return bit.IsSet(0, l.raw) }
func (l LCDC) OBJEnable() bool      { return bit.IsSet(1, l.raw) }
func (l LCDC) OBJDoubleHeight() bool { return bit.IsSet(2, l.raw) }
func (l LCDC) BGTileMapHigh() bool  { return bit.IsSet(3, l.raw) }
func (l LCDC) UnsignedAddressing() bool { return bit.IsSet(4, l.raw) }
func (l LCDC) WindowEnable() bool   { return bit.IsSet(5, l.raw) }
func (l LCDC) WindowTileMapHigh() bool { return bit.IsSet(6, l.raw) }
func (l LCDC) Enabled() bool        { return bit.IsSet(7, l.raw) }

func (l LCDC) OBJHeight() int {
	if l.OBJDoubleHeight() {
		return 16
	}
	return 8
}

func (l LCDC) BGTileMapBase() uint16 {
	if l.BGTileMapHigh() {
		return 0x9C00
	}
	return 0x9800
}

func (l LCDC) WindowTileMapBase() uint16 {
	if l.WindowTileMapHigh() {
		return 0x9C00
	}
	return 0x9800
}

func newLCDC(raw byte) LCDC { return LCDC{raw: raw} }
