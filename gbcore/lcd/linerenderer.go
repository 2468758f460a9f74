package lcd

import "github.com/dmgcore/gbcore/bit"

// bgAttr decodes a CGB BG-map attribute byte (VRAM bank 1, same map
// coordinates as the tile-id byte in bank 0).
type bgAttr struct {
	palette  int
	bank     int
	flipX    bool
	flipY    bool
	priority bool
}

func decodeBGAttr(raw byte) bgAttr {
	return bgAttr{
		palette:  int(raw & 0x07),
		bank:     int(bit.GetBitValue(3, raw)),
		flipX:    bit.IsSet(5, raw),
		flipY:    bit.IsSet(6, raw),
		priority: bit.IsSet(7, raw),
	}
}

// bgPixel is what the BG/window pass of the line renderer produces for each
// of the 160 columns before sprites are overlaid: the 2-bit color index
// plus enough attribute state to resolve sprite-vs-BG priority afterwards.
type bgPixel struct {
	colorIndex byte
	cgbAttr    bgAttr
}

// LineRenderer produces one 160-pixel row using the whole-line fast path:
// it is only valid for lines where no CPU register write landed mid-mode-3,
// the condition the owning LCD checks before choosing this over the FIFO
// renderer.
type LineRenderer struct {
	vram VRAMBus
	cgb  bool

	windowLineCounter int
}

// NewLineRenderer creates a fast-path renderer reading tile data through
// vram.
func NewLineRenderer(vram VRAMBus, cgb bool) *LineRenderer {
	return &LineRenderer{vram: vram, cgb: cgb}
}

// ResetWindowLineCounter is called on LCD-on and at the start of each frame
// (WY is latched once per frame, not re-evaluated per line).
func (r *LineRenderer) ResetWindowLineCounter() { r.windowLineCounter = 0 }

// RenderLine fills row (160 entries) with resolved RGBA pixels for the given
// scanline, snapshot of LCDC, scroll/window registers, palettes and the
// line's visible sprite set (already resolved by OAM.SpritesOnLine).
func (r *LineRenderer) RenderLine(
	row *[FrameWidth]RGBA,
	line int,
	lcdc LCDC,
	scy, scx, wy, wx byte,
	pal *Palettes,
	sprites []Sprite,
) {
	var bg [FrameWidth]bgPixel

	r.renderBackground(&bg, line, lcdc, scy, scx)

	windowDrawn := false
	if lcdc.WindowEnable() && int(wy) <= line && wx < 167 {
		r.renderWindow(&bg, line, lcdc, wx)
		windowDrawn = true
	}

	for x := 0; x < FrameWidth; x++ {
		if r.cgb {
			row[x] = pal.CGBBGColor(bg[x].cgbAttr.palette, bg[x].colorIndex)
		} else if lcdc.BGWindowEnable() {
			row[x] = pal.BGColor(bg[x].colorIndex)
		} else {
			row[x] = dmgShades[0]
		}
	}

	if lcdc.OBJEnable() {
		r.overlaySprites(row, &bg, line, lcdc, pal, sprites)
	}

	if windowDrawn {
		r.windowLineCounter++
	}
}

func (r *LineRenderer) renderBackground(bg *[FrameWidth]bgPixel, line int, lcdc LCDC, scy, scx byte) {
	bgY := (line + int(scy)) & 0xFF
	tileRow := bgY / 8
	rowInTile := bgY % 8
	mapBase := lcdc.BGTileMapBase()

	for col := -1; col <= FrameWidth/8+1; col++ {
		bgX := (col*8 + int(scx)) & 0xFF
		tileCol := (bgX / 8) & 0x1F
		mapAddr := mapBase + uint16(tileRow&0x1F)*32 + uint16(tileCol)
		tileID := r.vram.ReadVRAM(0, mapAddr)

		var attr bgAttr
		bank := 0
		if r.cgb {
			attr = decodeBGAttr(r.vram.ReadVRAM(1, mapAddr))
			bank = attr.bank
		}

		effRow := rowInTile
		if attr.flipY {
			effRow = 7 - rowInTile
		}
		tileAddr := TileDataAddress(tileID, lcdc.UnsignedAddressing())
		rowData := FetchTileRow(r.vram, bank, tileAddr+uint16(effRow*2))

		for px := 0; px < 8; px++ {
			screenX := col*8 + px - (int(scx) & 7)
			if screenX < 0 || screenX >= FrameWidth {
				continue
			}
			var ci byte
			if attr.flipX {
				ci = rowData.ColorIndexFlipped(px)
			} else {
				ci = rowData.ColorIndex(px)
			}
			bg[screenX] = bgPixel{colorIndex: ci, cgbAttr: attr}
		}
	}
}

func (r *LineRenderer) renderWindow(bg *[FrameWidth]bgPixel, line int, lcdc LCDC, wx byte) {
	winX0 := int(wx) - 7
	if winX0 >= FrameWidth {
		return
	}
	windowY := r.windowLineCounter
	tileRow := windowY / 8
	rowInTile := windowY % 8
	mapBase := lcdc.WindowTileMapBase()

	for screenX := winX0; screenX < FrameWidth; screenX++ {
		if screenX < 0 {
			continue
		}
		relX := screenX - winX0
		tileCol := relX / 8
		mapAddr := mapBase + uint16(tileRow)*32 + uint16(tileCol)
		tileID := r.vram.ReadVRAM(0, mapAddr)

		var attr bgAttr
		bank := 0
		if r.cgb {
			attr = decodeBGAttr(r.vram.ReadVRAM(1, mapAddr))
			bank = attr.bank
		}
		effRow := rowInTile
		if attr.flipY {
			effRow = 7 - rowInTile
		}
		tileAddr := TileDataAddress(tileID, lcdc.UnsignedAddressing())
		rowData := FetchTileRow(r.vram, bank, tileAddr+uint16(effRow*2))

		px := relX % 8
		var ci byte
		if attr.flipX {
			ci = rowData.ColorIndexFlipped(px)
		} else {
			ci = rowData.ColorIndex(px)
		}
		bg[screenX] = bgPixel{colorIndex: ci, cgbAttr: attr}
	}
}

// overlaySprites draws visible sprites in reverse priority order (so the
// highest-priority sprite's color ends up drawn last), honoring the
// "(underlying_priority_bits | sprite_priority) & priority_mask <= 0x80"
// draw-test from the spec.
func (r *LineRenderer) overlaySprites(row *[FrameWidth]RGBA, bg *[FrameWidth]bgPixel, line int, lcdc LCDC, pal *Palettes, sprites []Sprite) {
	priorityMask := byte(0xFF)
	if r.cgb && !lcdc.BGWindowEnable() {
		priorityMask = 0x00
	}

	for i := len(sprites) - 1; i >= 0; i-- {
		sp := sprites[i]

		rowInSprite := line - sp.Y
		if sp.FlipY {
			rowInSprite = sp.Height - 1 - rowInSprite
		}
		tileID := sp.TileIndex
		if sp.Height == 16 {
			tileID &^= 0x01
			if rowInSprite >= 8 {
				tileID |= 0x01
				rowInSprite -= 8
			}
		}
		tileAddr := 0x8000 + uint16(tileID)*16
		rowData := FetchTileRow(r.vram, sp.VRAMBank, tileAddr+uint16(rowInSprite*2))

		for px := 0; px < 8; px++ {
			if !sp.HasPriorityForPixel(px) {
				continue
			}
			screenX := sp.X + px
			if screenX < 0 || screenX >= FrameWidth {
				continue
			}

			var colorIndex byte
			if sp.FlipX {
				colorIndex = rowData.ColorIndexFlipped(px)
			} else {
				colorIndex = rowData.ColorIndex(px)
			}
			if colorIndex == 0 {
				continue
			}

			// Sprite hidden behind a non-transparent BG pixel iff either the
			// sprite's own OBJ-behind-BG attribute or (CGB only) the tile's
			// BG-over-OBJ attribute requests it; priorityMask 0x00 (CGB
			// LCDC.0 clear) forces sprites on top unconditionally.
			underlying := bg[screenX]
			if priorityMask != 0x00 && underlying.colorIndex != 0 {
				blocked := sp.BehindBG || (r.cgb && underlying.cgbAttr.priority)
				if blocked {
					continue
				}
			}

			if r.cgb {
				row[screenX] = pal.CGBObjColor(sp.CGBPalette, colorIndex)
			} else {
				row[screenX] = pal.ObjColor(colorIndex, sp.PaletteOBP1)
			}
		}
	}
}
