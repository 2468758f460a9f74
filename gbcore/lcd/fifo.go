package lcd

import "sort"

// fifoPhase enumerates the dot-accurate renderer's per-line state machine.
type fifoPhase int

const (
	phaseMode2 fifoPhase = iota
	phaseAlignSCX
	phaseFetchStep0
	phaseFetchStep1
	phaseFetchStep2
	phaseRenderPixel
	phaseSpriteFetch
	phaseWindowSetup
	phaseFinished
)

// fifoPixel is one queued background/window pixel awaiting compositing with
// the sprite FIFO.
type fifoPixel struct {
	colorIndex byte
	attr       bgAttr
}

// FIFORenderer reproduces the PPU's dot-by-dot fetcher/FIFO pipeline,
// selected for a line whenever a CPU register write lands mid-mode-3 (the
// fast LineRenderer can no longer be trusted once registers change under
// it).
type FIFORenderer struct {
	vram VRAMBus
	cgb  bool

	line        int
	lineClks    int
	xPos        int
	mode2Length int

	phase       fifoPhase
	bgFIFO      []fifoPixel
	spriteFIFO  []fifoPixel
	fetchCycle  int // sub-cycle within the current fetch step (2 T4 each)
	fetchTileID byte
	fetchRow    TileRow
	fetchAttr   bgAttr
	tileCol     int

	windowActive      bool
	windowLineCounter int
	windowWYLatched   bool
	spritesPending    []Sprite
	spriteFetchQueue  []Sprite
	currentSpriteRow  int

	scxDiscarded int
	scxToDiscard int

	lastBGPForGlitch byte
	bgpGlitchArmed   bool

	row [FrameWidth]RGBA
	bg  [FrameWidth]bgPixel
}

// NewFIFORenderer creates a dot-accurate renderer reading tile data through
// vram.
func NewFIFORenderer(vram VRAMBus, cgb bool) *FIFORenderer {
	return &FIFORenderer{vram: vram, cgb: cgb}
}

// StartLine resets the fetcher state for a new scanline. firstLineAfterOn
// shortens mode 2 by 2 T4 cycles (84 -> 82) per the spec.
func (f *FIFORenderer) StartLine(line int, firstLineAfterOn bool, windowLineCounter int) {
	f.line = line
	f.lineClks = 0
	f.xPos = 0
	f.phase = phaseMode2
	f.bgFIFO = f.bgFIFO[:0]
	f.spriteFIFO = f.spriteFIFO[:0]
	f.tileCol = 0
	f.windowActive = false
	f.windowLineCounter = windowLineCounter
	f.scxDiscarded = 0
	if firstLineAfterOn {
		f.mode2Length = 82
	} else {
		f.mode2Length = 84
	}
}

// StatMode0 reports whether the renderer is currently in (or has already
// finished into) STAT mode 0, so the owning LCD's STAT register reflects
// the dot-accurate pipeline precisely.
func (f *FIFORenderer) StatMode0() bool {
	return f.phase == phaseFinished
}

// Advance runs the pipeline forward by one T4 cycle. lcdc/scx/scy/wy/wx are
// re-read every cycle (they may change mid-line, which is exactly why this
// renderer is in use instead of the fast path). sprites is the line's
// pre-scanned sprite set from OAM.SpritesOnLine, consumed as x_pos reaches
// each sprite's X.
func (f *FIFORenderer) Advance(lcdc LCDC, scy, scx, wy, wx byte, pal *Palettes, sprites []Sprite) {
	f.lineClks++

	switch f.phase {
	case phaseMode2:
		if f.lineClks >= f.mode2Length {
			f.scxToDiscard = int(scx & 7)
			f.phase = phaseAlignSCX
			f.beginBGFetch(lcdc, scy, scx)
		}
		return
	case phaseAlignSCX:
		f.stepFetch(lcdc, scy)
		if len(f.bgFIFO) > 0 && f.scxDiscarded < f.scxToDiscard {
			f.bgFIFO = f.bgFIFO[1:]
			f.scxDiscarded++
		}
		if f.scxDiscarded >= f.scxToDiscard && len(f.bgFIFO) > 0 {
			f.phase = phaseRenderPixel
		}
		return
	case phaseRenderPixel:
		f.maybeActivateWindow(lcdc, scy, wy, wx)
		f.maybeStartSpriteFetch(sprites)
		if f.phase == phaseSpriteFetch {
			f.stepSpriteFetch(lcdc)
			return
		}
		f.stepFetch(lcdc, scy)
		f.emitPixel(pal, lcdc)
		if f.xPos >= FrameWidth+8 {
			f.phase = phaseFinished
		}
		return
	case phaseSpriteFetch:
		f.stepSpriteFetch(lcdc)
		return
	case phaseWindowSetup:
		f.fetchCycle++
		if f.fetchCycle >= f.windowSetupLength() {
			f.bgFIFO = f.bgFIFO[:0]
			f.beginBGFetch(lcdc, scy, scx)
			f.phase = phaseRenderPixel
		}
		return
	case phaseFinished:
		return
	}
}

func (f *FIFORenderer) windowSetupLength() int {
	if f.cgb {
		return 6
	}
	return 7
}

func (f *FIFORenderer) beginBGFetch(lcdc LCDC, scy, scx byte) {
	f.fetchCycle = 0
	f.phase = phaseAlignSCX
	f.fetchTile(lcdc, scy, scx, false)
}

// fetchTile resolves and reads one BG or window tile's low+high bitplane
// bytes and attribute, then pushes 8 fifoPixels.
func (f *FIFORenderer) fetchTile(lcdc LCDC, scy, scx byte, window bool) {
	var mapBase uint16
	var row int
	var col int
	if window {
		mapBase = lcdc.WindowTileMapBase()
		row = f.windowLineCounter / 8
		col = f.tileCol
	} else {
		bgY := (f.line + int(scy)) & 0xFF
		row = bgY / 8
		col = ((int(scx)/8 + f.tileCol) & 0x1F)
	}
	mapAddr := mapBase + uint16(row&0x1F)*32 + uint16(col&0x1F)
	tileID := f.vram.ReadVRAM(0, mapAddr)
	var attr bgAttr
	bank := 0
	if f.cgb {
		attr = decodeBGAttr(f.vram.ReadVRAM(1, mapAddr))
		bank = attr.bank
	}
	var rowInTile int
	if window {
		rowInTile = f.windowLineCounter % 8
	} else {
		rowInTile = (f.line + int(scy)) % 8
	}
	if attr.flipY {
		rowInTile = 7 - rowInTile
	}
	tileAddr := TileDataAddress(tileID, lcdc.UnsignedAddressing())
	rowData := FetchTileRow(f.vram, bank, tileAddr+uint16(rowInTile*2))

	for px := 0; px < 8; px++ {
		var ci byte
		if attr.flipX {
			ci = rowData.ColorIndexFlipped(px)
		} else {
			ci = rowData.ColorIndex(px)
		}
		f.bgFIFO = append(f.bgFIFO, fifoPixel{colorIndex: ci, attr: attr})
	}
	f.tileCol++
}

func (f *FIFORenderer) stepFetch(lcdc LCDC, scy byte) {
	if len(f.bgFIFO) <= 8 {
		f.fetchTile(lcdc, scy, 0, f.windowActive)
	}
}

func (f *FIFORenderer) maybeActivateWindow(lcdc LCDC, scy, wy, wx byte) {
	if f.windowActive || !lcdc.WindowEnable() {
		return
	}
	if !f.windowWYLatched && int(wy) == f.line {
		f.windowWYLatched = true
	}
	if !f.windowWYLatched {
		return
	}
	activationX := int(wx)
	if !f.cgb {
		activationX++
	}
	if f.xPos != activationX {
		return
	}
	// DMG WX=0 zero-pixel glitch: an extra white pixel is emitted when the
	// window activates at WX=0 with a nonzero fine scroll.
	if !f.cgb && wx == 0 && f.scxToDiscard != 0 {
		f.row[clampX(f.xPos)] = dmgShades[0]
		f.xPos++
	}
	f.windowActive = true
	f.windowLineCounter++
	f.tileCol = 0
	f.fetchCycle = 0
	f.phase = phaseWindowSetup
}

func clampX(x int) int {
	if x < 0 {
		return 0
	}
	if x >= FrameWidth {
		return FrameWidth - 1
	}
	return x
}

func (f *FIFORenderer) maybeStartSpriteFetch(sprites []Sprite) {
	for len(f.spriteFetchQueue) == 0 && len(f.spritesPending) > 0 {
		if f.spritesPending[0].X != f.xPos-8 {
			break
		}
		f.spriteFetchQueue = append(f.spriteFetchQueue, f.spritesPending[0])
		f.spritesPending = f.spritesPending[1:]
	}
	if len(f.spriteFetchQueue) > 0 {
		f.phase = phaseSpriteFetch
		f.fetchCycle = 0
	}
}

func (f *FIFORenderer) stepSpriteFetch(lcdc LCDC) {
	f.fetchCycle++
	if f.fetchCycle < 6 {
		return
	}
	sp := f.spriteFetchQueue[0]
	f.spriteFetchQueue = f.spriteFetchQueue[1:]

	rowInSprite := f.line - sp.Y
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
	rowData := FetchTileRow(f.vram, sp.VRAMBank, tileAddr+uint16(rowInSprite*2))

	// DMG selects OBP0/OBP1 through PaletteOBP1; emitPixel reads it back
	// as palette 1.
	palette := sp.CGBPalette
	if !f.cgb && sp.PaletteOBP1 {
		palette = 1
	}
	for len(f.spriteFIFO) < 8 {
		f.spriteFIFO = append(f.spriteFIFO, fifoPixel{})
	}
	for px := 0; px < 8; px++ {
		var ci byte
		if sp.FlipX {
			ci = rowData.ColorIndexFlipped(px)
		} else {
			ci = rowData.ColorIndex(px)
		}
		existing := f.spriteFIFO[px]
		if existing.colorIndex == 0 && ci != 0 {
			f.spriteFIFO[px] = fifoPixel{colorIndex: ci, attr: bgAttr{palette: palette, priority: sp.BehindBG}}
		}
	}

	if len(f.spriteFetchQueue) == 0 {
		f.phase = phaseRenderPixel
	} else {
		f.fetchCycle = 0
	}
}

func (f *FIFORenderer) emitPixel(pal *Palettes, lcdc LCDC) {
	if len(f.bgFIFO) == 0 {
		return
	}
	bgPx := f.bgFIFO[0]
	f.bgFIFO = f.bgFIFO[1:]

	screenX := f.xPos - 8
	if screenX >= 0 && screenX < FrameWidth {
		var color RGBA
		if f.cgb {
			color = pal.CGBBGColor(bgPx.attr.palette, bgPx.colorIndex)
		} else if lcdc.BGWindowEnable() {
			color = pal.BGColor(bgPx.colorIndex)
		} else {
			color = dmgShades[0]
		}
		f.bg[screenX] = bgPixel{colorIndex: bgPx.colorIndex, cgbAttr: bgPx.attr}

		if len(f.spriteFIFO) > 0 {
			spPx := f.spriteFIFO[0]
			f.spriteFIFO = f.spriteFIFO[1:]
			if spPx.colorIndex != 0 {
				blocked := bgPx.colorIndex != 0 && (spPx.attr.priority || (f.cgb && bgPx.attr.priority))
				if !blocked {
					if f.cgb {
						color = pal.CGBObjColor(spPx.attr.palette, spPx.colorIndex)
					} else {
						color = pal.ObjColor(spPx.colorIndex, spPx.attr.palette == 1)
					}
				}
			}
		}
		f.row[screenX] = color
	}
	f.xPos++
}

// Row returns the 160-pixel row accumulated so far this line (valid once
// Finished() is true).
func (f *FIFORenderer) Row() *[FrameWidth]RGBA { return &f.row }

// Finished reports whether this line's pixel output is complete
// (x_pos == 168, per the spec).
func (f *FIFORenderer) Finished() bool { return f.phase == phaseFinished }

// SetVisibleSprites installs the line's OAM-scanned sprite set, sorted by X
// so the fetch-trigger comparison in maybeStartSpriteFetch can consume them
// in order. Sprites with equal X keep the order they were passed in.
func (f *FIFORenderer) SetVisibleSprites(sprites []Sprite) {
	f.spritesPending = append(f.spritesPending[:0], sprites...)
	sort.SliceStable(f.spritesPending, func(i, j int) bool {
		return f.spritesPending[i].X < f.spritesPending[j].X
	})
}
