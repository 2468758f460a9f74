package lcd

import (
	"sort"

	"github.com/dmgcore/gbcore/bit"
)

// OAMBus is the read-only view of Object Attribute Memory (0xFE00-0xFE9F,
// 40 entries of 4 bytes: Y, X, tile, attributes) the renderer is handed at
// construction. Storage itself is owned externally; the LCD only reports
// whether OAM is currently accessible via OAMAccessible.
type OAMBus interface {
	ReadOAM(address uint16) byte
}

// Sprite is one OAM entry resolved for a particular scanline.
type Sprite struct {
	Y, X      int
	TileIndex byte
	Flags     byte
	OAMIndex  int
	Height    int

	PaletteOBP1  bool // DMG: OBP0 vs OBP1
	CGBPalette   int  // CGB: OBJ palette index 0-7
	VRAMBank     int  // CGB: tile data bank
	FlipX, FlipY bool
	BehindBG     bool

	// PixelMask marks, per pixel (bit 7 = leftmost of the sprite's 8), which
	// pixels this sprite has won priority for after DMG X/index or CGB
	// index-only resolution.
	PixelMask byte
}

func (s *Sprite) parseFlags(cgb bool) {
	if cgb {
		s.CGBPalette = int(s.Flags & 0x07)
		s.VRAMBank = int(bit.GetBitValue(3, s.Flags))
	} else {
		if bit.IsSet(4, s.Flags) {
			s.PaletteOBP1 = true
		}
	}
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
}

// HasPriorityForPixel reports whether this sprite owns pixel x (0-7,
// 0 = leftmost) of its 8-pixel span after priority resolution.
func (s *Sprite) HasPriorityForPixel(x int) bool {
	if x < 0 || x > 7 {
		return false
	}
	return s.PixelMask&(1<<(7-x)) != 0
}

// priorityBuffer resolves per-pixel sprite ownership across a scanline's
// sprite set. On DMG, lower X wins, ties broken by lower OAM index; on CGB,
// lower OAM index always wins regardless of X (OAM order is drawing order).
type priorityBuffer struct {
	owner [FrameWidth]int
	x     [FrameWidth]int
}

func (p *priorityBuffer) clear() {
	for i := range p.owner {
		p.owner[i] = -1
		p.x[i] = 0xFF
	}
}

func (p *priorityBuffer) tryClaim(pixelX, spriteIndex, spriteX int, cgb bool) {
	if pixelX < 0 || pixelX >= FrameWidth {
		return
	}
	current := p.owner[pixelX]
	if current == -1 {
		p.owner[pixelX], p.x[pixelX] = spriteIndex, spriteX
		return
	}
	if cgb {
		if spriteIndex < current {
			p.owner[pixelX], p.x[pixelX] = spriteIndex, spriteX
		}
		return
	}
	if spriteX < p.x[pixelX] || (spriteX == p.x[pixelX] && spriteIndex < current) {
		p.owner[pixelX], p.x[pixelX] = spriteIndex, spriteX
	}
}

// OAM scans sprite attribute memory for each scanline's visible sprite set.
type OAM struct {
	bus OAMBus
	cgb bool

	buffer   priorityBuffer
	scanline [10]Sprite
}

// NewOAM creates an OAM scanner over bus. cgb selects CGB attribute parsing
// and priority order.
func NewOAM(bus OAMBus, cgb bool) *OAM {
	return &OAM{bus: bus, cgb: cgb}
}

// attributeMask is the set of Flags bits that are meaningful: 0xF0 on DMG
// (palette + flips + priority only), 0xFF on CGB (adds palette index and
// VRAM bank).
func (o *OAM) attributeMask() byte {
	if o.cgb {
		return 0xFF
	}
	return 0xF0
}

// SpritesOnLine returns up to 10 sprites overlapping line, with PixelMask
// already resolved per the active priority rule. On DMG the result is
// sorted by (X ascending, OAM index ascending) — the same order the FIFO
// renderer's sprite fetcher expects when matching its current column
// against the pending set. On CGB, OAM index order already is drawing
// order, so no sort is needed.
func (o *OAM) SpritesOnLine(line int, spriteHeight int) []Sprite {
	sprites := o.scanline[:0]
	o.buffer.clear()

	for i := 0; i < 40 && len(sprites) < 10; i++ {
		base := uint16(0xFE00 + i*4)
		rawY := o.bus.ReadOAM(base)
		y := int(rawY) - 16
		if !(y <= line && line < y+spriteHeight) {
			continue
		}
		rawX := o.bus.ReadOAM(base + 1)
		sp := Sprite{
			Y:         y,
			X:         int(rawX) - 8,
			TileIndex: o.bus.ReadOAM(base + 2),
			Flags:     o.bus.ReadOAM(base+3) & o.attributeMask(),
			OAMIndex:  i,
			Height:    spriteHeight,
		}
		sp.parseFlags(o.cgb)
		sprites = append(sprites, sp)

		for px := 0; px < 8; px++ {
			o.buffer.tryClaim(sp.X+px, sp.OAMIndex, sp.X, o.cgb)
		}
	}

	for i := range sprites {
		var mask byte
		for px := 0; px < 8; px++ {
			bx := sprites[i].X + px
			if bx >= 0 && bx < FrameWidth && o.buffer.owner[bx] == sprites[i].OAMIndex {
				mask |= 1 << (7 - px)
			}
		}
		sprites[i].PixelMask = mask
	}

	if !o.cgb {
		sort.Slice(sprites, func(i, j int) bool {
			if sprites[i].X != sprites[j].X {
				return sprites[i].X < sprites[j].X
			}
			return sprites[i].OAMIndex < sprites[j].OAMIndex
		})
	}

	return sprites
}
