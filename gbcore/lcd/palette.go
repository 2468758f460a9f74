package lcd

import "github.com/lucasb-eyer/go-colorful"

// ColorCorrection selects how CGB RGB555 palette entries are converted to
// the 8-bit-per-channel output the framebuffer stores.
type ColorCorrection int

const (
	// CorrectionRaw8x multiplies each 5-bit channel by 8 (a left-shift),
	// the "no correction" mode real hardware effectively approximates when
	// displayed on a naively-driven LCD.
	CorrectionRaw8x ColorCorrection = iota
	// CorrectionGambatte reproduces the Gambatte emulator's widely-adopted
	// formula, which blends channels to approximate the GBC screen's actual
	// color response rather than a flat multiply.
	CorrectionGambatte
	// CorrectionPerceptual applies a perceptual (gamma-aware) curve via a
	// precomputed lookup table over all 32768 RGB555 values.
	CorrectionPerceptual
)

// perceptualLUT is built lazily (it is expensive: 32768 colorful.Color
// conversions) and shared across every CGB palette instance, since the
// mapping does not depend on any per-instance state.
var perceptualLUT []RGBA

func ensurePerceptualLUT() {
	if perceptualLUT != nil {
		return
	}
	lut := make([]RGBA, 1<<15)
	for v := range lut {
		r5 := byte(v & 0x1F)
		g5 := byte((v >> 5) & 0x1F)
		b5 := byte((v >> 10) & 0x1F)
		lut[v] = perceptualCorrect(r5, g5, b5)
	}
	perceptualLUT = lut
}

// perceptualCorrect converts one RGB555 triple through go-colorful's linear
// RGB space, applying a gamma curve so mid-tones read closer to how the GBC
// LCD actually renders them instead of a flat linear scale.
func perceptualCorrect(r5, g5, b5 byte) RGBA {
	const maxC = 31.0
	lr := float64(r5) / maxC
	lg := float64(g5) / maxC
	lb := float64(b5) / maxC
	c := colorful.LinearRgb(lr, lg, lb)
	r, g, b := c.Clamped().RGB255()
	return RGBA{R: r, G: g, B: b, A: 0xFF}
}

// gambatteCorrect reproduces Gambatte's palette blend: red and blue are a
// weighted mix of all three input channels and green a mix of green and
// blue, rather than a pure per-channel scale (each channel's weights sum to
// 16, so a full-scale white maps to 248), which is what gives GBC output its characteristic
// slightly-desaturated look compared to a naive raw8x conversion.
func gambatteCorrect(r5, g5, b5 byte) RGBA {
	r := int(r5)
	g := int(g5)
	b := int(b5)
	outR := (r*13 + g*2 + b*1) / 2
	outG := (g*3 + b) * 2
	outB := (r*3 + g*2 + b*11) / 2
	clamp := func(v int) byte {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return byte(v)
	}
	return RGBA{R: clamp(outR), G: clamp(outG), B: clamp(outB), A: 0xFF}
}

func raw8xCorrect(r5, g5, b5 byte) RGBA {
	return RGBA{R: r5 * 8, G: g5 * 8, B: b5 * 8, A: 0xFF}
}

// dmgShades are the 4 hardware grey levels a DMG color index maps to in the
// absence of any boot-compat palette substitution.
var dmgShades = [4]RGBA{
	{0xFF, 0xFF, 0xFF, 0xFF},
	{0x98, 0x98, 0x98, 0xFF},
	{0x4C, 0x4C, 0x4C, 0xFF},
	{0x00, 0x00, 0x00, 0xFF},
}

// BootPalette is one DMG boot-ROM compatibility palette: 3 four-entry
// palettes (BG, OBJ0, OBJ1), selected per ROM header publisher+title hash
// when running a DMG cartridge in CGB boot-compatibility mode.
type BootPalette struct {
	BG, OBJ0, OBJ1 [4]RGBA
}

// GreyscaleBootPalette is the degenerate identity palette (also used as the
// "test mode" hardware-palette selection).
var GreyscaleBootPalette = BootPalette{BG: dmgShades, OBJ0: dmgShades, OBJ1: dmgShades}

// Palettes owns every CPU-visible palette register for both DMG and CGB
// modes.
type Palettes struct {
	cgb        bool
	correction ColorCorrection

	// DMG
	bgp, obp0, obp1 byte
	previousBGP     byte
	bootCompat      *BootPalette // nil unless running DMG-on-CGB boot compat

	// CGB
	bcpsIndex, ocpsIndex byte
	bcpsAutoInc          bool
	ocpsAutoInc          bool
	bgRAM, objRAM        [64]byte
}

// NewPalettes creates a palette bank for the given device. correction only
// matters when cgb is true.
func NewPalettes(cgb bool, correction ColorCorrection) *Palettes {
	if correction == CorrectionPerceptual {
		ensurePerceptualLUT()
	}
	return &Palettes{cgb: cgb, correction: correction}
}

// SetBootCompatPalette installs a DMG boot-compatibility palette, used when
// a DMG ROM is run on CGB hardware; pass nil to use plain greyscale.
func (p *Palettes) SetBootCompatPalette(bp *BootPalette) { p.bootCompat = bp }

// WriteBGP / WriteOBP0 / WriteOBP1 apply CPU writes to the DMG palette
// registers, remembering the previous BGP value for read_bgp_glitch.
func (p *Palettes) WriteBGP(v byte) {
	p.previousBGP = p.bgp
	p.bgp = v
}
func (p *Palettes) WriteOBP0(v byte) { p.obp0 = v }
func (p *Palettes) WriteOBP1(v byte) { p.obp1 = v }

func (p *Palettes) ReadBGP() byte  { return p.bgp }
func (p *Palettes) ReadOBP0() byte { return p.obp0 }
func (p *Palettes) ReadOBP1() byte { return p.obp1 }

// dmgLookup maps a 2-bit color index through an 8-bit packed palette
// register to a shade index 0-3.
func dmgLookup(reg byte, colorIndex byte) byte {
	return (reg >> (colorIndex * 2)) & 0x3
}

func (p *Palettes) shadeOf(shadeIndex byte) RGBA {
	if p.bootCompat != nil {
		return p.bootCompat.BG[shadeIndex]
	}
	return dmgShades[shadeIndex]
}

// BGColor resolves a background color index (0-3) through BGP.
func (p *Palettes) BGColor(colorIndex byte) RGBA {
	return p.shadeOf(dmgLookup(p.bgp, colorIndex))
}

// ReadBGPGlitch resolves colorIndex through (bgp | previous_bgp) instead of
// bgp alone, reproducing the documented mid-scanline BGP-write artifact.
func (p *Palettes) ReadBGPGlitch(colorIndex byte) RGBA {
	return p.shadeOf(dmgLookup(p.bgp|p.previousBGP, colorIndex))
}

// ObjColor resolves a sprite color index through OBP0 or OBP1.
func (p *Palettes) ObjColor(colorIndex byte, useOBP1 bool) RGBA {
	reg := p.obp0
	if useOBP1 {
		reg = p.obp1
	}
	var shade RGBA
	if p.bootCompat != nil {
		pal := p.bootCompat.OBJ0
		if useOBP1 {
			pal = p.bootCompat.OBJ1
		}
		shade = pal[dmgLookup(reg, colorIndex)]
	} else {
		shade = dmgShades[dmgLookup(reg, colorIndex)]
	}
	return shade
}

// WriteBCPS / WriteOCPS set the CGB palette-RAM address pointer; bit 7
// selects auto-increment on each BCPD/OCPD write.
func (p *Palettes) WriteBCPS(v byte) {
	p.bcpsIndex = v & 0x3F
	p.bcpsAutoInc = v&0x80 != 0
}
func (p *Palettes) WriteOCPS(v byte) {
	p.ocpsIndex = v & 0x3F
	p.ocpsAutoInc = v&0x80 != 0
}
func (p *Palettes) ReadBCPS() byte {
	v := p.bcpsIndex
	if p.bcpsAutoInc {
		v |= 0x80
	}
	return v | 0x40
}
func (p *Palettes) ReadOCPS() byte {
	v := p.ocpsIndex
	if p.ocpsAutoInc {
		v |= 0x80
	}
	return v | 0x40
}

func (p *Palettes) WriteBCPD(v byte) {
	p.bgRAM[p.bcpsIndex] = v
	if p.bcpsAutoInc {
		p.bcpsIndex = (p.bcpsIndex + 1) & 0x3F
	}
}
func (p *Palettes) ReadBCPD() byte { return p.bgRAM[p.bcpsIndex] }

func (p *Palettes) WriteOCPD(v byte) {
	p.objRAM[p.ocpsIndex] = v
	if p.ocpsAutoInc {
		p.ocpsIndex = (p.ocpsIndex + 1) & 0x3F
	}
}
func (p *Palettes) ReadOCPD() byte { return p.objRAM[p.ocpsIndex] }

// cgbColor decodes the little-endian RGB555 entry at ram[palette*8 + color*2]
// and applies the active color-correction mode.
func (p *Palettes) cgbColor(ram *[64]byte, palette int, color byte) RGBA {
	off := palette*8 + int(color)*2
	lo, hi := ram[off], ram[off+1]
	word := uint16(lo) | uint16(hi)<<8
	r5 := byte(word & 0x1F)
	g5 := byte((word >> 5) & 0x1F)
	b5 := byte((word >> 10) & 0x1F)

	switch p.correction {
	case CorrectionGambatte:
		return gambatteCorrect(r5, g5, b5)
	case CorrectionPerceptual:
		return perceptualLUT[word&0x7FFF]
	default:
		return raw8xCorrect(r5, g5, b5)
	}
}

// CGBBGColor resolves a background color index through CGB palette index
// bgPaletteIndex (0-7, from the tile's attribute byte).
func (p *Palettes) CGBBGColor(bgPaletteIndex int, colorIndex byte) RGBA {
	return p.cgbColor(&p.bgRAM, bgPaletteIndex, colorIndex)
}

// CGBObjColor resolves a sprite color index through CGB OBJ palette index
// objPaletteIndex (0-7).
func (p *Palettes) CGBObjColor(objPaletteIndex int, colorIndex byte) RGBA {
	return p.cgbColor(&p.objRAM, objPaletteIndex, colorIndex)
}
