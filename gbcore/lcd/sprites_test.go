package lcd

import "testing"

// fakeOAMBus stores 40 raw sprite entries directly addressable at
// 0xFE00+i*4, matching OAMBus's contract.
type fakeOAMBus struct {
	data [160]byte
}

func (f *fakeOAMBus) ReadOAM(address uint16) byte {
	return f.data[address-0xFE00]
}

func (f *fakeOAMBus) setSprite(index int, y, x, tile, flags byte) {
	base := index * 4
	f.data[base] = y
	f.data[base+1] = x
	f.data[base+2] = tile
	f.data[base+3] = flags
}

func TestDMGSpritePriorityByXThenIndex(t *testing.T) {
	bus := &fakeOAMBus{}
	// Two overlapping sprites: OAM index 0 at X=12 (raw 20),
	// OAM index 1 at X=10 (raw 18). Lower X should win all shared pixels.
	bus.setSprite(0, 16, 20, 0, 0) // screen Y=0, screen X=12
	bus.setSprite(1, 16, 18, 0, 0) // screen Y=0, screen X=10

	oam := NewOAM(bus, false)
	sprites := oam.SpritesOnLine(0, 8)
	if len(sprites) != 2 {
		t.Fatalf("expected 2 sprites on line, got %d", len(sprites))
	}

	var sp0, sp1 *Sprite
	for i := range sprites {
		if sprites[i].OAMIndex == 0 {
			sp0 = &sprites[i]
		} else {
			sp1 = &sprites[i]
		}
	}

	// Overlap region is screen X 12..17 (sp0 span 12-19, sp1 span 10-17).
	if !sp1.HasPriorityForPixel(2) { // sp1 pixel index 2 = screen X 12
		t.Fatal("lower-X sprite (index 1) should own the overlapping pixel")
	}
	if sp0.HasPriorityForPixel(0) { // sp0 pixel index 0 = screen X 12
		t.Fatal("higher-X sprite (index 0) should not own the overlapping pixel")
	}
}

func TestCGBSpritePriorityByIndexOnly(t *testing.T) {
	bus := &fakeOAMBus{}
	// Index 0 at a HIGHER X than index 1; on CGB index still wins.
	bus.setSprite(0, 16, 26, 0, 0) // screen X=18
	bus.setSprite(1, 16, 18, 0, 0) // screen X=10

	oam := NewOAM(bus, true)
	sprites := oam.SpritesOnLine(0, 8)

	var sp0 *Sprite
	for i := range sprites {
		if sprites[i].OAMIndex == 0 {
			sp0 = &sprites[i]
		}
	}
	// sp0 spans screen X 18-25, sp1 spans 10-17: they don't actually overlap
	// with this layout, so re-check using an overlapping layout instead.
	_ = sp0

	bus2 := &fakeOAMBus{}
	bus2.setSprite(0, 16, 24, 0, 0) // screen X=16, overlaps sp1's 10-17 at 16-17
	bus2.setSprite(1, 16, 18, 0, 0) // screen X=10
	oam2 := NewOAM(bus2, true)
	s2 := oam2.SpritesOnLine(0, 8)
	var a, b *Sprite
	for i := range s2 {
		if s2[i].OAMIndex == 0 {
			a = &s2[i]
		} else {
			b = &s2[i]
		}
	}
	// Overlap at screen X 16-17: pixel index 0,1 of sprite 0; pixel index
	// 6,7 of sprite 1. Index 0 must win despite being at a higher X.
	if !a.HasPriorityForPixel(0) {
		t.Fatal("CGB: lower OAM index should win overlap regardless of X")
	}
	if b.HasPriorityForPixel(6) {
		t.Fatal("CGB: higher OAM index should not win overlap")
	}
}

func TestOAMLimitsToTenSpritesPerLine(t *testing.T) {
	bus := &fakeOAMBus{}
	for i := 0; i < 15; i++ {
		bus.setSprite(i, 16, 8+byte(i), 0, 0)
	}
	oam := NewOAM(bus, false)
	sprites := oam.SpritesOnLine(0, 8)
	if len(sprites) != 10 {
		t.Fatalf("expected hardware limit of 10 sprites, got %d", len(sprites))
	}
}

func TestAttributeMaskDiffersByDevice(t *testing.T) {
	bus := &fakeOAMBus{}
	bus.setSprite(0, 16, 8, 0, 0xFF)

	dmg := NewOAM(bus, false).SpritesOnLine(0, 8)
	if dmg[0].Flags != 0xF0 {
		t.Fatalf("DMG attribute mask = %#x, want 0xF0", dmg[0].Flags)
	}

	cgb := NewOAM(bus, true).SpritesOnLine(0, 8)
	if cgb[0].Flags != 0xFF {
		t.Fatalf("CGB attribute mask = %#x, want 0xFF", cgb[0].Flags)
	}
}
