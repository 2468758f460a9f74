package lcd

// FrameBuffer dimensions match the DMG/CGB LCD panel exactly.
const (
	FrameWidth  = 160
	FrameHeight = 144
	frameSize   = FrameWidth * FrameHeight
)

// RGBA is a single 8-bit-per-channel pixel with alpha always 0xFF.
type RGBA struct {
	R, G, B, A byte
}

// FrameBuffer holds one complete 160x144 rendered frame.
type FrameBuffer struct {
	pixels [frameSize]RGBA
}

// Set writes the pixel at (x, y).
func (f *FrameBuffer) Set(x, y int, c RGBA) {
	f.pixels[y*FrameWidth+x] = c
}

// At returns the pixel at (x, y).
func (f *FrameBuffer) At(x, y int) RGBA {
	return f.pixels[y*FrameWidth+x]
}

// Slice exposes the backing array as a flat RGBA slice, row-major.
func (f *FrameBuffer) Slice() []RGBA {
	return f.pixels[:]
}

// DoubleBuffer holds the two back-to-back frames the LCD renders into,
// swapped atomically at the end of each frame so a reader of Front() never
// observes a partially rendered frame.
type DoubleBuffer struct {
	front, back *FrameBuffer
}

// NewDoubleBuffer creates a double buffer with both frames cleared to
// DMG color index 0 (white).
func NewDoubleBuffer() *DoubleBuffer {
	d := &DoubleBuffer{front: &FrameBuffer{}, back: &FrameBuffer{}}
	for i := range d.front.pixels {
		d.front.pixels[i] = dmgShades[0]
		d.back.pixels[i] = dmgShades[0]
	}
	return d
}

// Front returns the last completed frame.
func (d *DoubleBuffer) Front() *FrameBuffer { return d.front }

// Back returns the frame currently being rendered into.
func (d *DoubleBuffer) Back() *FrameBuffer { return d.back }

// Swap exchanges front and back, called once per completed frame (when the
// LCD's compositing reaches the start of the next frame).
func (d *DoubleBuffer) Swap() {
	d.front, d.back = d.back, d.front
}
