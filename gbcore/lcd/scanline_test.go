package lcd

import "testing"

func TestScanlineTrackerResolvesLineAndClks(t *testing.T) {
	s := NewScanlineTracker()
	s.LCDOn(1000, false)

	line, clks := s.Resolve(1000)
	if line != 0 || clks != 0 {
		t.Fatalf("at frame start: got (%d,%d), want (0,0)", line, clks)
	}

	line, clks = s.Resolve(1000 + 456*5 + 10)
	if line != 5 || clks != 10 {
		t.Fatalf("got (%d,%d), want (5,10)", line, clks)
	}
}

func TestScanlineTrackerCGBFirstLineShortened(t *testing.T) {
	s := NewScanlineTracker()
	s.LCDOn(1000, true)
	if got := s.FrameStart(); got != 996 {
		t.Fatalf("CGB frame start = %d, want 996 (4 cycles short)", got)
	}
}

func TestScanlineTrackerOffReturnsZero(t *testing.T) {
	s := NewScanlineTracker()
	line, clks := s.Resolve(12345)
	if line != 0 || clks != 0 {
		t.Fatalf("off tracker should resolve to (0,0), got (%d,%d)", line, clks)
	}
	if s.On() {
		t.Fatal("tracker should report off before LCDOn")
	}
}

func TestScanlineTrackerFastForwardFrames(t *testing.T) {
	s := NewScanlineTracker()
	s.LCDOn(0, false)
	s.FastForwardFrames(cyclesPerFrame*3 + 100)

	if got := s.FrameStart(); got != cyclesPerFrame*3 {
		t.Fatalf("frame start after fast-forward = %d, want %d", got, cyclesPerFrame*3)
	}
	if s.FirstFrameAfterPowerOn() {
		t.Fatal("first-frame flag should clear once a frame boundary is crossed")
	}
}

func TestScanlineTrackerSetBackClock(t *testing.T) {
	s := NewScanlineTracker()
	s.LCDOn(1000, false)
	s.SetBackClock(900)
	if got := s.FrameStart(); got != 100 {
		t.Fatalf("frame start after back-clock = %d, want 100", got)
	}
}
