package lcd

import (
	"testing"

	"github.com/dmgcore/gbcore/clock"
	"github.com/dmgcore/gbcore/interrupt"
)

type blankVRAM struct{}

func (blankVRAM) ReadVRAM(bank int, address uint16) byte { return 0 }

type blankOAM struct{}

func (blankOAM) ReadOAM(address uint16) byte { return 0xFF }

func newTestLCD() (*LCD, *clock.Scheduler) {
	sched := clock.NewScheduler()
	tr := interrupt.New()
	l := New(blankVRAM{}, blankOAM{}, sched, tr, sched.Clock, false, CorrectionRaw8x)
	return l, sched
}

func TestWriteLCDCTogglesTracker(t *testing.T) {
	l, sched := newTestLCD()

	l.WriteLCDC(0x91) // LCD on, BG on
	if !sched.Queue.IsScheduled(clock.EventLCDVBlank) {
		t.Fatal("turning the LCD on should schedule a v-blank prediction")
	}

	l.WriteLCDC(0x11) // LCD off
	if sched.Queue.IsScheduled(clock.EventLCDVBlank) {
		t.Fatal("turning the LCD off should cancel the scheduled LCD events")
	}
}

func TestRegisterRoundTrips(t *testing.T) {
	l, _ := newTestLCD()

	l.WriteSCY(0x42)
	if got := l.ReadSCY(); got != 0x42 {
		t.Fatalf("SCY round-trip: got %#x", got)
	}
	l.WriteSCX(0x17)
	if got := l.ReadSCX(); got != 0x17 {
		t.Fatalf("SCX round-trip: got %#x", got)
	}
	l.WriteWY(0x50)
	if got := l.ReadWY(); got != 0x50 {
		t.Fatalf("WY round-trip: got %#x", got)
	}
	l.WriteWX(0x07)
	if got := l.ReadWX(); got != 0x07 {
		t.Fatalf("WX round-trip: got %#x", got)
	}
	l.WriteBGP(0xE4)
	if got := l.ReadBGP(); got != 0xE4 {
		t.Fatalf("BGP round-trip: got %#x", got)
	}
}

func TestReadLYTracksFrameProgress(t *testing.T) {
	l, sched := newTestLCD()
	l.WriteLCDC(0x91)

	sched.Clock.Advance(cyclesPerLine * 5)
	if got := l.ReadLY(); got != 5 {
		t.Fatalf("expected LY=5 after 5 lines, got %d", got)
	}
}

func TestUpdateStateCompositesLinesAndSwapsOnFrameWrap(t *testing.T) {
	l, sched := newTestLCD()
	l.WriteLCDC(0x91)

	sched.Clock.Advance(cyclesPerLine * linesPerFrame)
	l.UpdateState(sched.Clock.Current())

	if l.renderedUpToLine != 0 {
		t.Fatalf("expected compositing to reset at frame wrap, got renderedUpToLine=%d", l.renderedUpToLine)
	}
}

func TestNotifyMidLineWriteForcesFIFOPath(t *testing.T) {
	l, sched := newTestLCD()
	l.WriteLCDC(0x91)
	sched.Clock.Advance(80) // land inside mode 3 of line 0

	l.NotifyMidLineWrite()
	if !l.dirtyLine {
		t.Fatal("a mid-line write should mark the current line dirty")
	}

	sched.Clock.Advance(cyclesPerLine)
	l.UpdateState(sched.Clock.Current())
	if l.dirtyLine {
		t.Fatal("dirtyLine should clear once the line has been composited")
	}
}

func TestHandleEventFiresThroughToInterruptTrigger(t *testing.T) {
	sched := clock.NewScheduler()
	tr := interrupt.New()
	l := New(blankVRAM{}, blankOAM{}, sched, tr, sched.Clock, false, CorrectionRaw8x)
	l.WriteLCDC(0x91)

	sched.Clock.Advance(144 * cyclesPerLine)
	l.HandleEvent(clock.EventLCDVBlank, sched.Clock.Current())

	if !tr.Pending(interrupt.VBlank) {
		t.Fatal("EventLCDVBlank should request the v-blank interrupt")
	}
}

func TestOAMAndVRAMAccessibilityFollowMode(t *testing.T) {
	l, sched := newTestLCD()
	l.WriteLCDC(0x91)

	if l.OAMAccessible() {
		t.Fatal("OAM should be inaccessible during mode 2 at the start of a line")
	}
	if l.VRAMAccessible() == false {
		t.Fatal("VRAM should still be accessible during mode 2")
	}

	sched.Clock.Advance(144 * cyclesPerLine) // v-blank
	if !l.OAMAccessible() || !l.VRAMAccessible() {
		t.Fatal("both OAM and VRAM should be accessible during v-blank")
	}
}
