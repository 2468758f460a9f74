package timer

import (
	"testing"

	"github.com/dmgcore/gbcore/clock"
	"github.com/dmgcore/gbcore/interrupt"
)

type fakeReader struct{ now int64 }

func (f *fakeReader) Current() int64   { return f.now }
func (f *fakeReader) DoubleSpeed() bool { return false }

func newHarness() (*Timer, *fakeReader, *clock.Scheduler, *interrupt.Trigger) {
	r := &fakeReader{}
	s := clock.NewScheduler()
	tr := interrupt.New()
	tm := New(r, s, tr, 0)
	return tm, r, s, tr
}

// runTo advances the fake clock to target, dispatching any timer events due
// along the way, mirroring what the core's event-scheduler glue would do.
func runTo(tm *Timer, r *fakeReader, s *clock.Scheduler, target int64) {
	for {
		kind, cycle, ok := s.Queue.Poll(target)
		if !ok {
			break
		}
		r.now = cycle
		switch kind {
		case clock.EventTimerOverflow:
			tm.HandleOverflow(cycle)
		case clock.EventTimerTMAReload:
			tm.HandleReload(cycle)
		}
	}
	r.now = target
}

func TestTIMAIncrementsOnSelectedBitFallingEdge(t *testing.T) {
	tm, r, s, _ := newHarness()
	tm.WriteTAC(0, 0x05) // enabled, bit 3 selected: period 16

	runTo(tm, r, s, 16)
	if got := tm.ReadTIMA(16); got != 1 {
		t.Fatalf("TIMA after one period = %d, want 1", got)
	}

	runTo(tm, r, s, 160)
	if got := tm.ReadTIMA(160); got != 10 {
		t.Fatalf("TIMA after ten periods = %d, want 10", got)
	}
}

func TestTIMAOverflowReloadsTMAAfterFourCyclesAndRequestsInterrupt(t *testing.T) {
	tm, r, s, tr := newHarness()
	tm.WriteTAC(0, 0x05) // period 16
	tm.WriteTMA(0x42)
	tm.WriteTIMA(0, 0xFF)

	// The next falling edge (at cycle 16) overflows TIMA to 0 and starts the
	// 4-cycle reload window.
	runTo(tm, r, s, 16)
	if got := tm.ReadTIMA(16); got != 0 {
		t.Fatalf("TIMA immediately after overflow = %d, want 0", got)
	}
	if tr.Pending(interrupt.Timer) {
		t.Fatal("timer interrupt must not fire before the reload window elapses")
	}

	runTo(tm, r, s, 20)
	if got := tm.ReadTIMA(20); got != 0x42 {
		t.Fatalf("TIMA after reload = %#x, want 0x42", got)
	}
	if !tr.Pending(interrupt.Timer) {
		t.Fatal("timer interrupt should be pending after reload")
	}
}

func TestTIMAWriteDuringReloadWindowCancelsReload(t *testing.T) {
	tm, r, s, tr := newHarness()
	tm.WriteTAC(0, 0x05)
	tm.WriteTMA(0x42)
	tm.WriteTIMA(0, 0xFF)

	runTo(tm, r, s, 16) // overflow fires, reload scheduled for cycle 20
	tm.WriteTIMA(18, 0x99)

	runTo(tm, r, s, 30)
	if got := tm.ReadTIMA(30); got == 0x42 {
		t.Fatal("a write inside the reload window should cancel the TMA reload")
	}
	if tr.Pending(interrupt.Timer) {
		t.Fatal("a cancelled reload must not request the timer interrupt")
	}
}

func TestDIVWriteResetsCounterAndCanSpuriouslyIncrementTIMA(t *testing.T) {
	tm, r, s, _ := newHarness()
	tm.WriteTAC(0, 0x05) // bit 3 selected

	// Advance to a clock where bit 3 of the counter is set (8 <= n%16 < 16).
	runTo(tm, r, s, 8)
	before := tm.ReadTIMA(8)

	tm.WriteDIV(8)
	after := tm.ReadTIMA(8)

	if after != before+1 {
		t.Fatalf("DIV write glitch: TIMA = %d, want %d", after, before+1)
	}
	if got := tm.ReadDIV(8); got != 0 {
		t.Fatalf("DIV after write = %d, want 0", got)
	}
}

func TestTimerDisabledNeverIncrementsTIMA(t *testing.T) {
	tm, r, s, _ := newHarness()
	tm.WriteTAC(0, 0x00) // disabled

	runTo(tm, r, s, 100000)
	if got := tm.ReadTIMA(100000); got != 0 {
		t.Fatalf("disabled timer TIMA = %d, want 0", got)
	}
}

func TestSetBackClockPreservesProjectedValues(t *testing.T) {
	tm, r, s, _ := newHarness()
	tm.WriteTAC(0, 0x05)
	runTo(tm, r, s, 40)
	before := tm.ReadTIMA(40)
	beforeDIV := tm.ReadDIV(40)

	tm.SetBackClock(30)
	r.now = 10

	if got := tm.ReadTIMA(10); got != before {
		t.Fatalf("TIMA after back-clock = %d, want %d", got, before)
	}
	if got := tm.ReadDIV(10); got != beforeDIV {
		t.Fatalf("DIV after back-clock = %d, want %d", got, beforeDIV)
	}
}
