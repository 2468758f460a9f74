package lcd

import (
	"testing"

	"github.com/dmgcore/gbcore/clock"
	"github.com/dmgcore/gbcore/interrupt"
)

func TestStatSchedulerPredictsVBlank(t *testing.T) {
	sched := clock.NewScheduler()
	tr := interrupt.New()
	tracker := NewScanlineTracker()
	tracker.LCDOn(0, false)

	s := NewStatScheduler(sched, tr, tracker)
	s.Recompute(0)

	kind, cycle, ok := sched.Queue.Poll(144 * cyclesPerLine)
	if !ok || kind != clock.EventLCDVBlank || cycle != 144*cyclesPerLine {
		t.Fatalf("expected EventLCDVBlank at %d, got (%v,%d,%v)", 144*cyclesPerLine, kind, cycle, ok)
	}
}

func TestStatSchedulerFiresVBlankInterrupt(t *testing.T) {
	sched := clock.NewScheduler()
	tr := interrupt.New()
	tracker := NewScanlineTracker()
	tracker.LCDOn(0, false)

	s := NewStatScheduler(sched, tr, tracker)
	s.Recompute(0)

	s.Fire(clock.EventLCDVBlank, 144*cyclesPerLine)
	if !tr.Pending(interrupt.VBlank) {
		t.Fatal("v-blank interrupt should be requested when the event fires")
	}
}

func TestStatSchedulerLYCDisabledWhenBitClear(t *testing.T) {
	sched := clock.NewScheduler()
	tr := interrupt.New()
	tracker := NewScanlineTracker()
	tracker.LCDOn(0, false)

	s := NewStatScheduler(sched, tr, tracker)
	s.WriteLYC(10, 0)
	s.WriteSTAT(0x00, 0) // STAT.6 (LYC enable) clear

	if sched.Queue.IsScheduled(clock.EventLCDLYC) {
		t.Fatal("LYC source must not be scheduled while STAT.6 is clear")
	}
}
