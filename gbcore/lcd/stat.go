package lcd

import (
	"github.com/dmgcore/gbcore/bit"
	"github.com/dmgcore/gbcore/clock"
	"github.com/dmgcore/gbcore/interrupt"
)

// statSource identifies which of the four independently-predicted STAT
// interrupt conditions a scheduled clock.EventKind belongs to.
type statSource int

const (
	sourceVBlank statSource = iota
	sourceLYC
	sourceMode0
	sourceMode2
	sourceCount
)

var sourceKind = [sourceCount]clock.EventKind{
	sourceVBlank: clock.EventLCDVBlank,
	sourceLYC:    clock.EventLCDLYC,
	sourceMode0:  clock.EventLCDMode0,
	sourceMode2:  clock.EventLCDMode2,
}

// StatScheduler independently predicts the next clock of each of the four
// STAT interrupt sources and keeps only the earliest one live in the shared
// event queue, recomputing on every register write that could move it.
type StatScheduler struct {
	sched   *clock.Scheduler
	trigger *interrupt.Trigger
	tracker *ScanlineTracker

	stat byte
	lyc  byte
	scx  byte
	lcdc byte
}

// NewStatScheduler creates a scheduler driving trigger off of tracker.
func NewStatScheduler(sched *clock.Scheduler, trigger *interrupt.Trigger, tracker *ScanlineTracker) *StatScheduler {
	return &StatScheduler{sched: sched, trigger: trigger, tracker: tracker}
}

func (s *StatScheduler) lycEnabled() bool  { return bit.IsSet(6, s.stat) }
func (s *StatScheduler) mode2Enabled() bool { return bit.IsSet(5, s.stat) }
func (s *StatScheduler) mode1Enabled() bool { return bit.IsSet(4, s.stat) }
func (s *StatScheduler) mode0Enabled() bool { return bit.IsSet(3, s.stat) }

// WriteSTAT / WriteSCX / WriteLYC / WriteLCDC apply CPU register writes and
// recompute the schedule.
func (s *StatScheduler) WriteSTAT(v byte, now int64) { s.stat = v & 0x78; s.Recompute(now) }
func (s *StatScheduler) WriteSCX(v byte, now int64)  { s.scx = v; s.Recompute(now) }
func (s *StatScheduler) WriteLYC(v byte, now int64)  { s.lyc = v; s.Recompute(now) }
func (s *StatScheduler) WriteLCDC(v byte, now int64) { s.lcdc = v; s.Recompute(now) }

func (s *StatScheduler) ReadSTAT() byte { return s.stat }

// predict returns the next due clock for source, or clock.Undefined if it
// cannot currently fire (disabled, or LCD off).
func (s *StatScheduler) predict(source statSource, now int64) int64 {
	if !s.tracker.On() {
		return clock.Undefined
	}
	frameStart := s.tracker.FrameStart()

	switch source {
	case sourceVBlank:
		return s.nextMultipleFrom(frameStart+144*cyclesPerLine, now)
	case sourceLYC:
		if !s.lycEnabled() || s.lyc >= linesPerFrame {
			return clock.Undefined
		}
		return s.nextMultipleFrom(frameStart+int64(s.lyc)*cyclesPerLine, now)
	case sourceMode2:
		if !s.mode2Enabled() {
			return clock.Undefined
		}
		// Fires 1 T4 before each non-vblank scanline.
		return s.nextMode2(frameStart, now)
	case sourceMode0:
		if !s.mode0Enabled() {
			return clock.Undefined
		}
		return s.nextMode0(frameStart, now)
	}
	return clock.Undefined
}

// nextMultipleFrom finds the smallest clock >= now congruent to base modulo
// cyclesPerFrame.
func (s *StatScheduler) nextMultipleFrom(base, now int64) int64 {
	if base >= now {
		return base
	}
	delta := now - base
	frames := (delta + cyclesPerFrame - 1) / cyclesPerFrame
	return base + frames*cyclesPerFrame
}

// nextMode2 picks the candidate line within the current frame period, then
// rolls forward by whole frames as needed. Mode 2 fires 1 T4 before every
// non-vblank scanline (lines 1..143; line 0 of the next frame is covered by
// wrapping frameStart forward).
func (s *StatScheduler) nextMode2(frameStart, now int64) int64 {
	delta := now - frameStart
	if delta < 0 {
		delta = 0
	}
	frameStart += (delta / cyclesPerFrame) * cyclesPerFrame
	delta %= cyclesPerFrame
	line := int(delta/cyclesPerLine) + 1
	if line >= FrameHeight {
		// The v-blank lines have no mode 2; the next one is line 0 of the
		// following frame, i.e. line linesPerFrame counted from frameStart.
		line = linesPerFrame
	}
	cand := frameStart + int64(line)*cyclesPerLine - 1
	if cand < now {
		frameStart += cyclesPerFrame
		cand = frameStart + cyclesPerLine - 1
	}
	return cand
}

func (s *StatScheduler) nextMode0(frameStart, now int64) int64 {
	delta := now - frameStart
	if delta < 0 {
		delta = 0
	}
	line := int(delta / cyclesPerLine)
	offset := int64(80 + 172 + int(s.scx&7))
	if line == 0 && s.tracker.FirstFrameAfterPowerOn() {
		offset -= 2
	}
	for {
		if line >= FrameHeight { // mode 0 does not occur on the v-blank lines
			line = 0
			frameStart += cyclesPerFrame
			continue
		}
		cand := frameStart + int64(line)*cyclesPerLine + offset
		if cand >= now {
			return cand
		}
		line++
	}
}

// Recompute re-predicts all four sources and schedules only the earliest.
func (s *StatScheduler) Recompute(now int64) {
	best := statSource(-1)
	var bestClock int64 = clock.Undefined
	for src := statSource(0); src < sourceCount; src++ {
		s.sched.Remove(sourceKind[src])
	}
	for src := statSource(0); src < sourceCount; src++ {
		c := s.predict(src, now)
		if c == clock.Undefined {
			continue
		}
		if bestClock == clock.Undefined || c < bestClock {
			bestClock, best = c, src
		}
	}
	if best >= 0 {
		s.sched.ScheduleAbsolute(sourceKind[best], bestClock)
	}
}

// Fire handles whichever STAT event kind the scheduler polled, raises the
// interrupt, and reschedules every source for the clock just past now (the
// fired source's own next occurrence, plus any others that may now be
// earliest).
func (s *StatScheduler) Fire(kind clock.EventKind, now int64) {
	switch kind {
	case clock.EventLCDVBlank:
		s.trigger.Request(interrupt.VBlank, now)
		if s.mode1Enabled() {
			s.trigger.Request(interrupt.LCDStat, now)
		}
	case clock.EventLCDLYC, clock.EventLCDMode0, clock.EventLCDMode2:
		s.trigger.Request(interrupt.LCDStat, now)
	}
	s.Recompute(now + 1)
}
