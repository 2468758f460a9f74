// Package timer implements the DIV/TIMA/TMA/TAC divider and counter exactly
// as the hardware schedules it: rather than ticking cycle by cycle, the next
// TIMA overflow is predicted in closed form and rescheduled on every write
// that could change it, matching the predictive style the rest of the core
// (notably the LCD STAT scheduler) uses.
package timer

import (
	"github.com/dmgcore/gbcore/clock"
	"github.com/dmgcore/gbcore/interrupt"
)

// selectedBit maps TAC's low two bits to the internal-divider bit position
// whose falling edge increments TIMA.
var selectedBit = [4]uint{9, 3, 5, 7}

// Timer owns the 16-bit internal divider and the TIMA/TMA/TAC registers.
type Timer struct {
	clock   clock.Reader
	sched   *clock.Scheduler
	trigger *interrupt.Trigger

	// counter epoch: the internal divider's value is
	// counterEpochValue + (now - counterEpochClock), an unbounded projection
	// that stays bit-periodic with the real 16-bit register (every bit
	// period we care about divides 65536 evenly, so truncation never needs
	// to be modeled explicitly).
	counterEpochClock int64
	counterEpochValue int64

	// tima epoch: tima's true value as of timaEpochClock. Valid only while
	// no overflow has occurred since the epoch, which the scheduled
	// EventTimerOverflow/EventTimerTMAReload events guarantee by always
	// firing before any later register access observes a stale epoch.
	timaEpochClock int64
	timaEpochValue byte

	tma byte
	tac byte

	reloadPending bool
}

// New creates a timer with the internal divider seeded and DIV derived from
// it, matching the post-boot-ROM state real hardware leaves behind.
func New(reader clock.Reader, sched *clock.Scheduler, trigger *interrupt.Trigger, seed uint16) *Timer {
	t := &Timer{clock: reader, sched: sched, trigger: trigger}
	t.counterEpochValue = int64(seed)
	t.counterEpochClock = reader.Current()
	t.timaEpochClock = t.counterEpochClock
	return t
}

func (t *Timer) period() int64 {
	return 1 << (selectedBit[t.tac&0x3] + 1)
}

func (t *Timer) enabled() bool {
	return t.tac&0x04 != 0
}

// counterAt projects the internal divider's (unbounded, but bit-periodic)
// value at clock now.
func (t *Timer) counterAt(now int64) int64 {
	return t.counterEpochValue + (now - t.counterEpochClock)
}

// fallingEdgesProjected counts period-boundary falling edges in (n0, n1].
func fallingEdgesProjected(n0, n1 int64, period int64) int64 {
	return n1/period - n0/period
}

// resolveTIMA recomputes TIMA's true value at clock now, given no overflow
// has happened since the last epoch (an invariant the scheduler upholds:
// EventTimerOverflow always fires strictly before any later register
// access).
func (t *Timer) resolveTIMA(now int64) byte {
	if !t.enabled() || now <= t.timaEpochClock {
		return t.timaEpochValue
	}
	n0 := t.counterAt(t.timaEpochClock)
	n1 := t.counterAt(now)
	edges := fallingEdgesProjected(n0, n1, t.period())
	value := int64(t.timaEpochValue) + edges
	t.timaEpochValue = byte(value)
	t.timaEpochClock = now
	return t.timaEpochValue
}

// rescheduleOverflow predicts the next TIMA-overflow cycle (0xFF -> 0x00)
// from the current resolved TIMA value and (re)schedules it, replacing any
// previously scheduled entry.
func (t *Timer) rescheduleOverflow(now int64) {
	t.sched.Remove(clock.EventTimerOverflow)
	if !t.enabled() {
		return
	}
	remaining := int64(256 - int(t.timaEpochValue))
	if remaining <= 0 {
		remaining = 256
	}
	p := t.period()
	n0 := t.counterAt(t.timaEpochClock)
	// The target is the remaining-th falling edge strictly after n0: the
	// smallest multiple of p that is remaining periods past n0's period.
	targetPeriodIndex := n0/p + remaining
	n1 := targetPeriodIndex * p
	overflowClock := t.timaEpochClock + (n1 - n0)
	t.sched.ScheduleAbsolute(clock.EventTimerOverflow, overflowClock)
}

// HandleOverflow is invoked by the core's dispatch table when
// EventTimerOverflow fires. TIMA is now exactly 0 and reads as such for the
// following 4 T4 cycles, after which EventTimerTMAReload fires.
func (t *Timer) HandleOverflow(now int64) {
	t.timaEpochClock = now
	t.timaEpochValue = 0
	t.reloadPending = true
	t.sched.ScheduleAbsolute(clock.EventTimerTMAReload, now+4)
}

// HandleReload is invoked when EventTimerTMAReload fires: TIMA takes TMA's
// current value and the timer interrupt is requested.
func (t *Timer) HandleReload(now int64) {
	t.reloadPending = false
	t.timaEpochClock = now
	t.timaEpochValue = t.tma
	t.trigger.Request(interrupt.Timer, now)
	t.rescheduleOverflow(now)
}

// ReadDIV returns the upper 8 bits of the internal divider.
func (t *Timer) ReadDIV(now int64) byte {
	return byte(t.counterAt(now) >> 8)
}

// CounterAt exposes the full, unbounded internal-divider projection at clock
// now. Unlike ReadDIV (which only exposes the upper 8 bits), this lets other
// peripherals that key off a specific divider bit falling edge (the APU's
// frame sequencer watches bit 12, or bit 11 in double-speed) derive their own
// closed-form predictions against the same divider this Timer owns.
func (t *Timer) CounterAt(now int64) int64 {
	return t.counterAt(now)
}

// WriteDIV resets the internal divider to 0. If the timer is enabled and the
// selected bit was set at the moment of reset, the bit's 1->0 transition
// increments TIMA once (the well-known "DIV write glitch").
func (t *Timer) WriteDIV(now int64) {
	t.resolveTIMA(now)
	if t.enabled() {
		n := t.counterAt(now)
		bitPos := selectedBit[t.tac&0x3]
		if (n>>bitPos)&1 == 1 {
			t.bumpTIMA(now)
		}
	}
	t.counterEpochValue = 0
	t.counterEpochClock = now
	t.rescheduleOverflow(now)
}

// bumpTIMA increments TIMA by exactly one, handling the case where the
// increment itself overflows.
func (t *Timer) bumpTIMA(now int64) {
	t.timaEpochClock = now
	if t.timaEpochValue == 0xFF {
		t.HandleOverflow(now)
		return
	}
	t.timaEpochValue++
}

// ReadTIMA returns TIMA's current value, reading as 0 during the 4-cycle
// overflow window.
func (t *Timer) ReadTIMA(now int64) byte {
	if t.reloadPending {
		return 0
	}
	return t.resolveTIMA(now)
}

// WriteTIMA applies a CPU write to TIMA. A write landing inside the 4-cycle
// post-overflow window cancels the pending TMA reload.
func (t *Timer) WriteTIMA(now int64, value byte) {
	if t.reloadPending {
		t.sched.Remove(clock.EventTimerTMAReload)
		t.reloadPending = false
	}
	t.timaEpochClock = now
	t.timaEpochValue = value
	t.rescheduleOverflow(now)
}

// ReadTMA returns the current TMA value.
func (t *Timer) ReadTMA() byte { return t.tma }

// WriteTMA sets TMA. If a reload is currently pending, the new value is
// used when the reload fires (it is read lazily at HandleReload time), also
// modifying an already-resolved TIMA read during the same window.
func (t *Timer) WriteTMA(value byte) {
	t.tma = value
	if t.reloadPending {
		t.timaEpochValue = value
	}
}

// ReadTAC returns TAC with its unused upper bits read as 1.
func (t *Timer) ReadTAC() byte { return t.tac | 0b1111_1000 }

// WriteTAC applies a CPU write to TAC, resolving TIMA under the old
// configuration first, then checking for the timer-disable/bit-change
// glitch (a spurious increment when the effective selected bit falls from
// 1 to 0 as a side effect of the reconfiguration), and finally rescheduling
// the overflow prediction under the new configuration.
func (t *Timer) WriteTAC(now int64, value byte) {
	t.resolveTIMA(now)
	oldEnabled := t.enabled()
	oldBit := selectedBit[t.tac&0x3]
	oldLevel := oldEnabled && (t.counterAt(now)>>oldBit)&1 == 1

	t.tac = value & 0x07

	newEnabled := t.enabled()
	newBit := selectedBit[t.tac&0x3]
	newLevel := newEnabled && (t.counterAt(now)>>newBit)&1 == 1

	if oldLevel && !newLevel {
		t.bumpTIMA(now)
	}

	t.rescheduleOverflow(now)
}

// SetBackClock shifts every clock reference this timer holds by delta,
// keeping pairwise differences (and therefore all projected values)
// unchanged.
func (t *Timer) SetBackClock(delta int64) {
	t.counterEpochClock -= delta
	t.timaEpochClock -= delta
}

var _ clock.BackClockable = (*Timer)(nil)
