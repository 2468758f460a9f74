package core

import "github.com/dmgcore/gbcore/clock"

// PumpEvents drains every event due at the scheduler's current clock,
// dispatching each to the component that owns its kind, then performs
// back-clock normalization once the clock has crossed the watermark. The
// CPU driver (external to this core) calls this after every instruction
// quantum, per §2's control flow: "execute one instruction; while (event
// due) dispatch".
func (c *Core) PumpEvents() {
	for {
		kind, now, ok := c.Sched.Poll()
		if !ok {
			break
		}
		c.dispatch(kind, now)
	}
	if delta, did := c.Sched.MaybeBackClock(); did {
		c.Timer.SetBackClock(delta)
		c.LCD.SetBackClock(delta)
		c.APU.SetBackClock(delta)
	}
}

// dispatch routes one due event to its owning component. Event kinds owned
// by out-of-scope collaborators (serial, DMA/HDMA) still occupy a slot in
// the closed enumeration so every peripheral shares one queue, but this
// core has no handler for them; the host registers its own handlers for
// those kinds on the same *clock.Scheduler.
func (c *Core) dispatch(kind clock.EventKind, now int64) {
	switch kind {
	case clock.EventLCDVBlank, clock.EventLCDLYC, clock.EventLCDMode0, clock.EventLCDMode2:
		c.LCD.HandleEvent(kind, now)
	case clock.EventTimerOverflow:
		c.Timer.HandleOverflow(now)
	case clock.EventTimerTMAReload:
		c.Timer.HandleReload(now)
	case clock.EventAPUFrameSequencer:
		c.APU.HandleEvent(kind, now)
	case clock.EventSwitchDoubleSpeed:
		c.handleSwitchDoubleSpeed(now)
	case clock.EventSerialTransfer, clock.EventHDMAStep, clock.EventStartHDMA, clock.EventDMAStep:
		// No-op here; see doc comment above.
	}
}

// handleSwitchDoubleSpeed toggles the clock's speed mode. Per §9, already-
// scheduled event cycles are absolute T4 values and are never rescaled, so
// the timer and LCD STAT scheduler need no adjustment; the frame sequencer
// is the one component whose own prediction formula depends on the speed
// mode (it watches a different divider bit), so it alone needs to
// recompute immediately.
func (c *Core) handleSwitchDoubleSpeed(now int64) {
	c.Sched.Clock.SetDoubleSpeed(!c.Sched.Clock.DoubleSpeed())
	c.APU.NotifySpeedChange(now)
}
