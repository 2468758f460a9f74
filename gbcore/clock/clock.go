// Package clock implements the scheduling substrate shared by every
// peripheral in the core: a monotone T4 cycle counter, a closed-set event
// queue, and the periodic back-clock normalization that keeps both bounded.
package clock

// Undefined is the sentinel clock value meaning "not scheduled" / "no frame
// in progress". It is preserved across back-clock normalization.
const Undefined int64 = -1

// Reader exposes read-only access to the shared clock. Peripherals hold a
// Reader, never a *Clock, so that only the driver advancing emulation time
// (the CPU, external to this core) can mutate it.
type Reader interface {
	Current() int64
	DoubleSpeed() bool
}

// Clock is the single T4 cycle counter driving the whole core. 4 194 304
// ticks/second at single speed, double that in CGB double-speed mode.
type Clock struct {
	t4          int64
	doubleSpeed bool
}

// New creates a clock at T4 = 0.
func New() *Clock {
	return &Clock{}
}

// Current returns the current T4 cycle count.
func (c *Clock) Current() int64 { return c.t4 }

// DoubleSpeed reports whether CGB double-speed mode is active.
func (c *Clock) DoubleSpeed() bool { return c.doubleSpeed }

// Advance moves the clock forward by the given number of T4 cycles. Called
// by the CPU driver after executing an instruction quantum; never called by
// peripherals.
func (c *Clock) Advance(cycles int) {
	c.t4 += int64(cycles)
}

// SetDoubleSpeed toggles double-speed mode. Already-scheduled event cycles
// are absolute values and are not rescaled; only the granularity of future
// Advance calls changes.
func (c *Clock) SetDoubleSpeed(on bool) {
	c.doubleSpeed = on
}

// SetBackClock subtracts delta from the counter as part of periodic overflow
// prevention.
func (c *Clock) SetBackClock(delta int64) {
	c.t4 -= delta
}

// BackClockable is implemented by any component that stores its own absolute
// clock values outside of the shared Queue (e.g. a frame_start_clock or a
// predicted next-interrupt cycle) and must participate in back-clock
// normalization.
type BackClockable interface {
	SetBackClock(delta int64)
}
