// Package interrupt implements the edge-triggered IF register merge point
// shared by every peripheral that can raise a Game Boy interrupt.
package interrupt

// Kind is one of the five hardware interrupt sources, ordered by priority
// (bit position in IF/IE, also the service-vector priority on simultaneous
// pending interrupts).
type Kind uint8

const (
	VBlank Kind = 1 << iota
	LCDStat
	Timer
	Serial
	Joypad
)

// unusedIFBits always read as 1 on real hardware.
const unusedIFBits = 0b1110_0000

// Trigger merges IF flag writes coming from the CPU with interrupts raised
// by peripherals, possibly timestamped in the past (peripherals catch up to
// the current clock lazily, so by the time they notice an edge condition the
// clock may already be ahead of it). Because the bit remains pending in IF
// until serviced or cleared, requesting it "late" has the same observable
// effect as requesting it exactly on time: IF is just state, not a queue.
type Trigger struct {
	ifReg byte
}

// New creates a trigger with IF cleared.
func New() *Trigger {
	return &Trigger{}
}

// Request sets kind's bit in IF. atClock is accepted for documentation and
// assertion purposes only (hardware has no notion of "when" a flag was set,
// only whether it is set); it may be less than the caller's current clock.
func (t *Trigger) Request(kind Kind, atClock int64) {
	t.ifReg |= byte(kind)
}

// IF returns the IF register as the CPU would observe it: the low five bits
// reflect pending interrupts, the top three bits always read as 1.
func (t *Trigger) IF() byte {
	return t.ifReg | unusedIFBits
}

// WriteIF applies a CPU write to IF. Only the low five bits are meaningful;
// software uses this to clear serviced interrupts or to set them manually
// for the halt-bug / interrupt-dispatch edge cases.
func (t *Trigger) WriteIF(value byte) {
	t.ifReg = value &^ unusedIFBits
}

// Pending reports whether kind's bit is currently set in IF.
func (t *Trigger) Pending(kind Kind) bool {
	return t.ifReg&byte(kind) != 0
}

// Clear resets kind's bit, as happens when the CPU services it.
func (t *Trigger) Clear(kind Kind) {
	t.ifReg &^= byte(kind)
}
