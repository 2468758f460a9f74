package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgcore/gbcore/addr"
	"github.com/dmgcore/gbcore/clock"
	"github.com/dmgcore/gbcore/interrupt"
	"github.com/dmgcore/gbcore/lcd"
)

type fakeVRAM struct{}

func (fakeVRAM) ReadVRAM(bank int, address uint16) byte { return 0 }

type fakeOAM struct{}

func (fakeOAM) ReadOAM(address uint16) byte { return 0 }

func blankROM() []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x134:0x134+11], "TESTROM")
	rom[0x143] = 0x00
	rom[0x14B] = 0x01 // Nintendo-licensed, old-licensee code
	return rom
}

func TestNewRejectsShortROM(t *testing.T) {
	_, err := New(make([]byte, 0x10), DMG, lcd.CorrectionRaw8x, fakeVRAM{}, fakeOAM{})
	assert.ErrorIs(t, err, ErrROMTooShort)
}

func TestNewAcceptsMinimalROM(t *testing.T) {
	c, err := New(blankROM(), DMG, lcd.CorrectionRaw8x, fakeVRAM{}, fakeOAM{})
	assert.NoError(t, err)
	assert.Equal(t, DMG, c.Variant())
	assert.Equal(t, "TESTROM", c.Header().Title)
}

func TestCGBFlagDetected(t *testing.T) {
	rom := blankROM()
	rom[0x143] = 0xC0
	c, err := New(rom, CGBE, lcd.CorrectionPerceptual, fakeVRAM{}, fakeOAM{})
	assert.NoError(t, err)
	assert.True(t, c.Header().CGBSupports)
}

// TestRegisterWindowCoversExactlySpecifiedAddresses spot-checks a handful of
// in-scope and out-of-scope addresses against ReadRegister/WriteRegister's
// handled flag.
func TestRegisterWindowCoversExactlySpecifiedAddresses(t *testing.T) {
	c, err := New(blankROM(), DMG, lcd.CorrectionRaw8x, fakeVRAM{}, fakeOAM{})
	assert.NoError(t, err)

	_, handled := c.ReadRegister(addr.LCDC)
	assert.True(t, handled)
	_, handled = c.ReadRegister(addr.NR12)
	assert.True(t, handled)
	_, handled = c.ReadRegister(addr.DIV)
	assert.True(t, handled)
	_, handled = c.ReadRegister(addr.IF)
	assert.True(t, handled)

	// P1 (joypad) belongs to an external collaborator; this core declines it.
	_, handled = c.ReadRegister(addr.P1)
	assert.False(t, handled)
}

func TestIERegisterRoundTrips(t *testing.T) {
	c, err := New(blankROM(), DMG, lcd.CorrectionRaw8x, fakeVRAM{}, fakeOAM{})
	assert.NoError(t, err)

	assert.True(t, c.WriteRegister(addr.IE, 0x1F))
	value, handled := c.ReadRegister(addr.IE)
	assert.True(t, handled)
	assert.Equal(t, byte(0x1F), value)
}

// TestTimerOverflowDispatchesThroughPumpEvents exercises the full wiring:
// a TAC/TIMA setup that overflows shortly after construction must surface
// as a pending timer interrupt once PumpEvents drains the scheduler.
func TestTimerOverflowDispatchesThroughPumpEvents(t *testing.T) {
	c, err := New(blankROM(), DMG, lcd.CorrectionRaw8x, fakeVRAM{}, fakeOAM{})
	assert.NoError(t, err)

	c.WriteRegister(addr.TAC, 0x05) // enabled, bit 3 selected (period 16)
	c.WriteRegister(addr.TIMA, 0xFF)
	c.WriteRegister(addr.TMA, 0x10)

	// Advance the clock one cycle at a time past the predicted overflow and
	// reload window, draining events by hand (there is no CPU in this core
	// to do it), then stop exactly at the reload so TIMA's value is known.
	for i := 0; i < 20; i++ {
		c.Sched.Clock.Advance(1)
		c.PumpEvents()
	}

	assert.True(t, c.Trigger.Pending(interrupt.Timer))
	tima, _ := c.ReadRegister(addr.TIMA)
	assert.Equal(t, byte(0x10), tima)
}

func TestSwitchDoubleSpeedTogglesClockAndReschedulesAPU(t *testing.T) {
	c, err := New(blankROM(), CGBE, lcd.CorrectionRaw8x, fakeVRAM{}, fakeOAM{})
	assert.NoError(t, err)

	c.WriteRegister(addr.NR52, 0x80)
	assert.False(t, c.Sched.Clock.DoubleSpeed())

	c.Sched.ScheduleAbsolute(clock.EventSwitchDoubleSpeed, c.Sched.Clock.Current())
	c.PumpEvents()

	assert.True(t, c.Sched.Clock.DoubleSpeed())
	assert.True(t, c.Sched.Queue.IsScheduled(clock.EventAPUFrameSequencer))
}
