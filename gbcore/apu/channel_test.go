package apu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgcore/gbcore/addr"
	"github.com/dmgcore/gbcore/clock"
)

func newTestAPU() *APU {
	sched := clock.NewScheduler()
	reader := &fakeReader{}
	a := New(reader, sched, fakeDivider{}, false)
	a.WriteRegister(addr.NR52, 0x80)
	return a
}

// TestSquareDutyPatternDrivesSign exercises duty 2 (0,1,1,1,1,0,0,0): the
// first duty step outputs the mirrored-to-negative level, matching the
// "duty-low still drives the DAC, just inverted" rule.
func TestSquareDutyPatternDrivesSign(t *testing.T) {
	ch := &Channel{volume: 5, duty: 2, period: 2040} // period -> squarePeriodCycles = 8*4=32
	level := stepSquare(ch, 1)
	assert.Equal(t, int64(-5), level, "duty step 0 of pattern 2 is low")

	// Advance exactly one full period: duty step advances to 1 (high).
	stepSquare(ch, 32)
	level = stepSquare(ch, 1)
	assert.Equal(t, int64(5), level, "duty step 1 of pattern 2 is high")
}

func TestSquareSilentWhenVolumeZero(t *testing.T) {
	ch := &Channel{volume: 0, duty: 2, period: 2040}
	assert.Equal(t, int64(0), stepSquare(ch, 1))
}

func TestChannel1SweepIncreasesFrequency(t *testing.T) {
	a := newTestAPU()
	// Sweep: pace=1, direction=up (bit3=0), shift=1.
	a.WriteRegister(addr.NR10, 0b0001_0001)
	a.WriteRegister(addr.NR12, 0xF0)
	a.WriteRegister(addr.NR13, 0x08)
	a.WriteRegister(addr.NR14, 0x80) // trigger, base period = 8

	before := a.ch[0].period

	// Sweep ticks on sequencer steps 2 and 6 (128 Hz); drive the event by
	// hand since this test isolates channel logic from frame-sequencer
	// scheduling.
	a.step = 2
	a.tickSequence()

	assert.NotEqual(t, before, a.ch[0].period, "sweep should move CH1's frequency at its pace")
	assert.Greater(t, a.ch[0].period, before, "sweep direction up should increase the frequency register")
}

func TestChannel1SweepOverflowDisablesChannel(t *testing.T) {
	a := newTestAPU()
	// pace=1, up, shift=1; base period 1024 doesn't overflow the trigger-time
	// dummy check, but the real hardware's double overflow-check within the
	// same sweep tick (recomputing after the frequency update lands) does:
	// 1024 -> 1536 (ok) -> re-check 1536 -> 2304 (overflow).
	a.WriteRegister(addr.NR10, 0b0001_0001)
	a.WriteRegister(addr.NR12, 0xF0)
	a.WriteRegister(addr.NR13, 0x00)
	a.WriteRegister(addr.NR14, 0x84)

	assert.True(t, a.ch[0].enabled, "channel starts enabled pre-overflow")

	a.step = 2
	a.tickSequence()

	assert.False(t, a.ch[0].enabled, "sweep overflow must disable the channel")
}

func TestEnvelopeRampsUpToMax(t *testing.T) {
	a := newTestAPU()
	// CH2: initial volume 0, envelope up, pace 1.
	a.WriteRegister(addr.NR22, 0b0000_1001)
	a.WriteRegister(addr.NR24, 0x80) // trigger

	for i := 0; i < 16; i++ {
		a.step = 7
		a.tickSequence()
	}
	assert.Equal(t, uint8(15), a.ch[1].volume, "envelope should ramp to max volume and latch")
}

func TestLengthCounterDisablesChannelAtZero(t *testing.T) {
	a := newTestAPU()
	a.WriteRegister(addr.NR12, 0xF0)
	a.WriteRegister(addr.NR11, 0x80|63) // length = 64-63 = 1
	a.WriteRegister(addr.NR14, 0x80|0x40) // trigger + length enable

	assert.True(t, a.ch[0].enabled)
	a.step = 0
	a.tickSequence()
	assert.False(t, a.ch[0].enabled, "length reaching zero must disable the channel")
}

// TestNoiseLFSRHasFullPeriod verifies the well-known 32767-cycle period of
// the 15-bit LFSR: reseeded to 0x7FFF, it returns to that exact state after
// exactly 32767 shifts and not before.
func TestNoiseLFSRHasFullPeriod(t *testing.T) {
	ch := &Channel{volume: 1, lfsr: 0x7FFF, divider: 0, shift: 0} // period = 8 cycles/shift

	period := noisePeriodCycles(ch)
	for i := 0; i < 100; i++ {
		stepNoise(ch, period)
		assert.NotEqual(t, uint16(0x7FFF), ch.lfsr, "should not repeat before the full period")
	}

	for i := 100; i < 32767; i++ {
		stepNoise(ch, period)
	}
	assert.Equal(t, uint16(0x7FFF), ch.lfsr, "15-bit LFSR must return to its seed after exactly 32767 shifts")
}

// TestWaveRAMDMGRetriggerScramble reproduces the documented DMG-only
// corruption: retriggering CH3 while it is already playing, caught within
// the window just before the generator advances its read position, copies
// the 4-byte-aligned block about to be read into the first four bytes.
func TestWaveRAMDMGRetriggerScramble(t *testing.T) {
	a := newTestAPU()
	pattern := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for i, v := range pattern {
		a.waveRAM[i] = v
	}

	a.WriteRegister(addr.NR30, 0x80) // DAC on
	a.WriteRegister(addr.NR32, 0b0010_0000)
	a.WriteRegister(addr.NR33, 0x01)
	a.WriteRegister(addr.NR34, 0x80) // trigger: channel now enabled, waveIndex reset to 0

	// Put the read position at nibble index 8 (byte 4, the start of the
	// "44 55 66 77" block) and park freqTimer inside the retrigger-collision
	// window before the second trigger lands.
	a.ch[2].waveIndex = 8
	a.ch[2].freqTimer = 1

	a.WriteRegister(addr.NR34, 0x80) // retrigger while already playing

	assert.Equal(t, []byte{0x44, 0x55, 0x66, 0x77}, a.waveRAM[0:4])
}

func TestWaveRAMRetriggerNoCorruptionOnCGB(t *testing.T) {
	sched := clock.NewScheduler()
	reader := &fakeReader{}
	a := New(reader, sched, fakeDivider{}, true)
	a.WriteRegister(addr.NR52, 0x80)

	pattern := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}
	for i, v := range pattern {
		a.waveRAM[i] = v
	}
	a.WriteRegister(addr.NR30, 0x80)
	a.WriteRegister(addr.NR33, 0x01)
	a.WriteRegister(addr.NR34, 0x80)

	a.ch[2].waveIndex = 8
	a.ch[2].freqTimer = 1
	a.WriteRegister(addr.NR34, 0x80)

	assert.Equal(t, byte(0x00), a.waveRAM[0], "CGB does not exhibit the DMG wave-RAM retrigger quirk")
}
