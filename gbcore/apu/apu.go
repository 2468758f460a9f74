// Package apu implements the DMG/CGB Audio Processing Unit: four channel
// generators (square+sweep, square, wave, noise), the 512 Hz frame
// sequencer, and the channel mixer. Unlike a CPU-driven emulator the
// sequencer here is not ticked from a flat cycle countdown: its next step is
// predicted from the shared internal divider's bit falling edge and
// scheduled through clock.Scheduler, the same predictive style the timer and
// LCD STAT scheduler use. Per-channel sample generation is stepped lazily,
// two T4 cycles (one sample period) at a time, whenever UpdateState catches
// up to the current clock.
package apu

import (
	"github.com/dmgcore/gbcore/addr"
	"github.com/dmgcore/gbcore/bit"
	"github.com/dmgcore/gbcore/clock"
)

// DividerSource exposes the shared 16-bit internal divider's unbounded
// projection, as timer.Timer does, so the frame sequencer can derive its own
// closed-form prediction from the same counter without owning it.
type DividerSource interface {
	CounterAt(now int64) int64
}

// APU is the top-level audio component the core wires into its register
// window and event-dispatch table.
type APU struct {
	cgb    bool
	reader clock.Reader
	sched  *clock.Scheduler
	div    DividerSource

	enabled           bool
	ch                [4]Channel
	vinLeft, vinRight bool
	volLeft, volRight uint8
	vinSample         int16 // external VIN input; no cartridge audio source is wired in this core

	step int

	lastSampleClock int64
	pcmBuffer       []int16

	nr10, nr11, nr12, nr13, nr14 byte
	nr21, nr22, nr23, nr24       byte
	nr30, nr31, nr32, nr33, nr34 byte
	nr41, nr42, nr43, nr44       byte
	nr50, nr51, nr52             byte
	waveRAM                      [waveRAMSize]byte
}

// New creates a powered-off APU. div supplies the internal divider this
// APU's frame sequencer derives its schedule from (normally the core's
// timer.Timer).
func New(reader clock.Reader, sched *clock.Scheduler, div DividerSource, cgb bool) *APU {
	return &APU{reader: reader, sched: sched, div: div, cgb: cgb}
}

func (a *APU) now() int64 { return a.reader.Current() }

// frameSequencerPeriod returns the T4 period between successive frame-
// sequencer steps: bit 12 of the internal divider at single speed (8192
// cycles, 512 Hz), bit 11 in CGB double-speed mode (4096 cycles).
func (a *APU) frameSequencerPeriod() int64 {
	bitPos := int64(12)
	if a.reader.DoubleSpeed() {
		bitPos = 11
	}
	return 1 << (bitPos + 1)
}

// rescheduleFrameSequencer predicts the next divider-bit falling edge in
// closed form and schedules it, replacing any previously scheduled entry.
func (a *APU) rescheduleFrameSequencer(now int64) {
	a.sched.Remove(clock.EventAPUFrameSequencer)
	if !a.enabled {
		return
	}
	period := a.frameSequencerPeriod()
	n := a.div.CounterAt(now)
	targetIndex := n/period + 1
	target := targetIndex * period
	a.sched.ScheduleAbsolute(clock.EventAPUFrameSequencer, now+(target-n))
}

// NotifySpeedChange is invoked by the core's dispatch table when
// EventSwitchDoubleSpeed fires: unlike the timer and LCD scheduler (whose
// predictions are expressed purely in T4 cycles and need no adjustment),
// the frame sequencer's divider-bit selection itself depends on the speed
// mode, so its schedule must be recomputed immediately rather than waiting
// for the next register write.
func (a *APU) NotifySpeedChange(now int64) {
	a.UpdateState(now)
	a.rescheduleFrameSequencer(now)
}

// HandleEvent is invoked by the core's dispatch table when
// EventAPUFrameSequencer fires: channel generation catches up to now first
// (so the step's length/sweep/envelope tick sees accurate channel state),
// then the step fires and the next one is scheduled.
func (a *APU) HandleEvent(kind clock.EventKind, now int64) {
	if kind != clock.EventAPUFrameSequencer {
		return
	}
	a.UpdateState(now)
	a.tickSequence()
	a.step = (a.step + 1) % 8
	a.rescheduleFrameSequencer(now)
}

func (a *APU) tickSequence() {
	switch a.step {
	case 0, 4:
		a.tickLength()
	case 2, 6:
		a.tickLength()
		a.tickSweep()
	case 7:
		a.tickEnvelope()
	}
}

// UpdateState generates every sample due since the last call, one every 2 T4
// cycles (the DAC sample-and-hold period), so that over any span of N
// cycles exactly floor(N/2) samples are appended regardless of call cadence.
func (a *APU) UpdateState(now int64) {
	for a.lastSampleClock+2 <= now {
		a.stepAndEmit()
		a.lastSampleClock += 2
	}
}

func (a *APU) stepAndEmit() {
	var leftLevel, rightLevel int64
	if a.enabled {
		for i := range a.ch {
			ch := &a.ch[i]
			if !ch.enabled || !ch.dacEnabled {
				continue
			}
			var level int64
			switch i {
			case 0, 1:
				level = stepSquare(ch, 2)
			case 2:
				level = a.stepWave(ch, 2)
			case 3:
				level = stepNoise(ch, 2)
			}
			if level == 0 {
				continue
			}
			if ch.left {
				leftLevel += level
			}
			if ch.right {
				rightLevel += level
			}
		}
		if a.vinLeft {
			leftLevel += int64(a.vinSample)
		}
		if a.vinRight {
			rightLevel += int64(a.vinSample)
		}
	}

	left := scaleToPCM(float64(leftLevel), a.volLeft)
	right := scaleToPCM(float64(rightLevel), a.volRight)
	a.pcmBuffer = append(a.pcmBuffer, left, right)
}

const sampleScale = 32767.0 / 15.0

func scaleToPCM(level float64, masterVol uint8) int16 {
	gain := float64(masterVol+1) / 8.0
	value := level * gain * sampleScale
	if value > 32767 {
		value = 32767
	} else if value < -32768 {
		value = -32768
	}
	return int16(value)
}

// DrainSamples returns every interleaved stereo sample appended since the
// last call and clears the internal buffer; the host is expected to flush it
// periodically. There is no resampling here: samples are produced natively
// at clock-rate/2, and conversion to a host audio device's rate is outside
// this core's scope.
func (a *APU) DrainSamples() []int16 {
	out := a.pcmBuffer
	a.pcmBuffer = nil
	return out
}

// --- CPU-visible register IO ---

// ReadRegister returns the masked value of any audio register or wave-RAM
// byte, including the write-only registers (which read back as all-1) and
// the wave-RAM-redirected-to-buffered-sample quirk while CH3 plays.
func (a *APU) ReadRegister(address uint16) byte {
	a.UpdateState(a.now())
	switch address {
	case addr.NR10:
		return a.nr10 | 0b1000_0000
	case addr.NR11:
		return a.nr11 | 0b0011_1111
	case addr.NR12:
		return a.nr12
	case addr.NR13:
		return 0xFF
	case addr.NR14:
		return a.nr14 | 0b1011_1111
	case addr.NR21:
		return a.nr21 | 0b0011_1111
	case addr.NR22:
		return a.nr22
	case addr.NR23:
		return 0xFF
	case addr.NR24:
		return a.nr24 | 0b1011_1111
	case addr.NR30:
		return a.nr30 | 0b0111_1111
	case addr.NR31:
		return 0xFF
	case addr.NR32:
		return a.nr32 | 0b1001_1111
	case addr.NR33:
		return 0xFF
	case addr.NR34:
		return a.nr34 | 0b1011_1111
	case addr.NR41:
		return 0xFF
	case addr.NR42:
		return a.nr42
	case addr.NR43:
		return a.nr43
	case addr.NR44:
		return a.nr44 | 0b1011_1111
	case addr.NR50:
		return a.nr50
	case addr.NR51:
		return a.nr51
	case addr.NR52:
		status := byte(0b0111_0000)
		if a.enabled {
			status = bit.Set(7, status)
		}
		for i := range a.ch {
			if a.ch[i].enabled {
				status = bit.Set(uint8(i), status)
			}
		}
		return status
	}
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		if a.waveRAMLocked() {
			return a.ch[2].waveSample
		}
		return a.waveRAM[address-addr.WaveRAMStart]
	}
	return 0xFF
}

// WriteRegister applies a CPU write to an audio register or wave-RAM byte.
// While the APU is powered off, only NR52 and wave RAM accept writes.
func (a *APU) WriteRegister(address uint16, value byte) {
	now := a.now()
	a.UpdateState(now)

	isWaveRAM := address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd
	if !a.enabled && address != addr.NR52 && !isWaveRAM {
		return
	}

	switch address {
	case addr.NR10:
		a.nr10 = value
	case addr.NR11:
		a.nr11 = value
		a.ch[0].length = 64 - uint16(bit.ExtractBits(value, 5, 0))
	case addr.NR12:
		a.nr12 = value
		a.reloadEnvelopeCounter(&a.ch[0], value)
	case addr.NR13:
		a.nr13 = value
	case addr.NR14:
		a.nr14 = value
	case addr.NR21:
		a.nr21 = value
		a.ch[1].length = 64 - uint16(bit.ExtractBits(value, 5, 0))
	case addr.NR22:
		a.nr22 = value
		a.reloadEnvelopeCounter(&a.ch[1], value)
	case addr.NR23:
		a.nr23 = value
	case addr.NR24:
		a.nr24 = value
	case addr.NR30:
		a.nr30 = value
	case addr.NR31:
		a.nr31 = value
		a.ch[2].length = 256 - uint16(value)
	case addr.NR32:
		a.nr32 = value
	case addr.NR33:
		a.nr33 = value
	case addr.NR34:
		a.nr34 = value
	case addr.NR41:
		a.nr41 = value
		a.ch[3].length = 64 - uint16(bit.ExtractBits(value, 5, 0))
	case addr.NR42:
		a.nr42 = value
		a.reloadEnvelopeCounter(&a.ch[3], value)
	case addr.NR43:
		a.nr43 = value
	case addr.NR44:
		a.nr44 = value
	case addr.NR50:
		a.nr50 = value
	case addr.NR51:
		a.nr51 = value
	case addr.NR52:
		a.nr52 = value
	}

	if isWaveRAM {
		offset := address - addr.WaveRAMStart
		if a.waveRAMLocked() {
			idx := a.ch[2].waveIndex >> 1
			a.waveRAM[idx] = value
			a.ch[2].waveSample = value
		} else {
			a.waveRAM[offset] = value
		}
	}

	a.mapRegistersToState(now)
}

func (a *APU) reloadEnvelopeCounter(ch *Channel, nrx2 byte) {
	pace := bit.ExtractBits(nrx2, 2, 0)
	if pace == 0 {
		ch.envelopeCounter = 8
	} else {
		ch.envelopeCounter = pace
	}
	ch.envelopeLatched = false
}

// SetBackClock shifts every clock reference this APU holds by delta.
func (a *APU) SetBackClock(delta int64) {
	a.lastSampleClock -= delta
}

var _ clock.BackClockable = (*APU)(nil)
