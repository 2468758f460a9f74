package apu

import "github.com/dmgcore/gbcore/bit"

// Channel holds the generator state shared (with fields some channels leave
// unused) by all four APU voices. Square channels 1/2 use duty/envelope
// (channel 1 additionally sweep), the wave channel uses volume/waveIndex
// only, and the noise channel uses envelope/lfsr.
type Channel struct {
	enabled bool

	left, right bool // NR51 panning

	duty   uint8
	timer  uint8  // initial length-timer field as written (6 or 8 bits depending on channel)
	length uint16 // live length countdown
	volume uint8

	// Frequency sweep, channel 1 only.
	sweepPeriod  uint8
	sweepDown    bool
	sweepStep    uint8
	sweepEnabled bool
	sweepTimer   uint8
	shadowFreq   uint16
	sweepNegUsed bool

	envelopePace    uint8
	envelopeUp      bool
	envelopeCounter uint8
	envelopeLatched bool

	period       uint16
	lengthEnable bool
	freqTimer    int
	dutyStep     uint8
	waveIndex    uint8
	waveSample   uint8
	noiseTimer   int

	lfsr        uint16
	use7bitLFSR bool
	shift       uint8
	divider     uint8

	dacEnabled bool
}

var dutyPatterns = [4][8]int64{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

var noiseDividers = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// squarePeriodCycles, wavePeriodCycles and noisePeriodCycles convert the
// 11-bit period register (or NR43's divider/shift pair) into the number of
// T4 cycles between duty-step/wave-index/LFSR advances.
func squarePeriodCycles(period uint16) int {
	p := 2048 - int(period&0x7FF)
	if p <= 0 {
		return 0
	}
	return p * 4
}

func wavePeriodCycles(period uint16) int {
	p := 2048 - int(period&0x7FF)
	if p <= 0 {
		return 0
	}
	return p * 2
}

func noisePeriodCycles(ch *Channel) int {
	div := noiseDividers[ch.divider&0x7]
	p := div << ch.shift
	if p <= 0 {
		return 0
	}
	return p
}

// calculateSweepFrequency applies CH1's sweep formula against the shadow
// frequency without mutating state; used both for the periodic tick and for
// the trigger-time dummy overflow check.
func (ch *Channel) calculateSweepFrequency() (newFreq uint16, overflow bool) {
	freqChange := ch.shadowFreq >> ch.sweepStep
	if ch.sweepDown {
		if freqChange > ch.shadowFreq {
			newFreq = 0
		} else {
			newFreq = ch.shadowFreq - freqChange
		}
	} else {
		newFreq = ch.shadowFreq + freqChange
	}
	return newFreq, newFreq > 2047
}

// stepSquare advances a square channel's duty position by cycles T4 cycles
// and returns its current signed DAC input level (0 when silent).
func stepSquare(ch *Channel, cycles int) int64 {
	period := squarePeriodCycles(ch.period)
	if period == 0 {
		return 0
	}
	if ch.freqTimer <= 0 {
		ch.freqTimer = period
	}
	ch.freqTimer -= cycles
	for ch.freqTimer <= 0 {
		ch.freqTimer += period
		ch.dutyStep = (ch.dutyStep + 1) & 0x7
	}

	if ch.volume == 0 {
		return 0
	}
	pattern := dutyPatterns[ch.duty&0x3][ch.dutyStep]
	level := int64(ch.volume)
	if pattern == 0 {
		// Mirrored to 0 is not silence: the duty-low level still drives the
		// DAC, just at the opposite polarity of the duty-high level.
		return -level
	}
	return level
}

func (a *APU) stepWave(ch *Channel, cycles int) int64 {
	period := wavePeriodCycles(ch.period)
	if period == 0 {
		return 0
	}
	if ch.freqTimer <= 0 {
		ch.freqTimer = period
	}
	ch.freqTimer -= cycles
	for ch.freqTimer <= 0 {
		ch.freqTimer += period
		ch.waveIndex = (ch.waveIndex + 1) & 0x1F
	}

	sample := int64(a.readWaveSample(ch.waveIndex)) - 8
	switch ch.volume & 0b11 {
	case 0:
		return 0
	case 1:
		return sample
	case 2:
		return sample / 2
	case 3:
		return sample / 4
	default:
		return sample
	}
}

func stepNoise(ch *Channel, cycles int) int64 {
	period := noisePeriodCycles(ch)
	if period == 0 {
		return 0
	}
	if ch.lfsr == 0 {
		ch.lfsr = 0x7FFF
	}
	if ch.noiseTimer <= 0 {
		ch.noiseTimer = period
	}
	ch.noiseTimer -= cycles
	for ch.noiseTimer <= 0 {
		ch.noiseTimer += period
		b := (ch.lfsr & 1) ^ ((ch.lfsr >> 1) & 1)
		ch.lfsr = (ch.lfsr >> 1) | (b << 14)
		if ch.use7bitLFSR {
			ch.lfsr = (ch.lfsr &^ (1 << 6)) | (b << 6)
		}
	}

	if ch.volume == 0 {
		return 0
	}
	level := int64(ch.volume)
	if bit.IsSet(0, uint8(ch.lfsr)) {
		// The LFSR's bit 0 is inverted before it reaches the DAC.
		return -level
	}
	return level
}

// tickLength is called on every frame-sequencer step that clocks length
// (steps 0,2,4,6); it decrements each enabled channel's length counter and
// silences the channel at zero.
func (a *APU) tickLength() {
	for i := range a.ch {
		ch := &a.ch[i]
		if ch.lengthEnable && ch.length > 0 {
			ch.length--
			if ch.length == 0 {
				ch.enabled = false
			}
		}
	}
}

// tickSweep is called on steps 2 and 6; it drives channel 1's frequency
// sweep, including the negate-then-positive-disables-channel quirk and the
// double overflow check that the real hardware performs per period.
func (a *APU) tickSweep() {
	ch := &a.ch[0]
	if !ch.sweepEnabled {
		return
	}

	ch.sweepTimer--
	if ch.sweepTimer > 0 {
		return
	}
	ch.sweepTimer = ch.sweepPeriod
	if ch.sweepTimer == 0 {
		ch.sweepTimer = 8
	}
	if ch.sweepPeriod == 0 {
		return
	}

	newFreq, overflow := ch.calculateSweepFrequency()
	if overflow {
		ch.enabled = false
		return
	}
	if ch.sweepDown {
		ch.sweepNegUsed = true
	}
	if ch.sweepStep == 0 {
		return
	}
	ch.shadowFreq = newFreq
	ch.period = newFreq
	a.nr13 = uint8(newFreq)
	a.nr14 = (a.nr14 & 0b1111_1000) | uint8((newFreq>>8)&0b111)

	if _, overflow := ch.calculateSweepFrequency(); overflow {
		ch.enabled = false
	}
}

// tickEnvelope is called on step 7; it paces each DAC-enabled channel's
// (1,2,4) volume envelope and latches it once it hits a rail.
func (a *APU) tickEnvelope() {
	for _, idx := range [3]int{0, 1, 3} {
		ch := &a.ch[idx]
		if !ch.dacEnabled || ch.envelopeLatched {
			continue
		}
		pace := ch.envelopePace
		if pace == 0 {
			pace = 8
		}
		if ch.envelopeCounter == 0 {
			ch.envelopeCounter = pace
		}
		ch.envelopeCounter--
		if ch.envelopeCounter > 0 {
			continue
		}
		if ch.envelopeUp {
			if ch.volume < 15 {
				ch.volume++
				ch.envelopeCounter = pace
			} else {
				ch.envelopeLatched = true
			}
		} else {
			if ch.volume > 0 {
				ch.volume--
				ch.envelopeCounter = pace
			} else {
				ch.envelopeLatched = true
			}
		}
	}
}

// handleLengthEnableTransition reproduces the obscure extra-clock behavior
// around enabling the length counter or triggering a channel mid-sequencer-
// period. See https://gbdev.io/pandocs/Audio_details.html#obscure-behavior.
func (a *APU) handleLengthEnableTransition(prevEnabled bool, lengthBefore uint16, triggered bool, maxLength uint16, chIdx int) {
	ch := &a.ch[chIdx]
	lengthWasZero := lengthBefore == 0
	clockOnEnable := !prevEnabled && ch.lengthEnable && a.step%2 == 1 && lengthBefore > 0

	if triggered && (lengthWasZero || (clockOnEnable && lengthBefore == 1)) {
		ch.length = maxLength
	}
	if !ch.lengthEnable {
		return
	}
	forceClock := lengthWasZero && triggered && ch.length > 0
	if !forceClock && prevEnabled {
		return
	}
	if a.step%2 == 1 && ch.length > 0 {
		ch.length--
		if ch.length == 0 {
			ch.enabled = false
		}
	}
}
