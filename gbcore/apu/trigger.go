package apu

import "github.com/dmgcore/gbcore/bit"

// mapRegistersToState recomputes every channel's derived fields from the raw
// register bytes and handles the write-only trigger bits (NR14/NR24/NR34/
// NR44 bit 7). Called after every register write, mirroring the teacher's
// approach of deriving all live state from the raw registers rather than
// keeping two copies in sync by hand.
func (a *APU) mapRegistersToState(now int64) {
	wasEnabled := a.enabled
	a.enabled = bit.IsSet(7, a.nr52)

	if !a.enabled {
		a.nr10, a.nr11, a.nr12, a.nr13, a.nr14 = 0, 0, 0, 0, 0
		a.nr21, a.nr22, a.nr23, a.nr24 = 0, 0, 0, 0
		a.nr30, a.nr31, a.nr32, a.nr33, a.nr34 = 0, 0, 0, 0, 0
		a.nr41, a.nr42, a.nr43, a.nr44 = 0, 0, 0, 0
		a.nr50, a.nr51 = 0, 0
		for i := range a.ch {
			a.ch[i].enabled = false
		}
	}
	if a.enabled && !wasEnabled {
		a.step = 0
	}
	if a.enabled != wasEnabled {
		a.rescheduleFrameSequencer(now)
	}

	for i := range a.ch {
		a.ch[i].right = bit.IsSet(uint8(i), a.nr51)
		a.ch[i].left = bit.IsSet(uint8(i+4), a.nr51)
	}
	a.vinLeft, a.vinRight = bit.IsSet(7, a.nr50), bit.IsSet(3, a.nr50)
	a.volLeft, a.volRight = bit.ExtractBits(a.nr50, 6, 4), bit.ExtractBits(a.nr50, 2, 0)

	a.mapChannel1()
	a.mapChannel2()
	a.mapChannel3()
	a.mapChannel4()

	for i := range a.ch {
		if !a.ch[i].dacEnabled {
			a.ch[i].enabled = false
		}
	}
}

func (a *APU) mapChannel1() {
	ch := &a.ch[0]

	prevSweepDown := ch.sweepDown
	ch.sweepPeriod = bit.ExtractBits(a.nr10, 6, 4)
	ch.sweepDown = bit.IsSet(3, a.nr10)
	ch.sweepStep = bit.ExtractBits(a.nr10, 2, 0)
	if !ch.sweepDown && prevSweepDown && ch.sweepNegUsed && (ch.sweepPeriod > 0 || ch.sweepStep > 0) {
		// Switching sweep direction from subtract to add after a subtract
		// calculation already ran disables the channel immediately.
		ch.enabled = false
	}

	ch.duty = bit.ExtractBits(a.nr11, 7, 6)
	ch.timer = bit.ExtractBits(a.nr11, 5, 0)

	ch.volume = bit.ExtractBits(a.nr12, 7, 4)
	ch.envelopeUp = bit.IsSet(3, a.nr12)
	ch.envelopePace = bit.ExtractBits(a.nr12, 2, 0)
	ch.dacEnabled = ch.volume > 0 || ch.envelopeUp

	ch.period = bit.Combine(a.nr14&0b111, a.nr13)

	prevLenEnable := ch.lengthEnable
	lengthBefore := ch.length
	triggered := bit.IsSet(7, a.nr14)
	ch.lengthEnable = bit.IsSet(6, a.nr14)

	if triggered {
		if ch.dacEnabled {
			ch.enabled = true
		}
		ch.envelopeLatched = false
		if ch.envelopePace == 0 {
			ch.envelopeCounter = 8
		} else {
			ch.envelopeCounter = ch.envelopePace
		}
		// a.step is the step the next frame-sequencer event runs.
		if a.step == 7 {
			ch.envelopeCounter++
		}
		ch.dutyStep = 0
		ch.freqTimer = squarePeriodCycles(ch.period)

		ch.sweepEnabled = ch.sweepPeriod > 0 || ch.sweepStep > 0
		ch.sweepTimer = ch.sweepPeriod
		if ch.sweepTimer == 0 {
			ch.sweepTimer = 8
		}
		ch.shadowFreq = ch.period
		ch.sweepNegUsed = false

		if ch.sweepStep != 0 {
			if ch.sweepDown {
				ch.sweepNegUsed = true
			}
			if _, overflow := ch.calculateSweepFrequency(); overflow {
				ch.enabled = false
			}
		}

		a.nr14 = bit.Reset(7, a.nr14)
	}
	a.handleLengthEnableTransition(prevLenEnable, lengthBefore, triggered, 64, 0)
}

func (a *APU) mapChannel2() {
	ch := &a.ch[1]

	ch.duty = bit.ExtractBits(a.nr21, 7, 6)
	ch.timer = bit.ExtractBits(a.nr21, 5, 0)

	ch.volume = bit.ExtractBits(a.nr22, 7, 4)
	ch.envelopeUp = bit.IsSet(3, a.nr22)
	ch.envelopePace = bit.ExtractBits(a.nr22, 2, 0)
	ch.dacEnabled = ch.volume > 0 || ch.envelopeUp

	ch.period = bit.Combine(a.nr24&0b111, a.nr23)

	prevLenEnable := ch.lengthEnable
	lengthBefore := ch.length
	triggered := bit.IsSet(7, a.nr24)
	ch.lengthEnable = bit.IsSet(6, a.nr24)

	if triggered {
		if ch.dacEnabled {
			ch.enabled = true
		}
		ch.envelopeLatched = false
		if ch.envelopePace == 0 {
			ch.envelopeCounter = 8
		} else {
			ch.envelopeCounter = ch.envelopePace
		}
		if a.step == 7 {
			ch.envelopeCounter++
		}
		ch.dutyStep = 0
		ch.freqTimer = squarePeriodCycles(ch.period)
		a.nr24 = bit.Reset(7, a.nr24)
	}
	a.handleLengthEnableTransition(prevLenEnable, lengthBefore, triggered, 64, 1)
}

func (a *APU) mapChannel3() {
	ch := &a.ch[2]

	ch.dacEnabled = bit.IsSet(7, a.nr30)
	ch.timer = a.nr31
	ch.volume = bit.ExtractBits(a.nr32, 6, 5)
	ch.period = bit.Combine(a.nr34&0b111, a.nr33)

	prevLenEnable := ch.lengthEnable
	lengthBefore := ch.length
	triggered := bit.IsSet(7, a.nr34)
	ch.lengthEnable = bit.IsSet(6, a.nr34)

	if triggered {
		a.applyWaveRAMRetriggerCorruption()
		if ch.dacEnabled {
			ch.enabled = true
		}
		ch.freqTimer = wavePeriodCycles(ch.period)
		ch.waveIndex = 0
		ch.waveSample = a.waveRAM[0]
		a.nr34 = bit.Reset(7, a.nr34)
	}
	a.handleLengthEnableTransition(prevLenEnable, lengthBefore, triggered, 256, 2)
}

func (a *APU) mapChannel4() {
	ch := &a.ch[3]

	ch.timer = bit.ExtractBits(a.nr41, 5, 0)

	ch.volume = bit.ExtractBits(a.nr42, 7, 4)
	ch.envelopeUp = bit.IsSet(3, a.nr42)
	ch.envelopePace = bit.ExtractBits(a.nr42, 2, 0)

	ch.shift = bit.ExtractBits(a.nr43, 7, 4)
	ch.use7bitLFSR = bit.IsSet(3, a.nr43)
	ch.divider = bit.ExtractBits(a.nr43, 2, 0)
	ch.dacEnabled = ch.volume > 0 || ch.envelopeUp

	prevLenEnable := ch.lengthEnable
	lengthBefore := ch.length
	triggered := bit.IsSet(7, a.nr44)
	ch.lengthEnable = bit.IsSet(6, a.nr44)

	if triggered {
		if ch.dacEnabled {
			ch.enabled = true
		}
		ch.envelopeLatched = false
		if ch.envelopePace == 0 {
			ch.envelopeCounter = 8
		} else {
			ch.envelopeCounter = ch.envelopePace
		}
		if a.step == 7 {
			ch.envelopeCounter++
		}
		ch.lfsr = 0x7FFF
		ch.noiseTimer = noisePeriodCycles(ch)
		a.nr44 = bit.Reset(7, a.nr44)
	}
	a.handleLengthEnableTransition(prevLenEnable, lengthBefore, triggered, 64, 3)
}
