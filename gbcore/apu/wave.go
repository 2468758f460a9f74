package apu

const waveRAMSize = 16

// readWaveSample returns the 4-bit sample at the given wave index (0-31, two
// samples per byte, high nibble first) and latches it as the channel's
// currently-buffered sample for the wave-RAM-read-while-playing glitch.
func (a *APU) readWaveSample(index uint8) uint8 {
	byteIdx := index >> 1
	value := a.waveRAM[byteIdx]
	a.ch[2].waveSample = value
	if index&1 == 0 {
		return value >> 4
	}
	return value & 0x0F
}

// waveRAMLocked reports whether the CPU's view of wave RAM is redirected to
// the currently-buffered sample byte instead of raw RAM, which is the case
// whenever the wave channel's DAC is actively playing.
func (a *APU) waveRAMLocked() bool {
	return a.enabled && a.ch[2].enabled && a.ch[2].dacEnabled
}

// applyWaveRAMRetriggerCorruption reproduces the DMG-only wave-RAM corruption
// quirk: retriggering channel 3 while it is already playing, landing within
// the handful of T4 cycles before the generator is about to advance its read
// position, copies the 4-byte-aligned block the generator was about to read
// into the first four bytes of wave RAM. CGB hardware does not exhibit this;
// the corruption window is approximated here as freqTimer<=2 (the generator
// would advance within the current or next sample step), since the exact
// silicon-revision-dependent width isn't pinned down precisely.
func (a *APU) applyWaveRAMRetriggerCorruption() {
	ch := &a.ch[2]
	if a.cgb || !ch.enabled || !ch.dacEnabled {
		return
	}
	if ch.freqTimer > 2 {
		return
	}
	pos := (ch.waveIndex >> 1) &^ 3
	if pos == 0 {
		return
	}
	for i := 0; i < 4; i++ {
		a.waveRAM[i] = a.waveRAM[pos+uint8(i)]
	}
}
