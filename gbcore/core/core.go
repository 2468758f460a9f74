package core

import (
	"github.com/dmgcore/gbcore/apu"
	"github.com/dmgcore/gbcore/clock"
	"github.com/dmgcore/gbcore/interrupt"
	"github.com/dmgcore/gbcore/lcd"
	"github.com/dmgcore/gbcore/timer"
)

// bootDividerSeed is the internal divider value real DMG/CGB hardware
// leaves behind once the boot ROM hands control to the cartridge.
const bootDividerSeed = 0xAB00

// Core wires the scheduling substrate, interrupt trigger, timer, LCD and
// APU into the single object the CPU instruction decoder and memory
// subsystem (both external to this core) drive. It owns no VRAM/OAM/WRAM
// storage; that belongs to the memory subsystem and is supplied here only
// as read-only views for rendering.
type Core struct {
	variant Variant
	header  Header

	Sched   *clock.Scheduler
	Trigger *interrupt.Trigger
	Timer   *timer.Timer
	LCD     *lcd.LCD
	APU     *apu.APU

	// ieRegister is 0xFFFF. It has no behavior of its own beyond storage;
	// the CPU consults it together with Trigger.IF() to decide whether a
	// pending interrupt is actually serviceable.
	ieRegister byte
}

// New constructs a Core from a ROM image and an explicit device variant;
// vram/oam are the memory subsystem's read-only views the LCD renders from.
// A too-short ROM or a header failing basic sanity checks is a construction
// failure; everything else about the core is total once constructed.
func New(rom []byte, variant Variant, correction lcd.ColorCorrection, vram lcd.VRAMBus, oam lcd.OAMBus) (*Core, error) {
	header, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	sched := clock.NewScheduler()
	trigger := interrupt.New()
	t := timer.New(sched.Clock, sched, trigger, bootDividerSeed)
	l := lcd.New(vram, oam, sched, trigger, sched.Clock, variant.IsCGB(), correction)
	a := apu.New(sched.Clock, sched, t, variant.IsCGB())

	c := &Core{
		variant: variant,
		header:  header,
		Sched:   sched,
		Trigger: trigger,
		Timer:   t,
		LCD:     l,
		APU:     a,
	}

	if !variant.IsCGB() {
		bp := dmgBootPalette(rom)
		l.Palettes().SetBootCompatPalette(&bp)
	}

	return c, nil
}

// Variant reports the device model this core was constructed for.
func (c *Core) Variant() Variant { return c.variant }

// Header exposes the cartridge header fields this core parsed at
// construction.
func (c *Core) Header() Header { return c.header }
