package core

import "github.com/dmgcore/gbcore/addr"

// ReadRegister returns the value of one of the CPU-visible registers this
// core owns (§6: LCDC, STAT, SCY, SCX, LY, LYC, BGP, OBP0, OBP1, WY, WX,
// BCPS, BCPD, OCPS, OCPD, NR10..NR52, DIV, TIMA, TMA, TAC, IE, IF). handled
// is false for every other address, including registers explicitly owned by
// out-of-scope collaborators (P1, SB/SC, DMA, KEY1, VBK, SVBK, HDMA1-5) —
// the memory subsystem routes those elsewhere.
func (c *Core) ReadRegister(address uint16) (value byte, handled bool) {
	switch address {
	case addr.LCDC:
		return c.LCD.ReadLCDC(), true
	case addr.STAT:
		return c.LCD.ReadSTAT(), true
	case addr.SCY:
		return c.LCD.ReadSCY(), true
	case addr.SCX:
		return c.LCD.ReadSCX(), true
	case addr.LY:
		return c.LCD.ReadLY(), true
	case addr.LYC:
		return c.LCD.ReadLYC(), true
	case addr.BGP:
		return c.LCD.ReadBGP(), true
	case addr.OBP0:
		return c.LCD.ReadOBP0(), true
	case addr.OBP1:
		return c.LCD.ReadOBP1(), true
	case addr.WY:
		return c.LCD.ReadWY(), true
	case addr.WX:
		return c.LCD.ReadWX(), true
	case addr.BCPS:
		return c.LCD.ReadBCPS(), true
	case addr.BCPD:
		return c.LCD.ReadBCPD(), true
	case addr.OCPS:
		return c.LCD.ReadOCPS(), true
	case addr.OCPD:
		return c.LCD.ReadOCPD(), true
	case addr.DIV:
		return c.Timer.ReadDIV(c.Sched.Clock.Current()), true
	case addr.TIMA:
		return c.Timer.ReadTIMA(c.Sched.Clock.Current()), true
	case addr.TMA:
		return c.Timer.ReadTMA(), true
	case addr.TAC:
		return c.Timer.ReadTAC(), true
	case addr.IE:
		return c.ieRegister, true
	case addr.IF:
		return c.Trigger.IF(), true
	}
	if address >= addr.AudioStart && address <= addr.AudioEnd {
		return c.APU.ReadRegister(address), true
	}
	return 0, false
}

// WriteRegister applies a CPU write to one of this core's registers;
// handled reports whether address belonged to this core at all.
func (c *Core) WriteRegister(address uint16, value byte) (handled bool) {
	switch address {
	case addr.LCDC:
		c.LCD.WriteLCDC(value)
	case addr.STAT:
		c.LCD.WriteSTAT(value)
	case addr.SCY:
		c.LCD.WriteSCY(value)
	case addr.SCX:
		c.LCD.WriteSCX(value)
	case addr.LY:
		// LY is read-only on real hardware; writes are silently ignored.
	case addr.LYC:
		c.LCD.WriteLYC(value)
	case addr.BGP:
		c.LCD.WriteBGP(value)
	case addr.OBP0:
		c.LCD.WriteOBP0(value)
	case addr.OBP1:
		c.LCD.WriteOBP1(value)
	case addr.WY:
		c.LCD.WriteWY(value)
	case addr.WX:
		c.LCD.WriteWX(value)
	case addr.BCPS:
		c.LCD.WriteBCPS(value)
	case addr.BCPD:
		c.LCD.WriteBCPD(value)
	case addr.OCPS:
		c.LCD.WriteOCPS(value)
	case addr.OCPD:
		c.LCD.WriteOCPD(value)
	case addr.DIV:
		c.Timer.WriteDIV(c.Sched.Clock.Current())
	case addr.TIMA:
		c.Timer.WriteTIMA(c.Sched.Clock.Current(), value)
	case addr.TMA:
		c.Timer.WriteTMA(value)
	case addr.TAC:
		c.Timer.WriteTAC(c.Sched.Clock.Current(), value)
	case addr.IE:
		c.ieRegister = value
	case addr.IF:
		c.Trigger.WriteIF(value)
	default:
		if address >= addr.AudioStart && address <= addr.AudioEnd {
			c.APU.WriteRegister(address, value)
			return true
		}
		return false
	}
	return true
}
