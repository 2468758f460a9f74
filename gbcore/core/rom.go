package core

import (
	"errors"
	"fmt"

	"github.com/dmgcore/gbcore/lcd"
)

// Header offsets within the cartridge header (0x100-0x14F).
const (
	titleAddress         = 0x134
	titleLength          = 11
	cgbFlagAddress       = 0x143
	newLicenseeAddress   = 0x144
	oldLicenseeAddress   = 0x14B
	headerChecksumOffset = 0x14D
	minHeaderLength      = 0x150
)

// ErrROMTooShort and ErrMalformedHeader are the two construction-failure
// modes a ROM image can trigger; everything else about the core is total
// once constructed.
var (
	ErrROMTooShort     = errors.New("core: rom image shorter than cartridge header")
	ErrMalformedHeader = errors.New("core: rom header fails basic sanity checks")
)

// Header holds the subset of cartridge header fields this core consumes:
// DMG-palette derivation and CGB-mode detection. Every other byte is passed
// to the memory subsystem unchanged; this core never inspects cartridge
// type, ROM/RAM size, or MBC fields.
type Header struct {
	Title       string
	CGBFlag     byte
	CGBSupports bool // true for both "CGB only" (0xC0) and "CGB enhanced" (0x80)
}

// ParseHeader validates and extracts the header fields this core needs.
// Per spec, a too-short image or a header that fails basic sanity checks is
// a construction failure; everything else is accepted as-is (this core does
// not validate the header checksum, since real hardware does not halt on a
// mismatched one either — only the DMG boot ROM does, and that is outside
// this core's scope).
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < minHeaderLength {
		return Header{}, fmt.Errorf("%w: got %d bytes, need at least %d", ErrROMTooShort, len(rom), minHeaderLength)
	}

	titleBytes := rom[titleAddress : titleAddress+titleLength]
	end := len(titleBytes)
	for end > 0 && titleBytes[end-1] == 0 {
		end--
	}
	title := string(titleBytes[:end])
	for _, b := range titleBytes[:end] {
		if b < 0x20 || b > 0x7E {
			return Header{}, fmt.Errorf("%w: title contains non-printable byte 0x%02X", ErrMalformedHeader, b)
		}
	}

	cgbFlag := rom[cgbFlagAddress]
	return Header{
		Title:       title,
		CGBFlag:     cgbFlag,
		CGBSupports: cgbFlag == 0x80 || cgbFlag == 0xC0,
	}, nil
}

// isNintendoLicensed mirrors the boot ROM's own check for whether to derive
// a boot-compat palette at all: old-licensee 0x33 delegates to the new
// two-character licensee code, which must read "01" (Nintendo); otherwise
// the old-licensee byte itself must be 0x01.
func isNintendoLicensed(rom []byte) bool {
	if rom[oldLicenseeAddress] == 0x33 {
		return rom[newLicenseeAddress] == '0' && rom[newLicenseeAddress+1] == '1'
	}
	return rom[oldLicenseeAddress] == 0x01
}

func romNameHash(rom []byte) byte {
	if !isNintendoLicensed(rom) {
		return 0x00
	}
	var hash byte
	for i := titleAddress; i <= cgbFlagAddress; i++ {
		hash += rom[i]
	}
	return hash
}

func rgb(hex uint32) lcd.RGBA {
	return lcd.RGBA{R: byte(hex >> 16), G: byte(hex >> 8), B: byte(hex), A: 0xFF}
}

// paletteEntry is one boot-compat palette selection, keyed by the rom-name
// hash (and, for hashes shared by multiple titles, the fourth title
// character) exactly as the CGB boot ROM itself discriminates.
type paletteEntry struct {
	hash      byte
	char4     byte // 0 means "matches regardless of the fourth title character"
	bgp       [4]uint32
	obp0      [4]uint32
	obp1      [4]uint32
	obp0IsBgp bool
	obp1IsBgp bool
}

// bootCompatTable is a representative subset of the real CGB boot ROM's
// full palette-selection table (documented at
// https://tcrf.net/Notes:Game_Boy_Color_Bootstrap_ROM#Assigned_Palette_Configurations).
// It is intentionally not exhaustive — see DESIGN.md for the covered-hash
// list; an unmatched hash falls back to plain greyscale, which is also what
// a non-Nintendo-licensed ROM gets.
var bootCompatTable = []paletteEntry{
	{hash: 0x01, bgp: [4]uint32{0xFFFFFF, 0xFFAD63, 0x843100, 0x000000}, obp0: [4]uint32{0xFFFFFF, 0x63A5FF, 0x0000FF, 0x000000}, obp1: [4]uint32{0xFFFFFF, 0x7BFF31, 0x008400, 0x000000}},
	{hash: 0x0C, bgp: [4]uint32{0xFFFFFF, 0xFFAD63, 0x843100, 0x000000}, obp0IsBgp: true, obp1IsBgp: true},
	{hash: 0x0D, char4: 'E', bgp: [4]uint32{0xFFFFFF, 0x8C8CDE, 0x52528C, 0x000000}, obp0: [4]uint32{0xFFC542, 0xFFD600, 0x943A00, 0x4A0000}, obp1IsBgp: true},
	{hash: 0x0D, char4: 'R', bgp: [4]uint32{0xFFFFFF, 0xFFFF00, 0xFF0000, 0x000000}, obp0IsBgp: true, obp1: [4]uint32{0xFFFFFF, 0x5ABDFF, 0xFF0000, 0x0000FF}},
	{hash: 0x10, bgp: [4]uint32{0xFFFFFF, 0xFFAD63, 0x843100, 0x000000}, obp0: [4]uint32{0xFFFFFF, 0x63A5FF, 0x0000FF, 0x000000}, obp1: [4]uint32{0xFFFFFF, 0x7BFF31, 0x008400, 0x000000}},
	{hash: 0x14, bgp: [4]uint32{0xFFFFFF, 0xFF8484, 0x943A3A, 0x000000}, obp0: [4]uint32{0xFFFFFF, 0x7BFF31, 0x008400, 0x000000}, obp1IsBgp: true},
	{hash: 0x15, bgp: [4]uint32{0xFFFFFF, 0xFFFF00, 0xFF0000, 0x000000}, obp0IsBgp: true, obp1IsBgp: true},
	{hash: 0x16, bgp: [4]uint32{0xFFFFFF, 0xFFAD63, 0x843100, 0x000000}, obp0IsBgp: true, obp1IsBgp: true},
	{hash: 0x17, bgp: [4]uint32{0xFFFFFF, 0x7BFF31, 0x008400, 0x000000}, obp0: [4]uint32{0xFFFFFF, 0xFF8484, 0x943A3A, 0x000000}, obp1: [4]uint32{0xFFFFFF, 0x63A5FF, 0x0000FF, 0x000000}},
	{hash: 0x19, bgp: [4]uint32{0xFFFFFF, 0xFF9C00, 0xFF0000, 0x000000}, obp0: [4]uint32{0xFFFFFF, 0xFF8484, 0x943A3A, 0x000000}, obp1IsBgp: true},
	{hash: 0x1D, bgp: [4]uint32{0xA59CFF, 0xFFFF00, 0x006300, 0x000000}, obp0: [4]uint32{0xFF6352, 0xD60000, 0x630000, 0x000000}, obp1IsBgp: true},
	{hash: 0x29, bgp: [4]uint32{0xFFFFFF, 0xFFAD63, 0x843100, 0x000000}, obp0: [4]uint32{0xFFFFFF, 0x63A5FF, 0x0000FF, 0x000000}, obp1: [4]uint32{0xFFFFFF, 0x7BFF31, 0x008400, 0x000000}},
	{hash: 0x34, bgp: [4]uint32{0xFFFFFF, 0x7BFF00, 0xB57300, 0x000000}, obp0: [4]uint32{0xFFFFFF, 0xFF8484, 0x943A3A, 0x000000}, obp1IsBgp: true},
}

func toBootPalette(e paletteEntry) lcd.BootPalette {
	bp := lcd.BootPalette{}
	for i := 0; i < 4; i++ {
		bp.BG[i] = rgb(e.bgp[i])
	}
	if e.obp0IsBgp {
		bp.OBJ0 = bp.BG
	} else {
		for i := 0; i < 4; i++ {
			bp.OBJ0[i] = rgb(e.obp0[i])
		}
	}
	if e.obp1IsBgp {
		bp.OBJ1 = bp.BG
	} else {
		for i := 0; i < 4; i++ {
			bp.OBJ1[i] = rgb(e.obp1[i])
		}
	}
	return bp
}

// dmgBootPalette derives the DMG-on-CGB boot-compatibility palette from the
// ROM header's publisher + title hash, exactly as the CGB boot ROM does.
// Falls back to GreyscaleBootPalette when the hash matches no known entry
// (including every non-Nintendo-licensed ROM, hash 0x00).
func dmgBootPalette(rom []byte) lcd.BootPalette {
	hash := romNameHash(rom)
	if hash == 0 {
		return lcd.GreyscaleBootPalette
	}
	char4 := rom[titleAddress+3]
	for _, e := range bootCompatTable {
		if e.hash != hash {
			continue
		}
		if e.char4 != 0 && e.char4 != char4 {
			continue
		}
		return toBootPalette(e)
	}
	return lcd.GreyscaleBootPalette
}
