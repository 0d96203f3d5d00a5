// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package eeprom provides bounds checked, write-cycle synchronized byte
// access to the 24Cxx EEPROM families found on IoTBase carrier boards,
// plus the validation battery run against them.
//
// Two addressing families are supported. The narrow, block switched
// family (24C08) encodes the high address bits into the device select
// address itself, so a 1 KB part answers on four consecutive bus
// addresses. The linear family (24C64) answers on one bus address and
// takes a two byte pointer in band.
package eeprom

import (
	"errors"
	"fmt"
	"sort"
)

var ErrOutOfRange = errors.New("address out of range")

// Geometry describes one chip variant. It is constructed once per
// session, from a preset in ByName, and never modified afterwards.
type Geometry struct {
	Name string

	// Size is the total addressable bytes.
	Size int

	// PageSize is bytes per write page. It only steers the choice of
	// boundary crossing test addresses; writes are always byte
	// granular.
	PageSize int

	// BlockBits is the count of high address bits folded into the
	// device select address, zero for linear addressed chips.
	BlockBits int

	// AddrBits is 8 for the narrow family, whose internal offset fits
	// the command byte, or 16 for chips taking a two byte pointer.
	AddrBits int

	// Base is the lowest device select address.
	Base int
}

// ByName are the chip presets selectable from the command line. Base may
// be overridden per board wiring.
var ByName = map[string]Geometry{
	"24c08": {
		Name:      "24c08",
		Size:      1 << 10,
		PageSize:  16,
		BlockBits: 2,
		AddrBits:  8,
		Base:      0x54,
	},
	"24c64": {
		Name:      "24c64",
		Size:      8 << 10,
		PageSize:  32,
		BlockBits: 0,
		AddrBits:  16,
		Base:      0x50,
	},
}

func Names() []string {
	names := make([]string, 0, len(ByName))
	for k := range ByName {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (g Geometry) Check() error {
	if g.Size <= 0 {
		return fmt.Errorf("%s: size %d: invalid", g.Name, g.Size)
	}
	if g.AddrBits != 8 && g.AddrBits != 16 {
		return fmt.Errorf("%s: %d address bits: invalid", g.Name,
			g.AddrBits)
	}
	if g.BlockBits < 0 || g.BlockBits > 8 {
		return fmt.Errorf("%s: %d block bits: invalid", g.Name,
			g.BlockBits)
	}
	if g.BlockBits > 0 {
		// Block switching is specific to the narrow address family.
		if g.AddrBits != 8 {
			return fmt.Errorf("%s: block switched chip with %d bit offsets",
				g.Name, g.AddrBits)
		}
		if g.Size != (1<<uint(g.BlockBits))*256 {
			return fmt.Errorf("%s: size %d does not fit %d block bits",
				g.Name, g.Size, g.BlockBits)
		}
	}
	return nil
}

// Resolve maps a logical memory address to the device select address and
// internal offset for this geometry. It is pure; selectors are
// recomputed per access and never cached.
func (g Geometry) Resolve(addr int) (dev, offset int, err error) {
	if addr < 0 || addr >= g.Size {
		return 0, 0, fmt.Errorf("%#x: %w", addr, ErrOutOfRange)
	}
	if g.BlockBits > 0 {
		block := (addr >> 8) & ((1 << uint(g.BlockBits)) - 1)
		return g.Base | block, addr & 0xff, nil
	}
	return g.Base, addr, nil
}
