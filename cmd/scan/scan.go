// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package scan provides the I2C bus probe command.
package scan

import (
	"fmt"
	"strconv"

	"github.com/platinasystems/parms"

	"github.com/platinasystems/iotbase-diag/internal/smbus"
	"github.com/platinasystems/iotbase-diag/lang"
)

type Command struct{}

func (Command) String() string { return "scan" }

func (Command) Usage() string { return "scan [-bus BUS]" }

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "probe an i2c bus for responding devices",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Quick-write probe each 7 bit address of the given bus and list the
	devices that acknowledged. A 24C08 answers on four consecutive
	addresses (e.g. 0x54..0x57) because its block select bits live in
	the device address.

OPTIONS
	-bus BUS
		I2C bus number (default 1)`,
	}
}

func (Command) Main(args ...string) error {
	parm, args := parms.New(args, "-bus")
	if len(parm.ByName["-bus"]) == 0 {
		parm.ByName["-bus"] = "1"
	}
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	busIndex, err := strconv.Atoi(parm.ByName["-bus"])
	if err != nil {
		return fmt.Errorf("%s: invalid bus", parm.ByName["-bus"])
	}
	conn, err := smbus.Open(busIndex)
	if err != nil {
		return err
	}
	defer conn.Close()
	for _, a := range conn.Scan() {
		fmt.Printf("%#x\n", a)
	}
	return nil
}
