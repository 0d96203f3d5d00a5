// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package main

import (
	diag "github.com/platinasystems/iotbase-diag"
	"github.com/platinasystems/iotbase-diag/cmd/eeprom"
	"github.com/platinasystems/iotbase-diag/cmd/scan"
	"github.com/platinasystems/iotbase-diag/lang"
)

func main() {
	d := diag.New("iotbase-diag", lang.Alt{
		lang.EnUS: "IoTBase carrier board diagnostics",
	})
	d.Plot(eeprom.Command{}, scan.Command{})
	d.Run()
}
