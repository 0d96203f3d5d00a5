// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package eeprom provides the carrier board EEPROM validation command.
package eeprom

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"

	"github.com/platinasystems/iotbase-diag/internal/eeprom"
	"github.com/platinasystems/iotbase-diag/internal/report"
	"github.com/platinasystems/iotbase-diag/internal/smbus"
	"github.com/platinasystems/iotbase-diag/lang"
)

type Command struct{}

func (Command) String() string { return "eeprom" }

func (Command) Usage() string {
	return "eeprom [-verbose] [-bus BUS] [-chip CHIP] [-base ADDR] [-dir DIR] [-verify BIN]"
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "validate carrier board eeprom and write report",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Run the EEPROM validation battery and write timestamped TXT/JSON
	report artifacts: last byte, page crossing, block crossing, and a
	128 byte pseudo-random block at the middle of the address space
	that is checksummed and saved for later retention verification.

	Every test runs regardless of earlier failures; a mismatch is a
	diagnostic signal, not a fatal condition.

OPTIONS
	-bus BUS
		I2C bus number (default 1)

	-chip CHIP
		EEPROM model, 24c08 or 24c64 (default 24c08)

	-base ADDR
		Base device select address; defaults to the chip preset
		(0x54 for 24c08, 0x50 for 24c64)

	-dir DIR
		Report directory (default ./reports)

	-verify BIN
		Retention-only verification against a saved mid block
		snapshot; no writes are issued to the chip

	-verbose
		Log every byte transfer`,
	}
}

func (Command) Main(args ...string) error {
	flag, args := flags.New(args, "-verbose")
	parm, args := parms.New(args, "-bus", "-chip", "-base", "-dir",
		"-verify")
	for k, v := range map[string]string{
		"-bus":  "1",
		"-chip": "24c08",
		"-dir":  "reports",
	} {
		if len(parm.ByName[k]) == 0 {
			parm.ByName[k] = v
		}
	}
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}

	busIndex, err := strconv.Atoi(parm.ByName["-bus"])
	if err != nil {
		return fmt.Errorf("%s: invalid bus", parm.ByName["-bus"])
	}
	g, found := eeprom.ByName[strings.ToLower(parm.ByName["-chip"])]
	if !found {
		return fmt.Errorf("%s: unknown chip, have %v",
			parm.ByName["-chip"], eeprom.Names())
	}
	if s := parm.ByName["-base"]; len(s) > 0 {
		base, err := strconv.ParseInt(s, 0, 0)
		if err != nil {
			return fmt.Errorf("%s: invalid base address", s)
		}
		g.Base = int(base)
	}

	ses, err := report.New(parm.ByName["-dir"])
	if err != nil {
		return err
	}
	defer ses.Close()
	w := ses.W()

	fmt.Fprintln(w, "# IoTBase EEPROM Validation Report")
	fmt.Fprintln(w, "timestamp:", ses.Tag)
	fmt.Fprintln(w, "session:", ses.Id)
	if hostname, err := os.Hostname(); err == nil {
		fmt.Fprintln(w, "host:", hostname)
	}
	if buf, err := ioutil.ReadFile("/proc/version"); err == nil {
		fmt.Fprint(w, "kernel: ", string(buf))
	}
	fmt.Fprintln(w)

	conn, err := smbus.Open(busIndex)
	if err != nil {
		return err
	}
	defer conn.Close()

	scanned := conn.Scan()
	fmt.Fprintln(w, "## I2C scan (quick write)")
	fmt.Fprintln(w, "found:", hexList(scanned))
	warnAbsent(w, g, scanned)
	fmt.Fprintln(w)

	dev, err := eeprom.NewDevice(g, conn)
	if err != nil {
		return err
	}
	dev.Verbose = flag.ByName["-verbose"]

	fmt.Fprintf(w, "Selected chip: %s (base=%#x, size=%d bytes)\n\n",
		g.Name, g.Base, g.Size)

	results := &report.Results{
		Session:   ses.Id,
		Timestamp: ses.Tag,
		Chip:      g.Name,
		BaseAddr:  fmt.Sprintf("%#x", g.Base),
		Bus:       busIndex,
		ScanAddrs: hexList(scanned),
	}
	battery := &eeprom.Battery{Dev: dev, Store: ses, W: w}

	if bin := parm.ByName["-verify"]; len(bin) > 0 {
		fmt.Fprintln(w, "## Retention Verification Only")
		data, meta, err := report.LoadSnapshot(bin)
		if err != nil {
			return err
		}
		r := battery.RetentionVerify(data, meta)
		r.BinPath = bin
		results.Tests = append(results.Tests, r)
	} else {
		fmt.Fprintln(w, "## Test Suite")
		t0 := time.Now()
		results.Tests = battery.Run()
		results.TotalTimeMs = float64(time.Since(t0)) /
			float64(time.Millisecond)
		fmt.Fprintf(w, "\nTotal test time: %.1f ms\n",
			results.TotalTimeMs)
	}
	results.Count()
	fmt.Fprintf(w, "pass: %d  fail: %d\n", results.Pass, results.Fail)

	fn, err := ses.WriteResults(results)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Artifacts:")
	fmt.Fprintln(w, "  -", ses.TxtPath())
	fmt.Fprintln(w, "  -", fn)
	for _, t := range results.Tests {
		if len(t.BinPath) > 0 {
			fmt.Fprintln(w, "  -", t.BinPath)
		}
	}
	return nil
}

func hexList(addrs []int) []string {
	list := make([]string, len(addrs))
	for i, a := range addrs {
		list[i] = fmt.Sprintf("%#x", a)
	}
	return list
}

// warnAbsent notes when nothing answered in the device select range the
// chosen chip should occupy, the usual sign of wiring or power trouble.
func warnAbsent(w io.Writer, g eeprom.Geometry, scanned []int) {
	n := 1 << uint(g.BlockBits)
	for _, a := range scanned {
		if a >= g.Base && a < g.Base+n {
			return
		}
	}
	fmt.Fprintf(w, "WARNING: %s not detected at %#x..%#x; check wiring and power.\n",
		g.Name, g.Base, g.Base+n-1)
}
