// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package diag dispatches the IoTBase carrier board diagnostic commands.
// Each command is a package under cmd/ that plots itself by name; this
// package provides the name dispatch plus the builtin apropos, help, man,
// and usage helpers.
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/platinasystems/iotbase-diag/lang"
)

// Helpers may be given as commands or as hyphen prefaced flags of another
// command, e.g. "eeprom -usage".
var Helpers = map[string]struct{}{
	"apropos": {},
	"help":    {},
	"man":     {},
	"usage":   {},
}

type Cmd interface {
	Apropos() lang.Alt
	Main(...string) error
	// String returns the command name.
	String() string
	Usage() string
	/* Optional
	Man() lang.Alt
	*/
}

type manner interface {
	Man() lang.Alt
}

type Diag struct {
	Name   string
	Title  lang.Alt
	ByName map[string]Cmd
}

func New(name string, title lang.Alt) *Diag {
	return &Diag{
		Name:   name,
		Title:  title,
		ByName: make(map[string]Cmd),
	}
}

// Plot commands on the name map.
func (d *Diag) Plot(cmds ...Cmd) {
	for _, v := range cmds {
		name := v.String()
		if _, found := d.ByName[name]; found {
			panic(fmt.Errorf("%s: duplicate", name))
		}
		d.ByName[name] = v
	}
}

func (d *Diag) keys() []string {
	keys := make([]string, 0, len(d.ByName))
	for k := range d.ByName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Swap hyphen prefaced helper flags with command, so,
//
//	COMMAND -[-]HELPER [ARGS]...
//
// becomes
//
//	HELPER COMMAND [ARGS]...
func swap(args []string) {
	n := len(args)
	if n > 0 && strings.HasPrefix(args[0], "-") {
		opt := strings.TrimLeft(args[0], "-")
		if opt == "h" {
			opt = "help"
		}
		if _, found := Helpers[opt]; found {
			args[0] = opt
		}
	} else if n > 1 && strings.HasPrefix(args[1], "-") {
		opt := strings.TrimLeft(args[1], "-")
		if opt == "h" {
			opt = "help"
		}
		if _, found := Helpers[opt]; found {
			args[1] = args[0]
			args[0] = opt
		}
	}
}

// Main runs the args[0] command in the current context.
func (d *Diag) Main(args ...string) error {
	if len(args) > 0 && filepath.Base(args[0]) == d.Name {
		args = args[1:]
	}
	if len(args) == 0 {
		return d.usage()
	}
	swap(args)
	name := args[0]
	args = args[1:]
	switch name {
	case "apropos":
		return d.apropos(args...)
	case "help":
		return d.help(args...)
	case "man":
		return d.man(args...)
	case "usage":
		return d.usage(args...)
	}
	v, found := d.ByName[name]
	if !found {
		return fmt.Errorf("%s: command not found", name)
	}
	return v.Main(args...)
}

// Run is the program entry point; errors go to stderr with exit status 1.
func (d *Diag) Run() {
	if err := d.Main(os.Args...); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", d.Name, err)
		os.Exit(1)
	}
}
