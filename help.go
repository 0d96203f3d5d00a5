// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package diag

import (
	"fmt"
	"strings"
)

func (d *Diag) apropos(args ...string) error {
	pad := func(n int) {
		if n < 0 {
			fmt.Print("\n\t\t")
		} else {
			fmt.Print("                "[:n])
		}
	}
	if len(args) == 0 {
		for _, k := range d.keys() {
			fmt.Print(k)
			pad(16 - len(k))
			fmt.Println(d.ByName[k].Apropos())
		}
		return nil
	}
	for _, k := range d.keys() {
		for _, arg := range args {
			if strings.Contains(k, arg) {
				fmt.Print(k)
				pad(16 - len(k))
				fmt.Println(d.ByName[k].Apropos())
				break
			}
		}
	}
	return nil
}

func (d *Diag) help(args ...string) error {
	if len(args) == 0 {
		fmt.Println(d.Title)
		fmt.Println()
		return d.apropos()
	}
	v, found := d.ByName[args[0]]
	if !found {
		return fmt.Errorf("%s: command not found", args[0])
	}
	fmt.Println(v.Apropos())
	fmt.Println("usage:", v.Usage())
	return nil
}

func (d *Diag) man(args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("COMMAND: missing")
	}
	v, found := d.ByName[args[0]]
	if !found {
		return fmt.Errorf("%s: command not found", args[0])
	}
	fmt.Println("NAME")
	fmt.Printf("\t%s - %s\n\n", v, v.Apropos())
	fmt.Println("SYNOPSIS")
	fmt.Printf("\t%s\n", v.Usage())
	if m, found := v.(manner); found {
		fmt.Println(m.Man())
	}
	return nil
}

func (d *Diag) usage(args ...string) error {
	if len(args) == 0 {
		fmt.Println("usage:")
		for _, k := range d.keys() {
			fmt.Printf("\t%s\n", d.ByName[k].Usage())
		}
		return nil
	}
	v, found := d.ByName[args[0]]
	if !found {
		return fmt.Errorf("%s: command not found", args[0])
	}
	fmt.Println("usage:", v.Usage())
	return nil
}
