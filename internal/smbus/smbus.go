// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package smbus adapts a Linux /dev/i2c-N bus to the byte transaction
// capability the eeprom package consumes.
package smbus

import (
	"fmt"

	"github.com/platinasystems/i2c"
)

// Conn is an exclusively owned bus handle. The underlying protocol has
// no way to interleave transactions safely, so no two devices may share
// a Conn concurrently; open it for the session and close it on every
// exit path.
type Conn struct {
	bus i2c.Bus
}

func Open(index int) (*Conn, error) {
	c := new(Conn)
	if err := c.bus.Open(index); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) Close() error { return c.bus.Close() }

// WriteTransaction issues one write message to dev. A zero length
// payload maps to an SMBus quick write, the conventional liveness probe
// a 24Cxx NACKs mid write-cycle.
func (c *Conn) WriteTransaction(dev int, payload []byte) error {
	if len(payload) == 0 {
		return c.quick(dev)
	}
	return c.bus.Send([]i2c.Message{{
		Address: uint16(dev),
		Data:    payload,
	}})
}

// ReadTransaction writes payload, if any, then reads n bytes from dev,
// all in one combined transaction with a single STOP.
func (c *Conn) ReadTransaction(dev int, payload []byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("read %d bytes: invalid", n)
	}
	buf := make([]byte, n)
	msgs := make([]i2c.Message, 0, 2)
	if len(payload) > 0 {
		msgs = append(msgs, i2c.Message{
			Address: uint16(dev),
			Data:    payload,
		})
	}
	msgs = append(msgs, i2c.Message{
		Address: uint16(dev),
		Flags:   i2c.ReadData,
		Data:    buf,
	})
	if err := c.bus.Send(msgs); err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan quick-write probes the 7 bit address range, returning the device
// addresses that acknowledged.
func (c *Conn) Scan() []int {
	var found []int
	for a := 0x03; a < 0x78; a++ {
		if c.quick(a) == nil {
			found = append(found, a)
		}
	}
	return found
}

func (c *Conn) quick(dev int) error {
	if err := c.bus.ForceSlaveAddress(dev); err != nil {
		return err
	}
	return c.bus.Do(i2c.Write, 0, i2c.Quick, nil)
}
