// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package eeprom

import (
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"
)

// Transport is the bus capability consumed by Device. A zero length
// WriteTransaction payload is a liveness probe; the chip NACKs it while
// an internal write cycle is in progress.
type Transport interface {
	WriteTransaction(dev int, payload []byte) error
	ReadTransaction(dev int, payload []byte, n int) ([]byte, error)
}

const (
	// ackPollBudget bounds the wall clock spent probing for write
	// cycle completion; a 24Cxx cycle is 5 ms worst case.
	ackPollBudget = 20 * time.Millisecond
	ackPollPace   = time.Millisecond
	// writeCycleGrace covers transports that cannot probe at all.
	writeCycleGrace = 5 * time.Millisecond
)

// Device borrows a Transport for the duration of a test session; the
// transport must outlive it and is never closed here.
type Device struct {
	Geometry
	t Transport

	// Verbose logs every byte transfer.
	Verbose bool
}

func NewDevice(g Geometry, t Transport) (*Device, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	return &Device{Geometry: g, t: t}, nil
}

// WriteByte writes one byte at the absolute memory address and waits for
// the chip's internal write cycle to finish.
func (d *Device) WriteByte(addr int, value byte) error {
	dev, off, err := d.Resolve(addr)
	if err != nil {
		return err
	}
	var payload []byte
	if d.AddrBits == 8 {
		payload = []byte{byte(off), value}
	} else {
		payload = []byte{byte(off >> 8), byte(off), value}
	}
	if d.Verbose {
		log.Printf("eeprom write dev %#x offset %#x data %#x",
			dev, off, value)
	}
	if err = d.t.WriteTransaction(dev, payload); err != nil {
		return err
	}
	d.waitWriteCycle(dev)
	return nil
}

// ReadByte reads one byte from the absolute memory address. The narrow
// family reads with a combined offset+read transaction; the linear
// family first writes the two byte pointer, then reads at the pointer.
func (d *Device) ReadByte(addr int) (byte, error) {
	dev, off, err := d.Resolve(addr)
	if err != nil {
		return 0, err
	}
	var buf []byte
	if d.AddrBits == 8 {
		buf, err = d.t.ReadTransaction(dev, []byte{byte(off)}, 1)
	} else {
		err = d.t.WriteTransaction(dev,
			[]byte{byte(off >> 8), byte(off)})
		if err == nil {
			buf, err = d.t.ReadTransaction(dev, nil, 1)
		}
	}
	if err != nil {
		return 0, err
	}
	if d.Verbose {
		log.Printf("eeprom read dev %#x offset %#x data %#x",
			dev, off, buf[0])
	}
	return buf[0], nil
}

// WriteRange writes byte by byte in ascending order, each byte
// synchronized to completion before the next begins. That trades
// throughput for immunity to page and block boundary hazards. On a
// transport failure at byte k, bytes [0,k) are already committed to the
// chip; read them back rather than assuming the range is untouched.
func (d *Device) WriteRange(start int, data []byte) error {
	if err := d.checkRange(start, len(data)); err != nil {
		return err
	}
	for i, b := range data {
		if err := d.WriteByte(start+i, b); err != nil {
			return err
		}
	}
	return nil
}

// ReadRange reads length bytes in ascending order, bounds checked once
// up front before any transaction is issued.
func (d *Device) ReadRange(start, length int) ([]byte, error) {
	if err := d.checkRange(start, length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	for i := range buf {
		b, err := d.ReadByte(start + i)
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

func (d *Device) checkRange(start, length int) error {
	if start < 0 || length < 0 || start+length > d.Size {
		return fmt.Errorf("[%#x,%#x): %w", start, start+length,
			ErrOutOfRange)
	}
	return nil
}

// waitWriteCycle ack-polls dev until it acknowledges a zero length probe
// or the time budget runs out. The chip legitimately NACKs while its
// internal write cycle is in progress, so a failed probe means "still
// busy", never an error; if no probe ever succeeds, a worst case grace
// delay stands in. This is a best effort delay, not a correctness gate;
// the read back comparison in the battery is the real check.
func (d *Device) waitWriteCycle(dev int) {
	b := &backoff.Backoff{
		Min:    ackPollPace,
		Max:    2 * ackPollPace,
		Factor: 1.5,
	}
	for t0 := time.Now(); time.Since(t0) < ackPollBudget; {
		if d.t.WriteTransaction(dev, nil) == nil {
			return
		}
		time.Sleep(b.Duration())
	}
	time.Sleep(writeCycleGrace)
}
