// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package eeprom

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

var errNack = errors.New("no ack")

// fakeChip models a 24Cxx on the bench: block switched or pointer
// addressed memory, and a write cycle that NACKs liveness probes until
// it drains.
type fakeChip struct {
	geo     Geometry
	mem     []byte
	pointer int

	// busy is the count of probes still to NACK; each data write
	// reloads it from busyPer.
	busy    int
	busyPer int

	// failAll makes every transaction return err; writesBefore, if
	// positive, permits that many data writes first.
	failAll      bool
	writesBefore int
	err          error

	dataWrites int
}

func newFakeChip(g Geometry) *fakeChip {
	return &fakeChip{geo: g, mem: make([]byte, g.Size), err: errNack}
}

func (f *fakeChip) failing() bool {
	return f.failAll && f.dataWrites >= f.writesBefore
}

func (f *fakeChip) block(dev int) (int, error) {
	if f.geo.BlockBits > 0 {
		block := dev - f.geo.Base
		if block < 0 || block >= 1<<uint(f.geo.BlockBits) {
			return 0, errNack
		}
		return block, nil
	}
	if dev != f.geo.Base {
		return 0, errNack
	}
	return 0, nil
}

func (f *fakeChip) WriteTransaction(dev int, payload []byte) error {
	if len(payload) == 0 {
		// liveness probe
		if f.busy > 0 {
			f.busy--
			return errNack
		}
		return nil
	}
	if f.failing() {
		return f.err
	}
	block, err := f.block(dev)
	if err != nil {
		return err
	}
	if f.geo.AddrBits == 8 {
		if len(payload) != 2 {
			return fmt.Errorf("payload %d bytes: unexpected",
				len(payload))
		}
		f.mem[block<<8|int(payload[0])] = payload[1]
		f.busy = f.busyPer
		f.dataWrites++
		return nil
	}
	off := int(payload[0])<<8 | int(payload[1])
	switch len(payload) {
	case 2:
		f.pointer = off
	case 3:
		if off >= len(f.mem) {
			return errNack
		}
		f.mem[off] = payload[2]
		f.busy = f.busyPer
		f.dataWrites++
	default:
		return fmt.Errorf("payload %d bytes: unexpected", len(payload))
	}
	return nil
}

func (f *fakeChip) ReadTransaction(dev int, payload []byte, n int) ([]byte, error) {
	if f.failing() {
		return nil, f.err
	}
	if n != 1 {
		return nil, fmt.Errorf("read %d bytes: unexpected", n)
	}
	block, err := f.block(dev)
	if err != nil {
		return nil, err
	}
	var a int
	if len(payload) > 0 {
		a = block<<8 | int(payload[0])
	} else {
		a = f.pointer
		f.pointer++
	}
	if a < 0 || a >= len(f.mem) {
		return nil, errNack
	}
	return []byte{f.mem[a]}, nil
}

func newTestDevice(t *testing.T, chip string) (*Device, *fakeChip) {
	t.Helper()
	f := newFakeChip(ByName[chip])
	d, err := NewDevice(f.geo, f)
	if err != nil {
		t.Fatal(err)
	}
	return d, f
}

func TestRoundTrip(t *testing.T) {
	for _, chip := range []string{"24c08", "24c64"} {
		d, _ := newTestDevice(t, chip)
		for _, addr := range []int{0, 1, 0xff, 0x100, d.Size/2 - 1, d.Size - 1} {
			v := byte(addr * 7)
			if err := d.WriteByte(addr, v); err != nil {
				t.Fatalf("%s: write %#x: %v", chip, addr, err)
			}
			got, err := d.ReadByte(addr)
			if err != nil {
				t.Fatalf("%s: read %#x: %v", chip, addr, err)
			}
			if got != v {
				t.Errorf("%s: %#x: got %#x, want %#x",
					chip, addr, got, v)
			}
		}
	}
}

func TestRangeRoundTripCrossesBlocks(t *testing.T) {
	d, f := newTestDevice(t, "24c08")
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(0xA0 + i)
	}
	// 0x0f8..0x107 straddles the 0x54/0x55 device select rollover.
	if err := d.WriteRange(0x0f8, data); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.mem[0x0f8:0x108], data) {
		t.Errorf("memory: got % x, want % x", f.mem[0x0f8:0x108], data)
	}
	rb, err := d.ReadRange(0x0f8, len(data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rb, data) {
		t.Errorf("read back: got % x, want % x", rb, data)
	}
}

func TestRangeRoundTripWide(t *testing.T) {
	d, _ := newTestDevice(t, "24c64")
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	start := d.Size/2 - 16
	if err := d.WriteRange(start, data); err != nil {
		t.Fatal(err)
	}
	rb, err := d.ReadRange(start, len(data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rb, data) {
		t.Errorf("got % x, want % x", rb, data)
	}
}

func TestOutOfRange(t *testing.T) {
	d, _ := newTestDevice(t, "24c08")
	if err := d.WriteByte(d.Size, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("write past end: got %v", err)
	}
	if _, err := d.ReadByte(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read negative: got %v", err)
	}
	if _, err := d.ReadRange(d.Size-4, 8); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read range past end: got %v", err)
	}
	if err := d.WriteRange(d.Size-4, make([]byte, 8)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("write range past end: got %v", err)
	}
	if err := d.WriteByte(d.Size-1, 0xAA); err != nil {
		t.Errorf("write last byte: %v", err)
	}
}

func TestWriteCyclePolled(t *testing.T) {
	d, f := newTestDevice(t, "24c08")
	f.busyPer = 3
	if err := d.WriteByte(0x10, 0x5A); err != nil {
		t.Fatal(err)
	}
	// WriteByte must not return before the modeled cycle drained.
	if f.busy != 0 {
		t.Errorf("%d busy probes remain", f.busy)
	}
	got, err := d.ReadByte(0x10)
	if err != nil || got != 0x5A {
		t.Errorf("read back: %#x, %v", got, err)
	}
}

func TestWriteCycleBudgetExhausted(t *testing.T) {
	d, f := newTestDevice(t, "24c08")
	// A transport that never acknowledges probes must not fail the
	// write; the bounded budget plus grace delay stands in.
	f.busyPer = 1 << 30
	if err := d.WriteByte(0x10, 0x5A); err != nil {
		t.Fatal(err)
	}
	got, err := d.ReadByte(0x10)
	if err != nil || got != 0x5A {
		t.Errorf("read back: %#x, %v", got, err)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	d, f := newTestDevice(t, "24c08")
	f.failAll = true
	f.err = errors.New("i2c: remote I/O error")
	if err := d.WriteByte(0, 1); err != f.err {
		t.Errorf("write: got %v, want %v", err, f.err)
	}
	if _, err := d.ReadByte(0); err != f.err {
		t.Errorf("read: got %v, want %v", err, f.err)
	}
}

func TestPartialWriteCommit(t *testing.T) {
	d, f := newTestDevice(t, "24c08")
	f.failAll = true
	f.writesBefore = 3
	f.err = errors.New("i2c: remote I/O error")
	err := d.WriteRange(0x100, []byte{1, 2, 3, 4, 5})
	if err != f.err {
		t.Fatalf("got %v, want %v", err, f.err)
	}
	// The first three bytes were each synchronized to completion
	// before the failure, so they are committed.
	if !bytes.Equal(f.mem[0x100:0x103], []byte{1, 2, 3}) {
		t.Errorf("committed prefix: % x", f.mem[0x100:0x103])
	}
	if f.mem[0x103] != 0 {
		t.Errorf("byte after failure committed: %#x", f.mem[0x103])
	}
}
