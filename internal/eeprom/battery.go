// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package eeprom

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"io/ioutil"
	"math/rand"
	"time"
)

const (
	lastByteSentinel = 0xAA
	pageCrossNear    = 0x0F0
	pageCrossLen     = 32
	blockCrossStart  = 0x0F8
	blockCrossLen    = 16
	midBlockLen      = 128
	midBlockSeed     = 1234
)

// Result is the outcome of one validation scenario, immutable once
// produced and serialized verbatim into the session JSON.
type Result struct {
	Name     string  `json:"name"`
	OK       bool    `json:"ok"`
	TimeMs   float64 `json:"time_ms"`
	Addr     string  `json:"addr,omitempty"`
	Range    string  `json:"range,omitempty"`
	Length   int     `json:"length,omitempty"`
	Value    string  `json:"value,omitempty"`
	CRC32    string  `json:"crc32,omitempty"`
	CRCSaved string  `json:"crc_saved,omitempty"`
	CRCNow   string  `json:"crc_now,omitempty"`
	BinPath  string  `json:"bin_path,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// SnapshotMeta records where a snapshot was taken so a later
// verification need not rely on the midpoint convention alone.
type SnapshotMeta struct {
	Chip   string `json:"chip"`
	Addr   int    `json:"addr"`
	Length int    `json:"length"`
	CRC32  uint32 `json:"crc32"`
}

// SnapshotStore persists the mid block read back for later retention
// verification.
type SnapshotStore interface {
	SaveSnapshot(data []byte, meta SnapshotMeta) (path string, err error)
}

// Battery runs the fixed validation scenarios against one Device,
// reporting each to W as it completes. A failed scenario is an
// independent diagnostic signal; the battery never halts early, and no
// scenario assumes another ran before it.
type Battery struct {
	Dev   *Device
	Store SnapshotStore
	W     io.Writer
}

func (b *Battery) w() io.Writer {
	if b.W == nil {
		return ioutil.Discard
	}
	return b.W
}

// Run executes the write/read scenarios in report order and returns
// their results.
func (b *Battery) Run() []Result {
	return []Result{
		b.LastByte(),
		b.PageCross(),
		b.BlockCross(),
		b.MidRandomCRC(),
	}
}

func verdict(ok bool) string {
	if ok {
		return "OK"
	}
	return "MISMATCH"
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// LastByte writes the sentinel to the highest valid address and reads it
// back.
func (b *Battery) LastByte() Result {
	addr := b.Dev.Size - 1
	t0 := time.Now()
	var v byte
	err := b.Dev.WriteByte(addr, lastByteSentinel)
	if err == nil {
		v, err = b.Dev.ReadByte(addr)
	}
	r := Result{
		Name:   "last_byte",
		Addr:   fmt.Sprintf("%#x", addr),
		Value:  fmt.Sprintf("%#x", v),
		OK:     err == nil && v == lastByteSentinel,
		TimeMs: ms(time.Since(t0)),
	}
	if err != nil {
		r.Error = err.Error()
	}
	fmt.Fprintf(b.w(), "Test 1 (last byte %s): read=%s -> %s (%.1f ms)\n",
		r.Addr, r.Value, verdict(r.OK), r.TimeMs)
	return r
}

// PageCross writes a 32 byte counting pattern from the page aligned
// start at or below 0x0F0, straddling the 0x0FF/0x100 offset rollover,
// and compares the read back.
func (b *Battery) PageCross() Result {
	start := pageCrossNear / b.Dev.PageSize * b.Dev.PageSize
	data := make([]byte, pageCrossLen)
	for i := range data {
		data[i] = byte(i)
	}
	return b.rangeScenario("page_cross", 2, start, data)
}

// BlockCross writes 16 bytes from 0x0F8, straddling the device select
// rollover of the block switched family. On linear chips the stress is
// still a valid range test.
func (b *Battery) BlockCross() Result {
	data := make([]byte, blockCrossLen)
	for i := range data {
		data[i] = byte(0xA0 + i)
	}
	return b.rangeScenario("block_cross", 3, blockCrossStart, data)
}

func (b *Battery) rangeScenario(name string, seq, start int, data []byte) Result {
	t0 := time.Now()
	var rb []byte
	err := b.Dev.WriteRange(start, data)
	if err == nil {
		rb, err = b.Dev.ReadRange(start, len(data))
	}
	r := Result{
		Name:   name,
		Range:  fmt.Sprintf("%#x..%#x", start, start+len(data)-1),
		OK:     err == nil && bytes.Equal(rb, data),
		TimeMs: ms(time.Since(t0)),
	}
	if err != nil {
		r.Error = err.Error()
	}
	fmt.Fprintf(b.w(), "Test %d (%s %s): %s (%.1f ms)\n",
		seq, name, r.Range, verdict(r.OK), r.TimeMs)
	return r
}

// MidRandomCRC writes a deterministic 128 byte pseudo-random block at
// the exact middle of the address space, reads it back, checksums the
// read back, and persists it as the retention snapshot.
func (b *Battery) MidRandomCRC() Result {
	start := b.Dev.Size / 2
	data := make([]byte, midBlockLen)
	rand.New(rand.NewSource(midBlockSeed)).Read(data)
	t0 := time.Now()
	var rb []byte
	err := b.Dev.WriteRange(start, data)
	if err == nil {
		rb, err = b.Dev.ReadRange(start, len(data))
	}
	crc := crc32.ChecksumIEEE(rb)
	r := Result{
		Name:   "mid_random_crc",
		Addr:   fmt.Sprintf("%#x", start),
		Length: len(data),
		CRC32:  fmt.Sprintf("%#x", crc),
		OK:     err == nil && bytes.Equal(rb, data),
		TimeMs: ms(time.Since(t0)),
	}
	if err != nil {
		r.Error = err.Error()
	} else if b.Store != nil {
		r.BinPath, err = b.Store.SaveSnapshot(rb, SnapshotMeta{
			Chip:   b.Dev.Name,
			Addr:   start,
			Length: len(rb),
			CRC32:  crc,
		})
		if err != nil {
			r.OK = false
			r.Error = err.Error()
		}
	}
	fmt.Fprintf(b.w(), "Test 4 (mid block %s len=%d): %s CRC32=%s (%.1f ms)\n",
		r.Addr, r.Length, verdict(r.OK), r.CRC32, r.TimeMs)
	return r
}

// RetentionVerify re-reads the region a snapshot was taken from and
// compares CRC-32 sums, confirming the chip retained the data without
// needing the original payload. Snapshots carrying metadata name their
// region and chip; the historical convention, the exact middle of the
// address space, covers snapshots that do not. A checksum mismatch is a
// failed result, not an error.
func (b *Battery) RetentionVerify(snapshot []byte, meta SnapshotMeta) Result {
	r := Result{Name: "retention_verify", Length: len(snapshot)}
	if len(meta.Chip) > 0 && meta.Chip != b.Dev.Name {
		// Reading the midpoint of the wrong geometry would verify
		// an unrelated region and could pass by accident.
		r.Error = fmt.Sprintf("snapshot captured from %s, not %s",
			meta.Chip, b.Dev.Name)
		fmt.Fprintf(b.w(), "Retention verify: %s -> %s\n",
			r.Error, verdict(false))
		return r
	}
	start := b.Dev.Size / 2
	if meta.Length > 0 {
		start = meta.Addr
	}
	t0 := time.Now()
	rb, err := b.Dev.ReadRange(start, len(snapshot))
	crcSaved := crc32.ChecksumIEEE(snapshot)
	crcNow := crc32.ChecksumIEEE(rb)
	r.Addr = fmt.Sprintf("%#x", start)
	r.CRCSaved = fmt.Sprintf("%#x", crcSaved)
	r.CRCNow = fmt.Sprintf("%#x", crcNow)
	r.OK = err == nil && crcSaved == crcNow
	r.TimeMs = ms(time.Since(t0))
	if err != nil {
		r.Error = err.Error()
	}
	fmt.Fprintf(b.w(),
		"Retention verify (%s len=%d): %s CRC_saved=%s CRC_now=%s (%.1f ms)\n",
		r.Addr, r.Length, verdict(r.OK), r.CRCSaved, r.CRCNow, r.TimeMs)
	return r
}
