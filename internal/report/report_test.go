// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/platinasystems/iotbase-diag/internal/eeprom"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	dir, err := ioutil.TempDir("", "report")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	s, err := New(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSessionTxt(t *testing.T) {
	s := newTestSession(t)
	if len(s.Id) == 0 {
		t.Error("empty session id")
	}
	if len(s.Tag) != len("20060102_150405") {
		t.Errorf("tag %q", s.Tag)
	}
	fmt.Fprintln(s.W(), "probe line")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	buf, err := ioutil.ReadFile(s.TxtPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(buf), "probe line") {
		t.Errorf("report.txt: %q", buf)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestSession(t)
	defer s.Close()
	data := []byte{1, 2, 3, 4}
	meta := eeprom.SnapshotMeta{
		Chip:   "24c08",
		Addr:   0x200,
		Length: len(data),
		CRC32:  0xb63cfbcd,
	}
	path, err := s.SaveSnapshot(data, meta)
	if err != nil {
		t.Fatal(err)
	}
	got, gotMeta, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("data % x", got)
	}
	if gotMeta != meta {
		t.Errorf("meta %+v, want %+v", gotMeta, meta)
	}
}

func TestLoadLegacySnapshot(t *testing.T) {
	// BINs from earlier tooling have no metadata sidecar.
	dir, err := ioutil.TempDir("", "report")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "midblock.bin")
	if err := ioutil.WriteFile(path, []byte{9, 9}, 0644); err != nil {
		t.Fatal(err)
	}
	data, meta, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 {
		t.Errorf("data % x", data)
	}
	if meta != (eeprom.SnapshotMeta{}) {
		t.Errorf("meta %+v, want zero", meta)
	}
}

func TestWriteResults(t *testing.T) {
	s := newTestSession(t)
	defer s.Close()
	r := &Results{
		Session:   s.Id,
		Timestamp: s.Tag,
		Chip:      "24c08",
		BaseAddr:  "0x54",
		Bus:       1,
		Tests: []eeprom.Result{
			{Name: "last_byte", OK: true},
			{Name: "page_cross", OK: false},
		},
	}
	r.Count()
	if r.Pass != 1 || r.Fail != 1 {
		t.Errorf("pass %d fail %d", r.Pass, r.Fail)
	}
	fn, err := s.WriteResults(r)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := ioutil.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	var got Results
	if err = json.Unmarshal(buf, &got); err != nil {
		t.Fatal(err)
	}
	if got.Chip != "24c08" || len(got.Tests) != 2 || got.Pass != 1 {
		t.Errorf("round trip: %+v", got)
	}
}
