// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package report writes the timestamped TXT/JSON/BIN artifacts of one
// diagnostic session.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/platinasystems/iotbase-diag/internal/eeprom"
)

// Results is the machine readable session record.
type Results struct {
	Session     string          `json:"session"`
	Timestamp   string          `json:"timestamp"`
	Chip        string          `json:"chip"`
	BaseAddr    string          `json:"base_addr"`
	Bus         int             `json:"bus"`
	ScanAddrs   []string        `json:"scan_addrs"`
	Tests       []eeprom.Result `json:"tests"`
	Pass        int             `json:"pass"`
	Fail        int             `json:"fail"`
	TotalTimeMs float64         `json:"total_time_ms,omitempty"`
}

// Count tallies the pass/fail totals from the test records.
func (r *Results) Count() {
	r.Pass, r.Fail = 0, 0
	for _, t := range r.Tests {
		if t.OK {
			r.Pass++
		} else {
			r.Fail++
		}
	}
}

// Session owns the artifact files of one tool invocation. Progress text
// written through W lands on the console and in the TXT report.
type Session struct {
	Id  string
	Tag string
	Dir string

	txt *os.File
	tee io.Writer
}

func New(dir string) (*Session, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	s := &Session{
		Id:  uuid.NewV4().String(),
		Tag: time.Now().Format("20060102_150405"),
		Dir: dir,
	}
	f, err := os.Create(s.path("report.txt"))
	if err != nil {
		return nil, err
	}
	s.txt = f
	s.tee = io.MultiWriter(os.Stdout, f)
	return s, nil
}

func (s *Session) path(suffix string) string {
	return filepath.Join(s.Dir, s.Tag+"_"+suffix)
}

func (s *Session) W() io.Writer { return s.tee }

func (s *Session) TxtPath() string { return s.path("report.txt") }

func (s *Session) Close() error { return s.txt.Close() }

// WriteResults marshals the session record beside the TXT report and
// returns its path.
func (s *Session) WriteResults(r *Results) (string, error) {
	fn := s.path("results.json")
	buf, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return fn, ioutil.WriteFile(fn, append(buf, '\n'), 0644)
}

// SaveSnapshot writes the mid block BIN plus a metadata sidecar naming
// the region it was taken from, so a later verification need not rely on
// the chip convention. The BIN itself stays an opaque blob, byte
// compatible with snapshots from earlier tooling.
func (s *Session) SaveSnapshot(data []byte, meta eeprom.SnapshotMeta) (string, error) {
	fn := s.path("midblock.bin")
	if err := ioutil.WriteFile(fn, data, 0644); err != nil {
		return "", err
	}
	buf, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	return fn, ioutil.WriteFile(fn+".meta.json", append(buf, '\n'), 0644)
}

// LoadSnapshot reads a snapshot BIN and, when present, its metadata
// sidecar. Legacy snapshots without a sidecar yield zero metadata.
func LoadSnapshot(path string) ([]byte, eeprom.SnapshotMeta, error) {
	var meta eeprom.SnapshotMeta
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, meta, err
	}
	if buf, err := ioutil.ReadFile(path + ".meta.json"); err == nil {
		if err = json.Unmarshal(buf, &meta); err != nil {
			return nil, meta, fmt.Errorf("%s.meta.json: %v",
				path, err)
		}
	}
	return data, meta, nil
}
