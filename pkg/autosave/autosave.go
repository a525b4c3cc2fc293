//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package autosave periodically saves selected field values and restores
// them when the server starts.
//
// Snapshots alternate between two files so that one complete snapshot
// survives a crash during a save. Each file is snappy compressed text,
// one "record.field  tokens" line per field followed by an end marker.
package autosave

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
	"github.com/nbeaver/mx-trunk-sub019/pkg/util"
)

const endMarker = "********"

type Config struct {
	Enabled  bool
	Fields   []string
	File1    string
	File2    string
	Interval util.Duration
}

func (c *Config) SetDefaultIfNotDefined() {
	if c.File1 == "" {
		c.File1 = "mxserver.sav1"
	}
	if c.File2 == "" {
		c.File2 = "mxserver.sav2"
	}
	if c.Interval.Duration == 0 {
		c.Interval.Duration = 30 * time.Second
	}
}

type Saver struct {
	dir   *record.Directory
	names []string
	files [2]string
	next  int
}

func NewSaver(dir *record.Directory, cfg *Config) *Saver {
	return &Saver{
		dir:   dir,
		names: cfg.Fields,
		files: [2]string{cfg.File1, cfg.File2},
	}
}

// Snapshot renders the current values of the saved fields. Fields that
// cannot be read are skipped with a warning.
func (s *Saver) Snapshot() []byte {
	var buf bytes.Buffer
	for _, name := range s.names {
		f, err := s.dir.Resolve(name)
		if err != nil {
			glog.Warningf("autosave %s: %s", name, err)
			continue
		}
		v, err := f.Read()
		if err != nil {
			glog.Warningf("autosave read %s: %s", name, err)
			continue
		}
		text, err := proto.FormatTokens(v, 0)
		if err != nil {
			glog.Warningf("autosave format %s: %s", name, err)
			continue
		}
		fmt.Fprintf(&buf, "%s  %s\n", name, text)
	}
	buf.WriteString(endMarker + "\n")
	return buf.Bytes()
}

// Save writes a snapshot over the older of the two files.
func (s *Saver) Save() error {
	name := s.files[s.next]
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, snappy.Encode(nil, s.Snapshot()), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, name); err != nil {
		return err
	}
	glog.Debugf("autosave written to %s", name)
	s.next = 1 - s.next
	return nil
}

// readSnapshot returns the text of a complete snapshot file.
func readSnapshot(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	text, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !bytes.HasSuffix(text, []byte(endMarker+"\n")) {
		return nil, fmt.Errorf("%s: snapshot is incomplete", name)
	}
	return text, nil
}

// choose picks the newest complete snapshot. The next save then goes to
// the other file.
func (s *Saver) choose() (int, []byte) {
	best := -1
	var bestText []byte
	var bestTime time.Time
	for i, name := range s.files {
		st, err := os.Stat(name)
		if err != nil {
			continue
		}
		text, err := readSnapshot(name)
		if err != nil {
			glog.Warningf("autosave: %s", err)
			continue
		}
		if best < 0 || st.ModTime().After(bestTime) {
			best, bestText, bestTime = i, text, st.ModTime()
		}
	}
	return best, bestText
}

// Restore writes the values of the newest complete snapshot back to
// their fields and returns how many were restored.
func (s *Saver) Restore() (n int, err error) {
	idx, text := s.choose()
	if idx < 0 {
		glog.Infof("no autosave snapshot to restore")
		return 0, nil
	}
	s.next = 1 - idx

	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), proto.DefaultBufferLimit)
	for sc.Scan() {
		line := sc.Text()
		if line == endMarker {
			break
		}
		name, rest, ok := strings.Cut(line, " ")
		if !ok {
			glog.Warningf("autosave %s: malformed line '%s'", s.files[idx], line)
			continue
		}
		f, ferr := s.dir.Resolve(name)
		if ferr != nil {
			glog.Warningf("autosave restore %s: %s", name, ferr)
			continue
		}
		v, perr := proto.ParseTokens(proto.NewTokenizer(rest), f.Type, f.Dims)
		if perr != nil {
			glog.Warningf("autosave restore %s: %s", name, perr)
			continue
		}
		if werr := f.Write(v); werr != nil {
			glog.Warningf("autosave restore %s: %s", name, werr)
			continue
		}
		n++
	}
	if err = sc.Err(); err != nil {
		return
	}
	glog.Infof("restored %d fields from %s", n, s.files[idx])
	return
}

// Run saves every interval until ctx is done, then saves once more.
func (s *Saver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Save(); err != nil {
				glog.Errorf("final autosave: %s", err)
			}
			return
		case <-ticker.C:
			if err := s.Save(); err != nil {
				glog.Errorf("autosave: %s", err)
			}
		}
	}
}
