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

package autosave

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/snappy"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
)

const db = `
[[Record]]
Name = "m1"
  [[Record.Field]]
  Name = "position"
  Type = "double"
  Value = "1.5"
  [[Record.Field]]
  Name = "label"
  Type = "string"
  Dims = [16]
  Value = "\"slit a\""
  [[Record.Field]]
  Name = "counts"
  Type = "long"
  Dims = [3]
  Value = "1 2 3"
`

func setup(t *testing.T) (*record.Directory, *Saver, *Config) {
	dir := record.NewDirectory(0)
	if err := record.LoadDatabase(db, dir); err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()
	cfg := &Config{
		Fields: []string{"m1.position", "m1.label", "m1.counts", "m1.missing"},
		File1:  filepath.Join(tmp, "a.sav"),
		File2:  filepath.Join(tmp, "b.sav"),
	}
	cfg.SetDefaultIfNotDefined()
	return dir, NewSaver(dir, cfg), cfg
}

func write(t *testing.T, dir *record.Directory, name string, text string) {
	f, err := dir.Resolve(name)
	if err != nil {
		t.Fatal(err)
	}
	v, err := proto.ParseTokens(proto.NewTokenizer(text), f.Type, f.Dims)
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Write(v); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, dir *record.Directory, name string) string {
	f, _ := dir.Resolve(name)
	v, err := f.Read()
	if err != nil {
		t.Fatal(err)
	}
	s, _ := proto.FormatTokens(v, 0)
	return s
}

func TestSnapshotText(t *testing.T) {
	_, s, _ := setup(t)
	text := string(s.Snapshot())
	want := "m1.position  1.5\nm1.label  \"slit a\"\nm1.counts  1 2 3\n********\n"
	if text != want {
		t.Errorf("snapshot\n%q\nwant\n%q", text, want)
	}
}

func TestSaveAlternatesAndRestoresNewest(t *testing.T) {
	dir, s, cfg := setup(t)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	write(t, dir, "m1.position", "-7.25")
	write(t, dir, "m1.counts", "4 5 6")
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{cfg.File1, cfg.File2} {
		if _, err := os.Stat(name); err != nil {
			t.Fatalf("%s not written: %s", name, err)
		}
	}
	old := time.Now().Add(-time.Hour)
	os.Chtimes(cfg.File1, old, old)

	write(t, dir, "m1.position", "99")
	write(t, dir, "m1.label", "moved")
	n, err := s.Restore()
	if err != nil || n != 3 {
		t.Fatalf("Restore: %d %v", n, err)
	}
	if got := read(t, dir, "m1.position"); got != "-7.25" {
		t.Errorf("position %s", got)
	}
	if got := read(t, dir, "m1.counts"); got != "4 5 6" {
		t.Errorf("counts %s", got)
	}
	if got := read(t, dir, "m1.label"); got != "\"slit a\"" {
		t.Errorf("label %s", got)
	}
}

func TestRestoreSkipsDamagedFile(t *testing.T) {
	dir, s, cfg := setup(t)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	// the newer file is a truncated snapshot
	os.WriteFile(cfg.File2, snappy.Encode(nil, []byte("m1.position  42\n")), 0644)
	old := time.Now().Add(-time.Hour)
	os.Chtimes(cfg.File1, old, old)

	write(t, dir, "m1.position", "0")
	if n, err := s.Restore(); err != nil || n != 3 {
		t.Fatalf("Restore: %d %v", n, err)
	}
	if got := read(t, dir, "m1.position"); got != "1.5" {
		t.Errorf("position %s", got)
	}
}

func TestRestoreWithoutFiles(t *testing.T) {
	_, s, _ := setup(t)
	if n, err := s.Restore(); err != nil || n != 0 {
		t.Errorf("Restore: %d %v", n, err)
	}
}

func TestSnapshotFileFormat(t *testing.T) {
	_, s, cfg := setup(t)
	s.Save()
	data, _ := os.ReadFile(cfg.File1)
	text, err := snappy.Decode(nil, data)
	if err != nil {
		t.Fatalf("snapshot is not snappy encoded: %s", err)
	}
	if !strings.HasSuffix(string(text), endMarker+"\n") {
		t.Errorf("snapshot text %q", text)
	}
}
