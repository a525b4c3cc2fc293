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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testConfig = `
RootDir = "%ROOT%"
DatabaseFile = "db/mxserver.dat"
LogLevel = "debug"
DefaultDataFormat = "portable"
CallbackPollInterval = "50ms"
StateLogEnabled = false

[[Listener]]
Network = "unix"
Addr = "mx.sock"

[[Listener]]
Addr = "127.0.0.1:9727"

[Autosave]
Enabled = true
Fields = ["m1.position"]
Interval = "1m"
`

func writeConfig(t *testing.T, text string) (string, string) {
	t.Helper()
	root := t.TempDir()
	name := filepath.Join(root, "mxserver.toml")
	text = strings.ReplaceAll(text, "%ROOT%", root)
	if err := os.WriteFile(name, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return root, name
}

func TestLoadConfig(t *testing.T) {
	Conf = DefaultConfig()
	defer func() { Conf = DefaultConfig() }()
	root, name := writeConfig(t, testConfig)

	if err := LoadConfig(name); err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if Conf.DatabaseFile != filepath.Join(root, "db", "mxserver.dat") {
		t.Errorf("DatabaseFile %s", Conf.DatabaseFile)
	}
	if Conf.AccessFile != filepath.Join(root, "mxserver.acl") {
		t.Errorf("AccessFile %s", Conf.AccessFile)
	}
	if len(Conf.Listener) != 2 {
		t.Fatalf("%d listeners", len(Conf.Listener))
	}
	if Conf.Listener[0].Addr != filepath.Join(root, "mx.sock") {
		t.Errorf("unix listener %s", Conf.Listener[0].Addr)
	}
	if Conf.Listener[1].Network != "tcp" || Conf.Listener[1].Addr != "127.0.0.1:9727" {
		t.Errorf("tcp listener %+v", Conf.Listener[1])
	}
	if Conf.DefaultDataFormat != "portable" || Conf.CallbackPollInterval.Duration != 50*time.Millisecond {
		t.Errorf("server config %s %s", Conf.DefaultDataFormat, Conf.CallbackPollInterval.Duration)
	}
	if !Conf.Autosave.Enabled || Conf.Autosave.Interval.Duration != time.Minute {
		t.Errorf("autosave %+v", Conf.Autosave)
	}
	if Conf.Autosave.File1 != filepath.Join(root, "mxserver.sav1") {
		t.Errorf("autosave file %s", Conf.Autosave.File1)
	}
	if Conf.StateLogEnabled {
		t.Errorf("state log not disabled")
	}
	if Conf.MaxConnections == 0 || Conf.EventBackend == "" {
		t.Errorf("server defaults not applied")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	Conf = DefaultConfig()
	defer func() { Conf = DefaultConfig() }()

	_, name := writeConfig(t, "DefaultDataFormat = \"xdr\"\n")
	if err := LoadConfig(name); err == nil {
		t.Errorf("bad data format accepted")
	}
	Conf = DefaultConfig()
	_, name = writeConfig(t, "MaxConnections = \"many\"\n")
	if err := LoadConfig(name); err == nil {
		t.Errorf("undecodable config accepted")
	}
	if err := initialize(); err == nil {
		t.Errorf("initialize without a file name")
	}
	if err := initialize(42); err == nil {
		t.Errorf("initialize with a number")
	}
}
