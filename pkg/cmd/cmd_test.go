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

package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type testCommand struct {
	Command
	config   string
	interval time.Duration
	ran      bool
}

func (c *testCommand) Exec() error {
	c.ran = true
	return nil
}

func TestCommandParseAndUsage(t *testing.T) {
	var c testCommand
	c.Init("check", "check a configuration")
	c.StringOption(&c.config, "c|config", "", "toml config file")
	c.DurationOption(&c.interval, "interval", time.Second, "poll interval")
	c.SetSynopsis("-c <config file>")
	c.AddExample("mxserver check -c mxserver.toml", "check a config file")

	if err := c.Parse([]string{"-config", "a.toml", "-interval", "250ms"}); err != nil {
		t.Fatalf("Parse: %s", err)
	}
	if c.config != "a.toml" || c.interval != 250*time.Millisecond {
		t.Errorf("parsed %q %s", c.config, c.interval)
	}
	if err := c.Parse([]string{"-c", "b.toml"}); err != nil || c.config != "b.toml" {
		t.Errorf("alias: %v %q", err, c.config)
	}

	var buf bytes.Buffer
	c.Write(&buf)
	out := buf.String()
	for _, want := range []string{"check - check a configuration", "-c, -config string", "(default 1s)", "mxserver check -c"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage lacks %q:\n%s", want, out)
		}
	}
}

func TestRegister(t *testing.T) {
	var a, b testCommand
	a.Init("cmd-test-a", "")
	b.Init("cmd-test-a", "")
	if !Register(&a) {
		t.Fatalf("first registration refused")
	}
	if Register(&b) {
		t.Errorf("duplicate registration accepted")
	}
	if GetCommand("cmd-test-a") != ICommand(&a) {
		t.Errorf("GetCommand returned another command")
	}
	var buf bytes.Buffer
	WriteCommand(&buf)
	if !strings.Contains(buf.String(), "* cmd-test-a") {
		t.Errorf("command list:\n%s", buf.String())
	}
}
